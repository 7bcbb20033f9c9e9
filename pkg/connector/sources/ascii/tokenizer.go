package ascii

import (
	"regexp"
	"strings"

	"github.com/oneminimax/AsciiDataFile/pkg/connector/core"
	"github.com/oneminimax/AsciiDataFile/pkg/errors"
)

// RegexpTokenizer splits lines on a regular expression separator.
type RegexpTokenizer struct {
	re *regexp.Regexp
}

// NewRegexpTokenizer compiles separator, for example "," or `\s*;\s*`.
func NewRegexpTokenizer(separator string) (*RegexpTokenizer, error) {
	if separator == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "separator is required")
	}
	re, err := regexp.Compile(separator)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "separator is not a valid regular expression").
			WithDetail("separator", separator)
	}
	return &RegexpTokenizer{re: re}, nil
}

// Tokenize implements core.LineTokenizer.
func (t *RegexpTokenizer) Tokenize(line string) []string {
	return t.re.Split(line, -1)
}

// WhitespaceTokenizer splits lines on runs of blanks and tabs.
type WhitespaceTokenizer struct{}

// Tokenize implements core.LineTokenizer.
func (WhitespaceTokenizer) Tokenize(line string) []string {
	return strings.Fields(line)
}

// NewTokenizer returns a WhitespaceTokenizer for the separators "whitespace"
// and `\s+`, and a RegexpTokenizer otherwise.
func NewTokenizer(separator string) (core.LineTokenizer, error) {
	switch separator {
	case "whitespace", `\s+`:
		return WhitespaceTokenizer{}, nil
	}
	t, err := NewRegexpTokenizer(separator)
	if err != nil {
		return nil, err
	}
	return t, nil
}
