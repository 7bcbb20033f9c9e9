package ascii

import (
	"bufio"
	"io"
	"strings"
)

// lineReader implements core.LineReader over a stream. In follow mode an
// unterminated last line is held back until its newline arrives, so that a
// row still being written by the instrument is not parsed half-way.
type lineReader struct {
	r       *bufio.Reader
	follow  bool
	partial string
	n       int
}

func newLineReader(r io.Reader, follow bool) *lineReader {
	return &lineReader{r: bufio.NewReader(r), follow: follow}
}

func (l *lineReader) ReadLine() (string, error) {
	s, err := l.r.ReadString('\n')
	if err != nil {
		if err != io.EOF {
			return "", err
		}
		if l.follow {
			l.partial += s
			return "", io.EOF
		}
		s = l.partial + s
		l.partial = ""
		if s == "" {
			return "", io.EOF
		}
		l.n++
		return strings.TrimRight(s, "\r\n"), nil
	}

	s = l.partial + s
	l.partial = ""
	l.n++
	return strings.TrimRight(s, "\r\n"), nil
}

// Line returns the number of the last line returned, starting at 1.
func (l *lineReader) Line() int { return l.n }
