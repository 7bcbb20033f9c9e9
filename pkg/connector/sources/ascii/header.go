package ascii

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/oneminimax/AsciiDataFile/pkg/columnar"
	"github.com/oneminimax/AsciiDataFile/pkg/config"
	"github.com/oneminimax/AsciiDataFile/pkg/connector/core"
	"github.com/oneminimax/AsciiDataFile/pkg/errors"
	"github.com/oneminimax/AsciiDataFile/pkg/units"
)

var (
	dataSection    = regexp.MustCompile(`^\[Data\]`)
	mdHeaderStart  = regexp.MustCompile(`^\[(Header|Instrument List)\]`)
	mdHeaderEnd    = regexp.MustCompile(`^\[(Header end|Instrument List end)\]`)
	mdColumnLine   = regexp.MustCompile(`^Column .. : (.+)`)
	mdTabUnit      = regexp.MustCompile(`^([^\t]+)\t(.*)$`)
	mdInUnit       = regexp.MustCompile(`^([\w -]+) in (\w+)`)
	mdInstrument   = regexp.MustCompile(`^(.+)\s+(\w+)\s+(\w+)$`)
	columnWithUnit = regexp.MustCompile(`^(.*?)\s*\(([^()]*)\)$`)
)

// NewHeaderProvider returns the provider registered under format, configured
// from the ingest section.
func NewHeaderProvider(format string, cfg config.IngestConfig) (core.HeaderProvider, error) {
	switch format {
	case "generic":
		return &GenericHeader{Names: cfg.Names, Units: cfg.Units, HeadLines: cfg.HeadLines}, nil
	case "column":
		tok, err := NewTokenizer(cfg.Separator)
		if err != nil {
			return nil, err
		}
		return &ColumnHeader{Tokenizer: tok, HeadLines: cfg.HeadLines}, nil
	case "md":
		return MDHeader{}, nil
	case "squid":
		return SquidHeader{}, nil
	case "ppms-resistivity":
		h, err := NewPPMSResistivityHeader(cfg.Sample)
		if err != nil {
			return nil, err
		}
		return h, nil
	case "ppms-acms":
		h, err := NewPPMSACMSHeader(cfg.Harmonics)
		if err != nil {
			return nil, err
		}
		return h, nil
	default:
		return nil, errors.Newf(errors.ErrorTypeCapability, "unknown input format %q", format)
	}
}

// GenericHeader skips a fixed number of lines and uses caller supplied
// names. With only units, names are "Data Field 1".."Data Field N". Units
// that do not match the names one to one are replaced by arbitrary units.
type GenericHeader struct {
	Names     []string
	Units     []string
	HeadLines int
}

// Name implements core.HeaderProvider.
func (h *GenericHeader) Name() string { return "generic" }

// ReadHeader implements core.HeaderProvider.
func (h *GenericHeader) ReadHeader(lines core.LineReader) (*core.Schema, error) {
	names := h.Names
	if len(names) == 0 {
		if len(h.Units) == 0 {
			return nil, errors.New(errors.ErrorTypeConfig, "generic format needs column names or units")
		}
		names = columnar.GenericNames(len(h.Units))
	}

	if err := skipLines(lines, h.HeadLines); err != nil {
		return nil, err
	}
	return core.NewSchema(names, fillUnits(h.Units, len(names))), nil
}

// ColumnHeader reads a title line such as "Time (s), Field (Oe), R" after
// HeadLines skipped lines. It reads back what the column writer produces.
type ColumnHeader struct {
	Tokenizer core.LineTokenizer
	HeadLines int
}

// Name implements core.HeaderProvider.
func (h *ColumnHeader) Name() string { return "column" }

// ReadHeader implements core.HeaderProvider.
func (h *ColumnHeader) ReadHeader(lines core.LineReader) (*core.Schema, error) {
	if err := skipLines(lines, h.HeadLines); err != nil {
		return nil, err
	}

	var title string
	for {
		line, err := lines.ReadLine()
		if err != nil {
			return nil, headerError(err, "column title line not found")
		}
		if strings.TrimSpace(line) != "" {
			title = strings.TrimPrefix(strings.TrimSpace(line), "#")
			break
		}
	}

	fields := h.Tokenizer.Tokenize(title)
	schema := &core.Schema{
		Names: make([]string, 0, len(fields)),
		Units: make([]string, 0, len(fields)),
	}
	for _, field := range fields {
		field = strings.TrimSpace(field)
		name, unit := field, units.ArbitraryUnit
		if m := columnWithUnit.FindStringSubmatch(field); m != nil && m[1] != "" {
			name, unit = m[1], strings.TrimSpace(m[2])
		}
		schema.Names = append(schema.Names, name)
		schema.Units = append(schema.Units, unit)
	}
	return schema, nil
}

// MDHeader reads the "[Header]" block written by the acquisition software
// and by the md writer:
//
//	[Header]
//	Column  0 : Time                	s
//	Column  1 : Temperature         	K
//	[Header end]
type MDHeader struct{}

// Name implements core.HeaderProvider.
func (MDHeader) Name() string { return "md" }

// ReadHeader implements core.HeaderProvider.
func (MDHeader) ReadHeader(lines core.LineReader) (*core.Schema, error) {
	for {
		line, err := lines.ReadLine()
		if err != nil {
			return nil, headerError(err, "[Header] section not found")
		}
		if mdHeaderStart.MatchString(line) {
			break
		}
	}

	schema := &core.Schema{}
	for {
		line, err := lines.ReadLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, headerError(err, "")
		}
		if mdHeaderEnd.MatchString(line) {
			break
		}

		m := mdColumnLine.FindStringSubmatch(strings.TrimLeft(line, " \t"))
		if m == nil {
			continue
		}
		name, unit := parseMDColumn(m[1])
		schema.Names = append(schema.Names, name)
		schema.Units = append(schema.Units, unit)
	}

	if len(schema.Names) == 0 {
		return nil, errors.New(errors.ErrorTypeMalformedRow, "md header declares no columns")
	}
	return schema, nil
}

func parseMDColumn(desc string) (name, unit string) {
	if m := mdTabUnit.FindStringSubmatch(desc); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	}
	if m := mdInUnit.FindStringSubmatch(desc); m != nil {
		label := strings.TrimSpace(m[1])
		// "<instrument> <channel> <quantity> in <unit>" keeps the channel
		if mi := mdInstrument.FindStringSubmatch(label); mi != nil {
			label = strings.TrimSpace(mi[2])
		}
		return label, strings.TrimSpace(m[2])
	}
	return strings.TrimSpace(desc), units.ArbitraryUnit
}

// SquidHeader reads MPMS SQUID magnetometer files: everything up to the
// "[Data]" marker and the title line that follows it is header.
type SquidHeader struct{}

// Name implements core.HeaderProvider.
func (SquidHeader) Name() string { return "squid" }

// ReadHeader implements core.HeaderProvider.
func (SquidHeader) ReadHeader(lines core.LineReader) (*core.Schema, error) {
	if err := skipToData(lines, 1); err != nil {
		return nil, err
	}
	return &core.Schema{
		Names: []string{
			"time",
			"magnetic field",
			"temperature",
			"long moment",
			"long scan std dev",
			"long algorithm",
			"long reg fit",
			"long percent error",
		},
		Units:  []string{"s", "Oe", "K", "emu", "emu", units.Dimensionless, units.Dimensionless, "%"},
		Fields: []int{0, 2, 3, 4, 5, 6, 7, 8},
	}, nil
}

// PPMSResistivityHeader reads PPMS resistivity option files. Sample selects
// one of the three bridge channels; 0 keeps all of them, suffixing the
// names with the channel number.
type PPMSResistivityHeader struct {
	Sample int
}

// NewPPMSResistivityHeader validates the channel number.
func NewPPMSResistivityHeader(sample int) (*PPMSResistivityHeader, error) {
	if sample < 0 || sample > 3 {
		return nil, errors.Newf(errors.ErrorTypeConfig, "PPMS resistivity sample must be 0 to 3, got %d", sample)
	}
	return &PPMSResistivityHeader{Sample: sample}, nil
}

// Name implements core.HeaderProvider.
func (h *PPMSResistivityHeader) Name() string { return "ppms-resistivity" }

// ReadHeader implements core.HeaderProvider.
func (h *PPMSResistivityHeader) ReadHeader(lines core.LineReader) (*core.Schema, error) {
	if err := skipToData(lines, 1); err != nil {
		return nil, err
	}

	schema := &core.Schema{
		Names:  []string{"time", "temperature", "magnetic field", "sample position"},
		Units:  []string{"s", "K", "Oe", "deg"},
		Fields: []int{1, 3, 4, 5},
	}
	addChannel := func(ch int, suffix string) {
		schema.Names = append(schema.Names, "resistance"+suffix, "current"+suffix)
		schema.Units = append(schema.Units, "ohm", "uA")
		schema.Fields = append(schema.Fields, 4+2*ch, 5+2*ch)
	}
	if h.Sample == 0 {
		for ch := 1; ch <= 3; ch++ {
			addChannel(ch, fmt.Sprint(ch))
		}
	} else {
		addChannel(h.Sample, "")
	}
	return schema, nil
}

// PPMSACMSHeader reads PPMS AC susceptibility files with Harmonics recorded
// harmonics, each contributing real, imaginary, absolute and phase columns.
type PPMSACMSHeader struct {
	Harmonics int
}

// NewPPMSACMSHeader validates the number of harmonics.
func NewPPMSACMSHeader(harmonics int) (*PPMSACMSHeader, error) {
	if harmonics < 1 {
		return nil, errors.Newf(errors.ErrorTypeConfig, "ACMS harmonics must be at least 1, got %d", harmonics)
	}
	return &PPMSACMSHeader{Harmonics: harmonics}, nil
}

// Name implements core.HeaderProvider.
func (h *PPMSACMSHeader) Name() string { return "ppms-acms" }

// ReadHeader implements core.HeaderProvider.
func (h *PPMSACMSHeader) ReadHeader(lines core.LineReader) (*core.Schema, error) {
	if err := skipToData(lines, 1); err != nil {
		return nil, err
	}

	schema := &core.Schema{
		Names: []string{
			"time",
			"temperature",
			"magnetic field",
			"frequency",
			"amplitude",
			"magnetization dc",
			"magnetization std",
		},
		Units:  []string{"s", "K", "Oe", "Hz", "Oe", "emu", "emu"},
		Fields: []int{1, 2, 3, 4, 5, 6, 7},
	}
	for har := 0; har < h.Harmonics; har++ {
		for k, part := range []string{"Real", "Imag", "Abs", "Phase"} {
			schema.Names = append(schema.Names, fmt.Sprintf("magnetization%s[%d]", part, har+1))
			schema.Units = append(schema.Units, units.Dimensionless)
			schema.Fields = append(schema.Fields, 8+4*har+k)
		}
	}
	return schema, nil
}

func skipLines(lines core.LineReader, n int) error {
	for i := 0; i < n; i++ {
		if _, err := lines.ReadLine(); err != nil {
			if err == io.EOF {
				return nil
			}
			return headerError(err, "")
		}
	}
	return nil
}

// skipToData consumes lines through the "[Data]" marker plus extra lines.
func skipToData(lines core.LineReader, extra int) error {
	for {
		line, err := lines.ReadLine()
		if err != nil {
			return headerError(err, "[Data] section not found")
		}
		if dataSection.MatchString(line) {
			break
		}
	}
	return skipLines(lines, extra)
}

func fillUnits(given []string, n int) []string {
	out := make([]string, n)
	if len(given) == n {
		copy(out, given)
		return out
	}
	for i := range out {
		out[i] = units.ArbitraryUnit
	}
	return out
}

func headerError(err error, eofMessage string) error {
	if err == io.EOF && eofMessage != "" {
		return errors.New(errors.ErrorTypeMalformedRow, eofMessage)
	}
	return errors.Wrap(err, errors.ErrorTypeFile, "failed to read header")
}
