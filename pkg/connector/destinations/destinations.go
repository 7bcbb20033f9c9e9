// Package destinations registers every output format and offers helpers
// to pick one by name or by file extension.
package destinations

import (
	"path"
	"strings"

	"github.com/oneminimax/AsciiDataFile/pkg/compression"
	"github.com/oneminimax/AsciiDataFile/pkg/config"
	"github.com/oneminimax/AsciiDataFile/pkg/connector/core"
	"github.com/oneminimax/AsciiDataFile/pkg/connector/registry"
	"github.com/oneminimax/AsciiDataFile/pkg/errors"

	// Import all destination formats to trigger init() registration
	_ "github.com/oneminimax/AsciiDataFile/pkg/connector/destinations/ascii"
	_ "github.com/oneminimax/AsciiDataFile/pkg/connector/destinations/columnar"
	_ "github.com/oneminimax/AsciiDataFile/pkg/connector/destinations/json"
	_ "github.com/oneminimax/AsciiDataFile/pkg/connector/destinations/sqlite"
)

// New creates the destination registered as format.
func New(format string, cfg *config.BaseConfig) (core.Destination, error) {
	return registry.CreateDestination(format, cfg)
}

// NewLoader creates a destination of format that can also read back what
// it writes.
func NewLoader(format string, cfg *config.BaseConfig) (core.Loader, error) {
	dest, err := New(format, cfg)
	if err != nil {
		return nil, err
	}
	loader, ok := dest.(core.Loader)
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeCapability, "format %s cannot be loaded back", format)
	}
	return loader, nil
}

// FormatForPath returns the destination registered for the extension of
// uri, looking through a compression suffix and ignoring a #table
// fragment. Extensions shared by several formats, like ".txt", match
// none.
func FormatForPath(uri string) (string, bool) {
	if before, _, ok := strings.Cut(uri, "#"); ok {
		uri = before
	}
	ext := strings.ToLower(path.Ext(compression.StripExtension(uri)))
	if ext == "" {
		return "", false
	}

	var found []string
	for _, info := range registry.ListFormatInfo() {
		if info.Type != string(core.ConnectorTypeDestination) {
			continue
		}
		for _, e := range info.Extensions {
			if e == ext {
				found = append(found, info.Name)
			}
		}
	}
	if len(found) != 1 {
		return "", false
	}
	return found[0], true
}
