// Package sqlite stores DataCurves in SQLite databases. Each curve gets
// its own table of REAL columns, one row per data point. The catalog
// tables curves, curve_columns and curve_parameters keep the tag, the
// column units and the scalar parameters.
//
// A location is a database path with an optional table fragment:
//
//	runs.db#cooldown
//
// Without a fragment the table is output.table of the configuration.
// With auto-numbering enabled an existing table is kept and the curve
// goes to cooldown_002, cooldown_003, ...
package sqlite

import (
	"context"
	"database/sql"
	"math"
	"strings"

	"github.com/oneminimax/AsciiDataFile/pkg/columnar"
	"github.com/oneminimax/AsciiDataFile/pkg/config"
	"github.com/oneminimax/AsciiDataFile/pkg/connector/base"
	"github.com/oneminimax/AsciiDataFile/pkg/connector/core"
	"github.com/oneminimax/AsciiDataFile/pkg/connector/registry"
	"github.com/oneminimax/AsciiDataFile/pkg/errors"
	"github.com/oneminimax/AsciiDataFile/pkg/logger"
	"github.com/oneminimax/AsciiDataFile/pkg/storage"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Format is the registered destination name.
const Format = "sqlite"

const catalogSchema = `
	CREATE TABLE IF NOT EXISTS curves (
		name TEXT PRIMARY KEY,
		tag TEXT,
		rows INTEGER,
		created TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS curve_columns (
		curve TEXT NOT NULL,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		unit TEXT,
		PRIMARY KEY (curve, position)
	);
	CREATE TABLE IF NOT EXISTS curve_parameters (
		curve TEXT NOT NULL,
		name TEXT NOT NULL,
		value DOUBLE,
		unit TEXT,
		PRIMARY KEY (curve, name)
	);
`

var catalogTables = map[string]bool{"curves": true, "curve_columns": true, "curve_parameters": true}

func init() {
	_ = registry.RegisterDestination(Format, func(cfg *config.BaseConfig) (core.Destination, error) {
		return NewDestination(cfg), nil
	})
	_ = registry.RegisterFormatInfo(&registry.FormatInfo{
		Name:         Format,
		Type:         string(core.ConnectorTypeDestination),
		Description:  "SQLite table per curve with column units and parameters in catalog tables",
		Extensions:   []string{".db", ".sqlite"},
		Capabilities: []string{"load", "parameters", "list"},
		Options:      map[string]string{"table": "table name, or #table after the database path"},
	})
}

// Destination writes curves into SQLite databases.
type Destination struct {
	*base.Destination
}

// NewDestination creates a SQLite destination.
func NewDestination(cfg *config.BaseConfig) *Destination {
	d := &Destination{Destination: base.NewDestination(Format, ".db", cfg)}
	d.SetNamer(d.nextFreeTable)
	return d
}

// Location is a database path and a table.
type Location struct {
	Path  string
	Table string
}

func (l Location) String() string { return l.Path + "#" + l.Table }

// ParseLocation splits uri into database path and table, defaulting the
// table to output.table. Only local databases are supported.
func (d *Destination) ParseLocation(uri string) (Location, error) {
	uri, table, _ := strings.Cut(uri, "#")
	path, err := localPath(uri)
	if err != nil {
		return Location{}, err
	}
	if table == "" {
		table = d.Config().Output.Table
	}
	if table == "" {
		return Location{}, errors.New(errors.ErrorTypeConfig, "no table given").WithDetail("uri", uri)
	}
	if catalogTables[table] {
		return Location{}, errors.Newf(errors.ErrorTypeValidation, "table name %q is reserved", table)
	}
	return Location{Path: path, Table: table}, nil
}

func localPath(uri string) (string, error) {
	loc, err := storage.Parse(uri)
	if err != nil {
		return "", err
	}
	if loc.Scheme != storage.SchemeFile {
		return "", errors.Newf(errors.ErrorTypeCapability, "sqlite databases must be local, got %s", loc.Scheme).
			WithDetail("uri", uri)
	}
	return loc.Key, nil
}

func (d *Destination) open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open database").WithDetail("path", path)
	}
	if _, err := db.ExecContext(ctx, catalogSchema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create catalog").WithDetail("path", path)
	}
	return db, nil
}

func tableExists(ctx context.Context, db *sql.DB, table string) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx,
		"SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&n)
	return n > 0, err
}

// nextFreeTable numbers the table instead of the database file.
func (d *Destination) nextFreeTable(ctx context.Context, uri string) (string, error) {
	loc, err := d.ParseLocation(uri)
	if err != nil {
		return "", err
	}
	db, err := d.open(ctx, loc.Path)
	if err != nil {
		return "", err
	}
	defer db.Close()

	exists := func(ctx context.Context, table string) (bool, error) {
		return tableExists(ctx, db, table)
	}
	table, err := base.NextFreeName(ctx, exists, loc.Table)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeFile, "failed to inspect database").WithDetail("path", loc.Path)
	}
	loc.Table = table
	return loc.String(), nil
}

// Write implements core.Destination. The location written is returned
// in path#table form.
func (d *Destination) Write(ctx context.Context, uri string, curve *columnar.DataCurve) (string, error) {
	loc, err := d.ParseLocation(uri)
	if err != nil {
		return "", err
	}
	return d.ExportTo(ctx, loc.String(), curve, func(ctx context.Context, target string) error {
		loc, err := d.ParseLocation(target)
		if err != nil {
			return err
		}
		db, err := d.open(ctx, loc.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := d.store(ctx, db, loc.Table, curve); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to store curve").WithDetail("uri", target)
		}
		return nil
	})
}

func (d *Destination) store(ctx context.Context, db *sql.DB, table string, curve *columnar.DataCurve) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	ident := quoteIdent(table)
	stmts := []string{
		"DROP TABLE IF EXISTS " + ident,
		"DELETE FROM curves WHERE name = ?",
		"DELETE FROM curve_columns WHERE curve = ?",
		"DELETE FROM curve_parameters WHERE curve = ?",
	}
	for i, stmt := range stmts {
		var args []interface{}
		if i > 0 {
			args = append(args, table)
		}
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return err
		}
	}

	names := curve.ColumnNames()
	units := curve.ColumnUnits()
	defs := make([]string, len(names))
	marks := make([]string, len(names))
	for i, name := range names {
		defs[i] = quoteIdent(name) + " DOUBLE"
		marks[i] = "?"
	}
	if _, err := tx.ExecContext(ctx, "CREATE TABLE "+ident+" ("+strings.Join(defs, ", ")+")"); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "INSERT INTO curves (name, tag, rows) VALUES (?, ?, ?)",
		table, curve.Tag(), curve.Len()); err != nil {
		return err
	}
	for i, name := range names {
		if _, err := tx.ExecContext(ctx, "INSERT INTO curve_columns (curve, position, name, unit) VALUES (?, ?, ?, ?)",
			table, i, name, units[i]); err != nil {
			return err
		}
	}
	for name, p := range curve.Parameters() {
		if _, err := tx.ExecContext(ctx, "INSERT INTO curve_parameters (curve, name, value, unit) VALUES (?, ?, ?, ?)",
			table, name, nullable(p.Value), p.Unit); err != nil {
			return err
		}
	}

	insert, err := tx.PrepareContext(ctx, "INSERT INTO "+ident+" VALUES ("+strings.Join(marks, ", ")+")")
	if err != nil {
		return err
	}
	defer insert.Close()

	columns := curve.ValuesArray()
	args := make([]interface{}, len(columns))
	for i := 0; i < curve.Len(); i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		for j := range columns {
			args[j] = nullable(columns[j][i])
		}
		if _, err := insert.ExecContext(ctx, args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Load implements core.Loader.
func (d *Destination) Load(ctx context.Context, uri string) (*columnar.DataCurve, error) {
	loc, err := d.ParseLocation(uri)
	if err != nil {
		return nil, err
	}
	exists, err := d.Opener().Exists(ctx, loc.Path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.New(errors.ErrorTypeFile, "database does not exist").WithDetail("path", loc.Path)
	}
	db, err := d.open(ctx, loc.Path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var tag string
	err = db.QueryRowContext(ctx, "SELECT tag FROM curves WHERE name = ?", loc.Table).Scan(&tag)
	if err == sql.ErrNoRows {
		return nil, errors.Newf(errors.ErrorTypeFile, "no curve stored in table %q", loc.Table).
			WithDetail("path", loc.Path)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read catalog")
	}

	fields, err := d.loadColumns(ctx, db, loc.Table)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read columns").WithDetail("table", loc.Table)
	}
	params, err := d.loadParameters(ctx, db, loc.Table)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read parameters").WithDetail("table", loc.Table)
	}

	d.Logger().Debug("curve loaded",
		zap.String(string(logger.FileKey), loc.String()),
		zap.Int("columns", len(fields)))
	return columnar.New(append(fields, params...),
		columnar.WithTag(tag), columnar.WithChunkSize(d.Config().Ingest.ChunkSize))
}

func (d *Destination) loadColumns(ctx context.Context, db *sql.DB, table string) ([]columnar.Field, error) {
	rows, err := db.QueryContext(ctx, "SELECT name, unit FROM curve_columns WHERE curve = ? ORDER BY position", table)
	if err != nil {
		return nil, err
	}
	var names, units []string
	for rows.Next() {
		var name string
		var unit sql.NullString
		if err := rows.Scan(&name, &unit); err != nil {
			rows.Close()
			return nil, err
		}
		names = append(names, name)
		units = append(units, unit.String)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = quoteIdent(name)
	}
	data, err := db.QueryContext(ctx, "SELECT "+strings.Join(quoted, ", ")+" FROM "+quoteIdent(table)+" ORDER BY rowid")
	if err != nil {
		return nil, err
	}
	defer data.Close()

	columns := make([][]float64, len(names))
	cells := make([]sql.NullFloat64, len(names))
	dest := make([]interface{}, len(names))
	for i := range cells {
		dest[i] = &cells[i]
	}
	for data.Next() {
		if err := data.Scan(dest...); err != nil {
			return nil, err
		}
		for i, c := range cells {
			v := math.NaN()
			if c.Valid {
				v = c.Float64
			}
			columns[i] = append(columns[i], v)
		}
	}
	if err := data.Err(); err != nil {
		return nil, err
	}

	fields := make([]columnar.Field, len(names))
	for i := range names {
		fields[i] = columnar.ColumnField(names[i], units[i], columns[i])
	}
	return fields, nil
}

func (d *Destination) loadParameters(ctx context.Context, db *sql.DB, table string) ([]columnar.Field, error) {
	rows, err := db.QueryContext(ctx, "SELECT name, value, unit FROM curve_parameters WHERE curve = ? ORDER BY name", table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fields []columnar.Field
	for rows.Next() {
		var name string
		var value sql.NullFloat64
		var unit sql.NullString
		if err := rows.Scan(&name, &value, &unit); err != nil {
			return nil, err
		}
		v := math.NaN()
		if value.Valid {
			v = value.Float64
		}
		fields = append(fields, columnar.ParameterField(name, unit.String, v))
	}
	return fields, rows.Err()
}

// Tables lists the curves stored in the database at path.
func (d *Destination) Tables(ctx context.Context, path string) ([]string, error) {
	path, err := localPath(path)
	if err != nil {
		return nil, err
	}
	db, err := d.open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, "SELECT name FROM curves ORDER BY name")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read catalog")
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read catalog")
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read catalog")
	}
	return tables, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// nullable stores NaN as NULL; SQLite has no NaN.
func nullable(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

var (
	_ core.Destination = (*Destination)(nil)
	_ core.Loader      = (*Destination)(nil)
)
