// Package units provides the physical-unit context used when values carrying
// units are appended to a data curve or when file columns are converted.
//
// A Context is an explicit registry of linear units (scale plus offset onto
// a per-dimension reference unit) with SI prefix expansion. There is no
// package-level registry; callers create a Context and pass it where needed.
package units

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/oneminimax/AsciiDataFile/pkg/errors"
)

// Dimensionless is the dimension shared by bare numbers, arbitrary units and
// ratios such as percent.
const Dimensionless = ""

// ArbitraryUnit is the label given to columns whose unit is not known.
const ArbitraryUnit = "a.u."

// Unit is a linear unit: a magnitude m expressed in this unit equals
// m*Scale + Offset in the reference unit of its dimension.
type Unit struct {
	Symbol     string
	Dimension  string
	Scale      float64
	Offset     float64
	Prefixable bool
}

// Quantity is a magnitude tagged with a unit that can be converted.
type Quantity interface {
	Magnitude() float64
	Unit() string
	To(unit string) (Quantity, error)
}

type prefix struct {
	symbol string
	factor float64
}

// Longest symbols first so that lookups are unambiguous.
var siPrefixes = []prefix{
	{"Y", 1e24}, {"Z", 1e21}, {"E", 1e18}, {"P", 1e15}, {"T", 1e12},
	{"G", 1e9}, {"M", 1e6}, {"k", 1e3}, {"m", 1e-3}, {"u", 1e-6},
	{"µ", 1e-6}, {"μ", 1e-6}, {"n", 1e-9}, {"p", 1e-12}, {"f", 1e-15},
	{"a", 1e-18},
}

// Context holds unit definitions and aliases. It is safe for concurrent use.
type Context struct {
	mu      sync.RWMutex
	units   map[string]Unit
	aliases map[string]string
}

// NewContext returns a context populated with the units found in
// instrument data files: time, temperature, magnetic field and moment,
// electrical quantities, angle, frequency, length, pressure, power and mass.
func NewContext() *Context {
	c := &Context{
		units:   make(map[string]Unit),
		aliases: make(map[string]string),
	}
	for _, u := range builtinUnits {
		c.units[u.Symbol] = u
	}
	for alias, symbol := range builtinAliases {
		c.aliases[alias] = symbol
	}
	return c
}

var builtinUnits = []Unit{
	{Symbol: "1", Dimension: Dimensionless, Scale: 1},
	{Symbol: ArbitraryUnit, Dimension: Dimensionless, Scale: 1},
	{Symbol: "%", Dimension: Dimensionless, Scale: 1e-2},
	{Symbol: "ppm", Dimension: Dimensionless, Scale: 1e-6},

	{Symbol: "s", Dimension: "time", Scale: 1, Prefixable: true},
	{Symbol: "min", Dimension: "time", Scale: 60},
	{Symbol: "h", Dimension: "time", Scale: 3600},

	{Symbol: "K", Dimension: "temperature", Scale: 1, Prefixable: true},
	{Symbol: "degC", Dimension: "temperature", Scale: 1, Offset: 273.15},
	{Symbol: "degF", Dimension: "temperature", Scale: 5.0 / 9.0, Offset: 273.15 - 32*5.0/9.0},

	// Oersted and gauss are treated as field units interchangeable with
	// tesla through B = mu0*H, the magnetometry convention.
	{Symbol: "T", Dimension: "magnetic_field", Scale: 1, Prefixable: true},
	{Symbol: "Oe", Dimension: "magnetic_field", Scale: 1e-4, Prefixable: true},
	{Symbol: "G", Dimension: "magnetic_field", Scale: 1e-4, Prefixable: true},

	{Symbol: "emu", Dimension: "magnetic_moment", Scale: 1e-3, Prefixable: true},
	{Symbol: "Am2", Dimension: "magnetic_moment", Scale: 1},

	{Symbol: "A", Dimension: "current", Scale: 1, Prefixable: true},
	{Symbol: "V", Dimension: "voltage", Scale: 1, Prefixable: true},
	{Symbol: "ohm", Dimension: "resistance", Scale: 1, Prefixable: true},

	{Symbol: "rad", Dimension: "angle", Scale: 1, Prefixable: true},
	{Symbol: "deg", Dimension: "angle", Scale: math.Pi / 180},

	{Symbol: "Hz", Dimension: "frequency", Scale: 1, Prefixable: true},
	{Symbol: "m", Dimension: "length", Scale: 1, Prefixable: true},

	{Symbol: "Pa", Dimension: "pressure", Scale: 1, Prefixable: true},
	{Symbol: "bar", Dimension: "pressure", Scale: 1e5, Prefixable: true},
	{Symbol: "torr", Dimension: "pressure", Scale: 101325.0 / 760},

	{Symbol: "W", Dimension: "power", Scale: 1, Prefixable: true},
	{Symbol: "g", Dimension: "mass", Scale: 1e-3, Prefixable: true},
}

var builtinAliases = map[string]string{
	"":        "1",
	"u.a.":    ArbitraryUnit,
	"None":    "1",
	"sec":     "s",
	"°C":      "degC",
	"°F":      "degF",
	"Ohm":     "ohm",
	"Ω":       "ohm",
	"°":       "deg",
	"A m^2":   "Am2",
	"A*m^2":   "Am2",
	"Torr":    "torr",
	"percent": "%",
}

// Define registers a new unit. Redefining an existing symbol is an error.
func (c *Context) Define(u Unit) error {
	if u.Symbol == "" {
		return errors.New(errors.ErrorTypeUnit, "unit symbol is required")
	}
	if u.Scale == 0 || math.IsNaN(u.Scale) || math.IsInf(u.Scale, 0) {
		return errors.New(errors.ErrorTypeUnit, "unit scale must be finite and non-zero").
			WithDetail("unit", u.Symbol)
	}
	if u.Offset != 0 && u.Prefixable {
		return errors.New(errors.ErrorTypeUnit, "units with an offset cannot take SI prefixes").
			WithDetail("unit", u.Symbol)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.units[u.Symbol]; exists {
		return errors.New(errors.ErrorTypeUnit, "unit already defined").WithDetail("unit", u.Symbol)
	}
	if _, exists := c.aliases[u.Symbol]; exists {
		return errors.New(errors.ErrorTypeUnit, "unit symbol is already an alias").WithDetail("unit", u.Symbol)
	}
	c.units[u.Symbol] = u
	return nil
}

// Alias makes alias resolve to an already defined unit.
func (c *Context) Alias(alias, symbol string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.units[symbol]; !ok {
		return errors.New(errors.ErrorTypeUnit, "alias target is not defined").
			WithDetail("alias", alias).
			WithDetail("unit", symbol)
	}
	if _, exists := c.units[alias]; exists {
		return errors.New(errors.ErrorTypeUnit, "alias shadows a defined unit").WithDetail("alias", alias)
	}
	c.aliases[alias] = symbol
	return nil
}

// Lookup resolves a unit symbol, following aliases and SI prefixes.
// The returned Unit keeps the symbol as written by the caller.
func (c *Context) Lookup(symbol string) (Unit, error) {
	symbol = strings.TrimSpace(symbol)

	c.mu.RLock()
	defer c.mu.RUnlock()

	if u, ok := c.resolve(symbol); ok {
		u.Symbol = symbol
		return u, nil
	}

	for _, p := range siPrefixes {
		if !strings.HasPrefix(symbol, p.symbol) || len(symbol) == len(p.symbol) {
			continue
		}
		base, ok := c.resolve(symbol[len(p.symbol):])
		if !ok || !base.Prefixable {
			continue
		}
		return Unit{
			Symbol:    symbol,
			Dimension: base.Dimension,
			Scale:     base.Scale * p.factor,
		}, nil
	}

	return Unit{}, errors.New(errors.ErrorTypeUnit, "unknown unit").WithDetail("unit", symbol)
}

func (c *Context) resolve(symbol string) (Unit, bool) {
	if target, ok := c.aliases[symbol]; ok {
		symbol = target
	}
	u, ok := c.units[symbol]
	return u, ok
}

// Symbols returns the defined unit symbols in sorted order, without
// aliases or prefixed forms.
func (c *Context) Symbols() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.units))
	for s := range c.units {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Compatible reports whether values in unit a can be converted to unit b.
func (c *Context) Compatible(a, b string) bool {
	ua, err := c.Lookup(a)
	if err != nil {
		return false
	}
	ub, err := c.Lookup(b)
	if err != nil {
		return false
	}
	return ua.Dimension == ub.Dimension
}

// Convert expresses v, given in unit from, in unit to.
func (c *Context) Convert(v float64, from, to string) (float64, error) {
	q, err := c.Quantity(v, from)
	if err != nil {
		return 0, err
	}
	out, err := q.To(to)
	if err != nil {
		return 0, err
	}
	return out.Magnitude(), nil
}

// Quantity builds a value of magnitude m in the given unit.
func (c *Context) Quantity(m float64, unit string) (Value, error) {
	u, err := c.Lookup(unit)
	if err != nil {
		return Value{}, err
	}
	return Value{magnitude: m, unit: u, ctx: c}, nil
}

// Parse reads a quantity such as "1.5 kOe", "300K" or "2".
func (c *Context) Parse(s string) (Value, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Value{}, errors.New(errors.ErrorTypeUnit, "empty quantity")
	}

	if i := strings.IndexFunc(s, unicode.IsSpace); i > 0 {
		if m, err := strconv.ParseFloat(s[:i], 64); err == nil {
			return c.Quantity(m, strings.TrimSpace(s[i:]))
		}
	}

	// No separator: take the longest numeric prefix.
	for i := len(s); i > 0; i-- {
		m, err := strconv.ParseFloat(s[:i], 64)
		if err != nil {
			continue
		}
		return c.Quantity(m, s[i:])
	}
	return Value{}, errors.New(errors.ErrorTypeUnit, "quantity has no numeric magnitude").
		WithDetail("input", s)
}

// Value is a magnitude bound to a unit of a Context.
type Value struct {
	magnitude float64
	unit      Unit
	ctx       *Context
}

// Magnitude returns the numeric part of the value.
func (v Value) Magnitude() float64 { return v.magnitude }

// Unit returns the unit symbol as it was given.
func (v Value) Unit() string { return v.unit.Symbol }

// Dimension returns the dimension of the value's unit.
func (v Value) Dimension() string { return v.unit.Dimension }

// To converts the value to another unit of the same dimension.
func (v Value) To(unit string) (Quantity, error) {
	if v.ctx == nil {
		return nil, errors.New(errors.ErrorTypeUnit, "value is not bound to a unit context")
	}
	target, err := v.ctx.Lookup(unit)
	if err != nil {
		return nil, err
	}
	if target.Dimension != v.unit.Dimension {
		return nil, errors.New(errors.ErrorTypeUnit, "incompatible units").
			WithDetail("from", v.unit.Symbol).
			WithDetail("to", target.Symbol)
	}
	base := v.magnitude*v.unit.Scale + v.unit.Offset
	return Value{
		magnitude: (base - target.Offset) / target.Scale,
		unit:      target,
		ctx:       v.ctx,
	}, nil
}

// String formats the value as "magnitude unit".
func (v Value) String() string {
	m := strconv.FormatFloat(v.magnitude, 'g', -1, 64)
	if v.unit.Symbol == "" {
		return m
	}
	return m + " " + v.unit.Symbol
}
