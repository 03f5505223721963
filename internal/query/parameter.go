package query

import (
	"strconv"
	"strings"
	"time"
)

// ValueSeparator separates the values of a multi-valued parameter in
// the REST binding, e.g. EQ_bizStep=shipping|receiving.
const ValueSeparator = "|"

// Parameter is a named, multi-valued query parameter. It is not mutated
// after construction.
type Parameter struct {
	Name   string
	Values []string
}

// NewParameter copies values into a new Parameter.
func NewParameter(name string, values ...string) Parameter {
	return Parameter{
		Name:   name,
		Values: append([]string(nil), values...),
	}
}

// ParseParameter splits a raw REST value on ValueSeparator.
func ParseParameter(name, raw string) Parameter {
	return NewParameter(name, strings.Split(raw, ValueSeparator)...)
}

func (p Parameter) single() (string, error) {
	if len(p.Values) != 1 {
		return "", invalid(p.Name, "expected a single value, got %d", len(p.Values))
	}
	return p.Values[0], nil
}

// AsString returns the single value.
func (p Parameter) AsString() (string, error) {
	return p.single()
}

// AsInt returns the single value as a base-10 int.
func (p Parameter) AsInt() (int, error) {
	s, err := p.single()
	if err != nil {
		return 0, err
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, invalid(p.Name, "not an integer: %q", s)
	}
	return i, nil
}

// AsFloat returns the single value as a float64.
func (p Parameter) AsFloat() (float64, error) {
	s, err := p.single()
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, invalid(p.Name, "not a number: %q", s)
	}
	return f, nil
}

// AsBool returns the single value, which must be "true" or "false".
func (p Parameter) AsBool() (bool, error) {
	s, err := p.single()
	if err != nil {
		return false, err
	}
	switch s {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, invalid(p.Name, "not a boolean: %q", s)
}

// AsDate returns the single value as a timestamp.
func (p Parameter) AsDate() (time.Time, error) {
	s, err := p.single()
	if err != nil {
		return time.Time{}, err
	}
	t, ok := ParseDate(s)
	if !ok {
		return time.Time{}, invalid(p.Name, "not a date: %q", s)
	}
	return t, nil
}

// IsDate reports whether the parameter holds a single date value.
func (p Parameter) IsDate() bool {
	if len(p.Values) != 1 {
		return false
	}
	_, ok := ParseDate(p.Values[0])
	return ok
}

// Floats converts every value to a float64.
func (p Parameter) Floats() ([]float64, error) {
	out := make([]float64, len(p.Values))
	for i, s := range p.Values {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, invalid(p.Name, "not a number: %q", s)
		}
		out[i] = f
	}
	return out, nil
}

// Ints converts every value to an int64.
func (p Parameter) Ints() ([]int64, error) {
	out := make([]int64, len(p.Values))
	for i, s := range p.Values {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, invalid(p.Name, "not an integer: %q", s)
		}
		out[i] = n
	}
	return out, nil
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// ParseDate parses a timestamp with offset. Timestamps without an offset
// and bare dates are read as UTC.
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
