// Package validation checks submitted form payloads against declarative per-step schemas
// and reports failures in a shape suited to accessible error summaries.
package validation

import (
	"net/url"
	"strings"
)

type Kind int

const (
	KindString Kind = iota
	KindEnum
	KindInteger
	KindEnumArray
	KindEmail
	KindFile
)

// Messages holds the text shown for each kind of failure. Empty entries fall back to Required.
type Messages struct {
	Required string
	Invalid  string
	// Whole is shown for decimal input to integer fields.
	Whole  string
	Min    string
	Max    string
	Length string
	Spaces string
}

type Field struct {
	Name     string
	Kind     Kind
	Optional bool
	// Options lists the allowed values of enum fields.
	Options []string
	// Min and Max bound integer fields. MaxLength bounds string and email fields.
	Min       int
	Max       int
	MaxLength int
	Messages  Messages
}

type Schema struct {
	Fields []Field
}

func NewSchema(fields ...Field) *Schema {
	return &Schema{Fields: fields}
}

// Names returns the field names in declaration order.
func (s *Schema) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		names = append(names, f.Name)
	}
	return names
}

// Payload is the raw submitted form, one or more values per field.
type Payload map[string][]string

func PayloadFromValues(v url.Values) Payload {
	p := make(Payload, len(v))
	for k, vals := range v {
		p[k] = append([]string(nil), vals...)
	}
	return p
}

func (p Payload) first(name string) string {
	if vals := p[name]; len(vals) > 0 {
		return vals[0]
	}
	return ""
}

func (p Payload) nonEmpty(name string) []string {
	var out []string
	for _, v := range p[name] {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

// Raw converts the payload to the shape kept in a flash: single values as strings,
// repeated values as lists.
func (p Payload) Raw() map[string]any {
	out := make(map[string]any, len(p))
	for k, vals := range p {
		switch len(vals) {
		case 0:
		case 1:
			out[k] = vals[0]
		default:
			out[k] = append([]string(nil), vals...)
		}
	}
	return out
}

// Values are the coerced field values of a valid payload.
type Values map[string]any

// Strings returns the value of an enum-array field, or a single-element slice for scalars.
func (v Values) Strings(name string) []string {
	switch t := v[name].(type) {
	case []string:
		return t
	case string:
		return []string{t}
	default:
		return nil
	}
}

func (v Values) String(name string) string {
	s, _ := v[name].(string)
	return s
}
