package validation

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

var (
	integerPattern  = regexp.MustCompile(`^-?[0-9]+$`)
	fractionPattern = regexp.MustCompile(`^-?([0-9]+\.[0-9]*|\.[0-9]+)$`)
	emailPattern    = regexp.MustCompile(`^[A-Za-z0-9!#$%&'*+/=?^_` + "`" + `{|}~-]+(?:\.[A-Za-z0-9!#$%&'*+/=?^_` + "`" + `{|}~-]+)*@(?:[A-Za-z0-9](?:[A-Za-z0-9-]*[A-Za-z0-9])?\.)+[A-Za-z]{2,}$`)
)

// Validate checks p against the schema. On success it returns the coerced values and nil
// errors; otherwise the errors hold one entry per failing field.
func (s *Schema) Validate(p Payload) (Values, *Errors) {
	values := make(Values)
	errs := &Errors{}
	for _, f := range s.Fields {
		value, msg, ok := f.validate(p)
		if !ok {
			errs.add(newFieldError(f.Name, msg))
			continue
		}
		if value != nil {
			values[f.Name] = value
		}
	}
	if !errs.Empty() {
		return nil, errs
	}
	return values, nil
}

func (f Field) message(m string) string {
	if m != "" {
		return m
	}
	return f.Messages.Required
}

// validate returns the coerced value, or the failure message and false.
func (f Field) validate(p Payload) (any, string, bool) {
	switch f.Kind {
	case KindEnumArray:
		return f.validateEnumArray(p.nonEmpty(f.Name))
	case KindFile:
		return f.validateFile(p.nonEmpty(f.Name))
	}

	raw := p.first(f.Name)
	if strings.TrimSpace(raw) == "" {
		if f.Optional {
			return nil, "", true
		}
		return nil, f.Messages.Required, false
	}

	switch f.Kind {
	case KindEnum:
		if !slices.Contains(f.Options, raw) {
			return nil, f.message(f.Messages.Invalid), false
		}
		return raw, "", true
	case KindInteger:
		return f.validateInteger(strings.TrimSpace(raw))
	case KindEmail:
		return f.validateEmail(strings.TrimSpace(raw))
	default:
		value := strings.TrimSpace(raw)
		if f.MaxLength > 0 && len(value) > f.MaxLength {
			return nil, f.message(f.Messages.Length), false
		}
		return value, "", true
	}
}

func (f Field) validateInteger(value string) (any, string, bool) {
	if fractionPattern.MatchString(value) {
		return nil, f.message(f.Messages.Whole), false
	}
	if !integerPattern.MatchString(value) {
		return nil, f.message(f.Messages.Invalid), false
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		// Only a signed digit string reaches here, so the value overflowed.
		if strings.HasPrefix(value, "-") {
			return nil, f.message(f.Messages.Min), false
		}
		return nil, f.message(f.Messages.Max), false
	}
	if n < f.Min {
		return nil, f.message(f.Messages.Min), false
	}
	if f.Max > 0 && n > f.Max {
		return nil, f.message(f.Messages.Max), false
	}
	return n, "", true
}

func (f Field) validateEmail(value string) (any, string, bool) {
	if strings.IndexFunc(value, unicode.IsSpace) >= 0 {
		return nil, f.message(f.Messages.Spaces), false
	}
	if f.MaxLength > 0 && len(value) > f.MaxLength {
		return nil, f.message(f.Messages.Length), false
	}
	if !emailPattern.MatchString(value) {
		return nil, f.message(f.Messages.Invalid), false
	}
	return value, "", true
}

func (f Field) validateEnumArray(values []string) (any, string, bool) {
	if len(values) == 0 {
		if f.Optional {
			return nil, "", true
		}
		return nil, f.Messages.Required, false
	}
	for _, v := range values {
		if !slices.Contains(f.Options, v) {
			return nil, f.message(f.Messages.Invalid), false
		}
	}
	return values, "", true
}

func (f Field) validateFile(values []string) (any, string, bool) {
	if len(values) == 0 {
		if f.Optional {
			return nil, "", true
		}
		return nil, f.Messages.Required, false
	}
	return values[0], "", true
}
