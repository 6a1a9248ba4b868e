package validation

// FieldError is one failure, anchored to the field's id for the error summary link.
type FieldError struct {
	Href  string   `json:"href"`
	Text  string   `json:"text"`
	Field []string `json:"field"`
}

// Errors holds the page-level summary in declaration order and the inline message per field.
type Errors struct {
	Summary             []FieldError          `json:"summary"`
	MessagesByFormField map[string]FieldError `json:"messagesByFormField"`
}

func newFieldError(name, text string) FieldError {
	return FieldError{Href: "#" + name, Text: text, Field: []string{name}}
}

func (e *Errors) add(fe FieldError) {
	e.Summary = append(e.Summary, fe)
	if e.MessagesByFormField == nil {
		e.MessagesByFormField = make(map[string]FieldError)
	}
	for _, f := range fe.Field {
		e.MessagesByFormField[f] = fe
	}
}

func (e *Errors) Empty() bool {
	return e == nil || len(e.Summary) == 0
}

// Message returns the inline message for field, or "".
func (e *Errors) Message(field string) string {
	if e == nil {
		return ""
	}
	return e.MessagesByFormField[field].Text
}
