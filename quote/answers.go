package quote

import (
	"github.com/jrsteele09/nrf-quote/validation"
)

// Answers are the validated values gathered across the wizard, keyed by field name.
type Answers map[string]any

// Merge returns a copy of the answers with values laid over them. Keys belonging to other
// steps are left alone.
func (a Answers) Merge(values validation.Values) Answers {
	merged := make(Answers, len(a)+len(values))
	for k, v := range a {
		merged[k] = v
	}
	for k, v := range values {
		merged[k] = v
	}
	return merged
}

// Flash is the one-shot record of a failed submission.
type Flash struct {
	StepID           string             `json:"stepId"`
	ValidationErrors *validation.Errors `json:"validationErrors"`
	FormSubmitData   map[string]any     `json:"formSubmitData"`
}

// FlashName is the session flash slot used by every step.
const FlashName = "quoteFlash"
