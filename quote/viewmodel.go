package quote

import (
	"slices"
	"strings"

	"github.com/jrsteele09/nrf-quote/internal/utils"
	"github.com/jrsteele09/nrf-quote/validation"
)

type OptionView struct {
	Value   string
	Text    string
	Checked bool
}

type InputView struct {
	Name         string
	Label        string
	Hint         string
	Kind         InputKind
	InputMode    string
	Autocomplete string
	Width        string
	Value        string
	Choices      []OptionView
	Error        string
}

type AnswerRow struct {
	Question string
	Answer   string
	Change   string
}

// ViewModel is everything a wizard template needs to draw one step.
type ViewModel struct {
	PageTitle   string
	PageHeading string
	BackLink    string
	Body        []string
	Links       []Option
	Action      string
	Multipart   bool
	SubmitText  string
	Inputs      []InputView
	Errors      *validation.Errors
	Answers     []AnswerRow
}

// PageTitle joins the page title, the service name and the GOV.UK suffix, skipping blanks.
func PageTitle(title, serviceName string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{title, serviceName, "Gov.uk"} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " - ")
}

// BuildViewModel prepares a step for rendering. Values come from the flash when there is one,
// otherwise from the stored answers.
func BuildViewModel(step *Step, serviceName string, answers Answers, flash *Flash) ViewModel {
	vm := ViewModel{
		PageTitle:   PageTitle(step.Title, serviceName),
		PageHeading: step.Heading,
		BackLink:    step.BackLink,
		Body:        step.Body,
		Links:       step.Links,
		Action:      step.Path,
		SubmitText:  step.SubmitText,
	}
	if vm.SubmitText == "" {
		vm.SubmitText = "Continue"
	}

	source := map[string]any(answers)
	if flash != nil {
		source = flash.FormSubmitData
		vm.Errors = flash.ValidationErrors
	}
	for _, in := range step.Inputs {
		vm.Inputs = append(vm.Inputs, buildInputView(in, source[in.Name], vm.Errors))
		if in.Kind == InputFile {
			vm.Multipart = true
		}
	}
	if step.Template == TemplateSummary {
		vm.Answers = SummariseAnswers(Steps(serviceName), answers)
	}
	return vm
}

func buildInputView(in Input, value any, errs *validation.Errors) InputView {
	view := InputView{
		Name:         in.Name,
		Label:        in.Label,
		Hint:         in.Hint,
		Kind:         in.Kind,
		InputMode:    in.InputMode,
		Autocomplete: in.Autocomplete,
		Width:        in.Width,
		Error:        errs.Message(in.Name),
	}
	selected := utils.ToStringSlice(value)
	if len(in.Options) == 0 {
		if in.Kind != InputFile {
			view.Value = utils.ToString(value)
		}
		return view
	}
	for _, opt := range in.Options {
		view.Choices = append(view.Choices, OptionView{
			Value:   opt.Value,
			Text:    opt.Text,
			Checked: slices.Contains(selected, opt.Value),
		})
	}
	return view
}

// SummariseAnswers lists the stored answers in journey order, using option text where
// the question offered choices.
func SummariseAnswers(steps []*Step, answers Answers) []AnswerRow {
	var rows []AnswerRow
	for _, step := range steps {
		for _, in := range step.Inputs {
			value, ok := answers[in.Name]
			if !ok {
				continue
			}
			rows = append(rows, AnswerRow{
				Question: step.Heading,
				Answer:   displayAnswer(in, value),
				Change:   step.Path,
			})
		}
	}
	return rows
}

func displayAnswer(in Input, value any) string {
	values := utils.ToStringSlice(value)
	if len(in.Options) == 0 {
		return strings.Join(values, ", ")
	}
	texts := make([]string, 0, len(values))
	for _, v := range values {
		text := v
		for _, opt := range in.Options {
			if opt.Value == v {
				text = opt.Text
				break
			}
		}
		texts = append(texts, text)
	}
	return strings.Join(texts, ", ")
}
