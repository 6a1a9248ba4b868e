// Package quote implements the levy quote wizard: its steps, how answers are kept between
// them, and the GET/POST handlers shared by every step.
package quote

import (
	"github.com/jrsteele09/nrf-quote/validation"
)

const (
	PathStart            = "/"
	PathBoundaryType     = "/quote/boundary-type"
	PathUploadBoundary   = "/quote/upload-boundary"
	PathDevelopmentTypes = "/quote/development-types"
	PathResidential      = "/quote/residential"
	PathEmail            = "/quote/email"
	PathNoEDP            = "/quote/no-edp"
	PathNext             = "/quote/next"
	PathUploadReceived   = "/upload-received"
)

// Template names rendered by the server.
const (
	TemplateQuestion = "quote/question.html"
	TemplateUpload   = "quote/upload.html"
	TemplateContent  = "quote/content.html"
	TemplateSummary  = "quote/summary.html"
)

type InputKind string

const (
	InputRadios     InputKind = "radios"
	InputCheckboxes InputKind = "checkboxes"
	InputText       InputKind = "text"
	InputEmail      InputKind = "email"
	InputFile       InputKind = "file"
)

type Option struct {
	Value string
	Text  string
}

// Input describes how one schema field is presented.
type Input struct {
	Name         string
	Label        string
	Hint         string
	Kind         InputKind
	Options      []Option
	InputMode    string
	Autocomplete string
	Width        string
}

// Step is one page of the wizard. Steps without a Schema only render.
type Step struct {
	ID       string
	Path     string
	Title    string
	Heading  string
	BackLink string
	Template string
	Body     []string
	// Links are call-to-action links shown below the body of content pages.
	Links  []Option
	Inputs []Input
	Schema *validation.Schema
	Next   func(validation.Values) string
	// StartsUpload makes the GET handler open an upload session and post the form to it.
	StartsUpload bool
	SubmitText   string
	// Public steps are served without signing in.
	Public bool
}

// NextPath applies the step's navigation function. It always returns a path.
func (s *Step) NextPath(values validation.Values) string {
	if s.Next == nil {
		return PathNext
	}
	if next := s.Next(values); next != "" {
		return next
	}
	return PathNext
}

func (s *Step) IsForm() bool {
	return s.Schema != nil
}

// Steps returns the wizard pages in journey order.
func Steps(serviceName string) []*Step {
	return []*Step{
		StartStep(serviceName),
		BoundaryTypeStep(),
		UploadBoundaryStep(),
		DevelopmentTypesStep(),
		ResidentialStep(),
		EmailStep(),
		NoEDPStep(),
		NextStep(),
		UploadReceivedStep(),
	}
}

func StartStep(serviceName string) *Step {
	return &Step{
		ID:       "start",
		Path:     PathStart,
		Heading:  serviceName,
		Template: TemplateContent,
		Body: []string{
			"Use this service to find out if your development can use the Nature Restoration Fund and to get a quote for the levy.",
		},
		Links:  []Option{{Value: PathBoundaryType, Text: "Start now"}},
		Public: true,
	}
}

func BoundaryTypeStep() *Step {
	const (
		title   = "Choose how you would like to show us the boundary of your development"
		message = "Select if you would like to draw a map or upload a file"
	)
	return &Step{
		ID:       "boundary-type",
		Path:     PathBoundaryType,
		Title:    title,
		Heading:  title,
		BackLink: PathStart,
		Template: TemplateQuestion,
		Inputs: []Input{{
			Name: "boundaryEntryType",
			Kind: InputRadios,
			Options: []Option{
				{Value: "draw", Text: "Draw the boundary on a map"},
				{Value: "upload", Text: "Upload a file"},
			},
		}},
		Schema: validation.NewSchema(validation.Field{
			Name:     "boundaryEntryType",
			Kind:     validation.KindEnum,
			Options:  []string{"draw", "upload"},
			Messages: validation.Messages{Required: message, Invalid: message},
		}),
		Next: nextFromBoundaryType,
	}
}

func UploadBoundaryStep() *Step {
	const title = "Upload a red line boundary file"
	return &Step{
		ID:       "upload-boundary",
		Path:     PathUploadBoundary,
		Title:    title,
		Heading:  title,
		BackLink: PathBoundaryType,
		Template: TemplateUpload,
		Inputs: []Input{{
			Name: "file",
			Kind: InputFile,
			Hint: "The file must be a GeoJSON, KML or zipped shapefile",
		}},
		Schema: validation.NewSchema(validation.Field{
			Name:     "file",
			Kind:     validation.KindFile,
			Messages: validation.Messages{Required: "Select a file"},
		}),
		Next:         func(validation.Values) string { return PathDevelopmentTypes },
		StartsUpload: true,
		SubmitText:   "Upload file",
	}
}

func DevelopmentTypesStep() *Step {
	const (
		title   = "What type of development is it?"
		message = "Select a development type to continue"
	)
	return &Step{
		ID:       "development-types",
		Path:     PathDevelopmentTypes,
		Title:    title,
		Heading:  title,
		BackLink: PathBoundaryType,
		Template: TemplateQuestion,
		Inputs: []Input{{
			Name: "developmentTypes",
			Kind: InputCheckboxes,
			Hint: "Select all that apply",
			Options: []Option{
				{Value: "housing", Text: "Housing"},
				{Value: "other-residential", Text: "Other residential"},
			},
		}},
		Schema: validation.NewSchema(validation.Field{
			Name:     "developmentTypes",
			Kind:     validation.KindEnumArray,
			Options:  []string{"housing", "other-residential"},
			Messages: validation.Messages{Required: message, Invalid: message},
		}),
		Next: nextFromDevelopmentTypes,
	}
}

func ResidentialStep() *Step {
	const title = "How many residential units in this development?"
	return &Step{
		ID:       "residential",
		Path:     PathResidential,
		Title:    title,
		Heading:  title,
		BackLink: PathDevelopmentTypes,
		Template: TemplateQuestion,
		Inputs: []Input{{
			Name:      "residentialBuildingCount",
			Kind:      InputText,
			InputMode: "numeric",
			Width:     "5",
		}},
		Schema: validation.NewSchema(validation.Field{
			Name: "residentialBuildingCount",
			Kind: validation.KindInteger,
			Min:  1,
			Max:  999999,
			Messages: validation.Messages{
				Required: "Enter the number of residential units",
				Invalid:  "Enter the number of residential units",
				Whole:    "Enter a whole number greater than zero",
				Min:      "Enter a whole number greater than zero",
				Max:      "Enter a smaller whole number within the allowed range",
			},
		}),
		Next: func(validation.Values) string { return PathEmail },
	}
}

func EmailStep() *Step {
	const title = "Enter your email address"
	return &Step{
		ID:       "email",
		Path:     PathEmail,
		Title:    title,
		Heading:  title,
		BackLink: PathResidential,
		Template: TemplateQuestion,
		Inputs: []Input{{
			Name:         "email",
			Kind:         InputEmail,
			Hint:         "We will send your quote to this address",
			Autocomplete: "email",
		}},
		Schema: validation.NewSchema(validation.Field{
			Name:      "email",
			Kind:      validation.KindEmail,
			MaxLength: 256,
			Messages: validation.Messages{
				Required: "Enter an email address",
				Invalid:  "Enter an email address in the correct format, like name@example.com",
				Length:   "Email address must be 256 characters or less",
				Spaces:   "Email address must not contain spaces",
			},
		}),
		Next: func(validation.Values) string { return PathNext },
	}
}

func NoEDPStep() *Step {
	const title = "Nature Restoration Fund levy is not available in this area"
	return &Step{
		ID:       "no-edp",
		Path:     PathNoEDP,
		Title:    title,
		Heading:  title,
		BackLink: PathBoundaryType,
		Template: TemplateContent,
		Body: []string{
			"There is no environmental delivery plan covering the boundary of your development.",
		},
	}
}

func NextStep() *Step {
	const title = "Your answers so far"
	return &Step{
		ID:       "next",
		Path:     PathNext,
		Title:    title,
		Heading:  title,
		BackLink: PathBoundaryType,
		Template: TemplateSummary,
	}
}

func UploadReceivedStep() *Step {
	const title = "File uploaded successfully"
	return &Step{
		ID:       "upload-received",
		Path:     PathUploadReceived,
		Title:    title,
		Heading:  title,
		Template: TemplateContent,
		Body: []string{
			"Your file is being checked for viruses. You can continue while this happens.",
		},
		Links: []Option{{Value: PathDevelopmentTypes, Text: "Continue"}},
	}
}
