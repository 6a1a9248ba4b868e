package validation_test

import (
	"net/url"
	"testing"

	"github.com/jrsteele09/nrf-quote/validation"
	"github.com/stretchr/testify/require"
)

func schema() *validation.Schema {
	return validation.NewSchema(
		validation.Field{
			Name:     "kind",
			Kind:     validation.KindEnum,
			Options:  []string{"draw", "upload"},
			Messages: validation.Messages{Required: "Choose one"},
		},
		validation.Field{
			Name:     "types",
			Kind:     validation.KindEnumArray,
			Options:  []string{"housing", "other-residential"},
			Messages: validation.Messages{Required: "Pick a type", Invalid: "Unknown type"},
		},
		validation.Field{
			Name: "count",
			Kind: validation.KindInteger,
			Min:  1,
			Max:  10,
			Messages: validation.Messages{
				Required: "Enter a count",
				Invalid:  "Whole numbers only",
				Whole:    "No decimals",
				Min:      "Too small",
				Max:      "Too large",
			},
		},
		validation.Field{
			Name:      "note",
			Kind:      validation.KindString,
			Optional:  true,
			MaxLength: 5,
			Messages:  validation.Messages{Length: "Too long"},
		},
		validation.Field{
			Name:     "file",
			Kind:     validation.KindFile,
			Optional: true,
			Messages: validation.Messages{Required: "Select a file"},
		},
	)
}

func TestValidateSuccess(t *testing.T) {
	values, errs := schema().Validate(validation.Payload{
		"kind":  {"draw"},
		"types": {"housing", "other-residential"},
		"count": {" 7 "},
		"file":  {"boundary.geojson"},
	})
	require.Nil(t, errs)
	require.Equal(t, "draw", values.String("kind"))
	require.Equal(t, []string{"housing", "other-residential"}, values.Strings("types"))
	require.Equal(t, 7, values["count"])
	require.Equal(t, "boundary.geojson", values["file"])
	require.NotContains(t, values, "note")
}

func TestValidateSingleValueArray(t *testing.T) {
	values, errs := schema().Validate(validation.Payload{"kind": {"upload"}, "types": {"housing"}, "count": {"1"}})
	require.Nil(t, errs)
	require.Equal(t, []string{"housing"}, values.Strings("types"))
}

func TestValidateErrors(t *testing.T) {
	_, errs := schema().Validate(validation.Payload{
		"kind":  {"paint"},
		"types": {"housing", "castle"},
		"count": {"1e3"},
		"note":  {"far too long"},
	})
	require.NotNil(t, errs)

	t.Run("summary follows declaration order", func(t *testing.T) {
		require.Equal(t, []validation.FieldError{
			{Href: "#kind", Text: "Choose one", Field: []string{"kind"}},
			{Href: "#types", Text: "Unknown type", Field: []string{"types"}},
			{Href: "#count", Text: "Whole numbers only", Field: []string{"count"}},
			{Href: "#note", Text: "Too long", Field: []string{"note"}},
		}, errs.Summary)
	})

	t.Run("messages by field", func(t *testing.T) {
		require.Equal(t, "Whole numbers only", errs.Message("count"))
		require.Equal(t, "#types", errs.MessagesByFormField["types"].Href)
		require.Empty(t, errs.Message("file"))
	})
}

func TestValidateMissing(t *testing.T) {
	_, errs := schema().Validate(validation.Payload{"types": {"", " "}})
	require.Len(t, errs.Summary, 3)
	require.Equal(t, "Choose one", errs.Message("kind"))
	require.Equal(t, "Pick a type", errs.Message("types"))
	require.Equal(t, "Enter a count", errs.Message("count"))
}

func TestIntegerBounds(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"0", "Too small"},
		{"11", "Too large"},
		{"99999999999999999999999", "Too large"},
		{"-1", "Too small"},
		{"-99999999999999999999999", "Too small"},
		{"+1", "Whole numbers only"},
		{"1.0", "No decimals"},
		{".5", "No decimals"},
		{"1e3", "Whole numbers only"},
		{"1,0", "Whole numbers only"},
		{"5 units", "Whole numbers only"},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			_, errs := schema().Validate(validation.Payload{"kind": {"draw"}, "types": {"housing"}, "count": {tc.input}})
			require.Equal(t, tc.want, errs.Message("count"))
		})
	}
}

func TestPayload(t *testing.T) {
	p := validation.PayloadFromValues(url.Values{"a": {"1"}, "b": {"x", "y"}, "c": {}})
	require.Equal(t, map[string]any{"a": "1", "b": []string{"x", "y"}}, p.Raw())
	require.Equal(t, []string{"kind", "types", "count", "note", "file"}, schema().Names())
}
