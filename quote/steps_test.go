package quote_test

import (
	"strings"
	"testing"

	"github.com/jrsteele09/nrf-quote/quote"
	"github.com/jrsteele09/nrf-quote/validation"
	"github.com/stretchr/testify/require"
)

func TestNextPath(t *testing.T) {
	tests := []struct {
		name   string
		step   *quote.Step
		values validation.Values
		want   string
	}{
		{"draw a map", quote.BoundaryTypeStep(), validation.Values{"boundaryEntryType": "draw"}, quote.PathNext},
		{"upload a file", quote.BoundaryTypeStep(), validation.Values{"boundaryEntryType": "upload"}, quote.PathUploadBoundary},
		{"uploaded boundary", quote.UploadBoundaryStep(), validation.Values{"file": "site.geojson"}, quote.PathDevelopmentTypes},
		{"housing", quote.DevelopmentTypesStep(), validation.Values{"developmentTypes": []string{"other-residential", "housing"}}, quote.PathResidential},
		{"no housing", quote.DevelopmentTypesStep(), validation.Values{"developmentTypes": []string{"other-residential"}}, quote.PathNext},
		{"residential", quote.ResidentialStep(), validation.Values{"residentialBuildingCount": 10}, quote.PathEmail},
		{"email", quote.EmailStep(), validation.Values{"email": "a@example.com"}, quote.PathNext},
		{"no navigation", &quote.Step{}, nil, quote.PathNext},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.step.NextPath(tc.values))
		})
	}
}

func validate(step *quote.Step, field, value string) (validation.Values, string) {
	values, errs := step.Schema.Validate(validation.Payload{field: {value}})
	if errs != nil {
		return nil, errs.Message(field)
	}
	return values, ""
}

func TestResidentialValidation(t *testing.T) {
	const (
		required = "Enter the number of residential units"
		positive = "Enter a whole number greater than zero"
		smaller  = "Enter a smaller whole number within the allowed range"
	)
	tests := []struct {
		in      string
		want    int
		wantErr string
	}{
		{in: "", wantErr: required},
		{in: "   ", wantErr: required},
		{in: "abc", wantErr: required},
		{in: "1e3", wantErr: required},
		{in: "+10", wantErr: required},
		{in: "1,000", wantErr: required},
		{in: "1.5", wantErr: positive},
		{in: "3.5", wantErr: positive},
		{in: "-3", wantErr: positive},
		{in: "0", wantErr: positive},
		{in: "1", want: 1},
		{in: "6", want: 6},
		{in: " 42 ", want: 42},
		{in: "999999", want: 999999},
		{in: "1000000", wantErr: smaller},
		{in: "99999999999999999999999", wantErr: smaller},
	}
	step := quote.ResidentialStep()
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			values, msg := validate(step, "residentialBuildingCount", tc.in)
			require.Equal(t, tc.wantErr, msg)
			if tc.wantErr == "" {
				require.Equal(t, tc.want, values["residentialBuildingCount"])
			}
		})
	}
}

func TestEmailValidation(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr string
	}{
		{"empty", "", "Enter an email address"},
		{"valid", "name@example.com", ""},
		{"surrounding whitespace", "  name@example.com  ", ""},
		{"inner space", "first last@example.com", "Email address must not contain spaces"},
		{"too long", strings.Repeat("a", 245) + "@example.com", "Email address must be 256 characters or less"},
		{"no at sign", "name.example.com", "Enter an email address in the correct format, like name@example.com"},
		{"no domain dot", "name@example", "Enter an email address in the correct format, like name@example.com"},
		{"dot-less top level domain", "test@domain", "Enter an email address in the correct format, like name@example.com"},
	}
	step := quote.EmailStep()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			values, msg := validate(step, "email", tc.in)
			require.Equal(t, tc.wantErr, msg)
			if tc.wantErr == "" {
				require.Equal(t, "name@example.com", values["email"])
			}
		})
	}
}

func TestRoutes(t *testing.T) {
	steps := quote.Steps("Nature Restoration Fund")
	routes := quote.AllRoutes(steps, nil)

	patterns := map[string]bool{}
	for _, r := range routes {
		patterns[r.Pattern()] = true
	}
	require.True(t, patterns["GET /{$}"])
	require.True(t, patterns["GET /quote/residential"])
	require.True(t, patterns["POST /quote/residential"])
	require.True(t, patterns["GET /quote/next"])
	require.False(t, patterns["POST /quote/next"])
	require.False(t, patterns["POST /{$}"])
}
