package quote

import (
	"slices"

	"github.com/jrsteele09/nrf-quote/validation"
)

func nextFromBoundaryType(values validation.Values) string {
	if values.String("boundaryEntryType") == "upload" {
		return PathUploadBoundary
	}
	return PathNext
}

func nextFromDevelopmentTypes(values validation.Values) string {
	if slices.Contains(values.Strings("developmentTypes"), "housing") {
		return PathResidential
	}
	return PathNext
}
