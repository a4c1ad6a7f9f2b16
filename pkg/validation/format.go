// Package validation provides common validation utilities.
package validation

import (
	"fmt"

	"github.com/iwvelando/debt-snowball/pkg/constants"
)

// ValidateOutputFormat checks if the output format is one of the supported formats.
func ValidateOutputFormat(format string) error {
	if format != constants.OutputFormatPretty && format != constants.OutputFormatCSV {
		return fmt.Errorf("expected output format of %s or %s, got %s",
			constants.OutputFormatPretty, constants.OutputFormatCSV, format)
	}
	return nil
}

// ValidateExportFormat checks if the coach export format is supported.
func ValidateExportFormat(format string) error {
	switch format {
	case constants.ExportFormatJSON, constants.ExportFormatYAML, constants.ExportFormatTOML:
		return nil
	}
	return fmt.Errorf("expected export format of %s, %s or %s, got %s",
		constants.ExportFormatJSON, constants.ExportFormatYAML, constants.ExportFormatTOML, format)
}
