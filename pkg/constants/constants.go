// Package constants provides shared constants for the debt-snowball application.
package constants

// DateLayout is the ISO calendar date format used for generated and payoff dates.
const DateLayout = "2006-01-02"

// Financial constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12
	// DecimalPrecision is the precision for currency rounding (2 decimal places)
	DecimalPrecision = 100
	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0
	// CurrencyTolerance is the tolerance for currency comparisons (1 cent)
	CurrencyTolerance = 0.01
	// DefaultAnnualRatePercent is applied to debts that do not state a rate.
	DefaultAnnualRatePercent = 20.0
	// DefaultHorizonMonths caps every simulation at 50 years.
	DefaultHorizonMonths = 600
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"
	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"
)

// Export format constants
const (
	ExportFormatJSON = "json"
	ExportFormatYAML = "yaml"
	ExportFormatTOML = "toml"
)

// DefaultCurrencySymbol prefixes amounts in human-readable output.
const DefaultCurrencySymbol = "£"

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"
	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"
	// DefaultMaxUploadSizeBytes is the default maximum upload size for YAML configs (256 KB)
	DefaultMaxUploadSizeBytes int64 = 256 * 1024
)
