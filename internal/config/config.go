// Package config defines the data structures related to configuration and
// includes functions for loading, defaulting and checking it.
package config

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/iwvelando/debt-snowball/pkg/constants"
	"github.com/iwvelando/debt-snowball/pkg/debt"
	"github.com/iwvelando/debt-snowball/pkg/payoff"
	"github.com/iwvelando/debt-snowball/pkg/validation"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

// EnvPrefix namespaces environment overrides, e.g. DEBT_SNOWBALL_PLAN_EXTRAPAYMENT.
const EnvPrefix = "DEBT_SNOWBALL"

// Configuration holds all configuration for debt-snowball.
type Configuration struct {
	Logging LoggingConfig `yaml:"logging,omitempty"`
	Output  OutputConfig  `yaml:"output,omitempty"`
	Plan    PlanConfig    `yaml:"plan,omitempty"`
	Debts   []DebtConfig  `yaml:"debts"`
	Storage StorageConfig `yaml:"storage,omitempty"`
	Cache   CacheConfig   `yaml:"cache,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format         string `yaml:"format,omitempty"` // pretty, csv
	CurrencySymbol string `yaml:"currencySymbol,omitempty"`
}

// PlanConfig holds the payoff simulation parameters.
type PlanConfig struct {
	ExtraPayment  float64  `yaml:"extraPayment,omitempty"`
	HorizonMonths int      `yaml:"horizonMonths,omitempty"`
	Cascade       string   `yaml:"cascade,omitempty"`    // none, next
	Strategies    []string `yaml:"strategies,omitempty"` // none, minimum, snowball
	// DefaultRatePercent is applied to debts without a rate. Nil selects
	// constants.DefaultAnnualRatePercent.
	DefaultRatePercent *float64 `yaml:"defaultRatePercent,omitempty"`
}

// StorageConfig selects where named debt sets are persisted.
type StorageConfig struct {
	Driver string `yaml:"driver,omitempty"` // sqlite, postgres; empty disables storage
	DSN    string `yaml:"dsn,omitempty"`
}

// CacheConfig selects the plan report cache.
type CacheConfig struct {
	Driver   string        `yaml:"driver,omitempty"` // memory, redis; empty disables caching
	Address  string        `yaml:"address,omitempty"`
	Password string        `yaml:"password,omitempty"`
	DB       int           `yaml:"db,omitempty"`
	TTL      time.Duration `yaml:"ttl,omitempty"`
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}
	return decode(v)
}

// LoadConfigurationFromReader loads a YAML-formatted configuration from r.
// Every call uses its own viper instance, so concurrent loads are safe.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper()
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config, %s", err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	return &configuration, nil
}

// DefaultRate returns the rate applied to debts that omit one.
func (c *Configuration) DefaultRate() float64 {
	if c.Plan.DefaultRatePercent != nil {
		return *c.Plan.DefaultRatePercent
	}
	return constants.DefaultAnnualRatePercent
}

// DebtRecords converts the configured debts into engine records, applying the
// default rate and deterministic IDs where they are missing.
func (c *Configuration) DebtRecords() []debt.Debt {
	records := make([]debt.Debt, len(c.Debts))
	for i, d := range c.Debts {
		records[i] = d.ToDebt(c.DefaultRate())
	}
	return debt.WithDefaultIDs(records)
}

// PayoffOptions returns the engine options described by the plan section.
func (c *Configuration) PayoffOptions() (payoff.Options, error) {
	cascade, err := payoff.ParseCascade(c.Plan.Cascade)
	if err != nil {
		return payoff.Options{}, err
	}
	return payoff.Options{
		ExtraPayment:  c.Plan.ExtraPayment,
		HorizonMonths: c.Plan.HorizonMonths,
		Cascade:       cascade,
	}, nil
}

// StrategyList returns the strategies to run. An empty list selects all of
// them; duplicates are dropped.
func (c *Configuration) StrategyList() ([]payoff.Strategy, error) {
	if len(c.Plan.Strategies) == 0 {
		return payoff.Strategies(), nil
	}
	seen := make(map[payoff.Strategy]bool, len(c.Plan.Strategies))
	var strategies []payoff.Strategy
	for _, name := range c.Plan.Strategies {
		s, err := payoff.ParseStrategy(name)
		if err != nil {
			return nil, err
		}
		if !seen[s] {
			seen[s] = true
			strategies = append(strategies, s)
		}
	}
	return strategies, nil
}

// CurrencySymbol returns the configured currency symbol or the default.
func (c *Configuration) CurrencySymbol() string {
	if c.Output.CurrencySymbol != "" {
		return c.Output.CurrencySymbol
	}
	return constants.DefaultCurrencySymbol
}

// Validate reports every fatal problem in the configuration. Debt problems are
// wrapped in *debt.ValidationError.
func (c *Configuration) Validate() error {
	var errs error
	if c.Output.Format != "" {
		errs = multierr.Append(errs, validation.ValidateOutputFormat(c.Output.Format))
	}
	if _, err := c.StrategyList(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("plan.strategies: %w", err))
	}
	if opts, err := c.PayoffOptions(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("plan.cascade: %w", err))
	} else if err := opts.Validate(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("plan: %w", err))
	}
	if c.Plan.DefaultRatePercent != nil && *c.Plan.DefaultRatePercent < 0 {
		errs = multierr.Append(errs, fmt.Errorf("plan.defaultRatePercent: %w", debt.ErrNegativeRate))
	}
	errs = multierr.Append(errs, debt.ValidateSet(c.DebtRecords()))
	return errs
}

// ValidateConfiguration performs general validation of the configuration and
// returns warnings about inputs that are legal but probably unintended.
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string
	if len(c.Debts) == 0 {
		warnings = append(warnings, "No debts configured")
	}
	for _, d := range c.Debts {
		if d.Rate == nil {
			warnings = append(warnings, fmt.Sprintf("Debt '%s' has no rate; assuming %.2f%%", d.Name, c.DefaultRate()))
		}
	}
	warnings = append(warnings, validation.ValidateDebts(c.DebtRecords())...)
	if w := validation.ValidateHorizon(c.Plan.HorizonMonths); w != "" {
		warnings = append(warnings, w)
	}
	return warnings
}
