package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/ledgercore/internal/id"
	"github.com/cleared-dev/ledgercore/internal/money"
)

// FileName is the config file at the root of a ledger repo.
const FileName = "ledger.yaml"

// Environment overrides, applied after the YAML file.
const (
	EnvStoreDriver   = "LEDGER_STORE_DRIVER"
	EnvStorePath     = "LEDGER_STORE_PATH"
	EnvPostingPrefix = "LEDGER_POSTING_PREFIX"
	EnvDebug         = "LEDGER_DEBUG"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverBolt   = "bolt"
	DriverSQLite = "sqlite"
)

// Config represents the top-level ledger.yaml configuration.
type Config struct {
	Business  BusinessConfig  `yaml:"business"`
	Fiscal    FiscalConfig    `yaml:"fiscal"`
	Posting   PostingConfig   `yaml:"posting"`
	Money     MoneyConfig     `yaml:"money"`
	Statement StatementConfig `yaml:"statement"`
	Tax       TaxConfig       `yaml:"tax"`
	Store     StoreConfig     `yaml:"store"`

	// Debug is only ever set from the environment or the command line.
	Debug bool `yaml:"-"`
}

// BusinessConfig identifies the business entity.
type BusinessConfig struct {
	Name       string `yaml:"name"`
	EntityType string `yaml:"entity_type"`
}

// FiscalConfig defines the fiscal year boundaries.
type FiscalConfig struct {
	YearStart string `yaml:"year_start"` // "MM-DD" format, e.g. "01-01"
}

// PostingConfig controls posting numbers and store deadlines.
type PostingConfig struct {
	Prefix  string        `yaml:"prefix"`
	Timeout time.Duration `yaml:"timeout"`
}

// MoneyConfig controls amount parsing.
type MoneyConfig struct {
	Ceiling          string `yaml:"ceiling"`
	DecimalSeparator string `yaml:"decimal_separator"` // auto, comma or dot
	Locale           string `yaml:"locale,omitempty"`  // display only
}

// StatementConfig tunes the pasted-statement parser.
type StatementConfig struct {
	DepositKeywords []string `yaml:"deposit_keywords,omitempty"`
	Workers         int      `yaml:"workers"`
}

// TaxConfig holds the VAT defaults offered when toggling tax on a line.
type TaxConfig struct {
	DefaultRate      string `yaml:"default_rate"`
	VATInputAccount  int    `yaml:"vat_input_account"`
	VATOutputAccount int    `yaml:"vat_output_account"`
}

// StoreConfig selects the backing store.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"` // relative paths resolve against the repo root
}

// Load reads a ledger.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default("", "")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new ledger.
func Default(businessName, entityType string) *Config {
	return &Config{
		Business: BusinessConfig{
			Name:       businessName,
			EntityType: entityType,
		},
		Fiscal: FiscalConfig{
			YearStart: "01-01",
		},
		Posting: PostingConfig{
			Prefix:  "JE",
			Timeout: 5 * time.Second,
		},
		Money: MoneyConfig{
			Ceiling:          "1000000000.00",
			DecimalSeparator: "auto",
			Locale:           "en",
		},
		Statement: StatementConfig{
			Workers: 4,
		},
		Tax: TaxConfig{
			DefaultRate:      "0.15",
			VATInputAccount:  1131,
			VATOutputAccount: 2121,
		},
		Store: StoreConfig{
			Driver: DriverBolt,
			Path:   "data/ledger.db",
		},
	}
}

// ApplyEnv loads envPath (or ./.env when empty and present) and applies
// LEDGER_* overrides on top of cfg.
func ApplyEnv(cfg *Config, envPath string) error {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			return fmt.Errorf("loading env file: %w", err)
		}
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv(EnvStoreDriver); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv(EnvStorePath); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv(EnvPostingPrefix); v != "" {
		cfg.Posting.Prefix = v
	}
	if v := os.Getenv(EnvDebug); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvDebug, v, err)
		}
		cfg.Debug = debug
	}
	return nil
}

var yearStartRe = regexp.MustCompile(`^(0[1-9]|1[0-2])-(0[1-9]|[12][0-9]|3[01])$`)

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error
	if !yearStartRe.MatchString(c.Fiscal.YearStart) {
		errs = append(errs, fmt.Errorf("fiscal.year_start %q: want MM-DD", c.Fiscal.YearStart))
	}
	if err := id.ValidatePrefix(c.Posting.Prefix); err != nil {
		errs = append(errs, fmt.Errorf("posting.prefix: %w", err))
	}
	if c.Posting.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("posting.timeout must be positive"))
	}
	if _, err := c.MoneyOptions(); err != nil {
		errs = append(errs, err)
	}
	if c.Statement.Workers < 0 {
		errs = append(errs, fmt.Errorf("statement.workers must not be negative"))
	}
	if _, err := c.TaxRate(); err != nil {
		errs = append(errs, err)
	}
	switch c.Store.Driver {
	case DriverMemory:
	case DriverBolt, DriverSQLite:
		if c.Store.Path == "" {
			errs = append(errs, fmt.Errorf("store.path is required for driver %q", c.Store.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver %q: want memory, bolt or sqlite", c.Store.Driver))
	}
	return errors.Join(errs...)
}

// MoneyOptions converts the money section into parser options.
func (c *Config) MoneyOptions() (money.Options, error) {
	sep, err := money.ParseSeparator(c.Money.DecimalSeparator)
	if err != nil {
		return money.Options{}, fmt.Errorf("money.decimal_separator: %w", err)
	}
	opts := money.Options{Decimal: sep, Ceiling: money.DefaultCeiling}
	if c.Money.Ceiling != "" {
		d, err := decimal.NewFromString(c.Money.Ceiling)
		if err != nil {
			return money.Options{}, fmt.Errorf("money.ceiling %q: %w", c.Money.Ceiling, err)
		}
		if !d.IsPositive() {
			return money.Options{}, fmt.Errorf("money.ceiling %q must be positive", c.Money.Ceiling)
		}
		opts.Ceiling = money.FromDecimal(d)
	}
	return opts, nil
}

// TaxRate parses tax.default_rate.
func (c *Config) TaxRate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(c.Tax.DefaultRate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("tax.default_rate %q: %w", c.Tax.DefaultRate, err)
	}
	if rate.IsNegative() {
		return decimal.Zero, fmt.Errorf("tax.default_rate %q must not be negative", c.Tax.DefaultRate)
	}
	return rate, nil
}
