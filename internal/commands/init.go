package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledgercore/internal/accounts"
	"github.com/cleared-dev/ledgercore/internal/config"
)

type initOptions struct {
	name       string
	entityType string
	driver     string
	chart      string // CSV replacing the default chart
	prefix     string
}

func newInitCommand() *cobra.Command {
	var opts initOptions

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new ledger repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd.OutOrStdout(), absDir, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.name, "name", "", "business name (required)")
	_ = cmd.MarkFlagRequired("name")
	f.StringVar(&opts.entityType, "entity-type", "fleet_operator", "entity type, selects the default chart of accounts")
	f.StringVar(&opts.driver, "store", config.DriverBolt, "store driver: bolt, sqlite or memory")
	f.StringVar(&opts.chart, "chart", "", "start from this chart of accounts CSV instead of the default")
	f.StringVar(&opts.prefix, "prefix", "", "posting number prefix (default JE)")

	return cmd
}

func runInit(w io.Writer, dir string, opts initOptions) error {
	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", cfgPath, err)
	}

	cfg := config.Default(opts.name, opts.entityType)
	cfg.Store.Driver = opts.driver
	if opts.driver == config.DriverSQLite {
		cfg.Store.Path = "data/ledger.sqlite"
	}
	if opts.prefix != "" {
		cfg.Posting.Prefix = opts.prefix
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Validate the chart before touching the directory.
	chart, err := initialChart(opts)
	if err != nil {
		return err
	}
	for _, id := range []int{cfg.Tax.VATInputAccount, cfg.Tax.VATOutputAccount} {
		if !chart.IsLeaf(id) {
			printWarn(w, "VAT account %d is not a leaf of this chart; set tax accounts in %s", id, config.FileName)
			break
		}
	}

	for _, d := range []string{"accounts", "data", "logs", "import", filepath.Join("import", "processed")} {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := chart.Save(dir); err != nil {
		return fmt.Errorf("writing chart of accounts: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("data/\n.env\n"), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "import", ".gitkeep"), []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing .gitkeep: %w", err)
	}

	printSuccess(w, "Initialized ledger for %s at %s (%s store, %d accounts)", opts.name, dir, opts.driver, len(chart.All()))
	return nil
}

func initialChart(opts initOptions) (*accounts.Service, error) {
	if opts.chart == "" {
		chart, err := accounts.NewService(accounts.DefaultChart(opts.entityType))
		if err != nil {
			return nil, fmt.Errorf("building chart of accounts: %w", err)
		}
		return chart, nil
	}

	f, err := os.Open(opts.chart)
	if err != nil {
		return nil, fmt.Errorf("opening chart: %w", err)
	}
	defer f.Close()
	accts, err := accounts.ReadAccounts(f)
	if err != nil {
		return nil, err
	}
	chart, err := accounts.NewService(accts)
	if err != nil {
		return nil, fmt.Errorf("chart %s: %w", opts.chart, err)
	}
	return chart, nil
}
