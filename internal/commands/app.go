package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledgercore/internal/accounts"
	"github.com/cleared-dev/ledgercore/internal/config"
	"github.com/cleared-dev/ledgercore/internal/journal"
	"github.com/cleared-dev/ledgercore/internal/model"
	"github.com/cleared-dev/ledgercore/internal/money"
	"github.com/cleared-dev/ledgercore/internal/store"
)

// app is everything a subcommand needs from an initialized ledger repo.
type app struct {
	root     string
	cfg      *config.Config
	logger   *slog.Logger
	store    store.Store
	accounts *accounts.Service
	journal  *journal.Service
	money    money.Options
	fmt      *money.Formatter
	out      io.Writer
}

func openApp(cmd *cobra.Command, g *globalFlags) (*app, error) {
	root, err := filepath.Abs(g.repo)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	cfg, err := config.Load(filepath.Join(root, config.FileName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s is not a ledger repo (run init first): %w", root, err)
	}
	if err != nil {
		return nil, err
	}

	envFile := g.envFile
	if envFile == "" {
		if _, err := os.Stat(filepath.Join(root, ".env")); err == nil {
			envFile = filepath.Join(root, ".env")
		}
	}
	if err := config.ApplyEnv(cfg, envFile); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	opts, err := cfg.MoneyOptions()
	if err != nil {
		return nil, err
	}

	logger := newLogger(cmd.ErrOrStderr(), g.debug || cfg.Debug)

	accts, err := accounts.Load(root)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(root, cfg.Store)
	if err != nil {
		return nil, err
	}
	logger.Debug("store opened", "driver", cfg.Store.Driver, "path", cfg.Store.Path)

	svc := journal.NewService(st, accts,
		journal.WithPrefix(cfg.Posting.Prefix),
		journal.WithTimeout(cfg.Posting.Timeout),
		journal.WithLogger(logger),
		journal.WithAuditRoot(root, actor()),
	)

	return &app{
		root:     root,
		cfg:      cfg,
		logger:   logger,
		store:    st,
		accounts: accts,
		journal:  svc,
		money:    opts,
		fmt:      money.NewFormatterFor(cfg.Money.Locale),
		out:      cmd.OutOrStdout(),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func actor() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "cli"
}

// resolveAccount accepts an account code or a numeric ID.
func (a *app) resolveAccount(s string) (model.Account, error) {
	if acct, ok := a.accounts.ByCode(s); ok {
		return acct, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		if acct, ok := a.accounts.Get(n); ok {
			return acct, nil
		}
	}
	return model.Account{}, fmt.Errorf("%w: %s", accounts.ErrNotFound, s)
}

func (a *app) amount(m money.Money) string {
	if m.IsZero() {
		return ""
	}
	return a.fmt.Format(m)
}

func parseDay(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q (want YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

// optionalDay parses a date flag that may be left empty.
func optionalDay(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := parseDay(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
