package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledgercore/internal/journal"
	"github.com/cleared-dev/ledgercore/internal/model"
	"github.com/cleared-dev/ledgercore/internal/money"
	"github.com/cleared-dev/ledgercore/internal/tax"
)

func newPostCommand(g *globalFlags) *cobra.Command {
	var (
		date, desc, file, rate, prefix string
		lineSpecs                      []string
		taxOn                          []int
	)

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Create a balanced posting",
		Long: `Create a posting from --line flags or a draft CSV file.

A line is ACCOUNT:dr|cr:AMOUNT[:DESCRIPTION], where ACCOUNT is an account
code or ID. --tax N adds a VAT line for the Nth line (1-based): debit lines
use the input VAT account, credit lines the output VAT account.`,
		Example: `  ledgercore post --date 2024-03-05 --desc "Diesel" \
    --line 5111:dr:100.00 --line 1112:cr:115.00 --tax 1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, g)
			if err != nil {
				return err
			}
			defer a.Close()

			day, err := parseDay(date)
			if err != nil {
				return err
			}

			var lines []model.EntryLine
			if file != "" {
				lines, err = readDraftFile(file)
				if err != nil {
					return err
				}
			}
			for _, spec := range lineSpecs {
				l, err := a.parseLineSpec(spec)
				if err != nil {
					return err
				}
				lines = append(lines, l)
			}
			for i := range lines {
				if lines[i].ID == "" {
					lines[i].ID = uuid.NewString()
				}
			}

			if len(taxOn) > 0 {
				lines, err = a.applyTax(lines, taxOn, rate)
				if err != nil {
					return err
				}
			}

			p, err := a.journal.CreatePosting(cmd.Context(), journal.CreateParams{
				Date:        day,
				Description: desc,
				Lines:       lines,
				Prefix:      prefix,
			})
			if err != nil {
				return err
			}

			debit, _ := p.Totals()
			printSuccess(a.out, "Posted %s on %s (%d lines, %s)",
				p.Number, p.Date.Format("2006-01-02"), len(p.Lines), a.fmt.Format(debit))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&date, "date", "", "posting date YYYY-MM-DD (required)")
	f.StringVar(&desc, "desc", "", "posting description")
	f.StringArrayVar(&lineSpecs, "line", nil, "line as ACCOUNT:dr|cr:AMOUNT[:DESCRIPTION] (repeatable)")
	f.StringVar(&file, "file", "", "draft lines in journal CSV format")
	f.IntSliceVar(&taxOn, "tax", nil, "add a VAT line for these 1-based line numbers")
	f.StringVar(&rate, "rate", "", "VAT rate, e.g. 0.15 (default from ledger.yaml)")
	f.StringVar(&prefix, "prefix", "", "posting number prefix (default from ledger.yaml)")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func readDraftFile(path string) ([]model.EntryLine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening draft file: %w", err)
	}
	defer f.Close()
	return journal.ReadLines(f)
}

// parseLineSpec reads ACCOUNT:dr|cr:AMOUNT[:DESCRIPTION]. The description
// may itself contain colons.
func (a *app) parseLineSpec(spec string) (model.EntryLine, error) {
	parts := strings.SplitN(spec, ":", 4)
	if len(parts) < 3 {
		return model.EntryLine{}, fmt.Errorf("line %q: want ACCOUNT:dr|cr:AMOUNT[:DESCRIPTION]", spec)
	}
	acct, err := a.resolveAccount(parts[0])
	if err != nil {
		return model.EntryLine{}, fmt.Errorf("line %q: %w", spec, err)
	}
	amount, err := money.ParseWith(parts[2], a.money)
	if err != nil {
		return model.EntryLine{}, fmt.Errorf("line %q: %w", spec, err)
	}

	l := model.EntryLine{AccountID: acct.ID}
	if len(parts) == 4 {
		l.Description = parts[3]
	}
	switch strings.ToLower(parts[1]) {
	case "dr", "debit":
		l.Debit = amount
	case "cr", "credit":
		l.Credit = amount
	default:
		return model.EntryLine{}, fmt.Errorf("line %q: side must be dr or cr", spec)
	}
	return l, nil
}

// applyTax adds a VAT line after each selected base line. Positions refer
// to the lines before any tax line was inserted.
func (a *app) applyTax(lines []model.EntryLine, positions []int, rateFlag string) ([]model.EntryLine, error) {
	rate, err := a.cfg.TaxRate()
	if err != nil {
		return nil, err
	}
	if rateFlag != "" {
		rate, err = decimal.NewFromString(rateFlag)
		if err != nil {
			return nil, fmt.Errorf("parsing --rate %q: %w", rateFlag, err)
		}
	}

	bases := make([]model.EntryLine, 0, len(positions))
	for _, n := range positions {
		if n < 1 || n > len(lines) {
			return nil, fmt.Errorf("--tax %d: no such line (have %d)", n, len(lines))
		}
		bases = append(bases, lines[n-1])
	}

	out := lines
	for _, base := range bases {
		account := a.cfg.Tax.VATOutputAccount
		if base.IsDebit() {
			account = a.cfg.Tax.VATInputAccount
		}
		out, err = tax.Apply(out, base.ID, rate, account)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
