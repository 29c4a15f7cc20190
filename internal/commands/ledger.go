package commands

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledgercore/internal/ledger"
)

func newLedgerCommand(g *globalFlags) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "ledger <account>",
		Short: "Show an account statement with running balance",
		Long: `Show every line posted to an account between --from and --to with a
running balance. A parent account includes all of its descendants.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, g)
			if err != nil {
				return err
			}
			defer a.Close()

			acct, err := a.resolveAccount(args[0])
			if err != nil {
				return err
			}
			fromDay, err := optionalDay(from)
			if err != nil {
				return err
			}
			toDay, err := optionalDay(to)
			if err != nil {
				return err
			}

			view, err := ledger.NewProjector(a.store, a.accounts).Project(cmd.Context(), acct.ID, fromDay, toDay)
			if err != nil {
				return err
			}

			printInfof(a.out, "%s %s  opening %s", acct.Code, acct.Name, a.fmt.Format(view.OpeningBalance))
			rows := make([][]string, 0, len(view.Rows))
			for _, r := range view.Rows {
				code := strconv.Itoa(r.AccountID)
				if sub, ok := a.accounts.Get(r.AccountID); ok {
					code = sub.Code
				}
				rows = append(rows, []string{
					r.Date.Format(time.DateOnly),
					r.PostingNumber,
					code,
					truncate(r.Description),
					a.amount(r.Debit),
					a.amount(r.Credit),
					a.fmt.Format(r.Balance),
				})
			}
			rows = append(rows, []string{
				"", "", "", "TOTAL",
				a.fmt.Format(view.TotalDebit),
				a.fmt.Format(view.TotalCredit),
				a.fmt.Format(view.ClosingBalance),
			})
			renderTable(a.out, []string{"Date", "Posting", "Account", "Description", "Debit", "Credit", "Balance"}, rows, 4, 5, 6)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first day YYYY-MM-DD (default: beginning)")
	cmd.Flags().StringVar(&to, "to", "", "last day YYYY-MM-DD (default: open ended)")
	return cmd
}
