package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledgercore/internal/ledger"
)

func newTrialBalanceCommand(g *globalFlags) *cobra.Command {
	var asOf string
	var leavesOnly bool

	cmd := &cobra.Command{
		Use:   "trial-balance",
		Short: "Show closing balances of every account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, g)
			if err != nil {
				return err
			}
			defer a.Close()

			day, err := optionalDay(asOf)
			if err != nil {
				return err
			}

			tb, err := ledger.NewProjector(a.store, a.accounts).TrialBalance(cmd.Context(), day)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(tb)+1)
			for _, r := range tb {
				if leavesOnly && !r.Leaf {
					continue
				}
				rows = append(rows, []string{
					r.Account.Code,
					strings.Repeat("  ", r.Level-1) + r.Account.Name,
					a.amount(r.Debit),
					a.amount(r.Credit),
				})
			}
			debit, credit := ledger.Totals(tb)
			rows = append(rows, []string{"", "TOTAL", a.fmt.Format(debit), a.fmt.Format(credit)})
			renderTable(a.out, []string{"Code", "Account", "Debit", "Credit"}, rows, 2, 3)

			if debit != credit {
				printWarn(a.out, "Trial balance is out by %s", a.fmt.Format(debit.Sub(credit).Abs()))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "last day YYYY-MM-DD (default: everything)")
	cmd.Flags().BoolVar(&leavesOnly, "leaves", false, "only show postable accounts")
	return cmd
}
