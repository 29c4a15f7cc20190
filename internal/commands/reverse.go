package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var errNotConfirmed = errors.New("not confirmed (pass --yes)")

func newReverseCommand(g *globalFlags) *cobra.Command {
	var (
		date string
		yes  bool
	)

	cmd := &cobra.Command{
		Use:   "reverse <posting-number>",
		Short: "Post the mirror image of a posting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, g)
			if err != nil {
				return err
			}
			defer a.Close()

			var day time.Time
			if date != "" {
				if day, err = parseDay(date); err != nil {
					return err
				}
			}

			orig, err := a.journal.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if !yes {
				debit, _ := orig.Totals()
				ok, err := promptYesNo(fmt.Sprintf("Reverse %s %q (%s)?", orig.Number, orig.Description, a.fmt.Format(debit)))
				if err != nil {
					return err
				}
				if !ok {
					return errNotConfirmed
				}
			}

			p, err := a.journal.Reverse(cmd.Context(), orig.Number, day)
			if err != nil {
				return err
			}
			printSuccess(a.out, "Reversed %s with %s on %s", orig.Number, p.Number, p.Date.Format(time.DateOnly))
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "reversal date YYYY-MM-DD (default today)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}
