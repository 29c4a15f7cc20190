package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledgercore/internal/journal"
	"github.com/cleared-dev/ledgercore/internal/store"
)

func newExportCommand(g *globalFlags) *cobra.Command {
	var from, to, format, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export postings as journal CSV or an Excel workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, g)
			if err != nil {
				return err
			}
			defer a.Close()

			var write func(io.Writer) error
			r := store.DateRange{}
			if r.From, err = optionalDay(from); err != nil {
				return err
			}
			if r.To, err = optionalDay(to); err != nil {
				return err
			}
			postings, err := a.journal.List(cmd.Context(), r)
			if err != nil {
				return err
			}

			switch format {
			case "csv":
				write = func(w io.Writer) error { return journal.WritePostings(w, postings) }
			case "xlsx":
				if out == "" {
					return fmt.Errorf("xlsx export needs --out")
				}
				write = func(w io.Writer) error { return journal.WritePostingsXLSX(w, postings) }
			default:
				return fmt.Errorf("unknown export format %q (want csv or xlsx)", format)
			}

			if out == "" {
				return write(a.out)
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("creating %s: %w", out, err)
			}
			if err := write(f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("closing %s: %w", out, err)
			}
			a.logger.Debug("exported postings", "count", len(postings), "path", out)
			printSuccess(cmd.ErrOrStderr(), "Exported %d postings to %s", len(postings), out)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&from, "from", "", "first day YYYY-MM-DD")
	f.StringVar(&to, "to", "", "last day YYYY-MM-DD")
	f.StringVar(&format, "format", "csv", "csv or xlsx")
	f.StringVarP(&out, "out", "o", "", "output file (default stdout, csv only)")
	return cmd
}
