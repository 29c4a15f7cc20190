package commands

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledgercore/internal/auditlog"
	"github.com/cleared-dev/ledgercore/internal/journal"
	"github.com/cleared-dev/ledgercore/internal/model"
	"github.com/cleared-dev/ledgercore/internal/statement"
)

type importOptions struct {
	format   string
	bank     string
	account  string
	post     bool
	dayFirst bool
	watch    bool
}

func newImportCommand(g *globalFlags) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Parse bank statements into draft rows and optionally post them",
		Long: `Parse a statement file, or every .csv, .txt and .pdf file waiting in import/.

Without --post the recovered rows are only shown. With --post each clean
row becomes a posting between its account and the --bank account; rows
with parse failures are skipped. Every posted row is recorded in the audit
log, and running the import again skips rows already posted from the same
file content. Files taken from import/ are moved to import/processed/ once
no row failed to post. --watch keeps running and imports files as they
arrive.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, g)
			if err != nil {
				return err
			}
			defer a.Close()

			if opts.post && opts.bank == "" {
				return fmt.Errorf("--post needs --bank")
			}
			imp, err := newImporter(a, opts)
			if err != nil {
				return err
			}

			if opts.watch {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				printInfof(a.out, "Watching %s (Ctrl-C to stop)", filepath.Join(a.root, "import"))
				return statement.Watch(ctx, a.root, a.logger, func(f statement.FileInfo) {
					if err := imp.importFile(ctx, f, true); err != nil {
						printWarn(a.out, "%s: %v", f.Name, err)
					}
				})
			}

			if len(args) == 1 {
				info, err := os.Stat(args[0])
				if err != nil {
					return fmt.Errorf("reading statement: %w", err)
				}
				f := statement.FileInfo{Name: filepath.Base(args[0]), Path: args[0], Size: info.Size()}
				return imp.importFile(cmd.Context(), f, false)
			}

			files, err := statement.Scan(a.root)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				printInfof(a.out, "No statements waiting in import/")
				return nil
			}
			var left int
			for _, f := range files {
				if err := imp.importFile(cmd.Context(), f, true); err != nil {
					printWarn(a.out, "%s: %v", f.Name, err)
					left++
				}
			}
			if left > 0 {
				return fmt.Errorf("%d statement(s) left in import/", left)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.format, "format", "", "parser: heuristic, chase or pdf (default by file extension)")
	f.StringVar(&opts.bank, "bank", "", "bank account code or ID the statement belongs to")
	f.StringVar(&opts.account, "account", "", "counter account for every row (asked per row on a terminal)")
	f.BoolVar(&opts.post, "post", false, "post clean rows instead of only showing them")
	f.BoolVar(&opts.dayFirst, "day-first", false, "read ambiguous dates as DD/MM/YYYY")
	f.BoolVar(&opts.watch, "watch", false, "keep watching import/ for new files")
	return cmd
}

type importer struct {
	app       *app
	opts      importOptions
	heuristic *statement.HeuristicParser
	registry  *statement.Registry
	bank      model.Account
	account   *model.Account
}

func newImporter(a *app, opts importOptions) (*importer, error) {
	h, err := statement.NewHeuristicParser(a.cfg)
	if err != nil {
		return nil, err
	}
	imp := &importer{
		app:       a,
		opts:      opts,
		heuristic: h,
		registry:  statement.DefaultRegistry(h),
	}
	if opts.format != "" && imp.registry.Get(opts.format) == nil {
		return nil, fmt.Errorf("unknown statement format %q", opts.format)
	}
	if opts.bank != "" {
		if imp.bank, err = a.resolveAccount(opts.bank); err != nil {
			return nil, fmt.Errorf("--bank: %w", err)
		}
	}
	if opts.account != "" {
		acct, err := a.resolveAccount(opts.account)
		if err != nil {
			return nil, fmt.Errorf("--account: %w", err)
		}
		imp.account = &acct
	}
	return imp, nil
}

// parse reads the whole statement and returns its rows together with a
// digest of the content.
func (imp *importer) parse(ctx context.Context, f statement.FileInfo) ([]statement.Result, string, error) {
	format := imp.opts.format
	if format == "" {
		format = f.Format()
	}
	imp.app.logger.Debug("parsing statement", "file", f.Path, "format", format, "size", f.Size)

	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, "", fmt.Errorf("reading statement: %w", err)
	}
	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:6])

	var results []statement.Result
	if format == imp.heuristic.Format() {
		results, err = imp.heuristic.ParseConcurrent(ctx, string(data), imp.app.cfg.Statement.Workers)
	} else {
		results, err = imp.registry.Get(format).Parse(bytes.NewReader(data))
	}
	return results, digest, err
}

// importFile parses one statement. fromInbox marks files living in
// import/, which are moved to import/processed/ once no row failed to
// post. Rows posted by an earlier run of the same content are skipped.
func (imp *importer) importFile(ctx context.Context, f statement.FileInfo, fromInbox bool) error {
	results, digest, err := imp.parse(ctx, f)
	if err != nil {
		return err
	}
	if !imp.opts.post {
		imp.show(f, results)
		return nil
	}

	done, err := importedLines(imp.app.root, digest)
	if err != nil {
		return err
	}

	var posted, skipped, already, failed int
	for _, res := range results {
		if done[res.LineNo] {
			already++
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		p, ok, err := imp.postRow(ctx, res)
		if err != nil {
			printWarn(imp.app.out, "line %d failed: %v", res.LineNo, err)
			failed++
			continue
		}
		if !ok {
			skipped++
			continue
		}
		posted++
		imp.recordImport(f, digest, res.LineNo, p)
	}

	summary := fmt.Sprintf("%s: posted %d, skipped %d", f.Name, posted, skipped)
	if already > 0 {
		summary += fmt.Sprintf(", already imported %d", already)
	}
	if failed > 0 {
		printWarn(imp.app.out, "%s, failed %d", summary, failed)
		return fmt.Errorf("%d row(s) failed to post; fix them and import again", failed)
	}

	if fromInbox {
		if err := statement.MarkProcessed(imp.app.root, f.Name); err != nil {
			return err
		}
	}
	printSuccess(imp.app.out, "%s", summary)
	return nil
}

// recordImport writes the audit entry that lets a later run skip the row.
// The posting is already saved, so a failed append is only logged.
func (imp *importer) recordImport(f statement.FileInfo, digest string, lineNo int, p model.Posting) {
	debit, _ := p.Totals()
	entry := auditlog.Entry{
		Timestamp:     time.Now().UTC(),
		Actor:         actor(),
		Action:        auditlog.ActionImported,
		PostingNumber: p.Number,
		Amount:        debit,
		Details:       importDetails(f.Name, digest, lineNo),
	}
	if err := auditlog.Append(imp.app.root, []auditlog.Entry{entry}); err != nil {
		imp.app.logger.Warn("audit log append failed", "file", f.Name, "line", lineNo, "number", p.Number, "err", err)
	}
}

const digestMarker = " sha256="

// importDetails names the statement line a posting came from, for example
// "march.csv:4 sha256=9f86d081884c".
func importDetails(name, digest string, lineNo int) string {
	return fmt.Sprintf("%s:%d%s%s", name, lineNo, digestMarker, digest)
}

// importedLines returns the line numbers already posted from statement
// content with digest, read back from the audit log.
func importedLines(root, digest string) (map[int]bool, error) {
	entries, err := auditlog.Read(root)
	if err != nil {
		return nil, err
	}
	done := make(map[int]bool)
	for _, e := range entries {
		if e.Action != auditlog.ActionImported {
			continue
		}
		loc, sum, ok := strings.Cut(e.Details, digestMarker)
		if !ok || sum != digest {
			continue
		}
		if n, err := strconv.Atoi(loc[strings.LastIndexByte(loc, ':')+1:]); err == nil {
			done[n] = true
		}
	}
	return done, nil
}

// postRow posts one parsed row. ok is false when the row was skipped.
func (imp *importer) postRow(ctx context.Context, res statement.Result) (model.Posting, bool, error) {
	out := imp.app.out
	if len(res.Failures) > 0 {
		printWarn(out, "line %d skipped: %v", res.LineNo, res.Failures[0])
		return model.Posting{}, false, nil
	}
	day, err := statement.ParseDate(res.Row.Date, imp.opts.dayFirst)
	if err != nil {
		printWarn(out, "line %d skipped: %v", res.LineNo, err)
		return model.Posting{}, false, nil
	}

	row := res.Row
	switch {
	case imp.account != nil:
		row.ResolvedAccountID = &imp.account.ID
	default:
		title := fmt.Sprintf("Account for %q %s", truncate(row.Description), imp.rowAmount(row))
		id, ok, err := selectAccount(title, imp.app.accounts.Leaves())
		if err != nil {
			return model.Posting{}, false, err
		}
		if !ok {
			printWarn(out, "line %d skipped: no account (pass --account)", res.LineNo)
			return model.Posting{}, false, nil
		}
		row.ResolvedAccountID = &id
	}

	lines, err := statement.Lines(row, imp.bank.ID)
	if err != nil {
		printWarn(out, "line %d skipped: %v", res.LineNo, err)
		return model.Posting{}, false, nil
	}
	p, err := imp.app.journal.CreatePosting(ctx, journal.CreateParams{
		Date:        day,
		Description: row.Description,
		Lines:       lines,
	})
	if err != nil {
		return model.Posting{}, false, err
	}
	return p, true, nil
}

func (imp *importer) rowAmount(row model.DraftStatementRow) string {
	if row.Debit != nil {
		return "-" + imp.app.fmt.Format(*row.Debit)
	}
	return imp.app.fmt.Format(row.CreditAmount())
}

func (imp *importer) show(f statement.FileInfo, results []statement.Result) {
	a := imp.app
	printInfof(a.out, "%s: %d rows", f.Name, len(results))

	rows := make([][]string, 0, len(results))
	for _, res := range results {
		bal := ""
		if res.Row.Balance != nil {
			bal = a.fmt.Format(*res.Row.Balance)
		}
		flag := ""
		switch {
		case len(res.Failures) > 0:
			flag = "failed"
		case res.Ambiguous:
			flag = "check"
		}
		rows = append(rows, []string{
			strconv.Itoa(res.LineNo),
			res.Row.Date,
			truncate(res.Row.Description),
			res.Row.Reference,
			a.amount(res.Row.DebitAmount()),
			a.amount(res.Row.CreditAmount()),
			bal,
			strconv.FormatFloat(res.Confidence, 'f', 2, 64),
			flag,
		})
	}
	renderTable(a.out, []string{"Line", "Date", "Description", "Ref", "Debit", "Credit", "Balance", "Conf", ""}, rows, 4, 5, 6, 7)
}
