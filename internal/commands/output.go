package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/cleared-dev/ledgercore/internal/model"
)

const descWidth = 40

var (
	successSymbol = "✓"
	warnSymbol    = "!"
	infoSymbol    = "→"

	successStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#00D787", Dark: "#00D787"})
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FF5F87", Dark: "#FF5F87"})
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#5FAFFF", Dark: "#5FAFFF"})
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	numberStyle  = cellStyle.Align(lipgloss.Right)
)

func printSuccess(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, "%s %s\n", successStyle.Render(successSymbol), fmt.Sprintf(format, args...))
}

func printWarn(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, "%s %s\n", warnStyle.Render(warnSymbol), warnStyle.Render(fmt.Sprintf(format, args...)))
}

func printInfof(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, "%s %s\n", infoStyle.Render(infoSymbol), fmt.Sprintf(format, args...))
}

// renderTable writes rows under headers. Columns listed in numeric are
// right aligned.
func renderTable(w io.Writer, headers []string, rows [][]string, numeric ...int) {
	right := make(map[int]bool, len(numeric))
	for _, c := range numeric {
		right[c] = true
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case right[col]:
				return numberStyle
			}
			return cellStyle
		})
	_, _ = fmt.Fprintln(w, t.Render())
}

// truncate shortens s to the description column, counting display width.
func truncate(s string) string {
	return runewidth.Truncate(s, descWidth, "…")
}

// isTerminal gates every prompt. Tests replace it.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// promptYesNo asks a yes/no question. Returns false when stdin is not a
// terminal.
func promptYesNo(question string) (bool, error) {
	if !isTerminal() {
		return false, nil
	}

	var confirm bool
	form := huh.NewConfirm().
		Title(question).
		WithButtonAlignment(lipgloss.Left).
		Value(&confirm)
	if err := form.Run(); err != nil {
		return false, fmt.Errorf("reading response: %w", err)
	}
	return confirm, nil
}

// selectAccount asks the user to pick one of accts. ok is false when stdin
// is not a terminal.
func selectAccount(title string, accts []model.Account) (id int, ok bool, err error) {
	if !isTerminal() || len(accts) == 0 {
		return 0, false, nil
	}

	opts := make([]huh.Option[int], 0, len(accts))
	for _, a := range accts {
		opts = append(opts, huh.NewOption(a.Code+"  "+a.Name, a.ID))
	}
	sel := huh.NewSelect[int]().
		Title(title).
		Options(opts...).
		Value(&id)
	if err := sel.Run(); err != nil {
		return 0, false, fmt.Errorf("reading account choice: %w", err)
	}
	return id, true, nil
}
