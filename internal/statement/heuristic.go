// Package statement turns pasted bank statement text and bank CSV exports
// into draft rows that stay editable until they become entry lines.
package statement

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"regexp"
	"runtime"
	"strings"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/cleared-dev/ledgercore/internal/config"
	"github.com/cleared-dev/ledgercore/internal/model"
	"github.com/cleared-dev/ledgercore/internal/money"
)

// DefaultKeywords mark a single amount as a deposit.
var DefaultKeywords = []string{"credit", "cr", "deposit"}

var (
	datePattern = regexp.MustCompile(`\d{1,4}[/-]\d{1,2}[/-]\d{1,4}`)
	refPattern  = regexp.MustCompile(`(?i)\bREF[:#]?([A-Z0-9]*\d[A-Z0-9]*)\b`)
	longDigits  = regexp.MustCompile(`\d{10,}`)
	columnSep   = regexp.MustCompile(`\t+| {2,}`)
)

// Result is the outcome of parsing one line. Row is always usable as a
// starting point even when Failures is not empty.
type Result struct {
	LineNo     int // 1-based
	Raw        string
	Row        model.DraftStatementRow
	Failures   []error
	Ambiguous  bool
	Confidence float64 // 0..1
}

// HeuristicParser reads free-form statement text, one transaction per line.
// The zero value uses the default keywords and money options.
type HeuristicParser struct {
	Keywords []string // extra deposit terms
	Money    money.Options
}

// NewHeuristicParser builds a parser from the money and statement sections
// of cfg.
func NewHeuristicParser(cfg *config.Config) (*HeuristicParser, error) {
	opts, err := cfg.MoneyOptions()
	if err != nil {
		return nil, err
	}
	return &HeuristicParser{Keywords: cfg.Statement.DepositKeywords, Money: opts}, nil
}

// Format returns the parser name.
func (p *HeuristicParser) Format() string { return "heuristic" }

// Parse reads all of r and parses it line by line. Lines have no length
// limit.
func (p *HeuristicParser) Parse(r io.Reader) ([]Result, error) {
	var results []Result
	br := bufio.NewReader(r)
	for n := 1; ; n++ {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("reading statement: %w", err)
		}
		if line == "" && err == io.EOF {
			break
		}
		line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
		if res, ok := p.ParseLine(line); ok {
			res.LineNo = n
			results = append(results, res)
		}
		if err == io.EOF {
			break
		}
	}
	return results, nil
}

// ParseText parses every line of text in order. Lines that carry neither a
// date nor an amount are dropped.
func (p *HeuristicParser) ParseText(text string) []Result {
	var results []Result
	for i, line := range splitLines(text) {
		if res, ok := p.ParseLine(line); ok {
			res.LineNo = i + 1
			results = append(results, res)
		}
	}
	return results
}

// ParseConcurrent is ParseText with lines spread over workers goroutines.
// The output order matches ParseText.
func (p *HeuristicParser) ParseConcurrent(ctx context.Context, text string, workers int) ([]Result, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	lines := splitLines(text)
	parsed := make([]*Result, len(lines))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, line := range lines {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if res, ok := p.ParseLine(line); ok {
				res.LineNo = i + 1
				parsed[i] = &res
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var results []Result
	for _, res := range parsed {
		if res != nil {
			results = append(results, *res)
		}
	}
	return results, nil
}

// ParseLine applies the column heuristics to a single line. The second
// return is false for lines with no date and no non-zero amount.
func (p *HeuristicParser) ParseLine(line string) (Result, bool) {
	res := Result{Raw: line}
	work := line

	if loc := datePattern.FindStringIndex(work); loc != nil {
		res.Row.Date = work[loc[0]:loc[1]]
		work = blank(work, loc)
	}

	if m := refPattern.FindStringSubmatchIndex(work); m != nil {
		res.Row.Reference = work[m[2]:m[3]]
		work = blank(work, m[:2])
	} else if loc := longDigits.FindStringIndex(work); loc != nil {
		res.Row.Reference = work[loc[0]:loc[1]]
		work = blank(work, loc)
	}

	var amounts []money.Money
	var words []string
	for _, tok := range fields(line, work) {
		if !numericToken(tok) {
			words = append(words, strings.Fields(tok)...)
			continue
		}
		m, err := money.ParseWith(tok, p.Money)
		if err != nil {
			res.Failures = append(res.Failures, err)
			words = append(words, strings.Fields(tok)...)
			continue
		}
		if money.Ambiguous(tok) {
			res.Ambiguous = true
		}
		amounts = append(amounts, m)
	}
	res.Row.Description = strings.Join(words, " ")

	deposit := p.isDeposit(line)
	switch n := len(amounts); {
	case n >= 3:
		res.Row.Debit = ptr(amounts[n-3])
		res.Row.Credit = ptr(amounts[n-2])
		res.Row.Balance = ptr(amounts[n-1])
		if n > 3 {
			res.Ambiguous = true
		}
	case n == 2:
		res.Row.Balance = ptr(amounts[1])
		p.assign(&res.Row, amounts[0], deposit)
	case n == 1:
		p.assign(&res.Row, amounts[0], deposit)
	}

	if res.Row.Date == "" && res.Row.DebitAmount().IsZero() && res.Row.CreditAmount().IsZero() {
		return Result{}, false
	}
	res.Confidence = confidence(res, len(amounts))
	return res, true
}

func (p *HeuristicParser) assign(row *model.DraftStatementRow, amount money.Money, deposit bool) {
	if deposit {
		row.Credit = ptr(amount)
	} else {
		row.Debit = ptr(amount)
	}
}

// isDeposit reports whether line holds a deposit keyword as a whole word,
// ignoring case. Keywords with spaces match as substrings.
func (p *HeuristicParser) isDeposit(line string) bool {
	words := strings.FieldsFunc(line, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	lower := strings.ToLower(line)
	for _, kw := range append(DefaultKeywords[:len(DefaultKeywords):len(DefaultKeywords)], p.Keywords...) {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		if strings.ContainsFunc(kw, unicode.IsSpace) {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return true
			}
			continue
		}
		for _, w := range words {
			if strings.EqualFold(w, kw) {
				return true
			}
		}
	}
	return false
}

// fields splits work into the tokens scanned for amounts. A line that uses
// tabs or runs of spaces between columns is split on those, so a column
// such as "1 500,00" stays whole and text columns stay text. Any other line
// is split into words. The choice is made on the raw line because blanking
// the date and reference leaves runs of spaces in work.
func fields(line, work string) []string {
	if !columnSep.MatchString(strings.TrimSpace(line)) {
		return strings.Fields(work)
	}
	var cols []string
	for _, col := range columnSep.Split(work, -1) {
		if col = strings.TrimSpace(col); col != "" {
			cols = append(cols, col)
		}
	}
	return cols
}

// numericToken reports whether tok is made only of digits, separators,
// signs, parentheses, currency symbols and grouping spaces, with at least
// one digit.
func numericToken(tok string) bool {
	digits := false
	for _, r := range tok {
		switch {
		case r >= '0' && r <= '9':
			digits = true
		case strings.ContainsRune(",.+-()'", r):
		case r == ' ' || r == '\u00a0' || r == '\u202f':
		case unicode.Is(unicode.Sc, r):
		default:
			return false
		}
	}
	return digits
}

func confidence(res Result, amounts int) float64 {
	c := 1.0
	if res.Row.Date == "" {
		c -= 0.3
	}
	if res.Ambiguous {
		c -= 0.3
	}
	if amounts < 2 {
		c -= 0.1
	}
	c -= 0.2 * float64(len(res.Failures))
	return max(c, 0)
}

// blank replaces s[loc[0]:loc[1]] with spaces so later scans skip it
// without merging neighbouring fields.
func blank(s string, loc []int) string {
	return s[:loc[0]] + strings.Repeat(" ", loc[1]-loc[0]) + s[loc[1]:]
}

func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

func ptr(m money.Money) *money.Money { return &m }
