package statement

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cleared-dev/ledgercore/internal/model"
	"github.com/cleared-dev/ledgercore/internal/money"
)

// ChaseParser parses Chase checking CSV exports. Withdrawals become debit
// rows and deposits credit rows, matching the pasted-statement columns.
type ChaseParser struct {
	Money money.Options
}

const (
	chaseDateFormat = "01/02/2006"
	chaseNumFields  = 7
	chaseColDate    = 1
	chaseColDesc    = 2
	chaseColAmount  = 3
	chaseColBalance = 5
	chaseColCheck   = 6
)

// Format returns the parser name.
func (p *ChaseParser) Format() string { return "chase" }

// Parse reads a Chase CSV. A row with a bad date or amount is kept with
// its failures recorded; only a malformed file is an error.
func (p *ChaseParser) Parse(r io.Reader) ([]Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = chaseNumFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading chase CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var results []Result
	for i, rec := range records[1:] {
		res := p.parseRow(rec)
		res.LineNo = i + 2
		results = append(results, res)
	}
	return results, nil
}

func (p *ChaseParser) parseRow(rec []string) Result {
	res := Result{
		Raw: strings.Join(rec, ","),
		Row: model.DraftStatementRow{
			Date:        rec[chaseColDate],
			Description: rec[chaseColDesc],
		},
	}

	date, dateErr := time.Parse(chaseDateFormat, rec[chaseColDate])
	if dateErr != nil {
		res.Failures = append(res.Failures, fmt.Errorf("parsing date %q: %w", rec[chaseColDate], dateErr))
	}

	amount, err := money.ParseWith(rec[chaseColAmount], p.Money)
	switch {
	case err != nil:
		res.Failures = append(res.Failures, fmt.Errorf("parsing amount: %w", err))
	case amount.IsNegative():
		res.Row.Debit = ptr(amount.Abs())
	default:
		res.Row.Credit = ptr(amount)
	}

	if bal := strings.TrimSpace(rec[chaseColBalance]); bal != "" {
		b, err := money.ParseWith(bal, p.Money)
		if err != nil {
			res.Failures = append(res.Failures, fmt.Errorf("parsing balance: %w", err))
		} else {
			res.Row.Balance = ptr(b)
		}
	}

	if check := strings.TrimSpace(rec[chaseColCheck]); check != "" {
		res.Row.Reference = check
	} else if dateErr == nil {
		res.Row.Reference = makeChaseRef(date, rec[chaseColDesc])
	}

	res.Confidence = max(1.0-0.5*float64(len(res.Failures)), 0)
	return res
}

// makeChaseRef creates a reference like chase_20250103_GITHUBPROS.
func makeChaseRef(date time.Time, desc string) string {
	prefix := strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, desc)
	if len(prefix) > 10 {
		prefix = prefix[:10]
	}
	return fmt.Sprintf("chase_%s_%s", date.Format("20060102"), prefix)
}
