package statement

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cleared-dev/ledgercore/internal/model"
)

var (
	ErrUnresolvedAccount = errors.New("statement row has no account")
	ErrNoAmount          = errors.New("statement row has no amount")
	ErrBothSides         = errors.New("statement row has both debit and credit")
)

// ToEntryLine converts a reviewed row into an entry line on its resolved
// account. A negative amount moves to the opposite side.
func ToEntryLine(row model.DraftStatementRow) (model.EntryLine, error) {
	if row.ResolvedAccountID == nil {
		return model.EntryLine{}, ErrUnresolvedAccount
	}
	debit, credit := row.DebitAmount(), row.CreditAmount()
	switch {
	case !debit.IsZero() && !credit.IsZero():
		return model.EntryLine{}, ErrBothSides
	case debit.IsNegative():
		debit, credit = credit, debit.Abs()
	case credit.IsNegative():
		debit, credit = credit.Abs(), debit
	case debit.IsZero() && credit.IsZero():
		return model.EntryLine{}, ErrNoAmount
	}

	desc := row.Description
	if row.Reference != "" {
		desc = strings.TrimSpace(desc + " REF " + row.Reference)
	}
	return model.EntryLine{
		AccountID:   *row.ResolvedAccountID,
		Debit:       debit,
		Credit:      credit,
		Description: desc,
	}, nil
}

// Lines returns the two lines that post row against the bank account:
// the row's own line and its mirror on bankAccountID.
func Lines(row model.DraftStatementRow, bankAccountID int) ([]model.EntryLine, error) {
	l, err := ToEntryLine(row)
	if err != nil {
		return nil, err
	}
	bank := model.EntryLine{
		AccountID:   bankAccountID,
		Debit:       l.Credit,
		Credit:      l.Debit,
		Description: l.Description,
	}
	return []model.EntryLine{l, bank}, nil
}

// ParseDate reads the raw date of a row. A four digit first field means
// year first; otherwise dayFirst picks D/M/Y over M/D/Y. Two digit years
// are in the 2000s.
func ParseDate(raw string, dayFirst bool) (time.Time, error) {
	parts := strings.FieldsFunc(strings.TrimSpace(raw), func(r rune) bool { return r == '/' || r == '-' })
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("parsing date %q: expected three fields", raw)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, fmt.Errorf("parsing date %q: %w", raw, err)
		}
		nums[i] = n
	}

	var y, m, d int
	switch {
	case len(parts[0]) == 4:
		y, m, d = nums[0], nums[1], nums[2]
	case dayFirst:
		d, m, y = nums[0], nums[1], nums[2]
	default:
		m, d, y = nums[0], nums[1], nums[2]
	}
	if len(parts[0]) != 4 && len(parts[2]) <= 2 {
		y += 2000
	}
	if y < 1 || y > 9999 {
		return time.Time{}, fmt.Errorf("parsing date %q: year %d out of range", raw, y)
	}

	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes 31/02 into March; reject instead.
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return time.Time{}, fmt.Errorf("parsing date %q: no such day", raw)
	}
	return t, nil
}
