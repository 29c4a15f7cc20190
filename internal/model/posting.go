package model

import (
	"time"

	"github.com/cleared-dev/ledgercore/internal/money"
)

// EntryLine is one debit-or-credit row of a Posting.
type EntryLine struct {
	ID            string
	PostingNumber string    // set when the line is posted
	LineNo        int       // position within the posting, from 0
	Date          time.Time // copied from the posting
	AccountID     int
	Debit         money.Money // zero if credit side
	Credit        money.Money // zero if debit side
	Description   string
	TaxLineID     string // generated tax line owned by this line
	TaxOf         string // on a generated tax line: the base line's ID
}

// IsDebit reports whether the line sits on the debit side.
func (l EntryLine) IsDebit() bool { return !l.Debit.IsZero() && l.Credit.IsZero() }

// IsCredit reports whether the line sits on the credit side.
func (l EntryLine) IsCredit() bool { return l.Debit.IsZero() && !l.Credit.IsZero() }

// Amount returns the non-zero side.
func (l EntryLine) Amount() money.Money {
	if l.Debit.IsZero() {
		return l.Credit
	}
	return l.Debit
}

// Net returns debit minus credit.
func (l EntryLine) Net() money.Money { return l.Debit.Sub(l.Credit) }

// Posting is a balanced, immutable journal entry.
type Posting struct {
	ID          string
	Number      string // "JE-2024000001"
	Date        time.Time
	Description string
	Lines       []EntryLine
	ReversalOf  string // number of the posting this one reverses
	CreatedAt   time.Time
}

// Totals returns the sum of debits and credits over all lines.
func (p Posting) Totals() (debit, credit money.Money) {
	for _, l := range p.Lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}

// Clone returns a copy whose Lines slice is not shared with p.
func (p Posting) Clone() Posting {
	lines := make([]EntryLine, len(p.Lines))
	copy(lines, p.Lines)
	p.Lines = lines
	return p
}

// DraftStatementRow is a candidate transaction recovered from pasted
// statement text. Every field stays editable until it becomes an EntryLine.
type DraftStatementRow struct {
	Date              string // raw, unvalidated
	Debit             *money.Money
	Credit            *money.Money
	Balance           *money.Money
	Description       string
	Reference         string
	ResolvedAccountID *int
}

// DebitAmount returns the debit or zero when absent.
func (r DraftStatementRow) DebitAmount() money.Money { return deref(r.Debit) }

// CreditAmount returns the credit or zero when absent.
func (r DraftStatementRow) CreditAmount() money.Money { return deref(r.Credit) }

func deref(m *money.Money) money.Money {
	if m == nil {
		return money.Zero
	}
	return *m
}
