// Package ledger projects saved entry lines into per-account statements
// with running balances and into a trial balance.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cleared-dev/ledgercore/internal/accounts"
	"github.com/cleared-dev/ledgercore/internal/model"
	"github.com/cleared-dev/ledgercore/internal/money"
	"github.com/cleared-dev/ledgercore/internal/store"
)

var (
	ErrUnknownAccount = errors.New("unknown account")
	ErrInvalidRange   = errors.New("range start after range end")
)

// Row is one line of an account statement.
type Row struct {
	Date          time.Time
	PostingNumber string
	LineID        string
	LineNo        int // position within the posting
	AccountID     int // the leaf the line was posted to
	Description   string
	Debit         money.Money
	Credit        money.Money
	Balance       money.Money // running, after this row
}

// View is the statement of one account over a date range. Non-leaf
// accounts include every line posted to their descendants.
type View struct {
	Account        model.Account
	From, To       *time.Time
	OpeningBalance money.Money
	Rows           []Row
	TotalDebit     money.Money
	TotalCredit    money.Money
	ClosingBalance money.Money
}

// Projector is a read-only view over saved lines.
type Projector struct {
	lines    store.LineQuerier
	accounts *accounts.Service
}

// NewProjector creates a Projector.
func NewProjector(lines store.LineQuerier, accts *accounts.Service) *Projector {
	return &Projector{lines: lines, accounts: accts}
}

// Project builds the statement of accountID for [from, to]. Either end may
// be nil. The store is read exactly once; balances are computed over the
// rows of that one read.
func (p *Projector) Project(ctx context.Context, accountID int, from, to *time.Time) (View, error) {
	acct, ok := p.accounts.Get(accountID)
	if !ok {
		return View{}, fmt.Errorf("%w: %d", ErrUnknownAccount, accountID)
	}
	if from != nil && to != nil && store.Day(*from).After(store.Day(*to)) {
		return View{}, fmt.Errorf("%w: %s > %s", ErrInvalidRange, from.Format(time.DateOnly), to.Format(time.DateOnly))
	}

	lines, err := p.lines.LinesForAccounts(ctx, p.accounts.Subtree(accountID), store.DateRange{To: to})
	if err != nil {
		return View{}, fmt.Errorf("fetching lines for %s: %w", acct.Code, err)
	}

	view := View{Account: acct, From: from, To: to}
	inRange := store.DateRange{From: from, To: to}
	var rows []Row
	for _, l := range lines {
		switch {
		case from != nil && store.Day(l.Date).Before(store.Day(*from)):
			view.OpeningBalance = view.OpeningBalance.Add(l.Net())
		case inRange.Contains(l.Date):
			rows = append(rows, Row{
				Date:          store.Day(l.Date),
				PostingNumber: l.PostingNumber,
				LineID:        l.ID,
				LineNo:        l.LineNo,
				AccountID:     l.AccountID,
				Description:   l.Description,
				Debit:         l.Debit,
				Credit:        l.Credit,
			})
		}
	}

	sortRows(rows)
	balance := view.OpeningBalance
	for i := range rows {
		balance = balance.Add(rows[i].Debit).Sub(rows[i].Credit)
		rows[i].Balance = balance
		view.TotalDebit = view.TotalDebit.Add(rows[i].Debit)
		view.TotalCredit = view.TotalCredit.Add(rows[i].Credit)
	}
	view.Rows = rows
	view.ClosingBalance = balance
	return view, nil
}

// sortRows orders by date, then posting number, then entry order within
// the posting, with line ID as the last resort. Posting
// numbers of one prefix and year compare correctly as strings because the
// counter is zero padded.
func sortRows(rows []Row) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.PostingNumber != b.PostingNumber {
			return a.PostingNumber < b.PostingNumber
		}
		if a.LineNo != b.LineNo {
			return a.LineNo < b.LineNo
		}
		return a.LineID < b.LineID
	})
}
