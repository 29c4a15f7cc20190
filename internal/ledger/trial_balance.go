package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cleared-dev/ledgercore/internal/model"
	"github.com/cleared-dev/ledgercore/internal/money"
	"github.com/cleared-dev/ledgercore/internal/store"
)

// TrialBalanceRow is the closing position of one account. Parent accounts
// carry the sum of their subtree.
type TrialBalanceRow struct {
	Account model.Account
	Level   int // 1 for roots
	Leaf    bool
	Debit   money.Money // closing balance when it is a debit balance
	Credit  money.Money // closing balance when it is a credit balance
}

// TrialBalance returns every account with activity up to asOf (nil means
// all time), ordered by code.
func (p *Projector) TrialBalance(ctx context.Context, asOf *time.Time) ([]TrialBalanceRow, error) {
	all := p.accounts.All()
	ids := make([]int, 0, len(all))
	for _, a := range all {
		ids = append(ids, a.ID)
	}

	lines, err := p.lines.LinesForAccounts(ctx, ids, store.DateRange{To: asOf})
	if err != nil {
		return nil, fmt.Errorf("fetching lines: %w", err)
	}

	net := make(map[int]money.Money)
	touched := make(map[int]bool)
	for _, l := range lines {
		if asOf != nil && store.Day(l.Date).After(store.Day(*asOf)) {
			continue
		}
		for _, id := range append([]int{l.AccountID}, p.accounts.Ancestors(l.AccountID)...) {
			net[id] = net[id].Add(l.Net())
			touched[id] = true
		}
	}

	var rows []TrialBalanceRow
	for _, a := range all {
		if !touched[a.ID] {
			continue
		}
		row := TrialBalanceRow{
			Account: a,
			Level:   len(p.accounts.Ancestors(a.ID)) + 1,
			Leaf:    p.accounts.IsLeaf(a.ID),
		}
		if n := net[a.ID]; n.IsNegative() {
			row.Credit = n.Abs()
		} else {
			row.Debit = n
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Account.Code < rows[j].Account.Code })
	return rows, nil
}

// Totals sums the leaf rows. A consistent ledger has debit == credit.
func Totals(rows []TrialBalanceRow) (debit, credit money.Money) {
	for _, r := range rows {
		if r.Leaf {
			debit = debit.Add(r.Debit)
			credit = credit.Add(r.Credit)
		}
	}
	return debit, credit
}
