package journal

import (
	"errors"
	"fmt"

	"github.com/cleared-dev/ledgercore/internal/model"
	"github.com/cleared-dev/ledgercore/internal/store"
)

// Validate checks a draft posting without saving it. It returns
// ErrEmptyPosting, one *InvalidLineError per bad line (joined), or an
// *UnbalancedError, in that order of precedence.
func Validate(lines []model.EntryLine, accounts store.AccountLookup) error {
	if len(lines) < 2 {
		return ErrEmptyPosting
	}

	var errs []error
	seen := make(map[string]bool, len(lines))
	for i, l := range lines {
		reason := checkLine(l, accounts)
		if reason == "" && l.ID != "" && seen[l.ID] {
			reason = "duplicate line id " + l.ID
		}
		if reason != "" {
			errs = append(errs, &InvalidLineError{Index: i, Reason: reason})
		}
		seen[l.ID] = true
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	debit, credit := model.Posting{Lines: lines}.Totals()
	if debit != credit {
		return &UnbalancedError{TotalDebit: debit, TotalCredit: credit}
	}
	return nil
}

func checkLine(l model.EntryLine, accounts store.AccountLookup) string {
	switch {
	case l.Debit.IsNegative() || l.Credit.IsNegative():
		return "negative amount"
	case !l.Debit.IsZero() && !l.Credit.IsZero():
		return "both debit and credit set"
	case l.Debit.IsZero() && l.Credit.IsZero():
		return "neither debit nor credit set"
	}

	acct, ok := accounts.Get(l.AccountID)
	switch {
	case !ok:
		return fmt.Sprintf("unknown account %d", l.AccountID)
	case !acct.Active:
		return fmt.Sprintf("account %s is inactive", acct.Code)
	case !accounts.IsLeaf(l.AccountID):
		return fmt.Sprintf("account %s is not a leaf account", acct.Code)
	}
	return ""
}
