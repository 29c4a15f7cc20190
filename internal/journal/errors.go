package journal

import (
	"context"
	"errors"
	"fmt"

	"github.com/cleared-dev/ledgercore/internal/money"
	"github.com/cleared-dev/ledgercore/internal/store"
)

var (
	// ErrEmptyPosting is returned for postings with fewer than two lines.
	ErrEmptyPosting = errors.New("posting needs at least two lines")

	// ErrSequenceConflict means a freshly allocated number was already
	// taken. The counter is broken; retrying will not help.
	ErrSequenceConflict = errors.New("sequence allocation conflict")

	// ErrPostingNotFound is returned when reversing an unknown posting.
	ErrPostingNotFound = errors.New("posting not found")

	// ErrAlreadyReversed is returned when a posting already has a reversal.
	ErrAlreadyReversed = errors.New("posting already reversed")
)

// InvalidLineError rejects a single line of a draft posting.
type InvalidLineError struct {
	Index  int
	Reason string
}

func (e *InvalidLineError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Index, e.Reason)
}

// UnbalancedError carries the totals so callers can show the exact gap.
type UnbalancedError struct {
	TotalDebit  money.Money
	TotalCredit money.Money
}

func (e *UnbalancedError) Error() string {
	return fmt.Sprintf("unbalanced posting: debits %s != credits %s", e.TotalDebit, e.TotalCredit)
}

// Difference returns debit minus credit.
func (e *UnbalancedError) Difference() money.Money {
	return e.TotalDebit.Sub(e.TotalCredit)
}

// StoreError wraps a failure of the backing store. Number is set when a
// sequence number had already been allocated; it is never reused.
type StoreError struct {
	Op     string
	Number string
	Err    error
}

func (e *StoreError) Error() string {
	if e.Number != "" {
		return fmt.Sprintf("store %s (%s): %v", e.Op, e.Number, e.Err)
	}
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Retryable reports whether a fresh attempt may succeed.
func (e *StoreError) Retryable() bool {
	return errors.Is(e.Err, context.DeadlineExceeded) ||
		errors.Is(e.Err, context.Canceled) ||
		errors.Is(e.Err, store.ErrUnavailable)
}
