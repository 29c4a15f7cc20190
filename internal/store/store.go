// Package store defines the persistence boundary of the ledger core and
// adapters onto existing engines (in-memory maps, bbolt, SQLite).
package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cleared-dev/ledgercore/internal/config"
	"github.com/cleared-dev/ledgercore/internal/model"
)

var (
	// ErrNotFound is returned when a posting number is unknown.
	ErrNotFound = errors.New("posting not found")

	// ErrDuplicateNumber is returned when a posting number is saved twice.
	ErrDuplicateNumber = errors.New("posting number already saved")

	// ErrAlreadyReversed is returned when a second reversal of the same
	// posting is saved.
	ErrAlreadyReversed = errors.New("posting already reversed")

	// ErrUnavailable marks transient engine failures (locks, busy database).
	ErrUnavailable = errors.New("store unavailable")
)

// DateRange bounds a line query by posting date. Both ends are inclusive;
// a nil end is unbounded.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// Contains reports whether t falls inside the range, comparing calendar days.
func (r DateRange) Contains(t time.Time) bool {
	day := Day(t)
	if r.From != nil && day.Before(Day(*r.From)) {
		return false
	}
	if r.To != nil && day.After(Day(*r.To)) {
		return false
	}
	return true
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AccountLookup resolves line targets.
type AccountLookup interface {
	Get(id int) (model.Account, bool)
	IsLeaf(id int) bool
	Leaves() []model.Account
}

// Sequencer hands out posting counters. Each call is a single atomic
// increment-and-read; numbers are never handed out twice.
type Sequencer interface {
	NextSequenceNumber(ctx context.Context, prefix string, year int) (int, error)
}

// PostingWriter persists a posting together with its lines, all or nothing.
type PostingWriter interface {
	SavePosting(ctx context.Context, p model.Posting) (string, error)
}

// PostingReader loads saved postings.
type PostingReader interface {
	GetPosting(ctx context.Context, number string) (model.Posting, error)
	// FindReversal returns the number of the posting reversing number, or "".
	FindReversal(ctx context.Context, number string) (string, error)
	ListPostings(ctx context.Context, r DateRange) ([]model.Posting, error)
}

// LineQuerier returns the lines posted to any of ids inside r, in no
// particular order.
type LineQuerier interface {
	LinesForAccounts(ctx context.Context, ids []int, r DateRange) ([]model.EntryLine, error)
}

// Store is the full persistence boundary.
type Store interface {
	Sequencer
	PostingWriter
	PostingReader
	LineQuerier
	Close() error
}

// Open returns the adapter named by cfg.Driver. Relative paths resolve
// against root.
func Open(root string, cfg config.StoreConfig) (Store, error) {
	path := cfg.Path
	if path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	switch cfg.Driver {
	case config.DriverMemory:
		return NewMemory(), nil
	case config.DriverBolt:
		return OpenBolt(path)
	case config.DriverSQLite:
		return OpenSQLite(path)
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

func idSet(ids []int) map[int]bool {
	set := make(map[int]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
