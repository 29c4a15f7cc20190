package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cleared-dev/ledgercore/internal/id"
	"github.com/cleared-dev/ledgercore/internal/model"
)

// Memory keeps everything in mutex-guarded maps. It backs tests and the
// "memory" driver.
type Memory struct {
	mu        sync.Mutex
	counters  map[string]int
	postings  map[string]model.Posting
	reversals map[string]string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		counters:  make(map[string]int),
		postings:  make(map[string]model.Posting),
		reversals: make(map[string]string),
	}
}

func (m *Memory) NextSequenceNumber(ctx context.Context, prefix string, year int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := id.CounterKey(prefix, year)
	m.counters[key]++
	return m.counters[key], nil
}

func (m *Memory) SavePosting(ctx context.Context, p model.Posting) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.postings[p.Number]; dup {
		return "", fmt.Errorf("%w: %s", ErrDuplicateNumber, p.Number)
	}
	if p.ReversalOf != "" {
		if by, done := m.reversals[p.ReversalOf]; done {
			return "", fmt.Errorf("%w: %s by %s", ErrAlreadyReversed, p.ReversalOf, by)
		}
		m.reversals[p.ReversalOf] = p.Number
	}
	m.postings[p.Number] = p.Clone()
	return p.ID, nil
}

func (m *Memory) GetPosting(ctx context.Context, number string) (model.Posting, error) {
	if err := ctx.Err(); err != nil {
		return model.Posting{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.postings[number]
	if !ok {
		return model.Posting{}, fmt.Errorf("%w: %s", ErrNotFound, number)
	}
	return p.Clone(), nil
}

func (m *Memory) FindReversal(ctx context.Context, number string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reversals[number], nil
}

func (m *Memory) ListPostings(ctx context.Context, r DateRange) ([]model.Posting, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Posting
	for _, p := range m.postings {
		if r.Contains(p.Date) {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// LinesForAccounts iterates a map, so the order differs between calls.
func (m *Memory) LinesForAccounts(ctx context.Context, ids []int, r DateRange) ([]model.EntryLine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	want := idSet(ids)
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.EntryLine
	for _, p := range m.postings {
		if !r.Contains(p.Date) {
			continue
		}
		for _, l := range p.Lines {
			if want[l.AccountID] {
				out = append(out, l)
			}
		}
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }
