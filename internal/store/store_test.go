package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledgercore/internal/config"
	"github.com/cleared-dev/ledgercore/internal/model"
	"github.com/cleared-dev/ledgercore/internal/money"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

// adapters returns a fresh instance of every adapter.
func adapters(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	b, err := OpenBolt(filepath.Join(dir, "ledger.db"))
	require.NoError(t, err)
	s, err := OpenSQLite(filepath.Join(dir, "ledger.sqlite"))
	require.NoError(t, err)

	stores := map[string]Store{
		"memory": NewMemory(),
		"bolt":   b,
		"sqlite": s,
	}
	t.Cleanup(func() {
		for _, st := range stores {
			_ = st.Close()
		}
	})
	return stores
}

func posting(number string, day time.Time, debitAcct, creditAcct int, amount int64) model.Posting {
	return model.Posting{
		ID:          "id-" + number,
		Number:      number,
		Date:        day,
		Description: "test " + number,
		CreatedAt:   date(2024, 12, 31),
		Lines: []model.EntryLine{
			{ID: number + "-0", PostingNumber: number, Date: day, AccountID: debitAcct, Debit: money.FromMinor(amount), Description: "dr"},
			{ID: number + "-1", PostingNumber: number, LineNo: 1, Date: day, AccountID: creditAcct, Credit: money.FromMinor(amount), Description: "cr"},
		},
	}
}

func TestSequence(t *testing.T) {
	for name, st := range adapters(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for want := 1; want <= 3; want++ {
				got, err := st.NextSequenceNumber(ctx, "JE", 2024)
				require.NoError(t, err)
				assert.Equal(t, want, got)
			}

			// Counters are scoped per prefix and per year.
			got, err := st.NextSequenceNumber(ctx, "JE", 2025)
			require.NoError(t, err)
			assert.Equal(t, 1, got)
			got, err = st.NextSequenceNumber(ctx, "INV", 2024)
			require.NoError(t, err)
			assert.Equal(t, 1, got)
		})
	}
}

func TestSequence_Concurrent(t *testing.T) {
	const n = 50
	for name, st := range adapters(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			results := make([]int, n)
			errs := make([]error, n)

			var wg sync.WaitGroup
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					results[i], errs[i] = st.NextSequenceNumber(ctx, "JE", 2024)
				}(i)
			}
			wg.Wait()

			for _, err := range errs {
				require.NoError(t, err)
			}
			sort.Ints(results)
			for i, got := range results {
				assert.Equal(t, i+1, got, "sequence must be 1..N without gaps or duplicates")
			}
		})
	}
}

func TestSaveAndGet(t *testing.T) {
	for name, st := range adapters(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			p := posting("JE-2024000001", date(2024, 3, 1), 1112, 4111, 100000)

			gotID, err := st.SavePosting(ctx, p)
			require.NoError(t, err)
			assert.Equal(t, p.ID, gotID)

			got, err := st.GetPosting(ctx, p.Number)
			require.NoError(t, err)
			assert.Equal(t, p, got)

			_, err = st.GetPosting(ctx, "JE-2024999999")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestSave_DuplicateNumber(t *testing.T) {
	for name, st := range adapters(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			p := posting("JE-2024000001", date(2024, 3, 1), 1112, 4111, 100)
			_, err := st.SavePosting(ctx, p)
			require.NoError(t, err)

			dup := posting("JE-2024000001", date(2024, 3, 2), 1112, 4111, 999)
			dup.ID = "other"
			_, err = st.SavePosting(ctx, dup)
			assert.ErrorIs(t, err, ErrDuplicateNumber)

			got, err := st.GetPosting(ctx, p.Number)
			require.NoError(t, err)
			assert.Equal(t, p, got, "failed save must not change the stored posting")

			lines, err := st.LinesForAccounts(ctx, []int{1112}, DateRange{})
			require.NoError(t, err)
			assert.Len(t, lines, 1)
		})
	}
}

func TestReversalIndex(t *testing.T) {
	for name, st := range adapters(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			orig := posting("JE-2024000001", date(2024, 3, 1), 1112, 4111, 100)
			_, err := st.SavePosting(ctx, orig)
			require.NoError(t, err)

			by, err := st.FindReversal(ctx, orig.Number)
			require.NoError(t, err)
			assert.Empty(t, by)

			rev := posting("JE-2024000002", date(2024, 3, 5), 4111, 1112, 100)
			rev.ReversalOf = orig.Number
			_, err = st.SavePosting(ctx, rev)
			require.NoError(t, err)

			by, err = st.FindReversal(ctx, orig.Number)
			require.NoError(t, err)
			assert.Equal(t, rev.Number, by)

			again := posting("JE-2024000003", date(2024, 3, 6), 4111, 1112, 100)
			again.ReversalOf = orig.Number
			_, err = st.SavePosting(ctx, again)
			assert.ErrorIs(t, err, ErrAlreadyReversed)

			_, err = st.GetPosting(ctx, again.Number)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestLinesForAccounts(t *testing.T) {
	for name, st := range adapters(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i, day := range []time.Time{date(2023, 12, 31), date(2024, 1, 15), date(2024, 2, 1), date(2024, 3, 1)} {
				p := posting(fmt.Sprintf("JE-%04d%06d", day.Year(), i+1), day, 1112, 4111, int64(100*(i+1)))
				_, err := st.SavePosting(ctx, p)
				require.NoError(t, err)
			}

			all, err := st.LinesForAccounts(ctx, []int{1112}, DateRange{})
			require.NoError(t, err)
			assert.Len(t, all, 4)
			for _, l := range all {
				assert.Equal(t, 1112, l.AccountID)
			}

			both, err := st.LinesForAccounts(ctx, []int{1112, 4111}, DateRange{})
			require.NoError(t, err)
			assert.Len(t, both, 8)

			ranged, err := st.LinesForAccounts(ctx, []int{1112}, DateRange{From: ptr(date(2024, 1, 15)), To: ptr(date(2024, 2, 1))})
			require.NoError(t, err)
			require.Len(t, ranged, 2)
			amounts := []int64{ranged[0].Debit.Minor(), ranged[1].Debit.Minor()}
			assert.ElementsMatch(t, []int64{200, 300}, amounts)

			upTo, err := st.LinesForAccounts(ctx, []int{1112}, DateRange{To: ptr(date(2023, 12, 31))})
			require.NoError(t, err)
			require.Len(t, upTo, 1)
			assert.Equal(t, date(2023, 12, 31), upTo[0].Date)

			none, err := st.LinesForAccounts(ctx, []int{5111}, DateRange{})
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestListPostings(t *testing.T) {
	for name, st := range adapters(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := st.SavePosting(ctx, posting("JE-2024000002", date(2024, 2, 1), 1112, 4111, 200))
			require.NoError(t, err)
			_, err = st.SavePosting(ctx, posting("JE-2024000001", date(2024, 1, 1), 1112, 4111, 100))
			require.NoError(t, err)

			all, err := st.ListPostings(ctx, DateRange{})
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, "JE-2024000001", all[0].Number)
			assert.Equal(t, "JE-2024000002", all[1].Number)
			assert.Len(t, all[1].Lines, 2)

			feb, err := st.ListPostings(ctx, DateRange{From: ptr(date(2024, 2, 1))})
			require.NoError(t, err)
			require.Len(t, feb, 1)
			assert.Equal(t, "JE-2024000002", feb[0].Number)
		})
	}
}

func TestCanceledContext(t *testing.T) {
	for name, st := range adapters(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := st.NextSequenceNumber(ctx, "JE", 2024)
			assert.ErrorIs(t, err, context.Canceled)

			_, err = st.SavePosting(ctx, posting("JE-2024000001", date(2024, 1, 1), 1112, 4111, 100))
			assert.ErrorIs(t, err, context.Canceled)

			_, err = st.GetPosting(context.Background(), "JE-2024000001")
			assert.ErrorIs(t, err, ErrNotFound, "canceled save must not persist anything")
		})
	}
}

func TestBolt_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	b, err := OpenBolt(path)
	require.NoError(t, err)
	_, err = b.NextSequenceNumber(ctx, "JE", 2024)
	require.NoError(t, err)
	p := posting("JE-2024000001", date(2024, 1, 1), 1112, 4111, 100)
	_, err = b.SavePosting(ctx, p)
	require.NoError(t, err)
	require.NoError(t, b.Close())

	b, err = OpenBolt(path)
	require.NoError(t, err)
	defer b.Close()

	seq, err := b.NextSequenceNumber(ctx, "JE", 2024)
	require.NoError(t, err)
	assert.Equal(t, 2, seq, "counter survives reopen")

	got, err := b.GetPosting(ctx, p.Number)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestOpen(t *testing.T) {
	root := t.TempDir()

	st, err := Open(root, config.StoreConfig{Driver: config.DriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, st)

	st, err = Open(root, config.StoreConfig{Driver: config.DriverBolt, Path: "data/ledger.db"})
	require.NoError(t, err)
	assert.IsType(t, &Bolt{}, st)
	assert.FileExists(t, filepath.Join(root, "data", "ledger.db"))
	require.NoError(t, st.Close())

	st, err = Open(root, config.StoreConfig{Driver: config.DriverSQLite, Path: "data/ledger.sqlite"})
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, st)
	require.NoError(t, st.Close())

	_, err = Open(root, config.StoreConfig{Driver: "postgres"})
	assert.ErrorContains(t, err, "unknown store driver")
}

func TestDateRange_Contains(t *testing.T) {
	r := DateRange{From: ptr(date(2024, 1, 1)), To: ptr(date(2024, 1, 31))}
	assert.True(t, r.Contains(date(2024, 1, 1)))
	assert.True(t, r.Contains(time.Date(2024, 1, 31, 23, 59, 0, 0, time.UTC)))
	assert.False(t, r.Contains(date(2023, 12, 31)))
	assert.False(t, r.Contains(date(2024, 2, 1)))
	assert.True(t, DateRange{}.Contains(date(1900, 1, 1)))
}
