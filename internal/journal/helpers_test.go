package journal

import (
	"context"
	"time"

	"github.com/cleared-dev/ledgercore/internal/accounts"
	"github.com/cleared-dev/ledgercore/internal/model"
	"github.com/cleared-dev/ledgercore/internal/money"
	"github.com/cleared-dev/ledgercore/internal/store"
)

const (
	cash      = 1112
	revenue   = 4111
	fuel      = 5111
	repairs   = 5112
	vatInput  = 1131
	nonLeaf   = 111
	unknownID = 9999
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func amt(s string) money.Money { return money.MustParse(s) }

// testChart is the default chart with Vehicle Maintenance deactivated.
func testChart() *accounts.Service {
	chart := accounts.DefaultChart("fleet_operator")
	for i := range chart {
		if chart[i].ID == repairs {
			chart[i].Active = false
		}
	}
	return accounts.MustNewService(chart)
}

func dr(acct int, amount string) model.EntryLine {
	return model.EntryLine{AccountID: acct, Debit: amt(amount)}
}

func cr(acct int, amount string) model.EntryLine {
	return model.EntryLine{AccountID: acct, Credit: amt(amount)}
}

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(st Store, opts ...Option) *Service {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewService(st, testChart(), opts...)
}

// faultyStore wraps Memory and fails or stalls on demand.
type faultyStore struct {
	*store.Memory
	saveErr   error
	stallSave bool
	fixedSeq  int
}

func (f *faultyStore) NextSequenceNumber(ctx context.Context, prefix string, year int) (int, error) {
	if f.fixedSeq > 0 {
		return f.fixedSeq, nil
	}
	return f.Memory.NextSequenceNumber(ctx, prefix, year)
}

func (f *faultyStore) SavePosting(ctx context.Context, p model.Posting) (string, error) {
	if f.stallSave {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.saveErr != nil {
		return "", f.saveErr
	}
	return f.Memory.SavePosting(ctx, p)
}
