package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/cleared-dev/ledgercore/internal/id"
	"github.com/cleared-dev/ledgercore/internal/model"
	"github.com/cleared-dev/ledgercore/internal/money"
)

// Bucket names.
const (
	bucketCounters  = "counters"
	bucketPostings  = "postings"
	bucketLines     = "lines"
	bucketReversals = "reversals"
)

// Bolt stores postings in a bbolt file. Counters are nested buckets, one
// per prefix/year, advanced with NextSequence inside an Update.
type Bolt struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) the database at path and initializes buckets.
func OpenBolt(path string) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating store dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt store: %w", mapBoltErr(err))
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range []string{bucketCounters, bucketPostings, bucketLines, bucketReversals} {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				return fmt.Errorf("creating bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Bolt{db: db}, nil
}

func (b *Bolt) Close() error {
	return b.db.Close()
}

func mapBoltErr(err error) error {
	if errors.Is(err, bolt.ErrTimeout) || errors.Is(err, bolt.ErrDatabaseNotOpen) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

// update runs fn in a read-write transaction. The context is checked
// before commit so a deadline rolls the whole transaction back.
func (b *Bolt) update(ctx context.Context, fn func(*bolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := b.db.Update(func(tx *bolt.Tx) error {
		if err := fn(tx); err != nil {
			return err
		}
		return ctx.Err()
	})
	return mapBoltErr(err)
}

func (b *Bolt) view(ctx context.Context, fn func(*bolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapBoltErr(b.db.View(fn))
}

func (b *Bolt) NextSequenceNumber(ctx context.Context, prefix string, year int) (int, error) {
	var seq uint64
	err := b.update(ctx, func(tx *bolt.Tx) error {
		counter, err := tx.Bucket([]byte(bucketCounters)).CreateBucketIfNotExists([]byte(id.CounterKey(prefix, year)))
		if err != nil {
			return fmt.Errorf("creating counter: %w", err)
		}
		seq, err = counter.NextSequence()
		return err
	})
	if err != nil {
		return 0, err
	}
	return int(seq), nil
}

func (b *Bolt) SavePosting(ctx context.Context, p model.Posting) (string, error) {
	data, err := json.Marshal(toRecord(p))
	if err != nil {
		return "", fmt.Errorf("encoding posting %s: %w", p.Number, err)
	}

	err = b.update(ctx, func(tx *bolt.Tx) error {
		postings := tx.Bucket([]byte(bucketPostings))
		if postings.Get([]byte(p.Number)) != nil {
			return fmt.Errorf("%w: %s", ErrDuplicateNumber, p.Number)
		}
		if p.ReversalOf != "" {
			reversals := tx.Bucket([]byte(bucketReversals))
			if by := reversals.Get([]byte(p.ReversalOf)); by != nil {
				return fmt.Errorf("%w: %s by %s", ErrAlreadyReversed, p.ReversalOf, by)
			}
			if err := reversals.Put([]byte(p.ReversalOf), []byte(p.Number)); err != nil {
				return err
			}
		}
		if err := postings.Put([]byte(p.Number), data); err != nil {
			return err
		}

		lines := tx.Bucket([]byte(bucketLines))
		for _, l := range p.Lines {
			v, err := json.Marshal(toLineRecord(l))
			if err != nil {
				return fmt.Errorf("encoding line %s: %w", l.ID, err)
			}
			if err := lines.Put(lineKey(l), v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

func (b *Bolt) GetPosting(ctx context.Context, number string) (model.Posting, error) {
	var p model.Posting
	err := b.view(ctx, func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(bucketPostings)).Get([]byte(number))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, number)
		}
		var rec postingRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("decoding posting %s: %w", number, err)
		}
		p = rec.model()
		return nil
	})
	return p, err
}

func (b *Bolt) FindReversal(ctx context.Context, number string) (string, error) {
	var by string
	err := b.view(ctx, func(tx *bolt.Tx) error {
		by = string(tx.Bucket([]byte(bucketReversals)).Get([]byte(number)))
		return nil
	})
	return by, err
}

func (b *Bolt) ListPostings(ctx context.Context, r DateRange) ([]model.Posting, error) {
	var out []model.Posting
	err := b.view(ctx, func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketPostings)).ForEach(func(k, v []byte) error {
			var rec postingRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decoding posting %s: %w", k, err)
			}
			if r.Contains(rec.Date) {
				out = append(out, rec.model())
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// LinesForAccounts seeks the line index once per account; keys sort by
// account then day, so the range is a contiguous cursor scan.
func (b *Bolt) LinesForAccounts(ctx context.Context, ids []int, r DateRange) ([]model.EntryLine, error) {
	var out []model.EntryLine
	err := b.view(ctx, func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(bucketLines)).Cursor()
		for _, acct := range ids {
			start := accountPrefix(acct)
			if r.From != nil {
				start = dayPrefix(acct, Day(*r.From))
			}
			prefix := accountPrefix(acct)
			for k, v := c.Seek(start); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
				var rec lineRecord
				if err := json.Unmarshal(v, &rec); err != nil {
					return fmt.Errorf("decoding line %s: %w", k, err)
				}
				if r.To != nil && Day(rec.Date).After(Day(*r.To)) {
					break
				}
				out = append(out, rec.model())
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func accountPrefix(acct int) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(acct))
	return k
}

// dayPrefix flips the sign bit so dates before 1970 still sort first.
func dayPrefix(acct int, day time.Time) []byte {
	k := accountPrefix(acct)
	k = binary.BigEndian.AppendUint64(k, uint64(day.Unix())^(1<<63))
	return k
}

func lineKey(l model.EntryLine) []byte {
	k := dayPrefix(l.AccountID, Day(l.Date))
	k = append(k, l.PostingNumber...)
	k = append(k, '/')
	return append(k, l.ID...)
}

type lineRecord struct {
	ID            string    `json:"id"`
	PostingNumber string    `json:"posting_number"`
	LineNo        int       `json:"line_no,omitempty"`
	Date          time.Time `json:"date"`
	AccountID     int       `json:"account_id"`
	Debit         int64     `json:"debit"`
	Credit        int64     `json:"credit"`
	Description   string    `json:"description,omitempty"`
	TaxLineID     string    `json:"tax_line_id,omitempty"`
	TaxOf         string    `json:"tax_of,omitempty"`
}

type postingRecord struct {
	ID          string       `json:"id"`
	Number      string       `json:"number"`
	Date        time.Time    `json:"date"`
	Description string       `json:"description"`
	Lines       []lineRecord `json:"lines"`
	ReversalOf  string       `json:"reversal_of,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

func toLineRecord(l model.EntryLine) lineRecord {
	return lineRecord{
		ID:            l.ID,
		PostingNumber: l.PostingNumber,
		LineNo:        l.LineNo,
		Date:          l.Date,
		AccountID:     l.AccountID,
		Debit:         l.Debit.Minor(),
		Credit:        l.Credit.Minor(),
		Description:   l.Description,
		TaxLineID:     l.TaxLineID,
		TaxOf:         l.TaxOf,
	}
}

func (r lineRecord) model() model.EntryLine {
	return model.EntryLine{
		ID:            r.ID,
		PostingNumber: r.PostingNumber,
		LineNo:        r.LineNo,
		Date:          r.Date,
		AccountID:     r.AccountID,
		Debit:         money.FromMinor(r.Debit),
		Credit:        money.FromMinor(r.Credit),
		Description:   r.Description,
		TaxLineID:     r.TaxLineID,
		TaxOf:         r.TaxOf,
	}
}

func toRecord(p model.Posting) postingRecord {
	lines := make([]lineRecord, len(p.Lines))
	for i, l := range p.Lines {
		lines[i] = toLineRecord(l)
	}
	return postingRecord{
		ID:          p.ID,
		Number:      p.Number,
		Date:        p.Date,
		Description: p.Description,
		Lines:       lines,
		ReversalOf:  p.ReversalOf,
		CreatedAt:   p.CreatedAt,
	}
}

func (r postingRecord) model() model.Posting {
	lines := make([]model.EntryLine, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = l.model()
	}
	return model.Posting{
		ID:          r.ID,
		Number:      r.Number,
		Date:        r.Date,
		Description: r.Description,
		Lines:       lines,
		ReversalOf:  r.ReversalOf,
		CreatedAt:   r.CreatedAt,
	}
}
