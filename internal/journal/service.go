package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cleared-dev/ledgercore/internal/auditlog"
	"github.com/cleared-dev/ledgercore/internal/id"
	"github.com/cleared-dev/ledgercore/internal/model"
	"github.com/cleared-dev/ledgercore/internal/store"
)

// Defaults used when no option overrides them.
const (
	DefaultPrefix  = "JE"
	DefaultTimeout = 5 * time.Second
)

// Store is the slice of the persistence boundary the engine needs.
type Store interface {
	store.Sequencer
	store.PostingWriter
	store.PostingReader
}

// Service turns validated drafts into numbered, immutable postings.
type Service struct {
	store    Store
	accounts store.AccountLookup
	prefix   string
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time

	auditRoot  string
	auditActor string
}

// Option configures a Service.
type Option func(*Service)

// WithPrefix sets the default posting number prefix.
func WithPrefix(prefix string) Option {
	return func(s *Service) { s.prefix = prefix }
}

// WithTimeout bounds every store call.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// WithLogger sets the logger; the default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock replaces time.Now for CreatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithAuditRoot appends every created posting to <root>/logs/audit-log.csv.
func WithAuditRoot(root, actor string) Option {
	return func(s *Service) {
		s.auditRoot = root
		s.auditActor = actor
	}
}

// NewService creates a posting engine.
func NewService(st Store, accounts store.AccountLookup, opts ...Option) *Service {
	s := &Service{
		store:    st,
		accounts: accounts,
		prefix:   DefaultPrefix,
		timeout:  DefaultTimeout,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateParams holds a draft posting.
type CreateParams struct {
	Date        time.Time
	Description string
	Lines       []model.EntryLine
	Prefix      string // empty uses the service default
}

// CreatePosting validates the draft, allocates the next number for the
// posting's year and saves posting and lines in one write. Nothing is
// saved when any step fails.
func (s *Service) CreatePosting(ctx context.Context, params CreateParams) (model.Posting, error) {
	prefix := params.Prefix
	if prefix == "" {
		prefix = s.prefix
	}
	if err := id.ValidatePrefix(prefix); err != nil {
		return model.Posting{}, err
	}
	if params.Date.IsZero() {
		return model.Posting{}, fmt.Errorf("posting date is required")
	}
	if err := Validate(params.Lines, s.accounts); err != nil {
		s.logger.Debug("posting rejected", "description", params.Description, "err", err)
		return model.Posting{}, err
	}
	return s.post(ctx, prefix, params.Date, params.Description, params.Lines, "")
}

// Reverse creates a posting that mirrors every line of number, dated date
// (today when zero). A posting can be reversed only once.
func (s *Service) Reverse(ctx context.Context, number string, date time.Time) (model.Posting, error) {
	orig, err := s.Get(ctx, number)
	if err != nil {
		return model.Posting{}, err
	}

	by, err := withTimeout(ctx, s.timeout, func(ctx context.Context) (string, error) {
		return s.store.FindReversal(ctx, number)
	})
	if err != nil {
		return model.Posting{}, &StoreError{Op: "find reversal", Err: err}
	}
	if by != "" {
		return model.Posting{}, fmt.Errorf("%w: %s by %s", ErrAlreadyReversed, number, by)
	}
	if orig.ReversalOf != "" {
		s.logger.Info("reversing a reversal", "number", number, "reverses", orig.ReversalOf)
	}

	prefix, _, _, err := id.ParsePostingNumber(number)
	if err != nil {
		return model.Posting{}, err
	}
	if date.IsZero() {
		date = s.now()
	}
	return s.post(ctx, prefix, date, "Reversal of "+number, mirror(orig.Lines), number)
}

// Get loads a saved posting.
func (s *Service) Get(ctx context.Context, number string) (model.Posting, error) {
	p, err := withTimeout(ctx, s.timeout, func(ctx context.Context) (model.Posting, error) {
		return s.store.GetPosting(ctx, number)
	})
	if errors.Is(err, store.ErrNotFound) {
		return model.Posting{}, fmt.Errorf("%w: %s", ErrPostingNotFound, number)
	}
	if err != nil {
		return model.Posting{}, &StoreError{Op: "load posting", Number: number, Err: err}
	}
	return p, nil
}

// List returns the saved postings dated inside r, ordered by number.
func (s *Service) List(ctx context.Context, r store.DateRange) ([]model.Posting, error) {
	ps, err := withTimeout(ctx, s.timeout, func(ctx context.Context) ([]model.Posting, error) {
		return s.store.ListPostings(ctx, r)
	})
	if err != nil {
		return nil, &StoreError{Op: "list postings", Err: err}
	}
	return ps, nil
}

func (s *Service) post(ctx context.Context, prefix string, date time.Time, description string, lines []model.EntryLine, reversalOf string) (model.Posting, error) {
	day := store.Day(date)
	// Reject the year up front so no number is allocated for it.
	if _, err := id.FormatPostingNumber(prefix, day.Year(), 1); err != nil {
		return model.Posting{}, fmt.Errorf("posting date: %w", err)
	}

	seq, err := withTimeout(ctx, s.timeout, func(ctx context.Context) (int, error) {
		return s.store.NextSequenceNumber(ctx, prefix, day.Year())
	})
	if err != nil {
		return model.Posting{}, &StoreError{Op: "allocate number", Err: err}
	}
	number, err := id.FormatPostingNumber(prefix, day.Year(), seq)
	if err != nil {
		return model.Posting{}, fmt.Errorf("formatting posting number: %w", err)
	}

	p := model.Posting{
		ID:          uuid.NewString(),
		Number:      number,
		Date:        day,
		Description: description,
		Lines:       make([]model.EntryLine, len(lines)),
		ReversalOf:  reversalOf,
		CreatedAt:   s.now().UTC(),
	}
	for i, l := range lines {
		if l.ID == "" {
			l.ID = uuid.NewString()
		}
		l.PostingNumber = number
		l.LineNo = i
		l.Date = day
		p.Lines[i] = l
	}

	_, err = withTimeout(ctx, s.timeout, func(ctx context.Context) (string, error) {
		return s.store.SavePosting(ctx, p)
	})
	switch {
	case errors.Is(err, store.ErrDuplicateNumber):
		s.logger.Error("sequence allocation conflict", "number", number)
		return model.Posting{}, fmt.Errorf("%w: %s", ErrSequenceConflict, number)
	case errors.Is(err, store.ErrAlreadyReversed):
		return model.Posting{}, fmt.Errorf("%w: %s", ErrAlreadyReversed, reversalOf)
	case err != nil:
		s.logger.Warn("saving posting failed, number burned", "number", number, "err", err)
		return model.Posting{}, &StoreError{Op: "save posting", Number: number, Err: err}
	}

	debit, _ := p.Totals()
	s.logger.Info("posting created", "number", number, "lines", len(p.Lines), "amount", debit.String())
	s.audit(p)
	return p.Clone(), nil
}

func (s *Service) audit(p model.Posting) {
	if s.auditRoot == "" {
		return
	}
	action := auditlog.ActionPosted
	if p.ReversalOf != "" {
		action = auditlog.ActionReversed
	}
	debit, _ := p.Totals()
	entry := auditlog.Entry{
		Timestamp:     p.CreatedAt,
		Actor:         s.auditActor,
		Action:        action,
		PostingNumber: p.Number,
		Amount:        debit,
		Details:       p.Description,
	}
	// The posting is already saved; a failed audit append must not undo it.
	if err := auditlog.Append(s.auditRoot, []auditlog.Entry{entry}); err != nil {
		s.logger.Warn("audit append failed", "number", p.Number, "err", err)
	}
}

// withTimeout runs fn under the service timeout.
func withTimeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}

// mirror swaps debit and credit on every line and remaps tax links onto
// the new line IDs.
func mirror(lines []model.EntryLine) []model.EntryLine {
	ids := make(map[string]string, len(lines))
	for _, l := range lines {
		ids[l.ID] = uuid.NewString()
	}
	out := make([]model.EntryLine, len(lines))
	for i, l := range lines {
		out[i] = model.EntryLine{
			ID:          ids[l.ID],
			AccountID:   l.AccountID,
			Debit:       l.Credit,
			Credit:      l.Debit,
			Description: l.Description,
			TaxLineID:   ids[l.TaxLineID],
			TaxOf:       ids[l.TaxOf],
		}
	}
	return out
}
