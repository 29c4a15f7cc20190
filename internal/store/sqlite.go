package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/cleared-dev/ledgercore/internal/id"
	"github.com/cleared-dev/ledgercore/internal/model"
	"github.com/cleared-dev/ledgercore/internal/money"
)

const dateLayout = "2006-01-02"

// Schema defines the SQL statements to create the ledger tables.
const Schema = `
-- Year-scoped posting counters, one row per prefix/year
CREATE TABLE IF NOT EXISTS sequences (
    counter TEXT PRIMARY KEY,          -- e.g. JE/2024
    value INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS postings (
    number TEXT PRIMARY KEY,           -- JE-2024000001
    id TEXT NOT NULL UNIQUE,
    date TEXT NOT NULL,                -- YYYY-MM-DD
    description TEXT NOT NULL,
    reversal_of TEXT UNIQUE,           -- NULL unless this reverses another posting
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_postings_date ON postings(date);

CREATE TABLE IF NOT EXISTS entry_lines (
    id TEXT PRIMARY KEY,
    posting_number TEXT NOT NULL REFERENCES postings(number),
    line_no INTEGER NOT NULL,
    date TEXT NOT NULL,                -- copied from the posting
    account_id INTEGER NOT NULL,
    debit INTEGER NOT NULL,            -- minor units
    credit INTEGER NOT NULL,           -- minor units
    description TEXT NOT NULL,
    tax_line_id TEXT NOT NULL DEFAULT '',
    tax_of TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_entry_lines_account_date
    ON entry_lines(account_id, date);
`

// SQLite stores postings in a SQLite database through database/sql.
type SQLite struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens the database at path with WAL, foreign keys and
// immediate write transactions, and initializes the schema.
func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating store dir: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate", path)
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite store: %w", err)
	}
	// One writer at a time; readers share the same connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite store: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return &SQLite{db: db, path: path}, nil
}

func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Transaction runs fn inside a transaction, rolling back when fn fails.
func (s *SQLite) Transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapSQLiteErr(fmt.Errorf("beginning transaction: %w", err))
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("transaction error: %v, rollback error: %w", err, rbErr)
		}
		return mapSQLiteErr(err)
	}

	if err := tx.Commit(); err != nil {
		return mapSQLiteErr(fmt.Errorf("committing transaction: %w", err))
	}
	return nil
}

func mapSQLiteErr(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && (sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

func (s *SQLite) NextSequenceNumber(ctx context.Context, prefix string, year int) (int, error) {
	var seq int
	err := s.Transaction(ctx, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, `
			INSERT INTO sequences (counter, value) VALUES (?, 1)
			ON CONFLICT(counter) DO UPDATE SET value = value + 1
			RETURNING value`, id.CounterKey(prefix, year)).Scan(&seq)
	})
	if err != nil {
		return 0, fmt.Errorf("advancing sequence: %w", err)
	}
	return seq, nil
}

func (s *SQLite) SavePosting(ctx context.Context, p model.Posting) (string, error) {
	err := s.Transaction(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM postings WHERE number = ?`, p.Number).Scan(&exists)
		if err == nil {
			return fmt.Errorf("%w: %s", ErrDuplicateNumber, p.Number)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		var reversalOf any
		if p.ReversalOf != "" {
			var by string
			err := tx.QueryRowContext(ctx, `SELECT number FROM postings WHERE reversal_of = ?`, p.ReversalOf).Scan(&by)
			if err == nil {
				return fmt.Errorf("%w: %s by %s", ErrAlreadyReversed, p.ReversalOf, by)
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return err
			}
			reversalOf = p.ReversalOf
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO postings (number, id, date, description, reversal_of, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			p.Number, p.ID, p.Date.Format(dateLayout), p.Description, reversalOf,
			p.CreatedAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("inserting posting: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO entry_lines (id, posting_number, line_no, date, account_id, debit, credit, description, tax_line_id, tax_of)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, l := range p.Lines {
			if _, err := stmt.ExecContext(ctx, l.ID, p.Number, l.LineNo, l.Date.Format(dateLayout), l.AccountID,
				l.Debit.Minor(), l.Credit.Minor(), l.Description, l.TaxLineID, l.TaxOf); err != nil {
				return fmt.Errorf("inserting line %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

func (s *SQLite) GetPosting(ctx context.Context, number string) (model.Posting, error) {
	var p model.Posting
	err := s.Transaction(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			SELECT number, id, date, description, COALESCE(reversal_of, ''), created_at
			FROM postings WHERE number = ?`, number)
		var err error
		p, err = scanPosting(row)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrNotFound, number)
		}
		if err != nil {
			return err
		}
		p.Lines, err = queryLines(ctx, tx, `WHERE posting_number = ? ORDER BY line_no, rowid`, number)
		return err
	})
	return p, err
}

func (s *SQLite) FindReversal(ctx context.Context, number string) (string, error) {
	var by string
	err := s.db.QueryRowContext(ctx, `SELECT number FROM postings WHERE reversal_of = ?`, number).Scan(&by)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", mapSQLiteErr(err)
	}
	return by, nil
}

func (s *SQLite) ListPostings(ctx context.Context, r DateRange) ([]model.Posting, error) {
	where, args := dateClause(r)
	var out []model.Posting
	err := s.Transaction(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT number, id, date, description, COALESCE(reversal_of, ''), created_at
			FROM postings WHERE `+where+` ORDER BY number`, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			p, err := scanPosting(rows)
			if err != nil {
				return err
			}
			out = append(out, p)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		for i := range out {
			out[i].Lines, err = queryLines(ctx, tx, `WHERE posting_number = ? ORDER BY line_no, rowid`, out[i].Number)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLite) LinesForAccounts(ctx context.Context, ids []int, r DateRange) ([]model.EntryLine, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	where, args := dateClause(r)
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	for _, acct := range ids {
		args = append(args, acct)
	}

	var out []model.EntryLine
	err := s.Transaction(ctx, func(tx *sql.Tx) error {
		var err error
		out, err = queryLines(ctx, tx, `WHERE `+where+` AND account_id IN (`+placeholders+`)`, args...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func dateClause(r DateRange) (string, []any) {
	clauses := []string{"1 = 1"}
	var args []any
	if r.From != nil {
		clauses = append(clauses, "date >= ?")
		args = append(args, r.From.Format(dateLayout))
	}
	if r.To != nil {
		clauses = append(clauses, "date <= ?")
		args = append(args, r.To.Format(dateLayout))
	}
	return strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPosting(row rowScanner) (model.Posting, error) {
	var p model.Posting
	var date, created string
	if err := row.Scan(&p.Number, &p.ID, &date, &p.Description, &p.ReversalOf, &created); err != nil {
		return model.Posting{}, err
	}
	var err error
	if p.Date, err = time.Parse(dateLayout, date); err != nil {
		return model.Posting{}, fmt.Errorf("parsing date of %s: %w", p.Number, err)
	}
	if p.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return model.Posting{}, fmt.Errorf("parsing created_at of %s: %w", p.Number, err)
	}
	return p, nil
}

func queryLines(ctx context.Context, tx *sql.Tx, where string, args ...any) ([]model.EntryLine, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, posting_number, line_no, date, account_id, debit, credit, description, tax_line_id, tax_of
		FROM entry_lines `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("querying lines: %w", err)
	}
	defer rows.Close()

	var out []model.EntryLine
	for rows.Next() {
		var l model.EntryLine
		var date string
		var debit, credit int64
		if err := rows.Scan(&l.ID, &l.PostingNumber, &l.LineNo, &date, &l.AccountID, &debit, &credit, &l.Description, &l.TaxLineID, &l.TaxOf); err != nil {
			return nil, fmt.Errorf("scanning line: %w", err)
		}
		if l.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("parsing date of line %s: %w", l.ID, err)
		}
		l.Debit = money.FromMinor(debit)
		l.Credit = money.FromMinor(credit)
		out = append(out, l)
	}
	return out, rows.Err()
}
