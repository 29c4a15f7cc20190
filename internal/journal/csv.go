package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/cleared-dev/ledgercore/internal/model"
	"github.com/cleared-dev/ledgercore/internal/money"
)

// Header is the CSV header for journal.csv exports and draft line files.
const Header = "posting_number,line_id,date,account_id,description,debit,credit,tax_line_id,tax_of"

const (
	numFields    = 9
	dateFormat   = "2006-01-02"
	colNumber    = 0
	colLineID    = 1
	colDate      = 2
	colAcctID    = 3
	colDesc      = 4
	colDebit     = 5
	colCredit    = 6
	colTaxLineID = 7
	colTaxOf     = 8
)

// ReadLines reads entry lines from a journal.csv reader. Draft files may
// leave posting_number, line_id and date empty.
func ReadLines(r io.Reader) ([]model.EntryLine, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading journal CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	// Skip header row.
	var lines []model.EntryLine
	for i, rec := range records[1:] {
		l, err := UnmarshalLine(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		lines = append(lines, l)
	}
	return lines, nil
}

// WritePostings writes every line of postings to a journal.csv writer (including header).
func WritePostings(w io.Writer, postings []model.Posting) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	row := 2
	for _, p := range postings {
		for _, l := range p.Lines {
			if err := cw.Write(MarshalLine(l)); err != nil {
				return fmt.Errorf("writing row %d: %w", row, err)
			}
			row++
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalLine converts an EntryLine to a CSV row.
func MarshalLine(l model.EntryLine) []string {
	row := make([]string, numFields)
	row[colNumber] = l.PostingNumber
	row[colLineID] = l.ID
	if !l.Date.IsZero() {
		row[colDate] = l.Date.Format(dateFormat)
	}
	row[colAcctID] = strconv.Itoa(l.AccountID)
	row[colDesc] = l.Description

	if !l.Debit.IsZero() {
		row[colDebit] = l.Debit.String()
	}
	if !l.Credit.IsZero() {
		row[colCredit] = l.Credit.String()
	}

	row[colTaxLineID] = l.TaxLineID
	row[colTaxOf] = l.TaxOf
	return row
}

// UnmarshalLine converts a CSV row to an EntryLine. Amounts go through the
// money parser, so "1,500.00" and "1.500,00" are both accepted.
func UnmarshalLine(record []string) (model.EntryLine, error) {
	if len(record) != numFields {
		return model.EntryLine{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	var date time.Time
	if record[colDate] != "" {
		var err error
		date, err = time.Parse(dateFormat, record[colDate])
		if err != nil {
			return model.EntryLine{}, fmt.Errorf("parsing date %q: %w", record[colDate], err)
		}
	}

	accountID, err := strconv.Atoi(record[colAcctID])
	if err != nil {
		return model.EntryLine{}, fmt.Errorf("parsing account_id %q: %w", record[colAcctID], err)
	}

	var debit, credit money.Money

	if record[colDebit] != "" {
		debit, err = money.Parse(record[colDebit])
		if err != nil {
			return model.EntryLine{}, fmt.Errorf("parsing debit: %w", err)
		}
	}

	if record[colCredit] != "" {
		credit, err = money.Parse(record[colCredit])
		if err != nil {
			return model.EntryLine{}, fmt.Errorf("parsing credit: %w", err)
		}
	}

	return model.EntryLine{
		ID:            record[colLineID],
		PostingNumber: record[colNumber],
		Date:          date,
		AccountID:     accountID,
		Description:   record[colDesc],
		Debit:         debit,
		Credit:        credit,
		TaxLineID:     record[colTaxLineID],
		TaxOf:         record[colTaxOf],
	}, nil
}
