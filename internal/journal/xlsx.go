package journal

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/cleared-dev/ledgercore/internal/model"
	"github.com/cleared-dev/ledgercore/internal/money"
)

// XLSXSheet is the sheet name used by WritePostingsXLSX.
const XLSXSheet = "Journal"

// builtin number format 4: #,##0.00
const amountFormat = 4

// WritePostingsXLSX writes the same columns as WritePostings into a single
// sheet workbook. Amounts are numeric cells; zero sides are left empty.
func WritePostingsXLSX(w io.Writer, postings []model.Posting) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), XLSXSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	header := strings.Split(Header, ",")
	if err := f.SetSheetRow(XLSXSheet, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	row := 2
	for _, p := range postings {
		for _, l := range p.Lines {
			values := []any{
				l.PostingNumber,
				l.ID,
				l.Date.Format(dateFormat),
				l.AccountID,
				l.Description,
				amountCell(l.Debit),
				amountCell(l.Credit),
				l.TaxLineID,
				l.TaxOf,
			}
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(XLSXSheet, cell, &values); err != nil {
				return fmt.Errorf("writing row %d: %w", row, err)
			}
			row++
		}
	}

	style, err := f.NewStyle(&excelize.Style{NumFmt: amountFormat})
	if err != nil {
		return fmt.Errorf("creating amount style: %w", err)
	}
	if err := f.SetColStyle(XLSXSheet, "F:G", style); err != nil {
		return fmt.Errorf("styling amounts: %w", err)
	}
	if err := f.SetColWidth(XLSXSheet, "E", "E", 40); err != nil {
		return fmt.Errorf("sizing columns: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func amountCell(m money.Money) any {
	if m.IsZero() {
		return nil
	}
	return m.Decimal().InexactFloat64()
}
