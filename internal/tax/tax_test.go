package tax

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledgercore/internal/model"
	"github.com/cleared-dev/ledgercore/internal/money"
)

const (
	fuel      = 5111
	checking  = 1112
	vatInput  = 1131
	vatOutput = 2121
)

var rate15 = decimal.RequireFromString("0.15")

func draft() []model.EntryLine {
	return []model.EntryLine{
		{ID: "base", AccountID: fuel, Debit: money.MustParse("1000.00"), Description: "Diesel"},
		{ID: "bank", AccountID: checking, Credit: money.MustParse("1150.00"), Description: "Card"},
	}
}

func totals(lines []model.EntryLine) (money.Money, money.Money) {
	return model.Posting{Lines: lines}.Totals()
}

func TestDeriveTaxLine(t *testing.T) {
	base := draft()[0]
	line, err := DeriveTaxLine(base, rate15, vatInput)
	require.NoError(t, err)

	assert.Equal(t, money.MustParse("150.00"), line.Debit)
	assert.True(t, line.Credit.IsZero())
	assert.Equal(t, vatInput, line.AccountID)
	assert.Equal(t, "base", line.TaxOf)
	assert.NotEmpty(t, line.ID)
	assert.Equal(t, "VAT 15% on Diesel", line.Description)
}

func TestDeriveTaxLine_CreditMirrorsSide(t *testing.T) {
	base := model.EntryLine{ID: "sale", AccountID: 4111, Credit: money.MustParse("200.00")}
	line, err := DeriveTaxLine(base, rate15, vatOutput)
	require.NoError(t, err)
	assert.True(t, line.Debit.IsZero())
	assert.Equal(t, money.MustParse("30.00"), line.Credit)
}

func TestAmount_Rounding(t *testing.T) {
	tests := []struct {
		base string
		rate string
		want string
	}{
		{"1000.00", "0.15", "150.00"},
		{"0.10", "0.05", "0.01"}, // 0.005 rounds away from zero
		{"0.30", "0.15", "0.05"}, // 0.045
		{"33.33", "0.21", "7.00"}, // 6.9993
		{"19.99", "0.075", "1.50"}, // 1.49925
	}
	for _, tt := range tests {
		t.Run(tt.base+"x"+tt.rate, func(t *testing.T) {
			got := Amount(money.MustParse(tt.base), decimal.RequireFromString(tt.rate))
			assert.Equal(t, money.MustParse(tt.want), got)
		})
	}
}

func TestDeriveTaxLine_Errors(t *testing.T) {
	base := draft()[0]

	_, err := DeriveTaxLine(base, decimal.RequireFromString("-0.1"), vatInput)
	assert.ErrorIs(t, err, ErrNegativeRate)

	noID := base
	noID.ID = ""
	_, err = DeriveTaxLine(noID, rate15, vatInput)
	assert.ErrorIs(t, err, ErrInvalidBase)

	both := base
	both.Credit = money.MustParse("1.00")
	_, err = DeriveTaxLine(both, rate15, vatInput)
	assert.ErrorIs(t, err, ErrInvalidBase)

	taxLine := base
	taxLine.TaxOf = "other"
	_, err = DeriveTaxLine(taxLine, rate15, vatInput)
	assert.ErrorIs(t, err, ErrInvalidBase)

	_, err = DeriveTaxLine(base, decimal.Zero, vatInput)
	assert.ErrorIs(t, err, ErrZeroTax)
}

func TestApply(t *testing.T) {
	lines := draft()
	got, err := Apply(lines, "base", rate15, vatInput)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "base", got[0].ID)
	assert.Equal(t, got[1].ID, got[0].TaxLineID)
	assert.Equal(t, "base", got[1].TaxOf)
	assert.Equal(t, "bank", got[2].ID)

	debit, credit := totals(got)
	assert.Equal(t, debit, credit, "tax line plus counter line balance")

	assert.Len(t, lines, 2, "input untouched")
	assert.Empty(t, lines[0].TaxLineID)
}

func TestApply_Twice_ReplacesTaxLine(t *testing.T) {
	first, err := Apply(draft(), "base", rate15, vatInput)
	require.NoError(t, err)
	second, err := Apply(first, "base", decimal.RequireFromString("0.10"), vatInput)
	require.NoError(t, err)

	require.Len(t, second, 3)
	assert.Equal(t, money.MustParse("100.00"), second[1].Debit)
	assert.NotEqual(t, first[1].ID, second[1].ID)
	assert.Equal(t, second[1].ID, second[0].TaxLineID)
}

func TestApply_UnknownBase(t *testing.T) {
	_, err := Apply(draft(), "missing", rate15, vatInput)
	assert.ErrorIs(t, err, ErrLineNotFound)
}

func TestRemove_ToggleOff(t *testing.T) {
	lines := []model.EntryLine{
		{ID: "base", AccountID: fuel, Debit: money.MustParse("1000.00")},
		{ID: "other", AccountID: 5112, Debit: money.MustParse("50.00")},
		{ID: "bank", AccountID: checking, Credit: money.MustParse("1050.00")},
	}
	withTax, err := Apply(lines, "base", rate15, vatInput)
	require.NoError(t, err)
	require.Len(t, withTax, 4)

	off := Remove(withTax, "base")
	assert.Equal(t, lines, off, "toggling off restores exactly the original lines")

	debit, credit := totals(off)
	assert.Equal(t, debit, credit)
}

func TestRemove_NoTaxIsNoop(t *testing.T) {
	lines := draft()
	assert.Equal(t, lines, Remove(lines, "base"))
	assert.Equal(t, lines, Remove(lines, "missing"))
}

func TestRemoveTaxLine(t *testing.T) {
	withTax, err := Apply(draft(), "base", rate15, vatInput)
	require.NoError(t, err)

	got := RemoveTaxLine(withTax, withTax[1].ID)
	require.Len(t, got, 2)
	assert.Empty(t, got[0].TaxLineID)

	assert.Equal(t, got, RemoveTaxLine(got, "bank"), "non-tax lines are not removed")
}

func TestDeleteLine_CascadesToTaxLine(t *testing.T) {
	withTax, err := Apply(draft(), "base", rate15, vatInput)
	require.NoError(t, err)

	got := DeleteLine(withTax, "base")
	require.Len(t, got, 1)
	assert.Equal(t, "bank", got[0].ID)

	got = DeleteLine(withTax, withTax[1].ID)
	require.Len(t, got, 2)
	assert.Empty(t, got[0].TaxLineID)

	got = DeleteLine(withTax, "bank")
	require.Len(t, got, 2)
	assert.Equal(t, got[1].ID, got[0].TaxLineID)

	assert.Len(t, DeleteLine(withTax, "missing"), 3)
}
