// Package tax derives VAT lines from base entry lines. A generated line is
// owned by its base line: it is inserted, replaced and deleted with it.
package tax

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledgercore/internal/model"
	"github.com/cleared-dev/ledgercore/internal/money"
)

var (
	ErrNegativeRate = errors.New("negative tax rate")
	ErrInvalidBase  = errors.New("invalid base line")
	ErrZeroTax      = errors.New("tax rounds to zero")
	ErrLineNotFound = errors.New("line not found")
)

var hundred = decimal.NewFromInt(100)

// Amount returns base*rate rounded half away from zero to whole cents.
func Amount(base money.Money, rate decimal.Decimal) money.Money {
	return money.FromDecimal(base.Decimal().Mul(rate))
}

// DeriveTaxLine builds the tax line for base on taxAccount. The tax line
// sits on the same side as base.
func DeriveTaxLine(base model.EntryLine, rate decimal.Decimal, taxAccount int) (model.EntryLine, error) {
	if rate.IsNegative() {
		return model.EntryLine{}, fmt.Errorf("%w: %s", ErrNegativeRate, rate)
	}
	switch {
	case base.ID == "":
		return model.EntryLine{}, fmt.Errorf("%w: line has no id", ErrInvalidBase)
	case base.TaxOf != "":
		return model.EntryLine{}, fmt.Errorf("%w: %s is itself a tax line", ErrInvalidBase, base.ID)
	case !base.IsDebit() && !base.IsCredit():
		return model.EntryLine{}, fmt.Errorf("%w: %s must have exactly one side set", ErrInvalidBase, base.ID)
	}

	amount := Amount(base.Amount(), rate)
	if amount.IsZero() {
		return model.EntryLine{}, fmt.Errorf("%w: %s at %s", ErrZeroTax, base.Amount(), rate)
	}

	line := model.EntryLine{
		ID:          uuid.NewString(),
		AccountID:   taxAccount,
		Description: fmt.Sprintf("VAT %s%% on %s", rate.Mul(hundred).String(), base.Description),
		TaxOf:       base.ID,
	}
	if base.IsDebit() {
		line.Debit = amount
	} else {
		line.Credit = amount
	}
	return line, nil
}

// Apply attaches a tax line to the line baseID, inserting it directly after
// the base. An existing tax line on the base is replaced. The input slice is
// not modified.
func Apply(lines []model.EntryLine, baseID string, rate decimal.Decimal, taxAccount int) ([]model.EntryLine, error) {
	out := Remove(lines, baseID)
	i := index(out, baseID)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrLineNotFound, baseID)
	}

	taxLine, err := DeriveTaxLine(out[i], rate, taxAccount)
	if err != nil {
		return nil, err
	}
	out[i].TaxLineID = taxLine.ID
	return slices.Insert(out, i+1, taxLine), nil
}

// Remove toggles tax off for baseID: exactly its generated line is dropped
// and the back-reference cleared. Every other line is left as is.
func Remove(lines []model.EntryLine, baseID string) []model.EntryLine {
	out := slices.Clone(lines)
	i := index(out, baseID)
	if i < 0 || out[i].TaxLineID == "" {
		return out
	}
	taxID := out[i].TaxLineID
	out[i].TaxLineID = ""
	return slices.DeleteFunc(out, func(l model.EntryLine) bool {
		return l.ID == taxID && l.TaxOf == baseID
	})
}

// RemoveTaxLine deletes the tax line taxID and clears its base's reference.
func RemoveTaxLine(lines []model.EntryLine, taxID string) []model.EntryLine {
	out := slices.Clone(lines)
	i := index(out, taxID)
	if i < 0 || out[i].TaxOf == "" {
		return out
	}
	if b := index(out, out[i].TaxOf); b >= 0 && out[b].TaxLineID == taxID {
		out[b].TaxLineID = ""
	}
	return slices.Delete(out, i, i+1)
}

// DeleteLine removes the line id. Deleting a base line deletes its tax line
// too; deleting a tax line clears its base's reference.
func DeleteLine(lines []model.EntryLine, id string) []model.EntryLine {
	i := index(lines, id)
	if i < 0 {
		return slices.Clone(lines)
	}
	if lines[i].TaxOf != "" {
		return RemoveTaxLine(lines, id)
	}
	out := Remove(lines, id)
	return slices.DeleteFunc(out, func(l model.EntryLine) bool { return l.ID == id })
}

func index(lines []model.EntryLine, id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(lines, func(l model.EntryLine) bool { return l.ID == id })
}
