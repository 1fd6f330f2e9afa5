package service

import (
	"time"

	"stock-backtest/internal/dto"
	"stock-backtest/internal/model"

	"github.com/shopspring/decimal"
)

// TaxLedger tracks the running tax liability of one backtest run. Under the
// withholding model the balance is pinned at zero, because tax is deducted
// from sale proceeds at the moment of sale instead.
type TaxLedger struct {
	taxModel    dto.TaxModel
	taxPayable  decimal.Decimal
	adjustments []model.TaxAdjustment
}

func NewTaxLedger(taxModel dto.TaxModel) *TaxLedger {
	return &TaxLedger{
		taxModel:   taxModel,
		taxPayable: decimal.Zero,
	}
}

// Accrue increases the liability on a SELL. No-op under withholding.
func (t *TaxLedger) Accrue(amount decimal.Decimal) {
	if t.taxModel != dto.TaxModelCumulative {
		return
	}
	t.taxPayable = t.taxPayable.Add(amount)
}

// Adjust applies an explicit correction and records it. Adjustments are
// append-only and never mutated after creation.
func (t *TaxLedger) Adjust(direction dto.AdjustDirection, reason dto.AdjustReason, amount decimal.Decimal, date time.Time) model.TaxAdjustment {
	adj := model.TaxAdjustment{
		Direction: direction,
		Reason:    reason,
		Amount:    amount,
		Date:      date,
	}
	t.adjustments = append(t.adjustments, adj)

	if t.taxModel == dto.TaxModelCumulative {
		if direction == dto.AdjustAdd {
			t.taxPayable = t.taxPayable.Add(amount)
		} else {
			t.taxPayable = t.taxPayable.Sub(amount)
			if t.taxPayable.IsNegative() {
				t.taxPayable = decimal.Zero
			}
		}
	}
	return adj
}

// TaxPayable returns the current liability balance.
func (t *TaxLedger) TaxPayable() decimal.Decimal {
	return t.taxPayable
}

// Adjustments returns the append-only adjustment history.
func (t *TaxLedger) Adjustments() []model.TaxAdjustment {
	return t.adjustments
}

// NetSpendableCapital is cash minus the accrued liability, clamped at zero.
func (t *TaxLedger) NetSpendableCapital(cash decimal.Decimal) decimal.Decimal {
	net := cash.Sub(t.taxPayable)
	if net.IsNegative() {
		return decimal.Zero
	}
	return net
}
