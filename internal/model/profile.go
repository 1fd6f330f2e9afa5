package model

import (
	"time"

	"stock-backtest/internal/dto"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// FeeSchedule defines how commission and sale tax are computed for a profile.
// Commission = max(Flat + Pct*gross, Minimum).
type FeeSchedule struct {
	CommissionFlat decimal.Decimal `json:"commission_flat"`
	CommissionPct  decimal.Decimal `json:"commission_pct"` // e.g. 0.001 = 0.1%
	MinCommission  decimal.Decimal `json:"min_commission"`
	SellTaxPct     decimal.Decimal `json:"sell_tax_pct"` // applied to gross sale proceeds
}

// Commission computes the fee for a trade of the given gross value.
func (f FeeSchedule) Commission(gross decimal.Decimal) decimal.Decimal {
	c := f.CommissionFlat.Add(gross.Mul(f.CommissionPct))
	if c.LessThan(f.MinCommission) {
		return f.MinCommission
	}
	return c
}

// SellTax computes the tax owed on gross sale proceeds.
func (f FeeSchedule) SellTax(gross decimal.Decimal) decimal.Decimal {
	return gross.Mul(f.SellTaxPct)
}

// Profile is the per-ticker configuration. It is mutated only through
// explicit parameter updates and snapshotted at run start, so a running
// backtest never observes a change.
type Profile struct {
	ID              uint                            `gorm:"primaryKey" json:"id"`
	Name            string                          `gorm:"not null;uniqueIndex" json:"name"`
	Ticker          string                          `gorm:"not null" json:"ticker"`
	HoldingDuration int                             `gorm:"not null" json:"holding_duration"`
	HoldingUnit     dto.HoldingUnit                 `gorm:"not null" json:"holding_unit"`
	HurdleRatePct   float64                         `gorm:"not null" json:"hurdle_rate_pct"`
	TaxModel        dto.TaxModel                    `gorm:"not null" json:"tax_model"`
	InitialFund     decimal.Decimal                 `gorm:"type:numeric;not null" json:"initial_fund"`
	FeeSchedule     datatypes.JSONType[FeeSchedule] `gorm:"not null" json:"fee_schedule"`
	CreatedAt       time.Time                       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time                       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

// Snapshot is the immutable view of a profile used by one backtest run.
type Snapshot struct {
	ProfileID       uint
	Name            string
	Ticker          string
	HoldingDuration int
	HoldingUnit     dto.HoldingUnit
	HurdleRatePct   float64
	TaxModel        dto.TaxModel
	InitialFund     decimal.Decimal
	Fees            FeeSchedule
}

// Snapshot copies the profile's parameters into a run-local value.
func (p *Profile) Snapshot() Snapshot {
	return Snapshot{
		ProfileID:       p.ID,
		Name:            p.Name,
		Ticker:          p.Ticker,
		HoldingDuration: p.HoldingDuration,
		HoldingUnit:     p.HoldingUnit,
		HurdleRatePct:   p.HurdleRatePct,
		TaxModel:        p.TaxModel,
		InitialFund:     p.InitialFund,
		Fees:            p.FeeSchedule.Data(),
	}
}
