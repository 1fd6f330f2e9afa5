package dto

// ProfileRequest creates or updates a per-ticker profile.
type ProfileRequest struct {
	Name            string      `json:"name" validate:"required"`
	Ticker          string      `json:"ticker" validate:"required"`
	HoldingDuration int         `json:"holding_duration" validate:"required,gt=0"`
	HoldingUnit     HoldingUnit `json:"holding_unit" validate:"required"`
	HurdleRatePct   float64     `json:"hurdle_rate_pct"`
	TaxModel        TaxModel    `json:"tax_model" validate:"required"`
	InitialFund     string      `json:"initial_fund" validate:"required"`
	CommissionFlat  string      `json:"commission_flat"`
	CommissionPct   string      `json:"commission_pct"`
	MinCommission   string      `json:"min_commission"`
	SellTaxPct      string      `json:"sell_tax_pct"`
}
