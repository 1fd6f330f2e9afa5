package dto

import "time"

// BacktestRequest defines the parameters for launching a backtest run.
type BacktestRequest struct {
	ProfileIDs []uint    `json:"profile_ids" validate:"required,min=1"`
	Mode       RunMode   `json:"mode" validate:"required"`
	StartDate  time.Time `json:"start_date" validate:"required"`
	EndDate    time.Time `json:"end_date" validate:"required,gtfield=StartDate"`

	// HoldingPeriods applies to timespan_comparison mode only: one backtest
	// per (ticker, holding period) pair.
	HoldingPeriods []HoldingPeriod `json:"holding_periods,omitempty"`

	// Models applies to models_comparison mode only: one backtest per
	// (ticker, model) pair, each driven by that model's raw votes.
	Models []string `json:"models,omitempty"`
}

// HoldingPeriod is a duration plus its unit.
type HoldingPeriod struct {
	Duration int         `json:"duration" validate:"required,gt=0"`
	Unit     HoldingUnit `json:"unit" validate:"required"`
}

// RunProgress reports completed/total combinations for a run handle.
type RunProgress struct {
	RunID     string   `json:"run_id"`
	State     RunState `json:"state"`
	Completed int      `json:"completed"`
	Total     int      `json:"total"`
}

// CombinationSummary aggregates the outcome of one (ticker x strategy)
// simulation within a run.
type CombinationSummary struct {
	Ticker            string   `json:"ticker"`
	Strategy          string   `json:"strategy"`
	StartDate         string   `json:"start_date"`
	EndDate           string   `json:"end_date"`
	InitialFund       string   `json:"initial_fund"`
	FinalValue        string   `json:"final_value"`
	TotalReturn       string   `json:"total_return"`
	ReturnPct         float64  `json:"return_pct"`
	HurdleCleared     bool     `json:"hurdle_cleared"`
	TotalTrades       int      `json:"total_trades"`
	WinningTrades     int      `json:"winning_trades"`
	LosingTrades      int      `json:"losing_trades"`
	WinRate           float64  `json:"win_rate"`
	ProfitFactor      float64  `json:"profit_factor"`
	AvgHoldingDays    float64  `json:"avg_holding_days"`
	MaxDrawdownPct    float64  `json:"max_drawdown_pct"`
	TaxPayable        string   `json:"tax_payable,omitempty"`
	LedgerPath        string   `json:"ledger_path"`
	Warnings          []string `json:"warnings,omitempty"`
	TradingDays       int      `json:"trading_days"`
	ForwardFilledDays int      `json:"forward_filled_days"`
}

// RunResult is the terminal report for a whole run.
type RunResult struct {
	RunID        string               `json:"run_id"`
	Mode         RunMode              `json:"mode"`
	State        RunState             `json:"state"`
	StartedAt    time.Time            `json:"started_at"`
	FinishedAt   time.Time            `json:"finished_at"`
	Combinations []CombinationSummary `json:"combinations"`
	Error        string               `json:"error,omitempty"`
}
