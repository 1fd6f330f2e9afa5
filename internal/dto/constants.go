package dto

// Action is a trade decision for one ticker on one day.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// RunMode selects how backtests are partitioned and how decisions are sourced.
type RunMode string

const (
	// RunModeModelsComparison runs one backtest per (ticker, model) pair,
	// each model's raw votes driving its own isolated portfolio.
	RunModeModelsComparison RunMode = "models_comparison"
	// RunModeTimeSpanComparison runs one backtest per (ticker, holding period),
	// decisions always from consensus over all models.
	RunModeTimeSpanComparison RunMode = "timespan_comparison"
	// RunModeUniverseScan runs one backtest per ticker across the universe,
	// decisions from consensus.
	RunModeUniverseScan RunMode = "universe_scan"
)

// HoldingUnit is the unit of a configured holding period.
type HoldingUnit string

const (
	HoldingUnitDay     HoldingUnit = "DAY" // trading days
	HoldingUnitWeek    HoldingUnit = "WEEK"
	HoldingUnitMonth   HoldingUnit = "MONTH"
	HoldingUnitQuarter HoldingUnit = "QUARTER"
	HoldingUnitYear    HoldingUnit = "YEAR"
)

// TaxModel determines when sale tax hits the portfolio.
type TaxModel string

const (
	// TaxModelWithholding deducts tax from sale proceeds at the moment of sale.
	TaxModelWithholding TaxModel = "WITHHOLDING"
	// TaxModelCumulative accrues tax as a liability against a running balance.
	TaxModelCumulative TaxModel = "CUMULATIVE"
)

// RunState is the lifecycle state of a backtest run.
type RunState string

const (
	RunStateInitializing RunState = "INITIALIZING"
	RunStateRunning      RunState = "RUNNING"
	RunStateFinalizing   RunState = "FINALIZING"
	RunStateCompleted    RunState = "COMPLETED"
	RunStateFailed       RunState = "FAILED"
	RunStateCancelled    RunState = "CANCELLED"
)

// AdjustDirection is the sign of a tax adjustment.
type AdjustDirection string

const (
	AdjustAdd   AdjustDirection = "ADD"
	AdjustMinus AdjustDirection = "MINUS"
)

// AdjustReason records why a tax adjustment was made.
type AdjustReason string

const (
	AdjustReasonCalculation AdjustReason = "CALCULATION_ADJUSTMENT"
	AdjustReasonTaxPaid     AdjustReason = "TAX_PAID"
)

func (u HoldingUnit) Valid() bool {
	switch u {
	case HoldingUnitDay, HoldingUnitWeek, HoldingUnitMonth, HoldingUnitQuarter, HoldingUnitYear:
		return true
	}
	return false
}

func (m TaxModel) Valid() bool {
	return m == TaxModelWithholding || m == TaxModelCumulative
}

func (m RunMode) Valid() bool {
	switch m {
	case RunModeModelsComparison, RunModeTimeSpanComparison, RunModeUniverseScan:
		return true
	}
	return false
}
