package model

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"stock-backtest/internal/dto"

	"github.com/shopspring/decimal"
)

// Position is one held lot: quantity plus average cost basis per unit.
type Position struct {
	Quantity  int64           `json:"quantity"`
	CostBasis decimal.Decimal `json:"cost_basis"`
}

// PortfolioState is the cash/position state of one active backtest run.
// It lives only for the duration of the run and is never persisted.
type PortfolioState struct {
	Cash       decimal.Decimal     `json:"cash"`
	Positions  map[string]Position `json:"positions"`
	TaxPayable decimal.Decimal     `json:"tax_payable"` // cumulative tax model only
}

// Clone returns a deep copy, used for before/after ledger snapshots.
func (s PortfolioState) Clone() PortfolioState {
	positions := make(map[string]Position, len(s.Positions))
	for k, v := range s.Positions {
		positions[k] = v
	}
	return PortfolioState{
		Cash:       s.Cash,
		Positions:  positions,
		TaxPayable: s.TaxPayable,
	}
}

// EncodePositions renders positions as a stable "TICKER:qty@basis" list,
// sorted by ticker so identical states always encode identically.
func (s PortfolioState) EncodePositions() string {
	if len(s.Positions) == 0 {
		return "-"
	}
	tickers := make([]string, 0, len(s.Positions))
	for t := range s.Positions {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	parts := make([]string, 0, len(tickers))
	for _, t := range tickers {
		p := s.Positions[t]
		parts = append(parts, fmt.Sprintf("%s:%d@%s", t, p.Quantity, p.CostBasis.String()))
	}
	return strings.Join(parts, ";")
}

// LedgerEntry is one append-only record of a transaction or HOLD event.
type LedgerEntry struct {
	Date            time.Time
	Ticker          string
	Action          dto.Action
	Quantity        int64
	Price           decimal.Decimal
	TotalValue      decimal.Decimal
	Commission      decimal.Decimal
	CashBefore      decimal.Decimal
	CashAfter       decimal.Decimal
	PositionsBefore string
	PositionsAfter  string
	Strategy        string
	ModelVotes      map[string]dto.ModelVote
	Confidence      float64
	Notes           string
}

// TaxAdjustment is an append-only correction to the cumulative tax balance.
type TaxAdjustment struct {
	Direction dto.AdjustDirection
	Reason    dto.AdjustReason
	Amount    decimal.Decimal
	Date      time.Time
}
