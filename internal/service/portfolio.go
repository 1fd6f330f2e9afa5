package service

import (
	"time"

	"stock-backtest/internal/dto"
	"stock-backtest/internal/model"

	"github.com/shopspring/decimal"
)

// TradeSnapshot captures the state transition produced by one committed
// buy/sell, in the exact shape the transaction ledger records.
type TradeSnapshot struct {
	CashBefore      decimal.Decimal
	CashAfter       decimal.Decimal
	PositionsBefore string
	PositionsAfter  string
	Gross           decimal.Decimal
	Commission      decimal.Decimal
	Tax             decimal.Decimal
	// RealizedPnL is set on sells: proceeds net of commission and tax minus
	// the cost basis of the sold units.
	RealizedPnL decimal.Decimal
}

// PortfolioStateMachine owns the cash/position state of one run and is the
// only component allowed to mutate it. Cash never goes negative after a
// committed trade.
type PortfolioStateMachine struct {
	state     model.PortfolioState
	fees      model.FeeSchedule
	taxModel  dto.TaxModel
	taxLedger *TaxLedger
}

func NewPortfolioStateMachine(snapshot model.Snapshot, taxLedger *TaxLedger) *PortfolioStateMachine {
	return &PortfolioStateMachine{
		state: model.PortfolioState{
			Cash:       snapshot.InitialFund,
			Positions:  make(map[string]model.Position),
			TaxPayable: decimal.Zero,
		},
		fees:      snapshot.Fees,
		taxModel:  snapshot.TaxModel,
		taxLedger: taxLedger,
	}
}

// CanBuy reports whether at least one unit is affordable at the given price,
// and how many whole units the cash covers: maxUnits = floor(cash / price).
// This is the pre-trade capacity filter: when it returns false for a ticker,
// signal generation is skipped entirely for that ticker/day.
func (p *PortfolioStateMachine) CanBuy(price decimal.Decimal) (bool, int64) {
	if price.IsZero() || price.IsNegative() {
		return false, 0
	}
	maxUnits := p.state.Cash.Div(price).Floor().IntPart()
	return maxUnits > 0, maxUnits
}

// MaxAffordableUnits is like CanBuy but accounts for commission, so the
// resulting buy is guaranteed to commit.
func (p *PortfolioStateMachine) MaxAffordableUnits(price decimal.Decimal) int64 {
	_, qty := p.CanBuy(price)
	for qty > 0 {
		gross := price.Mul(decimal.NewFromInt(qty))
		if gross.Add(p.fees.Commission(gross)).LessThanOrEqual(p.state.Cash) {
			return qty
		}
		qty--
	}
	return 0
}

// Buy debits cash by gross cost plus commission and credits the position.
func (p *PortfolioStateMachine) Buy(ticker string, date time.Time, price decimal.Decimal, quantity int64) (*TradeSnapshot, error) {
	gross := price.Mul(decimal.NewFromInt(quantity))
	commission := p.fees.Commission(gross)
	cost := gross.Add(commission)

	if cost.GreaterThan(p.state.Cash) {
		return nil, &dto.InsufficientCashError{
			Ticker:   ticker,
			Date:     date,
			Required: cost.String(),
			Cash:     p.state.Cash.String(),
		}
	}

	before := p.state.Clone()

	pos := p.state.Positions[ticker]
	newQty := pos.Quantity + quantity
	// Average cost basis across the merged lot.
	totalCost := pos.CostBasis.Mul(decimal.NewFromInt(pos.Quantity)).Add(gross)
	p.state.Positions[ticker] = model.Position{
		Quantity:  newQty,
		CostBasis: totalCost.Div(decimal.NewFromInt(newQty)),
	}
	p.state.Cash = p.state.Cash.Sub(cost)

	return &TradeSnapshot{
		CashBefore:      before.Cash,
		CashAfter:       p.state.Cash,
		PositionsBefore: before.EncodePositions(),
		PositionsAfter:  p.state.EncodePositions(),
		Gross:           gross,
		Commission:      commission,
		Tax:             decimal.Zero,
	}, nil
}

// Sell credits cash with sale proceeds. Under withholding, commission and tax
// are deducted from the proceeds at sale time; under cumulative, only the
// commission is deducted and the tax accrues as a liability on the tax ledger.
func (p *PortfolioStateMachine) Sell(ticker string, date time.Time, price decimal.Decimal, quantity int64) (*TradeSnapshot, error) {
	pos, ok := p.state.Positions[ticker]
	if !ok || pos.Quantity < quantity {
		return nil, &dto.InsufficientPositionError{
			Ticker:    ticker,
			Date:      date,
			Requested: quantity,
			Held:      pos.Quantity,
		}
	}

	before := p.state.Clone()

	gross := price.Mul(decimal.NewFromInt(quantity))
	commission := p.fees.Commission(gross)
	tax := p.fees.SellTax(gross)

	proceeds := gross.Sub(commission)
	if p.taxModel == dto.TaxModelWithholding {
		proceeds = proceeds.Sub(tax)
	} else {
		p.taxLedger.Accrue(tax)
	}
	p.state.Cash = p.state.Cash.Add(proceeds)
	p.state.TaxPayable = p.taxLedger.TaxPayable()

	remaining := pos.Quantity - quantity
	if remaining == 0 {
		delete(p.state.Positions, ticker)
	} else {
		p.state.Positions[ticker] = model.Position{Quantity: remaining, CostBasis: pos.CostBasis}
	}

	costOfSold := pos.CostBasis.Mul(decimal.NewFromInt(quantity))

	return &TradeSnapshot{
		CashBefore:      before.Cash,
		CashAfter:       p.state.Cash,
		PositionsBefore: before.EncodePositions(),
		PositionsAfter:  p.state.EncodePositions(),
		Gross:           gross,
		Commission:      commission,
		Tax:             tax,
		RealizedPnL:     proceeds.Sub(costOfSold),
	}, nil
}

// Position returns the held lot for a ticker, zero-valued when flat.
func (p *PortfolioStateMachine) Position(ticker string) model.Position {
	return p.state.Positions[ticker]
}

// State returns a copy of the current portfolio state.
func (p *PortfolioStateMachine) State() model.PortfolioState {
	return p.state.Clone()
}

// Equity values the portfolio at the given mark price: cash plus all held
// units. Used by the drawdown tracker and the end-of-run valuation.
func (p *PortfolioStateMachine) Equity(mark decimal.Decimal) decimal.Decimal {
	equity := p.state.Cash
	for _, pos := range p.state.Positions {
		equity = equity.Add(mark.Mul(decimal.NewFromInt(pos.Quantity)))
	}
	return equity
}
