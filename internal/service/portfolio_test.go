package service

import (
	"testing"

	"stock-backtest/internal/dto"
	"stock-backtest/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMachine(t *testing.T, taxModel dto.TaxModel) (*PortfolioStateMachine, *TaxLedger) {
	t.Helper()
	ledger := NewTaxLedger(taxModel)
	return NewPortfolioStateMachine(testSnapshot(t, taxModel), ledger), ledger
}

func TestBuy_FlatCommission(t *testing.T) {
	psm, _ := newMachine(t, dto.TaxModelWithholding)

	// 10000 - 50*15.25 - 9.95 = 9227.55
	snap, err := psm.Buy("ACME", mustDate(t, "2026-02-06"), dec(t, "15.25"), 50)
	require.NoError(t, err)

	assert.True(t, snap.CashBefore.Equal(dec(t, "10000")), "cash before %s", snap.CashBefore)
	assert.True(t, snap.CashAfter.Equal(dec(t, "9227.55")), "cash after %s", snap.CashAfter)
	assert.True(t, snap.Gross.Equal(dec(t, "762.50")))
	assert.True(t, snap.Commission.Equal(dec(t, "9.95")))
	assert.Equal(t, "-", snap.PositionsBefore)
	assert.Equal(t, "ACME:50@15.25", snap.PositionsAfter)

	pos := psm.Position("ACME")
	assert.Equal(t, int64(50), pos.Quantity)
	assert.True(t, pos.CostBasis.Equal(dec(t, "15.25")))
}

func TestSell_Withholding(t *testing.T) {
	psm, _ := newMachine(t, dto.TaxModelWithholding)

	_, err := psm.Buy("ACME", mustDate(t, "2026-02-06"), dec(t, "15.25"), 50)
	require.NoError(t, err)

	// Gross 890, commission 9.95, no sell tax configured:
	// proceeds 880.05, cost of sold 762.50, pnl 117.55.
	snap, err := psm.Sell("ACME", mustDate(t, "2026-03-10"), dec(t, "17.80"), 50)
	require.NoError(t, err)

	assert.True(t, snap.Gross.Equal(dec(t, "890")))
	assert.True(t, snap.RealizedPnL.Equal(dec(t, "117.55")), "pnl %s", snap.RealizedPnL)
	assert.True(t, snap.CashAfter.Equal(dec(t, "10107.60")), "cash after %s", snap.CashAfter)
	assert.Equal(t, "-", snap.PositionsAfter)
	assert.Equal(t, int64(0), psm.Position("ACME").Quantity)
}

func TestSell_WithholdingDeductsTaxFromProceeds(t *testing.T) {
	ledger := NewTaxLedger(dto.TaxModelWithholding)
	snapCfg := testSnapshot(t, dto.TaxModelWithholding)
	snapCfg.Fees.SellTaxPct = dec(t, "0.01")
	psm := NewPortfolioStateMachine(snapCfg, ledger)

	_, err := psm.Buy("ACME", mustDate(t, "2026-02-06"), dec(t, "100"), 10)
	require.NoError(t, err)

	snap, err := psm.Sell("ACME", mustDate(t, "2026-02-10"), dec(t, "100"), 10)
	require.NoError(t, err)

	// Tax 10.00 comes straight out of proceeds, liability stays at zero.
	assert.True(t, snap.Tax.Equal(dec(t, "10")))
	assert.True(t, ledger.TaxPayable().IsZero())
	assert.True(t, psm.State().TaxPayable.IsZero())
	wantCash := dec(t, "10000").
		Sub(dec(t, "1000")).Sub(dec(t, "9.95")). // buy
		Add(dec(t, "1000").Sub(dec(t, "9.95")).Sub(dec(t, "10"))) // sell
	assert.True(t, psm.State().Cash.Equal(wantCash), "cash %s want %s", psm.State().Cash, wantCash)
}

func TestSell_CumulativeAccruesLiability(t *testing.T) {
	ledger := NewTaxLedger(dto.TaxModelCumulative)
	snapCfg := testSnapshot(t, dto.TaxModelCumulative)
	snapCfg.Fees.SellTaxPct = dec(t, "0.01")
	psm := NewPortfolioStateMachine(snapCfg, ledger)

	_, err := psm.Buy("ACME", mustDate(t, "2026-02-06"), dec(t, "100"), 10)
	require.NoError(t, err)

	snap, err := psm.Sell("ACME", mustDate(t, "2026-02-10"), dec(t, "100"), 10)
	require.NoError(t, err)

	// Commission only is deducted from proceeds; tax becomes a liability.
	assert.True(t, snap.Tax.Equal(dec(t, "10")))
	assert.True(t, ledger.TaxPayable().Equal(dec(t, "10")))
	assert.True(t, psm.State().TaxPayable.Equal(dec(t, "10")))
	wantCash := dec(t, "10000").
		Sub(dec(t, "1000")).Sub(dec(t, "9.95")).
		Add(dec(t, "1000").Sub(dec(t, "9.95")))
	assert.True(t, psm.State().Cash.Equal(wantCash), "cash %s want %s", psm.State().Cash, wantCash)
}

func TestBuy_InsufficientCash(t *testing.T) {
	psm, _ := newMachine(t, dto.TaxModelWithholding)

	_, err := psm.Buy("ACME", mustDate(t, "2026-02-06"), dec(t, "100"), 100)
	require.Error(t, err)
	var insufficient *dto.InsufficientCashError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "ACME", insufficient.Ticker)

	// Failed buy leaves state untouched.
	assert.True(t, psm.State().Cash.Equal(dec(t, "10000")))
	assert.Empty(t, psm.State().Positions)
}

func TestSell_InsufficientPosition(t *testing.T) {
	psm, _ := newMachine(t, dto.TaxModelWithholding)

	_, err := psm.Sell("ACME", mustDate(t, "2026-02-06"), dec(t, "15.25"), 1)
	var insufficient *dto.InsufficientPositionError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(0), insufficient.Held)

	_, err = psm.Buy("ACME", mustDate(t, "2026-02-06"), dec(t, "15.25"), 10)
	require.NoError(t, err)
	_, err = psm.Sell("ACME", mustDate(t, "2026-02-09"), dec(t, "15.25"), 11)
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(10), insufficient.Held)
}

func TestCanBuy(t *testing.T) {
	snapCfg := testSnapshot(t, dto.TaxModelWithholding)
	snapCfg.InitialFund = dec(t, "50")
	psm := NewPortfolioStateMachine(snapCfg, NewTaxLedger(dto.TaxModelWithholding))

	ok, units := psm.CanBuy(dec(t, "55"))
	assert.False(t, ok)
	assert.Equal(t, int64(0), units)

	ok, units = psm.CanBuy(dec(t, "12.50"))
	assert.True(t, ok)
	assert.Equal(t, int64(4), units)

	ok, _ = psm.CanBuy(decimal.Zero)
	assert.False(t, ok)
}

func TestMaxAffordableUnits_AccountsForCommission(t *testing.T) {
	// Cash exactly covers 4 units gross but not 4 units plus commission.
	snapCfg := testSnapshot(t, dto.TaxModelWithholding)
	snapCfg.InitialFund = dec(t, "50")
	snapCfg.Fees.CommissionFlat = dec(t, "1")
	psm := NewPortfolioStateMachine(snapCfg, NewTaxLedger(dto.TaxModelWithholding))

	assert.Equal(t, int64(3), psm.MaxAffordableUnits(dec(t, "12.50")))

	snap, err := psm.Buy("ACME", mustDate(t, "2026-02-06"), dec(t, "12.50"), 3)
	require.NoError(t, err)
	assert.False(t, snap.CashAfter.IsNegative())
}

func TestBuy_AverageCostBasisMerge(t *testing.T) {
	psm, _ := newMachine(t, dto.TaxModelWithholding)

	_, err := psm.Buy("ACME", mustDate(t, "2026-02-06"), dec(t, "10"), 10)
	require.NoError(t, err)
	_, err = psm.Buy("ACME", mustDate(t, "2026-02-09"), dec(t, "20"), 10)
	require.NoError(t, err)

	pos := psm.Position("ACME")
	assert.Equal(t, int64(20), pos.Quantity)
	assert.True(t, pos.CostBasis.Equal(dec(t, "15")), "basis %s", pos.CostBasis)
}

func TestEquity(t *testing.T) {
	psm, _ := newMachine(t, dto.TaxModelWithholding)

	_, err := psm.Buy("ACME", mustDate(t, "2026-02-06"), dec(t, "15.25"), 50)
	require.NoError(t, err)

	// 9227.55 cash + 50 * 16.00 marked.
	assert.True(t, psm.Equity(dec(t, "16")).Equal(dec(t, "10027.55")))
}

func TestPortfolioState_Clone(t *testing.T) {
	psm, _ := newMachine(t, dto.TaxModelWithholding)
	_, err := psm.Buy("ACME", mustDate(t, "2026-02-06"), dec(t, "15.25"), 50)
	require.NoError(t, err)

	state := psm.State()
	state.Positions["ACME"] = model.Position{Quantity: 1}
	assert.Equal(t, int64(50), psm.Position("ACME").Quantity)
}
