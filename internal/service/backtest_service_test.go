package service

import (
	"context"
	"os"
	"strings"
	"testing"

	"stock-backtest/internal/dto"
	"stock-backtest/internal/model"
	"stock-backtest/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buyVotes() map[string]dto.ModelVote {
	return map[string]dto.ModelVote{
		"alpha": {Action: dto.ActionBuy, Confidence: 0.8},
		"beta":  {Action: dto.ActionBuy, Confidence: 0.6},
	}
}

func holdVotes() map[string]dto.ModelVote {
	return map[string]dto.ModelVote{
		"alpha": {Action: dto.ActionHold, Confidence: 0.5},
		"beta":  {Action: dto.ActionHold, Confidence: 0.5},
	}
}

func newBacktestService(t *testing.T, market *fakeMarketDataRepo, taxModel dto.TaxModel) (BacktestService, *RunManager, string) {
	t.Helper()
	cfg := testConfig(t)
	log := testLogger(t)

	profiles := &fakeProfileRepo{profiles: map[uint]model.Profile{
		1: testProfile(t, 1, taxModel),
	}}
	calendarSvc := NewCalendarService(cfg, log, &fakeHolidayRepo{}, cache.NewCache(cfg.Cache.DefaultExpiration, cfg.Cache.CleanupInterval))
	manager := NewRunManager()
	svc := NewBacktestService(cfg, log, calendarSvc, profiles, market, manager)
	return svc, manager, cfg.Backtest.OutputDir
}

func TestRunBacktestSync_UniverseScan(t *testing.T) {
	// 2026-06-01 (MON) through 2026-06-03 (WED), no holidays. BUY signal on
	// day one, holding period of two trading days forces the exit on day three.
	market := &fakeMarketDataRepo{quotes: map[string]*dto.DailyQuote{
		"2026-06-01": quote("100", buyVotes()),
		"2026-06-02": quote("105", holdVotes()),
		"2026-06-03": quote("110", holdVotes()),
	}}
	svc, _, _ := newBacktestService(t, market, dto.TaxModelWithholding)

	result, err := svc.RunBacktestSync(context.Background(), dto.BacktestRequest{
		ProfileIDs: []uint{1},
		Mode:       dto.RunModeUniverseScan,
		StartDate:  mustDate(t, "2026-06-01"),
		EndDate:    mustDate(t, "2026-06-03"),
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, dto.RunStateCompleted, result.State)
	require.Len(t, result.Combinations, 1)

	sum := result.Combinations[0]
	assert.Equal(t, "ACME", sum.Ticker)
	assert.Equal(t, "acme_consensus", sum.Strategy)
	assert.Equal(t, 3, sum.TradingDays)
	assert.Equal(t, "2026-06-01(MON)", sum.StartDate)
	assert.Equal(t, "2026-06-03(WED)", sum.EndDate)

	// Buy 99 units at 100 (9900 + 9.95 fee), sell at 110 (10890 - 9.95):
	// final cash 10970.10 on an initial 10000.
	assert.Equal(t, "10970.1", sum.FinalValue)
	assert.Equal(t, "970.1", sum.TotalReturn)
	assert.Equal(t, 2, sum.TotalTrades)
	assert.Equal(t, 1, sum.WinningTrades)
	assert.Equal(t, 0, sum.LosingTrades)
	assert.Equal(t, 100.0, sum.WinRate)
	// Held from 2026-06-01 to 2026-06-03, two trading days. No losing trade,
	// so profit factor stays at its zero default.
	assert.Equal(t, 2.0, sum.AvgHoldingDays)
	assert.Equal(t, 0.0, sum.ProfitFactor)
	assert.True(t, sum.HurdleCleared)
	assert.Empty(t, sum.TaxPayable)

	raw, err := os.ReadFile(sum.LedgerPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "2026-06-01(MON),ACME,BUY,99,100,9900,9.95,10000,90.05")
	assert.Contains(t, lines[1], "exit target 2026-06-03(WED)")
	assert.Contains(t, lines[2], "2026-06-03(WED),ACME,SELL,99,110,10890,9.95,90.05,10970.1")
	assert.Contains(t, lines[2], "holding period reached")

	// No entry ever lands on a non-trading day.
	for _, line := range lines[1:] {
		assert.NotContains(t, line, "(SAT)")
		assert.NotContains(t, line, "(SUN)")
	}
}

func TestRunBacktestSync_GapToleranceBreach(t *testing.T) {
	// One quote, then four consecutive missing days against a tolerance of
	// three: the combination fails and leaves no partial artifact.
	market := &fakeMarketDataRepo{quotes: map[string]*dto.DailyQuote{
		"2026-06-08": quote("100", holdVotes()),
	}}
	svc, _, outputDir := newBacktestService(t, market, dto.TaxModelWithholding)

	result, err := svc.RunBacktestSync(context.Background(), dto.BacktestRequest{
		ProfileIDs: []uint{1},
		Mode:       dto.RunModeUniverseScan,
		StartDate:  mustDate(t, "2026-06-08"),
		EndDate:    mustDate(t, "2026-06-19"),
	})
	require.NoError(t, err)

	assert.Equal(t, dto.RunStateFailed, result.State)
	assert.Contains(t, result.Error, "consecutive gaps exceeds tolerance")
	assert.Empty(t, result.Combinations)

	entries, err := os.ReadDir(outputDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunBacktestSync_ForwardFillWithinTolerance(t *testing.T) {
	// 2026-07-07 is missing; the previous day's quote is carried forward and
	// the run still completes.
	market := &fakeMarketDataRepo{quotes: map[string]*dto.DailyQuote{
		"2026-07-06": quote("100", holdVotes()),
		"2026-07-08": quote("101", holdVotes()),
		"2026-07-09": quote("102", holdVotes()),
		"2026-07-10": quote("103", holdVotes()),
	}}
	svc, _, _ := newBacktestService(t, market, dto.TaxModelWithholding)

	result, err := svc.RunBacktestSync(context.Background(), dto.BacktestRequest{
		ProfileIDs: []uint{1},
		Mode:       dto.RunModeUniverseScan,
		StartDate:  mustDate(t, "2026-07-06"),
		EndDate:    mustDate(t, "2026-07-10"),
	})
	require.NoError(t, err)

	assert.Equal(t, dto.RunStateCompleted, result.State)
	require.Len(t, result.Combinations, 1)
	assert.Equal(t, 1, result.Combinations[0].ForwardFilledDays)
	assert.Equal(t, 0, result.Combinations[0].TotalTrades)
}

func TestRunBacktestSync_ModelsComparison(t *testing.T) {
	// alpha signals BUY on day one, beta never does: two isolated portfolios,
	// only alpha trades.
	market := &fakeMarketDataRepo{quotes: map[string]*dto.DailyQuote{
		"2026-08-03": quote("100", map[string]dto.ModelVote{
			"alpha": {Action: dto.ActionBuy, Confidence: 0.9},
			"beta":  {Action: dto.ActionHold, Confidence: 0.5},
		}),
		"2026-08-04": quote("105", holdVotes()),
		"2026-08-05": quote("110", holdVotes()),
	}}
	svc, _, _ := newBacktestService(t, market, dto.TaxModelWithholding)

	result, err := svc.RunBacktestSync(context.Background(), dto.BacktestRequest{
		ProfileIDs: []uint{1},
		Mode:       dto.RunModeModelsComparison,
		StartDate:  mustDate(t, "2026-08-03"),
		EndDate:    mustDate(t, "2026-08-05"),
		Models:     []string{"alpha", "beta"},
	})
	require.NoError(t, err)

	assert.Equal(t, dto.RunStateCompleted, result.State)
	require.Len(t, result.Combinations, 2)

	byStrategy := map[string]dto.CombinationSummary{}
	for _, c := range result.Combinations {
		byStrategy[c.Strategy] = c
	}
	require.Contains(t, byStrategy, "acme_alpha")
	require.Contains(t, byStrategy, "acme_beta")
	assert.Equal(t, 2, byStrategy["acme_alpha"].TotalTrades)
	assert.Equal(t, 0, byStrategy["acme_beta"].TotalTrades)
	assert.Equal(t, "10000", byStrategy["acme_beta"].FinalValue)
}

func TestRunBacktestSync_TimeSpanComparison(t *testing.T) {
	market := &fakeMarketDataRepo{quotes: map[string]*dto.DailyQuote{
		"2026-09-07": quote("100", buyVotes()),
		"2026-09-08": quote("101", holdVotes()),
		"2026-09-09": quote("102", holdVotes()),
		"2026-09-10": quote("103", holdVotes()),
		"2026-09-11": quote("104", holdVotes()),
	}}
	svc, _, _ := newBacktestService(t, market, dto.TaxModelWithholding)

	result, err := svc.RunBacktestSync(context.Background(), dto.BacktestRequest{
		ProfileIDs: []uint{1},
		Mode:       dto.RunModeTimeSpanComparison,
		StartDate:  mustDate(t, "2026-09-07"),
		EndDate:    mustDate(t, "2026-09-11"),
		HoldingPeriods: []dto.HoldingPeriod{
			{Duration: 1, Unit: dto.HoldingUnitDay},
			{Duration: 3, Unit: dto.HoldingUnitDay},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, dto.RunStateCompleted, result.State)
	require.Len(t, result.Combinations, 2)

	byStrategy := map[string]dto.CombinationSummary{}
	for _, c := range result.Combinations {
		byStrategy[c.Strategy] = c
	}
	require.Contains(t, byStrategy, "acme_1day")
	require.Contains(t, byStrategy, "acme_3day")

	// Both exit their first position, the shorter one earlier and cheaper.
	assert.Equal(t, 2, byStrategy["acme_1day"].TotalTrades)
	assert.Equal(t, 2, byStrategy["acme_3day"].TotalTrades)
}

func TestRunBacktestSync_ByteIdenticalLedgers(t *testing.T) {
	run := func() []byte {
		market := &fakeMarketDataRepo{quotes: map[string]*dto.DailyQuote{
			"2026-10-05": quote("100", buyVotes()),
			"2026-10-06": quote("105", holdVotes()),
			"2026-10-07": quote("110", holdVotes()),
		}}
		svc, _, _ := newBacktestService(t, market, dto.TaxModelWithholding)
		result, err := svc.RunBacktestSync(context.Background(), dto.BacktestRequest{
			ProfileIDs: []uint{1},
			Mode:       dto.RunModeUniverseScan,
			StartDate:  mustDate(t, "2026-10-05"),
			EndDate:    mustDate(t, "2026-10-07"),
		})
		require.NoError(t, err)
		require.Len(t, result.Combinations, 1)
		raw, err := os.ReadFile(result.Combinations[0].LedgerPath)
		require.NoError(t, err)
		return raw
	}

	assert.Equal(t, run(), run())
}

func TestPrepare_Validation(t *testing.T) {
	market := &fakeMarketDataRepo{quotes: map[string]*dto.DailyQuote{}}
	svc, _, _ := newBacktestService(t, market, dto.TaxModelWithholding)

	tests := []struct {
		name string
		req  dto.BacktestRequest
	}{
		{
			name: "invalid mode",
			req:  dto.BacktestRequest{ProfileIDs: []uint{1}, Mode: dto.RunMode("bogus")},
		},
		{
			name: "unknown profile",
			req:  dto.BacktestRequest{ProfileIDs: []uint{99}, Mode: dto.RunModeUniverseScan},
		},
		{
			name: "models comparison without models",
			req:  dto.BacktestRequest{ProfileIDs: []uint{1}, Mode: dto.RunModeModelsComparison},
		},
		{
			name: "timespan comparison without periods",
			req:  dto.BacktestRequest{ProfileIDs: []uint{1}, Mode: dto.RunModeTimeSpanComparison},
		},
		{
			name: "invalid holding unit",
			req: dto.BacktestRequest{
				ProfileIDs:     []uint{1},
				Mode:           dto.RunModeTimeSpanComparison,
				HoldingPeriods: []dto.HoldingPeriod{{Duration: 1, Unit: dto.HoldingUnit("FORTNIGHT")}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RunBacktestSync(context.Background(), tt.req)
			assert.Error(t, err)
		})
	}
}

func TestRunBacktestSync_CumulativeTaxInSummary(t *testing.T) {
	market := &fakeMarketDataRepo{quotes: map[string]*dto.DailyQuote{
		"2026-11-02": quote("100", buyVotes()),
		"2026-11-03": quote("105", holdVotes()),
		"2026-11-04": quote("110", holdVotes()),
	}}
	svc, _, _ := newBacktestService(t, market, dto.TaxModelCumulative)

	result, err := svc.RunBacktestSync(context.Background(), dto.BacktestRequest{
		ProfileIDs: []uint{1},
		Mode:       dto.RunModeUniverseScan,
		StartDate:  mustDate(t, "2026-11-02"),
		EndDate:    mustDate(t, "2026-11-04"),
	})
	require.NoError(t, err)
	require.Len(t, result.Combinations, 1)

	// Zero sell tax configured, but under cumulative the field is reported.
	assert.Equal(t, "0", result.Combinations[0].TaxPayable)
}
