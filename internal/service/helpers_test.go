package service

import (
	"context"
	"testing"
	"time"

	"stock-backtest/config"
	"stock-backtest/internal/dto"
	"stock-backtest/internal/model"
	"stock-backtest/internal/repository"
	"stock-backtest/pkg/logger"
	"stock-backtest/pkg/utils"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := utils.ParseDate(s)
	if err != nil {
		t.Fatalf("bad date %q: %v", s, err)
	}
	return parsed
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("error", "console")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Calendar: config.Calendar{Market: "KRX"},
		Backtest: config.Backtest{
			MaxConcurrentRuns:  2,
			MaxConsecutiveGaps: 3,
			OutputDir:          t.TempDir(),
		},
		Consensus: config.Consensus{TieBreak: "HOLD"},
		Cache:     config.Cache{DefaultExpiration: time.Minute, CleanupInterval: time.Minute},
	}
}

// testCalendar builds a calendar directly from a holiday list, bypassing the
// provider.
func testCalendar(t *testing.T, start, end string, holidays ...dto.Holiday) *TradingCalendar {
	t.Helper()
	cal, err := buildCalendar(mustDate(t, start), mustDate(t, end), holidays)
	if err != nil {
		t.Fatalf("buildCalendar: %v", err)
	}
	return cal
}

func testSnapshot(t *testing.T, taxModel dto.TaxModel) model.Snapshot {
	t.Helper()
	return model.Snapshot{
		ProfileID:       1,
		Name:            "acme-default",
		Ticker:          "ACME",
		HoldingDuration: 2,
		HoldingUnit:     dto.HoldingUnitDay,
		HurdleRatePct:   0,
		TaxModel:        taxModel,
		InitialFund:     dec(t, "10000"),
		Fees: model.FeeSchedule{
			CommissionFlat: dec(t, "9.95"),
			CommissionPct:  decimal.Zero,
			MinCommission:  decimal.Zero,
			SellTaxPct:     decimal.Zero,
		},
	}
}

// fakeHolidayRepo serves a fixed holiday list, optionally failing the dynamic
// lookup to exercise the static fallback path.
type fakeHolidayRepo struct {
	holidays []dto.Holiday
	static   []dto.Holiday
	fail     bool
}

func (f *fakeHolidayRepo) Holidays(_ context.Context, market string, _, _ time.Time) ([]dto.Holiday, error) {
	if f.fail {
		return nil, &dto.CalendarUnavailableError{Market: market}
	}
	return f.holidays, nil
}

func (f *fakeHolidayRepo) StaticHolidays(string) []dto.Holiday {
	return f.static
}

// fakeMarketDataRepo serves quotes keyed by day, with explicit gaps.
type fakeMarketDataRepo struct {
	quotes map[string]*dto.DailyQuote
	calls  int
}

func (f *fakeMarketDataRepo) GetDailyQuote(_ context.Context, ticker string, date time.Time) (*dto.DailyQuote, error) {
	f.calls++
	q, ok := f.quotes[utils.DayKey(date)]
	if !ok {
		return nil, repository.ErrQuoteNotFound
	}
	quote := *q
	quote.Ticker = ticker
	quote.Date = date
	return &quote, nil
}

// fakeProfileRepo holds profiles in memory.
type fakeProfileRepo struct {
	profiles map[uint]model.Profile
}

func (f *fakeProfileRepo) Create(_ context.Context, p *model.Profile) error {
	f.profiles[p.ID] = *p
	return nil
}

func (f *fakeProfileRepo) Update(_ context.Context, p *model.Profile) error {
	f.profiles[p.ID] = *p
	return nil
}

func (f *fakeProfileRepo) GetByID(_ context.Context, id uint) (*model.Profile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (f *fakeProfileRepo) GetByIDs(_ context.Context, ids []uint) ([]model.Profile, error) {
	var out []model.Profile
	for _, id := range ids {
		if p, ok := f.profiles[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProfileRepo) GetAll(_ context.Context, _ ...utils.DBOption) ([]model.Profile, error) {
	var out []model.Profile
	for _, p := range f.profiles {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeProfileRepo) Delete(_ context.Context, id uint) error {
	delete(f.profiles, id)
	return nil
}

func testProfile(t *testing.T, id uint, taxModel dto.TaxModel) model.Profile {
	t.Helper()
	snap := testSnapshot(t, taxModel)
	return model.Profile{
		ID:              id,
		Name:            snap.Name,
		Ticker:          snap.Ticker,
		HoldingDuration: snap.HoldingDuration,
		HoldingUnit:     snap.HoldingUnit,
		HurdleRatePct:   snap.HurdleRatePct,
		TaxModel:        snap.TaxModel,
		InitialFund:     snap.InitialFund,
		FeeSchedule:     datatypes.NewJSONType(snap.Fees),
	}
}

// quote builds a feed payload with the given price and votes.
func quote(price string, votes map[string]dto.ModelVote) *dto.DailyQuote {
	return &dto.DailyQuote{Price: price, Votes: votes}
}
