package service

import (
	"fmt"
	"time"

	"stock-backtest/internal/dto"
	"stock-backtest/pkg/utils"
)

// ExitPlan is the resolved exit for a position opened on a given day.
type ExitPlan struct {
	// Target is the naive exit date implied by the holding period.
	Target time.Time
	// Actual is the trading day the sell executes on: Target itself when the
	// market is open, otherwise the nearest subsequent trading day. Zero when
	// the exit falls beyond the resolved calendar span.
	Actual time.Time
}

// Adjusted reports whether the sell had to move off the naive target date.
func (p ExitPlan) Adjusted() bool {
	return !p.Actual.IsZero() && !utils.SameDay(p.Target, p.Actual)
}

// ResolveExitDate converts an entry date plus a holding duration/unit into an
// exit plan. Day units advance in trading days; Week/Month/Quarter/Year use
// calendar arithmetic, since long horizons naturally span non-trading days.
func ResolveExitDate(cal *TradingCalendar, entry time.Time, duration int, unit dto.HoldingUnit) (ExitPlan, error) {
	if duration <= 0 {
		return ExitPlan{}, fmt.Errorf("holding duration must be positive, got %d", duration)
	}

	entry = utils.TruncateToDay(entry)

	var target time.Time
	switch unit {
	case dto.HoldingUnitDay:
		d := entry
		for i := 0; i < duration; i++ {
			d = cal.NextTradingDay(d)
			if d.IsZero() {
				// Ran past the span; the position outlives the backtest.
				return ExitPlan{Target: d}, nil
			}
		}
		// Trading-day units land on a trading day by construction.
		return ExitPlan{Target: d, Actual: d}, nil
	case dto.HoldingUnitWeek:
		target = entry.AddDate(0, 0, 7*duration)
	case dto.HoldingUnitMonth:
		target = entry.AddDate(0, duration, 0)
	case dto.HoldingUnitQuarter:
		target = entry.AddDate(0, 3*duration, 0)
	case dto.HoldingUnitYear:
		target = entry.AddDate(duration, 0, 0)
	default:
		return ExitPlan{}, fmt.Errorf("unknown holding unit %q", unit)
	}

	return ExitPlan{
		Target: target,
		Actual: cal.NearestTradingDayOnOrAfter(target),
	}, nil
}
