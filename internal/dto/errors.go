package dto

import (
	"fmt"
	"time"
)

// InsufficientCashError is raised when a BUY would cost more than the
// available cash. It is handled locally: the BUY is skipped and the
// simulation continues.
type InsufficientCashError struct {
	Ticker   string
	Date     time.Time
	Required string
	Cash     string
}

func (e *InsufficientCashError) Error() string {
	return fmt.Sprintf("insufficient cash for %s: required %s, available %s", e.Ticker, e.Required, e.Cash)
}

// InsufficientPositionError is raised when a SELL requests more units than
// held. This indicates a signal generation defect and fails the run.
type InsufficientPositionError struct {
	Ticker    string
	Date      time.Time
	Requested int64
	Held      int64
}

func (e *InsufficientPositionError) Error() string {
	return fmt.Sprintf("insufficient position for %s: requested %d, held %d", e.Ticker, e.Requested, e.Held)
}

// CalendarUnavailableError signals the dynamic holiday source was unreachable.
// The calendar service recovers with the static fallback table.
type CalendarUnavailableError struct {
	Market string
	Cause  error
}

func (e *CalendarUnavailableError) Error() string {
	return fmt.Sprintf("holiday source unavailable for market %s: %v", e.Market, e.Cause)
}

func (e *CalendarUnavailableError) Unwrap() error {
	return e.Cause
}

// DataGapError signals a missing price/vote for a required trading day.
// Recovered by forward-fill until the configured tolerance is exceeded.
type DataGapError struct {
	Ticker          string
	Date            time.Time
	ConsecutiveGaps int
	Tolerance       int
}

func (e *DataGapError) Error() string {
	return fmt.Sprintf("data gap for %s on %s: %d consecutive gaps exceeds tolerance %d",
		e.Ticker, e.Date.Format("2006-01-02"), e.ConsecutiveGaps, e.Tolerance)
}

// LedgerWriteError is fatal: the run transitions to Failed and no partial
// artifact is kept.
type LedgerWriteError struct {
	Path  string
	Cause error
}

func (e *LedgerWriteError) Error() string {
	return fmt.Sprintf("failed to write ledger artifact %s: %v", e.Path, e.Cause)
}

func (e *LedgerWriteError) Unwrap() error {
	return e.Cause
}
