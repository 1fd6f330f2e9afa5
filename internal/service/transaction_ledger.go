package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"stock-backtest/internal/dto"
	"stock-backtest/internal/model"
	"stock-backtest/pkg/utils"

	"github.com/shopspring/decimal"
)

var ledgerHeader = []string{
	"date", "ticker", "action", "quantity", "price", "total_value", "commission",
	"cash_before", "cash_after", "positions_before", "positions_after",
	"strategy", "model_votes", "confidence", "notes",
}

// LedgerStats are the summary accumulators kept resident during a run.
type LedgerStats struct {
	Entries        int
	Trades         int
	Wins           int
	Losses         int
	GrossProfit    decimal.Decimal
	GrossLoss      decimal.Decimal
	HoldingDaysSum int
	MaxDrawdownPct float64
}

// ProfitFactor is gross profit over gross loss, zero when no losing trade
// has been recorded.
func (s LedgerStats) ProfitFactor() float64 {
	if !s.GrossLoss.IsPositive() {
		return 0
	}
	pf, _ := s.GrossProfit.Div(s.GrossLoss).Float64()
	return pf
}

// TransactionLedger is the append-only transaction record of one backtest
// combination. Memory stays O(1) regardless of run length: completed entries
// are spooled to a temp file and released, and only the most recent entry
// plus the summary accumulators remain resident. Finalize assembles the
// output artifact in a single batch write.
type TransactionLedger struct {
	outputDir    string
	artifactName string

	spool  *os.File
	writer *csv.Writer

	lastEntry *model.LedgerEntry
	stats     LedgerStats

	equityPeak decimal.Decimal
	hasPeak    bool
}

func NewTransactionLedger(outputDir, artifactName string) (*TransactionLedger, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, &dto.LedgerWriteError{Path: outputDir, Cause: err}
	}

	l := &TransactionLedger{
		outputDir:    outputDir,
		artifactName: artifactName,
	}
	if err := l.openSpool(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *TransactionLedger) openSpool() error {
	spool, err := os.CreateTemp(l.outputDir, l.artifactName+".spool-")
	if err != nil {
		return &dto.LedgerWriteError{Path: l.outputDir, Cause: err}
	}
	l.spool = spool
	l.writer = csv.NewWriter(spool)
	return nil
}

// Record appends one entry. It enforces the cash chain invariant: each
// entry's cash_before must equal the previous entry's cash_after.
func (l *TransactionLedger) Record(entry model.LedgerEntry) error {
	if l.spool == nil {
		return &dto.LedgerWriteError{Path: l.artifactName, Cause: fmt.Errorf("ledger already finalized")}
	}
	if l.lastEntry != nil && !l.lastEntry.CashAfter.Equal(entry.CashBefore) {
		return fmt.Errorf("broken cash chain: previous cash_after %s, next cash_before %s",
			l.lastEntry.CashAfter.String(), entry.CashBefore.String())
	}

	if err := l.writer.Write(encodeLedgerRow(entry)); err != nil {
		return &dto.LedgerWriteError{Path: l.spool.Name(), Cause: err}
	}

	l.stats.Entries++
	if entry.Action == dto.ActionBuy || entry.Action == dto.ActionSell {
		l.stats.Trades++
	}
	entryCopy := entry
	l.lastEntry = &entryCopy
	return nil
}

// AddTradeOutcome feeds one realized trade result into the win/loss counters
// and the gross profit/loss accumulators. holdingDays is the count of trading
// days the position was held.
func (l *TransactionLedger) AddTradeOutcome(pnl decimal.Decimal, holdingDays int) {
	if pnl.IsPositive() {
		l.stats.Wins++
		l.stats.GrossProfit = l.stats.GrossProfit.Add(pnl)
	} else {
		l.stats.Losses++
		l.stats.GrossLoss = l.stats.GrossLoss.Add(pnl.Neg())
	}
	l.stats.HoldingDaysSum += holdingDays
}

// ObserveEquity updates the max drawdown tracker with the portfolio value at
// the end of one simulated day.
func (l *TransactionLedger) ObserveEquity(equity decimal.Decimal) {
	if !l.hasPeak || equity.GreaterThan(l.equityPeak) {
		l.equityPeak = equity
		l.hasPeak = true
		return
	}
	if l.equityPeak.IsZero() {
		return
	}
	dd, _ := l.equityPeak.Sub(equity).Div(l.equityPeak).Float64()
	ddPct := dd * 100
	if ddPct > l.stats.MaxDrawdownPct {
		l.stats.MaxDrawdownPct = ddPct
	}
}

// LastEntry returns the single resident entry, nil when nothing was recorded.
func (l *TransactionLedger) LastEntry() *model.LedgerEntry {
	return l.lastEntry
}

// Finalize flushes the pending batch and assembles the output artifact in one
// write. On any write failure the partial artifact is removed and a
// LedgerWriteError returned; no partial output survives.
func (l *TransactionLedger) Finalize() (string, LedgerStats, error) {
	if l.spool == nil {
		return "", l.stats, &dto.LedgerWriteError{Path: l.artifactName, Cause: fmt.Errorf("ledger already finalized")}
	}

	spoolPath := l.spool.Name()
	finalPath := filepath.Join(l.outputDir, l.artifactName+".csv")

	err := l.assemble(finalPath)
	l.spool.Close()
	os.Remove(spoolPath)
	l.spool = nil
	l.writer = nil

	if err != nil {
		os.Remove(finalPath)
		return "", l.stats, err
	}
	return finalPath, l.stats, nil
}

func (l *TransactionLedger) assemble(finalPath string) error {
	l.writer.Flush()
	if err := l.writer.Error(); err != nil {
		return &dto.LedgerWriteError{Path: l.spool.Name(), Cause: err}
	}
	if _, err := l.spool.Seek(0, io.SeekStart); err != nil {
		return &dto.LedgerWriteError{Path: l.spool.Name(), Cause: err}
	}

	out, err := os.Create(finalPath)
	if err != nil {
		return &dto.LedgerWriteError{Path: finalPath, Cause: err}
	}
	defer out.Close()

	headerWriter := csv.NewWriter(out)
	if err := headerWriter.Write(ledgerHeader); err != nil {
		return &dto.LedgerWriteError{Path: finalPath, Cause: err}
	}
	headerWriter.Flush()
	if err := headerWriter.Error(); err != nil {
		return &dto.LedgerWriteError{Path: finalPath, Cause: err}
	}

	if _, err := io.Copy(out, l.spool); err != nil {
		return &dto.LedgerWriteError{Path: finalPath, Cause: err}
	}
	if err := out.Sync(); err != nil {
		return &dto.LedgerWriteError{Path: finalPath, Cause: err}
	}
	return nil
}

// Discard drops the spool without producing any artifact. Used when a run
// fails so no partial output survives.
func (l *TransactionLedger) Discard() {
	if l.spool != nil {
		l.spool.Close()
		os.Remove(l.spool.Name())
		l.spool = nil
		l.writer = nil
	}
	l.lastEntry = nil
	l.stats = LedgerStats{}
	l.equityPeak = decimal.Zero
	l.hasPeak = false
}

// Clear discards all accumulated entries without archiving. This is the only
// reset mechanism: re-running with different parameters always starts empty.
func (l *TransactionLedger) Clear() error {
	if l.spool != nil {
		l.spool.Close()
		os.Remove(l.spool.Name())
	}
	l.lastEntry = nil
	l.stats = LedgerStats{}
	l.equityPeak = decimal.Zero
	l.hasPeak = false
	return l.openSpool()
}

func encodeLedgerRow(e model.LedgerEntry) []string {
	return []string{
		utils.FormatTradeDate(e.Date),
		e.Ticker,
		string(e.Action),
		strconv.FormatInt(e.Quantity, 10),
		e.Price.String(),
		e.TotalValue.String(),
		e.Commission.String(),
		e.CashBefore.String(),
		e.CashAfter.String(),
		e.PositionsBefore,
		e.PositionsAfter,
		e.Strategy,
		encodeVotes(e.ModelVotes),
		strconv.FormatFloat(e.Confidence, 'f', -1, 64),
		e.Notes,
	}
}

// encodeVotes renders the vote map as a stable sorted list so identical
// inputs always produce byte-identical rows.
func encodeVotes(votes map[string]dto.ModelVote) string {
	if len(votes) == 0 {
		return "-"
	}
	names := make([]string, 0, len(votes))
	for name := range votes {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		v := votes[name]
		parts = append(parts, fmt.Sprintf("%s=%s@%s",
			name, v.Action, strconv.FormatFloat(v.Confidence, 'f', -1, 64)))
	}
	return strings.Join(parts, "|")
}
