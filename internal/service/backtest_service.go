package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"stock-backtest/config"
	"stock-backtest/internal/dto"
	"stock-backtest/internal/model"
	"stock-backtest/internal/repository"
	"stock-backtest/internal/strategy"
	"stock-backtest/pkg/logger"
	"stock-backtest/pkg/utils"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// BacktestService drives the day-by-day simulation across one or many
// (ticker x strategy x holding period) combinations.
type BacktestService interface {
	// RunBacktest launches a run in the background and returns its handle.
	RunBacktest(ctx context.Context, req dto.BacktestRequest) (*Run, error)
	// RunBacktestSync executes a run inline and returns the terminal result.
	RunBacktestSync(ctx context.Context, req dto.BacktestRequest) (*dto.RunResult, error)
}

type backtestService struct {
	cfg             *config.Config
	log             *logger.Logger
	calendarService CalendarService
	profileRepo     repository.ProfileRepository
	marketDataRepo  repository.MarketDataRepository
	runManager      *RunManager
	tieBreak        dto.Action
}

func NewBacktestService(
	cfg *config.Config,
	log *logger.Logger,
	calendarService CalendarService,
	profileRepo repository.ProfileRepository,
	marketDataRepo repository.MarketDataRepository,
	runManager *RunManager,
) BacktestService {
	return &backtestService{
		cfg:             cfg,
		log:             log,
		calendarService: calendarService,
		profileRepo:     profileRepo,
		marketDataRepo:  marketDataRepo,
		runManager:      runManager,
		tieBreak:        dto.Action(cfg.Consensus.TieBreak),
	}
}

// combination is one isolated simulation: its own portfolio, tax ledger and
// transaction ledger, with the decision strategy fixed at initialization.
type combination struct {
	snapshot model.Snapshot
	strategy strategy.DecisionStrategy
	label    string
}

func (s *backtestService) RunBacktest(ctx context.Context, req dto.BacktestRequest) (*Run, error) {
	combos, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	run := s.runManager.Register(req.Mode, len(combos), cancel)

	utils.GoSafe(func() {
		defer cancel()
		s.execute(runCtx, run, req, combos)
	})

	return run, nil
}

func (s *backtestService) RunBacktestSync(ctx context.Context, req dto.BacktestRequest) (*dto.RunResult, error) {
	combos, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	run := s.runManager.Register(req.Mode, len(combos), cancel)
	s.execute(runCtx, run, req, combos)

	result, err := s.runManager.Result(run.ID)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// prepare validates the request, snapshots the profiles and fans them out
// into combinations according to the run mode.
func (s *backtestService) prepare(ctx context.Context, req dto.BacktestRequest) ([]combination, error) {
	if !req.Mode.Valid() {
		return nil, fmt.Errorf("invalid run mode %q", req.Mode)
	}

	profiles, err := s.profileRepo.GetByIDs(ctx, req.ProfileIDs)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to load profiles for backtest", logger.ErrorField(err))
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, fmt.Errorf("no profiles found for ids %v", req.ProfileIDs)
	}

	var combos []combination
	switch req.Mode {
	case dto.RunModeModelsComparison:
		if len(req.Models) == 0 {
			return nil, fmt.Errorf("models_comparison mode requires at least one model")
		}
		for _, p := range profiles {
			snap := p.Snapshot()
			for _, m := range req.Models {
				combos = append(combos, combination{
					snapshot: snap,
					strategy: strategy.NewSingleModelStrategy(m),
					label:    slug(snap.Ticker, m),
				})
			}
		}
	case dto.RunModeTimeSpanComparison:
		if len(req.HoldingPeriods) == 0 {
			return nil, fmt.Errorf("timespan_comparison mode requires at least one holding period")
		}
		aggregator := strategy.NewConsensusAggregator(s.tieBreak)
		for _, p := range profiles {
			for _, hp := range req.HoldingPeriods {
				if !hp.Unit.Valid() {
					return nil, fmt.Errorf("invalid holding unit %q", hp.Unit)
				}
				snap := p.Snapshot()
				snap.HoldingDuration = hp.Duration
				snap.HoldingUnit = hp.Unit
				combos = append(combos, combination{
					snapshot: snap,
					strategy: strategy.NewConsensusStrategy(aggregator),
					label:    slug(snap.Ticker, fmt.Sprintf("%d%s", hp.Duration, strings.ToLower(string(hp.Unit)))),
				})
			}
		}
	case dto.RunModeUniverseScan:
		aggregator := strategy.NewConsensusAggregator(s.tieBreak)
		for _, p := range profiles {
			snap := p.Snapshot()
			combos = append(combos, combination{
				snapshot: snap,
				strategy: strategy.NewConsensusStrategy(aggregator),
				label:    slug(snap.Ticker, "consensus"),
			})
		}
	}

	return combos, nil
}

// execute runs all combinations with a bounded worker pool. Each combination
// owns isolated state and writes its ledger to a distinct file, so workers
// never contend.
func (s *backtestService) execute(ctx context.Context, run *Run, req dto.BacktestRequest, combos []combination) {
	result := &dto.RunResult{
		RunID:     run.ID,
		Mode:      req.Mode,
		StartedAt: run.StartedAt,
	}

	cal, err := s.calendarService.Resolve(ctx, req.StartDate, req.EndDate)
	if err != nil {
		s.log.ErrorContext(ctx, "Calendar unusable, run failed",
			logger.StringField("run_id", run.ID), logger.ErrorField(err))
		result.State = dto.RunStateFailed
		result.Error = err.Error()
		result.FinishedAt = time.Now().UTC()
		run.finish(result)
		return
	}

	run.setState(dto.RunStateRunning)
	s.log.InfoContext(ctx, "Backtest run started",
		logger.StringField("run_id", run.ID),
		logger.StringField("mode", string(req.Mode)),
		logger.IntField("combinations", len(combos)),
		logger.IntField("trading_days", len(cal.Days())),
		logger.IntField("max_concurrent_runs", s.cfg.Backtest.MaxConcurrentRuns),
	)

	summaries := make([]dto.CombinationSummary, len(combos))
	errs := make([]error, len(combos))

	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Backtest.MaxConcurrentRuns)

	for i, combo := range combos {
		// Cancellation is cooperative: checked before each combination
		// starts, never mid-simulation.
		if !utils.ShouldContinue(ctx, s.log) {
			break
		}

		i, combo := i, combo
		g.Go(func() error {
			summary, err := s.runCombination(ctx, run.ID, cal, combo)
			summaries[i] = summary
			errs[i] = err
			run.incrementCompleted()
			if err != nil && !errors.Is(err, context.Canceled) {
				s.log.ErrorContext(ctx, "Combination failed",
					logger.StringField("run_id", run.ID),
					logger.StringField("combination", combo.label),
					logger.ErrorField(err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	run.setState(dto.RunStateFinalizing)

	result.State = dto.RunStateCompleted
	for i := range combos {
		if errs[i] != nil {
			if errors.Is(errs[i], context.Canceled) {
				continue
			}
			result.State = dto.RunStateFailed
			result.Error = errs[i].Error()
			continue
		}
		if summaries[i].Ticker != "" {
			result.Combinations = append(result.Combinations, summaries[i])
		}
	}
	result.FinishedAt = time.Now().UTC()
	run.finish(result)

	s.log.InfoContext(ctx, "Backtest run finished",
		logger.StringField("run_id", run.ID),
		logger.StringField("state", string(run.State())),
		logger.IntField("combinations_completed", len(result.Combinations)),
	)
}

// openPosition tracks the single live position of one combination.
type openPosition struct {
	entryDate time.Time
	exit      ExitPlan
}

// runCombination simulates one combination day by day in strict chronological
// order. Trades may never be reordered: each entry's cash_before chains from
// the previous entry's cash_after.
func (s *backtestService) runCombination(ctx context.Context, runID string, cal *TradingCalendar, combo combination) (dto.CombinationSummary, error) {
	snap := combo.snapshot

	taxLedger := NewTaxLedger(snap.TaxModel)
	portfolio := NewPortfolioStateMachine(snap, taxLedger)
	ledger, err := NewTransactionLedger(s.cfg.Backtest.OutputDir, fmt.Sprintf("%s_%s", runID, combo.label))
	if err != nil {
		return dto.CombinationSummary{}, err
	}

	var (
		lastQuote       *dto.DailyQuote
		lastPrice       decimal.Decimal
		open            *openPosition
		consecutiveGaps int
		forwardFilled   int
		warnings        []string
	)

	if cal.Degraded {
		warnings = append(warnings, "trading calendar resolved from static fallback table")
	}

	days := cal.Days()
	for _, day := range days {
		quote, err := s.marketDataRepo.GetDailyQuote(ctx, snap.Ticker, day)
		switch {
		case err == nil:
			consecutiveGaps = 0
			lastQuote = quote
		case errors.Is(err, repository.ErrQuoteNotFound):
			consecutiveGaps++
			if consecutiveGaps > s.cfg.Backtest.MaxConsecutiveGaps {
				// Too many gaps: fail rather than silently produce an
				// unreliable result.
				ledger.Discard()
				return dto.CombinationSummary{}, &dto.DataGapError{
					Ticker:          snap.Ticker,
					Date:            day,
					ConsecutiveGaps: consecutiveGaps,
					Tolerance:       s.cfg.Backtest.MaxConsecutiveGaps,
				}
			}
			if lastQuote == nil {
				// Nothing to fill forward from yet.
				continue
			}
			s.log.WarnContext(ctx, "Data gap, forward-filling last known quote",
				logger.StringField("ticker", snap.Ticker),
				logger.StringField("date", utils.FormatTradeDate(day)),
			)
			forwardFilled++
			filled := *lastQuote
			filled.Date = day
			quote = &filled
		default:
			ledger.Discard()
			return dto.CombinationSummary{}, err
		}

		price, perr := decimal.NewFromString(quote.Price)
		if perr != nil {
			ledger.Discard()
			return dto.CombinationSummary{}, fmt.Errorf("invalid price %q for %s: %w", quote.Price, snap.Ticker, perr)
		}
		lastPrice = price

		if err := s.simulateDay(ctx, cal, combo, portfolio, ledger, &open, day, price, quote.Votes); err != nil {
			ledger.Discard()
			return dto.CombinationSummary{}, err
		}

		ledger.ObserveEquity(portfolio.Equity(price))
	}

	path, stats, err := ledger.Finalize()
	if err != nil {
		return dto.CombinationSummary{}, err
	}

	return s.buildSummary(snap, combo, cal, path, stats, portfolio, taxLedger, lastPrice, forwardFilled, warnings), nil
}

// simulateDay applies one trading day: exit checks for the open position,
// the pre-trade capacity filter, the decision strategy and the resulting
// state transition.
func (s *backtestService) simulateDay(
	ctx context.Context,
	cal *TradingCalendar,
	combo combination,
	portfolio *PortfolioStateMachine,
	ledger *TransactionLedger,
	open **openPosition,
	day time.Time,
	price decimal.Decimal,
	votes map[string]dto.ModelVote,
) error {
	snap := combo.snapshot
	pos := portfolio.Position(snap.Ticker)

	if pos.Quantity > 0 {
		// SELL is always evaluated for a held position, even with zero cash.
		reason := ""
		decision := dto.ConsensusDecision{Action: dto.ActionHold, Votes: votes}

		if *open != nil && !(*open).exit.Actual.IsZero() && !day.Before((*open).exit.Actual) {
			reason = "holding period reached"
		} else {
			d, err := combo.strategy.Decide(ctx, snap.Ticker, day, votes)
			if err != nil {
				return err
			}
			decision = d
			if d.Action == dto.ActionSell {
				reason = "sell signal"
			}
		}

		if reason != "" {
			notes := reason
			if *open != nil && (*open).exit.Adjusted() && reason == "holding period reached" {
				// The naive exit date fell on a closed day; record it for audit.
				notes = fmt.Sprintf("%s; target exit %s", reason, utils.FormatTradeDate((*open).exit.Target))
			}

			trade, err := portfolio.Sell(snap.Ticker, day, price, pos.Quantity)
			if err != nil {
				// Selling more than held is a logic defect, not a market
				// condition: fail the run.
				return err
			}

			entry := model.LedgerEntry{
				Date:            day,
				Ticker:          snap.Ticker,
				Action:          dto.ActionSell,
				Quantity:        pos.Quantity,
				Price:           price,
				TotalValue:      trade.Gross,
				Commission:      trade.Commission,
				CashBefore:      trade.CashBefore,
				CashAfter:       trade.CashAfter,
				PositionsBefore: trade.PositionsBefore,
				PositionsAfter:  trade.PositionsAfter,
				Strategy:        combo.label,
				ModelVotes:      decision.Votes,
				Confidence:      decision.Confidence,
				Notes:           notes,
			}
			if err := ledger.Record(entry); err != nil {
				return err
			}
			heldDays := 0
			if *open != nil {
				heldDays = cal.TradingDaysBetween((*open).entryDate, day)
			}
			ledger.AddTradeOutcome(trade.RealizedPnL, heldDays)
			*open = nil
			return nil
		}

		return s.recordHold(ledger, combo, day, price, portfolio, decision, "position held")
	}

	// Pre-trade capacity filter: when cash cannot cover one unit, BUY signal
	// generation is skipped entirely, before any model evaluation.
	if affordable, _ := portfolio.CanBuy(price); !affordable {
		s.log.DebugContext(ctx, "Buy evaluation skipped, insufficient cash",
			logger.StringField("ticker", snap.Ticker),
			logger.StringField("date", utils.FormatTradeDate(day)),
		)
		return s.recordHold(ledger, combo, day, price, portfolio,
			dto.ConsensusDecision{Action: dto.ActionHold, Votes: votes}, "insufficient cash, buy evaluation skipped")
	}

	decision, err := combo.strategy.Decide(ctx, snap.Ticker, day, votes)
	if err != nil {
		return err
	}
	if decision.Action != dto.ActionBuy {
		return s.recordHold(ledger, combo, day, price, portfolio, decision, "no action")
	}

	quantity := portfolio.MaxAffordableUnits(price)
	if quantity == 0 {
		return s.recordHold(ledger, combo, day, price, portfolio, decision, "insufficient cash after fees")
	}

	trade, err := portfolio.Buy(snap.Ticker, day, price, quantity)
	if err != nil {
		var insufficient *dto.InsufficientCashError
		if errors.As(err, &insufficient) {
			// Skipped, never fatal: the simulation continues.
			s.log.InfoContext(ctx, "Buy skipped", logger.ErrorField(err))
			return s.recordHold(ledger, combo, day, price, portfolio, decision, "buy skipped: insufficient cash")
		}
		return err
	}

	plan, err := ResolveExitDate(cal, day, snap.HoldingDuration, snap.HoldingUnit)
	if err != nil {
		return err
	}
	*open = &openPosition{entryDate: day, exit: plan}

	notes := "position outlives backtest span"
	if !plan.Target.IsZero() {
		notes = fmt.Sprintf("exit target %s", utils.FormatTradeDate(plan.Target))
	}

	entry := model.LedgerEntry{
		Date:            day,
		Ticker:          snap.Ticker,
		Action:          dto.ActionBuy,
		Quantity:        quantity,
		Price:           price,
		TotalValue:      trade.Gross,
		Commission:      trade.Commission,
		CashBefore:      trade.CashBefore,
		CashAfter:       trade.CashAfter,
		PositionsBefore: trade.PositionsBefore,
		PositionsAfter:  trade.PositionsAfter,
		Strategy:        combo.label,
		ModelVotes:      decision.Votes,
		Confidence:      decision.Confidence,
		Notes:           notes,
	}
	return ledger.Record(entry)
}

// recordHold appends a HOLD marker when configured; otherwise inactive days
// leave no ledger row.
func (s *backtestService) recordHold(
	ledger *TransactionLedger,
	combo combination,
	day time.Time,
	price decimal.Decimal,
	portfolio *PortfolioStateMachine,
	decision dto.ConsensusDecision,
	notes string,
) error {
	if !s.cfg.Backtest.RecordHoldDays {
		return nil
	}
	state := portfolio.State()
	positions := state.EncodePositions()
	return ledger.Record(model.LedgerEntry{
		Date:            day,
		Ticker:          combo.snapshot.Ticker,
		Action:          dto.ActionHold,
		Quantity:        0,
		Price:           price,
		TotalValue:      decimal.Zero,
		Commission:      decimal.Zero,
		CashBefore:      state.Cash,
		CashAfter:       state.Cash,
		PositionsBefore: positions,
		PositionsAfter:  positions,
		Strategy:        combo.label,
		ModelVotes:      decision.Votes,
		Confidence:      decision.Confidence,
		Notes:           notes,
	})
}

func (s *backtestService) buildSummary(
	snap model.Snapshot,
	combo combination,
	cal *TradingCalendar,
	ledgerPath string,
	stats LedgerStats,
	portfolio *PortfolioStateMachine,
	taxLedger *TaxLedger,
	lastPrice decimal.Decimal,
	forwardFilled int,
	warnings []string,
) dto.CombinationSummary {
	days := cal.Days()
	finalValue := portfolio.Equity(lastPrice)
	totalReturn := finalValue.Sub(snap.InitialFund)

	returnPct := 0.0
	if snap.InitialFund.IsPositive() {
		r, _ := totalReturn.Div(snap.InitialFund).Float64()
		returnPct = r * 100
	}

	winRate := 0.0
	avgHoldingDays := 0.0
	if closed := stats.Wins + stats.Losses; closed > 0 {
		winRate = float64(stats.Wins) / float64(closed) * 100
		avgHoldingDays = float64(stats.HoldingDaysSum) / float64(closed)
	}

	summary := dto.CombinationSummary{
		Ticker:            snap.Ticker,
		Strategy:          combo.label,
		InitialFund:       snap.InitialFund.String(),
		FinalValue:        finalValue.String(),
		TotalReturn:       totalReturn.String(),
		ReturnPct:         returnPct,
		HurdleCleared:     annualizedReturnPct(snap.InitialFund, finalValue, days) >= snap.HurdleRatePct,
		TotalTrades:       stats.Trades,
		WinningTrades:     stats.Wins,
		LosingTrades:      stats.Losses,
		WinRate:           winRate,
		ProfitFactor:      stats.ProfitFactor(),
		AvgHoldingDays:    avgHoldingDays,
		MaxDrawdownPct:    stats.MaxDrawdownPct,
		LedgerPath:        ledgerPath,
		Warnings:          warnings,
		TradingDays:       len(days),
		ForwardFilledDays: forwardFilled,
	}
	if len(days) > 0 {
		summary.StartDate = utils.FormatTradeDate(days[0])
		summary.EndDate = utils.FormatTradeDate(days[len(days)-1])
	}
	if snap.TaxModel == dto.TaxModelCumulative {
		summary.TaxPayable = taxLedger.TaxPayable().String()
	}
	return summary
}

// annualizedReturnPct converts the whole-span return into an annualized rate
// for the hurdle comparison.
func annualizedReturnPct(initial, final decimal.Decimal, days []time.Time) float64 {
	if len(days) < 2 || !initial.IsPositive() {
		return 0
	}
	years := days[len(days)-1].Sub(days[0]).Hours() / 24 / 365.25
	if years <= 0 {
		return 0
	}
	ratio, _ := final.Div(initial).Float64()
	if ratio <= 0 {
		return -100
	}
	return (math.Pow(ratio, 1/years) - 1) * 100
}

func slug(parts ...string) string {
	joined := strings.Join(parts, "_")
	joined = strings.ToLower(joined)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '-'
		}
	}, joined)
}
