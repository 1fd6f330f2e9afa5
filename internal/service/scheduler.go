package service

import (
	"context"
	"time"

	"stock-backtest/config"
	"stock-backtest/internal/dto"
	"stock-backtest/internal/repository"
	"stock-backtest/pkg/logger"
	"stock-backtest/pkg/utils"

	"github.com/robfig/cron/v3"
)

// SchedulerService launches periodic universe scans when configured. Each
// tick runs a universe-scan backtest over the configured tickers' profiles
// for the trailing year.
type SchedulerService interface {
	Start(ctx context.Context) error
	Stop()
}

type schedulerService struct {
	cfg             *config.Config
	log             *logger.Logger
	profileRepo     repository.ProfileRepository
	backtestService BacktestService
	cron            *cron.Cron
}

func NewSchedulerService(
	cfg *config.Config,
	log *logger.Logger,
	profileRepo repository.ProfileRepository,
	backtestService BacktestService,
) SchedulerService {
	return &schedulerService{
		cfg:             cfg,
		log:             log,
		profileRepo:     profileRepo,
		backtestService: backtestService,
		cron:            cron.New(),
	}
}

func (s *schedulerService) Start(ctx context.Context) error {
	if !s.cfg.Scheduler.Enabled {
		s.log.Info("Scheduler disabled")
		return nil
	}

	_, err := s.cron.AddFunc(s.cfg.Scheduler.CronExpression, func() {
		if !utils.ShouldContinue(ctx, s.log) {
			return
		}
		s.runUniverseScan(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info("Scheduler started",
		logger.StringField("cron", s.cfg.Scheduler.CronExpression),
		logger.IntField("universe_size", len(s.cfg.Scheduler.Universe)),
	)
	return nil
}

func (s *schedulerService) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.log.Info("Scheduler stopped")
}

func (s *schedulerService) runUniverseScan(ctx context.Context) {
	profiles, err := s.profileRepo.GetAll(ctx, utils.WithWhere("ticker IN ?", s.cfg.Scheduler.Universe))
	if err != nil {
		s.log.ErrorContext(ctx, "Scheduled scan failed to load profiles", logger.ErrorField(err))
		return
	}
	if len(profiles) == 0 {
		s.log.WarnContext(ctx, "Scheduled scan found no profiles for universe")
		return
	}

	ids := make([]uint, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.ID)
	}

	end := utils.TruncateToDay(time.Now().UTC())
	req := dto.BacktestRequest{
		ProfileIDs: ids,
		Mode:       dto.RunModeUniverseScan,
		StartDate:  end.AddDate(-1, 0, 0),
		EndDate:    end,
	}

	run, err := s.backtestService.RunBacktest(ctx, req)
	if err != nil {
		s.log.ErrorContext(ctx, "Scheduled scan failed to launch", logger.ErrorField(err))
		return
	}
	s.log.InfoContext(ctx, "Scheduled universe scan launched",
		logger.StringField("run_id", run.ID),
		logger.IntField("profiles", len(ids)),
	)
}
