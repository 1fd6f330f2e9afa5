package service

import (
	"stock-backtest/config"
	"stock-backtest/internal/repository"
	"stock-backtest/pkg/cache"
	"stock-backtest/pkg/logger"
)

type Service struct {
	CalendarService  CalendarService
	BacktestService  BacktestService
	ProfileService   ProfileService
	SchedulerService SchedulerService
	RunManager       *RunManager
}

func NewService(
	cfg *config.Config,
	log *logger.Logger,
	repo *repository.Repository,
	inmemoryCache cache.Cache,
) *Service {
	calendarService := NewCalendarService(cfg, log, repo.HolidayRepo, inmemoryCache)
	runManager := NewRunManager()
	backtestService := NewBacktestService(cfg, log, calendarService, repo.ProfileRepo, repo.MarketDataRepo, runManager)
	profileService := NewProfileService(log, repo.ProfileRepo)
	schedulerService := NewSchedulerService(cfg, log, repo.ProfileRepo, backtestService)

	return &Service{
		CalendarService:  calendarService,
		BacktestService:  backtestService,
		ProfileService:   profileService,
		SchedulerService: schedulerService,
		RunManager:       runManager,
	}
}
