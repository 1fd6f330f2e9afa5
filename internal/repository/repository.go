package repository

import (
	"stock-backtest/config"
	"stock-backtest/pkg/logger"

	"gorm.io/gorm"
)

type Repository struct {
	ProfileRepo    ProfileRepository
	HolidayRepo    HolidayRepository
	MarketDataRepo MarketDataRepository
}

func NewRepository(cfg *config.Config, db *gorm.DB, log *logger.Logger) (*Repository, error) {
	return &Repository{
		ProfileRepo:    NewProfileRepository(db),
		HolidayRepo:    NewHolidayRepository(cfg, log),
		MarketDataRepo: NewMarketDataRepository(cfg, log),
	}, nil
}
