package repository

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"stock-backtest/config"
	"stock-backtest/internal/dto"
	"stock-backtest/pkg/httpclient"
	"stock-backtest/pkg/logger"
)

type HolidayRepository interface {
	// Holidays fetches public holidays for a market within [start, end]
	// from the dynamic provider. The caller falls back to StaticHolidays
	// when this fails.
	Holidays(ctx context.Context, market string, start, end time.Time) ([]dto.Holiday, error)
	// StaticHolidays returns the manually verified fallback table for a market.
	StaticHolidays(market string) []dto.Holiday
}

type holidayRepository struct {
	httpClient httpclient.HTTPClient
	cfg        *config.Config
	log        *logger.Logger
}

func NewHolidayRepository(cfg *config.Config, log *logger.Logger) HolidayRepository {
	return &holidayRepository{
		httpClient: httpclient.New(cfg.Calendar.BaseURL, cfg.Calendar.Timeout, ""),
		cfg:        cfg,
		log:        log,
	}
}

type holidayResponse struct {
	Holidays []dto.Holiday `json:"holidays"`
}

func (r *holidayRepository) Holidays(ctx context.Context, market string, start, end time.Time) ([]dto.Holiday, error) {
	var result holidayResponse

	queryParams := map[string]string{
		"market": market,
		"start":  start.Format("2006-01-02"),
		"end":    end.Format("2006-01-02"),
	}

	resp, err := r.httpClient.Get(ctx, "/holidays", queryParams, nil, &result)
	if err != nil {
		return nil, &dto.CalendarUnavailableError{Market: market, Cause: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &dto.CalendarUnavailableError{
			Market: market,
			Cause:  fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	return result.Holidays, nil
}

func (r *holidayRepository) StaticHolidays(market string) []dto.Holiday {
	return staticHolidayTable[market]
}
