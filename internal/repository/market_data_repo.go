package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"stock-backtest/config"
	"stock-backtest/internal/dto"
	"stock-backtest/pkg/httpclient"
	"stock-backtest/pkg/logger"

	"golang.org/x/time/rate"
)

// ErrQuoteNotFound signals the feed has no price/vote data for the requested
// ticker/day. The engine recovers with forward-fill.
var ErrQuoteNotFound = errors.New("quote not found")

type MarketDataRepository interface {
	// GetDailyQuote fetches price plus per-model votes for one ticker/day.
	GetDailyQuote(ctx context.Context, ticker string, date time.Time) (*dto.DailyQuote, error)
}

type marketDataRepository struct {
	httpClient     httpclient.HTTPClient
	cfg            *config.Config
	log            *logger.Logger
	requestLimiter *rate.Limiter
}

func NewMarketDataRepository(cfg *config.Config, log *logger.Logger) MarketDataRepository {
	maxPerMin := cfg.Feed.MaxRequestPerMin
	if maxPerMin <= 0 {
		maxPerMin = 60
	}
	requestLimiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(maxPerMin)), 1)

	return &marketDataRepository{
		httpClient:     httpclient.New(cfg.Feed.BaseURL, cfg.Feed.Timeout, cfg.Feed.BearerToken),
		cfg:            cfg,
		log:            log,
		requestLimiter: requestLimiter,
	}
}

func (r *marketDataRepository) GetDailyQuote(ctx context.Context, ticker string, date time.Time) (*dto.DailyQuote, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	var result dto.DailyQuote
	queryParams := map[string]string{
		"ticker": ticker,
		"date":   date.Format("2006-01-02"),
	}

	resp, err := r.httpClient.Get(ctx, "/quotes", queryParams, nil, &result)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quote for %s: %w", ticker, err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		// ok
	case http.StatusNotFound:
		return nil, ErrQuoteNotFound
	default:
		return nil, fmt.Errorf("feed returned status %d for %s", resp.StatusCode, ticker)
	}

	if result.Price == "" {
		return nil, ErrQuoteNotFound
	}

	result.Ticker = ticker
	result.Date = date
	return &result, nil
}
