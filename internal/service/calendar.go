package service

import (
	"context"
	"fmt"
	"time"

	"stock-backtest/config"
	"stock-backtest/internal/dto"
	"stock-backtest/internal/repository"
	"stock-backtest/pkg/cache"
	"stock-backtest/pkg/logger"
	"stock-backtest/pkg/utils"
)

// TradingCalendar is the resolved set of valid trading days for one span.
// It is computed once per backtest run and is a pure query object afterwards.
type TradingCalendar struct {
	start    time.Time
	end      time.Time
	days     []time.Time
	open     map[string]bool
	holidays map[string]string
	// Degraded is true when the dynamic holiday source was unreachable and
	// the static fallback table was used instead.
	Degraded bool
}

// Days returns the ordered trading days in the resolved span.
func (c *TradingCalendar) Days() []time.Time {
	return c.days
}

// IsTradingDay reports whether the market is open on the given date.
func (c *TradingCalendar) IsTradingDay(date time.Time) bool {
	return c.open[utils.DayKey(date)]
}

// NextTradingDay returns the first trading day strictly after the given date,
// or the zero time when none exists within the resolved span.
func (c *TradingCalendar) NextTradingDay(date time.Time) time.Time {
	d := utils.TruncateToDay(date).AddDate(0, 0, 1)
	for !d.After(c.end) {
		if c.IsTradingDay(d) {
			return d
		}
		d = d.AddDate(0, 0, 1)
	}
	return time.Time{}
}

// NearestTradingDayOnOrAfter returns the date itself when the market is open,
// otherwise the next open day. Zero time when the span runs out.
func (c *TradingCalendar) NearestTradingDayOnOrAfter(date time.Time) time.Time {
	d := utils.TruncateToDay(date)
	if !d.After(c.end) && c.IsTradingDay(d) {
		return d
	}
	return c.NextTradingDay(d)
}

// TradingDaysBetween counts trading days strictly after start, up to and
// including end. It is the held duration of a position entered on start and
// exited on end.
func (c *TradingCalendar) TradingDaysBetween(start, end time.Time) int {
	count := 0
	for _, d := range c.days {
		if d.After(start) && !d.After(end) {
			count++
		}
	}
	return count
}

// HolidayName returns the holiday name for a date, if any.
func (c *TradingCalendar) HolidayName(date time.Time) (string, bool) {
	name, ok := c.holidays[utils.DayKey(date)]
	return name, ok
}

// CalendarService resolves trading calendars from the external holiday
// provider, falling back to the static table when it is unavailable.
type CalendarService interface {
	Resolve(ctx context.Context, start, end time.Time) (*TradingCalendar, error)
}

type calendarService struct {
	cfg         *config.Config
	log         *logger.Logger
	holidayRepo repository.HolidayRepository
	cache       cache.Cache
}

func NewCalendarService(cfg *config.Config, log *logger.Logger, holidayRepo repository.HolidayRepository, c cache.Cache) CalendarService {
	return &calendarService{
		cfg:         cfg,
		log:         log,
		holidayRepo: holidayRepo,
		cache:       c,
	}
}

func (s *calendarService) Resolve(ctx context.Context, start, end time.Time) (*TradingCalendar, error) {
	start = utils.TruncateToDay(start)
	end = utils.TruncateToDay(end)
	if end.Before(start) {
		return nil, fmt.Errorf("invalid calendar span: end %s before start %s", utils.DayKey(end), utils.DayKey(start))
	}

	market := s.cfg.Calendar.Market
	cacheKey := fmt.Sprintf("calendar:%s:%s:%s", market, utils.DayKey(start), utils.DayKey(end))
	if cached, found := s.cache.Get(cacheKey); found {
		if cal, ok := cached.(*TradingCalendar); ok {
			return cal, nil
		}
	}

	degraded := false
	holidays, err := s.holidayRepo.Holidays(ctx, market, start, end)
	if err != nil {
		// Degraded mode: use the static table rather than failing the run.
		s.log.WarnContext(ctx, "Holiday provider unavailable, using static fallback table",
			logger.StringField("market", market),
			logger.ErrorField(err),
		)
		holidays = s.holidayRepo.StaticHolidays(market)
		degraded = true
	}

	cal, err := buildCalendar(start, end, holidays)
	if err != nil {
		return nil, err
	}
	cal.Degraded = degraded

	s.cache.Set(cacheKey, cal, s.cfg.Cache.DefaultExpiration)

	s.log.InfoContext(ctx, "Trading calendar resolved",
		logger.StringField("market", market),
		logger.StringField("start", utils.DayKey(start)),
		logger.StringField("end", utils.DayKey(end)),
		logger.IntField("trading_days", len(cal.days)),
		logger.Field("degraded", degraded),
	)
	return cal, nil
}

func buildCalendar(start, end time.Time, holidays []dto.Holiday) (*TradingCalendar, error) {
	closed := make(map[string]string, len(holidays))
	for _, h := range holidays {
		day, err := utils.ParseDate(h.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid holiday date %q: %w", h.Date, err)
		}
		// Half-days are treated as fully closed for simulation purposes.
		closed[utils.DayKey(day)] = h.Name
	}

	cal := &TradingCalendar{
		start:    start,
		end:      end,
		open:     make(map[string]bool),
		holidays: closed,
	}

	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if utils.IsWeekend(d) {
			continue
		}
		if _, isHoliday := closed[utils.DayKey(d)]; isHoliday {
			continue
		}
		cal.open[utils.DayKey(d)] = true
		cal.days = append(cal.days, d)
	}

	return cal, nil
}
