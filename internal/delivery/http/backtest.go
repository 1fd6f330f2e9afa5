package http

import (
	"net/http"

	"stock-backtest/internal/dto"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupBacktest(base *echo.Group) {
	backtestGroup := base.Group("/backtest")
	backtestGroup.POST("", h.runBacktest)
	backtestGroup.GET("/:id", h.getBacktestResult)
	backtestGroup.GET("/:id/progress", h.getBacktestProgress)
	backtestGroup.DELETE("/:id", h.cancelBacktest)
}

func (h *HttpAPIHandler) runBacktest(c echo.Context) error {
	ctx := c.Request().Context()

	req := new(dto.BacktestRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	if err := h.validator.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	run, err := h.service.BacktestService.RunBacktest(ctx, *req)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	progress, err := h.service.RunManager.Progress(run.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusAccepted, progress)
}

func (h *HttpAPIHandler) getBacktestProgress(c echo.Context) error {
	progress, err := h.service.RunManager.Progress(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, progress)
}

func (h *HttpAPIHandler) getBacktestResult(c echo.Context) error {
	result, err := h.service.RunManager.Result(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	if result == nil {
		progress, err := h.service.RunManager.Progress(c.Param("id"))
		if err != nil {
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, progress)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *HttpAPIHandler) cancelBacktest(c echo.Context) error {
	if err := h.service.RunManager.Cancel(c.Param("id")); err != nil {
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusAccepted)
}
