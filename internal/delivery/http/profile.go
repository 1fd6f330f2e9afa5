package http

import (
	"net/http"
	"strconv"

	"stock-backtest/internal/dto"
	"stock-backtest/internal/model"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

func (h *HttpAPIHandler) SetupProfiles(base *echo.Group) {
	profileGroup := base.Group("/profiles")
	profileGroup.POST("", h.createProfile)
	profileGroup.GET("", h.listProfiles)
	profileGroup.GET("/:id", h.getProfile)
	profileGroup.PUT("/:id", h.updateProfile)
	profileGroup.DELETE("/:id", h.deleteProfile)
}

func (h *HttpAPIHandler) bindProfile(c echo.Context) (*model.Profile, error) {
	req := new(dto.ProfileRequest)
	if err := c.Bind(req); err != nil {
		return nil, err
	}
	if err := h.validator.Struct(req); err != nil {
		return nil, err
	}

	initialFund, err := decimal.NewFromString(req.InitialFund)
	if err != nil {
		return nil, err
	}
	fees := model.FeeSchedule{
		CommissionFlat: decimal.Zero,
		CommissionPct:  decimal.Zero,
		MinCommission:  decimal.Zero,
		SellTaxPct:     decimal.Zero,
	}
	for _, f := range []struct {
		raw  string
		into *decimal.Decimal
	}{
		{req.CommissionFlat, &fees.CommissionFlat},
		{req.CommissionPct, &fees.CommissionPct},
		{req.MinCommission, &fees.MinCommission},
		{req.SellTaxPct, &fees.SellTaxPct},
	} {
		if f.raw == "" {
			continue
		}
		v, err := decimal.NewFromString(f.raw)
		if err != nil {
			return nil, err
		}
		*f.into = v
	}

	return &model.Profile{
		Name:            req.Name,
		Ticker:          req.Ticker,
		HoldingDuration: req.HoldingDuration,
		HoldingUnit:     req.HoldingUnit,
		HurdleRatePct:   req.HurdleRatePct,
		TaxModel:        req.TaxModel,
		InitialFund:     initialFund,
		FeeSchedule:     datatypes.NewJSONType(fees),
	}, nil
}

func (h *HttpAPIHandler) createProfile(c echo.Context) error {
	profile, err := h.bindProfile(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := h.service.ProfileService.Create(c.Request().Context(), profile); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, profile)
}

func (h *HttpAPIHandler) listProfiles(c echo.Context) error {
	profiles, err := h.service.ProfileService.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, profiles)
}

func (h *HttpAPIHandler) getProfile(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid profile id"})
	}
	profile, err := h.service.ProfileService.Get(c.Request().Context(), uint(id))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, profile)
}

func (h *HttpAPIHandler) updateProfile(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid profile id"})
	}
	profile, err := h.bindProfile(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	profile.ID = uint(id)
	if err := h.service.ProfileService.Update(c.Request().Context(), profile); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, profile)
}

func (h *HttpAPIHandler) deleteProfile(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid profile id"})
	}
	if err := h.service.ProfileService.Delete(c.Request().Context(), uint(id)); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}
