package service

import (
	"context"
	"fmt"

	"stock-backtest/internal/model"
	"stock-backtest/internal/repository"
	"stock-backtest/pkg/logger"
)

// ProfileService owns profile setup and explicit parameter updates. A
// profile is never mutated any other way; running backtests operate on
// snapshots taken at run start.
type ProfileService interface {
	Create(ctx context.Context, profile *model.Profile) error
	Update(ctx context.Context, profile *model.Profile) error
	Get(ctx context.Context, id uint) (*model.Profile, error)
	List(ctx context.Context) ([]model.Profile, error)
	Delete(ctx context.Context, id uint) error
}

type profileService struct {
	log         *logger.Logger
	profileRepo repository.ProfileRepository
}

func NewProfileService(log *logger.Logger, profileRepo repository.ProfileRepository) ProfileService {
	return &profileService{log: log, profileRepo: profileRepo}
}

func validateProfile(p *model.Profile) error {
	if p.Ticker == "" {
		return fmt.Errorf("profile requires exactly one ticker")
	}
	if p.HoldingDuration <= 0 {
		return fmt.Errorf("holding duration must be positive")
	}
	if !p.HoldingUnit.Valid() {
		return fmt.Errorf("invalid holding unit %q", p.HoldingUnit)
	}
	if !p.TaxModel.Valid() {
		return fmt.Errorf("invalid tax model %q", p.TaxModel)
	}
	if !p.InitialFund.IsPositive() {
		return fmt.Errorf("initial fund must be positive")
	}
	fees := p.FeeSchedule.Data()
	if fees.CommissionPct.IsNegative() || fees.CommissionFlat.IsNegative() || fees.SellTaxPct.IsNegative() {
		return fmt.Errorf("fee schedule must not be negative")
	}
	return nil
}

func (s *profileService) Create(ctx context.Context, profile *model.Profile) error {
	if err := validateProfile(profile); err != nil {
		return err
	}
	if err := s.profileRepo.Create(ctx, profile); err != nil {
		s.log.ErrorContext(ctx, "Failed to create profile", logger.ErrorField(err))
		return err
	}
	return nil
}

func (s *profileService) Update(ctx context.Context, profile *model.Profile) error {
	if err := validateProfile(profile); err != nil {
		return err
	}
	if _, err := s.profileRepo.GetByID(ctx, profile.ID); err != nil {
		return err
	}
	return s.profileRepo.Update(ctx, profile)
}

func (s *profileService) Get(ctx context.Context, id uint) (*model.Profile, error) {
	return s.profileRepo.GetByID(ctx, id)
}

func (s *profileService) List(ctx context.Context) ([]model.Profile, error) {
	return s.profileRepo.GetAll(ctx)
}

func (s *profileService) Delete(ctx context.Context, id uint) error {
	return s.profileRepo.Delete(ctx, id)
}
