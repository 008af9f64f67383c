package settings

import (
	"context"
	"fmt"

	"github.com/emberlane/pos-backend/internal/pricing"
	"github.com/emberlane/pos-backend/pkg/db/models"
	pkgerrors "github.com/emberlane/pos-backend/pkg/errors"
)

// Service exposes the admin settings used across pricing and cleanup.
type Service interface {
	CardFee(ctx context.Context) (pricing.CardFeeInput, error)
	CardFeeSettings(ctx context.Context) (*models.CardFeeSettings, error)
	UpdateCardFee(ctx context.Context, input UpdateCardFeeInput) (*models.CardFeeSettings, error)
	System(ctx context.Context) (*models.SystemSettings, error)
}

// UpdateCardFeeInput carries the admin-editable surcharge fields. Nil fields
// stay unchanged.
type UpdateCardFeeInput struct {
	Available        *bool
	PercentageAmount *float64
	MinFee           *float64
}

type service struct {
	repo Repository
}

// NewService builds the settings service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settings repository required")
	}
	return &service{repo: repo}, nil
}

// CardFee reads the current surcharge settings fresh on every call so an
// admin change applies to the next priced order.
func (s *service) CardFee(ctx context.Context) (pricing.CardFeeInput, error) {
	row, err := s.repo.GetCardFeeSettings(ctx)
	if err != nil {
		return pricing.CardFeeInput{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load card fee settings")
	}
	return pricing.CardFeeInput{
		Available:        row.Available,
		PercentageAmount: row.PercentageAmount,
		MinFee:           row.MinFee,
	}, nil
}

func (s *service) CardFeeSettings(ctx context.Context) (*models.CardFeeSettings, error) {
	row, err := s.repo.GetCardFeeSettings(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load card fee settings")
	}
	return row, nil
}

func (s *service) UpdateCardFee(ctx context.Context, input UpdateCardFeeInput) (*models.CardFeeSettings, error) {
	updates := map[string]any{}
	if input.Available != nil {
		updates["available"] = *input.Available
	}
	if input.PercentageAmount != nil {
		if *input.PercentageAmount < 0 || *input.PercentageAmount >= 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "percentage amount must be a fraction in [0, 1)")
		}
		updates["percentage_amount"] = *input.PercentageAmount
	}
	if input.MinFee != nil {
		if *input.MinFee < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "minimum fee cannot be negative")
		}
		updates["min_fee"] = *input.MinFee
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no settings fields provided")
	}

	if err := s.repo.UpdateCardFeeSettings(ctx, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update card fee settings")
	}
	row, err := s.repo.GetCardFeeSettings(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload card fee settings")
	}
	return row, nil
}

func (s *service) System(ctx context.Context) (*models.SystemSettings, error) {
	row, err := s.repo.GetSystemSettings(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load system settings")
	}
	return row, nil
}
