package controllers

import (
	"net/http"

	"github.com/emberlane/pos-backend/api/responses"
	"github.com/emberlane/pos-backend/api/validators"
	"github.com/emberlane/pos-backend/internal/settings"
	"github.com/emberlane/pos-backend/pkg/logger"
)

type updateCardFeeRequest struct {
	Available        *bool    `json:"available"`
	PercentageAmount *float64 `json:"percentage_amount" validate:"omitempty,gte=0,lt=1"`
	MinFee           *float64 `json:"min_fee" validate:"omitempty,gte=0"`
}

// CardFeeSettings returns the current card surcharge configuration.
func CardFeeSettings(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		row, err := svc.CardFeeSettings(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, row)
	}
}

// UpdateCardFeeSettings patches the surcharge configuration. Admin only.
func UpdateCardFeeSettings(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateCardFeeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.UpdateCardFee(r.Context(), settings.UpdateCardFeeInput{
			Available:        req.Available,
			PercentageAmount: req.PercentageAmount,
			MinFee:           req.MinFee,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, row)
	}
}

// SystemSettings returns timezone and cleanup bookkeeping.
func SystemSettings(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		row, err := svc.System(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, row)
	}
}
