package controllers

import (
	"net/http"

	"github.com/emberlane/pos-backend/api/responses"
	"github.com/emberlane/pos-backend/api/validators"
	"github.com/emberlane/pos-backend/internal/staff"
	pkgerrors "github.com/emberlane/pos-backend/pkg/errors"
	"github.com/emberlane/pos-backend/pkg/logger"
)

type loginRequest struct {
	StaffID uint   `json:"staff_id" validate:"required"`
	PIN     string `json:"pin" validate:"required"`
}

// StaffLogin signs a till operator in with their PIN.
func StaffLogin(svc staff.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "staff service unavailable"))
			return
		}

		var req loginRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.Login(r.Context(), staff.LoginInput{StaffID: req.StaffID, PIN: req.PIN})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// StaffList returns the operators selectable on the PIN pad.
func StaffList(svc staff.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "staff service unavailable"))
			return
		}

		members, err := svc.ListAvailable(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, members)
	}
}
