package controllers

import (
	"net/http"

	"github.com/emberlane/pos-backend/api/responses"
	"github.com/emberlane/pos-backend/api/validators"
	"github.com/emberlane/pos-backend/internal/archive"
	"github.com/emberlane/pos-backend/pkg/logger"
)

// ListHistory returns archived order snapshots, optionally filtered by day.
func ListHistory(svc archive.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, err := validators.ParseQueryDate(r, "date")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 100, 1, 500)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListHistory(r.Context(), archive.HistoryFilters{Date: date, Limit: limit})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// HistoryByOrderID returns the archived snapshot for one original order.
func HistoryByOrderID(svc archive.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseURLUint(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.HistoryByOrderID(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, row)
	}
}

// RunCleanup archives finished orders and recycles numbers on demand.
// Admin only.
func RunCleanup(svc archive.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.DailyCleanup(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ResetOrderNumbers renumbers active orders without archiving. Admin only.
func ResetOrderNumbers(svc archive.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		changed, err := svc.ResetNumbers(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"renumbered": changed})
	}
}
