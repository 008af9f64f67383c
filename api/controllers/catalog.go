package controllers

import (
	"net/http"

	"github.com/emberlane/pos-backend/api/responses"
	"github.com/emberlane/pos-backend/internal/catalog"
	pkgerrors "github.com/emberlane/pos-backend/pkg/errors"
	"github.com/emberlane/pos-backend/pkg/logger"
)

// Menu returns the full category tree with items, mod lists, and mods.
func Menu(repo catalog.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}

		categories, err := repo.ListCategories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories"))
			return
		}
		responses.WriteSuccess(w, categories)
	}
}

// DiscountGroups returns the discount tree shown on the till.
func DiscountGroups(repo catalog.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}

		groups, err := repo.ListDiscountGroups(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list discount groups"))
			return
		}
		responses.WriteSuccess(w, groups)
	}
}
