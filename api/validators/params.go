package validators

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/emberlane/pos-backend/pkg/errors"
)

// ParseURLUint reads a positive integer path parameter.
func ParseURLUint(r *http.Request, name string) (uint, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || value == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid "+name)
	}
	return uint(value), nil
}

// ParseQueryInt reads an integer query parameter with bounds, falling back to
// def when absent.
func ParseQueryInt(r *http.Request, name string, def, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid "+name)
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, name+" out of range")
	}
	return value, nil
}

// ParseQueryDate reads a YYYY-MM-DD query parameter, nil when absent.
func ParseQueryDate(r *http.Request, name string) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	value, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, name+" must be YYYY-MM-DD")
	}
	return &value, nil
}
