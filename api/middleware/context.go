package middleware

import "context"

type contextKey string

const (
	ctxStaffID   contextKey = "staff_id"
	ctxStaffName contextKey = "staff_name"
	ctxIsAdmin   contextKey = "is_admin"
)

// StaffIDFromContext returns the authenticated staff id, 0 if absent.
func StaffIDFromContext(ctx context.Context) uint {
	if ctx == nil {
		return 0
	}
	if v, ok := ctx.Value(ctxStaffID).(uint); ok {
		return v
	}
	return 0
}

// StaffNameFromContext returns the authenticated staff display name.
func StaffNameFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxStaffName).(string); ok {
		return v
	}
	return ""
}

// IsAdminFromContext reports whether the authenticated staff is an admin.
func IsAdminFromContext(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	if v, ok := ctx.Value(ctxIsAdmin).(bool); ok {
		return v
	}
	return false
}

// WithStaff seeds the context with a staff identity. Used by tests and the
// auth middleware.
func WithStaff(ctx context.Context, staffID uint, name string, isAdmin bool) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxStaffID, staffID)
	ctx = context.WithValue(ctx, ctxStaffName, name)
	return context.WithValue(ctx, ctxIsAdmin, isAdmin)
}
