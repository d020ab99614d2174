package services

import "context"

type contextKey string

const (
	userIDKey    contextKey = "user_id"
	romIDKey     contextKey = "rom_id"
	requestIDKey contextKey = "request_id"
)

// WithUserID annotates context with the authenticated user identifier.
func WithUserID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFromContext extracts the authenticated user identifier if present.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	return int64Value(ctx, userIDKey)
}

// WithRomID annotates context with the ROM being operated on.
func WithRomID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, romIDKey, id)
}

// RomIDFromContext extracts the ROM identifier if present.
func RomIDFromContext(ctx context.Context) (int64, bool) {
	return int64Value(ctx, romIDKey)
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

func int64Value(ctx context.Context, key contextKey) (int64, bool) {
	v := ctx.Value(key)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}
