package middleware

import (
	"context"
	"errors"
	"net/http"

	"familycalls/internal/httputil"
	"familycalls/internal/model"
)

// DeviceIDHeader carries the caller's device identifier. The device id is
// the whole credential: whoever holds it is the user it registered as.
const DeviceIDHeader = "X-Device-ID"

// DeviceResolver maps a device id to its roster entry.
// Implemented by the directory service.
type DeviceResolver interface {
	Lookup(ctx context.Context, deviceID string) (*model.User, error)
}

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// UserIDKey is the context key for the authenticated user's ID
	UserIDKey contextKey = "user_id"
)

// DeviceAuth resolves the X-Device-ID header to a registered user and puts
// the user id on the request context. Unknown or missing device → 401.
func DeviceAuth(resolver DeviceResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			deviceID := r.Header.Get(DeviceIDHeader)
			if deviceID == "" {
				httputil.WriteUnauthorized(w, "Missing device id")
				return
			}

			user, err := resolver.Lookup(r.Context(), deviceID)
			if err != nil {
				if errors.Is(err, model.ErrUserNotFound) {
					httputil.WriteUnauthorized(w, "Device not registered")
					return
				}
				httputil.WriteInternalError(w, "Failed to resolve device")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, user.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserIDFromContext extracts the user ID from the request context.
// Returns the ID and true if present, or "" and false if not.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}
