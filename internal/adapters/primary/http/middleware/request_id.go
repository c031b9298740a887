package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const (
	// RequestIDKey is the context key under which the request ID is stored
	RequestIDKey contextKey = "request_id"
	// RequestIDHeader is the header the ID is read from and echoed back on
	RequestIDHeader = "X-Request-ID"
)

// RequestID tags every request with an ID so a citizen's report can be
// traced across handler, service, and notifier logs. An inbound
// X-Request-ID from a trusted proxy is reused, otherwise one is minted.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, id)

		ctx := context.WithValue(r.Context(), RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request ID stored by RequestID, or "" when the
// request never passed through it (tests hitting a bare handler).
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}
