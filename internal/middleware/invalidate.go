package middleware

import (
	"net/http"

	"github.com/2beens/fittrack/internal/identity"
)

// InvalidateOnWrite calls invalidate with the request user once a write succeeded.
// OPTIONS and failed requests leave cached views alone.
func InvalidateOnWrite(invalidate func(userID string)) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			resp := &responseWriter{w, http.StatusOK}
			next.ServeHTTP(resp, r)

			if r.Method == http.MethodOptions || resp.statusCode >= http.StatusBadRequest {
				return
			}
			if userID, ok := identity.UserID(r.Context()); ok {
				invalidate(userID)
			}
		})
	}
}
