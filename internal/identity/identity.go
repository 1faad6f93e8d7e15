// Package identity carries the authenticated user of a request.
// A request without a user is a regular state: handlers answer with empty data.
package identity

import (
	"context"
	"net/http"

	log "github.com/sirupsen/logrus"
)

type ctxKey struct{}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserID returns the request user, ok is false when there is none
func UserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(ctxKey{}).(string)
	if !ok || userID == "" {
		return "", false
	}
	return userID, true
}

// Require is UserID for handlers that cannot serve anonymous requests.
// It answers 401 itself when there is no user.
func Require(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := UserID(r.Context())
	if !ok {
		log.Tracef("[no identity] unauthorized => %s", r.URL.Path)
		http.Error(w, "no can do", http.StatusUnauthorized)
		return "", false
	}
	return userID, true
}
