package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

type LoginChecker struct {
	ttl         time.Duration
	redisClient *redis.Client
}

func NewLoginChecker(ttl time.Duration, redisClient *redis.Client) *LoginChecker {
	return &LoginChecker{
		ttl:         ttl,
		redisClient: redisClient,
	}
}

// UserID resolves token to the user of its session. ok is false for unknown and expired sessions.
func (c *LoginChecker) UserID(ctx context.Context, token string) (string, bool, error) {
	if token == "" {
		return "", false, nil
	}

	cmd := c.redisClient.Get(ctx, sessionKeyPrefix+token)
	if err := cmd.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}

	session, err := parseSession(token, cmd.Val())
	if err != nil {
		return "", false, err
	}

	if time.Since(session.CreatedAt) > c.ttl {
		return "", false, nil
	}

	return session.UserID, true, nil
}

// BearerToken reads the token of an "Authorization: Bearer <token>" header
func BearerToken(r *http.Request) string {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}
