package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/fittrack/pkg"
)

const (
	DefaultTTL            = 24 * 7 * time.Hour
	sessionKeyPrefix      = "fittrack-session||"
	tokensSetKey          = "fittrack-sessions"
	userSessionsKeyPrefix = "fittrack-user-sessions||"
)

var ErrNoSession = errors.New("no session")

type LoginSession struct {
	Token     string
	UserID    string
	CreatedAt time.Time
}

// Service keeps login sessions in redis: one key per token holding "<uid>|<createdUnix>",
// the set of all tokens, and the set of tokens of each user.
type Service struct {
	redisClient *redis.Client
	ttl         time.Duration
	// ability to inject random string generator func for tokens (for unit and dev testing)
	RandStringFunc func(s int) (string, error)
}

func NewAuthService(
	ttl time.Duration,
	redisClient *redis.Client,
) *Service {
	return &Service{
		ttl:            ttl,
		redisClient:    redisClient,
		RandStringFunc: pkg.GenerateRandomString,
	}
}

func (as *Service) Login(ctx context.Context, userID string, createdAt time.Time) (string, error) {
	if userID == "" {
		return "", errors.New("login without user")
	}

	token, err := as.RandStringFunc(35)
	if err != nil {
		return "", err
	}

	sessionKey := sessionKeyPrefix + token
	cmdSet := as.redisClient.Set(ctx, sessionKey, sessionValue(userID, createdAt), 0)
	if err := cmdSet.Err(); err != nil {
		return "", err
	}

	// add token to list of sessions
	cmdSAdd := as.redisClient.SAdd(ctx, tokensSetKey, token)
	if err := cmdSAdd.Err(); err != nil {
		return "", err
	}
	cmdSAdd = as.redisClient.SAdd(ctx, userSessionsKeyPrefix+userID, token)
	if err := cmdSAdd.Err(); err != nil {
		return "", err
	}

	return token, nil
}

// Logout ends the session of token and returns it, ErrNoSession if there is none
func (as *Service) Logout(ctx context.Context, token string) (*LoginSession, error) {
	cmd := as.redisClient.Get(ctx, sessionKeyPrefix+token)
	if err := cmd.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoSession
		}
		return nil, err
	}

	session, err := parseSession(token, cmd.Val())
	if err != nil {
		return nil, err
	}

	if err := as.remove(ctx, session.UserID, token); err != nil {
		return nil, err
	}
	return session, nil
}

// RevokeAll ends every session of the user and returns the revoked tokens
func (as *Service) RevokeAll(ctx context.Context, userID string) ([]string, error) {
	userSessionsKey := userSessionsKeyPrefix + userID
	cmd := as.redisClient.SMembers(ctx, userSessionsKey)
	if err := cmd.Err(); err != nil {
		return nil, err
	}

	tokens := cmd.Val()
	for _, token := range tokens {
		if err := as.redisClient.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
			return nil, fmt.Errorf("revoke session: %w", err)
		}
		if err := as.redisClient.SRem(ctx, tokensSetKey, token).Err(); err != nil {
			return nil, fmt.Errorf("revoke session: %w", err)
		}
	}

	if err := as.redisClient.Del(ctx, userSessionsKey).Err(); err != nil {
		return nil, err
	}

	return tokens, nil
}

// ScanAndClean will run through all sessions, check the TTL, and clean them if old.
// It returns the tokens of the removed sessions.
func (as *Service) ScanAndClean(ctx context.Context) []string {
	cmd := as.redisClient.SMembers(ctx, tokensSetKey)
	if err := cmd.Err(); err != nil {
		log.Errorf("!!! auth service, scan and clean, get sessions: %s", err)
		return nil
	}

	sessionTokens := cmd.Val()
	if len(sessionTokens) == 0 {
		log.Debugln("=> auth service, scan and clean abort, no sessions")
		return nil
	}

	log.Debugf("=> auth service, scan and clean [%d sessions] start ...", len(sessionTokens))
	var toRemove []*LoginSession
	for _, token := range sessionTokens {
		cmd := as.redisClient.Get(ctx, sessionKeyPrefix+token)
		if err := cmd.Err(); err != nil {
			if errors.Is(err, redis.Nil) {
				// dangling token, the session key is gone already
				toRemove = append(toRemove, &LoginSession{Token: token})
				continue
			}
			log.Errorf("=> auth service, scan and clean token %s: %s", token, err)
			continue
		}

		session, err := parseSession(token, cmd.Val())
		if err != nil {
			log.Errorf("=> auth service, scan and clean token %s: %s", token, err)
			continue
		}

		if time.Since(session.CreatedAt) > as.ttl {
			log.Debugf("=>\twill clean the session with token: %s", token)
			toRemove = append(toRemove, session)
		}
	}

	var removed []string
	for _, session := range toRemove {
		if err := as.remove(ctx, session.UserID, session.Token); err != nil {
			log.Errorf("=> auth service, clean token %s: %s", session.Token, err)
			continue
		}
		removed = append(removed, session.Token)
	}

	return removed
}

func (as *Service) remove(ctx context.Context, userID, token string) error {
	if err := as.redisClient.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
		return err
	}

	// remove token from the list of sessions
	if err := as.redisClient.SRem(ctx, tokensSetKey, token).Err(); err != nil {
		return err
	}
	if userID == "" {
		return nil
	}
	return as.redisClient.SRem(ctx, userSessionsKeyPrefix+userID, token).Err()
}

func sessionValue(userID string, createdAt time.Time) string {
	return userID + "|" + strconv.FormatInt(createdAt.Unix(), 10)
}

func parseSession(token, value string) (*LoginSession, error) {
	userID, createdAtUnixStr, found := strings.Cut(value, "|")
	if !found || userID == "" {
		return nil, fmt.Errorf("malformed session value %q", value)
	}

	createdAtUnix, err := strconv.ParseInt(createdAtUnixStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed session value %q: %w", value, err)
	}

	return &LoginSession{
		Token:     token,
		UserID:    userID,
		CreatedAt: time.Unix(createdAtUnix, 0),
	}, nil
}
