package auth

import "context"

var _ Checker = (*LoginChecker)(nil)

type Checker interface {
	UserID(ctx context.Context, token string) (string, bool, error)
}
