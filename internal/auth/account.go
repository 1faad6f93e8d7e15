package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/fittrack/internal/telemetry/tracing"
	"github.com/2beens/fittrack/pkg"
)

var (
	ErrEmailTaken      = errors.New("email already registered")
	ErrAccountNotFound = errors.New("account not found")
	ErrWrongPassword   = errors.New("wrong password")
)

type Account struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

type AccountRepo struct {
	db *pgxpool.Pool
}

func NewAccountRepo(db *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{
		db: db,
	}
}

// NormalizeEmail is the form emails are stored and looked up in
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *AccountRepo) Create(ctx context.Context, email, passwordHash string, createdAt time.Time) (_ *Account, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.account.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	acc := &Account{
		ID:           uuid.NewString(),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		CreatedAt:    createdAt,
	}
	span.SetAttributes(attribute.String("account.id", acc.ID))

	if _, err := r.db.Exec(
		ctx,
		`INSERT INTO account (id, email, password_hash, created_at) VALUES ($1, $2, $3, $4);`,
		acc.ID, acc.Email, acc.PasswordHash, acc.CreatedAt,
	); err != nil {
		if pkg.IsUniqueViolationError(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}

	return acc, nil
}

func (r *AccountRepo) ByEmail(ctx context.Context, email string) (_ *Account, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.account.by_email")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var acc Account
	if err := r.db.QueryRow(
		ctx,
		`SELECT id, email, password_hash, created_at FROM account WHERE email = $1;`,
		NormalizeEmail(email),
	).Scan(&acc.ID, &acc.Email, &acc.PasswordHash, &acc.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	return &acc, nil
}

func (r *AccountRepo) SetPassword(ctx context.Context, accountID, passwordHash string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.account.set_password")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("account.id", accountID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE account SET password_hash = $1 WHERE id = $2;`,
		passwordHash, accountID,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}

	return nil
}

// Authenticate checks the password of the account registered with email.
// An unknown email and a wrong password give the same error.
func Authenticate(ctx context.Context, accounts accountStore, email, password string) (*Account, error) {
	acc, err := accounts.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrWrongPassword
		}
		return nil, err
	}

	if !pkg.CheckPasswordHash(password, acc.PasswordHash) {
		return nil, ErrWrongPassword
	}
	return acc, nil
}
