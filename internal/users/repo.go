package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/fittrack/internal/telemetry/tracing"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Get(ctx context.Context, userID string) (_ *Profile, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	var p Profile
	var gender, goal string
	if err := r.db.QueryRow(
		ctx,
		`SELECT id, email, name, gender, height_cm, weight_kg, age, goal, weight_goal_kg, created_at, ai_consent
			FROM user_profile WHERE id = $1;`,
		userID,
	).Scan(
		&p.ID, &p.Email, &p.Name, &gender, &p.HeightCm, &p.WeightKg, &p.Age,
		&goal, &p.WeightGoalKg, &p.CreatedAt, &p.AIConsent,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	p.Gender = Gender(gender)
	p.Goal = Goal(goal)

	return &p, nil
}

// Upsert creates the profile or replaces its editable fields. Email and creation day are kept.
func (r *Repo) Upsert(ctx context.Context, p Profile) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.upsert")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", p.ID))

	if p.ID == "" {
		return errors.New("profile without id")
	}

	if _, err := r.db.Exec(
		ctx,
		`INSERT INTO user_profile
				(id, email, name, gender, height_cm, weight_kg, age, goal, weight_goal_kg, created_at, ai_consent)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				gender = EXCLUDED.gender,
				height_cm = EXCLUDED.height_cm,
				weight_kg = EXCLUDED.weight_kg,
				age = EXCLUDED.age,
				goal = EXCLUDED.goal,
				weight_goal_kg = EXCLUDED.weight_goal_kg,
				ai_consent = EXCLUDED.ai_consent;`,
		p.ID, p.Email, p.Name, string(p.Gender), p.HeightCm, p.WeightKg, p.Age,
		string(p.Goal), p.WeightGoalKg, p.CreatedAt, p.AIConsent,
	); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}

	return nil
}
