package training

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
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

func (r *Repo) Add(ctx context.Context, entry Entry) (_ *Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.training.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if entry.UserID == "" {
		return nil, errors.New("training entry without user")
	}
	entry.ID = uuid.NewString()
	span.SetAttributes(attribute.String("entry.id", entry.ID))

	if _, err := r.db.Exec(
		ctx,
		`INSERT INTO training_entry (id, user_id, fecha, training_type, minutes)
			VALUES ($1, $2, $3, $4, $5);`,
		entry.ID, entry.UserID, entry.TimestampKey, entry.Type, entry.Minutes,
	); err != nil {
		return nil, fmt.Errorf("insert training entry: %w", err)
	}

	return &entry, nil
}

func (r *Repo) Update(ctx context.Context, entry Entry) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.training.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("entry.id", entry.ID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE training_entry SET fecha = $1, training_type = $2, minutes = $3
			WHERE id = $4 AND user_id = $5;`,
		entry.TimestampKey, entry.Type, entry.Minutes, entry.ID, entry.UserID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, userID, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.training.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("entry.id", id))

	tag, err := r.db.Exec(ctx, `DELETE FROM training_entry WHERE id = $1 AND user_id = $2;`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// ListRange returns the user workouts with from <= fecha <= to (timestamp keys), ascending
func (r *Repo) ListRange(ctx context.Context, userID, from, to string) (_ []Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.training.list_range")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	)

	rows, err := r.db.Query(
		ctx,
		`SELECT id, user_id, fecha, training_type, minutes FROM training_entry
			WHERE user_id = $1 AND fecha >= $2 AND fecha <= $3
			ORDER BY fecha ASC, id ASC;`,
		userID, from, to,
	)
	if err != nil {
		return nil, err
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var e Entry
		err := row.Scan(&e.ID, &e.UserID, &e.TimestampKey, &e.Type, &e.Minutes)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("collect training rows: %w", err)
	}

	return entries, nil
}

func (r *Repo) DeleteAllForUser(ctx context.Context, userID string) (_ int64, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.training.delete_all")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tag, err := r.db.Exec(ctx, `DELETE FROM training_entry WHERE user_id = $1;`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
