package measurements

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
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.measurements.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if entry.UserID == "" {
		return nil, errors.New("progress entry without user")
	}
	entry.ID = uuid.NewString()
	span.SetAttributes(attribute.String("entry.id", entry.ID))

	if _, err := r.db.Exec(
		ctx,
		`INSERT INTO progress_entry (id, user_id, fecha, weight, waist, hip, chest, arm)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`,
		entry.ID, entry.UserID, entry.DateKey,
		entry.Weight, entry.Waist, entry.Hip, entry.Chest, entry.Arm,
	); err != nil {
		return nil, fmt.Errorf("insert progress entry: %w", err)
	}

	return &entry, nil
}

// Update overwrites the measured values of an entry, its date is kept
func (r *Repo) Update(ctx context.Context, entry Entry) (_ *Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.measurements.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("entry.id", entry.ID))

	row := r.db.QueryRow(
		ctx,
		`UPDATE progress_entry SET weight = $1, waist = $2, hip = $3, chest = $4, arm = $5
			WHERE id = $6 AND user_id = $7
			RETURNING fecha;`,
		entry.Weight, entry.Waist, entry.Hip, entry.Chest, entry.Arm,
		entry.ID, entry.UserID,
	)
	if err := row.Scan(&entry.DateKey); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}

	return &entry, nil
}

func (r *Repo) Delete(ctx context.Context, userID, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.measurements.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("entry.id", id))

	tag, err := r.db.Exec(ctx, `DELETE FROM progress_entry WHERE id = $1 AND user_id = $2;`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// ListRange returns the user measurements with from <= fecha <= to (day keys), ascending
func (r *Repo) ListRange(ctx context.Context, userID, from, to string) (_ []Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.measurements.list_range")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	)

	rows, err := r.db.Query(
		ctx,
		`SELECT id, user_id, fecha, weight, waist, hip, chest, arm FROM progress_entry
			WHERE user_id = $1 AND fecha >= $2 AND fecha <= $3
			ORDER BY fecha ASC, id ASC;`,
		userID, from, to,
	)
	if err != nil {
		return nil, err
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var e Entry
		err := row.Scan(&e.ID, &e.UserID, &e.DateKey, &e.Weight, &e.Waist, &e.Hip, &e.Chest, &e.Arm)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("collect progress rows: %w", err)
	}

	return entries, nil
}

func (r *Repo) DeleteAllForUser(ctx context.Context, userID string) (_ int64, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.measurements.delete_all")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tag, err := r.db.Exec(ctx, `DELETE FROM progress_entry WHERE user_id = $1;`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
