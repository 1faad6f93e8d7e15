package nutrition

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

const entryColumns = `id, user_id, fecha, protein, carbs, fat, vegetables, title, notes`

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, entry Entry) (_ *Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.nutrition.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if entry.UserID == "" {
		return nil, errors.New("nutrition entry without user")
	}
	entry.ID = uuid.NewString()
	span.SetAttributes(attribute.String("entry.id", entry.ID))

	if _, err := r.db.Exec(
		ctx,
		`INSERT INTO nutrition_entry (`+entryColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);`,
		entry.ID, entry.UserID, entry.TimestampKey,
		entry.Protein, entry.Carbs, entry.Fat, entry.Vegetables,
		entry.Title, entry.Notes,
	); err != nil {
		return nil, fmt.Errorf("insert nutrition entry: %w", err)
	}

	return &entry, nil
}

func (r *Repo) Get(ctx context.Context, userID, id string) (_ *Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.nutrition.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("entry.id", id))

	row := r.db.QueryRow(
		ctx,
		`SELECT `+entryColumns+` FROM nutrition_entry WHERE id = $1 AND user_id = $2;`,
		id, userID,
	)
	entry, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *Repo) Update(ctx context.Context, entry Entry) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.nutrition.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("entry.id", entry.ID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE nutrition_entry
			SET fecha = $1, protein = $2, carbs = $3, fat = $4, vegetables = $5, title = $6, notes = $7
			WHERE id = $8 AND user_id = $9;`,
		entry.TimestampKey, entry.Protein, entry.Carbs, entry.Fat, entry.Vegetables,
		entry.Title, entry.Notes,
		entry.ID, entry.UserID,
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
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.nutrition.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("entry.id", id))

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM nutrition_entry WHERE id = $1 AND user_id = $2;`,
		id, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// ListRange returns the user entries with from <= fecha <= to, ascending by fecha.
// Both bounds are timestamp keys.
func (r *Repo) ListRange(ctx context.Context, userID, from, to string) (_ []Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.nutrition.list_range")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	)

	rows, err := r.db.Query(
		ctx,
		`SELECT `+entryColumns+` FROM nutrition_entry
			WHERE user_id = $1 AND fecha >= $2 AND fecha <= $3
			ORDER BY fecha ASC, id ASC;`,
		userID, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *Repo) DeleteAllForUser(ctx context.Context, userID string) (_ int64, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.nutrition.delete_all")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tag, err := r.db.Exec(ctx, `DELETE FROM nutrition_entry WHERE user_id = $1;`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	if err := row.Scan(
		&e.ID, &e.UserID, &e.TimestampKey,
		&e.Protein, &e.Carbs, &e.Fat, &e.Vegetables,
		&e.Title, &e.Notes,
	); err != nil {
		return nil, err
	}
	return &e, nil
}
