package dashboard

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/2beens/fittrack/internal/progress"
	"github.com/2beens/fittrack/internal/telemetry/tracing"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=dashboard_test

type progressReader interface {
	NutritionToday(ctx context.Context, userID string) (*progress.TodayNutrition, error)
	NutritionFeed(ctx context.Context, userID, rangeName string) (*progress.NutritionFeed, error)
	TrainingList(ctx context.Context, userID, rangeName string) (*progress.TrainingSeries, error)
	Overview(ctx context.Context, userID, rangeName string) (*progress.Overview, error)
}

// Snapshot is everything the dashboard shows for one view state
type Snapshot struct {
	State     State                    `json:"state"`
	Today     *progress.TodayNutrition `json:"today"`
	Nutrition *progress.NutritionFeed  `json:"nutrition"`
	Training  *progress.TrainingSeries `json:"training"`
	Overview  *progress.Overview       `json:"overview"`
	LoadedAt  time.Time                `json:"loadedAt"`
}

type SnapshotLoader struct {
	reader progressReader
	now    func() time.Time
}

func NewSnapshotLoader(reader progressReader) *SnapshotLoader {
	return &SnapshotLoader{
		reader: reader,
		now:    time.Now,
	}
}

func (l *SnapshotLoader) WithClock(now func() time.Time) *SnapshotLoader {
	l.now = now
	return l
}

// Load fetches the parts of the snapshot concurrently. Any failing part fails the whole snapshot.
func (l *SnapshotLoader) Load(ctx context.Context, userID string, state State) (_ *Snapshot, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.dashboard.snapshot")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("nutrition_range", state.NutritionRange),
		attribute.String("training_range", state.TrainingRange),
		attribute.String("trend_range", state.TrendRange),
	)

	snap := &Snapshot{State: state}
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.Today, err = l.reader.NutritionToday(gCtx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Nutrition, err = l.reader.NutritionFeed(gCtx, userID, state.NutritionRange)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Training, err = l.reader.TrainingList(gCtx, userID, state.TrainingRange)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Overview, err = l.reader.Overview(gCtx, userID, state.TrendRange)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap.LoadedAt = l.now()
	return snap, nil
}
