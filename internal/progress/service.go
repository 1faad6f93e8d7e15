package progress

import (
	"context"
	"errors"
	"fmt"
	"slices"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/2beens/fittrack/internal/datekey"
	"github.com/2beens/fittrack/internal/nutrition"
	"github.com/2beens/fittrack/internal/telemetry/tracing"
	"github.com/2beens/fittrack/internal/users"
)

//go:generate mockgen -source=$GOFILE -destination=profile_mocks_test.go -package=progress_test

type profileLoader interface {
	Get(ctx context.Context, userID string) (*users.Profile, error)
}

type Overview struct {
	Range        DateRange     `json:"range"`
	Trends       []Trend       `json:"trends"`
	Weight       WeightSummary `json:"weight"`
	Chart        *Chart        `json:"chart"`
	WeightGoalKg *float64      `json:"weightGoalKg"`
	Entries      int           `json:"entries"`
}

type TodayNutrition struct {
	Range   DateRange             `json:"range"`
	Summary nutrition.Summary     `json:"summary"`
	Entries []nutrition.EntryView `json:"entries"`
}

type NutritionFeed struct {
	Range   DateRange             `json:"range"`
	Summary nutrition.Summary     `json:"summary"`
	Entries []nutrition.EntryView `json:"entries"`
}

// Service answers the read side: listings, summaries and the progress overview
type Service struct {
	builder  *SeriesBuilder
	profiles profileLoader
	resolver *Resolver
}

func NewService(builder *SeriesBuilder, profiles profileLoader, resolver *Resolver) *Service {
	return &Service{
		builder:  builder,
		profiles: profiles,
		resolver: resolver,
	}
}

// resolve accepts only the range names a call site supports
func (s *Service) resolve(name string, month MonthKind, allowed ...string) (DateRange, error) {
	if !slices.Contains(allowed, name) {
		return DateRange{}, fmt.Errorf("%w: %q", ErrUnknownRange, name)
	}
	return s.resolver.Resolve(name, month)
}

// Overview loads the measurements of the range and the weight goal concurrently.
// Failing to load the profile only drops the goal, failing to load measurements fails the overview.
func (s *Service) Overview(ctx context.Context, userID, rangeName string) (_ *Overview, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.progress.overview")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rng, err := s.resolve(rangeName, MonthToDate, Range7d, RangeWeek, RangeMonth, RangeYear)
	if err != nil {
		return nil, err
	}

	var series *ProgressSeries
	var goal *float64

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		series, err = s.builder.Progress(gCtx, userID, rng)
		return err
	})
	if userID != "" {
		g.Go(func() error {
			profile, err := s.profiles.Get(gCtx, userID)
			if err != nil {
				if !errors.Is(err, users.ErrProfileNotFound) {
					log.Warnf("overview of %s without weight goal, load profile: %s", userID, err)
				}
				return nil
			}
			goal = profile.WeightGoalKg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	weights := series.Metrics[MetricWeight]
	return &Overview{
		Range:        rng,
		Trends:       ClassifyAll(series.Metrics),
		Weight:       SummarizeWeight(Values(weights), goal),
		Chart:        MapChart(weights, goal),
		WeightGoalKg: goal,
		Entries:      series.Count,
	}, nil
}

func (s *Service) NutritionToday(ctx context.Context, userID string) (*TodayNutrition, error) {
	rng := s.resolver.Today()
	series, err := s.builder.Nutrition(ctx, userID, rng)
	if err != nil {
		return nil, err
	}
	// a single day, so the feed is already in ascending hour order
	return &TodayNutrition{
		Range:   rng,
		Summary: series.Summary,
		Entries: series.Feed(),
	}, nil
}

// NutritionFeed lists entries newest day first, "month" being the whole calendar month
func (s *Service) NutritionFeed(ctx context.Context, userID, rangeName string) (*NutritionFeed, error) {
	rng, err := s.resolve(rangeName, FullMonth, Range7d, RangeWeek, RangeMonth)
	if err != nil {
		return nil, err
	}
	series, err := s.builder.Nutrition(ctx, userID, rng)
	if err != nil {
		return nil, err
	}
	return &NutritionFeed{
		Range:   rng,
		Summary: series.Summary,
		Entries: series.Feed(),
	}, nil
}

// NutritionHistory groups the calendar week, month or year around baseDay (today when empty)
func (s *Service) NutritionHistory(ctx context.Context, userID, rangeName, baseDay string) (*NutritionSeries, error) {
	resolver := s.resolver
	if baseDay != "" {
		base, err := datekey.ParseDay(baseDay, s.resolver.Location())
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnknownRange, err)
		}
		resolver = s.resolver.At(base)
	}

	var rng DateRange
	switch rangeName {
	case RangeWeek:
		rng = resolver.CalendarWeek()
	case RangeMonth:
		rng = resolver.CalendarMonth()
	case RangeYear:
		rng = resolver.Year()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRange, rangeName)
	}

	return s.builder.Nutrition(ctx, userID, rng)
}

func (s *Service) NutritionMonth(ctx context.Context, userID string, year, month int) (*NutritionSeries, error) {
	rng, err := s.resolver.Month(year, month)
	if err != nil {
		return nil, err
	}
	return s.builder.Nutrition(ctx, userID, rng)
}

// TrainingList groups workouts by day, "month" being month to date
func (s *Service) TrainingList(ctx context.Context, userID, rangeName string) (*TrainingSeries, error) {
	rng, err := s.resolve(rangeName, MonthToDate, RangeToday, Range7d, RangeWeek, RangeMonth)
	if err != nil {
		return nil, err
	}
	return s.builder.Training(ctx, userID, rng)
}

func (s *Service) Measurements(ctx context.Context, userID, rangeName string) (*ProgressSeries, error) {
	rng, err := s.resolve(rangeName, MonthToDate, Range7d, RangeWeek, RangeMonth, RangeYear)
	if err != nil {
		return nil, err
	}
	return s.builder.Progress(ctx, userID, rng)
}
