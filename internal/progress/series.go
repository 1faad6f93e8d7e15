package progress

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/fittrack/internal/datekey"
	"github.com/2beens/fittrack/internal/measurements"
	"github.com/2beens/fittrack/internal/nutrition"
	"github.com/2beens/fittrack/internal/telemetry/metrics"
	"github.com/2beens/fittrack/internal/telemetry/tracing"
	"github.com/2beens/fittrack/internal/training"
)

var ErrLoadFailed = errors.New("could not load")

const (
	collectionNutrition = "nutrition"
	collectionTraining  = "training"
	collectionProgress  = "progress"
)

// Keyed is an entry that can be bucketed by day and ordered within it
type Keyed interface {
	DayKey() string
	SortKey() string
}

type DayGroup[T Keyed] struct {
	Day     string `json:"day"`
	Label   string `json:"label"`
	Entries []T    `json:"entries"`
}

// GroupByDay buckets entries by day key. Days come newest first, entries within a day oldest first.
func GroupByDay[T Keyed](entries []T) []DayGroup[T] {
	byDay := make(map[string][]T)
	for _, e := range entries {
		byDay[e.DayKey()] = append(byDay[e.DayKey()], e)
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))

	groups := make([]DayGroup[T], 0, len(days))
	for _, day := range days {
		dayEntries := byDay[day]
		sort.SliceStable(dayEntries, func(i, j int) bool {
			return dayEntries[i].SortKey() < dayEntries[j].SortKey()
		})
		groups = append(groups, DayGroup[T]{
			Day:     day,
			Label:   datekey.Label(day),
			Entries: dayEntries,
		})
	}
	return groups
}

type SeriesPoint struct {
	DateKey string  `json:"fecha"`
	Value   float64 `json:"value"`
}

func Values(points []SeriesPoint) []float64 {
	values := make([]float64, 0, len(points))
	for _, p := range points {
		values = append(values, p.Value)
	}
	return values
}

type NutritionDay struct {
	Day     string                `json:"day"`
	Label   string                `json:"label"`
	Entries []nutrition.EntryView `json:"entries"`
	Summary nutrition.Summary     `json:"summary"`
}

type NutritionSeries struct {
	Range   DateRange         `json:"range"`
	Days    []NutritionDay    `json:"days"`
	Summary nutrition.Summary `json:"summary"`
}

// Feed lists the entries newest day first, oldest first within a day
func (s *NutritionSeries) Feed() []nutrition.EntryView {
	feed := []nutrition.EntryView{}
	for _, d := range s.Days {
		feed = append(feed, d.Entries...)
	}
	return feed
}

type TrainingSeries struct {
	Range        DateRange                   `json:"range"`
	Days         []DayGroup[training.Entry] `json:"days"`
	TotalMinutes int                         `json:"totalMinutes"`
}

type ProgressSeries struct {
	Range   DateRange                       `json:"range"`
	Days    []DayGroup[measurements.Entry] `json:"days"`
	Metrics map[Metric][]SeriesPoint        `json:"metrics"`
	Count   int                             `json:"count"`
}

//go:generate mockgen -source=$GOFILE -destination=loaders_mocks_test.go -package=progress_test

type nutritionLoader interface {
	ListRange(ctx context.Context, userID, from, to string) ([]nutrition.Entry, error)
}

type trainingLoader interface {
	ListRange(ctx context.Context, userID, from, to string) ([]training.Entry, error)
}

type progressLoader interface {
	ListRange(ctx context.Context, userID, from, to string) ([]measurements.Entry, error)
}

// SeriesBuilder loads one collection over a range with a single query and shapes it into day groups
type SeriesBuilder struct {
	nutrition nutritionLoader
	training  trainingLoader
	progress  progressLoader
	metrics   *metrics.Manager
}

func NewSeriesBuilder(
	nutritionRepo nutritionLoader,
	trainingRepo trainingLoader,
	progressRepo progressLoader,
	metricsManager *metrics.Manager,
) *SeriesBuilder {
	return &SeriesBuilder{
		nutrition: nutritionRepo,
		training:  trainingRepo,
		progress:  progressRepo,
		metrics:   metricsManager,
	}
}

func (b *SeriesBuilder) Nutrition(ctx context.Context, userID string, rng DateRange) (_ *NutritionSeries, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "series.nutrition")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	series := &NutritionSeries{Range: rng, Days: []NutritionDay{}}
	if userID == "" {
		return series, nil
	}

	from, to := datekey.HourBounds(rng.StartKey, rng.EndKey)
	entries, err := load(b, collectionNutrition, func() ([]nutrition.Entry, error) {
		return b.nutrition.ListRange(ctx, userID, from, to)
	})
	if err != nil {
		return nil, err
	}

	for _, g := range GroupByDay(entries) {
		series.Days = append(series.Days, NutritionDay{
			Day:     g.Day,
			Label:   g.Label,
			Entries: nutrition.Views(g.Entries),
			Summary: nutrition.Summarize(g.Entries),
		})
	}
	series.Summary = nutrition.Summarize(entries)

	return series, nil
}

func (b *SeriesBuilder) Training(ctx context.Context, userID string, rng DateRange) (_ *TrainingSeries, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "series.training")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	series := &TrainingSeries{Range: rng, Days: []DayGroup[training.Entry]{}}
	if userID == "" {
		return series, nil
	}

	from, to := datekey.HourBounds(rng.StartKey, rng.EndKey)
	entries, err := load(b, collectionTraining, func() ([]training.Entry, error) {
		return b.training.ListRange(ctx, userID, from, to)
	})
	if err != nil {
		return nil, err
	}

	series.Days = GroupByDay(entries)
	series.TotalMinutes = training.TotalMinutes(entries)

	return series, nil
}

// Progress loads body measurements. Day-resolution keys are queried with the raw day bounds.
func (b *SeriesBuilder) Progress(ctx context.Context, userID string, rng DateRange) (_ *ProgressSeries, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "series.progress")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	series := &ProgressSeries{
		Range:   rng,
		Days:    []DayGroup[measurements.Entry]{},
		Metrics: emptyMetricSeries(),
	}
	if userID == "" {
		return series, nil
	}

	entries, err := load(b, collectionProgress, func() ([]measurements.Entry, error) {
		return b.progress.ListRange(ctx, userID, rng.StartKey, rng.EndKey)
	})
	if err != nil {
		return nil, err
	}

	series.Days = GroupByDay(entries)
	series.Metrics = MetricSeries(entries)
	series.Count = len(entries)

	return series, nil
}

// MetricSeries builds one ascending series per metric, skipping entries where the metric was not measured
func MetricSeries(entries []measurements.Entry) map[Metric][]SeriesPoint {
	sorted := make([]measurements.Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SortKey() < sorted[j].SortKey()
	})

	series := emptyMetricSeries()
	for _, e := range sorted {
		for _, m := range AllMetrics {
			if v := m.ValueOf(e); v != nil {
				series[m] = append(series[m], SeriesPoint{DateKey: e.DateKey, Value: *v})
			}
		}
	}
	return series
}

func emptyMetricSeries() map[Metric][]SeriesPoint {
	series := make(map[Metric][]SeriesPoint, len(AllMetrics))
	for _, m := range AllMetrics {
		series[m] = []SeriesPoint{}
	}
	return series
}

// load runs one collection query, recording its duration and mapping any failure to ErrLoadFailed
func load[T any](b *SeriesBuilder, collection string, query func() ([]T, error)) ([]T, error) {
	start := time.Now()
	entries, err := query()
	b.metrics.HistogramLoadDuration.WithLabelValues(collection).Observe(time.Since(start).Seconds())
	if err != nil {
		b.metrics.CounterLoadFailures.WithLabelValues(collection).Inc()
		log.Errorf("load %s series: %s", collection, err)
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadFailed, collection, err)
	}
	return entries, nil
}
