package dashboard

import (
	"errors"
	"fmt"
	"slices"

	"github.com/2beens/fittrack/internal/progress"
)

var ErrInvalidState = errors.New("invalid view state")

const (
	TabHome      = "home"
	TabNutrition = "nutrition"
	TabTraining  = "training"
	TabProgress  = "progress"
	TabProfile   = "profile"

	ProgressTabOverview     = "overview"
	ProgressTabMeasurements = "measurements"
	ProgressTabPhotos       = "photos"
)

var (
	tabs            = []string{TabHome, TabNutrition, TabTraining, TabProgress, TabProfile}
	progressTabs    = []string{ProgressTabOverview, ProgressTabMeasurements, ProgressTabPhotos}
	nutritionRanges = []string{progress.Range7d, progress.RangeWeek, progress.RangeMonth}
	trainingRanges  = []string{progress.RangeToday, progress.Range7d, progress.RangeWeek, progress.RangeMonth}
	trendRanges     = []string{progress.Range7d, progress.RangeWeek, progress.RangeMonth, progress.RangeYear}
)

// State is the persisted selection of a user's dashboard
type State struct {
	Tab            string `json:"tab"`
	ProgressTab    string `json:"progressTab"`
	NutritionRange string `json:"nutritionRange"`
	TrainingRange  string `json:"trainingRange"`
	TrendRange     string `json:"trendRange"`
}

func DefaultState() State {
	return State{
		Tab:            TabHome,
		ProgressTab:    ProgressTabOverview,
		NutritionRange: progress.Range7d,
		TrainingRange:  progress.Range7d,
		TrendRange:     progress.RangeMonth,
	}
}

func (s State) Validate() error {
	fields := []struct {
		name    string
		value   string
		allowed []string
	}{
		{"tab", s.Tab, tabs},
		{"progressTab", s.ProgressTab, progressTabs},
		{"nutritionRange", s.NutritionRange, nutritionRanges},
		{"trainingRange", s.TrainingRange, trainingRanges},
		{"trendRange", s.TrendRange, trendRanges},
	}
	for _, f := range fields {
		if !slices.Contains(f.allowed, f.value) {
			return fmt.Errorf("%w: %s %q", ErrInvalidState, f.name, f.value)
		}
	}
	return nil
}
