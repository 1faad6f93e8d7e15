package progress

import (
	"fmt"
	"math"

	"github.com/2beens/fittrack/internal/measurements"
)

type Metric string

const (
	MetricWeight Metric = "peso"
	MetricWaist  Metric = "cintura"
	MetricHip    Metric = "cadera"
	MetricChest  Metric = "pecho"
	MetricArm    Metric = "brazo"
)

var AllMetrics = []Metric{MetricWeight, MetricWaist, MetricHip, MetricChest, MetricArm}

func ParseMetric(name string) (Metric, error) {
	for _, m := range AllMetrics {
		if string(m) == name {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown metric %q", name)
}

func (m Metric) Unit() string {
	if m == MetricWeight {
		return "kg"
	}
	return "cm"
}

// outlierLimit is the largest plausible change of a metric within a range
func (m Metric) outlierLimit() float64 {
	if m == MetricWeight {
		return 6
	}
	return 12
}

func (m Metric) ValueOf(e measurements.Entry) *float64 {
	switch m {
	case MetricWeight:
		return e.Weight
	case MetricWaist:
		return e.Waist
	case MetricHip:
		return e.Hip
	case MetricChest:
		return e.Chest
	case MetricArm:
		return e.Arm
	}
	return nil
}

type Status string

const (
	StatusGood    Status = "good"
	StatusNeutral Status = "neutral"
	StatusWarn    Status = "warn"
	StatusBad     Status = "bad"
)

const (
	ArrowUp      = "↑"
	ArrowDown    = "↓"
	ArrowStable  = "→"
	ArrowOutlier = "⚠️"
)

type Trend struct {
	Metric      Metric  `json:"metric"`
	Arrow       string  `json:"arrow"`
	Status      Status  `json:"status"`
	Description string  `json:"description"`
	Diff        float64 `json:"diff"`
	Points      int     `json:"points"`
}

const minTrendPoints = 2

// weightBand is the classification of a weight change, shared by the trend and the weight summary
type weightBand int

const (
	weightOutlier weightBand = iota
	weightFastLoss
	weightModerateLoss
	weightStable
	weightModerateGain
	weightFastGain
)

func classifyWeight(diff float64) weightBand {
	switch {
	case math.Abs(diff) > MetricWeight.outlierLimit():
		return weightOutlier
	case diff < -1.5:
		return weightFastLoss
	case diff < -0.3:
		return weightModerateLoss
	case diff <= 0.3:
		return weightStable
	case diff <= 1.0:
		return weightModerateGain
	default:
		return weightFastGain
	}
}

// seriesDiff is last minus first, rounded to 2 decimals so float noise does not cross a threshold
func seriesDiff(series []float64) float64 {
	diff := series[len(series)-1] - series[0]
	return math.Round(diff*100) / 100
}

// Classify labels the change of a metric over an ascending series.
// Only the first and last values and the number of points matter.
func Classify(metric Metric, series []float64) Trend {
	trend := Trend{
		Metric: metric,
		Arrow:  ArrowStable,
		Status: StatusNeutral,
		Points: len(series),
	}

	if len(series) < minTrendPoints {
		trend.Description = insufficientData(len(series))
		return trend
	}

	diff := seriesDiff(series)
	trend.Diff = diff
	unit := metric.Unit()

	if math.Abs(diff) > metric.outlierLimit() {
		trend.Arrow = ArrowOutlier
		trend.Status = StatusBad
		trend.Description = fmt.Sprintf("Cambio atípico (%+.1f %s), revisa la medida", diff, unit)
		return trend
	}

	switch metric {
	case MetricWeight:
		switch classifyWeight(diff) {
		case weightFastLoss:
			trend.Arrow, trend.Status = ArrowDown, StatusBad
			trend.Description = fmt.Sprintf("Bajada rápida (%+.1f %s)", diff, unit)
		case weightModerateLoss:
			trend.Arrow = ArrowDown
			trend.Description = fmt.Sprintf("Bajada moderada (%+.1f %s)", diff, unit)
		case weightStable:
			trend.Description = "Estable"
		case weightModerateGain:
			trend.Arrow = ArrowUp
			trend.Description = fmt.Sprintf("Subida moderada (%+.1f %s)", diff, unit)
		case weightFastGain:
			trend.Arrow, trend.Status = ArrowUp, StatusWarn
			trend.Description = fmt.Sprintf("Subida rápida (%+.1f %s)", diff, unit)
		}
	case MetricWaist:
		switch {
		case diff < -1:
			trend.Arrow, trend.Status = ArrowDown, StatusGood
			trend.Description = fmt.Sprintf("Descendente (%+.1f %s)", diff, unit)
		case diff > 1:
			trend.Arrow, trend.Status = ArrowUp, StatusBad
			trend.Description = fmt.Sprintf("Ascendente (%+.1f %s)", diff, unit)
		default:
			trend.Status = StatusGood
			trend.Description = "Estable"
		}
	default:
		switch {
		case diff > 1:
			trend.Arrow, trend.Status = ArrowUp, StatusGood
			trend.Description = fmt.Sprintf("Ascendente (%+.1f %s)", diff, unit)
		case diff < -1:
			trend.Arrow, trend.Status = ArrowDown, StatusWarn
			trend.Description = fmt.Sprintf("Descendente (%+.1f %s)", diff, unit)
		default:
			trend.Description = "Estable"
		}
	}

	return trend
}

// ClassifyAll classifies every metric of a progress series, in AllMetrics order
func ClassifyAll(series map[Metric][]SeriesPoint) []Trend {
	trends := make([]Trend, 0, len(AllMetrics))
	for _, m := range AllMetrics {
		trends = append(trends, Classify(m, Values(series[m])))
	}
	return trends
}

func insufficientData(points int) string {
	if points == 0 {
		return "Sin datos en este periodo"
	}
	return fmt.Sprintf("Necesitas %d registro más para ver la tendencia", minTrendPoints-points)
}
