package progress

import (
	"fmt"
	"math"
)

type GoalState string

const (
	GoalNone     GoalState = ""
	GoalPending  GoalState = "pending"
	GoalReached  GoalState = "reached"
	GoalExceeded GoalState = "exceeded"
)

// goalTolerance is how close to the goal (kg) counts as reached
const goalTolerance = 0.3

type WeightSummary struct {
	Text         string    `json:"text"`
	Tone         Status    `json:"tone"`
	Diff         float64   `json:"diff"`
	GoalDistance *float64  `json:"goalDistance"`
	GoalState    GoalState `json:"goalState"`
}

// SummarizeWeight describes the weight change over an ascending series and, when a goal is set,
// how far the last value is from it. Reaching the goal softens a bad tone to warn and
// turns any other tone into good.
func SummarizeWeight(series []float64, goal *float64) WeightSummary {
	summary := WeightSummary{Tone: StatusNeutral}

	if len(series) < minTrendPoints {
		summary.Text = "Aún no hay suficientes registros de peso para ver tu evolución"
	} else {
		diff := seriesDiff(series)
		summary.Diff = diff
		summary.Text, summary.Tone = weightSentence(diff)
	}

	if goal == nil || len(series) == 0 {
		return summary
	}

	first, last := series[0], series[len(series)-1]
	dist := math.Round((last-*goal)*100) / 100
	summary.GoalDistance = &dist

	var clause string
	switch {
	case math.Abs(dist) <= goalTolerance:
		summary.GoalState = GoalReached
		clause = "objetivo alcanzado"
		if summary.Tone == StatusBad {
			summary.Tone = StatusWarn
		} else {
			summary.Tone = StatusGood
		}
	case *goal < first && last < *goal:
		summary.GoalState = GoalExceeded
		clause = fmt.Sprintf("has superado tu objetivo en %.1f kg", *goal-last)
	default:
		summary.GoalState = GoalPending
		clause = fmt.Sprintf("faltan ~%.1f kg para tu objetivo", math.Abs(dist))
	}

	summary.Text += "; " + clause
	return summary
}

func weightSentence(diff float64) (string, Status) {
	switch classifyWeight(diff) {
	case weightOutlier:
		return fmt.Sprintf("Hay un cambio atípico en tu peso (%+.1f kg), revisa la medida", diff), StatusBad
	case weightFastLoss:
		return fmt.Sprintf("Estás bajando de peso demasiado rápido (%+.1f kg)", diff), StatusBad
	case weightModerateLoss:
		return fmt.Sprintf("Estás bajando de peso a buen ritmo (%+.1f kg)", diff), StatusNeutral
	case weightModerateGain:
		return fmt.Sprintf("Estás subiendo de peso poco a poco (%+.1f kg)", diff), StatusNeutral
	case weightFastGain:
		return fmt.Sprintf("Estás subiendo de peso rápido (%+.1f kg)", diff), StatusWarn
	default:
		return "Tu peso se mantiene estable", StatusNeutral
	}
}
