package progress

import (
	"math"
	"strconv"
	"strings"

	"github.com/2beens/fittrack/internal/datekey"
)

const (
	chartWidth  = 400
	chartHeight = 160

	// vertical padding, as a share of the value span
	chartPadding = 0.15
	// half height of the shaded band around the goal
	goalBandHalf = 2
)

type Margin struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

var chartMargin = Margin{Top: 16, Right: 16, Bottom: 24, Left: 36}

type ChartPoint struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	DateKey string  `json:"fecha"`
	Value   float64 `json:"value"`
}

type GoalBand struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

// Chart holds the weight series mapped onto an SVG viewport of Width x Height
type Chart struct {
	Width       float64      `json:"width"`
	Height      float64      `json:"height"`
	Margin      Margin       `json:"margin"`
	InnerWidth  float64      `json:"innerWidth"`
	InnerHeight float64      `json:"innerHeight"`
	YMin        float64      `json:"yMin"`
	YMax        float64      `json:"yMax"`
	Points      []ChartPoint `json:"points"`
	Path        string       `json:"path"`
	GoalY       *float64     `json:"goalY"`
	GoalBand    *GoalBand    `json:"goalBand"`
	FirstLabel  string       `json:"firstLabel"`
	LastLabel   string       `json:"lastLabel"`
	FirstValue  float64      `json:"firstValue"`
	LastValue   float64      `json:"lastValue"`
}

// MapChart scales points linearly into the viewport. X is spread evenly by index, not by date.
// It returns nil for an empty series.
func MapChart(points []SeriesPoint, goal *float64) *Chart {
	if len(points) == 0 {
		return nil
	}

	minV, maxV := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		minV = math.Min(minV, p.Value)
		maxV = math.Max(maxV, p.Value)
	}
	if goal != nil {
		minV = math.Min(minV, *goal)
		maxV = math.Max(maxV, *goal)
	}

	span := maxV - minV
	if span == 0 {
		span = 1
	}
	pad := span * chartPadding

	c := &Chart{
		Width:       chartWidth,
		Height:      chartHeight,
		Margin:      chartMargin,
		InnerWidth:  chartWidth - chartMargin.Left - chartMargin.Right,
		InnerHeight: chartHeight - chartMargin.Top - chartMargin.Bottom,
		YMin:        minV - pad,
		YMax:        maxV + pad,
		Points:      make([]ChartPoint, 0, len(points)),
	}

	var path strings.Builder
	for i, p := range points {
		x, y := c.x(i, len(points)), c.y(p.Value)
		c.Points = append(c.Points, ChartPoint{X: x, Y: y, DateKey: p.DateKey, Value: p.Value})

		if i == 0 {
			path.WriteString("M ")
		} else {
			path.WriteString(" L ")
		}
		path.WriteString(formatCoord(x))
		path.WriteByte(' ')
		path.WriteString(formatCoord(y))
	}
	c.Path = path.String()

	if goal != nil {
		goalY := c.y(*goal)
		c.GoalY = &goalY
		c.GoalBand = &GoalBand{
			Top:    c.y(*goal + goalBandHalf),
			Bottom: c.y(*goal - goalBandHalf),
		}
	}

	first, last := points[0], points[len(points)-1]
	c.FirstLabel = datekey.Label(first.DateKey)
	c.LastLabel = datekey.Label(last.DateKey)
	c.FirstValue = first.Value
	c.LastValue = last.Value

	return c
}

func (c *Chart) x(i, n int) float64 {
	if n == 1 {
		return c.Margin.Left + c.InnerWidth/2
	}
	return c.Margin.Left + float64(i)/float64(n-1)*c.InnerWidth
}

func (c *Chart) y(v float64) float64 {
	if c.YMax == c.YMin {
		return c.Margin.Top + c.InnerHeight/2
	}
	t := (v - c.YMin) / (c.YMax - c.YMin)
	return c.Margin.Top + c.InnerHeight - t*c.InnerHeight
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
