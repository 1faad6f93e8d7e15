package meals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrNoConsent         = errors.New("user did not consent to ai processing")
	ErrParserUnavailable = errors.New("meal parser not configured")
	ErrUnusableEstimate  = errors.New("unusable meal estimate")
)

// Estimate is the calorie split of a meal photo, in the same units as a nutrition entry.
type Estimate struct {
	Proteinas float64 `json:"proteinas"`
	Hidratos  float64 `json:"hidratos"`
	Grasas    float64 `json:"grasas"`
	Verduras  float64 `json:"verduras"`
	Titulo    string  `json:"titulo"`
}

type Parser interface {
	Estimate(ctx context.Context, image []byte, mimeType, hint string) (*Estimate, error)
}

// parseEstimate reads the model answer, tolerating a markdown code fence around the JSON
func parseEstimate(text string) (*Estimate, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var est Estimate
	if err := json.Unmarshal([]byte(text), &est); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnusableEstimate, err)
	}

	total := 0.0
	for _, v := range []float64{est.Proteinas, est.Hidratos, est.Grasas, est.Verduras} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return nil, fmt.Errorf("%w: invalid value %v", ErrUnusableEstimate, v)
		}
		total += v
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: no calories", ErrUnusableEstimate)
	}

	for _, v := range []*float64{&est.Proteinas, &est.Hidratos, &est.Grasas, &est.Verduras} {
		*v = math.Round(*v)
	}
	est.Titulo = strings.TrimSpace(est.Titulo)
	return &est, nil
}
