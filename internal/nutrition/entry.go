package nutrition

import (
	"errors"
	"math"
	"strings"

	"github.com/2beens/fittrack/internal/datekey"
)

var (
	ErrEntryNotFound = errors.New("nutrition entry not found")
	ErrInvalidEntry  = errors.New("invalid nutrition entry")
)

const (
	msgInvalidMacros = "Todos los campos deben ser números mayores o iguales que 0"
	msgNoCalories    = "Introduce al menos un valor mayor que 0"
	msgInvalidDate   = "La fecha del registro no es válida"
)

// ValidationError carries the message shown to the user; it matches ErrInvalidEntry with errors.Is
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidEntry
}

// Entry is one logged meal. Macros are calorie counts, not grams.
type Entry struct {
	ID           string  `json:"id"`
	UserID       string  `json:"id_usuario"`
	TimestampKey string  `json:"fecha"`
	Protein      float64 `json:"proteinas"`
	Carbs        float64 `json:"hidratos"`
	Fat          float64 `json:"grasas"`
	Vegetables   float64 `json:"verduras"`
	Title        *string `json:"titulo"`
	Notes        *string `json:"notas"`
}

func (e Entry) TotalCalories() float64 {
	return e.Protein + e.Carbs + e.Fat + e.Vegetables
}

func (e Entry) DayKey() string {
	return datekey.DayOf(e.TimestampKey)
}

func (e Entry) SortKey() string {
	return e.TimestampKey
}

// Normalize trims the optional texts, turning empty ones into nil
func (e *Entry) Normalize() {
	e.Title = trimmedOrNil(e.Title)
	e.Notes = trimmedOrNil(e.Notes)
}

func (e *Entry) Validate() error {
	if !datekey.IsTimestamp(e.TimestampKey) {
		return &ValidationError{Message: msgInvalidDate}
	}
	for _, v := range []float64{e.Protein, e.Carbs, e.Fat, e.Vegetables} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return &ValidationError{Message: msgInvalidMacros}
		}
	}
	if e.TotalCalories() <= 0 {
		return &ValidationError{Message: msgNoCalories}
	}
	return nil
}

// EntryView is the wire form of an entry with its derived total
type EntryView struct {
	Entry
	TotalCalories float64 `json:"totalCalories"`
}

func Views(entries []Entry) []EntryView {
	views := make([]EntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, EntryView{Entry: e, TotalCalories: e.TotalCalories()})
	}
	return views
}

type Summary struct {
	Protein       float64 `json:"proteinas"`
	Carbs         float64 `json:"hidratos"`
	Fat           float64 `json:"grasas"`
	Vegetables    float64 `json:"verduras"`
	TotalCalories float64 `json:"totalCalories"`
	Entries       int     `json:"entries"`
}

func Summarize(entries []Entry) Summary {
	var s Summary
	for _, e := range entries {
		s.Protein += e.Protein
		s.Carbs += e.Carbs
		s.Fat += e.Fat
		s.Vegetables += e.Vegetables
	}
	s.TotalCalories = s.Protein + s.Carbs + s.Fat + s.Vegetables
	s.Entries = len(entries)
	return s
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
