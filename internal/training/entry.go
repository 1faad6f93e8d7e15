package training

import (
	"errors"
	"strings"

	"github.com/2beens/fittrack/internal/datekey"
)

var (
	ErrEntryNotFound = errors.New("training entry not found")
	ErrInvalidEntry  = errors.New("invalid training entry")
)

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidEntry
}

// Entry is one workout, Minutes is its duration
type Entry struct {
	ID           string `json:"id"`
	UserID       string `json:"id_usuario"`
	TimestampKey string `json:"fecha"`
	Type         string `json:"tipo_entrenamiento"`
	Minutes      int    `json:"tiempo"`
}

func (e Entry) DayKey() string {
	return datekey.DayOf(e.TimestampKey)
}

func (e Entry) SortKey() string {
	return e.TimestampKey
}

func (e *Entry) Normalize() {
	e.Type = strings.TrimSpace(e.Type)
}

func (e *Entry) Validate() error {
	if !datekey.IsTimestamp(e.TimestampKey) {
		return &ValidationError{Message: "La fecha del entrenamiento no es válida"}
	}
	if strings.TrimSpace(e.Type) == "" {
		return &ValidationError{Message: "El tipo de entrenamiento es obligatorio"}
	}
	if e.Minutes <= 0 {
		return &ValidationError{Message: "El tiempo debe ser un número mayor que 0"}
	}
	return nil
}

// TotalMinutes sums the duration of the given workouts
func TotalMinutes(entries []Entry) int {
	total := 0
	for _, e := range entries {
		total += e.Minutes
	}
	return total
}
