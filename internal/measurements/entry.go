package measurements

import (
	"errors"
	"math"

	"github.com/2beens/fittrack/internal/datekey"
)

var (
	ErrEntryNotFound = errors.New("progress entry not found")
	ErrInvalidEntry  = errors.New("invalid progress entry")
)

const (
	msgNotPositive = "Las medidas deben ser números mayores que 0"
	msgNoValues    = "Debes introducir al menos una medida."
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

// Entry is one day of body measurements. Weight is in kg, the rest in cm.
// A nil value was not measured, it is never stored as zero.
type Entry struct {
	ID      string   `json:"id"`
	UserID  string   `json:"id_usuario"`
	DateKey string   `json:"fecha"`
	Weight  *float64 `json:"peso"`
	Waist   *float64 `json:"cintura"`
	Hip     *float64 `json:"cadera"`
	Chest   *float64 `json:"pecho"`
	Arm     *float64 `json:"brazo"`
}

func (e Entry) DayKey() string {
	return datekey.DayOf(e.DateKey)
}

func (e Entry) SortKey() string {
	return e.DateKey
}

func (e *Entry) values() []*float64 {
	return []*float64{e.Weight, e.Waist, e.Hip, e.Chest, e.Arm}
}

func (e *Entry) Validate() error {
	if !datekey.IsDay(e.DateKey) {
		return &ValidationError{Message: "La fecha de las medidas no es válida"}
	}
	return e.ValidateValues()
}

// ValidateValues checks the measured values only, for updates that keep the stored date
func (e *Entry) ValidateValues() error {
	present := 0
	for _, v := range e.values() {
		if v == nil {
			continue
		}
		if math.IsNaN(*v) || math.IsInf(*v, 0) || *v <= 0 {
			return &ValidationError{Message: msgNotPositive}
		}
		present++
	}
	if present == 0 {
		return &ValidationError{Message: msgNoValues}
	}

	return nil
}
