package users

import (
	"errors"
	"math"
	"strings"
)

var (
	ErrProfileNotFound = errors.New("user profile not found")
	ErrInvalidProfile  = errors.New("invalid user profile")
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

type Goal string

const (
	GoalGainMuscle Goal = "gain_muscle"
	GoalLoseFat    Goal = "lose_fat"
	GoalRecomp     Goal = "recomp"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

func (g Goal) Valid() bool {
	switch g {
	case GoalGainMuscle, GoalLoseFat, GoalRecomp:
		return true
	}
	return false
}

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidProfile
}

// Profile is keyed by the account id. CreatedAt is a day key.
type Profile struct {
	ID           string   `json:"id"`
	Email        string   `json:"email"`
	Name         string   `json:"name"`
	Gender       Gender   `json:"gender"`
	HeightCm     float64  `json:"heightCm"`
	WeightKg     float64  `json:"weightKg"`
	Age          int      `json:"age"`
	Goal         Goal     `json:"goal"`
	WeightGoalKg *float64 `json:"weightGoalKg"`
	CreatedAt    string   `json:"createdAt"`
	AIConsent    bool     `json:"aiConsent"`
}

func (p *Profile) Validate() error {
	p.Name = strings.TrimSpace(p.Name)

	if !p.Gender.Valid() || !p.Goal.Valid() {
		return &ValidationError{Message: "Género u objetivo no válido"}
	}
	if !positive(p.HeightCm) || !positive(p.WeightKg) || p.Age <= 0 {
		return &ValidationError{Message: "Altura, peso y edad deben ser números válidos"}
	}
	if p.WeightGoalKg != nil && !positive(*p.WeightGoalKg) {
		return &ValidationError{Message: "El peso objetivo debe ser un número válido"}
	}
	return nil
}

// Editable copies the fields a user may change onto p. Identity fields stay untouched.
func (p *Profile) Editable(from Profile) {
	p.Name = from.Name
	p.Gender = from.Gender
	p.HeightCm = from.HeightCm
	p.WeightKg = from.WeightKg
	p.Age = from.Age
	p.Goal = from.Goal
	p.WeightGoalKg = from.WeightGoalKg
	p.AIConsent = from.AIConsent
}

func positive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
