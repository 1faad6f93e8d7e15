package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/2beens/fittrack/internal/datekey"
)

var ErrUnknownRange = errors.New("unknown range")

const (
	RangeToday = "today"
	Range7d    = "7d"
	RangeWeek  = "week"
	RangeMonth = "month"
	RangeYear  = "year"
)

// MonthKind tells Resolve what "month" means for a call site.
// The two are not interchangeable: trend windows stop at today, listings cover the whole month.
type MonthKind int

const (
	MonthToDate MonthKind = iota
	FullMonth
)

var monthNames = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// DateRange is an inclusive range of day keys
type DateRange struct {
	Name     string `json:"name"`
	StartKey string `json:"start"`
	EndKey   string `json:"end"`
	Label    string `json:"label"`
}

type Resolver struct {
	now func() time.Time
	loc *time.Location
}

func NewResolver(now func() time.Time, loc *time.Location) *Resolver {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &Resolver{
		now: now,
		loc: loc,
	}
}

// At returns a resolver for which "now" is t
func (r *Resolver) At(t time.Time) *Resolver {
	return &Resolver{
		now: func() time.Time { return t },
		loc: r.loc,
	}
}

func (r *Resolver) Location() *time.Location {
	return r.loc
}

func (r *Resolver) today() time.Time {
	now := r.now().In(r.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, r.loc)
}

func (r *Resolver) Today() DateRange {
	day := datekey.Day(r.today())
	return DateRange{Name: RangeToday, StartKey: day, EndKey: day, Label: "Hoy"}
}

// Last7Days is today and the six days before it
func (r *Resolver) Last7Days() DateRange {
	today := r.today()
	return DateRange{
		Name:     Range7d,
		StartKey: datekey.Day(today.AddDate(0, 0, -6)),
		EndKey:   datekey.Day(today),
		Label:    "Últimos 7 días",
	}
}

// MonthToDate runs from the 1st of the current month to today
func (r *Resolver) MonthToDate() DateRange {
	today := r.today()
	first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, r.loc)
	return DateRange{
		Name:     RangeMonth,
		StartKey: datekey.Day(first),
		EndKey:   datekey.Day(today),
		Label:    "Este mes",
	}
}

// CalendarMonth is the whole current month, including the days still to come
func (r *Resolver) CalendarMonth() DateRange {
	today := r.today()
	rng := calendarMonth(today.Year(), today.Month(), r.loc)
	rng.Label = "Este mes"
	return rng
}

// CalendarWeek runs Monday to Sunday around today
func (r *Resolver) CalendarWeek() DateRange {
	today := r.today()
	offset := (int(today.Weekday()) + 6) % 7
	monday := today.AddDate(0, 0, -offset)
	return DateRange{
		Name:     RangeWeek,
		StartKey: datekey.Day(monday),
		EndKey:   datekey.Day(monday.AddDate(0, 0, 6)),
		Label:    "Esta semana",
	}
}

func (r *Resolver) Year() DateRange {
	year := r.today().Year()
	return DateRange{
		Name:     RangeYear,
		StartKey: fmt.Sprintf("%04d0101", year),
		EndKey:   fmt.Sprintf("%04d1231", year),
		Label:    fmt.Sprintf("Año %d", year),
	}
}

// Month is an arbitrary calendar month, month is 1..12
func (r *Resolver) Month(year int, month int) (DateRange, error) {
	if month < 1 || month > 12 || year < 1 || year > 9999 {
		return DateRange{}, fmt.Errorf("%w: month %04d-%02d", ErrUnknownRange, year, month)
	}
	return calendarMonth(year, time.Month(month), r.loc), nil
}

// Resolve maps a range name to its range. "week" is the 7 day window, same as "7d".
func (r *Resolver) Resolve(name string, month MonthKind) (DateRange, error) {
	switch name {
	case RangeToday:
		return r.Today(), nil
	case Range7d, RangeWeek:
		rng := r.Last7Days()
		rng.Name = name
		return rng, nil
	case RangeMonth:
		if month == FullMonth {
			return r.CalendarMonth(), nil
		}
		return r.MonthToDate(), nil
	case RangeYear:
		return r.Year(), nil
	}
	return DateRange{}, fmt.Errorf("%w: %q", ErrUnknownRange, name)
}

func calendarMonth(year int, month time.Month, loc *time.Location) DateRange {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	last := first.AddDate(0, 1, -1)
	return DateRange{
		Name:     RangeMonth,
		StartKey: datekey.Day(first),
		EndKey:   datekey.Day(last),
		Label:    fmt.Sprintf("%s %d", monthNames[month-1], year),
	}
}
