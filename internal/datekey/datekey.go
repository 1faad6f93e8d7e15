// Package datekey formats and inspects the zero-padded date keys used by every
// stored entry: day keys (YYYYMMDD) and timestamp keys (YYYYMMDDHH).
// Lexical order of keys is their chronological order, so ranges over keys are
// plain string comparisons.
package datekey

import (
	"fmt"
	"time"
)

const (
	DayLayout  = "20060102"
	HourLayout = "2006010215"

	DayLen  = len(DayLayout)
	HourLen = len(HourLayout)

	// hour padding of range bounds for hour-resolution keys
	firstHour = "00"
	lastHour  = "23"
)

func Day(t time.Time) string {
	return t.Format(DayLayout)
}

func Hour(t time.Time) string {
	return t.Format(HourLayout)
}

// DayOf returns the day part of a day or timestamp key, "" for a too short key
func DayOf(key string) string {
	if len(key) < DayLen {
		return ""
	}
	return key[:DayLen]
}

func ParseDay(key string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	if len(key) != DayLen {
		return time.Time{}, fmt.Errorf("invalid day key %q", key)
	}
	t, err := time.ParseInLocation(DayLayout, key, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day key %q: %w", key, err)
	}
	return t, nil
}

func ParseHour(key string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	if len(key) != HourLen {
		return time.Time{}, fmt.Errorf("invalid timestamp key %q", key)
	}
	t, err := time.ParseInLocation(HourLayout, key, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp key %q: %w", key, err)
	}
	return t, nil
}

// IsDay reports whether key is a YYYYMMDD key of a real calendar date
func IsDay(key string) bool {
	_, err := ParseDay(key, time.UTC)
	return err == nil
}

// IsTimestamp reports whether key is a YYYYMMDDHH key with a real date and hour 00..23
func IsTimestamp(key string) bool {
	_, err := ParseHour(key, time.UTC)
	return err == nil
}

// HourBounds turns a day range into the inclusive timestamp key range used when
// querying hour-resolution entries. The hours are fixed padding, not clock boundaries.
func HourBounds(startDay, endDay string) (from, to string) {
	return startDay + firstHour, endDay + lastHour
}

// Label renders a key for humans: DD/MM/YYYY, plus " HH:00" for timestamp keys
func Label(key string) string {
	if len(key) < DayLen {
		return key
	}
	label := key[6:8] + "/" + key[4:6] + "/" + key[0:4]
	if len(key) == HourLen {
		label += " " + key[8:10] + ":00"
	}
	return label
}
