// Package gametime converts elapsed real seconds into simulated day/hour/minute.
package gametime

import (
	"fmt"
	"math"
)

const (
	MinutesPerHour = 60
	HoursPerDay    = 24
	MinutesPerDay  = MinutesPerHour * HoursPerDay

	// carryTolerance absorbs float rounding so N partial advances equal one whole one.
	carryTolerance = 1e-9
)

// Time is the simulated clock. Carry holds the fractional minute not yet applied.
type Time struct {
	Day          int     `json:"day"`
	Hour         int     `json:"hour"`
	Minute       int     `json:"minute"`
	TotalMinutes int64   `json:"total_minutes"`
	Carry        float64 `json:"carry"`
}

// New returns day 1 at startHour:00.
func New(startHour int) Time {
	if startHour < 0 || startHour >= HoursPerDay {
		startHour = 0
	}
	return FromTotal(int64(startHour) * MinutesPerHour)
}

// FromTotal builds a Time from minutes since day 1 00:00.
func FromTotal(total int64) Time {
	if total < 0 {
		total = 0
	}
	return Time{
		Day:          int(total/MinutesPerDay) + 1,
		Hour:         int(total%MinutesPerDay) / MinutesPerHour,
		Minute:       int(total % MinutesPerHour),
		TotalMinutes: total,
	}
}

// Advance moves t forward by deltaSeconds of real time. scale is the combined location and
// substance multiplier; minutesPerSecond comes from the current world's time profile.
// Non-finite or negative inputs advance nothing.
func Advance(t Time, deltaSeconds, scale, minutesPerSecond float64) Time {
	step := deltaSeconds * scale * minutesPerSecond
	if math.IsNaN(step) || math.IsInf(step, 0) || step <= 0 {
		return t
	}
	carry := t.Carry + step
	whole := math.Floor(carry + carryTolerance)
	carry -= whole
	if carry < 0 {
		carry = 0
	}
	out := FromTotal(t.TotalMinutes + int64(whole))
	out.Carry = carry
	return out
}

// HoursCrossed is the number of hour boundaries between a and b (b after a).
func HoursCrossed(a, b Time) int {
	return int(b.TotalMinutes/MinutesPerHour - a.TotalMinutes/MinutesPerHour)
}

func (t Time) IsNight() bool { return t.Hour >= 20 || t.Hour < 6 }

func (t Time) String() string {
	return fmt.Sprintf("Day %d %02d:%02d", t.Day, t.Hour, t.Minute)
}
