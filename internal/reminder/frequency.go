// Package reminder decides when users are due a hair-care reminder and
// sends them on a daily schedule.
package reminder

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Day is the unit reminder intervals are measured in.
const Day = 24 * time.Hour

// fallbackIntervalDays applies on the dashboard when the frequency text
// cannot be parsed.
const fallbackIntervalDays = 4

var frequencyPattern = regexp.MustCompile(`(?i)(\d)-?(\d)?\s*(?:times)?/?week`)

// Frequency is a parsed "N" or "N-M times/week" range.
type Frequency struct {
	Min int
	Max int
}

// ParseWashFrequency extracts a per-week range from free text such as
// "2-3 times/week". A single number yields Min == Max.
func ParseWashFrequency(text string) (Frequency, bool) {
	m := frequencyPattern.FindStringSubmatch(text)
	if m == nil {
		return Frequency{}, false
	}

	lo, err := strconv.Atoi(m[1])
	if err != nil {
		return Frequency{}, false
	}
	hi := lo
	if m[2] != "" {
		if hi, err = strconv.Atoi(m[2]); err != nil {
			return Frequency{}, false
		}
	}
	return Frequency{Min: lo, Max: hi}, true
}

// IntervalDays is the average number of days between washes, rounded half
// away from zero. A zero-per-week frequency yields no interval.
func (f Frequency) IntervalDays() (int, bool) {
	avg := float64(f.Min+f.Max) / 2
	if avg <= 0 {
		return 0, false
	}
	return int(math.Round(7 / avg)), true
}

// ElapsedDays returns the whole days between since and now.
func ElapsedDays(since, now time.Time) int {
	d := now.Sub(since)
	if d < 0 {
		return 0
	}
	return int(math.Floor(float64(d) / float64(Day)))
}

// dashboardIntervalDays parses text like the scheduler does, then falls back
// to keyword matching.
func dashboardIntervalDays(text string) int {
	if f, ok := ParseWashFrequency(text); ok {
		if days, ok := f.IntervalDays(); ok {
			return days
		}
	}
	lower := strings.ToLower(text)
	if strings.Contains(lower, "daily") || strings.Contains(lower, "every day") {
		return 1
	}
	return fallbackIntervalDays
}
