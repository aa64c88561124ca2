// Package termcode maps between 6-character registration term codes
// (4-digit year + semester marker: 10 Spring, 20 Summer, 30 Fall) and
// the semester currently open for tracking.
//
// Trackable semester cutoffs:
//   - Nov 1 to May 31: Spring (of the next year when Nov-Dec)
//   - Jun 1 to Jul 31: Summer
//   - Aug 1 to Oct 31: Fall
package termcode

import (
	"fmt"
	"time"
)

type Season string

const (
	Spring Season = "Spring"
	Summer Season = "Summer"
	Fall   Season = "Fall"
)

func (s Season) marker() string {
	switch s {
	case Spring:
		return "10"
	case Summer:
		return "20"
	case Fall:
		return "30"
	}
	return ""
}

type Term struct {
	Year   int
	Season Season
}

func (t Term) Code() string {
	return fmt.Sprintf("%04d%s", t.Year, t.Season.marker())
}

func (t Term) DisplayName() string {
	return fmt.Sprintf("%s %d", t.Season, t.Year)
}

// Parse validates a term code and splits it into its components.
// Anything that is not 4 digits followed by a marker in {10, 20, 30}
// is a format error.
func Parse(code string) (Term, error) {
	if len(code) != 6 {
		return Term{}, fmt.Errorf("invalid term code %q: want 6 characters", code)
	}

	var year int
	var marker string
	n, err := fmt.Sscanf(code, "%4d%2s", &year, &marker)
	if err != nil || n != 2 || year < 1000 {
		return Term{}, fmt.Errorf("invalid term code %q: want YYYYSS", code)
	}

	var season Season
	switch marker {
	case "10":
		season = Spring
	case "20":
		season = Summer
	case "30":
		season = Fall
	default:
		return Term{}, fmt.Errorf("invalid term code %q: unknown semester marker %q", code, marker)
	}

	return Term{Year: year, Season: season}, nil
}

// Current returns the semester open for tracking at the given time.
func Current(now time.Time) Term {
	year := now.Year()
	month := now.Month()

	switch {
	case month >= time.November:
		return Term{Year: year + 1, Season: Spring}
	case month <= time.May:
		return Term{Year: year, Season: Spring}
	case month <= time.July:
		return Term{Year: year, Season: Summer}
	default:
		return Term{Year: year, Season: Fall}
	}
}

// NextTransition returns when the trackable semester changes next,
// and what it changes to.
func NextTransition(now time.Time) (time.Time, Term) {
	year := now.Year()
	month := now.Month()

	switch {
	case month >= time.November:
		return time.Date(year+1, time.June, 1, 0, 0, 0, 0, now.Location()),
			Term{Year: year + 1, Season: Summer}
	case month <= time.May:
		return time.Date(year, time.June, 1, 0, 0, 0, 0, now.Location()),
			Term{Year: year, Season: Summer}
	case month <= time.July:
		return time.Date(year, time.August, 1, 0, 0, 0, 0, now.Location()),
			Term{Year: year, Season: Fall}
	default:
		return time.Date(year, time.November, 1, 0, 0, 0, 0, now.Location()),
			Term{Year: year + 1, Season: Spring}
	}
}

// registration opens in April for Fall and November for Spring,
// enrollment numbers move quickly during those windows
func IsRegistrationPeriod(now time.Time) bool {
	month := now.Month()
	return month == time.April || month == time.November
}

// UpdateInterval is the recommended cadence for enrollment refreshes.
func UpdateInterval(now time.Time) time.Duration {
	if IsRegistrationPeriod(now) {
		return 5 * time.Minute
	}
	return 15 * time.Minute
}
