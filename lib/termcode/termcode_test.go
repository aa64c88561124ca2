package termcode

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseRoundtrip(t *testing.T) {
	for _, tt := range []struct {
		code    string
		season  Season
		year    int
		display string
	}{
		{"202610", Spring, 2026, "Spring 2026"},
		{"202620", Summer, 2026, "Summer 2026"},
		{"202530", Fall, 2025, "Fall 2025"},
	} {
		term, err := Parse(tt.code)
		require.NoError(t, err, tt.code)
		require.Equal(t, tt.season, term.Season)
		require.Equal(t, tt.year, term.Year)
		require.Equal(t, tt.display, term.DisplayName())
		require.Equal(t, tt.code, term.Code())
	}
}

func TestParseRejectsBadFormats(t *testing.T) {
	for _, code := range []string{
		"", "2026", "20261", "2026100", "202640", "202611",
		"abcd10", "20 610", "2026ab",
	} {
		_, err := Parse(code)
		require.Error(t, err, "code %q", code)
	}
}

func TestCurrentCutoffs(t *testing.T) {
	tz := time.UTC
	for _, tt := range []struct {
		now  time.Time
		want Term
	}{
		{time.Date(2025, time.November, 1, 0, 0, 0, 0, tz), Term{2026, Spring}},
		{time.Date(2025, time.December, 15, 0, 0, 0, 0, tz), Term{2026, Spring}},
		{time.Date(2026, time.March, 10, 0, 0, 0, 0, tz), Term{2026, Spring}},
		{time.Date(2026, time.May, 31, 0, 0, 0, 0, tz), Term{2026, Spring}},
		{time.Date(2026, time.June, 1, 0, 0, 0, 0, tz), Term{2026, Summer}},
		{time.Date(2026, time.July, 31, 0, 0, 0, 0, tz), Term{2026, Summer}},
		{time.Date(2026, time.August, 1, 0, 0, 0, 0, tz), Term{2026, Fall}},
		{time.Date(2026, time.October, 31, 0, 0, 0, 0, tz), Term{2026, Fall}},
	} {
		require.Equal(t, tt.want, Current(tt.now), "now=%s", tt.now)
	}
}

func TestNextTransition(t *testing.T) {
	tz := time.UTC

	at, next := NextTransition(time.Date(2026, time.September, 10, 0, 0, 0, 0, tz))
	require.Equal(t, time.Date(2026, time.November, 1, 0, 0, 0, 0, tz), at)
	require.Equal(t, Term{2027, Spring}, next)

	at, next = NextTransition(time.Date(2026, time.February, 1, 0, 0, 0, 0, tz))
	require.Equal(t, time.Date(2026, time.June, 1, 0, 0, 0, 0, tz), at)
	require.Equal(t, Term{2026, Summer}, next)
}

func TestUpdateInterval(t *testing.T) {
	tz := time.UTC
	require.Equal(t, 5*time.Minute, UpdateInterval(time.Date(2026, time.April, 2, 0, 0, 0, 0, tz)))
	require.Equal(t, 5*time.Minute, UpdateInterval(time.Date(2026, time.November, 20, 0, 0, 0, 0, tz)))
	require.Equal(t, 15*time.Minute, UpdateInterval(time.Date(2026, time.September, 2, 0, 0, 0, 0, tz)))
}
