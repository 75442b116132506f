package datetime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYearNumber(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"2025", 2025, true},
		{"2025-01-01", 2025, true},
		{"2025-12-24T00:00:00Z", 2025, true},
		{"25", 0, false},
		{"twenty25", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := YearNumber(tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestSameYearToleratesRepresentations(t *testing.T) {
	assert.True(t, SameYear("2025", "2025-01-01"))
	assert.True(t, SameYear("2025-12-24", "2025"))
	assert.False(t, SameYear("2024", "2025"))
	assert.False(t, SameYear("abcd", "2025"))
}

func TestDoorDate(t *testing.T) {
	d := DoorDate(2025, 5, time.UTC)
	assert.Equal(t, time.Date(2025, time.December, 5, 0, 0, 0, 0, time.UTC), d)
}

func TestDateOnlyStripsTime(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	in := time.Date(2025, time.December, 10, 23, 59, 59, 0, loc)
	got := DateOnly(in)
	assert.Equal(t, time.Date(2025, time.December, 10, 0, 0, 0, 0, loc), got)
}

func TestNewSystemClock(t *testing.T) {
	_, err := NewSystemClock("not/a/zone")
	assert.Error(t, err)

	clock, err := NewSystemClock("")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, clock.Now().Location())
}
