package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddMonthsClamped(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"2024-01-31", 1, "2024-02-29"},
		{"2023-01-31", 1, "2023-02-28"},
		{"2024-03-31", 1, "2024-04-30"},
		{"2024-12-15", 1, "2025-01-15"},
		{"2024-01-15", 12, "2025-01-15"},
		{"2024-05-31", -1, "2024-04-30"},
		{"not a date", 1, "not a date"},
		{"", 1, ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, AddMonthsClamped(tc.in, tc.n), "%s + %d", tc.in, tc.n)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2024, 2, 29), d)

	d, err = ParseDate("2024-03-05T10:20:00Z")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05", d.String())

	for _, in := range []string{"", "2023-02-29", "05/03/2024", "2024-13-01"} {
		_, err := ParseDate(in)
		assert.ErrorIs(t, err, ErrInvalidDate, "input %q", in)
	}
}

func TestDateHelpers(t *testing.T) {
	assert.Equal(t, 29, DaysIn(2024, 2))
	assert.Equal(t, 28, DaysIn(2023, 2))
	assert.Equal(t, 31, DaysIn(2024, 12))

	now := time.Date(2024, 6, 10, 23, 59, 0, 0, time.FixedZone("BRT", -3*3600))
	assert.Equal(t, NewDate(2024, 6, 10), Today(now))

	assert.Equal(t, "05/03/2024", FormatDateBR("2024-03-05"))
	assert.Equal(t, "garbage", FormatDateBR("garbage"))
	assert.Equal(t, "Março", MonthName(3))
	assert.Equal(t, "", MonthName(13))
	assert.NoError(t, NewDate(2025, 1, 1).Validate())
	assert.Error(t, Date{}.Validate())
}
