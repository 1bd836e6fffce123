package common

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate_Valid(t *testing.T) {
	d, err := ParseDate("2025-01-02")
	require.NoError(t, err)
	assert.Equal(t, 2025, d.Year())
	assert.Equal(t, time.January, d.Month())
	assert.Equal(t, 2, d.Day())
	assert.Equal(t, time.Thursday, d.Weekday())
}

func TestParseDate_Invalid(t *testing.T) {
	_, err := ParseDate("02/01/2025")
	assert.Error(t, err)
}

func TestDateOf_TruncatesTimeOfDay(t *testing.T) {
	instant := time.Date(2025, 3, 15, 23, 59, 59, 0, time.UTC)
	d := DateOf(instant)
	assert.Equal(t, "2025-03-15", d.String())
}

func TestDate_AddDays(t *testing.T) {
	d := MustParseDate("2025-01-30")
	assert.Equal(t, "2025-02-01", d.AddDays(2).String())
	assert.Equal(t, "2025-01-28", d.AddDays(-2).String())
}

func TestDate_DaysUntil(t *testing.T) {
	a := MustParseDate("2025-01-02")
	b := MustParseDate("2025-01-23")
	assert.Equal(t, 21, a.DaysUntil(b))
	assert.Equal(t, -21, b.DaysUntil(a))
	assert.Equal(t, 0, a.DaysUntil(a))
}

func TestDate_IsWeekend(t *testing.T) {
	assert.True(t, MustParseDate("2025-01-04").IsWeekend())  // Saturday
	assert.True(t, MustParseDate("2025-01-05").IsWeekend())  // Sunday
	assert.False(t, MustParseDate("2025-01-06").IsWeekend()) // Monday
}

func TestDate_JSONRoundTrip(t *testing.T) {
	d := MustParseDate("2025-12-31")
	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, "\"2025-12-31\"", string(data))

	var back Date
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, d.Equal(back))
}

func TestDate_Scan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2025-06-01", d.String())

	require.NoError(t, d.Scan("2025-07-02"))
	assert.Equal(t, "2025-07-02", d.String())

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())

	assert.Error(t, d.Scan(42))
}
