package calendar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jurisflow/prazo/pkg/errors"
	"github.com/jurisflow/prazo/pkg/types/common"
)

func date(s string) common.Date { return common.MustParseDate(s) }

func emptyService() *Service {
	return NewService(NewHolidaySet(nil, nil))
}

func TestScope_Chain(t *testing.T) {
	assert.Equal(t, []Scope{"BR"}, ScopeNational.Chain())
	assert.Equal(t, []Scope{"BR", "BR-SP"}, Scope("BR-SP").Chain())
	assert.Equal(t, []Scope{"BR", "BR-SP", "BR-SP-TJSP"}, Scope("BR-SP-TJSP").Chain())
	assert.Nil(t, Scope("").Chain())
}

func TestScope_Level(t *testing.T) {
	assert.Equal(t, 1, ScopeNational.Level())
	assert.Equal(t, 3, Scope("BR-SP-TJSP").Level())
}

func TestNewHolidaySet_DeduplicatesByDateAndScope(t *testing.T) {
	hs := NewHolidaySet(nil, []Holiday{
		{Date: date("2025-01-10"), Scope: ScopeNational, Name: "first"},
		{Date: date("2025-01-10"), Scope: ScopeNational, Name: "second"},
		{Date: date("2025-01-10"), Scope: "BR-SP", Name: "state-level"},
	})

	h, ok := hs.Holiday(date("2025-01-10"), ScopeNational)
	require.True(t, ok)
	assert.Equal(t, "second", h.Name)

	h, ok = hs.Holiday(date("2025-01-10"), "BR-SP")
	require.True(t, ok)
	assert.Equal(t, "state-level", h.Name)
}

func TestHolidaySet_RecurringMatchesAnyYear(t *testing.T) {
	hs := NewHolidaySet(nil, []Holiday{
		{Date: date("2000-04-21"), Scope: ScopeNational, Name: "Tiradentes", Recurring: true},
	})

	_, ok := hs.Holiday(date("2025-04-21"), ScopeNational)
	assert.True(t, ok)
	_, ok = hs.Holiday(date("2031-04-21"), ScopeNational)
	assert.True(t, ok)
	_, ok = hs.Holiday(date("2025-04-22"), ScopeNational)
	assert.False(t, ok)
}

func TestResolveScope_UnknownIsRecoverable(t *testing.T) {
	svc := emptyService()

	_, err := svc.ResolveScope("BR-ZZ")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownScope))

	_, err = svc.ResolveScope("")
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownScope))

	chain, err := svc.ResolveScope(ScopeNational)
	require.NoError(t, err)
	assert.Equal(t, []Scope{ScopeNational}, chain)
}

func TestIsBusinessDay(t *testing.T) {
	svc := NewService(NewHolidaySet(nil, []Holiday{
		{Date: date("2025-01-10"), Scope: ScopeNational, Name: "feriado"},
	}))

	ok, err := svc.IsBusinessDay(date("2025-01-06"), ScopeNational) // Monday
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.IsBusinessDay(date("2025-01-04"), ScopeNational) // Saturday
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.IsBusinessDay(date("2025-01-10"), ScopeNational) // holiday
	require.NoError(t, err)
	assert.False(t, ok)
}

// Base date 2025-01-02 (Thursday) plus 15 business days with no holidays in
// range must land on 2025-01-23; the base date itself does not count.
func TestAddBusinessDays_FifteenDaysNoHolidays(t *testing.T) {
	svc := emptyService()

	due, adjustments, err := svc.AddBusinessDays(date("2025-01-02"), 15, ScopeNational)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-23", due.String())
	assert.Empty(t, adjustments)
}

// The same count with a national holiday on 2025-01-10 shifts the result to
// 2025-01-24 and records the skip.
func TestAddBusinessDays_HolidayShiftsResult(t *testing.T) {
	svc := NewService(NewHolidaySet(nil, []Holiday{
		{Date: date("2025-01-10"), Scope: ScopeNational, Name: "feriado nacional"},
	}))

	due, adjustments, err := svc.AddBusinessDays(date("2025-01-02"), 15, ScopeNational)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-24", due.String())
	require.Len(t, adjustments, 1)
	assert.Equal(t, AdjustHolidaySkip, adjustments[0].Kind)
	assert.Equal(t, "2025-01-10", adjustments[0].Date.String())
	assert.Equal(t, "feriado nacional", adjustments[0].Holiday)
}

func TestAddBusinessDays_StateHolidayAppliesOnlyInScopeChain(t *testing.T) {
	svc := NewService(NewHolidaySet([]Scope{"BR-SP", "BR-RJ"}, []Holiday{
		{Date: date("2025-01-10"), Scope: "BR-SP", Name: "feriado estadual"},
	}))

	spDue, _, err := svc.AddBusinessDays(date("2025-01-02"), 15, "BR-SP")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-24", spDue.String())

	rjDue, _, err := svc.AddBusinessDays(date("2025-01-02"), 15, "BR-RJ")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-23", rjDue.String())
}

func TestAddBusinessDays_InvalidCount(t *testing.T) {
	_, _, err := emptyService().AddBusinessDays(date("2025-01-02"), 0, ScopeNational)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestAddCalendarDays_PlainArithmetic(t *testing.T) {
	// Thursday + 5 calendar days = Tuesday, a business day; no adjustments.
	due, adjustments, err := emptyService().AddCalendarDays(date("2025-01-02"), 5, ScopeNational)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-07", due.String())
	assert.Empty(t, adjustments)
}

func TestAddCalendarDays_RollsOverWeekend(t *testing.T) {
	// Thursday + 2 calendar days = Saturday → rolls to Monday.
	due, adjustments, err := emptyService().AddCalendarDays(date("2025-01-02"), 2, ScopeNational)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-06", due.String())
	require.Len(t, adjustments, 1)
	assert.Equal(t, AdjustRollover, adjustments[0].Kind)
	assert.Equal(t, "2025-01-06", adjustments[0].Date.String())
}

func TestRollForward_SkipsHolidayThenWeekend(t *testing.T) {
	// Friday 2025-01-10 is a holiday; rolling from it crosses the weekend
	// and lands on Monday 2025-01-13.
	svc := NewService(NewHolidaySet(nil, []Holiday{
		{Date: date("2025-01-10"), Scope: ScopeNational, Name: "feriado"},
	}))

	rolled, adjustments, err := svc.RollForward(date("2025-01-10"), ScopeNational)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-13", rolled.String())
	require.Len(t, adjustments, 2)
	assert.Equal(t, AdjustHolidaySkip, adjustments[0].Kind)
	assert.Equal(t, AdjustRollover, adjustments[1].Kind)
}

func TestRollForward_BusinessDayUnchanged(t *testing.T) {
	rolled, adjustments, err := emptyService().RollForward(date("2025-01-06"), ScopeNational)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-06", rolled.String())
	assert.Empty(t, adjustments)
}

func TestUnit_Valid(t *testing.T) {
	assert.True(t, UnitBusinessDays.Valid())
	assert.True(t, UnitCalendarDays.Valid())
	assert.False(t, Unit("fortnights").Valid())
}
