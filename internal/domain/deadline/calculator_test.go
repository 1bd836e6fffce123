package deadline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jurisflow/prazo/internal/domain/calendar"
	"github.com/jurisflow/prazo/internal/domain/rules"
	"github.com/jurisflow/prazo/internal/domain/settings"
	"github.com/jurisflow/prazo/internal/domain/suspension"
	"github.com/jurisflow/prazo/pkg/errors"
	"github.com/jurisflow/prazo/pkg/types/common"
)

func d(s string) common.Date { return common.MustParseDate(s) }

func civilDraft(holidays ...calendar.Holiday) rules.Draft {
	return rules.Draft{
		DefaultProcessTypeID: "civil",
		ProcessTypes: []rules.ProcessType{
			{
				ID:   "civil",
				Name: "Processo Civil",
				Durations: map[string]rules.DurationRule{
					"contestação": {Days: 15, Unit: calendar.UnitBusinessDays},
					"recurso":     {Days: 15, Unit: calendar.UnitBusinessDays},
					"embargos":    {Days: 5, Unit: calendar.UnitBusinessDays},
				},
			},
			{
				ID:   "trabalhista",
				Name: "Processo Trabalhista",
				Durations: map[string]rules.DurationRule{
					"contestação": {Days: 8, Unit: calendar.UnitCalendarDays},
				},
			},
		},
		Multipliers: []rules.Multiplier{
			{Role: "co-defendant", Hundredths: 200},
			{Role: "fazenda-publica", Hundredths: 150},
		},
		Scopes:   []calendar.Scope{"BR-SP", "BR-SP-TJSP"},
		Holidays: holidays,
	}
}

type harness struct {
	calc        *Calculator
	repo        *rules.MemoryRepository
	suspensions *suspension.Registry
	settings    *settings.MemoryStore
}

func newHarness(t *testing.T, scorer ConfidenceScorer, holidays ...calendar.Holiday) *harness {
	t.Helper()
	repo := rules.NewMemoryRepository()
	_, err := repo.Publish(civilDraft(holidays...))
	require.NoError(t, err)

	h := &harness{
		repo:        repo,
		suspensions: suspension.NewRegistry(),
		settings:    settings.NewMemoryStore(),
	}
	h.calc = NewCalculator(repo, h.suspensions, h.settings, scorer, nil)
	return h
}

func contestação(base string) TriggerEvent {
	return TriggerEvent{
		BaseDate:      d(base),
		ProcessTypeID: "civil",
		EventKind:     "contestação",
		Scope:         "BR",
	}
}

func TestComputeConcreteScenario(t *testing.T) {
	// 2025-01-02 is a Thursday; 15 business days with nothing in the way
	// land on 2025-01-23.
	h := newHarness(t, nil)
	got, err := h.calc.Compute(contestação("2025-01-02"))
	require.NoError(t, err)

	assert.Equal(t, d("2025-01-23"), got.DueDate)
	assert.Equal(t, 15, got.BaseDays)
	assert.Equal(t, 15, got.MultipliedDays)
	assert.Equal(t, rules.IdentityMultiplier, got.MultiplierHundredths)
	assert.Equal(t, 1, got.RuleVersion)
	assert.False(t, got.BestEffort)
	assert.True(t, got.RequiresConfirmation, "manual mode is the default")
	assert.False(t, got.Authoritative)
}

func TestComputeHolidayShiftsDueDate(t *testing.T) {
	h := newHarness(t, nil, calendar.Holiday{
		Date: d("2025-01-10"), Scope: calendar.ScopeNational, Name: "feriado nacional",
	})
	got, err := h.calc.Compute(contestação("2025-01-02"))
	require.NoError(t, err)

	assert.Equal(t, d("2025-01-24"), got.DueDate)
	assert.True(t, got.HasAudit(AuditHolidaySkipped))
}

func TestComputeCoDefendantDoublesDuration(t *testing.T) {
	h := newHarness(t, nil)
	ev := contestação("2025-01-02")
	ev.PartyRoles = []string{"co-defendant"}

	got, err := h.calc.Compute(ev)
	require.NoError(t, err)
	assert.Equal(t, 30, got.MultipliedDays)
	assert.Equal(t, 200, got.MultiplierHundredths)
	assert.Equal(t, d("2025-02-13"), got.DueDate)
	assert.True(t, got.HasAudit(AuditMultiplierApplied))
}

func TestMultiplierRoundsUpBeforeExpansion(t *testing.T) {
	// 15 days at 1.5× is 22.5 and must become 23 whole business days
	// before any calendar arithmetic.  Expanding 15 days first and then
	// scaling the resulting calendar span would give a different date.
	h := newHarness(t, nil)
	ev := contestação("2025-01-02")
	ev.PartyRoles = []string{"fazenda-publica"}

	got, err := h.calc.Compute(ev)
	require.NoError(t, err)
	assert.Equal(t, 23, got.MultipliedDays)

	// 23 business days from 2025-01-02: 2025-02-04.
	assert.Equal(t, d("2025-02-04"), got.DueDate)
}

func TestMultiplierIsMaxNotProduct(t *testing.T) {
	h := newHarness(t, nil)
	ev := contestação("2025-01-02")
	ev.PartyRoles = []string{"fazenda-publica", "co-defendant", "autor"}

	got, err := h.calc.Compute(ev)
	require.NoError(t, err)
	assert.Equal(t, 200, got.MultiplierHundredths, "worst case wins, roles never stack")
	assert.Equal(t, 30, got.MultipliedDays)
}

func TestComputeIdempotent(t *testing.T) {
	h := newHarness(t, nil)
	ev := contestação("2025-01-02")
	ev.PartyRoles = []string{"co-defendant"}

	a, err := h.calc.Compute(ev)
	require.NoError(t, err)
	b, err := h.calc.Compute(ev)
	require.NoError(t, err)

	assert.Equal(t, a.DueDate, b.DueDate)
	assert.Equal(t, a.RuleVersion, b.RuleVersion)
	assert.Equal(t, a.MultipliedDays, b.MultipliedDays)
	assert.Equal(t, a.Audit, b.Audit)
	assert.NotEqual(t, a.ID, b.ID, "each computation is its own record")
}

func TestSuspensionExtendsDeadline(t *testing.T) {
	h := newHarness(t, nil)

	base, err := h.calc.Compute(contestação("2025-01-02"))
	require.NoError(t, err)
	require.Equal(t, d("2025-01-23"), base.DueDate)

	// A five-day global suspension inside the window tolls five days.
	// 2025-01-23 + 5 = 2025-01-28, a Tuesday, so no further rollover.
	_, err = h.suspensions.Add(suspension.Period{
		Scope: suspension.ScopeGlobal,
		Start: d("2025-01-06"), End: d("2025-01-10"),
		Reason: "suspensão decretada",
	})
	require.NoError(t, err)

	got, err := h.calc.Compute(contestação("2025-01-02"))
	require.NoError(t, err)
	assert.Equal(t, d("2025-01-28"), got.DueDate)
	assert.True(t, got.HasAudit(AuditSuspensionExtension))
	assert.False(t, got.DueDate.Before(base.DueDate), "tolling never moves a deadline earlier")
}

func TestSuspensionShiftLandsOnBusinessDay(t *testing.T) {
	h := newHarness(t, nil)

	// Tolling two days pushes 2025-01-23 to 2025-01-25, a Saturday, which
	// must roll forward to Monday 2025-01-27.
	_, err := h.suspensions.Add(suspension.Period{
		Scope: suspension.ScopeGlobal,
		Start: d("2025-01-06"), End: d("2025-01-07"),
		Reason: "calamidade",
	})
	require.NoError(t, err)

	got, err := h.calc.Compute(contestação("2025-01-02"))
	require.NoError(t, err)
	assert.Equal(t, d("2025-01-27"), got.DueDate)
	assert.True(t, got.HasAudit(AuditRollover))
}

func TestSuspensionMonotonicity(t *testing.T) {
	h := newHarness(t, nil)
	ev := contestação("2025-01-02")

	prev, err := h.calc.Compute(ev)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		start := d("2025-01-06").AddDays(i * 7)
		_, err := h.suspensions.Add(suspension.Period{
			Scope: suspension.ScopeGlobal,
			Start: start, End: start.AddDays(1),
			Reason: fmt.Sprintf("decreto %d", i),
		})
		require.NoError(t, err)

		got, err := h.calc.Compute(ev)
		require.NoError(t, err)
		assert.False(t, got.DueDate.Before(prev.DueDate),
			"adding suspension %d moved the due date backwards", i)
		prev = got
	}
}

func TestCalendarDayRuleRollsOverFromWeekend(t *testing.T) {
	h := newHarness(t, nil)
	ev := TriggerEvent{
		BaseDate:      d("2025-01-03"),
		ProcessTypeID: "trabalhista",
		EventKind:     "contestação",
		Scope:         "BR",
	}

	// 8 calendar days from Friday 2025-01-03 is Saturday 2025-01-11.
	got, err := h.calc.Compute(ev)
	require.NoError(t, err)
	assert.Equal(t, calendar.UnitCalendarDays, got.Unit)
	assert.Equal(t, d("2025-01-13"), got.DueDate)
	assert.True(t, got.HasAudit(AuditRollover))
}

func TestUnknownProcessTypeFallsBackBestEffort(t *testing.T) {
	h := newHarness(t, nil)
	ev := contestação("2025-01-02")
	ev.ProcessTypeID = "previdenciário"

	got, err := h.calc.Compute(ev)
	require.NoError(t, err, "unknown process type degrades, never fails")
	assert.True(t, got.BestEffort)
	assert.True(t, got.HasAudit(AuditFallbackProcessType))
	assert.Equal(t, d("2025-01-23"), got.DueDate, "default type's rule applies")
}

func TestUnknownEventKindFailsEvenOnDefault(t *testing.T) {
	h := newHarness(t, nil)
	ev := contestação("2025-01-02")
	ev.EventKind = "sustentação oral"

	_, err := h.calc.Compute(ev)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnresolvedProcessType))
}

func TestUnknownScopeFallsBackToNational(t *testing.T) {
	h := newHarness(t, nil)
	ev := contestação("2025-01-02")
	ev.Scope = "BR-XX-NOWHERE"

	got, err := h.calc.Compute(ev)
	require.NoError(t, err)
	assert.True(t, got.BestEffort)
	assert.Equal(t, calendar.ScopeNational, got.EffectiveScope)
	assert.True(t, got.HasAudit(AuditScopeFallback))
}

func TestInvalidEventRejectedAtBoundary(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.calc.Compute(TriggerEvent{EventKind: "contestação", Scope: "BR"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidTriggerEvent))

	_, err = h.calc.Compute(TriggerEvent{BaseDate: d("2025-01-02"), Scope: "BR"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidTriggerEvent))
}

func TestCountingModes(t *testing.T) {
	t.Run("automatic is authoritative", func(t *testing.T) {
		h := newHarness(t, nil)
		mode := settings.CountingAutomatic
		_, err := h.settings.Update(settings.Patch{CountingMode: &mode})
		require.NoError(t, err)

		got, err := h.calc.Compute(contestação("2025-01-02"))
		require.NoError(t, err)
		assert.True(t, got.Authoritative)
		assert.False(t, got.RequiresConfirmation)
	})

	t.Run("assisted records confidence without moving the date", func(t *testing.T) {
		scorer := func(TriggerEvent, common.Date) (float64, error) { return 0.87, nil }
		h := newHarness(t, scorer)
		mode := settings.CountingAssisted
		_, err := h.settings.Update(settings.Patch{CountingMode: &mode})
		require.NoError(t, err)

		got, err := h.calc.Compute(contestação("2025-01-02"))
		require.NoError(t, err)
		require.NotNil(t, got.Confidence)
		assert.InDelta(t, 0.87, *got.Confidence, 1e-9)
		assert.Equal(t, d("2025-01-23"), got.DueDate)
		assert.True(t, got.RequiresConfirmation)
	})

	t.Run("assisted degrades when the scorer fails", func(t *testing.T) {
		scorer := func(TriggerEvent, common.Date) (float64, error) {
			return 0, fmt.Errorf("model offline")
		}
		h := newHarness(t, scorer)
		mode := settings.CountingAssisted
		_, err := h.settings.Update(settings.Patch{CountingMode: &mode})
		require.NoError(t, err)

		got, err := h.calc.Compute(contestação("2025-01-02"))
		require.NoError(t, err)
		assert.Nil(t, got.Confidence)
		assert.True(t, got.HasAudit(AuditConfidenceFailed))
	})
}

func TestVersioningRoundTrip(t *testing.T) {
	h := newHarness(t, nil)

	prev, err := h.calc.Compute(contestação("2025-01-02"))
	require.NoError(t, err)
	require.Equal(t, 1, prev.RuleVersion)

	// Version 2 changes unrelated data only: a holiday far outside the
	// expansion window.
	draft := civilDraft(calendar.Holiday{
		Date: d("2025-12-25"), Scope: calendar.ScopeNational, Name: "Natal",
	})
	_, err = h.repo.Publish(draft)
	require.NoError(t, err)

	// The old record is now stale against the active version.
	err = h.calc.CheckStale(prev)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeStaleRuleVersion))

	// Recomputing against the pinned version reproduces the original date.
	again, err := h.calc.Recompute(prev, prev.RuleVersion)
	require.NoError(t, err)
	assert.Equal(t, prev.DueDate, again.DueDate)
	assert.Equal(t, prev.ID, again.SupersedesID)

	// Recomputing against the new version also reproduces it here, since
	// the change was unrelated.
	current, err := h.calc.Recompute(prev, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, current.RuleVersion)
	assert.Equal(t, prev.DueDate, current.DueDate)
	assert.NoError(t, h.calc.CheckStale(current))
}

func TestRecalculatorBatch(t *testing.T) {
	h := newHarness(t, nil)

	var prior []ComputedDeadline
	for _, base := range []string{"2025-01-02", "2025-01-03", "2025-03-03"} {
		got, err := h.calc.Compute(contestação(base))
		require.NoError(t, err)
		prior = append(prior, got)
	}

	// Version 2 adds a holiday inside the January windows only.
	_, err := h.repo.Publish(civilDraft(calendar.Holiday{
		Date: d("2025-01-10"), Scope: calendar.ScopeNational, Name: "feriado nacional",
	}))
	require.NoError(t, err)

	rec := NewRecalculator(h.calc, 4, nil)
	outcomes, err := rec.RecomputeAll(context.Background(), prior, 0)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	assert.True(t, outcomes[0].Changed)
	assert.Equal(t, d("2025-01-24"), outcomes[0].Next.DueDate)
	assert.True(t, outcomes[1].Changed)
	assert.False(t, outcomes[2].Changed, "march window never saw the new holiday")

	for i, o := range outcomes {
		require.NoError(t, o.Err)
		assert.Equal(t, prior[i].ID, o.Next.SupersedesID)
		assert.Equal(t, 2, o.Next.RuleVersion)
	}
}

func TestMemoryStore(t *testing.T) {
	h := newHarness(t, nil)
	store := NewMemoryStore()

	a, err := h.calc.Compute(contestação("2025-01-02"))
	require.NoError(t, err)
	b, err := h.calc.Compute(contestação("2025-03-03"))
	require.NoError(t, err)

	require.NoError(t, store.Save(b))
	require.NoError(t, store.Save(a))
	assert.Error(t, store.Save(a), "records are immutable, no overwrite")

	got, err := store.Get(a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.DueDate, got.DueDate)

	_, err = store.Get(common.NewID())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDeadlineNotFound))

	list, err := store.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID, "ordered by due date")
}

func TestComputedAtUsesInjectedClock(t *testing.T) {
	h := newHarness(t, nil)
	at := time.Date(2025, 1, 2, 9, 30, 0, 0, time.UTC)
	h.calc.WithClock(func() time.Time { return at })

	got, err := h.calc.Compute(contestação("2025-01-02"))
	require.NoError(t, err)
	assert.Equal(t, at, got.ComputedAt.Time())
}
