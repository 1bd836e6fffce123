package rules

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jurisflow/prazo/internal/domain/calendar"
	"github.com/jurisflow/prazo/pkg/errors"
)

func TestMemoryRepository_EmptyHasNoActiveVersion(t *testing.T) {
	repo := NewMemoryRepository()
	assert.Equal(t, 0, repo.ActiveVersion())
	assert.Empty(t, repo.ListVersions())

	_, err := repo.RuleSet(0)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownRuleVersion))
}

func TestMemoryRepository_PublishBumpsVersion(t *testing.T) {
	repo := NewMemoryRepository()

	v1, err := repo.Publish(civilDraft())
	require.NoError(t, err)
	assert.Equal(t, 1, v1.Version)
	assert.Equal(t, 1, repo.ActiveVersion())

	v2, err := repo.Publish(civilDraft())
	require.NoError(t, err)
	assert.Equal(t, 2, v2.Version)
	assert.Equal(t, 2, repo.ActiveVersion())
	assert.Equal(t, []int{1, 2}, repo.ListVersions())
}

func TestMemoryRepository_PublishRejectsInvalidDraft(t *testing.T) {
	repo := NewMemoryRepository()
	d := civilDraft()
	d.DefaultProcessTypeID = ""
	_, err := repo.Publish(d)
	assert.Error(t, err)
	assert.Equal(t, 0, repo.ActiveVersion())
}

// A version published before a mutation must keep answering with its
// original data: old ComputedDeadlines stay reproducible.
func TestMemoryRepository_OldVersionsStayReproducible(t *testing.T) {
	repo := NewMemoryRepository()
	_, err := repo.Publish(civilDraft())
	require.NoError(t, err)

	// Version 2 changes the contestação duration.
	changed := civilDraft()
	changed.ProcessTypes[0].Durations["contestação"] = DurationRule{Days: 20, Unit: calendar.UnitBusinessDays}
	_, err = repo.Publish(changed)
	require.NoError(t, err)

	oldRes, err := repo.Lookup("civil", "contestação", 1)
	require.NoError(t, err)
	assert.Equal(t, 15, oldRes.Days)

	newRes, err := repo.Lookup("civil", "contestação", 0) // active
	require.NoError(t, err)
	assert.Equal(t, 20, newRes.Days)
}

func TestMemoryRepository_VersionZeroMeansActive(t *testing.T) {
	repo := NewMemoryRepository()
	_, err := repo.Publish(civilDraft())
	require.NoError(t, err)

	rs, err := repo.RuleSet(0)
	require.NoError(t, err)
	assert.Equal(t, 1, rs.Version)
}

func TestMemoryRepository_Restore(t *testing.T) {
	source := NewMemoryRepository()
	v1, err := source.Publish(civilDraft())
	require.NoError(t, err)

	data, err := EncodeDocument(v1)
	require.NoError(t, err)
	rehydrated, err := DecodeDocument(data)
	require.NoError(t, err)

	target := NewMemoryRepository()
	require.NoError(t, target.Restore(rehydrated))
	assert.Equal(t, 1, target.ActiveVersion())

	// Restoring the same version again must not overwrite it.
	err = target.Restore(rehydrated)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConflict))
}

func TestMemoryRepository_ConcurrentReadersDuringPublish(t *testing.T) {
	repo := NewMemoryRepository()
	_, err := repo.Publish(civilDraft())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				res, err := repo.Lookup("civil", "contestação", 0)
				assert.NoError(t, err)
				// Readers see a whole version: durations are always one of
				// the published values, never an intermediate state.
				assert.Contains(t, []int{15, 20}, res.Days)
			}
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			changed := civilDraft()
			changed.ProcessTypes[0].Durations["contestação"] = DurationRule{Days: 20, Unit: calendar.UnitBusinessDays}
			_, err := repo.Publish(changed)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}
