package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jurisflow/prazo/internal/domain/calendar"
	"github.com/jurisflow/prazo/internal/domain/deadline"
	"github.com/jurisflow/prazo/internal/domain/rules"
	"github.com/jurisflow/prazo/internal/domain/settings"
	"github.com/jurisflow/prazo/internal/domain/suspension"
)

func testDraft() rules.Draft {
	return rules.Draft{
		DefaultProcessTypeID: "civil",
		ProcessTypes: []rules.ProcessType{
			{
				ID:   "civil",
				Name: "Processo Civil",
				Durations: map[string]rules.DurationRule{
					"contestacao": {Days: 15, Unit: calendar.UnitBusinessDays},
				},
			},
		},
		Multipliers: []rules.Multiplier{{Role: "co-defendant", Hundredths: 200}},
		Scopes:      []calendar.Scope{"BR", "BR-SP"},
	}
}

func newTestDeps(t *testing.T) Dependencies {
	t.Helper()
	repo := rules.NewMemoryRepository()
	_, err := repo.Publish(testDraft())
	require.NoError(t, err)

	registry := suspension.NewRegistry()
	cfgStore := settings.NewMemoryStore()
	return Dependencies{
		Calculator:  deadline.NewCalculator(repo, registry, cfgStore, nil, nil),
		Deadlines:   deadline.NewMemoryStore(),
		Rules:       repo,
		Settings:    cfgStore,
		Suspensions: registry,
	}
}

func execute(t *testing.T, deps Dependencies, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand(deps)
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), err
}

func TestComputeCommand(t *testing.T) {
	deps := newTestDeps(t)

	out, err := execute(t, deps,
		"compute", "--base-date", "2025-01-02", "--event-kind", "contestacao",
		"--process-type", "civil", "--scope", "BR-SP")
	require.NoError(t, err)
	assert.Contains(t, out, "2025-01-23")
	assert.Contains(t, out, "audit trail")

	stored, err := deps.Deadlines.List()
	require.NoError(t, err)
	assert.Len(t, stored, 1, "computed deadline is persisted")
}

func TestComputeCommandJSONOutput(t *testing.T) {
	deps := newTestDeps(t)

	out, err := execute(t, deps,
		"compute", "-o", "json", "--base-date", "2025-01-02",
		"--event-kind", "contestacao", "--scope", "BR-SP",
		"--role", "co-defendant")
	require.NoError(t, err)

	var result deadline.ComputedDeadline
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 200, result.MultiplierHundredths)
	assert.Equal(t, 30, result.MultipliedDays)
}

func TestComputeCommandRequiresFlags(t *testing.T) {
	deps := newTestDeps(t)
	_, err := execute(t, deps, "compute", "--base-date", "2025-01-02")
	require.Error(t, err)
}

func TestRulesCommands(t *testing.T) {
	deps := newTestDeps(t)

	out, err := execute(t, deps, "rules", "list", "-o", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "VERSION")
	assert.Contains(t, out, "*")

	t.Run("publish from draft file", func(t *testing.T) {
		draft := testDraft()
		draft.ProcessTypes[0].Durations["recurso"] = rules.DurationRule{Days: 15, Unit: calendar.UnitBusinessDays}
		data, err := json.Marshal(draft)
		require.NoError(t, err)
		path := filepath.Join(t.TempDir(), "draft.json")
		require.NoError(t, os.WriteFile(path, data, 0o644))

		out, err := execute(t, deps, "rules", "publish", "--file", path)
		require.NoError(t, err)
		assert.Contains(t, out, "version 2")
		assert.Equal(t, 2, deps.Rules.ActiveVersion())
	})

	t.Run("publish rejects an invalid draft", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.json")
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

		_, err := execute(t, deps, "rules", "publish", "--file", path)
		require.Error(t, err)
	})
}

func TestSettingsCommands(t *testing.T) {
	deps := newTestDeps(t)

	out, err := execute(t, deps, "settings", "get")
	require.NoError(t, err)
	assert.Contains(t, out, "manual")

	out, err = execute(t, deps, "settings", "set", "--counting-mode", "automatic", "--lead-days", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "automatic")

	cfg, err := deps.Settings.Get()
	require.NoError(t, err)
	assert.Equal(t, settings.CountingAutomatic, cfg.CountingMode)
	assert.Equal(t, 5, cfg.LeadTimeDays)
	assert.Equal(t, int64(2), cfg.Version)

	t.Run("stale expected version warns but applies", func(t *testing.T) {
		out, err := execute(t, deps, "settings", "set", "--lead-days", "7", "--expected-version", "1")
		require.NoError(t, err)
		assert.Contains(t, out, "warning")

		cfg, err := deps.Settings.Get()
		require.NoError(t, err)
		assert.Equal(t, 7, cfg.LeadTimeDays)
	})
}

func TestSuspensionsCommands(t *testing.T) {
	deps := newTestDeps(t)

	out, err := execute(t, deps, "suspensions", "add",
		"--start", "2025-01-06", "--end", "2025-01-10", "--reason", "recesso")
	require.NoError(t, err)
	assert.Contains(t, out, "registered suspension")

	out, err = execute(t, deps, "suspensions", "list", "-o", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "global")
	assert.Contains(t, out, "recesso")

	t.Run("inverted range rejected", func(t *testing.T) {
		_, err := execute(t, deps, "suspensions", "add",
			"--start", "2025-01-10", "--end", "2025-01-06")
		require.Error(t, err)
	})
}

func TestAuditExportCommand(t *testing.T) {
	deps := newTestDeps(t)

	_, err := execute(t, deps,
		"compute", "--base-date", "2025-01-02", "--event-kind", "contestacao", "--scope", "BR-SP")
	require.NoError(t, err)

	t.Run("to stdout", func(t *testing.T) {
		out, err := execute(t, deps, "audit", "export")
		require.NoError(t, err)

		var export struct {
			Deadlines     []deadline.ComputedDeadline `json:"deadlines"`
			Configuration []settings.ConfigurationSet `json:"configuration_history"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &export))
		assert.Len(t, export.Deadlines, 1)
		assert.NotEmpty(t, export.Deadlines[0].Audit)
		assert.NotEmpty(t, export.Configuration)
	})

	t.Run("to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "export.json")
		out, err := execute(t, deps, "audit", "export", "--out", path)
		require.NoError(t, err)
		assert.Contains(t, out, "exported 1 deadlines")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, json.Valid(data))
	})
}

func TestUnknownCommandFails(t *testing.T) {
	deps := newTestDeps(t)
	_, err := execute(t, deps, "frobnicate")
	require.Error(t, err)
}
