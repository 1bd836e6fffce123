package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient pairs a stub API with a client that never retries, so tests
// assert exactly one exchange per call.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL, WithRetryMax(0))
	require.NoError(t, err)
	return c
}

func TestDeadlinesClient_Compute(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/deadlines/compute", r.URL.Path)

		var event TriggerEvent
		require.NoError(t, json.NewDecoder(r.Body).Decode(&event))
		assert.Equal(t, "2025-01-02", event.BaseDate)
		assert.Equal(t, "contestacao", event.EventKind)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(Deadline{
			ID:          "d-1",
			Event:       event,
			RuleVersion: 1,
			BaseDays:    15,
			DueDate:     "2025-01-23",
			Audit:       []AuditEntry{{Kind: "rule_resolved", Detail: "civil/contestacao: 15 business_days"}},
		})
	})

	d, err := c.Deadlines().Compute(context.Background(), TriggerEvent{
		BaseDate:  "2025-01-02",
		EventKind: "contestacao",
		Scope:     "BR-SP",
	})
	require.NoError(t, err)
	assert.Equal(t, "d-1", d.ID)
	assert.Equal(t, "2025-01-23", d.DueDate)
	assert.Len(t, d.Audit, 1)
}

func TestDeadlinesClient_ListWithFilter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2025-02-01", r.URL.Query().Get("due_before"))
		_ = json.NewEncoder(w).Encode(DeadlineList{
			Deadlines: []Deadline{{ID: "d-1"}, {ID: "d-2"}},
			Count:     2,
		})
	})

	list, err := c.Deadlines().List(context.Background(), ListDeadlinesQuery{DueBefore: "2025-02-01"})
	require.NoError(t, err)
	assert.Equal(t, 2, list.Count)
}

func TestDeadlinesClient_GetRequiresID(t *testing.T) {
	c, err := NewClient("http://localhost:8080")
	require.NoError(t, err)
	_, err = c.Deadlines().Get(context.Background(), "")
	assert.Error(t, err)
}

func TestRulesClient_PublishAndVersions(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/rules/publish":
			var req PublishRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "civil", req.DefaultProcessTypeID)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(RuleDocument{SchemaVersion: 1, Version: 2})
		case "/api/v1/rules/versions":
			_ = json.NewEncoder(w).Encode(RuleVersions{Versions: []int{1, 2}, Active: 2})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	doc, err := c.Rules().Publish(context.Background(), PublishRequest{
		DefaultProcessTypeID: "civil",
		ProcessTypes: []ProcessType{{
			ID:        "civil",
			Name:      "Processo Civil",
			Durations: map[string]DurationRule{"contestacao": {Days: 15, Unit: "business_days"}},
		}},
		Scopes: []string{"BR"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Version)

	versions, err := c.Rules().Versions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, versions.Active)
	assert.Equal(t, []int{1, 2}, versions.Versions)
}

func TestSettingsClient_UpdateReportsConflict(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		_ = json.NewEncoder(w).Encode(ConfigurationUpdate{
			Configuration: Configuration{Version: 4, CountingMode: "automatic", LeadTimeDays: 7},
			Conflict:      "configuration update raced: expected version 2, applied over 3",
		})
	})

	lead := 7
	updated, err := c.Settings().Update(context.Background(), ConfigurationPatch{
		LeadTimeDays:    &lead,
		ExpectedVersion: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), updated.Version)
	assert.NotEmpty(t, updated.Conflict, "stale expected version is advisory, not an error")
}

func TestSuspensionsClient_Add(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var p Suspension
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		p.ID = "s-1"
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(p)
	})

	accepted, err := c.Suspensions().Add(context.Background(), Suspension{
		Scope: "global", Start: "2024-12-20", End: "2025-01-20", Reason: "recesso forense",
	})
	require.NoError(t, err)
	assert.Equal(t, "s-1", accepted.ID)
	assert.Equal(t, "recesso forense", accepted.Reason)
}

func TestAlertsClient_Ack(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/alerts/d-1/ack", r.URL.Path)
		_ = json.NewEncoder(w).Encode(AlertStatus{DeadlineID: "d-1", State: "acknowledged"})
	})

	status, err := c.Alerts().Ack(context.Background(), "d-1")
	require.NoError(t, err)
	assert.Equal(t, "acknowledged", status.State)
}

func TestAlertsClient_AckConflict(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"code":    "COMMON_004",
			"message": "deadline has not alerted",
		})
	})

	_, err := c.Alerts().Ack(context.Background(), "d-9")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsConflict())
}
