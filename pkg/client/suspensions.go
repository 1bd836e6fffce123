// Suspension and alert sub-clients.

package client

import (
	"context"
	"fmt"
	"net/url"
)

// Suspension is a court-ordered suspension period.  Start and End are both
// inclusive civil dates; Scope is "global" or a tribunal scope code.
type Suspension struct {
	ID     string `json:"id"`
	Scope  string `json:"scope"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Reason string `json:"reason"`
}

// SuspensionList is the listing response.
type SuspensionList struct {
	Suspensions []Suspension `json:"suspensions"`
	Count       int          `json:"count"`
}

// SuspensionsClient accesses the suspension endpoints.
type SuspensionsClient struct {
	client *Client
}

// Add registers a suspension period.  Open deadlines overlapping the period
// are tolled on their next computation.
func (s *SuspensionsClient) Add(ctx context.Context, p Suspension) (*Suspension, error) {
	var result Suspension
	if err := s.client.post(ctx, "/api/v1/suspensions", p, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// List returns all registered suspension periods.
func (s *SuspensionsClient) List(ctx context.Context) (*SuspensionList, error) {
	var result SuspensionList
	if err := s.client.get(ctx, "/api/v1/suspensions", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// AlertStatus is the notification state of one deadline.
type AlertStatus struct {
	DeadlineID string `json:"deadline_id"`
	State      string `json:"state"`
}

// AlertsClient accesses the alert endpoints.
type AlertsClient struct {
	client *Client
}

// State returns the alert state for a deadline.
func (a *AlertsClient) State(ctx context.Context, deadlineID string) (*AlertStatus, error) {
	if deadlineID == "" {
		return nil, fmt.Errorf("prazo: deadline id is required")
	}
	var result AlertStatus
	if err := a.client.get(ctx, "/api/v1/alerts/"+url.PathEscape(deadlineID), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Ack acknowledges a fired alert.  Acknowledging is idempotent; a deadline
// that never alerted cannot be acknowledged.
func (a *AlertsClient) Ack(ctx context.Context, deadlineID string) (*AlertStatus, error) {
	if deadlineID == "" {
		return nil, fmt.Errorf("prazo: deadline id is required")
	}
	var result AlertStatus
	if err := a.client.post(ctx, "/api/v1/alerts/"+url.PathEscape(deadlineID)+"/ack", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
