package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// TaskKind names the handler a queued task is routed to.
type TaskKind string

const (
	TaskProjectCreation      TaskKind = "project_creation"
	TaskProjectUpdating      TaskKind = "project_updating"
	TaskInvestorSubscription TaskKind = "investor_subscription"
	TaskModerationRequest    TaskKind = "moderation_request"
	TaskModerationApproved   TaskKind = "moderation_approved"
	TaskModerationDeclined   TaskKind = "moderation_declined"
)

// AllTaskKinds lists every kind; rate limiters and metrics pre-register one
// series per entry.
var AllTaskKinds = []TaskKind{
	TaskProjectCreation,
	TaskProjectUpdating,
	TaskInvestorSubscription,
	TaskModerationRequest,
	TaskModerationApproved,
	TaskModerationDeclined,
}

func (k TaskKind) IsValid() bool {
	for _, known := range AllTaskKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Priority returns the dispatch priority of a kind. Moderation is handled
// first since an admin is waiting on it; creation fan-out is best-effort.
func (k TaskKind) Priority() Priority {
	switch k {
	case TaskModerationRequest, TaskModerationApproved, TaskModerationDeclined:
		return PriorityHigh
	case TaskProjectCreation:
		return PriorityLow
	}
	return PriorityNormal
}

// Priority controls queue ordering. High is processed first.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// Rank orders priorities for the claim query (lower first).
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityNormal:
		return 1
	}
	return 2
}

// TaskStatus tracks a task through Enqueued → Running → {Succeeded, Retrying, DeadLettered}.
type TaskStatus string

const (
	TaskEnqueued     TaskStatus = "enqueued"
	TaskRunning      TaskStatus = "running"
	TaskRetrying     TaskStatus = "retrying"
	TaskSucceeded    TaskStatus = "succeeded"
	TaskDeadLettered TaskStatus = "dead_lettered"
)

// Audience records why an investor was targeted by a project_updating task,
// so execution can re-check that the reason still holds.
type Audience string

const (
	AudienceSubscriber Audience = "subscriber"
	AudienceInterest   Audience = "interest"
)

// TaskPayload carries ids only. Handlers re-read every entity at execution
// time; nothing here is trusted beyond identifying what to look up.
type TaskPayload struct {
	InvestorID    int64         `json:"investor_id,omitempty"`
	ProjectID     int64         `json:"project_id,omitempty"`
	RecipientType RecipientType `json:"recipient_type,omitempty"`
	RecipientID   int64         `json:"recipient_id,omitempty"`
	Audience      Audience      `json:"audience,omitempty"`
	EntityKind    EntityKind    `json:"entity_kind,omitempty"`
	EntityID      int64         `json:"entity_id,omitempty"`
	Ticket        string        `json:"ticket,omitempty"`
	BaseURL       string        `json:"base_url"`
	EventID       string        `json:"event_id"`
}

// Task is a durable unit of work. Attempts counts claims and doubles as the
// fencing token: state transitions are only accepted from the worker holding
// the attempt that was claimed. Runs counts executions actually started and
// is what MaxAttempts bounds, so a claim that expires in the buffer before any
// worker picks it up costs nothing.
type Task struct {
	ID          string      `json:"id"`
	Kind        TaskKind    `json:"kind"`
	DedupKey    string      `json:"dedup_key"`
	Payload     TaskPayload `json:"payload"`
	Priority    Priority    `json:"priority"`
	Status      TaskStatus  `json:"status"`
	Attempts    int         `json:"attempts"`
	Runs        int         `json:"runs"`
	MaxAttempts int         `json:"max_attempts"`
	RunAt       time.Time   `json:"run_at"`
	LeaseUntil  *time.Time  `json:"lease_until,omitempty"`
	LastError   *string     `json:"last_error,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`

	// PayloadErr is set when the stored payload could not be decoded.
	PayloadErr error `json:"-"`
}

// EncodePayload returns the JSON stored in the payload column.
func (t *Task) EncodePayload() ([]byte, error) {
	b, err := json.Marshal(t.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode task payload: %w", err)
	}
	return b, nil
}

// DecodePayload fills t.Payload from the stored JSON.
func (t *Task) DecodePayload(raw []byte) error {
	if err := json.Unmarshal(raw, &t.Payload); err != nil {
		return Permanentf("decode task payload: %v", err)
	}
	return nil
}

// Origin is the explicit event context supplied by whoever raises an event:
// an id for the triggering mutation and the base URL used to build links.
type Origin struct {
	EventID string
	BaseURL string
}

// NotificationKey is the idempotency key of a project notification: one row
// per (kind, recipient, project, triggering event).
func NotificationKey(kind TaskKind, rt RecipientType, recipientID, projectID int64, eventID string) string {
	return fmt.Sprintf("%s:%s:%d:p%d:e%s", kind, rt, recipientID, projectID, eventID)
}

// SubscriptionKey is the idempotency key of a subscription notice to a
// startup owner. The subscribing investor is part of the key so two
// subscriptions sharing an event id stay distinct.
func SubscriptionKey(ownerID, projectID, investorID int64, eventID string) string {
	return fmt.Sprintf("%s:%s:%d:p%d:i%d:e%s",
		TaskInvestorSubscription, RecipientStartup, ownerID, projectID, investorID, eventID)
}

// ModerationRequestKey identifies one moderation submission.
func ModerationRequestKey(kind EntityKind, entityID int64, eventID string) string {
	return fmt.Sprintf("%s:%s:%d:e%s", TaskModerationRequest, kind, entityID, eventID)
}

// ModerationDecisionKey allows a single decision per moderation ticket, so
// repeated clicks on an emailed link collapse onto the first one.
func ModerationDecisionKey(ticket string) string {
	return "moderation_decision:t" + ticket
}
