package domain

import "time"

// RecipientType distinguishes investor-facing from startup-facing notifications.
type RecipientType string

const (
	RecipientInvestor RecipientType = "investor"
	RecipientStartup  RecipientType = "startup"
)

func (r RecipientType) IsValid() bool {
	return r == RecipientInvestor || r == RecipientStartup
}

// Kind is the notification type stored in the ledger.
type Kind string

const (
	KindProjectUpdating      Kind = "project_updating"
	KindInvestorSubscription Kind = "investor_subscription"
	KindProjectCreation      Kind = "project_creation"
	KindModerationApproved   Kind = "moderation_approved"
	KindModerationDeclined   Kind = "moderation_declined"
)

func (k Kind) IsValid() bool {
	switch k {
	case KindProjectUpdating, KindInvestorSubscription, KindProjectCreation,
		KindModerationApproved, KindModerationDeclined:
		return true
	}
	return false
}

// Notification is an append-only ledger row. Only IsRead ever changes after
// insertion, and only from false to true.
type Notification struct {
	ID            string        `json:"id"`
	RecipientType RecipientType `json:"recipient_type"`
	RecipientID   int64         `json:"recipient_id"`
	ProjectID     *int64        `json:"project_id,omitempty"`
	Kind          Kind          `json:"type"`
	Text          string        `json:"text"`
	DedupKey      string        `json:"-"`
	SendAt        time.Time     `json:"send_at"`
	IsRead        bool          `json:"is_read"`
}

// NotificationDraft is what callers hand to the ledger; id, send_at and
// is_read are assigned on record.
type NotificationDraft struct {
	RecipientType RecipientType
	RecipientID   int64
	ProjectID     *int64
	Kind          Kind
	Text          string
	DedupKey      string
}

func (d *NotificationDraft) Validate() error {
	if !d.RecipientType.IsValid() {
		return Permanentf("invalid recipient type %q", d.RecipientType)
	}
	if d.RecipientID <= 0 {
		return Permanentf("recipient id must be positive, got %d", d.RecipientID)
	}
	if !d.Kind.IsValid() {
		return Permanentf("invalid notification kind %q", d.Kind)
	}
	if d.Text == "" || len(d.Text) > 1000 {
		return Permanentf("notification text must be between 1 and 1000 characters")
	}
	if d.DedupKey == "" {
		return Permanentf("notification dedup key is required")
	}
	return nil
}
