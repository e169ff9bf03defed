package domain_test

import (
	"errors"
	"testing"

	"github.com/ricirt/venturematch/internal/domain"
)

func TestTaskKind_Priority(t *testing.T) {
	tests := []struct {
		kind domain.TaskKind
		want domain.Priority
	}{
		{domain.TaskModerationRequest, domain.PriorityHigh},
		{domain.TaskModerationApproved, domain.PriorityHigh},
		{domain.TaskModerationDeclined, domain.PriorityHigh},
		{domain.TaskProjectUpdating, domain.PriorityNormal},
		{domain.TaskInvestorSubscription, domain.PriorityNormal},
		{domain.TaskProjectCreation, domain.PriorityLow},
	}
	for _, tc := range tests {
		if got := tc.kind.Priority(); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.kind, tc.want, got)
		}
	}
}

func TestNotificationKey_DistinguishesEvents(t *testing.T) {
	a := domain.NotificationKey(domain.TaskProjectUpdating, domain.RecipientInvestor, 7, 3, "evt-1")
	b := domain.NotificationKey(domain.TaskProjectUpdating, domain.RecipientInvestor, 7, 3, "evt-1")
	c := domain.NotificationKey(domain.TaskProjectUpdating, domain.RecipientInvestor, 7, 3, "evt-2")

	if a != b {
		t.Fatalf("same inputs must give the same key: %q vs %q", a, b)
	}
	if a == c {
		t.Fatal("different triggering events must give different keys")
	}
}

func TestTask_PayloadRoundTrip(t *testing.T) {
	task := domain.Task{Payload: domain.TaskPayload{
		InvestorID: 7, ProjectID: 3, Audience: domain.AudienceSubscriber, EventID: "evt", BaseURL: "http://x",
	}}
	raw, err := task.EncodePayload()
	if err != nil {
		t.Fatal(err)
	}

	var decoded domain.Task
	if err := decoded.DecodePayload(raw); err != nil {
		t.Fatal(err)
	}
	if decoded.Payload != task.Payload {
		t.Fatalf("expected %+v, got %+v", task.Payload, decoded.Payload)
	}
}

func TestTask_DecodePayloadMalformedIsPermanent(t *testing.T) {
	var task domain.Task
	err := task.DecodePayload([]byte("{not json"))
	if !errors.Is(err, domain.ErrPermanent) {
		t.Fatalf("expected ErrPermanent, got %v", err)
	}
}

func TestSubscriptionKey_DistinguishesInvestors(t *testing.T) {
	a := domain.SubscriptionKey(40, 3, 7, "evt")
	b := domain.SubscriptionKey(40, 3, 8, "evt")
	if a == b {
		t.Fatal("subscriptions from different investors must not collapse")
	}
}
