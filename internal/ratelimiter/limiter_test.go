package ratelimiter_test

import (
	"context"
	"testing"
	"time"

	"github.com/ricirt/venturematch/internal/domain"
	"github.com/ricirt/venturematch/internal/ratelimiter"
)

func TestKindLimiters_IndependentBuckets(t *testing.T) {
	kl := ratelimiter.New(1)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := kl.Wait(ctx, domain.TaskProjectCreation); err != nil {
		t.Fatalf("first token should be free: %v", err)
	}
	// Creation bucket is now empty, moderation bucket is not.
	if err := kl.Wait(ctx, domain.TaskModerationRequest); err != nil {
		t.Fatalf("other kinds must not share the bucket: %v", err)
	}
	if err := kl.Wait(ctx, domain.TaskProjectCreation); err == nil {
		t.Fatal("expected the drained bucket to block past the deadline")
	}
}

func TestKindLimiters_UnknownKind(t *testing.T) {
	kl := ratelimiter.New(1)
	if err := kl.Wait(context.Background(), domain.TaskKind("other")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
