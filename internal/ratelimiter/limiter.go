package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/ricirt/venturematch/internal/domain"
)

// KindLimiters holds one token bucket limiter per task kind, so a burst of
// creation fan-out cannot starve moderation mail of gateway capacity.
// Burst is set equal to the rate so no extra burst capacity is allowed
// beyond the configured per-second maximum.
type KindLimiters struct {
	limiters map[domain.TaskKind]*rate.Limiter
}

// New creates a KindLimiters with ratePerSec tokens per second per kind.
func New(ratePerSec int) *KindLimiters {
	r := rate.Limit(ratePerSec)
	limiters := make(map[domain.TaskKind]*rate.Limiter, len(domain.AllTaskKinds))
	for _, k := range domain.AllTaskKinds {
		limiters[k] = rate.NewLimiter(r, ratePerSec)
	}
	return &KindLimiters{limiters: limiters}
}

// Wait blocks until the kind's limiter grants a token.
// Called by each worker immediately before executing a task.
// Returns a non-nil error only if ctx is cancelled while waiting.
// Unknown kinds are not limited; the handler rejects them anyway.
func (kl *KindLimiters) Wait(ctx context.Context, kind domain.TaskKind) error {
	l, ok := kl.limiters[kind]
	if !ok {
		return nil
	}
	return l.Wait(ctx)
}
