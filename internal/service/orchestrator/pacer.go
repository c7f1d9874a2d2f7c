package orchestrator

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer gates calls to the image generator. Every generation waits on it first.
type Pacer interface {
	Wait(ctx context.Context) error
}

// RatePacer is a token bucket shared by every request in the process: one
// token per interval, at most burst tokens banked.
type RatePacer struct {
	limiter *rate.Limiter
}

func NewRatePacer(interval time.Duration, burst int) *RatePacer {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	if burst < 1 {
		burst = 1
	}
	return &RatePacer{limiter: rate.NewLimiter(limit, burst)}
}

func (p *RatePacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// NoPacer never waits.
type NoPacer struct{}

func (NoPacer) Wait(ctx context.Context) error {
	return ctx.Err()
}
