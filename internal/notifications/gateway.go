// Package notifications delivers formatted messages to the team chat.
package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sheet_notify/internal/messages"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	circuitThreshold = 5
	circuitCooldown  = 30 * time.Second
)

// Sender is a chat transport.
type Sender interface {
	Send(ctx context.Context, text string, markdown bool) error
}

// Limiter gates and paces outbound messages.
type Limiter interface {
	CheckRateLimit(ctx context.Context) (bool, error)
	Delay(ctx context.Context)
}

type Outcome int

const (
	OutcomeDelivered Outcome = iota
	OutcomeRateLimited
	OutcomeFallbackDelivered
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeFallbackDelivered:
		return "fallback_delivered"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DeliveryResult reports what happened to one message. Err carries the
// primary send failure for the fallback and failure outcomes.
type DeliveryResult struct {
	Outcome Outcome
	Err     error
}

func (r DeliveryResult) Delivered() bool {
	return r.Outcome == OutcomeDelivered
}

type Metrics struct {
	Sent        int64
	Failed      int64
	RateLimited int64
	Fallback    int64
}

// Gateway sends messages through a Sender, honoring the rate limit, falling
// back to a plain-text error notice when a formatted send fails.
type Gateway struct {
	sender  Sender
	limiter Limiter
	now     func() time.Time

	rateLimitWarn rate.Sometimes

	mutex       sync.Mutex
	failures    int
	lastFailure time.Time
	circuitOpen bool
	metrics     Metrics
}

func NewGateway(sender Sender, limiter Limiter) *Gateway {
	return &Gateway{
		sender:        sender,
		limiter:       limiter,
		now:           time.Now,
		rateLimitWarn: rate.Sometimes{First: 1, Interval: time.Minute},
	}
}

// Send never returns an error or panics; the outcome is in the result.
func (g *Gateway) Send(ctx context.Context, message string) (result DeliveryResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Notification send panicked")
			g.recordFailure(true)
			result = DeliveryResult{Outcome: OutcomeFailed, Err: fmt.Errorf("notification send panicked: %v", r)}
		}
	}()

	if g.limiter != nil {
		allowed, err := g.limiter.CheckRateLimit(ctx)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("Rate limit check failed, sending anyway")
		case !allowed:
			g.mutex.Lock()
			g.metrics.RateLimited++
			g.mutex.Unlock()
			g.rateLimitWarn.Do(func() {
				log.Warn().Msg("Notification rate limit exceeded, dropping messages")
			})
			log.Debug().Msg("Notification skipped by rate limit")
			return DeliveryResult{Outcome: OutcomeRateLimited}
		}
	}

	if g.isCircuitOpen() {
		log.Warn().Msg("Circuit breaker open, skipping notification")
		g.mutex.Lock()
		g.metrics.Failed++
		g.mutex.Unlock()
		return DeliveryResult{
			Outcome: OutcomeFailed,
			Err:     &NotificationError{Type: "circuit_open", Underlying: fmt.Errorf("circuit breaker is open")},
		}
	}

	err := g.sender.Send(ctx, message, true)
	if err == nil {
		g.recordSuccess()
		if g.limiter != nil {
			g.limiter.Delay(ctx)
		}
		return DeliveryResult{Outcome: OutcomeDelivered}
	}

	notifErr := categorizeSendError(err)
	g.recordFailure(notifErr.IsRetryable())
	log.Error().
		Err(notifErr).
		Str("type", notifErr.Type).
		Int("status_code", notifErr.StatusCode).
		Msg("Failed to send notification")

	if fbErr := g.sender.Send(ctx, messages.FallbackMessage(err), false); fbErr != nil {
		log.Error().Err(fbErr).Msg("Failed to send fallback error notice")
		return DeliveryResult{Outcome: OutcomeFailed, Err: notifErr}
	}

	g.mutex.Lock()
	g.metrics.Fallback++
	g.mutex.Unlock()
	log.Info().Msg("Fallback error notice sent")
	return DeliveryResult{Outcome: OutcomeFallbackDelivered, Err: notifErr}
}

func (g *Gateway) Metrics() Metrics {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return g.metrics
}

func (g *Gateway) isCircuitOpen() bool {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if !g.circuitOpen {
		return false
	}
	if g.now().Sub(g.lastFailure) > circuitCooldown {
		g.circuitOpen = false
		g.failures = 0
		log.Info().Msg("Circuit breaker moving to half-open state")
	}
	return g.circuitOpen
}

func (g *Gateway) recordSuccess() {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	g.metrics.Sent++
	g.failures = 0
}

// recordFailure counts a failed primary send. Only outage-type failures move the
// circuit breaker.
func (g *Gateway) recordFailure(outage bool) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	g.metrics.Failed++
	if !outage {
		return
	}
	g.failures++
	g.lastFailure = g.now()

	if g.failures >= circuitThreshold && !g.circuitOpen {
		g.circuitOpen = true
		log.Warn().
			Int("failures", g.failures).
			Msg("Circuit breaker opened due to consecutive failures")
	}
}
