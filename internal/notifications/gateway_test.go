package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	text     string
	markdown bool
}

type fakeSender struct {
	mu    sync.Mutex
	sent  []sentMessage
	errs  []error
	panic bool
}

func (f *fakeSender) Send(ctx context.Context, text string, markdown bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panic {
		panic("transport exploded")
	}
	f.sent = append(f.sent, sentMessage{text: text, markdown: markdown})
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return err
	}
	return nil
}

type fakeLimiter struct {
	allow  []bool
	err    error
	delays int
}

func (f *fakeLimiter) CheckRateLimit(ctx context.Context) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if len(f.allow) == 0 {
		return true, nil
	}
	allowed := f.allow[0]
	f.allow = f.allow[1:]
	return allowed, nil
}

func (f *fakeLimiter) Delay(ctx context.Context) {
	f.delays++
}

func TestGatewayDelivers(t *testing.T) {
	sender := &fakeSender{}
	limiter := &fakeLimiter{}
	g := NewGateway(sender, limiter)

	result := g.Send(context.Background(), "✅ *Изменение статуса*")

	assert.True(t, result.Delivered())
	assert.NoError(t, result.Err)
	require.Len(t, sender.sent, 1)
	assert.True(t, sender.sent[0].markdown)
	assert.Equal(t, 1, limiter.delays)
	assert.Equal(t, Metrics{Sent: 1}, g.Metrics())
}

func TestGatewayRateLimitedSkipsNetwork(t *testing.T) {
	sender := &fakeSender{}
	limiter := &fakeLimiter{allow: []bool{false}}
	g := NewGateway(sender, limiter)

	result := g.Send(context.Background(), "msg")

	assert.Equal(t, OutcomeRateLimited, result.Outcome)
	assert.Empty(t, sender.sent)
	assert.Zero(t, limiter.delays)
	assert.Equal(t, int64(1), g.Metrics().RateLimited)
}

func TestGatewayFailsOpenOnLimiterError(t *testing.T) {
	sender := &fakeSender{}
	g := NewGateway(sender, &fakeLimiter{err: errors.New("database is locked")})

	result := g.Send(context.Background(), "msg")

	assert.True(t, result.Delivered())
	assert.Len(t, sender.sent, 1)
}

func TestGatewayFallback(t *testing.T) {
	sender := &fakeSender{errs: []error{errors.New("telegram: Bad Request: can't parse entities (400)")}}
	limiter := &fakeLimiter{}
	g := NewGateway(sender, limiter)

	result := g.Send(context.Background(), "*broken")

	assert.Equal(t, OutcomeFallbackDelivered, result.Outcome)
	var notifErr *NotificationError
	require.ErrorAs(t, result.Err, &notifErr)
	assert.Equal(t, "client", notifErr.Type)
	assert.Equal(t, 400, notifErr.StatusCode)

	require.Len(t, sender.sent, 2)
	assert.False(t, sender.sent[1].markdown)
	assert.Equal(t, "❌ Ошибка системы уведомлений: telegram: Bad Request: can't parse entities (400)", sender.sent[1].text)
	assert.Zero(t, limiter.delays)
	assert.Equal(t, Metrics{Failed: 1, Fallback: 1}, g.Metrics())
}

func TestGatewayFallbackFailure(t *testing.T) {
	sender := &fakeSender{errs: []error{errors.New("dial tcp: connection refused"), errors.New("dial tcp: connection refused")}}
	g := NewGateway(sender, nil)

	result := g.Send(context.Background(), "msg")

	assert.Equal(t, OutcomeFailed, result.Outcome)
	var notifErr *NotificationError
	require.ErrorAs(t, result.Err, &notifErr)
	assert.Equal(t, "network", notifErr.Type)
	assert.True(t, notifErr.IsRetryable())
}

func TestGatewayRecoversPanics(t *testing.T) {
	g := NewGateway(&fakeSender{panic: true}, nil)

	var result DeliveryResult
	assert.NotPanics(t, func() {
		result = g.Send(context.Background(), "msg")
	})
	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Error(t, result.Err)
}

func TestGatewayCircuitBreaker(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sender := &fakeSender{}
	for i := 0; i < 2*circuitThreshold; i++ {
		sender.errs = append(sender.errs, errors.New("telegram: Internal Server Error (500)"))
	}
	g := NewGateway(sender, nil)
	g.now = func() time.Time { return now }

	// Each send fails twice (primary + fallback), but only the primary counts.
	for i := 0; i < circuitThreshold; i++ {
		assert.Equal(t, OutcomeFailed, g.Send(context.Background(), "msg").Outcome)
	}
	sentBefore := len(sender.sent)

	result := g.Send(context.Background(), "msg")
	var notifErr *NotificationError
	require.ErrorAs(t, result.Err, &notifErr)
	assert.Equal(t, "circuit_open", notifErr.Type)
	assert.Len(t, sender.sent, sentBefore)

	now = now.Add(circuitCooldown + time.Second)
	assert.True(t, g.Send(context.Background(), "msg").Delivered())
}

func TestGatewayRejectedMessagesKeepCircuitClosed(t *testing.T) {
	sender := &fakeSender{}
	for i := 0; i < circuitThreshold+1; i++ {
		sender.errs = append(sender.errs, errors.New("telegram: Bad Request: can't parse entities (400)"), nil)
	}
	g := NewGateway(sender, nil)

	for i := 0; i < circuitThreshold+1; i++ {
		assert.Equal(t, OutcomeFallbackDelivered, g.Send(context.Background(), "*bad").Outcome)
	}
	assert.True(t, g.Send(context.Background(), "ok").Delivered())
	assert.Equal(t, Metrics{Sent: 1, Failed: circuitThreshold + 1, Fallback: circuitThreshold + 1}, g.Metrics())
}

func TestCategorizeSendError(t *testing.T) {
	tests := []struct {
		err       error
		errType   string
		code      int
		retryable bool
	}{
		{errors.New("telegram: Unauthorized (401)"), "auth", 401, false},
		{errors.New("telegram: Forbidden: bot was blocked by the user (403)"), "auth", 403, false},
		{errors.New("telegram: retry after 5 (429)"), "rate_limit", 429, true},
		{errors.New("telegram: Bad Request: chat not found (400)"), "client", 400, false},
		{errors.New("telegram: Bad Gateway (502)"), "server", 502, true},
		{errors.New("telebot: Post \"https://api.telegram.org\": EOF"), "network", 0, true},
	}

	for _, tt := range tests {
		got := categorizeSendError(tt.err)
		assert.Equal(t, tt.errType, got.Type, tt.err.Error())
		assert.Equal(t, tt.code, got.StatusCode, tt.err.Error())
		assert.Equal(t, tt.retryable, got.IsRetryable(), tt.err.Error())
		assert.ErrorIs(t, got, tt.err)
	}
}
