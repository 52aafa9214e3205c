package openai

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Unlimited(t *testing.T) {
	r := NewRateLimiter(0)

	for i := 0; i < 100; i++ {
		assert.NoError(t, r.Wait(context.Background()))
	}
}

func TestRateLimiter_RecordRateLimit(t *testing.T) {
	r := NewRateLimiter(0)
	r.RecordRateLimit("2")

	assert.WithinDuration(t, time.Now().Add(2*time.Second), r.retryAt, 500*time.Millisecond)

	r.RecordRateLimit("garbage")
	assert.WithinDuration(t, time.Now().Add(defaultBackoff), r.retryAt, 500*time.Millisecond)
}

func TestRateLimiter_WaitHonoursContext(t *testing.T) {
	r := NewRateLimiter(0)
	r.RecordRateLimit("60")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, r.Wait(ctx), context.DeadlineExceeded)
}
