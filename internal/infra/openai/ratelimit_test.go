package openai

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestNewRateLimiter(t *testing.T) {
	unlimited := NewRateLimiter(0, 0)
	assert.Equal(t, rate.Inf, unlimited.Limit())

	limited := NewRateLimiter(10, 0)
	assert.Equal(t, rate.Limit(10), limited.Limit())
	assert.Equal(t, DefaultRequestBurst, limited.Burst())

	custom := NewRateLimiter(2.5, 1)
	assert.Equal(t, 1, custom.Burst())
}

func TestEmbedder_RespectsRateLimiter(t *testing.T) {
	// 1件目はバーストで即時通過、2件目は期限内にトークンが補充されない
	limiter := NewRateLimiter(0.001, 1)
	embedder, fake := newTestEmbedder(t, 3, WithEmbeddingDimension(3), WithEmbeddingRateLimiter(limiter))

	_, err := embedder.Embed(context.Background(), "t1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = embedder.Embed(ctx, "t2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter wait failed")
	assert.Equal(t, []int{1}, fake.BatchSizes())
}
