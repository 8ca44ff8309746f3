package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNilOutboundLimiterNeverBlocks(t *testing.T) {
	var l *OutboundLimiter
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	assert.NoError(t, l.Wait(ctx, "fieldservice:tenant"))
}

func TestParseFloat(t *testing.T) {
	assert.Equal(t, 2.5, parseFloat("2.5"))
	assert.Equal(t, 3.0, parseFloat(int64(3)))
	assert.Equal(t, 0.0, parseFloat("nan?"))
	assert.Equal(t, 0.0, parseFloat(nil))
}

func TestBucketTTL(t *testing.T) {
	assert.Equal(t, 20*time.Second, bucketTTL(1, 10))
	assert.Equal(t, time.Second, bucketTTL(100, 1))
}
