package infrastructure

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewDocumentsPool_RequiresURL(t *testing.T) {
	_, err := NewDocumentsPool(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoDatabase)
}

func TestNewRedisClient(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoRedis)

	_, err = NewRedisClient(context.Background(), "http://not-redis")
	assert.ErrorContains(t, err, "parse redis url")
}

func TestNewChromedpRenderer_DefaultTimeout(t *testing.T) {
	r := NewChromedpRenderer("", 0)
	assert.Equal(t, 60*time.Second, r.timeout)
	assert.Empty(t, r.chromePath)
}
