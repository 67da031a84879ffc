package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"HangarWatch/internal/config"
)

func TestNewRedisCacheUnreachable(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := NewRedisCache(ctx, config.CacheConfig{Addr: "127.0.0.1:1"})
	assert.Nil(t, c)
	assert.ErrorContains(t, err, "failed to connect to redis 127.0.0.1:1")
}
