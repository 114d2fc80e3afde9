package redis

import (
	"fmt"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/catalog/pkg/config"
)

func TestKeyNamespace(t *testing.T) {
	c := &Client{namespace: defaultNamespace}
	assert.Equal(t, "catalog:search:abc", c.Key("search:abc"))
}

func TestIsNilError(t *testing.T) {
	assert.True(t, IsNilError(redis.Nil))
	assert.True(t, IsNilError(fmt.Errorf("get: %w", redis.Nil)))
	assert.False(t, IsNilError(assert.AnError))
	assert.False(t, IsNilError(nil))
}

func TestNewClientUnreachable(t *testing.T) {
	_, err := NewClient(config.RedisConfig{Addr: "127.0.0.1:1", PoolSize: 1})
	assert.ErrorContains(t, err, "redis ping failed")
}
