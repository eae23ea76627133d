package redis

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/config"
)

func TestNewClient_Unreachable(t *testing.T) {
	client, err := NewClient(config.RedisConfig{Addr: "127.0.0.1:1"})

	assert.Nil(t, client)
	assert.ErrorContains(t, err, "pinging redis at 127.0.0.1:1")
}

func TestNewClient_Connects(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	client, err := NewClient(config.RedisConfig{Addr: addr})
	require.NoError(t, err)
	assert.NoError(t, client.Close())
}
