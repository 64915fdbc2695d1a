package cache

import (
	"context"
	"testing"
	"total_loc/internal/platform/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectRedis_DisabledWithoutAddr(t *testing.T) {
	rdb, err := ConnectRedis(context.Background(), &config.Config{})
	require.NoError(t, err)
	assert.Nil(t, rdb)
	CloseRedis(rdb)
}

func TestConnectRedis_UnreachableServer(t *testing.T) {
	// Port 1 is reserved and nothing listens there.
	_, err := ConnectRedis(context.Background(), &config.Config{RedisAddr: "127.0.0.1:1"})
	assert.Error(t, err)
}
