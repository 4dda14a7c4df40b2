package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.Cache.Trades)
	assert.Equal(t, 1000, cfg.Cache.Capacity().Positions)
	assert.Equal(t, 3, cfg.OrderBook.MaxResyncAttempts)
	assert.Equal(t, 15*time.Second, cfg.WebSocket.PingInterval)
	assert.Equal(t, 250*time.Millisecond, cfg.WebSocket.Option().Backoff.Min)
	assert.True(t, cfg.Binance.Enabled)
	assert.Equal(t, []string{"BTC/USDT"}, cfg.Binance.Symbols)
	assert.False(t, cfg.OKX.HasCredential())
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Kafka.Enabled())
	assert.Equal(t, "disable", cfg.Postgres.Option().SSLMode)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("EXSTREAM_CACHE_TRADES", "50")
	t.Setenv("EXSTREAM_OKX_ENABLED", "true")
	t.Setenv("EXSTREAM_OKX_API_KEY", "key")
	t.Setenv("EXSTREAM_OKX_SECRET", "secret")
	t.Setenv("EXSTREAM_OKX_PASSPHRASE", "pass")
	t.Setenv("EXSTREAM_REDIS_ADDR", "localhost:6379")
	t.Setenv("EXSTREAM_WEBSOCKET_PING_INTERVAL", "20s")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Cache.Trades)
	assert.True(t, cfg.OKX.Enabled)
	assert.True(t, cfg.OKX.HasCredential())
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 20*time.Second, cfg.WebSocket.PingInterval)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streamd.yaml")
	content := `
binance:
  symbols: [BTC/USDT, ETH/USDT]
kafka:
  brokers: [kafka-1:9092, kafka-2:9092]
  topic: market.trades
postgres:
  enabled: true
  port: 6432
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"BTC/USDT", "ETH/USDT"}, cfg.Binance.Symbols)
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, "market.trades", cfg.Kafka.Topic)
	assert.True(t, cfg.Postgres.Enabled)
	assert.Equal(t, 6432, cfg.Postgres.Option().Port)
	assert.Equal(t, 1000, cfg.Cache.Orders)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
