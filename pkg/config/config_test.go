package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := fromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, 3, cfg.DB.TxMaxRetries)
	assert.Equal(t, 20*time.Millisecond, cfg.DB.TxRetryDelay)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.Equal(t, "postgres://postgres:@localhost:5432/magistral?sslmode=disable", cfg.DB.ConnectionString())
}

func TestFromViper_Overrides(t *testing.T) {
	v := viper.New()
	v.Set("DB_TX_MAX_RETRIES", "5")
	v.Set("DB_TX_RETRY_DELAY", "50ms")
	v.Set("REDIS_URL", "redis://localhost:6379/0")
	v.Set("DATABASE_URL", "postgres://u:p@db:5432/x")

	cfg, err := fromViper(v)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.DB.TxMaxRetries)
	assert.Equal(t, 50*time.Millisecond, cfg.DB.TxRetryDelay)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, "postgres://u:p@db:5432/x", cfg.DB.ConnectionString())
}

func TestFromViper_RetriesNegativos(t *testing.T) {
	v := viper.New()
	v.Set("DB_TX_MAX_RETRIES", -1)

	_, err := fromViper(v)
	assert.Error(t, err)
}

func TestFromViper_StoreDriverDesconocido(t *testing.T) {
	v := viper.New()
	v.Set("STORE_DRIVER", "sqlite")

	_, err := fromViper(v)
	assert.Error(t, err)
}
