package mysql

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_DSN(t *testing.T) {
	cfg := Config{
		Host:     "db",
		Port:     3307,
		User:     "wallet",
		Password: "secret",
		DBName:   "audit",
	}
	require.Equal(t,
		"wallet:secret@tcp(db:3307)/audit?charset=utf8mb4&loc=UTC&parseTime=True",
		cfg.DSN(),
	)
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{Host: "db", MaxOpenConns: 5}.WithDefaults()

	assert.Equal(t, 3306, cfg.Port)
	assert.Equal(t, 5, cfg.MaxOpenConns)
	assert.Equal(t, 10, cfg.MaxIdleConns)
	assert.Equal(t, 30*time.Minute, cfg.ConnMaxLifetime)
	assert.Equal(t, 10, cfg.ConnectRetries)
	assert.Equal(t, 2*time.Second, cfg.RetryInterval)
}

func TestNewLogger_UnknownLevelDoesNotPanic(t *testing.T) {
	require.NotNil(t, newLogger("verbose"))
	require.NotNil(t, newLogger("silent"))
}
