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
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "mongo", cfg.StoreDriver)
	assert.Equal(t, "INR", cfg.Currency)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 30*time.Second, cfg.SlotLockTTL)
	assert.Equal(t, 168*time.Hour, cfg.TokenTTL)
	assert.False(t, cfg.PaymentsEnabled())
	assert.False(t, cfg.IsProduction())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("ALLOWED_ORIGINS", "https://prescripto.in, https://admin.prescripto.in")
	t.Setenv("RAZORPAY_KEY_ID", "rzp_test_1")
	t.Setenv("RAZORPAY_KEY_SECRET", "secret")
	t.Setenv("CURRENCY", "usd")
	t.Setenv("MONGO_TRANSACTIONS", "true")
	t.Setenv("REQUEST_TIMEOUT", "2s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, []string{"https://prescripto.in", "https://admin.prescripto.in"}, cfg.AllowedOrigins)
	assert.True(t, cfg.PaymentsEnabled())
	assert.Equal(t, "USD", cfg.Currency)
	assert.True(t, cfg.MongoTransactions)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
}

func TestLoadOriginsFallBackToFrontendURLs(t *testing.T) {
	t.Setenv("FRONTEND_URL", "http://localhost:5173")
	t.Setenv("ADMIN_URL", "http://localhost:5174")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:5174"}, cfg.AllowedOrigins)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	t.Run("store driver", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "sqlite")
		_, err := Load()
		assert.ErrorContains(t, err, "STORE_DRIVER")
	})
	t.Run("production secret", func(t *testing.T) {
		t.Setenv("ENV", "production")
		_, err := Load()
		assert.ErrorContains(t, err, "JWT_SECRET")
	})
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=7070\nCURRENCY=eur\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("CURRENCY", "gbp")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "GBP", cfg.Currency)
}
