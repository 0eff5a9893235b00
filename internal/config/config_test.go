package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OTP_STORE", "redis")
	t.Setenv("REDIS_ADDR", "")

	cfg := Load()

	assert.Equal(t, "aquaalerts", cfg.AppName)
	assert.Equal(t, 200.0, cfg.DefaultDailyThreshold)
	assert.Equal(t, 10*time.Minute, cfg.OTP.TTL)
	assert.Equal(t, OTPStoreDB, cfg.OTP.Store, "redis store requires an address")
	assert.InDelta(t, 0.70, cfg.Validator.MinScore, 1e-9)
}

func TestLocationFallsBackToLocal(t *testing.T) {
	assert.Equal(t, time.Local, Config{Timezone: "Not/AZone"}.Location())
	assert.Equal(t, time.Local, Config{Timezone: "local"}.Location())

	loc := Config{Timezone: "UTC"}.Location()
	assert.Equal(t, "UTC", loc.String())
}

func TestGetenvDurationIgnoresGarbage(t *testing.T) {
	t.Setenv("SOME_TTL", "soon")
	assert.Equal(t, time.Minute, getenvDuration("SOME_TTL", time.Minute))

	t.Setenv("SOME_TTL", "90s")
	assert.Equal(t, 90*time.Second, getenvDuration("SOME_TTL", time.Minute))
}
