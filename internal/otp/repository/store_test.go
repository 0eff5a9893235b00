package repository

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	otpdomain "github.com/smallbiznis/aquaalerts/internal/otp/domain"
	"github.com/smallbiznis/aquaalerts/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)

func newOTP(node *snowflake.Node, email, code string, ttl time.Duration) *otpdomain.OTP {
	return &otpdomain.OTP{
		ID:        node.Generate(),
		Email:     email,
		Purpose:   otpdomain.PurposeRegister,
		Code:      code,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
}

func TestGormStoreLifecycle(t *testing.T) {
	conn, err := db.NewIsolatedTest(t.Name())
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&otpdomain.OTP{}))
	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	store := NewGormStore(conn)
	ctx := context.Background()

	require.NoError(t, store.Replace(ctx, newOTP(node, "ayu@example.com", "111111", 10*time.Minute)))
	require.NoError(t, store.Replace(ctx, newOTP(node, "ayu@example.com", "222222", 10*time.Minute)))

	var count int64
	require.NoError(t, conn.Model(&otpdomain.OTP{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	active, err := store.FindActive(ctx, "ayu@example.com", otpdomain.PurposeRegister, now)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "222222", active.Code)

	attempts, err := store.IncrementAttempts(ctx, active)
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)

	expired, err := store.FindActive(ctx, "ayu@example.com", otpdomain.PurposeRegister, now.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Nil(t, expired)

	removed, err := store.DeleteExpired(ctx, now.Add(11*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	require.NoError(t, store.Delete(ctx, "ayu@example.com", otpdomain.PurposeRegister))
}

func TestRedisEncodingRoundTrip(t *testing.T) {
	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	otp := newOTP(node, "ayu@example.com", "654321", 10*time.Minute)
	otp.Attempts = 2

	fields := map[string]string{}
	for k, v := range encodeOTP(otp) {
		switch val := v.(type) {
		case string:
			fields[k] = val
		case int:
			fields[k] = strconv.Itoa(val)
		case int64:
			fields[k] = strconv.FormatInt(val, 10)
		}
	}

	decoded, err := decodeOTP(otp.Email, otp.Purpose, fields)
	require.NoError(t, err)
	assert.Equal(t, otp, decoded)
	assert.Equal(t, "aquaalerts:otp:register:ayu@example.com", otpKey(otp.Email, otp.Purpose))

	_, err = decodeOTP(otp.Email, otp.Purpose, map[string]string{"id": "x"})
	assert.Error(t, err)
}
