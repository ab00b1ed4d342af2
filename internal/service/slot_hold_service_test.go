package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestSlotHoldService_HoldIsExclusive(t *testing.T) {
	mr, client := newTestRedis(t)
	svc := NewSlotHoldService(client, newTestLogger(), time.Minute)
	ctx := context.Background()
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	release, err := svc.Hold(ctx, day, "09:00")
	require.NoError(t, err)
	assert.True(t, mr.Exists("appointment:slot:2024-01-01:09:00"))

	_, err = svc.Hold(ctx, day, "09:00")
	assert.ErrorIs(t, err, ErrSlotHeld)

	other, err := svc.Hold(ctx, day, "09:30")
	require.NoError(t, err)
	other()

	release()
	release()
	assert.False(t, mr.Exists("appointment:slot:2024-01-01:09:00"))

	again, err := svc.Hold(ctx, day, "09:00")
	require.NoError(t, err)
	again()
}

func TestSlotHoldService_ReleaseKeepsForeignHold(t *testing.T) {
	mr, client := newTestRedis(t)
	svc := NewSlotHoldService(client, newTestLogger(), time.Second)
	ctx := context.Background()
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	release, err := svc.Hold(ctx, day, "10:00")
	require.NoError(t, err)

	// The hold expires and another request takes the slot.
	mr.FastForward(2 * time.Second)
	_, err = svc.Hold(ctx, day, "10:00")
	require.NoError(t, err)

	release()
	assert.True(t, mr.Exists("appointment:slot:2024-01-01:10:00"))
}
