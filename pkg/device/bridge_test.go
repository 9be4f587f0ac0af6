package device

import (
	"context"
	"testing"
	"time"

	"discovery-client/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridgeDeliversReportedFix(t *testing.T) {
	b := NewBridgeLocationProvider(time.Second)
	want := entity.Coordinates{Latitude: 52.52, Longitude: 13.405}

	done := make(chan entity.Coordinates, 1)
	go func() {
		c, err := b.CurrentPosition(context.Background())
		assert.NoError(t, err)
		done <- c
	}()

	require.Eventually(t, func() bool { return b.Pending() == 1 }, time.Second, 5*time.Millisecond)

	n, err := b.ReportPosition(want)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, want, <-done)
	assert.Zero(t, b.Pending())
}

func TestBridgeReadGivesUp(t *testing.T) {
	b := NewBridgeLocationProvider(20 * time.Millisecond)

	_, err := b.CurrentPosition(context.Background())
	assert.ErrorIs(t, err, ErrNoSignal)
	assert.Zero(t, b.Pending())
}

func TestBridgeRejectsInvalidFix(t *testing.T) {
	b := NewBridgeLocationProvider(time.Second)

	_, err := b.ReportPosition(entity.Coordinates{Latitude: 91})
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
}

func TestBridgePermission(t *testing.T) {
	b := NewBridgeLocationProvider(time.Second)

	granted, err := b.RequestPermission(context.Background())
	require.NoError(t, err)
	assert.True(t, granted)

	b.SetPermission(false)
	granted, _ = b.RequestPermission(context.Background())
	assert.False(t, granted)
}
