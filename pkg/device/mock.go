package device

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"discovery-client/internal/entity"
)

// MockLocationProvider simulates a GPS for demo mode and tests: a fixed
// position jittered a little per read, after a configurable delay.
type MockLocationProvider struct {
	mu        sync.Mutex
	origin    entity.Coordinates
	delay     time.Duration
	granted   bool
	failReads bool
	reads     int
	rng       *rand.Rand
}

// NewMockLocationProvider creates a provider that grants permission and
// answers after delay.
func NewMockLocationProvider(origin entity.Coordinates, delay time.Duration) *MockLocationProvider {
	return &MockLocationProvider{
		origin:  origin,
		delay:   delay,
		granted: true,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (m *MockLocationProvider) SetGranted(granted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.granted = granted
}

func (m *MockLocationProvider) SetDelay(delay time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = delay
}

// SetFailing makes subsequent reads report ErrNoSignal.
func (m *MockLocationProvider) SetFailing(failing bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failReads = failing
}

// Reads returns how many position reads were started.
func (m *MockLocationProvider) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

func (m *MockLocationProvider) RequestPermission(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.granted, nil
}

// CurrentPosition sleeps for the configured delay and does not honour ctx,
// like a platform read with no cancellation primitive.
func (m *MockLocationProvider) CurrentPosition(ctx context.Context) (entity.Coordinates, error) {
	m.mu.Lock()
	m.reads++
	delay := m.delay
	failing := m.failReads
	jitterLat := (m.rng.Float64() - 0.5) * 0.002
	jitterLng := (m.rng.Float64() - 0.5) * 0.002
	m.mu.Unlock()

	time.Sleep(delay)

	if failing {
		return entity.Coordinates{}, ErrNoSignal
	}
	return entity.Coordinates{
		Latitude:  m.origin.Latitude + jitterLat,
		Longitude: m.origin.Longitude + jitterLng,
	}, nil
}
