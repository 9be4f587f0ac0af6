package device

import (
	"context"
	"errors"
	"sync"
	"time"

	"discovery-client/internal/entity"
)

var ErrInvalidCoordinates = errors.New("coordinates out of range")

// BridgeLocationProvider is fed by the presentation layer, which owns the
// real platform API. A read waits for the next reported fix; it gives up
// after maxWait so an abandoned read cannot wait forever.
type BridgeLocationProvider struct {
	mu      sync.Mutex
	granted bool
	waiters map[chan entity.Coordinates]struct{}
	maxWait time.Duration
}

func NewBridgeLocationProvider(maxWait time.Duration) *BridgeLocationProvider {
	return &BridgeLocationProvider{
		granted: true,
		waiters: make(map[chan entity.Coordinates]struct{}),
		maxWait: maxWait,
	}
}

func (b *BridgeLocationProvider) SetPermission(granted bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.granted = granted
}

// ReportPosition hands a fix to every pending read and returns how many
// reads it satisfied.
func (b *BridgeLocationProvider) ReportPosition(c entity.Coordinates) (int, error) {
	if !c.Valid() {
		return 0, ErrInvalidCoordinates
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for ch := range b.waiters {
		ch <- c
		delete(b.waiters, ch)
		n++
	}
	return n, nil
}

// Pending returns the number of reads waiting for a fix.
func (b *BridgeLocationProvider) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.waiters)
}

func (b *BridgeLocationProvider) RequestPermission(ctx context.Context) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.granted, nil
}

func (b *BridgeLocationProvider) CurrentPosition(ctx context.Context) (entity.Coordinates, error) {
	ch := make(chan entity.Coordinates, 1)

	b.mu.Lock()
	b.waiters[ch] = struct{}{}
	b.mu.Unlock()

	timer := time.NewTimer(b.maxWait)
	defer timer.Stop()

	select {
	case c := <-ch:
		return c, nil
	case <-timer.C:
	case <-ctx.Done():
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.waiters, ch)

	// a fix may have landed between the timeout and the lock
	select {
	case c := <-ch:
		return c, nil
	default:
		return entity.Coordinates{}, ErrNoSignal
	}
}
