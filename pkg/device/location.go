package device

import (
	"context"
	"errors"

	"discovery-client/internal/entity"
)

var (
	ErrPermissionDenied = errors.New("location permission denied")
	ErrNoSignal         = errors.New("no location signal")
)

// LocationProvider is the platform location capability. CurrentPosition may
// ignore ctx: some platforms cannot cancel a pending read.
type LocationProvider interface {
	RequestPermission(ctx context.Context) (bool, error)
	CurrentPosition(ctx context.Context) (entity.Coordinates, error)
}
