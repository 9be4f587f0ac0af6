package contract

import (
	"context"
	"time"

	"discovery-client/internal/entity"
)

// KeyValueRepository is the device key-value store: string keys, string
// values, last writer wins.
type KeyValueRepository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// CoordinatesRepository persists the last known good coordinates.
type CoordinatesRepository interface {
	Load(ctx context.Context) (*entity.Coordinates, error)
	// Save stores coords unless a pair from a newer attempt is already
	// stored. attemptStartedAt is when the producing attempt began, not when
	// it finished. Reports whether the pair was written.
	Save(ctx context.Context, coords entity.Coordinates, attemptStartedAt time.Time) (bool, error)
}

// SearchParametersRepository caches the settings-screen overrides.
type SearchParametersRepository interface {
	LoadOverride(ctx context.Context) (entity.SearchParametersOverride, error)
	SaveOverride(ctx context.Context, override entity.SearchParametersOverride) error
}
