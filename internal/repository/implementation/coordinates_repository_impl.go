package implementation

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"discovery-client/internal/entity"
	"discovery-client/internal/mapper"
	"discovery-client/internal/model"
	"discovery-client/internal/repository/contract"
)

type CoordinatesRepositoryImpl struct {
	kv     contract.KeyValueRepository
	mapper *mapper.CoordinatesMapper
	now    func() time.Time
	mu     sync.Mutex // makes the stamp check and the write one step in-process
}

func NewCoordinatesRepository(kv contract.KeyValueRepository) contract.CoordinatesRepository {
	return &CoordinatesRepositoryImpl{
		kv:     kv,
		mapper: mapper.NewCoordinatesMapper(),
		now:    time.Now,
	}
}

func (r *CoordinatesRepositoryImpl) load(ctx context.Context) (*model.CachedCoordinates, error) {
	raw, found, err := r.kv.Get(ctx, model.KeyCachedCoordinates)
	if err != nil {
		return nil, err
	}
	if !found || raw == "" {
		return nil, nil
	}

	var cached model.CachedCoordinates
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		// A corrupt value is treated as absent; the next good fix overwrites it
		return nil, nil
	}
	return &cached, nil
}

func (r *CoordinatesRepositoryImpl) Load(ctx context.Context) (*entity.Coordinates, error) {
	cached, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	return r.mapper.ToEntity(cached), nil
}

func (r *CoordinatesRepositoryImpl) Save(ctx context.Context, coords entity.Coordinates, attemptStartedAt time.Time) (bool, error) {
	if !coords.Valid() {
		return false, fmt.Errorf("refusing to persist out-of-range coordinates %s", coords)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.load(ctx)
	if err != nil {
		return false, err
	}
	if current != nil && current.AttemptStamp > attemptStartedAt.UnixNano() {
		return false, nil
	}

	data, err := json.Marshal(r.mapper.ToModel(coords, attemptStartedAt, r.now()))
	if err != nil {
		return false, err
	}
	if err := r.kv.Set(ctx, model.KeyCachedCoordinates, string(data)); err != nil {
		return false, err
	}
	return true, nil
}
