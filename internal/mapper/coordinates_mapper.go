package mapper

import (
	"time"

	"discovery-client/internal/entity"
	"discovery-client/internal/model"
)

type CoordinatesMapper struct{}

func NewCoordinatesMapper() *CoordinatesMapper {
	return &CoordinatesMapper{}
}

func (m *CoordinatesMapper) ToEntity(c *model.CachedCoordinates) *entity.Coordinates {
	if c == nil {
		return nil
	}
	return &entity.Coordinates{
		Latitude:  c.Latitude,
		Longitude: c.Longitude,
	}
}

func (m *CoordinatesMapper) ToModel(c entity.Coordinates, attemptStartedAt, savedAt time.Time) *model.CachedCoordinates {
	return &model.CachedCoordinates{
		Latitude:     c.Latitude,
		Longitude:    c.Longitude,
		AttemptStamp: attemptStartedAt.UnixNano(),
		SavedAt:      savedAt,
	}
}
