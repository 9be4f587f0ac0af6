package model

import "time"

// CachedCoordinates is the persisted form of the last known good fix.
type CachedCoordinates struct {
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	AttemptStamp int64     `json:"attempt_stamp"` // UnixNano of the attempt start
	SavedAt      time.Time `json:"saved_at"`
}

const (
	KeyCachedCoordinates = "coordinates"
	KeySearchOverride    = "search-parameters"
	KeyHintPrefix        = "hint:"
)
