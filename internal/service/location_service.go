package service

import (
	"context"
	"time"

	"discovery-client/internal/config"
	"discovery-client/internal/entity"
	"discovery-client/internal/pkg/logger"
	"discovery-client/internal/repository/contract"
	"discovery-client/pkg/device"
)

type LocationCondition string

const (
	LocationOK                LocationCondition = ""
	LocationPermissionDenied  LocationCondition = "permission-denied"
	LocationSignalUnavailable LocationCondition = "signal-unavailable"
)

// LocationResult is the outcome of one resolve attempt. Coordinates is nil
// when no fresh fix was obtained; the caller falls back to cached values.
type LocationResult struct {
	Coordinates *entity.Coordinates
	Condition   LocationCondition
}

type ILocationService interface {
	Resolve(ctx context.Context, hasCached bool) LocationResult
	Cached(ctx context.Context) (*entity.Coordinates, error)
}

type locationService struct {
	provider     device.LocationProvider
	repo         contract.CoordinatesRepository
	shortTimeout time.Duration
	longTimeout  time.Duration
	now          func() time.Time
	logger       logger.ILogger
}

func NewLocationService(provider device.LocationProvider, repo contract.CoordinatesRepository, cfg config.DiscoveryConfig, logger logger.ILogger) ILocationService {
	return &locationService{
		provider:     provider,
		repo:         repo,
		shortTimeout: cfg.LocationShortTimeout,
		longTimeout:  cfg.LocationLongTimeout,
		now:          time.Now,
		logger:       logger,
	}
}

type positionRead struct {
	coords entity.Coordinates
	err    error
}

func (s *locationService) Resolve(ctx context.Context, hasCached bool) LocationResult {
	startedAt := s.now()

	granted, err := s.provider.RequestPermission(ctx)
	if err != nil || !granted {
		details := map[string]interface{}{"granted": granted}
		if err != nil {
			details["error"] = err.Error()
		}
		s.logger.Warn("LOCATION", "Location permission denied", details)
		return LocationResult{Condition: LocationPermissionDenied}
	}

	timeout := s.longTimeout
	if hasCached {
		timeout = s.shortTimeout
	}

	// Buffered so the read goroutine can always finish after we stop
	// listening. The platform read has no cancellation, so the loser of the
	// race is left to complete and its result dropped.
	reads := make(chan positionRead, 1)
	go func() {
		coords, err := s.provider.CurrentPosition(context.WithoutCancel(ctx))
		reads <- positionRead{coords: coords, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case read := <-reads:
		if read.err != nil || !read.coords.Valid() {
			details := map[string]interface{}{"coordinates": read.coords.String()}
			if read.err != nil {
				details["error"] = read.err.Error()
			}
			s.logger.Warn("LOCATION", "Position read failed", details)
			return LocationResult{Condition: LocationSignalUnavailable}
		}

		coords := read.coords
		saved, err := s.repo.Save(ctx, coords, startedAt)
		if err != nil {
			s.logger.Error("LOCATION", "Failed to persist coordinates", map[string]interface{}{"error": err.Error()})
		} else if !saved {
			s.logger.Info("LOCATION", "Newer coordinates already stored, keeping them", map[string]interface{}{"coordinates": coords.String()})
		}
		return LocationResult{Coordinates: &coords}

	case <-timer.C:
		s.logger.Warn("LOCATION", "Position read timed out", map[string]interface{}{
			"timeout":    timeout.String(),
			"has_cached": hasCached,
		})
		return LocationResult{Condition: LocationSignalUnavailable}

	case <-ctx.Done():
		return LocationResult{Condition: LocationSignalUnavailable}
	}
}

func (s *locationService) Cached(ctx context.Context) (*entity.Coordinates, error) {
	return s.repo.Load(ctx)
}
