package service

import (
	"context"

	"discovery-client/internal/entity"
	"discovery-client/internal/pkg/logger"
	"discovery-client/internal/repository/contract"
	"discovery-client/pkg/matchapi"
)

// DefaultSearchParameters apply when the own profile could not be fetched.
var DefaultSearchParameters = entity.SearchParameters{
	Distance: 50,
	SortBy:   entity.SortByDistance,
}

type IProfileService interface {
	FetchOwnProfile(ctx context.Context) (*entity.OwnProfile, error)
	// SearchParameters is the snapshot a batch request uses: the profile's
	// parameters (or the defaults) with the cached overrides applied.
	SearchParameters(ctx context.Context, profile *entity.OwnProfile) entity.SearchParameters
	SaveOverrides(ctx context.Context, override entity.SearchParametersOverride) (entity.SearchParametersOverride, error)
}

type profileService struct {
	api        matchapi.API
	searchRepo contract.SearchParametersRepository
	logger     logger.ILogger
}

func NewProfileService(api matchapi.API, searchRepo contract.SearchParametersRepository, logger logger.ILogger) IProfileService {
	return &profileService{
		api:        api,
		searchRepo: searchRepo,
		logger:     logger,
	}
}

func (s *profileService) FetchOwnProfile(ctx context.Context) (*entity.OwnProfile, error) {
	profile, err := s.api.FetchOwnProfile(ctx)
	if err != nil {
		s.logger.Warn("PROFILE", "Failed to fetch own profile", map[string]interface{}{"error": err.Error()})
		return nil, err
	}
	return profile, nil
}

func (s *profileService) SearchParameters(ctx context.Context, profile *entity.OwnProfile) entity.SearchParameters {
	params := DefaultSearchParameters
	if profile != nil {
		params = profile.SearchParameters
	}

	override, err := s.searchRepo.LoadOverride(ctx)
	if err != nil {
		s.logger.Warn("PROFILE", "Ignoring unreadable search overrides", map[string]interface{}{"error": err.Error()})
		return params
	}
	return override.Apply(params)
}

// SaveOverrides merges override into the stored one; nil fields keep their
// stored value.
func (s *profileService) SaveOverrides(ctx context.Context, override entity.SearchParametersOverride) (entity.SearchParametersOverride, error) {
	current, err := s.searchRepo.LoadOverride(ctx)
	if err != nil {
		current = entity.SearchParametersOverride{}
	}

	if override.Distance != nil {
		current.Distance = override.Distance
	}
	if override.ShowOutsidePreferred != nil {
		current.ShowOutsidePreferred = override.ShowOutsidePreferred
	}
	if override.SortBy != nil {
		current.SortBy = override.SortBy
	}
	if override.PreferredGender != nil {
		current.PreferredGender = override.PreferredGender
	}

	if err := s.searchRepo.SaveOverride(ctx, current); err != nil {
		return entity.SearchParametersOverride{}, err
	}
	return current, nil
}
