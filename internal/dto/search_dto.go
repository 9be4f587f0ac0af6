package dto

import "discovery-client/internal/entity"

// UpdateSearchParametersRequest is a partial edit from the settings screen.
// Omitted fields keep their cached value.
type UpdateSearchParametersRequest struct {
	Distance             *int    `json:"distance" validate:"omitempty,min=1,max=500"`
	ShowOutsidePreferred *bool   `json:"show_outside_preferred"`
	SortBy               *string `json:"sort_by" validate:"omitempty,oneof=distance activity match"`
	PreferredGender      *string `json:"preferred_gender" validate:"omitempty,max=32"`
}

func (r UpdateSearchParametersRequest) ToOverride() entity.SearchParametersOverride {
	o := entity.SearchParametersOverride{
		Distance:             r.Distance,
		ShowOutsidePreferred: r.ShowOutsidePreferred,
		PreferredGender:      r.PreferredGender,
	}
	if r.SortBy != nil {
		sort := entity.SortOrder(*r.SortBy)
		o.SortBy = &sort
	}
	return o
}
