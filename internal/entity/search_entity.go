package entity

type SortOrder string

const (
	SortByDistance SortOrder = "distance"
	SortByActivity SortOrder = "activity"
	SortByMatch    SortOrder = "match"
)

// SearchParameters is the filter set sent with a batch request. It is passed
// by value so a request always works on its own snapshot.
type SearchParameters struct {
	Distance             int       `json:"distance"`
	ShowOutsidePreferred bool      `json:"show_outside_preferred"`
	SortBy               SortOrder `json:"sort_by"`
	PreferredGender      string    `json:"preferred_gender"`
}

// SearchParametersOverride holds the settings-screen edits cached on the
// device. Nil fields keep the profile value.
type SearchParametersOverride struct {
	Distance             *int       `json:"distance,omitempty"`
	ShowOutsidePreferred *bool      `json:"show_outside_preferred,omitempty"`
	SortBy               *SortOrder `json:"sort_by,omitempty"`
	PreferredGender      *string    `json:"preferred_gender,omitempty"`
}

// Apply returns p with every non-nil override field applied.
func (o SearchParametersOverride) Apply(p SearchParameters) SearchParameters {
	if o.Distance != nil {
		p.Distance = *o.Distance
	}
	if o.ShowOutsidePreferred != nil {
		p.ShowOutsidePreferred = *o.ShowOutsidePreferred
	}
	if o.SortBy != nil {
		p.SortBy = *o.SortBy
	}
	if o.PreferredGender != nil {
		p.PreferredGender = *o.PreferredGender
	}
	return p
}

// OwnProfile is the slice of the user's own profile the session needs.
type OwnProfile struct {
	ID               string
	Coordinates      *Coordinates
	SearchParameters SearchParameters
	Complete         bool
}
