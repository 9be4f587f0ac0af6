package entity

// ActivityTier is a coarse recency-of-activity bucket. It only drives the
// presence indicator and is never compared against timestamps.
type ActivityTier int

const (
	ActivityTierUnknown ActivityTier = iota
	ActivityTierOnline
	ActivityTierToday
	ActivityTierThisWeek
	ActivityTierInactive
)

func (t ActivityTier) String() string {
	switch t {
	case ActivityTierOnline:
		return "online"
	case ActivityTierToday:
		return "today"
	case ActivityTierThisWeek:
		return "this-week"
	case ActivityTierInactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// Candidate is one profile in the discovery pool.
type Candidate struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Age             int          `json:"age"`
	ImageURL        string       `json:"image_url"`
	Distance        float64      `json:"distance"` // unit-agnostic, the presentation layer converts
	SharedInterests []string     `json:"shared_interests"`
	Description     string       `json:"description"`
	ActivityTier    ActivityTier `json:"activity_tier"`
	ReportCount     int          `json:"report_count"`
}

// Batch is one server-ranked list of candidates.
type Batch struct {
	Candidates []Candidate
	// Incompatible means the requesting user cannot be matched at all
	// (incomplete or ineligible own profile).
	Incompatible bool
}
