package models

// ReleaseDateUnknown is the sentinel used when the upstream catalog has no
// release date for a title. It is never an empty string.
const ReleaseDateUnknown = "Unknown"

// Title is a normalized catalog entry for one movie. It is a read-only
// projection of upstream data and is never persisted locally.
type Title struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Overview     string  `json:"overview"`
	PosterPath   *string `json:"poster_path"`
	BackdropPath *string `json:"backdrop_path"`
	ReleaseDate  string  `json:"release_date"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int     `json:"vote_count"`
	GenreIDs     []int   `json:"genre_ids,omitempty"`
	Genres       []Genre `json:"genres,omitempty"`
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Availability types for a provider offering.
const (
	AvailabilityStream = "stream"
	AvailabilityRent   = "rent"
	AvailabilityBuy    = "buy"
)

// Provider is a named service offering a title under one availability type.
type Provider struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Trailer is a single hosted trailer video for a title.
type Trailer struct {
	Name string `json:"name"`
	Key  string `json:"key"`
	Site string `json:"site"`
}

// MovieDetails is one title together with its aggregated availability data.
type MovieDetails struct {
	Title
	Videos    []Trailer  `json:"videos"`
	Providers []Provider `json:"providers"`
}

// SearchOutcome records how a search against the upstream catalog went.
// Degraded outcomes still produce a well-formed empty page for callers;
// the distinction exists for diagnostics only and is never serialized.
type SearchOutcome int

const (
	SearchOK SearchOutcome = iota
	SearchDegradedAuth
	SearchDegradedRateLimit
)

func (o SearchOutcome) String() string {
	switch o {
	case SearchDegradedAuth:
		return "degraded_auth"
	case SearchDegradedRateLimit:
		return "degraded_rate_limit"
	default:
		return "ok"
	}
}

// SearchPage is one page of normalized search results. Page, TotalPages and
// TotalResults are passed through from the upstream provider verbatim.
type SearchPage struct {
	Results      []Title       `json:"results"`
	Page         int           `json:"page"`
	TotalPages   int           `json:"total_pages"`
	TotalResults int           `json:"total_results"`
	Outcome      SearchOutcome `json:"-"`
}

// EmptySearchPage is the degraded-upstream result shape: well-formed
// pagination around zero results.
func EmptySearchPage(outcome SearchOutcome) SearchPage {
	return SearchPage{
		Results:      []Title{},
		Page:         1,
		TotalPages:   1,
		TotalResults: 0,
		Outcome:      outcome,
	}
}
