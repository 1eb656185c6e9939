package entities

// SortKey selects the ordering applied after the nearest-first sort.
type SortKey string

const (
	SortNearest SortKey = "nearest"
	SortOpen    SortKey = "open"
	SortClosing SortKey = "closing"
	SortWait    SortKey = "wait"
)

// Valid reports whether k is a known sort key.
func (k SortKey) Valid() bool {
	switch k {
	case SortNearest, SortOpen, SortClosing, SortWait:
		return true
	}
	return false
}

// SearchQuery describes one proximity search. Exactly one of OriginText and
// OriginCoord is expected to be set; the HTTP layer enforces that.
type SearchQuery struct {
	OriginText  string
	OriginCoord *Coordinate
	Category    Category
	RadiusKm    float64

	OpenNow  bool
	Features []string
	Sort     SortKey
}

// SearchResult is a facility annotated for one query. The facility fields are
// flattened into the JSON object.
type SearchResult struct {
	Facility
	DistanceMeters int        `json:"distanceMeters"`
	Status         OpenStatus `json:"status"`
	DirectionsURL  string     `json:"directionsUrl,omitempty"`
}

// SearchResponse is the ordered outcome of a search together with the resolved origin.
type SearchResponse struct {
	Origin   Coordinate
	RadiusKm float64
	Results  []SearchResult
	Count    int
}
