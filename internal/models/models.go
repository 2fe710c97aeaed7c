package models

// Coordinate is a position on the sky in degrees. Lat/Lon naming is kept so
// geographic inputs (Dec/RA on the Earth sphere) read naturally.
type Coordinate struct {
	Lat float64 `json:"lat"` // Dec
	Lon float64 `json:"lon"` // RA
}

// PointRecord is one entry of an observed or reference set.
type PointRecord struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`

	// Native position as supplied by the caller (pixels for image sources,
	// degrees for catalogue entries).
	X float64 `json:"x"`
	Y float64 `json:"y"`

	// Sky position. Filled by the projector for observed records; reference
	// records carry it from input.
	Sky       Coordinate `json:"sky"`
	Projected bool       `json:"projected,omitempty"`

	RowIndex int `json:"row,omitempty"`
}

// CandidatePair is a proposed correspondence. Distance is in arcseconds.
type CandidatePair struct {
	ObservedID  string  `json:"observed_id"`
	ReferenceID string  `json:"reference_id"`
	Distance    float64 `json:"distance"`
}

// MatchedPair is a surviving CandidatePair resolved back to its records.
type MatchedPair struct {
	Observed  PointRecord `json:"observed"`
	Reference PointRecord `json:"reference"`
	Distance  float64     `json:"distance"`
}

type ResultRow struct {
	ObservedID    string
	ObservedName  string
	ObservedX     float64
	ObservedY     float64
	ObservedRA    float64
	ObservedDec   float64
	ReferenceID   string
	ReferenceName string
	ReferenceRA   float64
	ReferenceDec  float64
	Distance      float64
}

// NewResultRow flattens a MatchedPair for tabular output.
func NewResultRow(m MatchedPair) ResultRow {
	return ResultRow{
		ObservedID:    m.Observed.ID,
		ObservedName:  m.Observed.Name,
		ObservedX:     m.Observed.X,
		ObservedY:     m.Observed.Y,
		ObservedRA:    m.Observed.Sky.Lon,
		ObservedDec:   m.Observed.Sky.Lat,
		ReferenceID:   m.Reference.ID,
		ReferenceName: m.Reference.Name,
		ReferenceRA:   m.Reference.Sky.Lon,
		ReferenceDec:  m.Reference.Sky.Lat,
		Distance:      m.Distance,
	}
}
