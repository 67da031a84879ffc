package domain

// Verdict is the classifier's structured judgment about a candidate.
type Verdict struct {
	IsValid bool
	// DuplicateOf is the id of the neighbor describing the same event, 0 when novel.
	DuplicateOf       int64
	AirportHangarName string
	CountryRegion     string
}

// Novel reports whether the verdict marks a new incident.
func (v Verdict) Novel() bool {
	return v.DuplicateOf == 0
}
