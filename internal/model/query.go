// Package model defines the core domain types for Keifu.
//
// Types use strong typing (UUIDs, time.Time, closed string enums) and avoid
// interface{} wherever possible. Everything a pipeline stage hands to the
// next stage lives here; stages themselves live in sibling packages.
package model

// Region is a canonical research region used for source routing.
type Region string

const (
	RegionNordic      Region = "nordic"
	RegionUKIreland   Region = "uk_ireland"
	RegionGermany     Region = "germany"
	RegionUSA         Region = "usa"
	RegionCanada      Region = "canada"
	RegionAustraliaNZ Region = "australia_nz"
)

// Valid reports whether r is a known region. The empty region means
// "no region inferred" and is valid everywhere a Region is optional.
func (r Region) Valid() bool {
	switch r {
	case RegionNordic, RegionUKIreland, RegionGermany, RegionUSA, RegionCanada, RegionAustraliaNZ:
		return true
	}
	return false
}

// YearRange is a year with a ± tolerance, e.g. 1880 ± 2.
type YearRange struct {
	Year      int `json:"year"`
	Tolerance int `json:"tolerance,omitempty"`
}

// IsZero reports whether the year is unset.
func (y YearRange) IsZero() bool { return y.Year == 0 }

// SearchQuery describes what the researcher is looking for.
// A surname is required unless strong identifiers (spouse or parents plus a
// birth year) are present; Validate enforces this.
type SearchQuery struct {
	Surname     string    `json:"surname,omitempty"`
	GivenName   string    `json:"given_name,omitempty"`
	BirthYear   YearRange `json:"birth_year,omitzero"`
	DeathYear   YearRange `json:"death_year,omitzero"`
	BirthPlace  string    `json:"birth_place,omitempty"`
	Places      []string  `json:"places,omitempty"`
	SpouseName  string    `json:"spouse_name,omitempty"`
	ParentNames []string  `json:"parent_names,omitempty"`
	RecordTypes []string  `json:"record_types,omitempty"`
	Exclusions  []string  `json:"exclusions,omitempty"`
	Region      Region    `json:"region,omitempty"` // explicit region, overrides inference
}

// HasStrongIdentifiers reports whether the query can proceed without a surname.
func (q SearchQuery) HasStrongIdentifiers() bool {
	return (q.SpouseName != "" || len(q.ParentNames) > 0) && !q.BirthYear.IsZero()
}
