// Package model defines the row types for the scorecard schema.
//
// Nullable fields are pointers: nil means the source value was suppressed,
// malformed, or out of range, and maps to SQL NULL.
package model

// Institution is the identity entity, keyed by InstitutionID. Created once
// on first ingestion; later loads update mutable fields but never recreate
// or delete it.
type Institution struct {
	InstitutionID     string
	Name              *string
	AccreditingAgency *string
	Control           *int
	CarnegieClass     *int
	Region            *int
	CBSACode          *string
	CSACode           *string
	CountyFIPS        *string
	City              *string
	State             *string
	Address           *string
	Zip               *int
	Latitude          *float64
	Longitude         *float64
}

// AgencyUpdate carries one accrediting-agency observation from an annual
// extract. Agency is always non-nil; rows with an absent agency are never
// turned into updates, so an absent incoming value can't erase a stored one.
type AgencyUpdate struct {
	InstitutionID string
	Agency        string
}
