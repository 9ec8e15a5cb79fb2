// Package schema declares the target relational schema: the embedded DDL
// and the per-field validation catalog the loaders apply before any insert.
package schema

import (
	"time"

	"github.com/deb-research/scorecard-cli/internal/clean"
)

// InstitutionFields maps the institutional directory columns.
type InstitutionFields struct {
	ID            clean.FieldSpec
	Name          clean.FieldSpec
	Agency        clean.FieldSpec
	Control       clean.FieldSpec
	CarnegieClass clean.FieldSpec
	Region        clean.FieldSpec
	CBSA          clean.FieldSpec
	CSA           clean.FieldSpec
	CountyFIPS    clean.FieldSpec
	City          clean.FieldSpec
	State         clean.FieldSpec
	Address       clean.FieldSpec
	Zip           clean.FieldSpec
	Latitude      clean.FieldSpec
	Longitude     clean.FieldSpec
}

// StudentFields maps the admissions/demographics subset of the annual extract.
type StudentFields struct {
	AdmissionRate  clean.FieldSpec
	Enrollment     clean.FieldSpec
	ACTScore       clean.FieldSpec
	DefaultRate2yr clean.FieldSpec
	DefaultRate3yr clean.FieldSpec
}

// FinancialFields maps the pricing/compensation subset of the annual extract.
type FinancialFields struct {
	TuitionInState       clean.FieldSpec
	TuitionOutState      clean.FieldSpec
	TuitionProgram       clean.FieldSpec
	NetTuitionPerStudent clean.FieldSpec
	AvgFacultySalary     clean.FieldSpec
}

// AcademicFields maps the degree-level subset of the annual extract.
type AcademicFields struct {
	PredominantDegree   clean.FieldSpec
	HighestDegree       clean.FieldSpec
	StudentFacultyRatio clean.FieldSpec
}

// Catalog is the immutable constraint set for the whole schema. It is built
// once and passed to the loaders by value so tests can substitute ranges or
// column names without touching package state.
type Catalog struct {
	Institution InstitutionFields
	Student     StudentFields
	Financial   FinancialFields
	Academic    AcademicFields
}

// IDLength is the fixed width of an institution identifier. Shorter numeric
// identifiers are zero-padded so the directory and annual extracts agree.
const IDLength = 8

// maxInt32 bounds open-ended non-negative integer columns.
const maxInt32 = float64(1<<31 - 1)

// DefaultCatalog returns the catalog for the IPEDS header file and the
// College Scorecard annual extract, with the ranges declared by the schema.
func DefaultCatalog() Catalog {
	return Catalog{
		Institution: InstitutionFields{
			ID:            clean.FieldSpec{Column: "UNITID", Kind: clean.Code, Length: IDLength},
			Name:          clean.FieldSpec{Column: "INSTNM", Kind: clean.Text},
			Agency:        clean.FieldSpec{Column: "ACCREDAGENCY", Kind: clean.Text},
			Control:       clean.FieldSpec{Column: "CONTROL", Kind: clean.Int, HasRange: true, Min: 1, Max: 3},
			CarnegieClass: clean.FieldSpec{Column: "C21BASIC", Kind: clean.Int, HasRange: true, Min: 0, Max: 33},
			Region:        clean.FieldSpec{Column: "OBEREG", Kind: clean.Int, HasRange: true, Min: 0, Max: 9},
			CBSA:          clean.FieldSpec{Column: "CBSA", Kind: clean.Code, Length: 5},
			CSA:           clean.FieldSpec{Column: "CSA", Kind: clean.Code, Length: 5},
			CountyFIPS:    clean.FieldSpec{Column: "COUNTYCD", Kind: clean.Code, Length: 5},
			City:          clean.FieldSpec{Column: "CITY", Kind: clean.Text},
			State:         clean.FieldSpec{Column: "STABBR", Kind: clean.Code, Length: 2},
			Address:       clean.FieldSpec{Column: "ADDR", Kind: clean.Text},
			Zip:           clean.FieldSpec{Column: "ZIP", Kind: clean.Int, HasRange: true, Min: 1, Max: maxInt32},
			Latitude:      clean.FieldSpec{Column: "LATITUDE", Kind: clean.Float, HasRange: true, Min: -90, Max: 90},
			Longitude:     clean.FieldSpec{Column: "LONGITUD", Kind: clean.Float, HasRange: true, Min: -180, Max: 180},
		},
		Student: StudentFields{
			AdmissionRate:  clean.FieldSpec{Column: "ADM_RATE", Kind: clean.Float, HasRange: true, Min: 0, Max: 1},
			Enrollment:     clean.FieldSpec{Column: "UGDS", Kind: clean.Int, HasRange: true, Min: 0, Max: maxInt32},
			ACTScore:       clean.FieldSpec{Column: "ACTCMMID", Kind: clean.Float, HasRange: true, Min: 1, Max: 36},
			DefaultRate2yr: clean.FieldSpec{Column: "CDR2", Kind: clean.Float, HasRange: true, Min: 0, Max: 1},
			DefaultRate3yr: clean.FieldSpec{Column: "CDR3", Kind: clean.Float, HasRange: true, Min: 0, Max: 1},
		},
		Financial: FinancialFields{
			TuitionInState:       clean.FieldSpec{Column: "TUITIONFEE_IN", Kind: clean.Int, HasRange: true, Min: 0, Max: maxInt32},
			TuitionOutState:      clean.FieldSpec{Column: "TUITIONFEE_OUT", Kind: clean.Int, HasRange: true, Min: 0, Max: maxInt32},
			TuitionProgram:       clean.FieldSpec{Column: "TUITIONFEE_PROG", Kind: clean.Int, HasRange: true, Min: 0, Max: maxInt32},
			NetTuitionPerStudent: clean.FieldSpec{Column: "TUITFTE", Kind: clean.Int, HasRange: true, Min: 0, Max: maxInt32},
			AvgFacultySalary:     clean.FieldSpec{Column: "AVGFACSAL", Kind: clean.Int, HasRange: true, Min: 0, Max: maxInt32},
		},
		Academic: AcademicFields{
			PredominantDegree:   clean.FieldSpec{Column: "PREDDEG", Kind: clean.Int, HasRange: true, Min: 0, Max: 4},
			HighestDegree:       clean.FieldSpec{Column: "HIGHDEG", Kind: clean.Int, HasRange: true, Min: 0, Max: 4},
			StudentFacultyRatio: clean.FieldSpec{Column: "STUFACR", Kind: clean.Float, HasRange: true, Min: 0, Max: 1},
		},
	}
}

// ValidYear reports whether a resolved year is a plausible record year:
// after the 1900 floor and no later than the current calendar year.
func ValidYear(year int, now time.Time) bool {
	return year > 1900 && year <= now.Year()
}
