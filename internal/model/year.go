package model

// StudentYear holds admissions and demographic metrics for one institution
// and year.
type StudentYear struct {
	InstitutionID  string
	Year           int
	AdmissionRate  *float64
	Enrollment     *int
	ACTScore       *float64
	DefaultRate2yr *float64
	DefaultRate3yr *float64
}

// FinancialYear holds pricing and compensation metrics for one institution
// and year.
type FinancialYear struct {
	InstitutionID        string
	Year                 int
	TuitionInState       *int
	TuitionOutState      *int
	TuitionProgram       *int
	NetTuitionPerStudent *int
	AvgFacultySalary     *int
}

// AcademicYear holds degree-level and staffing metrics for one institution
// and year.
type AcademicYear struct {
	InstitutionID       string
	Year                int
	PredominantDegree   *int
	HighestDegree       *int
	StudentFacultyRatio *float64
}
