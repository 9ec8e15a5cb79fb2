package loader

import (
	"context"
	"io"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/deb-research/scorecard-cli/internal/clean"
	"github.com/deb-research/scorecard-cli/internal/model"
	"github.com/deb-research/scorecard-cli/internal/schema"
	"github.com/deb-research/scorecard-cli/internal/source"
	"github.com/deb-research/scorecard-cli/internal/source/yearparse"
	"github.com/deb-research/scorecard-cli/internal/store"
)

// Scorecard loads one annual performance extract into the three year
// tables. The record year comes from the filename, never from a row; a
// filename that fails the grammar rejects the file before any row is read.
//
// Rows whose institution is not already present are discarded and counted
// as one rejection per entity-type attempted; the loader never creates
// placeholder institutions. Year records use full-replace semantics: a
// re-run of the same file overwrites each row wholesale.
type Scorecard struct {
	store     store.Store
	catalog   schema.Catalog
	grammar   yearparse.Grammar
	opts      source.Options
	batchSize int
}

// NewScorecard builds an annual-extract loader.
func NewScorecard(s store.Store, catalog schema.Catalog, grammar yearparse.Grammar, opts source.Options, batchSize int) *Scorecard {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Scorecard{store: s, catalog: catalog, grammar: grammar, opts: opts, batchSize: batchSize}
}

// Grammar exposes the filename grammar so the batch runner filters with
// the same rules the loader enforces.
func (l *Scorecard) Grammar() yearparse.Grammar {
	return l.grammar
}

// LoadFile resolves the year from the filename, then loads every row.
func (l *Scorecard) LoadFile(ctx context.Context, path string) (Report, error) {
	name := filepath.Base(path)

	year, err := l.grammar.Parse(path)
	if err != nil {
		return Report{File: name}, err
	}

	r, err := source.Open(path, l.opts)
	if err != nil {
		return Report{File: name, Year: year}, err
	}
	defer r.Close()

	return l.Load(ctx, r, name, year)
}

// Load ingests all rows from an open reader for a pre-resolved year.
func (l *Scorecard) Load(ctx context.Context, r *source.Reader, name string, year int) (Report, error) {
	log := zap.L().With(
		zap.String("component", "loader.scorecard"),
		zap.String("file", name),
		zap.Int("year", year),
	)
	rep := Report{File: name, Year: year}

	// The membership set is fetched once per file: every row's referential
	// check reads from it, and scorecard loads never add institutions.
	known, err := l.store.InstitutionIDs(ctx)
	if err != nil {
		return rep, err
	}

	var (
		students   = make([]model.StudentYear, 0, l.batchSize)
		financials = make([]model.FinancialYear, 0, l.batchSize)
		academics  = make([]model.AcademicYear, 0, l.batchSize)
		agencies   = make([]model.AgencyUpdate, 0, l.batchSize)
	)

	flush := func() error {
		n, err := l.store.ReplaceStudentYears(ctx, students)
		rep.Students.Applied += n
		if err != nil {
			return err
		}
		n, err = l.store.ReplaceFinancialYears(ctx, financials)
		rep.Financials.Applied += n
		if err != nil {
			return err
		}
		n, err = l.store.ReplaceAcademicYears(ctx, academics)
		rep.Academics.Applied += n
		if err != nil {
			return err
		}
		n, err = l.store.UpdateAgencies(ctx, agencies)
		rep.Agencies.Applied += n
		if err != nil {
			return err
		}
		students = students[:0]
		financials = financials[:0]
		academics = academics[:0]
		agencies = agencies[:0]
		return nil
	}

	idSpec := l.catalog.Institution.ID
	agencySpec := l.catalog.Institution.Agency

	for {
		row, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			rep.rejectYearRow()
			log.Warn("unreadable row", zap.Int("line", r.Line()), zap.Error(err))
			continue
		}

		id := clean.CodeValue(idSpec, r.Get(row, idSpec.Column))
		if id == nil {
			rep.rejectYearRow()
			log.Debug("row missing identifier", zap.Int("line", r.Line()))
			continue
		}
		if _, ok := known[*id]; !ok {
			rep.rejectYearRow()
			log.Debug("unknown institution", zap.String("institution_id", *id), zap.Int("line", r.Line()))
			continue
		}

		// A later-seen agency value wins; absent values never queue an
		// update, so they cannot erase an earlier one.
		if agency := clean.String(agencySpec, r.Get(row, agencySpec.Column)); agency != nil {
			agencies = append(agencies, model.AgencyUpdate{InstitutionID: *id, Agency: *agency})
		}

		students = append(students, l.studentYear(r, row, *id, year))
		financials = append(financials, l.financialYear(r, row, *id, year))
		academics = append(academics, l.academicYear(r, row, *id, year))

		if len(students) >= l.batchSize {
			if err := flush(); err != nil {
				return rep, err
			}
			log.Debug("progress", zap.Int64("students_applied", rep.Students.Applied))
		}
	}

	if err := flush(); err != nil {
		return rep, err
	}

	log.Info("annual load complete",
		zap.Int64("students", rep.Students.Applied),
		zap.Int64("financials", rep.Financials.Applied),
		zap.Int64("academics", rep.Academics.Applied),
		zap.Int64("agency_updates", rep.Agencies.Applied),
		zap.Int64("rejected_per_entity", rep.Students.Rejected),
	)
	return rep, nil
}

// rejectYearRow counts one rejection per entity-type attempted for a row
// that never reaches the year tables.
func (r *Report) rejectYearRow() {
	r.Students.Rejected++
	r.Financials.Rejected++
	r.Academics.Rejected++
}

func (l *Scorecard) studentYear(r *source.Reader, row []string, id string, year int) model.StudentYear {
	s := l.catalog.Student
	return model.StudentYear{
		InstitutionID:  id,
		Year:           year,
		AdmissionRate:  clean.FloatValue(s.AdmissionRate, r.Get(row, s.AdmissionRate.Column)),
		Enrollment:     clean.IntValue(s.Enrollment, r.Get(row, s.Enrollment.Column)),
		ACTScore:       clean.FloatValue(s.ACTScore, r.Get(row, s.ACTScore.Column)),
		DefaultRate2yr: clean.FloatValue(s.DefaultRate2yr, r.Get(row, s.DefaultRate2yr.Column)),
		DefaultRate3yr: clean.FloatValue(s.DefaultRate3yr, r.Get(row, s.DefaultRate3yr.Column)),
	}
}

func (l *Scorecard) financialYear(r *source.Reader, row []string, id string, year int) model.FinancialYear {
	f := l.catalog.Financial
	return model.FinancialYear{
		InstitutionID:        id,
		Year:                 year,
		TuitionInState:       clean.IntValue(f.TuitionInState, r.Get(row, f.TuitionInState.Column)),
		TuitionOutState:      clean.IntValue(f.TuitionOutState, r.Get(row, f.TuitionOutState.Column)),
		TuitionProgram:       clean.IntValue(f.TuitionProgram, r.Get(row, f.TuitionProgram.Column)),
		NetTuitionPerStudent: clean.IntValue(f.NetTuitionPerStudent, r.Get(row, f.NetTuitionPerStudent.Column)),
		AvgFacultySalary:     clean.IntValue(f.AvgFacultySalary, r.Get(row, f.AvgFacultySalary.Column)),
	}
}

func (l *Scorecard) academicYear(r *source.Reader, row []string, id string, year int) model.AcademicYear {
	a := l.catalog.Academic
	return model.AcademicYear{
		InstitutionID:       id,
		Year:                year,
		PredominantDegree:   clean.IntValue(a.PredominantDegree, r.Get(row, a.PredominantDegree.Column)),
		HighestDegree:       clean.IntValue(a.HighestDegree, r.Get(row, a.HighestDegree.Column)),
		StudentFacultyRatio: clean.FloatValue(a.StudentFacultyRatio, r.Get(row, a.StudentFacultyRatio.Column)),
	}
}
