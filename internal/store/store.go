// Package store persists institutions and year records behind a single
// interface with Postgres and SQLite backends.
package store

import (
	"context"

	"github.com/deb-research/scorecard-cli/internal/model"
)

// Store is the persistence surface the loaders write through. Both merge
// policies are single atomic upserts per key: MergeInstitutions is
// field-wise carry-forward (a non-NULL incoming value overwrites, a NULL
// one never erases), the Replace* operations swap the whole row.
type Store interface {
	// Migrate applies the schema DDL.
	Migrate(ctx context.Context) error

	// InstitutionIDs returns the set of known institution identifiers,
	// used as the referential gate for annual records.
	InstitutionIDs(ctx context.Context) (map[string]struct{}, error)

	// MergeInstitutions upserts directory rows with the carry-forward
	// merge policy and reports rows applied.
	MergeInstitutions(ctx context.Context, rows []model.Institution) (int64, error)

	// UpdateAgencies applies accrediting-agency observations to existing
	// institutions only; it never inserts. Returns rows actually updated.
	UpdateAgencies(ctx context.Context, updates []model.AgencyUpdate) (int64, error)

	// Replace* upsert annual records with full-replace semantics:
	// a re-run of the same year overwrites the whole row.
	ReplaceStudentYears(ctx context.Context, rows []model.StudentYear) (int64, error)
	ReplaceFinancialYears(ctx context.Context, rows []model.FinancialYear) (int64, error)
	ReplaceAcademicYears(ctx context.Context, rows []model.AcademicYear) (int64, error)

	Close() error
}
