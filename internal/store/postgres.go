package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/deb-research/scorecard-cli/internal/db"
	"github.com/deb-research/scorecard-cli/internal/model"
	"github.com/deb-research/scorecard-cli/internal/schema"
)

// PostgresStore implements Store over a pgx connection pool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool and verifies
// connectivity. A failed connection is batch-fatal by design.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool; used by tests with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	return schema.Migrate(ctx, s.pool)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) InstitutionIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx, "SELECT institution_id FROM institutions")
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query institution ids")
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan institution id")
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

var institutionColumns = []string{
	"institution_id", "name", "accrediting_agency", "control",
	"carnegie_class", "region", "cbsa_code", "csa_code", "county_fips",
	"city", "state", "address", "zip", "latitude", "longitude",
}

func (s *PostgresStore) MergeInstitutions(ctx context.Context, rows []model.Institution) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	// Carry-forward merge: each field prefers the non-NULL incoming value.
	merge := make(map[string]string, len(institutionColumns)-1)
	for _, col := range institutionColumns[1:] {
		merge[col] = db.CoalesceMerge(col)
	}

	values := make([][]any, len(rows))
	for i, r := range rows {
		values[i] = []any{
			r.InstitutionID, r.Name, r.AccreditingAgency, r.Control,
			r.CarnegieClass, r.Region, r.CBSACode, r.CSACode, r.CountyFIPS,
			r.City, r.State, r.Address, r.Zip, r.Latitude, r.Longitude,
		}
	}

	return db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "institutions",
		Columns:      institutionColumns,
		ConflictKeys: []string{"institution_id"},
		MergeExprs:   merge,
	}, values)
}

func (s *PostgresStore) UpdateAgencies(ctx context.Context, updates []model.AgencyUpdate) (int64, error) {
	if len(updates) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, u := range updates {
		batch.Queue(
			"UPDATE institutions SET accrediting_agency = $1 WHERE institution_id = $2",
			u.Agency, u.InstitutionID,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	var updated int64
	for range updates {
		tag, err := br.Exec()
		if err != nil {
			return updated, eris.Wrap(err, "postgres: agency update")
		}
		updated += tag.RowsAffected()
	}
	return updated, nil
}

func (s *PostgresStore) ReplaceStudentYears(ctx context.Context, rows []model.StudentYear) (int64, error) {
	values := make([][]any, len(rows))
	for i, r := range rows {
		values[i] = []any{
			r.InstitutionID, r.Year, r.AdmissionRate, r.Enrollment,
			r.ACTScore, r.DefaultRate2yr, r.DefaultRate3yr,
		}
	}
	return db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table: "student_years",
		Columns: []string{
			"institution_id", "year", "admission_rate", "enrollment",
			"act_score", "default_rate_2yr", "default_rate_3yr",
		},
		ConflictKeys: []string{"institution_id", "year"},
	}, values)
}

func (s *PostgresStore) ReplaceFinancialYears(ctx context.Context, rows []model.FinancialYear) (int64, error) {
	values := make([][]any, len(rows))
	for i, r := range rows {
		values[i] = []any{
			r.InstitutionID, r.Year, r.TuitionInState, r.TuitionOutState,
			r.TuitionProgram, r.NetTuitionPerStudent, r.AvgFacultySalary,
		}
	}
	return db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table: "financial_years",
		Columns: []string{
			"institution_id", "year", "tuition_in_state", "tuition_out_state",
			"tuition_program", "net_tuition_per_student", "avg_faculty_salary",
		},
		ConflictKeys: []string{"institution_id", "year"},
	}, values)
}

func (s *PostgresStore) ReplaceAcademicYears(ctx context.Context, rows []model.AcademicYear) (int64, error) {
	values := make([][]any, len(rows))
	for i, r := range rows {
		values[i] = []any{
			r.InstitutionID, r.Year, r.PredominantDegree, r.HighestDegree,
			r.StudentFacultyRatio,
		}
	}
	return db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table: "academic_years",
		Columns: []string{
			"institution_id", "year", "predominant_degree", "highest_degree",
			"student_faculty_ratio",
		},
		ConflictKeys: []string{"institution_id", "year"},
	}, values)
}
