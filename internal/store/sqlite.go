package store

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/deb-research/scorecard-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It backs fully
// local runs and the loader test suite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// One writer connection: avoids lock contention and keeps an in-memory
	// database from being split across pooled connections.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS institutions (
	institution_id     TEXT PRIMARY KEY,
	name               TEXT,
	accrediting_agency TEXT,
	control            INTEGER CHECK (control IN (1, 2, 3)),
	carnegie_class     INTEGER CHECK (carnegie_class <= 33),
	region             INTEGER CHECK (region BETWEEN 0 AND 9),
	cbsa_code          TEXT,
	csa_code           TEXT,
	county_fips        TEXT,
	city               TEXT,
	state              TEXT,
	address            TEXT,
	zip                INTEGER CHECK (zip > 0),
	latitude           REAL,
	longitude          REAL
);

CREATE TABLE IF NOT EXISTS student_years (
	institution_id   TEXT NOT NULL REFERENCES institutions (institution_id),
	year             INTEGER NOT NULL CHECK (year > 0),
	admission_rate   REAL CHECK (admission_rate BETWEEN 0 AND 1),
	enrollment       INTEGER CHECK (enrollment >= 0),
	act_score        REAL CHECK (act_score BETWEEN 1 AND 36),
	default_rate_2yr REAL CHECK (default_rate_2yr BETWEEN 0 AND 1),
	default_rate_3yr REAL CHECK (default_rate_3yr BETWEEN 0 AND 1),
	PRIMARY KEY (institution_id, year)
);

CREATE TABLE IF NOT EXISTS financial_years (
	institution_id          TEXT NOT NULL REFERENCES institutions (institution_id),
	year                    INTEGER NOT NULL CHECK (year > 0),
	tuition_in_state        INTEGER CHECK (tuition_in_state >= 0),
	tuition_out_state       INTEGER CHECK (tuition_out_state >= 0),
	tuition_program         INTEGER CHECK (tuition_program >= 0),
	net_tuition_per_student INTEGER CHECK (net_tuition_per_student >= 0),
	avg_faculty_salary      INTEGER CHECK (avg_faculty_salary >= 0),
	PRIMARY KEY (institution_id, year)
);

CREATE TABLE IF NOT EXISTS academic_years (
	institution_id        TEXT NOT NULL REFERENCES institutions (institution_id),
	year                  INTEGER NOT NULL CHECK (year > 0),
	predominant_degree    INTEGER CHECK (predominant_degree BETWEEN 0 AND 4),
	highest_degree        INTEGER CHECK (highest_degree BETWEEN 0 AND 4),
	student_faculty_ratio REAL CHECK (student_faculty_ratio BETWEEN 0 AND 1),
	PRIMARY KEY (institution_id, year)
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) InstitutionIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT institution_id FROM institutions")
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query institution ids")
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan institution id")
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

const sqliteMergeInstitution = `
INSERT INTO institutions (
	institution_id, name, accrediting_agency, control, carnegie_class,
	region, cbsa_code, csa_code, county_fips, city, state, address, zip,
	latitude, longitude
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (institution_id) DO UPDATE SET
	name               = COALESCE(excluded.name, name),
	accrediting_agency = COALESCE(excluded.accrediting_agency, accrediting_agency),
	control            = COALESCE(excluded.control, control),
	carnegie_class     = COALESCE(excluded.carnegie_class, carnegie_class),
	region             = COALESCE(excluded.region, region),
	cbsa_code          = COALESCE(excluded.cbsa_code, cbsa_code),
	csa_code           = COALESCE(excluded.csa_code, csa_code),
	county_fips        = COALESCE(excluded.county_fips, county_fips),
	city               = COALESCE(excluded.city, city),
	state              = COALESCE(excluded.state, state),
	address            = COALESCE(excluded.address, address),
	zip                = COALESCE(excluded.zip, zip),
	latitude           = COALESCE(excluded.latitude, latitude),
	longitude          = COALESCE(excluded.longitude, longitude)
`

func (s *SQLiteStore) MergeInstitutions(ctx context.Context, rows []model.Institution) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, sqliteMergeInstitution)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare institution merge")
	}
	defer stmt.Close()

	var applied int64
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx,
			r.InstitutionID, r.Name, r.AccreditingAgency, r.Control,
			r.CarnegieClass, r.Region, r.CBSACode, r.CSACode, r.CountyFIPS,
			r.City, r.State, r.Address, r.Zip, r.Latitude, r.Longitude,
		); err != nil {
			return applied, eris.Wrapf(err, "sqlite: merge institution %s", r.InstitutionID)
		}
		applied++
	}

	if err := tx.Commit(); err != nil {
		return applied, eris.Wrap(err, "sqlite: commit institution merge")
	}
	return applied, nil
}

func (s *SQLiteStore) UpdateAgencies(ctx context.Context, updates []model.AgencyUpdate) (int64, error) {
	if len(updates) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"UPDATE institutions SET accrediting_agency = ? WHERE institution_id = ?")
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare agency update")
	}
	defer stmt.Close()

	var updated int64
	for _, u := range updates {
		res, err := stmt.ExecContext(ctx, u.Agency, u.InstitutionID)
		if err != nil {
			return updated, eris.Wrapf(err, "sqlite: update agency for %s", u.InstitutionID)
		}
		n, _ := res.RowsAffected()
		updated += n
	}

	if err := tx.Commit(); err != nil {
		return updated, eris.Wrap(err, "sqlite: commit agency updates")
	}
	return updated, nil
}

func (s *SQLiteStore) ReplaceStudentYears(ctx context.Context, rows []model.StudentYear) (int64, error) {
	const q = `
		INSERT INTO student_years (
			institution_id, year, admission_rate, enrollment, act_score,
			default_rate_2yr, default_rate_3yr
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (institution_id, year) DO UPDATE SET
			admission_rate   = excluded.admission_rate,
			enrollment       = excluded.enrollment,
			act_score        = excluded.act_score,
			default_rate_2yr = excluded.default_rate_2yr,
			default_rate_3yr = excluded.default_rate_3yr
	`
	return s.replaceRows(ctx, q, len(rows), func(i int) []any {
		r := rows[i]
		return []any{
			r.InstitutionID, r.Year, r.AdmissionRate, r.Enrollment,
			r.ACTScore, r.DefaultRate2yr, r.DefaultRate3yr,
		}
	})
}

func (s *SQLiteStore) ReplaceFinancialYears(ctx context.Context, rows []model.FinancialYear) (int64, error) {
	const q = `
		INSERT INTO financial_years (
			institution_id, year, tuition_in_state, tuition_out_state,
			tuition_program, net_tuition_per_student, avg_faculty_salary
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (institution_id, year) DO UPDATE SET
			tuition_in_state        = excluded.tuition_in_state,
			tuition_out_state       = excluded.tuition_out_state,
			tuition_program         = excluded.tuition_program,
			net_tuition_per_student = excluded.net_tuition_per_student,
			avg_faculty_salary      = excluded.avg_faculty_salary
	`
	return s.replaceRows(ctx, q, len(rows), func(i int) []any {
		r := rows[i]
		return []any{
			r.InstitutionID, r.Year, r.TuitionInState, r.TuitionOutState,
			r.TuitionProgram, r.NetTuitionPerStudent, r.AvgFacultySalary,
		}
	})
}

func (s *SQLiteStore) ReplaceAcademicYears(ctx context.Context, rows []model.AcademicYear) (int64, error) {
	const q = `
		INSERT INTO academic_years (
			institution_id, year, predominant_degree, highest_degree,
			student_faculty_ratio
		) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (institution_id, year) DO UPDATE SET
			predominant_degree    = excluded.predominant_degree,
			highest_degree        = excluded.highest_degree,
			student_faculty_ratio = excluded.student_faculty_ratio
	`
	return s.replaceRows(ctx, q, len(rows), func(i int) []any {
		r := rows[i]
		return []any{
			r.InstitutionID, r.Year, r.PredominantDegree, r.HighestDegree,
			r.StudentFacultyRatio,
		}
	})
}

// replaceRows runs a full-replace upsert statement for each row inside one
// transaction.
func (s *SQLiteStore) replaceRows(ctx context.Context, query string, n int, args func(int) []any) (int64, error) {
	if n == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare replace")
	}
	defer stmt.Close()

	var applied int64
	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return applied, eris.Wrap(err, "sqlite: replace row")
		}
		applied++
	}

	if err := tx.Commit(); err != nil {
		return applied, eris.Wrap(err, "sqlite: commit replace")
	}
	return applied, nil
}
