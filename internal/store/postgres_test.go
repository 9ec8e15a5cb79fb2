package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/deb-research/scorecard-cli/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func strp(v string) *string { return &v }
func intp(v int) *int       { return &v }

func TestPostgres_InstitutionIDs(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT institution_id FROM institutions").
		WillReturnRows(pgxmock.NewRows([]string{"institution_id"}).
			AddRow("00100200").
			AddRow("00100300"))

	s := NewPostgresFromPool(mock)
	ids, err := s.InstitutionIDs(context.Background())
	require.NoError(t, err)

	assert.Len(t, ids, 2)
	_, ok := ids["00100200"]
	assert.True(t, ok)
	_, ok = ids["99999999"]
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_MergeInstitutions(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_institutions"}, institutionColumns).WillReturnResult(1)
	// Carry-forward merge expressions must reach the upsert statement.
	mock.ExpectExec(`COALESCE\(EXCLUDED."accrediting_agency", t."accrediting_agency"\)`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	s := NewPostgresFromPool(mock)
	n, err := s.MergeInstitutions(context.Background(), []model.Institution{
		{InstitutionID: "00100200", Name: strp("Acme U"), Control: intp(1)},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_MergeInstitutions_Empty(t *testing.T) {
	s := NewPostgresFromPool(nil)
	n, err := s.MergeInstitutions(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestPostgres_UpdateAgencies(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	eb := mock.ExpectBatch()
	eb.ExpectExec("UPDATE institutions SET accrediting_agency").
		WithArgs("SACSCOC", "00100200").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	eb.ExpectExec("UPDATE institutions SET accrediting_agency").
		WithArgs("HLC", "99999999").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0)) // unknown id updates nothing

	s := NewPostgresFromPool(mock)
	n, err := s.UpdateAgencies(context.Background(), []model.AgencyUpdate{
		{InstitutionID: "00100200", Agency: "SACSCOC"},
		{InstitutionID: "99999999", Agency: "HLC"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ReplaceStudentYears(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{
		"institution_id", "year", "admission_rate", "enrollment",
		"act_score", "default_rate_2yr", "default_rate_3yr",
	}

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_student_years"}, cols).WillReturnResult(1)
	// Year records replace wholesale: plain EXCLUDED expressions, no COALESCE.
	mock.ExpectExec(`"admission_rate" = EXCLUDED."admission_rate"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	s := NewPostgresFromPool(mock)
	n, err := s.ReplaceStudentYears(context.Background(), []model.StudentYear{
		{InstitutionID: "00100200", Year: 2021},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
