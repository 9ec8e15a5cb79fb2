package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deb-research/scorecard-cli/internal/model"
)

func floatp(v float64) *float64 { return &v }

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func (s *SQLiteStore) institution(t *testing.T, id string) model.Institution {
	t.Helper()
	var inst model.Institution
	err := s.db.QueryRow(
		"SELECT institution_id, name, accrediting_agency, control, city FROM institutions WHERE institution_id = ?", id,
	).Scan(&inst.InstitutionID, &inst.Name, &inst.AccreditingAgency, &inst.Control, &inst.City)
	require.NoError(t, err)
	return inst
}

func TestSQLite_MergeInstitutions_CarryForward(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	n, err := s.MergeInstitutions(ctx, []model.Institution{
		{InstitutionID: "00100200", Name: strp("Acme U"), Control: intp(1), City: strp("Auburn")},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// Second load: Name present (overwrites), City absent (must survive).
	_, err = s.MergeInstitutions(ctx, []model.Institution{
		{InstitutionID: "00100200", Name: strp("Acme University"), Control: intp(1)},
	})
	require.NoError(t, err)

	got := s.institution(t, "00100200")
	require.NotNil(t, got.Name)
	assert.Equal(t, "Acme University", *got.Name)
	require.NotNil(t, got.City)
	assert.Equal(t, "Auburn", *got.City)
}

func TestSQLite_MergeInstitutions_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rows := []model.Institution{
		{InstitutionID: "00100200", Name: strp("Acme U"), Control: intp(1)},
	}
	for i := 0; i < 2; i++ {
		_, err := s.MergeInstitutions(ctx, rows)
		require.NoError(t, err)
	}

	var count int
	require.NoError(t, s.db.QueryRow("SELECT count(*) FROM institutions").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestSQLite_InstitutionIDs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.MergeInstitutions(ctx, []model.Institution{
		{InstitutionID: "00100200"},
		{InstitutionID: "00100300"},
	})
	require.NoError(t, err)

	ids, err := s.InstitutionIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
	_, ok := ids["00100200"]
	assert.True(t, ok)
	_, ok = ids["99999999"]
	assert.False(t, ok)
}

func TestSQLite_UpdateAgencies(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.MergeInstitutions(ctx, []model.Institution{
		{InstitutionID: "00100200", AccreditingAgency: strp("Agency One")},
	})
	require.NoError(t, err)

	// One known id, one unknown: only the known row updates, no insert.
	n, err := s.UpdateAgencies(ctx, []model.AgencyUpdate{
		{InstitutionID: "00100200", Agency: "Agency Two"},
		{InstitutionID: "99999999", Agency: "Agency Three"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got := s.institution(t, "00100200")
	require.NotNil(t, got.AccreditingAgency)
	assert.Equal(t, "Agency Two", *got.AccreditingAgency)

	var count int
	require.NoError(t, s.db.QueryRow("SELECT count(*) FROM institutions").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestSQLite_ReplaceStudentYears(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.MergeInstitutions(ctx, []model.Institution{{InstitutionID: "00100200"}})
	require.NoError(t, err)

	_, err = s.ReplaceStudentYears(ctx, []model.StudentYear{
		{InstitutionID: "00100200", Year: 2021, AdmissionRate: floatp(0.5), ACTScore: floatp(31)},
	})
	require.NoError(t, err)

	// Re-run of the same year replaces the whole row: ACTScore absent now
	// means NULL, not the previous value.
	_, err = s.ReplaceStudentYears(ctx, []model.StudentYear{
		{InstitutionID: "00100200", Year: 2021, AdmissionRate: floatp(0.6)},
	})
	require.NoError(t, err)

	var rate *float64
	var act *float64
	require.NoError(t, s.db.QueryRow(
		"SELECT admission_rate, act_score FROM student_years WHERE institution_id = ? AND year = ?",
		"00100200", 2021,
	).Scan(&rate, &act))
	require.NotNil(t, rate)
	assert.Equal(t, 0.6, *rate)
	assert.Nil(t, act)

	var count int
	require.NoError(t, s.db.QueryRow("SELECT count(*) FROM student_years").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestSQLite_ReplaceFinancialAndAcademicYears(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.MergeInstitutions(ctx, []model.Institution{{InstitutionID: "00100200"}})
	require.NoError(t, err)

	n, err := s.ReplaceFinancialYears(ctx, []model.FinancialYear{
		{InstitutionID: "00100200", Year: 2021, TuitionInState: intp(9000)},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.ReplaceAcademicYears(ctx, []model.AcademicYear{
		{InstitutionID: "00100200", Year: 2021, PredominantDegree: intp(3), HighestDegree: intp(4)},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var tuition int
	require.NoError(t, s.db.QueryRow(
		"SELECT tuition_in_state FROM financial_years WHERE institution_id = ? AND year = ?",
		"00100200", 2021,
	).Scan(&tuition))
	assert.Equal(t, 9000, tuition)

	var highest int
	require.NoError(t, s.db.QueryRow(
		"SELECT highest_degree FROM academic_years WHERE institution_id = ? AND year = ?",
		"00100200", 2021,
	).Scan(&highest))
	assert.Equal(t, 4, highest)
}

func TestSQLite_EmptyBatches(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	n, err := s.MergeInstitutions(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = s.UpdateAgencies(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = s.ReplaceStudentYears(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}
