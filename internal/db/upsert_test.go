package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.TODO(), nil, UpsertConfig{
		Table:        "institutions",
		Columns:      []string{"institution_id", "name"},
		ConflictKeys: []string{"institution_id"},
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_NoColumns(t *testing.T) {
	_, err := BulkUpsert(context.TODO(), nil, UpsertConfig{
		Table:        "institutions",
		ConflictKeys: []string{"institution_id"},
	}, [][]any{{1, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	_, err := BulkUpsert(context.TODO(), nil, UpsertConfig{
		Table:   "institutions",
		Columns: []string{"institution_id", "name"},
	}, [][]any{{1, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestBulkUpsert_FullReplace(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"institution_id", "year", "admission_rate"}

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_student_years"}, cols).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "student_years"`).WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "student_years",
		Columns:      cols,
		ConflictKeys: []string{"institution_id", "year"},
	}, [][]any{{"00100200", 2021, 0.5}, {"00100300", 2021, nil}})
	assert.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_MergeExprs(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"institution_id", "name", "accrediting_agency"}

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_institutions"}, cols).WillReturnResult(1)
	mock.ExpectExec(`COALESCE\(EXCLUDED."accrediting_agency", t."accrediting_agency"\)`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "institutions",
		Columns:      cols,
		ConflictKeys: []string{"institution_id"},
		MergeExprs: map[string]string{
			"name":               CoalesceMerge("name"),
			"accrediting_agency": CoalesceMerge("accrediting_agency"),
		},
	}, [][]any{{"00100200", "Acme U", nil}})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDedupByKey(t *testing.T) {
	cols := []string{"institution_id", "year", "admission_rate"}
	keys := []string{"institution_id", "year"}

	rows := dedupByKey(cols, keys, [][]any{
		{"00100200", 2021, 0.4},
		{"00100300", 2021, 0.7},
		{"00100200", 2021, 0.5}, // same key: last occurrence wins
		{"00100200", 2020, 0.6}, // different year: distinct key
	})

	require.Len(t, rows, 3)
	assert.Equal(t, []any{"00100200", 2021, 0.5}, rows[0])
	assert.Equal(t, []any{"00100300", 2021, 0.7}, rows[1])
	assert.Equal(t, []any{"00100200", 2020, 0.6}, rows[2])
}

func TestBulkUpsert_DuplicateKeysCollapse(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"institution_id", "year", "admission_rate"}

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_student_years"}, cols).WillReturnResult(1)
	mock.ExpectExec(`INSERT INTO "student_years"`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "student_years",
		Columns:      cols,
		ConflictKeys: []string{"institution_id", "year"},
	}, [][]any{{"00100200", 2021, 0.4}, {"00100200", 2021, 0.5}})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCoalesceMerge(t *testing.T) {
	assert.Equal(t, `COALESCE(EXCLUDED."name", t."name")`, CoalesceMerge("name"))
}

func TestQuoteAndJoin(t *testing.T) {
	result := quoteAndJoin([]string{"institution_id", "year", "act_score"})
	assert.Equal(t, `"institution_id", "year", "act_score"`, result)
}
