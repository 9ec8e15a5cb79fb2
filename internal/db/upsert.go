package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// UpsertConfig defines the parameters for a bulk upsert operation.
type UpsertConfig struct {
	Table        string            // target table (e.g., "institutions")
	Columns      []string          // all columns being inserted
	ConflictKeys []string          // columns forming the unique constraint
	MergeExprs   map[string]string // per-column SET expression; default "EXCLUDED.col" (full replace)
}

// targetAlias names the target table inside the ON CONFLICT clause so merge
// expressions can reference the stored row.
const targetAlias = "t"

// CoalesceMerge returns the merge expression that keeps the stored value
// when the incoming one is NULL: later data wins field-by-field, but an
// absent incoming value never erases an existing one.
func CoalesceMerge(col string) string {
	q := pgx.Identifier{col}.Sanitize()
	return fmt.Sprintf("COALESCE(EXCLUDED.%s, %s.%s)", q, targetAlias, q)
}

// BulkUpsert performs a bulk upsert via a temp table and INSERT ... ON CONFLICT.
// 1. Creates a temp table with the same columns
// 2. COPY rows into the temp table
// 3. INSERT INTO target SELECT ... FROM temp ON CONFLICT (keys) DO UPDATE SET ...
// 4. Drops the temp table on commit
//
// The SET expression for each non-key column comes from cfg.MergeExprs,
// defaulting to EXCLUDED.col (full replace of the conflicting row).
func BulkUpsert(ctx context.Context, pool Pool, cfg UpsertConfig, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	if len(cfg.Columns) == 0 {
		return 0, eris.New("db: upsert: no columns specified")
	}
	if len(cfg.ConflictKeys) == 0 {
		return 0, eris.New("db: upsert: no conflict keys specified")
	}

	conflictSet := make(map[string]bool, len(cfg.ConflictKeys))
	for _, k := range cfg.ConflictKeys {
		conflictSet[k] = true
	}
	var updateCols []string
	for _, c := range cfg.Columns {
		if !conflictSet[c] {
			updateCols = append(updateCols, c)
		}
	}
	if len(updateCols) == 0 {
		return 0, eris.New("db: upsert: no non-key columns to update")
	}

	rows = dedupByKey(cfg.Columns, cfg.ConflictKeys, rows)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: upsert: begin tx")
	}
	defer tx.Rollback(ctx)

	tempTable := fmt.Sprintf("_tmp_upsert_%s", strings.ReplaceAll(cfg.Table, ".", "_"))

	createSQL := fmt.Sprintf(
		"CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		pgx.Identifier{tempTable}.Sanitize(),
		pgx.Identifier{cfg.Table}.Sanitize(),
	)
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: create temp table for %s", cfg.Table)
	}

	copySource := pgx.CopyFromRows(rows)
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{tempTable}, cfg.Columns, copySource); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: COPY into temp table for %s", cfg.Table)
	}

	colList := quoteAndJoin(cfg.Columns)
	conflictList := quoteAndJoin(cfg.ConflictKeys)

	setClauses := make([]string, 0, len(updateCols))
	for _, col := range updateCols {
		expr := cfg.MergeExprs[col]
		if expr == "" {
			expr = fmt.Sprintf("EXCLUDED.%s", pgx.Identifier{col}.Sanitize())
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = %s", pgx.Identifier{col}.Sanitize(), expr))
	}

	upsertSQL := fmt.Sprintf(
		"INSERT INTO %s AS %s (%s) SELECT %s FROM %s ON CONFLICT (%s) DO UPDATE SET %s",
		pgx.Identifier{cfg.Table}.Sanitize(),
		targetAlias,
		colList,
		colList,
		pgx.Identifier{tempTable}.Sanitize(),
		conflictList,
		strings.Join(setClauses, ", "),
	)

	tag, err := tx.Exec(ctx, upsertSQL)
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert: INSERT ON CONFLICT for %s", cfg.Table)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: upsert: commit tx")
	}

	return tag.RowsAffected(), nil
}

// dedupByKey collapses rows sharing a conflict key down to the last
// occurrence. Postgres rejects an INSERT ... ON CONFLICT DO UPDATE whose
// source touches the same target row twice, so intra-batch duplicates must
// not reach the upsert statement.
func dedupByKey(columns, conflictKeys []string, rows [][]any) [][]any {
	keyIdx := make([]int, 0, len(conflictKeys))
	for _, k := range conflictKeys {
		for i, c := range columns {
			if c == k {
				keyIdx = append(keyIdx, i)
				break
			}
		}
	}

	pos := make(map[string]int, len(rows))
	deduped := make([][]any, 0, len(rows))
	for _, row := range rows {
		var b strings.Builder
		for _, i := range keyIdx {
			fmt.Fprintf(&b, "%v\x1f", row[i])
		}
		key := b.String()
		if i, ok := pos[key]; ok {
			deduped[i] = row
			continue
		}
		pos[key] = len(deduped)
		deduped = append(deduped, row)
	}
	return deduped
}

// quoteAndJoin quotes each column name and joins with commas.
func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
