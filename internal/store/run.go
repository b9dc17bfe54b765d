package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

const (
	tableRuns       = "check_runs"
	tableRunFiles   = "run_files"
	tableViolations = "run_violations"

	// insertBatch bounds rows per multi-row INSERT to stay well below
	// SQLite's bound-parameter limit.
	insertBatch = 500
)

// runRepo implements RunRepo.
type runRepo struct {
	db   *sql.DB
	sqlb *entsql.DialectBuilder
}

func (r *runRepo) SaveRun(ctx context.Context, run *RunRecord) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	id := run.ID.String()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	q, args := r.sqlb.Insert(tableRuns).
		Columns("id", "root", "started_at", "duration_ms", "files", "failed_files", "violations").
		Values(id, run.Root, run.StartedAt.UnixMilli(), run.Duration.Milliseconds(),
			run.Files, run.FailedFiles, run.Violations).
		Query()
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("save run: %w", err)
	}

	for start := 0; start < len(run.Results); start += insertBatch {
		end := min(start+insertBatch, len(run.Results))
		ins := r.sqlb.Insert(tableRunFiles).Columns("run_id", "position", "file", "passed", "load_error")
		for i := start; i < end; i++ {
			f := run.Results[i]
			ins.Values(id, i, f.File, f.Passed, f.LoadError)
		}
		q, args := ins.Query()
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("save run files: %w", err)
		}
	}

	var rows [][]any
	for _, f := range run.Results {
		for _, v := range f.Violations {
			rows = append(rows, []any{id, f.File, v.Question, v.Answer, v.Rule, v.Message})
		}
	}
	for start := 0; start < len(rows); start += insertBatch {
		end := min(start+insertBatch, len(rows))
		ins := r.sqlb.Insert(tableViolations).Columns("run_id", "file", "question", "answer", "rule", "message")
		for _, row := range rows[start:end] {
			ins.Values(row...)
		}
		q, args := ins.Query()
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("save violations: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *runRepo) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	sel := r.runColumns().OrderBy(entsql.Desc("started_at"), entsql.Desc("id"))
	if limit > 0 {
		sel.Limit(limit)
	}
	q, args := sel.Query()

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

func (r *runRepo) GetRun(ctx context.Context, id uuid.UUID) (*RunRecord, error) {
	q, args := r.runColumns().Where(entsql.EQ("id", id.String())).Query()
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	if !rows.Next() {
		rows.Close()
		return nil, rows.Err()
	}
	run, err := scanRun(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	files, err := r.files(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Results = files
	return run, nil
}

func (r *runRepo) files(ctx context.Context, id uuid.UUID) ([]FileRecord, error) {
	q, args := r.sqlb.Select("file", "passed", "load_error").
		From(entsql.Table(tableRunFiles)).
		Where(entsql.EQ("run_id", id.String())).
		OrderBy("position").
		Query()
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query run files: %w", err)
	}
	defer rows.Close()

	var files []FileRecord
	index := make(map[string]int)
	for rows.Next() {
		var f FileRecord
		if err := rows.Scan(&f.File, &f.Passed, &f.LoadError); err != nil {
			return nil, fmt.Errorf("scan run file: %w", err)
		}
		index[f.File] = len(files)
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	q, args = r.sqlb.Select("file", "question", "answer", "rule", "message").
		From(entsql.Table(tableViolations)).
		Where(entsql.EQ("run_id", id.String())).
		OrderBy("id").
		Query()
	vrows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query violations: %w", err)
	}
	defer vrows.Close()

	for vrows.Next() {
		var file string
		var v ViolationRecord
		if err := vrows.Scan(&file, &v.Question, &v.Answer, &v.Rule, &v.Message); err != nil {
			return nil, fmt.Errorf("scan violation: %w", err)
		}
		i, ok := index[file]
		if !ok {
			continue
		}
		files[i].Violations = append(files[i].Violations, v)
	}
	return files, vrows.Err()
}

func (r *runRepo) PruneRuns(ctx context.Context, keep int) error {
	q, args := r.sqlb.Select("id").
		From(entsql.Table(tableRuns)).
		OrderBy(entsql.Desc("started_at"), entsql.Desc("id")).
		Query()
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("query run ids: %w", err)
	}
	var stale []any
	for i := 0; rows.Next(); i++ {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan run id: %w", err)
		}
		if i >= keep {
			stale = append(stale, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}

	q, args = r.sqlb.Delete(tableRuns).Where(entsql.In("id", stale...)).Query()
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("prune runs: %w", err)
	}
	return nil
}

func (r *runRepo) runColumns() *entsql.Selector {
	return r.sqlb.Select("id", "root", "started_at", "duration_ms", "files", "failed_files", "violations").
		From(entsql.Table(tableRuns))
}

func scanRun(rows *sql.Rows) (*RunRecord, error) {
	var (
		run        RunRecord
		id         string
		startedAt  int64
		durationMs int64
	)
	if err := rows.Scan(&id, &run.Root, &startedAt, &durationMs, &run.Files, &run.FailedFiles, &run.Violations); err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse run id %q: %w", id, err)
	}
	run.ID = parsed
	run.StartedAt = time.UnixMilli(startedAt).UTC()
	run.Duration = time.Duration(durationMs) * time.Millisecond
	return &run, nil
}
