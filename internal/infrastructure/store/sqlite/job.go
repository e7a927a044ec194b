package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"jobtracker/internal/domain/entity"
	"jobtracker/internal/domain/repository"
	"jobtracker/internal/infrastructure/metrics"
)

const backendName = "sqlite"

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	position INTEGER PRIMARY KEY,
	id INTEGER NOT NULL,
	company TEXT NOT NULL,
	role TEXT NOT NULL,
	location TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	source TEXT NOT NULL DEFAULT '',
	timestamp TEXT NOT NULL
);
`

// SQLiteJobRepo keeps one row per job. The position column preserves list
// order. Every save rewrites the table inside one transaction.
type SQLiteJobRepo struct {
	db *sql.DB
}

var _ repository.JobRepository = (*SQLiteJobRepo)(nil)

func Open(path string) (*SQLiteJobRepo, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteJobRepo{db: db}, nil
}

func (r *SQLiteJobRepo) Close() error { return r.db.Close() }

func (r *SQLiteJobRepo) Load(ctx context.Context) ([]entity.Job, error) {
	start := time.Now()
	metrics.IncRepoOp(backendName, "load")
	defer func() { metrics.ObserveRepoOp(backendName, "load", time.Since(start)) }()

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, company, role, location, status, source, timestamp FROM jobs ORDER BY position ASC`)
	if err != nil {
		metrics.IncError("sqlite_job_repo", "read_error")
		return nil, fmt.Errorf("%w: query jobs: %w", repository.ErrRead, err)
	}
	defer rows.Close()

	out := []entity.Job{}
	for rows.Next() {
		var (
			id                                         int64
			company, role, location, status, source, ts string
		)
		if err := rows.Scan(&id, &company, &role, &location, &status, &source, &ts); err != nil {
			metrics.IncError("sqlite_job_repo", "read_error")
			return nil, fmt.Errorf("%w: scan job: %w", repository.ErrRead, err)
		}
		job, err := toJob(id, company, role, location, status, source, ts)
		if err != nil {
			metrics.IncError("sqlite_job_repo", "parse_error")
			return nil, fmt.Errorf("%w: %w", repository.ErrParse, err)
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		metrics.IncError("sqlite_job_repo", "read_error")
		return nil, fmt.Errorf("%w: iterate jobs: %w", repository.ErrRead, err)
	}
	return out, nil
}

func (r *SQLiteJobRepo) Save(ctx context.Context, jobs []entity.Job) error {
	start := time.Now()
	metrics.IncRepoOp(backendName, "save")
	defer func() { metrics.ObserveRepoOp(backendName, "save", time.Since(start)) }()

	if err := r.save(ctx, jobs); err != nil {
		metrics.IncError("sqlite_job_repo", "write_error")
		return fmt.Errorf("%w: %w", repository.ErrWrite, err)
	}
	return nil
}

func (r *SQLiteJobRepo) save(ctx context.Context, jobs []entity.Job) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM jobs`); err != nil {
		return err
	}
	for i, j := range jobs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO jobs (position, id, company, role, location, status, source, timestamp)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			i,
			int64(j.ID),
			j.Company,
			j.Role,
			j.Location,
			string(j.Status),
			string(j.Source),
			j.Timestamp.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("insert job %d: %w", j.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func toJob(id int64, company, role, location, status, source, ts string) (entity.Job, error) {
	st, err := entity.ParseStatus(status)
	if err != nil {
		return entity.Job{}, fmt.Errorf("job %d: %w", id, err)
	}
	if id < 0 || id > int64(^uint32(0)) {
		return entity.Job{}, fmt.Errorf("job id %d out of range", id)
	}
	at, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return entity.Job{}, fmt.Errorf("job %d timestamp: %w", id, err)
	}
	var src entity.JobSource
	if source != "" {
		src = entity.ParseSource(source)
	}
	job := entity.Job{
		ID:        uint32(id),
		Company:   company,
		Role:      role,
		Location:  location,
		Status:    st,
		Source:    src,
		Timestamp: at.UTC(),
	}
	if err := job.Validate(); err != nil {
		return entity.Job{}, err
	}
	return job, nil
}
