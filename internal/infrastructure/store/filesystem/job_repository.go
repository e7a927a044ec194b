package filesystem

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"jobtracker/internal/domain/entity"
	"jobtracker/internal/domain/repository"
	"jobtracker/internal/infrastructure/metrics"
)

const DefaultFileName = "jobtrack.json"

const backendName = "file"

// JobRepository keeps the job list as one pretty-printed JSON array.
type JobRepository struct {
	path string
}

var _ repository.JobRepository = (*JobRepository)(nil)

func NewJobRepository(path string) (*JobRepository, error) {
	if path == "" {
		path = DefaultFileName
	}
	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		if mkErr := os.MkdirAll(dir, 0755); mkErr != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, mkErr)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to check directory %s: %w", dir, err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("path %s exists but is not a directory", dir)
	}

	return &JobRepository{path: path}, nil
}

func (r *JobRepository) Path() string {
	return r.path
}

func (r *JobRepository) Load(ctx context.Context) ([]entity.Job, error) {
	start := time.Now()
	metrics.IncRepoOp(backendName, "load")
	defer func() { metrics.ObserveRepoOp(backendName, "load", time.Since(start)) }()

	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []entity.Job{}, nil
		}
		metrics.IncError("file_repo", "read_error")
		return nil, fmt.Errorf("%w: read %s: %w", repository.ErrRead, r.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []entity.Job{}, nil
	}

	var jobs []entity.Job
	if err := json.Unmarshal(data, &jobs); err != nil {
		metrics.IncError("file_repo", "parse_error")
		return nil, fmt.Errorf("%w: decode %s: %w", repository.ErrParse, r.path, err)
	}
	for _, j := range jobs {
		if err := j.Validate(); err != nil {
			metrics.IncError("file_repo", "parse_error")
			return nil, fmt.Errorf("%w: %w", repository.ErrParse, err)
		}
	}
	if jobs == nil {
		jobs = []entity.Job{}
	}
	return jobs, nil
}

// Save replaces the whole document. The new content is written to a
// temporary file in the same directory and renamed over the old one.
func (r *JobRepository) Save(ctx context.Context, jobs []entity.Job) error {
	start := time.Now()
	metrics.IncRepoOp(backendName, "save")
	defer func() { metrics.ObserveRepoOp(backendName, "save", time.Since(start)) }()

	if jobs == nil {
		jobs = []entity.Job{}
	}
	data, err := json.MarshalIndent(jobs, "", "  ")
	if err != nil {
		metrics.IncError("file_repo", "encode_error")
		return fmt.Errorf("%w: encode jobs: %w", repository.ErrWrite, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".*.tmp")
	if err != nil {
		metrics.IncError("file_repo", "write_error")
		return fmt.Errorf("%w: create temp file: %w", repository.ErrWrite, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		metrics.IncError("file_repo", "write_error")
		return fmt.Errorf("%w: write %s: %w", repository.ErrWrite, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		metrics.IncError("file_repo", "write_error")
		return fmt.Errorf("%w: close %s: %w", repository.ErrWrite, tmpName, err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		metrics.IncError("file_repo", "write_error")
		return fmt.Errorf("%w: replace %s: %w", repository.ErrWrite, r.path, err)
	}
	return nil
}
