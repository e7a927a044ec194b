package repository

import (
	"context"
	"errors"

	"jobtracker/internal/domain/entity"
)

// Persistence error kinds. Backends wrap both the kind and the cause so that
// callers can test with errors.Is.
var (
	ErrRead  = errors.New("persistence read error")
	ErrWrite = errors.New("persistence write error")
	ErrParse = errors.New("persistence parse error")
)

// JobRepository stores the whole record list as one document.
// Load returns an empty list when the document is missing or empty.
type JobRepository interface {
	Load(ctx context.Context) ([]entity.Job, error)
	Save(ctx context.Context, jobs []entity.Job) error
}
