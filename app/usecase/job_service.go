package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"jobtracker/internal/domain/entity"
	"jobtracker/internal/domain/repository"
	"jobtracker/internal/infrastructure/metrics"
)

type JobUsecase interface {
	Add(ctx context.Context, company, role, location, source string) ([]entity.Job, error)
	List(ctx context.Context) []entity.Job
	View(ctx context.Context, fn func([]entity.Job))
	Get(ctx context.Context, id uint32) (entity.Job, bool)
	Delete(ctx context.Context, position int) ([]entity.Job, error)
	DeleteByID(ctx context.Context, id uint32) ([]entity.Job, error)
	UpdateStatus(ctx context.Context, id uint32, status entity.JobStatus) ([]entity.Job, error)
	UpdateSource(ctx context.Context, id uint32, source entity.JobSource) ([]entity.Job, error)
	UpdateCompany(ctx context.Context, id uint32, company string) ([]entity.Job, error)
	UpdateTimestamp(ctx context.Context, id uint32, at time.Time) ([]entity.Job, error)
	Reload(ctx context.Context) ([]entity.Job, error)
	LastRefresh() time.Time
}

var _ JobUsecase = (*JobService)(nil)

// JobService owns the in-memory job list. Every mutation is written through
// to the repository; on a failed write the in-memory change is kept and the
// error is returned.
type JobService struct {
	mu          sync.Mutex
	jobs        []entity.Job
	lastRefresh time.Time
	listeners   []func([]entity.Job)

	jobsRepo repository.JobRepository
	clock    Clock
	logger   *slog.Logger
}

func NewJobService(
	ctx context.Context,
	jr repository.JobRepository,
	clock Clock,
	logger *slog.Logger,
) (*JobService, error) {
	if clock == nil {
		clock = &DefaultClock{}
	}
	s := &JobService{
		jobsRepo: jr,
		clock:    clock,
		logger:   logger,
	}
	jobs, err := jr.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}
	s.jobs = jobs
	s.lastRefresh = clock.Now()
	logger.Info("jobs loaded", "count", len(jobs))
	return s, nil
}

// OnChange registers fn to receive a snapshot after every mutation that was
// persisted. fn runs under the service lock and must not call back into it.
func (s *JobService) OnChange(fn func([]entity.Job)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *JobService) Add(ctx context.Context, company, role, location, source string) ([]entity.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := entity.NewJob(s.nextID(), company, role, location, source, normalizeTime(s.clock.Now()))
	s.jobs = append(s.jobs, job)

	metrics.IncJobsCreated()
	s.logger.Info("job added", "job_id", job.ID, "company", job.Company, "source", job.Source)
	return s.persist(ctx, "add")
}

func (s *JobService) List(_ context.Context) []entity.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// View calls fn with a snapshot while holding the service lock, so no
// mutation or change notification can interleave. fn must not call back into
// the service.
func (s *JobService) View(_ context.Context, fn func([]entity.Job)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.snapshot())
}

func (s *JobService) Get(_ context.Context, id uint32) (entity.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.jobs[i], true
	}
	return entity.Job{}, false
}

// Delete removes the job at position in the unfiltered list. An out of range
// position leaves the list untouched and is not persisted.
func (s *JobService) Delete(ctx context.Context, position int) ([]entity.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if position < 0 || position >= len(s.jobs) {
		s.logger.Debug("delete: index out of range", "index", position, "len", len(s.jobs))
		return s.snapshot(), nil
	}
	return s.removeAt(ctx, position)
}

func (s *JobService) DeleteByID(ctx context.Context, id uint32) ([]entity.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		s.logger.Debug("delete: job not found", "job_id", id)
		return s.snapshot(), nil
	}
	return s.removeAt(ctx, i)
}

func (s *JobService) UpdateStatus(ctx context.Context, id uint32, status entity.JobStatus) ([]entity.Job, error) {
	return s.update(ctx, id, "status", func(j *entity.Job) {
		if j.Status != status {
			metrics.IncJobStatusChange(j.Status.String(), status.String())
		}
		j.Status = status
	})
}

func (s *JobService) UpdateSource(ctx context.Context, id uint32, source entity.JobSource) ([]entity.Job, error) {
	return s.update(ctx, id, "source", func(j *entity.Job) {
		j.Source = source
	})
}

func (s *JobService) UpdateCompany(ctx context.Context, id uint32, company string) ([]entity.Job, error) {
	return s.update(ctx, id, "company", func(j *entity.Job) {
		j.Company = company
	})
}

func (s *JobService) UpdateTimestamp(ctx context.Context, id uint32, at time.Time) ([]entity.Job, error) {
	at = normalizeTime(at)
	return s.update(ctx, id, "timestamp", func(j *entity.Job) {
		j.Timestamp = at
	})
}

// Reload replaces the in-memory list with the repository contents. On error
// the current list is kept.
func (s *JobService) Reload(ctx context.Context) ([]entity.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs, err := s.jobsRepo.Load(ctx)
	if err != nil {
		metrics.IncError("job_service", "reload")
		s.logger.Error("reload failed", "err", err)
		return s.snapshot(), fmt.Errorf("reload jobs: %w", err)
	}
	s.jobs = jobs
	s.lastRefresh = s.clock.Now()
	s.logger.Info("jobs reloaded", "count", len(jobs))

	snap := s.snapshot()
	s.notify(snap)
	return snap, nil
}

func (s *JobService) LastRefresh() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRefresh
}

func (s *JobService) update(ctx context.Context, id uint32, op string, apply func(*entity.Job)) ([]entity.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		s.logger.Debug("update: job not found", "job_id", id, "op", op)
		return s.snapshot(), nil
	}
	apply(&s.jobs[i])
	s.logger.Info("job updated", "job_id", id, "op", op)
	return s.persist(ctx, op)
}

func (s *JobService) removeAt(ctx context.Context, i int) ([]entity.Job, error) {
	removed := s.jobs[i]
	s.jobs = slices.Delete(s.jobs, i, i+1)
	s.logger.Info("job deleted", "job_id", removed.ID, "company", removed.Company)
	return s.persist(ctx, "delete")
}

// persist must be called with mu held.
func (s *JobService) persist(ctx context.Context, op string) ([]entity.Job, error) {
	metrics.IncJobMutation(op)

	snap := s.snapshot()
	if err := s.jobsRepo.Save(ctx, snap); err != nil {
		metrics.IncError("job_service", "save")
		s.logger.Error("save failed", "op", op, "err", err)
		return snap, fmt.Errorf("save jobs after %s: %w", op, err)
	}
	s.notify(snap)
	return snap, nil
}

func (s *JobService) notify(snap []entity.Job) {
	for _, fn := range s.listeners {
		fn(slices.Clone(snap))
	}
}

// nextID is max+1 over the live list, so deleting the highest id frees it.
func (s *JobService) nextID() uint32 {
	var maxID uint32
	for _, j := range s.jobs {
		if j.ID > maxID {
			maxID = j.ID
		}
	}
	return maxID + 1
}

func (s *JobService) indexOf(id uint32) int {
	return slices.IndexFunc(s.jobs, func(j entity.Job) bool { return j.ID == id })
}

func (s *JobService) snapshot() []entity.Job {
	out := make([]entity.Job, len(s.jobs))
	copy(out, s.jobs)
	return out
}

func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
