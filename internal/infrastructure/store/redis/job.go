package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"jobtracker/internal/domain/entity"
	"jobtracker/internal/domain/repository"
	"jobtracker/internal/infrastructure/metrics"
)

const (
	DefaultKey = "jobtracker:jobs"

	backendName = "redis"
)

// RedisJobRepo stores the JSON job list under a single key.
type RedisJobRepo struct {
	client *redis.Client
	key    string
}

var _ repository.JobRepository = (*RedisJobRepo)(nil)

func NewRedisJobRepo(opts redis.Options, key string) *RedisJobRepo {
	if key == "" {
		key = DefaultKey
	}
	return &RedisJobRepo{
		client: redis.NewClient(&opts),
		key:    key,
	}
}

func (r *RedisJobRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisJobRepo) Close() error {
	return r.client.Close()
}

func (r *RedisJobRepo) Load(ctx context.Context) ([]entity.Job, error) {
	start := time.Now()
	metrics.IncRepoOp(backendName, "load")
	defer func() { metrics.ObserveRepoOp(backendName, "load", time.Since(start)) }()

	data, err := r.client.Get(ctx, r.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []entity.Job{}, nil
		}
		metrics.IncError("redis_job_repo", "read_error")
		return nil, fmt.Errorf("%w: get %s: %w", repository.ErrRead, r.key, err)
	}
	if strings.TrimSpace(data) == "" {
		return []entity.Job{}, nil
	}

	var jobs []entity.Job
	if err := json.Unmarshal([]byte(data), &jobs); err != nil {
		metrics.IncError("redis_job_repo", "parse_error")
		return nil, fmt.Errorf("%w: decode %s: %w", repository.ErrParse, r.key, err)
	}
	for _, j := range jobs {
		if err := j.Validate(); err != nil {
			metrics.IncError("redis_job_repo", "parse_error")
			return nil, fmt.Errorf("%w: %w", repository.ErrParse, err)
		}
	}
	if jobs == nil {
		jobs = []entity.Job{}
	}
	return jobs, nil
}

func (r *RedisJobRepo) Save(ctx context.Context, jobs []entity.Job) error {
	start := time.Now()
	metrics.IncRepoOp(backendName, "save")
	defer func() { metrics.ObserveRepoOp(backendName, "save", time.Since(start)) }()

	if jobs == nil {
		jobs = []entity.Job{}
	}
	data, err := json.Marshal(jobs)
	if err != nil {
		metrics.IncError("redis_job_repo", "encode_error")
		return fmt.Errorf("%w: encode jobs: %w", repository.ErrWrite, err)
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		metrics.IncError("redis_job_repo", "write_error")
		return fmt.Errorf("%w: set %s: %w", repository.ErrWrite, r.key, err)
	}
	return nil
}
