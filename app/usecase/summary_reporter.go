package usecase

import (
	"context"
	"log/slog"
	"time"

	"jobtracker/internal/domain/entity"
	"jobtracker/internal/infrastructure/metrics"
)

type JobLister interface {
	List(ctx context.Context) []entity.Job
}

// SummaryReporter periodically publishes per-status counts as gauges.
type SummaryReporter struct {
	jobs     JobLister
	logger   *slog.Logger
	interval time.Duration

	// control
	stop    chan struct{}
	stopped chan struct{}
}

func NewSummaryReporter(jobs JobLister, interval time.Duration, logger *slog.Logger) *SummaryReporter {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &SummaryReporter{
		jobs:     jobs,
		logger:   logger,
		interval: interval,
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

func (r *SummaryReporter) Start(ctx context.Context) {
	go func() {
		defer close(r.stopped)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		r.logger.Info("SummaryReporter started", "interval", r.interval)
		r.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				r.logger.Info("SummaryReporter context canceled")
				return
			case <-r.stop:
				r.logger.Info("SummaryReporter stopped by Stop()")
				return
			case <-ticker.C:
				r.runOnce(ctx)
			}
		}
	}()
}

// Stop must be called at most once, after Start.
func (r *SummaryReporter) Stop() {
	close(r.stop)
	<-r.stopped
	r.logger.Info("SummaryReporter fully stopped")
}

func (r *SummaryReporter) runOnce(ctx context.Context) entity.SummaryCounts {
	counts := entity.Summarize(r.jobs.List(ctx))
	for _, st := range entity.Statuses {
		metrics.SetJobsByStatus(st.String(), counts.Count(st))
	}
	r.logger.Debug("summary published",
		"total", counts.Total,
		"rejection_rate", counts.RejectionRate(),
		"interview_rate", counts.InterviewRate(),
	)
	return counts
}
