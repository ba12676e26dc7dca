// Package run keeps the registry of harvest runs: their lifecycle state in
// redis plus a pub/sub channel per run that carries progress snapshots out to
// whatever transport the UI uses.
package run

import (
	"context"
	"fmt"

	"harvester/internal/core/progress"
	rds "harvester/internal/platform/redis"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Run is the persisted state of one harvest run.
type Run struct {
	RunID      string             `json:"run_id"`
	Status     Status             `json:"status"`
	InputPath  string             `json:"input_path"`
	OutputPath string             `json:"output_path,omitempty"`
	Error      string             `json:"error,omitempty"`
	Progress   *progress.Snapshot `json:"progress,omitempty"`
}

type Service struct{ redis *rds.Service }

func NewService(redis *rds.Service) *Service { return &Service{redis: redis} }

func (s *Service) Get(ctx context.Context, runID string) (*Run, error) {
	var r Run
	if err := s.redis.CacheGet(ctx, key(runID), &r); err != nil {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	return &r, nil
}

func (s *Service) InitPending(ctx context.Context, runID, inputPath string) error {
	return s.store(ctx, Run{RunID: runID, Status: StatusPending, InputPath: inputPath})
}

func (s *Service) SetRunning(ctx context.Context, runID string) error {
	return s.update(ctx, runID, func(r *Run) { r.Status = StatusRunning })
}

func (s *Service) Complete(ctx context.Context, runID, outputPath string) error {
	return s.update(ctx, runID, func(r *Run) {
		r.Status = StatusCompleted
		r.OutputPath = outputPath
	})
}

// Cancelled records a cooperative stop. outputPath may still be set: a
// cancelled run aggregates whatever results exist.
func (s *Service) Cancelled(ctx context.Context, runID, outputPath string) error {
	return s.update(ctx, runID, func(r *Run) {
		r.Status = StatusCancelled
		r.OutputPath = outputPath
	})
}

func (s *Service) Fail(ctx context.Context, runID string, cause error) error {
	return s.update(ctx, runID, func(r *Run) {
		r.Status = StatusFailed
		if cause != nil {
			r.Error = cause.Error()
		}
	})
}

// PublishProgress stores the latest snapshot on the run record and fans it
// out on the run's channel. Both best effort; progress must never fail a run.
func (s *Service) PublishProgress(ctx context.Context, runID string, snap progress.Snapshot) {
	_ = s.update(ctx, runID, func(r *Run) { r.Progress = &snap })
	_ = s.redis.Publish(ctx, key(runID), snap)
}

func (s *Service) update(ctx context.Context, runID string, mutate func(*Run)) error {
	var r Run
	if err := s.redis.CacheGet(ctx, key(runID), &r); err != nil {
		r = Run{RunID: runID}
	}
	mutate(&r)
	return s.store(ctx, r)
}

func (s *Service) store(ctx context.Context, r Run) error {
	return s.redis.CacheSet(ctx, key(r.RunID), r, ttl(r.Status))
}

func key(id string) string { return "run:" + id }

func ttl(s Status) int {
	if s == StatusCompleted || s == StatusFailed || s == StatusCancelled {
		return 3600
	}
	return 600
}
