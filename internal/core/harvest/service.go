package harvest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"harvester/internal/config"
	"harvester/internal/core/artifact"
	"harvester/internal/core/progress"
	"harvester/internal/core/table"
	"harvester/internal/logger"
	"harvester/internal/platform/browser"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// PageExtractor is the hosted AI capability: given rendered HTML, return
// structured JSON text or fail.
type PageExtractor interface {
	ExtractPageData(ctx context.Context, html string) (string, error)
}

// RunRegistry records run lifecycle transitions and progress snapshots.
// Satisfied by run.Service.
type RunRegistry interface {
	InitPending(ctx context.Context, runID, inputPath string) error
	SetRunning(ctx context.Context, runID string) error
	Complete(ctx context.Context, runID, outputPath string) error
	Cancelled(ctx context.Context, runID, outputPath string) error
	Fail(ctx context.Context, runID string, cause error) error
	PublishProgress(ctx context.Context, runID string, snap progress.Snapshot)
}

// TaskEnqueuer queues a run for background execution. Satisfied by
// tasks.Client.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, queue string, maxRetries int) error
}

// BrowserFactory starts the browser capability for one run. A launch failure
// is fatal to the whole run.
type BrowserFactory func() (browser.Browser, error)

// Service is the harvesting orchestrator. It owns the single-active-run
// invariant; everything per-run lives in a session local to execute.
type Service struct {
	log        *logger.Logger
	cfg        config.Config
	runs       RunRegistry
	tasks      TaskEnqueuer
	llm        PageExtractor
	newBrowser BrowserFactory

	mu     sync.Mutex
	active *session
}

// session is the claim on the single run slot. Start creates it before the
// run is enqueued so a second Start is rejected while the first is still
// queued; the worker fills in cancel when it picks the run up.
type session struct {
	runID   string
	stopped bool
	cancel  context.CancelFunc
}

func NewService(cfg config.Config, runs RunRegistry, tasks TaskEnqueuer, llm PageExtractor, newBrowser BrowserFactory) *Service {
	return &Service{
		log:        logger.New("HarvestService"),
		cfg:        cfg,
		runs:       runs,
		tasks:      tasks,
		llm:        llm,
		newBrowser: newBrowser,
	}
}

// Start validates the request, claims the run slot, registers a pending run
// and queues it for the worker. Returns ErrAlreadyRunning while any run is
// queued or executing; runs are never queued behind each other.
func (s *Service) Start(ctx context.Context, rc RunConfig) (string, error) {
	runID := uuid.NewString()

	s.mu.Lock()
	if s.active != nil {
		s.mu.Unlock()
		return "", ErrAlreadyRunning
	}
	s.active = &session{runID: runID}
	s.mu.Unlock()

	release := func() {
		s.mu.Lock()
		if s.active != nil && s.active.runID == runID {
			s.active = nil
		}
		s.mu.Unlock()
	}

	rc = s.applyDefaults(rc)
	if rc.InputPath == "" {
		release()
		return "", fmt.Errorf("input_path is required")
	}
	if _, err := os.Stat(rc.InputPath); err != nil {
		release()
		return "", fmt.Errorf("input file unreadable: %w", err)
	}

	if err := s.runs.InitPending(ctx, runID, rc.InputPath); err != nil {
		release()
		return "", err
	}
	payload, _ := json.Marshal(Payload{RunID: runID, Request: rc})
	task := asynq.NewTask(TaskTypeHarvest, payload)
	if err := s.tasks.Enqueue(task, "default", s.cfg.TaskMaxRetries); err != nil {
		release()
		return "", err
	}
	s.log.LogInfof("queued harvest run %s for %s", runID, rc.InputPath)
	return runID, nil
}

// Stop requests cooperative cancellation of the active run. A run that is
// still queued is marked stopped and drains without executing; an executing
// run finishes its in-flight URL and aggregates what it has. Stopping when
// nothing matches is a no-op and reports as such.
func (s *Service) Stop(runID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil || s.active.runID != runID {
		return false
	}
	s.active.stopped = true
	if s.active.cancel != nil {
		s.active.cancel()
	}
	s.log.LogInfof("cancellation requested for run %s", runID)
	return true
}

// HandleTask is the asynq entry point for queued runs.
func (s *Service) HandleTask(ctx context.Context, task *asynq.Task) error {
	var p Payload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return err
	}
	return s.execute(ctx, p.RunID, p.Request)
}

func (s *Service) applyDefaults(rc RunConfig) RunConfig {
	if rc.OutputDir == "" {
		rc.OutputDir = s.cfg.OutputDir
	}
	if rc.ImageSubFolder == "" {
		rc.ImageSubFolder = s.cfg.ImageSubFolder
	}
	if rc.Concurrency < 1 {
		rc.Concurrency = s.cfg.Concurrency
	}
	if rc.Concurrency < 1 {
		rc.Concurrency = 1
	}
	return rc
}

// execute runs one harvest end to end. Fatal-to-run failures (unreadable
// input, unwritable output, browser launch) fail the run record; everything
// past that point always ends in an output table, even after cancellation.
func (s *Service) execute(ctx context.Context, runID string, rc RunConfig) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	sess := s.active
	switch {
	case sess == nil:
		// queued before a restart; the claim from Start is gone
		sess = &session{runID: runID}
		s.active = sess
	case sess.runID != runID:
		s.mu.Unlock()
		return fmt.Errorf("run %s rejected: another run is active", runID)
	}
	stopped := sess.stopped
	sess.cancel = cancel
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		if s.active == sess {
			s.active = nil
		}
		s.mu.Unlock()
	}()

	if stopped {
		s.log.LogInfof("run %s was stopped before it started", runID)
		_ = s.runs.Cancelled(ctx, runID, "")
		return nil
	}

	_ = s.runs.SetRunning(ctx, runID)

	fail := func(err error) error {
		s.log.LogError("harvest run failed", err)
		_ = s.runs.Fail(ctx, runID, err)
		return err
	}

	input, err := table.ReadCSV(rc.InputPath)
	if err != nil {
		return fail(err)
	}
	items := table.Dedupe(input)

	store, err := artifact.New(artifact.Options{
		OutputDir:          rc.OutputDir,
		SubFolder:          rc.ImageSubFolder,
		SupabaseURL:        s.cfg.SupabaseURL,
		SupabaseServiceKey: s.cfg.SupabaseServiceKey,
		SupabaseBucket:     s.cfg.SupabaseBucket,
	})
	if err != nil {
		return fail(err)
	}

	rep := progress.New(s.log, len(items), func(snap progress.Snapshot) {
		s.runs.PublishProgress(ctx, runID, snap)
	})
	rep.Infof("harvesting %d unique URLs from %d rows", len(items), len(input.Rows))

	results := make(map[string]*ScrapeResult)
	if len(items) > 0 {
		b, err := s.newBrowser()
		if err != nil {
			return fail(fmt.Errorf("browser capability failed to start: %w", err))
		}
		defer b.Close()
		results = s.runPool(runCtx, b, items, rc, store, rep)
	}

	cancelled := runCtx.Err() != nil && ctx.Err() == nil
	if cancelled {
		rep.SetStatus("Cancelling")
		rep.Infof("run cancelled after %d of %d URLs", len(results), len(items))
	}

	out := s.aggregate(input, results)
	outputPath := filepath.Join(rc.OutputDir, "results.csv")
	if err := out.WriteCSV(outputPath); err != nil {
		return fail(err)
	}

	if cancelled {
		rep.SetStatus("Cancelled")
		_ = s.runs.Cancelled(ctx, runID, outputPath)
	} else {
		rep.SetStatus("Completed")
		_ = s.runs.Complete(ctx, runID, outputPath)
	}
	s.log.LogInfof("harvest run %s wrote %s", runID, outputPath)
	return nil
}
