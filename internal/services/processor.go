package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dbpilot/dbpilot/internal/db/models"
	"github.com/dbpilot/dbpilot/internal/db/repos"
	"github.com/dbpilot/dbpilot/internal/logger"
)

// Processor defaults
const (
	// DefaultPollInterval is the default tick interval of the processor
	DefaultPollInterval = 5 * time.Second
	// DefaultBatchSize is the default number of pending jobs claimed per tick
	DefaultBatchSize = 5
)

// Processor is the single-flight poller that drains pending jobs. A tick
// claims up to batchSize pending jobs in creation order and runs them
// sequentially; overlapping ticks are skipped rather than queued. The guard
// is process-local only: running several instances still needs the store's
// conditional claim to avoid double execution.
type Processor struct {
	jobs     *repos.JobRepository
	clusters ClusterLifecycle
	events   EventRecorder
	table    map[models.JobType]HandlerFunc

	interval  time.Duration
	batchSize int

	mu       sync.Mutex
	draining bool
}

// ProcessorOptions tunes the processor
type ProcessorOptions struct {
	PollInterval time.Duration
	BatchSize    int
}

// NewProcessor creates a processor and validates that the dispatch table
// covers every known job type, so a new type without a handler fails at
// startup instead of at claim time
func NewProcessor(jobs *repos.JobRepository, clusters ClusterLifecycle, events EventRecorder, handlers *Handlers, opts ProcessorOptions) (*Processor, error) {
	table := handlers.Table()
	for _, t := range models.AllJobTypes {
		if _, ok := table[t]; !ok {
			return nil, fmt.Errorf("no handler registered for job type %s", t)
		}
	}

	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}

	return &Processor{
		jobs:      jobs,
		clusters:  clusters,
		events:    events,
		table:     table,
		interval:  opts.PollInterval,
		batchSize: opts.BatchSize,
	}, nil
}

// Run polls until the context is canceled
func (p *Processor) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	logger.Infof("Job processor started (interval=%s batch=%d)", p.interval, p.batchSize)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Job processor received shutdown signal, stopping...")
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// beginDrain flips the processor from idle to draining. Returns false when a
// drain is already running.
func (p *Processor) beginDrain() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.draining {
		return false
	}
	p.draining = true
	return true
}

func (p *Processor) endDrain() {
	p.mu.Lock()
	p.draining = false
	p.mu.Unlock()
}

// Tick drains one batch of pending jobs. Safe to call directly from tests.
func (p *Processor) Tick(ctx context.Context) {
	if !p.beginDrain() {
		logger.Debug("Processor tick skipped: previous drain still running")
		return
	}
	defer p.endDrain()

	jobs, err := p.jobs.FindPending(ctx, p.batchSize)
	if err != nil {
		logger.Errorf("Processor failed to fetch pending jobs: %v", err)
		return
	}
	if len(jobs) == 0 {
		return
	}

	logger.Debugf("Processor claimed %d pending jobs", len(jobs))

	// Jobs run sequentially within a tick so two operations never mutate the
	// same orchestration resources concurrently.
	for i := range jobs {
		p.processJob(ctx, &jobs[i])
	}
}

func (p *Processor) processJob(ctx context.Context, job *models.Job) {
	claimed, err := p.jobs.Start(ctx, job.ID)
	if err != nil {
		logger.Errorf("Failed to start job %d: %v", job.ID, err)
		return
	}
	if claimed == nil {
		logger.Debugf("Job %d was no longer pending, skipping", job.ID)
		return
	}

	// A panicking handler consumes an attempt like any other failure, so the
	// job is either re-pended or terminally failed instead of staying claimed.
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Recovered from panic while processing job %d: %v", claimed.ID, r)
			p.failJob(ctx, claimed, fmt.Errorf("panic: %v", r))
		}
	}()

	handler, ok := p.table[claimed.Type]
	if !ok {
		// Outside the closed type set. Retrying cannot help, but the retry
		// budget still applies uniformly.
		p.failJob(ctx, claimed, fmt.Errorf("unrecognized job type: %s", claimed.Type))
		return
	}

	result, err := handler(ctx, claimed)
	if err != nil {
		p.failJob(ctx, claimed, err)
		return
	}

	if _, err := p.jobs.Complete(ctx, claimed.ID, result); err != nil {
		logger.Errorf("Failed to mark job %d complete: %v", claimed.ID, err)
		return
	}
	logger.InfoWithFields("Job completed", map[string]interface{}{
		"job_id":   claimed.ID,
		"job_type": claimed.Type,
		"attempts": claimed.Attempts,
	})
}

// failJob records the failed attempt. When the retry budget is exhausted the
// failure is surfaced on the target cluster: its status flips to failed and
// an error event lands on its timeline.
func (p *Processor) failJob(ctx context.Context, job *models.Job, cause error) {
	logger.WarnWithFields("Job attempt failed", map[string]interface{}{
		"job_id":   job.ID,
		"job_type": job.Type,
		"attempts": job.Attempts,
		"error":    cause.Error(),
	})

	failed, err := p.jobs.Fail(ctx, job.ID, cause.Error(), true)
	if err != nil {
		logger.Errorf("Failed to record failure of job %d: %v", job.ID, err)
		return
	}
	if failed == nil || failed.Status != models.JobStatusFailed {
		return
	}
	if failed.TargetClusterID == 0 {
		return
	}

	if err := p.clusters.UpdateStatus(ctx, failed.TargetClusterID, models.ClusterStatusFailed, nil); err != nil {
		logger.Errorf("Failed to mark cluster %d failed: %v", failed.TargetClusterID, err)
	}
	event := &models.Event{
		OrgID:     failed.TargetOrgID,
		ProjectID: failed.TargetProjectID,
		ClusterID: failed.TargetClusterID,
		Type:      models.EventClusterOperationFailed,
		Severity:  models.SeverityError,
		Message:   fmt.Sprintf("%s failed after %d attempts: %s", failed.Type, failed.Attempts, cause.Error()),
	}
	if err := p.events.Record(ctx, event); err != nil {
		logger.Errorf("Failed to record failure event for cluster %d: %v", failed.TargetClusterID, err)
	}
}
