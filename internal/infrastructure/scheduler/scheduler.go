package scheduler

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/paulcyi/cloudops-automation-toolkit/internal/domain"
)

type Cadence int

const (
	Minutes Cadence = iota
	Hours
	Days
)

func (c Cadence) String() string {
	switch c {
	case Minutes:
		return "minutes"
	case Hours:
		return "hours"
	case Days:
		return "days"
	}
	return "unknown"
}

// unit maps each cadence onto its base duration.
func (c Cadence) unit() time.Duration {
	switch c {
	case Minutes:
		return time.Minute
	case Hours:
		return time.Hour
	default:
		return 24 * time.Hour
	}
}

func ParseCadence(s string) (Cadence, error) {
	switch s {
	case "minutes":
		return Minutes, nil
	case "hours":
		return Hours, nil
	case "days":
		return Days, nil
	}
	return 0, &domain.SchedulerError{Reason: fmt.Sprintf("invalid cadence %q, want minutes, hours or days", s)}
}

type Logger interface {
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
}

// BackupExecutor runs one backup attempt chain for a scheduled job.
type BackupExecutor interface {
	PerformBackup(ctx context.Context, filePath string, retentionDays int) (domain.BackupRecord, error)
}

// Registry owns all scheduled backup jobs for its lifetime. Each job fires
// repeatedly per its cadence; a job never overlaps its own previous run.
type Registry struct {
	cron     *cron.Cron
	chain    cron.Chain
	executor BackupExecutor
	logger   Logger

	mu   sync.Mutex
	jobs map[string]cron.EntryID
}

func NewRegistry(executor BackupExecutor, logger Logger) *Registry {
	cl := cronLogger{logger: logger}
	return &Registry{
		cron:     cron.New(cron.WithLogger(cl)),
		chain:    cron.NewChain(cron.SkipIfStillRunning(cl)),
		executor: executor,
		logger:   logger,
		jobs:     make(map[string]cron.EntryID),
	}
}

// Schedule registers a recurring backup of filePath every interval cadence
// units and returns the job ID. The source file must exist at call time.
func (r *Registry) Schedule(filePath string, cadence Cadence, interval int, retentionDays int) (string, error) {
	if _, err := os.Stat(filePath); err != nil {
		return "", &domain.SchedulerError{Reason: "source file not found: " + filePath, Err: err}
	}
	if interval < 1 {
		return "", &domain.SchedulerError{Reason: fmt.Sprintf("interval must be at least 1, got %d", interval)}
	}
	switch cadence {
	case Minutes, Hours, Days:
	default:
		return "", &domain.SchedulerError{Reason: fmt.Sprintf("invalid cadence %d", cadence)}
	}

	// Nanosecond timestamp keeps IDs distinct across rapid successive calls
	// for the same path.
	jobID := fmt.Sprintf("%s_%d", filePath, time.Now().UnixNano())
	every := time.Duration(interval) * cadence.unit()

	entryID := r.cron.Schedule(cron.Every(every), r.chain.Then(cron.FuncJob(func() {
		r.logger.Infof("=== Triggered scheduled backup for %s ===", filePath)
		if _, err := r.executor.PerformBackup(context.Background(), filePath, retentionDays); err != nil {
			// The job stays scheduled; the failure is recorded in history.
			r.logger.Errorf("Scheduled backup failed for %s: %v", filePath, err)
		}
	})))

	r.mu.Lock()
	r.jobs[jobID] = entryID
	r.mu.Unlock()

	r.logger.Infof("Scheduled backup for %s: every %d %s (job %s)", filePath, interval, cadence, jobID)
	return jobID, nil
}

// Contains reports whether jobID is currently registered.
func (r *Registry) Contains(jobID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.jobs[jobID]
	return ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// CancelAll removes every scheduled job.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, entryID := range r.jobs {
		r.cron.Remove(entryID)
		delete(r.jobs, id)
	}
}

func (r *Registry) Start() {
	r.cron.Start()
}

// Stop halts scheduling and waits for an in-flight job to finish.
func (r *Registry) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

// cronLogger adapts our logger to cron's Logger interface.
type cronLogger struct {
	logger Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Infof("cron: %s %v", msg, keysAndValues)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorf("cron: %s: %v %v", msg, err, keysAndValues)
}
