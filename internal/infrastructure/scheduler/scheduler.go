package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mpp365/backend/internal/infrastructure/telemetry"
)

// JobStatus represents the outcome of the last run of a job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// Job is background work run on a fixed interval
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// JobFunc adapts a function into a Job
type JobFunc struct {
	JobName string
	Fn      func(ctx context.Context) error
}

// Name implements Job
func (j JobFunc) Name() string { return j.JobName }

// Run implements Job
func (j JobFunc) Run(ctx context.Context) error { return j.Fn(ctx) }

// RunStatus records the last run of a job
type RunStatus struct {
	Status      JobStatus
	Runs        int
	Failures    int
	LastError   string
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	Enabled bool
	// JobTimeout bounds a single run
	JobTimeout time.Duration
	// RetryAttempts is how many times a failed run is retried before
	// waiting for the next tick
	RetryAttempts int
	RetryDelay    time.Duration
	// RunOnStart runs every job once when the scheduler starts
	RunOnStart bool
}

// DefaultSchedulerConfig returns default scheduler configuration
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:       true,
		JobTimeout:    5 * time.Minute,
		RetryAttempts: 2,
		RetryDelay:    30 * time.Second,
		RunOnStart:    true,
	}
}

type entry struct {
	job      Job
	interval time.Duration
	running  sync.Mutex // serializes runs of the same job

	mu     sync.Mutex
	status RunStatus
}

func (e *entry) update(fn func(*RunStatus)) {
	e.mu.Lock()
	fn(&e.status)
	e.mu.Unlock()
}

// Scheduler runs registered jobs on their intervals until stopped
type Scheduler struct {
	config SchedulerConfig
	logger *zap.Logger
	now    func() time.Time

	mu        sync.Mutex
	entries   map[string]*entry
	order     []string
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning bool
}

// NewScheduler creates a new scheduler instance
func NewScheduler(config SchedulerConfig, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		config:  config,
		logger:  logger,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

// Add registers job to run every interval. Jobs must be added before Start.
func (s *Scheduler) Add(job Job, interval time.Duration) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return ErrSchedulerRunning
	}
	if _, ok := s.entries[job.Name()]; ok {
		return ErrDuplicateJob
	}
	s.entries[job.Name()] = &entry{job: job, interval: interval, status: RunStatus{Status: JobStatusPending}}
	s.order = append(s.order, job.Name())
	return nil
}

// Start starts one loop per job
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Scheduler is disabled")
		return nil
	}
	s.isRunning = true
	entries := make([]*entry, 0, len(s.order))
	for _, name := range s.order {
		entries = append(entries, s.entries[name])
	}
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for _, e := range entries {
		s.wg.Add(1)
		go s.loop(ctx, e)
	}

	s.logger.Info("Scheduler started", zap.Int("jobs", len(entries)))
	return nil
}

// Stop cancels all loops and waits for running jobs to return
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

// RunNow runs the named job once, outside its schedule
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return ErrJobNotFound
	}
	return s.run(ctx, e)
}

// Status returns the last run of the named job
func (s *Scheduler) Status(name string) (RunStatus, bool) {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return RunStatus{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status, true
}

func (s *Scheduler) loop(ctx context.Context, e *entry) {
	defer s.wg.Done()

	if s.config.RunOnStart {
		_ = s.run(ctx, e)
	}

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.run(ctx, e)
		}
	}
}

// run executes the job with retries, recording the outcome
func (s *Scheduler) run(ctx context.Context, e *entry) error {
	e.running.Lock()
	defer e.running.Unlock()

	name := e.job.Name()
	started := s.now()
	e.update(func(st *RunStatus) {
		st.Status = JobStatusRunning
		st.StartedAt = &started
		st.Runs++
	})

	err := s.attempt(ctx, e.job)
retry:
	for attempt := 1; err != nil && attempt <= s.config.RetryAttempts; attempt++ {
		s.logger.Warn("Job failed, retrying",
			zap.String("job", name),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break retry
		case <-time.After(s.config.RetryDelay):
		}
		err = s.attempt(ctx, e.job)
	}

	completed := s.now()
	if err != nil {
		s.logger.Error("Job failed", zap.String("job", name), zap.Error(err))
		e.update(func(st *RunStatus) {
			st.CompletedAt = &completed
			st.Status = JobStatusFailed
			st.Failures++
			st.LastError = err.Error()
		})
		return err
	}
	e.update(func(st *RunStatus) {
		st.CompletedAt = &completed
		st.Status = JobStatusSuccess
		st.LastError = ""
	})
	s.logger.Debug("Job completed",
		zap.String("job", name),
		zap.Duration("duration", completed.Sub(started)),
	)
	return nil
}

func (s *Scheduler) attempt(ctx context.Context, job Job) error {
	if s.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.JobTimeout)
		defer cancel()
	}
	var err error
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels(job.Name(), nil), func(ctx context.Context) {
		err = job.Run(ctx)
	})
	return err
}
