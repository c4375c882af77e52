package scheduler

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/driftwatch/driftwatch/pkg/types"
)

// DefaultGracePeriod bounds how long Shutdown waits for in-flight
// invocations before proceeding regardless of stragglers.
const DefaultGracePeriod = 5 * time.Second

// Errors for scheduler misuse.
var (
	// ErrDuplicateJob indicates a job name is already registered.
	ErrDuplicateJob = errors.New("job already scheduled")
	// ErrJobNotFound indicates no job is registered under the given name.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobAlreadyRunning indicates a job's prior invocation has not
	// finished.
	ErrJobAlreadyRunning = errors.New("job already running")
	// ErrInvalidInterval indicates a non-positive scheduling interval.
	ErrInvalidInterval = errors.New("interval must be positive")
)

// Action is a scheduled unit of work.
type Action func() error

// job holds one registered action and its execution state.
type job struct {
	name     string
	action   Action
	interval time.Duration
	stop     chan struct{}

	// inFlight gates concurrent execution: a tick or RunNow call that fails
	// the swap is skipped, never queued.
	inFlight atomic.Bool

	mu       sync.Mutex
	lastRun  time.Time
	lastErr  error
	runCount int64
}

// Scheduler runs named actions on fixed intervals. Construct it with New;
// the zero value is not usable.
type Scheduler struct {
	mu           sync.Mutex
	jobs         map[string]*job
	shuttingDown bool
	gracePeriod  time.Duration

	loops    sync.WaitGroup // per-job tick loops
	inflight sync.WaitGroup // invocations in progress, RunNow included
}

// Options configures a Scheduler.
type Options struct {
	// GracePeriod overrides the shutdown grace period. Zero or negative
	// means DefaultGracePeriod.
	GracePeriod time.Duration
}

// New creates a Scheduler.
func New(opts Options) *Scheduler {
	gracePeriod := opts.GracePeriod
	if gracePeriod <= 0 {
		gracePeriod = DefaultGracePeriod
	}

	return &Scheduler{
		jobs:        make(map[string]*job),
		gracePeriod: gracePeriod,
	}
}

// Schedule registers a repeating job under a unique name. When runImmediately
// is set, one extra invocation is triggered before the timer cadence starts,
// subject to the same in-flight rule. It fails with ErrDuplicateJob when the
// name is already registered.
func (s *Scheduler) Schedule(
	name string,
	action Action,
	interval time.Duration,
	runImmediately bool,
) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return ErrDuplicateJob
	}

	j := &job{
		name:     name,
		action:   action,
		interval: interval,
		stop:     make(chan struct{}),
	}
	s.jobs[name] = j

	s.loops.Add(1)

	go s.runLoop(j, runImmediately)

	logrus.WithFields(logrus.Fields{
		"job":      name,
		"interval": interval,
	}).Debug("Scheduled job")

	return nil
}

// runLoop drives one job's timer until the job is cancelled or the scheduler
// shuts down.
func (s *Scheduler) runLoop(j *job, runImmediately bool) {
	defer s.loops.Done()

	if runImmediately {
		s.tick(j)
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stop:
			return
		case <-ticker.C:
			s.tick(j)
		}
	}
}

// tick runs one timer-driven invocation. Failures are recorded on the job
// and never propagated to the timer machinery.
func (s *Scheduler) tick(j *job) {
	err := s.invoke(j)
	if errors.Is(err, ErrJobAlreadyRunning) {
		logrus.WithField("job", j.name).Debug("Skipped tick, previous invocation still running")
	}
}

// invoke runs the job's action once, honoring the shutdown flag and the
// in-flight guard. The guard always clears afterward, even on failure.
func (s *Scheduler) invoke(j *job) error {
	s.mu.Lock()

	if s.shuttingDown {
		s.mu.Unlock()

		return nil
	}

	if !j.inFlight.CompareAndSwap(false, true) {
		s.mu.Unlock()

		return ErrJobAlreadyRunning
	}

	s.inflight.Add(1)
	s.mu.Unlock()

	defer s.inflight.Done()
	defer j.inFlight.Store(false)

	err := j.action()

	j.mu.Lock()
	defer j.mu.Unlock()

	if err != nil {
		j.lastErr = err

		logrus.WithError(err).WithField("job", j.name).Debug("Job invocation failed")

		return err
	}

	j.lastRun = time.Now()
	j.runCount++
	j.lastErr = nil

	return nil
}

// RunNow triggers one invocation outside the timer cadence. Unlike a tick,
// the action's failure is returned to the caller. It fails with
// ErrJobNotFound for unregistered names and ErrJobAlreadyRunning when the
// job's in-flight guard is set.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()

	if !ok {
		return ErrJobNotFound
	}

	return s.invoke(j)
}

// Cancel stops the job's timer and deregisters it. An unknown name is a
// silent no-op.
func (s *Scheduler) Cancel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[name]
	if !ok {
		return
	}

	delete(s.jobs, name)
	close(j.stop)

	logrus.WithField("job", name).Debug("Cancelled job")
}

// JobStatus returns a point-in-time snapshot of one job. The second return
// value is false for unknown names.
func (s *Scheduler) JobStatus(name string) (types.JobStatus, bool) {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()

	if !ok {
		return types.JobStatus{}, false
	}

	return j.status(), true
}

// AllJobStatuses returns snapshots of every registered job, sorted by name.
func (s *Scheduler) AllJobStatuses() []types.JobStatus {
	s.mu.Lock()
	statuses := make([]types.JobStatus, 0, len(s.jobs))

	for _, j := range s.jobs {
		statuses = append(statuses, j.status())
	}
	s.mu.Unlock()

	sort.Slice(statuses, func(i, k int) bool {
		return statuses[i].Name < statuses[k].Name
	})

	return statuses
}

// status builds the snapshot for one job.
func (j *job) status() types.JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()

	lastErr := ""
	if j.lastErr != nil {
		lastErr = j.lastErr.Error()
	}

	return types.JobStatus{
		Name:      j.name,
		Interval:  j.interval,
		IsRunning: j.inFlight.Load(),
		LastRun:   j.lastRun,
		LastError: lastErr,
		RunCount:  j.runCount,
	}
}

// Shutdown suppresses all future tick executions, cancels every timer, and
// waits for in-flight invocations to finish, bounded by the grace period.
// It clears all job state and is safe to invoke multiple times and from a
// termination handler. Work already in progress is never interrupted.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	s.shuttingDown = true

	jobs := make([]*job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}

	s.jobs = make(map[string]*job)
	s.mu.Unlock()

	for _, j := range jobs {
		close(j.stop)
	}

	done := make(chan struct{})

	go func() {
		s.loops.Wait()
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		logrus.Debug("Scheduler stopped, all invocations finished")
	case <-time.After(s.gracePeriod):
		logrus.WithField("grace_period", s.gracePeriod).
			Warn("Timeout waiting for running jobs to finish, proceeding with shutdown")
	}
}
