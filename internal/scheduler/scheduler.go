package scheduler

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"

	"github.com/i474232898/weather-forecast-worker/internal/store"
	"github.com/i474232898/weather-forecast-worker/internal/weather"
)

const (
	// HistoryKey is the store key cycle records are kept under.
	HistoryKey = "weather-forecast"

	periodicTag = "weather-forecast"
	retryTag    = "weather-forecast-retry"
)

// ErrCycleInProgress is returned by RunNow while another cycle is running.
var ErrCycleInProgress = errors.New("a forecast cycle is already running")

// Trigger names what started a cycle.
type Trigger string

const (
	TriggerPeriodic Trigger = "periodic"
	TriggerRetry    Trigger = "retry"
	TriggerManual   Trigger = "manual"
)

// CycleRunner runs a single forecast cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) weather.Outcome
}

// CycleRecord describes one finished cycle.
type CycleRecord struct {
	ID           string          `json:"id"`
	Trigger      Trigger         `json:"trigger"`
	Outcome      weather.Outcome `json:"outcome"`
	StartedAt    time.Time       `json:"startedAt"`
	FinishedAt   time.Time       `json:"finishedAt"`
	RetryAttempt int             `json:"retryAttempt"`
}

func (r CycleRecord) Time() time.Time {
	return r.StartedAt
}

// Options configures cadence, per-cycle timeout and retry backoff.
type Options struct {
	Interval       time.Duration
	Cron           string
	CycleTimeout   time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Scheduler periodically runs forecast cycles and reacts to their outcome.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    CycleRunner
	history   *store.MemoryStore[CycleRecord]
	opts      Options

	running sync.Mutex

	mu           sync.Mutex
	retryAttempt int
}

// New creates a new Scheduler.
func New(runner CycleRunner, history *store.MemoryStore[CycleRecord], opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = 12 * time.Hour
	}
	if opts.CycleTimeout <= 0 {
		opts.CycleTimeout = time.Minute
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 30 * time.Second
	}
	if opts.MaxBackoff < opts.InitialBackoff {
		opts.MaxBackoff = opts.InitialBackoff
	}

	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	return &Scheduler{
		scheduler: s,
		runner:    runner,
		history:   history,
		opts:      opts,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	var job *gocron.Scheduler
	if s.opts.Cron != "" {
		job = s.scheduler.Cron(s.opts.Cron)
	} else {
		job = s.scheduler.Every(s.opts.Interval)
	}

	_, err := job.Tag(periodicTag).Do(func() {
		log.Println("scheduler: running weather forecast job")
		s.runScheduled(TriggerPeriodic)
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// RunNow runs a cycle immediately, unless one is already running.
func (s *Scheduler) RunNow(ctx context.Context) (CycleRecord, error) {
	if !s.running.TryLock() {
		return CycleRecord{}, ErrCycleInProgress
	}
	defer s.running.Unlock()

	return s.run(ctx, TriggerManual), nil
}

// Latest returns the most recent cycle record.
func (s *Scheduler) Latest() (CycleRecord, error) {
	return s.history.Latest(HistoryKey)
}

// History returns cycle records started between from and to.
func (s *Scheduler) History(from, to time.Time) ([]CycleRecord, error) {
	return s.history.Range(HistoryKey, from, to)
}

func (s *Scheduler) runScheduled(trigger Trigger) {
	if !s.running.TryLock() {
		log.Printf("scheduler: skipping %s cycle, another cycle is running", trigger)
		return
	}
	defer s.running.Unlock()

	s.run(context.Background(), trigger)
}

func (s *Scheduler) run(parent context.Context, trigger Trigger) CycleRecord {
	ctx, cancel := context.WithTimeout(parent, s.opts.CycleTimeout)
	defer cancel()

	s.mu.Lock()
	attempt := s.retryAttempt
	s.mu.Unlock()

	record := CycleRecord{
		ID:           uuid.NewString(),
		Trigger:      trigger,
		StartedAt:    time.Now().UTC(),
		RetryAttempt: attempt,
	}
	record.Outcome = s.runner.RunCycle(ctx)
	record.FinishedAt = time.Now().UTC()

	s.history.Save(HistoryKey, record)
	log.Printf("scheduler: %s cycle finished with outcome %s", trigger, record.Outcome)

	s.handleOutcome(record.Outcome)
	return record
}

// handleOutcome schedules a one-off retry with exponential backoff on Retry
// and resets the backoff otherwise.
func (s *Scheduler) handleOutcome(outcome weather.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A newer outcome supersedes any pending retry.
	if err := s.scheduler.RemoveByTag(retryTag); err != nil && !errors.Is(err, gocron.ErrJobNotFoundWithTag) {
		log.Printf("scheduler: failed to cancel pending retry: %v", err)
	}

	if outcome != weather.OutcomeRetry {
		s.retryAttempt = 0
		return
	}

	delay := Backoff(s.opts.InitialBackoff, s.opts.MaxBackoff, s.retryAttempt)
	s.retryAttempt++

	_, err := s.scheduler.Every(delay).WaitForSchedule().LimitRunsTo(1).Tag(retryTag).Do(func() {
		s.runScheduled(TriggerRetry)
	})
	if err != nil {
		log.Printf("scheduler: failed to schedule retry: %v", err)
		return
	}
	log.Printf("scheduler: retry %d scheduled in %v", s.retryAttempt, delay)
}

// Backoff returns the delay before retry number attempt (zero based):
// initial doubled per attempt, capped at maxDelay.
func Backoff(initial, maxDelay time.Duration, attempt int) time.Duration {
	delay := initial
	for i := 0; i < attempt; i++ {
		if delay >= maxDelay/2 {
			return maxDelay
		}
		delay *= 2
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}
