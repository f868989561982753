package producer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cuongbtq/queue-producer/internal/metrics"
	"github.com/cuongbtq/queue-producer/internal/producer/domain"
)

// ErrSchedulerClosed is returned by Start once Shutdown has been called
var ErrSchedulerClosed = errors.New("scheduler is shut down")

// Sender publishes one payload
type Sender interface {
	Publish(ctx context.Context, queueName string, payload domain.Payload) error
}

// SchedulerConfig holds scheduler dependencies
type SchedulerConfig struct {
	Publisher Sender
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

// TaskParams describes what a periodic task publishes and how often
type TaskParams struct {
	QueueName  string
	ProcessTag string
	MinLength  int
	MaxLength  int
	Interval   time.Duration
}

// Validate checks the parameters before a task is created
func (p TaskParams) Validate() error {
	if p.QueueName == "" {
		return errors.New("queue name is required")
	}
	if p.ProcessTag == "" {
		return errors.New("process tag is required")
	}
	if err := ValidateRange(p.MinLength, p.MaxLength); err != nil {
		return err
	}
	if p.Interval <= 0 {
		return domain.ErrInvalidInterval
	}
	return nil
}

// TaskSnapshot is a point-in-time view of a Task
type TaskSnapshot struct {
	ID              string
	Status          string
	Params          TaskParams
	StartedAt       time.Time
	Published       int
	LastPublishedAt time.Time
	Error           string
}

// Task is the handle of one periodic publish loop
type Task struct {
	id        string
	params    TaskParams
	startedAt time.Time
	cancel    context.CancelFunc
	done      chan struct{}

	mu              sync.Mutex
	status          string
	published       int
	lastPublishedAt time.Time
	err             error
}

// ID returns the task identifier
func (t *Task) ID() string {
	return t.id
}

// Params returns the parameters the task was started with
func (t *Task) Params() TaskParams {
	return t.params
}

// Done is closed once the loop has exited and its slot is released
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Err returns the publish error that terminated the task, if any
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Snapshot returns the current state of the task
func (t *Task) Snapshot() TaskSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := TaskSnapshot{
		ID:              t.id,
		Status:          t.status,
		Params:          t.params,
		StartedAt:       t.startedAt,
		Published:       t.published,
		LastPublishedAt: t.lastPublishedAt,
	}
	if t.err != nil {
		snap.Error = t.err.Error()
	}
	return snap
}

func (t *Task) recordPublish(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.published++
	t.lastPublishedAt = at
}

func (t *Task) fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.err = err
	t.status = domain.TaskStatusFailed
}

func (t *Task) markStopped() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == domain.TaskStatusRunning {
		t.status = domain.TaskStatusStopped
	}
}

// Scheduler runs at most one periodic publish task per process
type Scheduler struct {
	publisher Sender
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time

	mu     sync.Mutex
	active *Task
	last   *Task
	closed bool
}

// NewScheduler creates a new Scheduler instance
func NewScheduler(cfg *SchedulerConfig) *Scheduler {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Scheduler{
		publisher: cfg.Publisher,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		now:       now,
	}
}

// Start launches a periodic task. It publishes immediately and then once every
// params.Interval until stopped or a publish fails. Only one task may be active
// at a time; a second Start returns domain.ErrAlreadyRunning.
func (s *Scheduler) Start(params TaskParams) (*Task, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSchedulerClosed
	}
	if s.active != nil {
		return nil, domain.ErrAlreadyRunning
	}

	// The task outlives the request that started it.
	ctx, cancel := context.WithCancel(context.Background())
	task := &Task{
		id:        uuid.NewString(),
		params:    params,
		startedAt: s.now().UTC(),
		cancel:    cancel,
		done:      make(chan struct{}),
		status:    domain.TaskStatusRunning,
	}

	s.active = task
	s.last = task
	s.metrics.SetPeriodicRunning(true)

	s.logger.Info("Periodic task started",
		slog.String("task_id", task.id),
		slog.String("queue", params.QueueName),
		slog.String("process_name", params.ProcessTag),
		slog.Int("min_length", params.MinLength),
		slog.Int("max_length", params.MaxLength),
		slog.Duration("interval", params.Interval),
	)

	go s.run(ctx, task)

	return task, nil
}

// run is the loop body of a task: publish, sleep, repeat
func (s *Scheduler) run(ctx context.Context, task *Task) {
	defer s.finish(task)

	for {
		err := s.tick(ctx, task)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			task.fail(err)
			s.logger.Error("Error in periodic sender, stopping task",
				slog.String("task_id", task.id),
				slog.Any("error", err),
			)
			return
		}

		timer := time.NewTimer(task.params.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// tick generates and publishes one payload
func (s *Scheduler) tick(ctx context.Context, task *Task) error {
	body, err := RandomString(task.params.MinLength, task.params.MaxLength)
	if err != nil {
		return err
	}

	payload := domain.NewPayload(task.params.QueueName, task.params.ProcessTag, body, s.now())
	if err := s.publisher.Publish(WithSource(ctx, metrics.SourcePeriodic), task.params.QueueName, payload); err != nil {
		return err
	}

	task.recordPublish(payload.CreatedAt)
	return nil
}

// finish releases the active slot and then signals Done
func (s *Scheduler) finish(task *Task) {
	task.cancel()
	task.markStopped()

	s.mu.Lock()
	if s.active == task {
		s.active = nil
		s.metrics.SetPeriodicRunning(false)
	}
	s.mu.Unlock()

	snap := task.Snapshot()
	s.logger.Info("Periodic task stopped",
		slog.String("task_id", task.id),
		slog.String("status", snap.Status),
		slog.Int("published", snap.Published),
	)

	close(task.done)
}

// Stop cancels task and waits for its loop to exit, or for ctx to end
func (s *Scheduler) Stop(ctx context.Context, task *Task) error {
	if task == nil {
		return domain.ErrNotRunning
	}

	task.cancel()

	select {
	case <-task.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for periodic task %s: %w", task.id, ctx.Err())
	}
}

// StopActive stops whichever task is currently running
func (s *Scheduler) StopActive(ctx context.Context) (*Task, error) {
	task := s.Active()
	if task == nil {
		return nil, domain.ErrNotRunning
	}
	return task, s.Stop(ctx, task)
}

// Active returns the running task, or nil
func (s *Scheduler) Active() *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Last returns the most recently started task, running or not
func (s *Scheduler) Last() *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Shutdown stops the active task and rejects further starts
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	task := s.active
	s.mu.Unlock()

	if task == nil {
		return nil
	}

	s.logger.Info("Stopping periodic task for shutdown",
		slog.String("task_id", task.id),
	)
	return s.Stop(ctx, task)
}
