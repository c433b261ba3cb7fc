package taskrunner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"storyreel/internal/appcore"
	"storyreel/log"
)

const (
	defaultQueueSize   = 32
	defaultConcurrency = 1
)

var (
	ErrRunnerStopped = errors.New("task runner stopped")
	ErrQueueFull     = errors.New("task queue is full")
)

// Config controls in-process task runner behavior.
type Config struct {
	QueueSize   int
	Concurrency int
}

// DefaultConfig runs one job at a time; a render already uses every core.
func DefaultConfig() Config {
	return Config{
		QueueSize:   defaultQueueSize,
		Concurrency: defaultConcurrency,
	}
}

type queuedTask struct {
	kind   appcore.JobKind
	jobID  string
	render appcore.RenderPayload
	story  appcore.StoryPayload
}

// Runner executes queued jobs with in-memory workers.
type Runner struct {
	exec   appcore.Executor
	config Config

	queue  chan queuedTask
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	queued  map[string]bool
	running map[string]context.CancelFunc

	workerWg sync.WaitGroup
	closed   atomic.Bool
}

var _ appcore.Dispatcher = (*Runner)(nil)

// New creates and starts a task runner.
func New(exec appcore.Executor, cfg Config) *Runner {
	cfg = normalizeConfig(cfg)
	ctx, cancel := context.WithCancel(context.Background())

	runner := &Runner{
		exec:    exec,
		config:  cfg,
		queue:   make(chan queuedTask, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
		queued:  make(map[string]bool),
		running: make(map[string]context.CancelFunc),
	}

	for i := 0; i < cfg.Concurrency; i++ {
		runner.workerWg.Add(1)
		go runner.worker(i + 1)
	}

	return runner
}

func normalizeConfig(cfg Config) Config {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return cfg
}

// SubmitRender queues a render job.
func (r *Runner) SubmitRender(p appcore.RenderPayload) error {
	if p.CompositionID == "" {
		return errors.New("render composition id is required")
	}
	return r.submit(queuedTask{kind: appcore.JobKindRender, jobID: p.JobID, render: p})
}

// SubmitStory queues a story generation job.
func (r *Runner) SubmitStory(p appcore.StoryPayload) error {
	if p.StoryID == "" {
		return errors.New("story id is required")
	}
	return r.submit(queuedTask{kind: appcore.JobKindStory, jobID: p.JobID, story: p})
}

func (r *Runner) submit(task queuedTask) error {
	if r.closed.Load() {
		return ErrRunnerStopped
	}

	r.mu.Lock()
	r.queued[task.jobID] = false
	r.mu.Unlock()

	select {
	case <-r.ctx.Done():
		r.forget(task.jobID)
		return ErrRunnerStopped
	case r.queue <- task:
		log.GetLogger().Info("[TaskRunner] task submitted",
			zap.String("job_id", task.jobID),
			zap.String("kind", string(task.kind)))
		return nil
	default:
		r.forget(task.jobID)
		return ErrQueueFull
	}
}

func (r *Runner) forget(jobID string) {
	r.mu.Lock()
	delete(r.queued, jobID)
	r.mu.Unlock()
}

// Cancel stops a running job. A job still waiting in the queue is handed to
// the executor with an already cancelled context so it can record the
// outcome. It reports whether the job was known to the runner.
func (r *Runner) Cancel(jobID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cancel, ok := r.running[jobID]; ok {
		cancel()
		return true
	}
	if _, ok := r.queued[jobID]; ok {
		r.queued[jobID] = true
		return true
	}
	return false
}

func (r *Runner) worker(workerID int) {
	defer r.workerWg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		default:
		}

		select {
		case <-r.ctx.Done():
			return
		case task := <-r.queue:
			r.processTask(workerID, task)
		}
	}
}

func (r *Runner) processTask(workerID int, task queuedTask) {
	ctx, cancel := context.WithCancel(r.ctx)
	defer cancel()

	r.mu.Lock()
	if r.queued[task.jobID] {
		cancel()
	}
	delete(r.queued, task.jobID)
	r.running[task.jobID] = cancel
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.running, task.jobID)
		r.mu.Unlock()
	}()

	var err error
	switch task.kind {
	case appcore.JobKindRender:
		err = r.exec.ExecuteRender(ctx, task.render)
	case appcore.JobKindStory:
		err = r.exec.ExecuteStory(ctx, task.story)
	default:
		err = fmt.Errorf("unsupported task kind: %s", task.kind)
	}

	if err != nil {
		log.GetLogger().Error("[TaskRunner] task failed",
			zap.Int("worker_id", workerID),
			zap.String("job_id", task.jobID),
			zap.String("kind", string(task.kind)),
			zap.Error(err))
		return
	}

	log.GetLogger().Info("[TaskRunner] task completed",
		zap.Int("worker_id", workerID),
		zap.String("job_id", task.jobID),
		zap.String("kind", string(task.kind)))
}

// Close stops workers, cancels running jobs and rejects new ones.
func (r *Runner) Close() {
	if !r.closed.CompareAndSwap(false, true) {
		return
	}

	r.cancel()
	r.workerWg.Wait()
}

// Pending returns the number of queued tasks waiting for workers.
func (r *Runner) Pending() int {
	return len(r.queue)
}
