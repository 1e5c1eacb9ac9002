// internal/app/system/notify/dispatcher.go
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/metrics"
	"go.uber.org/zap"
)

// Job is one detached side effect. Its error is logged, never returned to
// the request that queued it.
type Job struct {
	Kind string
	Run  func(ctx context.Context) error
}

// Dispatcher runs jobs on a fixed pool of workers fed by a bounded queue.
type Dispatcher struct {
	log     *zap.Logger
	metrics *metrics.Metrics
	workers int
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan Job
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher.
//
// Parameters:
//   - workers: number of goroutines draining the queue
//   - queueSize: jobs that may wait before Enqueue starts dropping
//   - timeout: deadline applied to each job's context
//
// m may be nil.
func NewDispatcher(log *zap.Logger, m *metrics.Metrics, workers, queueSize int, timeout time.Duration) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Dispatcher{
		log:     log,
		metrics: m,
		workers: workers,
		timeout: timeout,
		queue:   make(chan Job, queueSize),
	}
}

// Start launches the workers.
func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
	d.log.Info("notification dispatcher started",
		zap.Int("workers", d.workers),
		zap.Int("queue_size", cap(d.queue)),
		zap.Duration("job_timeout", d.timeout))
}

// Stop refuses new jobs, lets the workers finish what is queued, and waits
// for them.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	d.log.Info("notification dispatcher stopped")
}

// Enqueue queues job without blocking. It reports false when the job was
// dropped because the queue is full or the dispatcher stopped.
func (d *Dispatcher) Enqueue(job Job) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.dropped(job, "dispatcher stopped")
		return false
	}
	select {
	case d.queue <- job:
		return true
	default:
		d.dropped(job, "queue full")
		return false
	}
}

func (d *Dispatcher) dropped(job Job, reason string) {
	d.log.Warn("notification dropped", zap.String("kind", job.Kind), zap.String("reason", reason))
	d.metrics.Notification(job.Kind, metrics.OutcomeDropped)
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for job := range d.queue {
		d.exec(job)
	}
}

func (d *Dispatcher) exec(job Job) {
	ctx := context.Background()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	err := safeRun(ctx, job)
	if err != nil {
		d.log.Warn("notification failed", zap.String("kind", job.Kind), zap.Error(err))
		d.metrics.Notification(job.Kind, metrics.OutcomeFailed)
		return
	}
	d.metrics.Notification(job.Kind, metrics.OutcomeSent)
}

func safeRun(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return job.Run(ctx)
}
