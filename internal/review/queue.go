package review

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Job is one queued evidence submission.
type Job struct {
	Request     SubmitRequest
	SubmittedAt time.Time
}

// Queue decouples intake from processing so a burst of uploads does not
// block the uploader.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

type SubmitQueue struct {
	svc     *Service
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*SubmitQueue)

func WithWorkers(n int) Option {
	return func(q *SubmitQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *SubmitQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *SubmitQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewSubmitQueue(svc *Service, logger *slog.Logger, opts ...Option) *SubmitQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &SubmitQueue{
		svc:     svc,
		logger:  logger,
		workers: 4,
		timeout: 5 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *SubmitQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("review worker started", "worker_id", workerID)

				for job := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					report, err := q.svc.SubmitEvidence(ctx, job.Request)
					cancel()

					if err != nil {
						q.logger.Error("review failed", "worker_id", workerID, "case_id", job.Request.CaseID, "path", job.Request.SourcePath, "error", err)
					} else {
						q.logger.Info("review completed", "worker_id", workerID, "case_id", job.Request.CaseID, "run_id", report.Record.ID)
					}
				}

				q.logger.Info("review worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *SubmitQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", job.Request.SourcePath)
		return nil
	}
	select {
	case q.ch <- job:
		q.logger.Info("queued evidence for review", "case_id", job.Request.CaseID, "path", job.Request.SourcePath)
	default:
		q.logger.Warn("queue full, applying backpressure", "path", job.Request.SourcePath)
		q.ch <- job
	}
	return nil
}

func (q *SubmitQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
