package validate

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/Sriram-PR/webtest/pkg/queue"
	"github.com/Sriram-PR/webtest/pkg/utils"
)

// pendingJob is a queued job with the attempts already spent on it
type pendingJob struct {
	job      Job
	attempts int
}

// Worker feeds one service from a work queue, one request at a time
// Failed jobs are requeued with their attempt count as priority, so fresh jobs go first,
// and are tried again up to maxAttempts times
// Run ends when the queue is closed and drained
type Worker struct {
	service     Service
	queue       *queue.WorkQueue[pendingJob]
	capacity    int // Max queued jobs, 0 for no limit
	maxAttempts int
	limiter     *rate.Limiter
	log         *logrus.Entry
}

// NewWorker creates a Worker; delay is the fixed pause between two requests
func NewWorker(service Service, capacity, maxAttempts int, delay time.Duration, log *logrus.Entry) *Worker {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	workerLog := log.WithField("service", service.Name())
	return &Worker{
		service:     service,
		queue:       queue.NewWorkQueue[pendingJob](workerLog),
		capacity:    capacity,
		maxAttempts: maxAttempts,
		limiter:     rate.NewLimiter(limit, 1),
		log:         workerLog,
	}
}

// Submit queues a job; it reports false when the queue is closed or full
func (w *Worker) Submit(job Job) bool {
	if w.capacity > 0 && w.queue.Len() >= w.capacity {
		w.log.WithField("url", job.URL.Full()).Warn("Validation queue full, dropping job")
		return false
	}
	return w.queue.Add(pendingJob{job: job}, 0)
}

// Close marks the end of the jobs
func (w *Worker) Close() {
	w.queue.Close()
}

// Run processes jobs until the queue is closed and every retry is spent, or ctx is done
// Results gathered so far are returned in both cases
func (w *Worker) Run(ctx context.Context) []Result {
	var results []Result

	for {
		pending, ok := w.queue.Pop(ctx)
		if !ok {
			break
		}
		if err := w.limiter.Wait(ctx); err != nil {
			break
		}

		pending.attempts++
		jobLog := w.log.WithFields(logrus.Fields{"url": pending.job.URL.Full(), "attempt": pending.attempts})

		res, err := w.service.Validate(ctx, pending.job)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if pending.attempts < w.maxAttempts {
				jobLog.Debugf("Validation failed, will retry: %v", err)
				w.queue.Requeue(pending, pending.attempts)
			} else {
				jobLog.WithField("error_type", utils.CategorizeError(err)).Warnf("Validation failed after %d attempts: %v", pending.attempts, err)
			}
			continue
		}
		jobLog.Debugf("Validated: %d warnings, %d errors", res.Warnings, res.Errors)
		results = append(results, res)
	}

	if ctx.Err() != nil {
		w.log.Warnf("Validation interrupted, %d jobs left in queue", w.queue.Len())
	}
	return results
}
