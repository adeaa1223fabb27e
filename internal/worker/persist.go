package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/ppiankov/tradeline/internal/logging"
	"github.com/ppiankov/tradeline/internal/model"
	"go.uber.org/zap"
)

// DisputeWriter creates disputes on the persistence backend
type DisputeWriter interface {
	CreateDispute(ctx context.Context, d model.NewDispute) (*model.Dispute, error)
}

// PersistJob writes one saved dispute
type PersistJob struct {
	Dispute model.NewDispute
	Writer  DisputeWriter
	Timeout time.Duration
	Done    func(*model.Dispute, error)
}

// Execute executes the persist job and reports the outcome to Done
func (j *PersistJob) Execute(ctx context.Context) Result {
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	stored, err := j.Writer.CreateDispute(ctx, j.Dispute)
	if err != nil {
		err = fmt.Errorf("persist %s: %w", j.Dispute.AccountID, err)
	}
	if j.Done != nil {
		j.Done(stored, err)
	}
	return &PersistResult{AccountID: j.Dispute.AccountID, Dispute: stored, Error: err}
}

// PersistResult represents the result of a persist job
type PersistResult struct {
	AccountID string
	Dispute   *model.Dispute
	Error     error
}

// GetError returns the error from the persist result
func (r *PersistResult) GetError() error {
	return r.Error
}

// PersistQueue sends saved disputes to the backend in the background.
// Callers never wait on the network; Flush drains outstanding writes.
type PersistQueue struct {
	pool    *Pool
	writer  DisputeWriter
	timeout time.Duration
	logger  *zap.Logger
}

// NewPersistQueue starts workers writing to writer
func NewPersistQueue(writer DisputeWriter, workers int, timeout time.Duration, logger *zap.Logger) *PersistQueue {
	if workers <= 0 {
		workers = 1
	}
	q := &PersistQueue{
		pool:    NewPoolWithQueue(workers, 256),
		writer:  writer,
		timeout: timeout,
		logger:  logging.OrNop(logger),
	}
	q.pool.OnResult(func(r Result) {
		// Failures reach the caller through Done and Flush
		pr := r.(*PersistResult)
		if pr.Error != nil || pr.Dispute == nil {
			return
		}
		q.logger.Debug("dispute persisted",
			zap.String("item_id", pr.AccountID), zap.String("dispute_id", pr.Dispute.ID))
	})
	q.pool.Start()
	return q
}

// Persist queues a dispute. After Flush the dispute is rejected through done.
func (q *PersistQueue) Persist(d model.NewDispute, done func(*model.Dispute, error)) {
	job := &PersistJob{Dispute: d, Writer: q.writer, Timeout: q.timeout, Done: done}
	if !q.pool.Submit(job) && done != nil {
		done(nil, fmt.Errorf("persist %s: queue closed", d.AccountID))
	}
}

// Flush waits for every queued write and returns the results
func (q *PersistQueue) Flush() []*PersistResult {
	results := q.pool.Wait()
	out := make([]*PersistResult, len(results))
	for i, r := range results {
		out[i] = r.(*PersistResult)
	}
	return out
}
