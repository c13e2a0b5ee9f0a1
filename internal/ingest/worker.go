package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/contractd/internal/blob"
	"github.com/kalambet/contractd/internal/storage"
)

// JobType is the queue job type for contract extraction.
const JobType = "process_contract"

// JobStore abstracts the job queue operations.
type JobStore interface {
	ClaimNextJob(types []string) (*storage.Job, error)
	CompleteJob(id string) error
	FailJob(id string, errMsg string) error
	GetContract(id string) (storage.Contract, error)
	FailContract(id, message, errMsg string) error
}

// Processor handles one contract.
type Processor interface {
	Process(ctx context.Context, in Input) error
}

// Worker processes process_contract jobs from the SQLite job queue.
type Worker struct {
	store     JobStore
	blobs     blob.Store
	processor Processor
	poll      time.Duration
	logger    *slog.Logger

	// Concurrency is the number of independent poll loops Run starts.
	// Values below 1 mean 1.
	Concurrency int
}

// NewWorker creates a Worker with the given dependencies.
// If pollInterval is <= 0, it defaults to 500ms.
func NewWorker(store JobStore, blobs blob.Store, processor Processor, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Worker{
		store:     store,
		blobs:     blobs,
		processor: processor,
		poll:      pollInterval,
		logger:    slog.Default(),
	}
}

// Run polls for jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	n := max(w.Concurrency, 1)
	g, ctx := errgroup.WithContext(ctx)
	for range n {
		g.Go(func() error {
			w.loop(ctx)
			return nil
		})
	}
	g.Wait()
}

func (w *Worker) loop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		done, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("worker iteration failed", "error", err)
		}
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// RunOnce claims and processes a single process_contract job.
// Returns true if a job was processed (regardless of success/failure).
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.store.ClaimNextJob([]string{JobType})
	if err != nil {
		return false, fmt.Errorf("claiming job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	if err := w.processJob(ctx, job); err != nil {
		w.logger.Warn("job failed", "job_id", job.ID, "error", err)
		if failErr := w.store.FailJob(job.ID, err.Error()); failErr != nil {
			w.logger.Error("failed to mark job as failed", "job_id", job.ID, "error", failErr)
		}
		return true, nil
	}

	if err := w.store.CompleteJob(job.ID); err != nil {
		return true, fmt.Errorf("completing job %s: %w", job.ID, err)
	}
	return true, nil
}

type processPayload struct {
	ContractID string `json:"contract_id"`
}

// processJob returns an error only when the contract could not be handed to
// the processor. Extraction failures are recorded on the contract itself.
func (w *Worker) processJob(ctx context.Context, job *storage.Job) error {
	var payload processPayload
	if err := json.Unmarshal([]byte(job.PayloadJSON), &payload); err != nil {
		return fmt.Errorf("parsing payload: %w", err)
	}

	c, err := w.store.GetContract(payload.ContractID)
	if err != nil {
		return fmt.Errorf("loading contract %s: %w", payload.ContractID, err)
	}
	if !CanTransition(State(c.Status), StateCompleted) {
		w.logger.Warn("skipping contract not in processing", "contract_id", c.ID, "status", c.Status)
		return nil
	}

	// A claimed job runs to its terminal record even during shutdown.
	// Cancelling mid-extraction would store a degraded result as completed.
	ctx = context.WithoutCancel(ctx)

	path, cleanup, err := blob.Materialize(ctx, w.blobs, c.BlobKey)
	if err != nil {
		err = fmt.Errorf("fetching upload: %w", err)
		if failErr := w.store.FailContract(c.ID, MsgFailed, "An error occurred: "+err.Error()); failErr != nil {
			w.logger.Error("failed to record contract failure", "contract_id", c.ID, "error", failErr)
		}
		return err
	}
	defer cleanup()

	if err := w.processor.Process(ctx, Input{ContractID: c.ID, Path: path, FileName: c.FileName}); err != nil {
		w.logger.Info("contract ended in error", "contract_id", c.ID, "error", err)
	}
	return nil
}

// Enqueue adds a process_contract job for contractID. The core never
// retries, so the job gets a single attempt.
func Enqueue(store interface{ EnqueueJob(storage.Job) error }, contractID string) (string, error) {
	payload, err := json.Marshal(processPayload{ContractID: contractID})
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	err = store.EnqueueJob(storage.Job{
		ID:          id,
		Type:        JobType,
		PayloadJSON: string(payload),
		MaxAttempts: 1,
	})
	if err != nil {
		return "", fmt.Errorf("enqueueing contract %s: %w", contractID, err)
	}
	return id, nil
}
