package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/oliversimiyu/movie-downloader/models"
)

// DownloadTask is one queued acquisition: a created job plus the source URL
// the worker should hand to the extraction backend.
type DownloadTask struct {
	JobID     int64
	SourceURL string
}

// jobTransitioner is the slice of the job store the worker pool needs to
// record outcomes.
type jobTransitioner interface {
	Transition(ctx context.Context, jobID int64, newStatus, finalTitle string) error
}

// DownloadQueue decouples API latency from extraction duration: handlers
// enqueue a task for an already-created pending job and return immediately,
// while a small worker pool performs the blocking fetch and moves the job
// to its terminal status. Status is observed by polling the job store.
type DownloadQueue struct {
	tasks   chan DownloadTask
	fetcher MediaFetcher
	jobs    jobTransitioner
	workers int
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewDownloadQueue(fetcher MediaFetcher, jobs jobTransitioner, workers int) *DownloadQueue {
	if workers < 1 {
		workers = 1
	}
	return &DownloadQueue{
		tasks:   make(chan DownloadTask, 64),
		fetcher: fetcher,
		jobs:    jobs,
		workers: workers,
	}
}

// Start launches the worker pool. Workers run until the context is
// cancelled or Stop closes the queue.
func (q *DownloadQueue) Start(ctx context.Context) {
	slog.Info("Starting download workers", "count", q.workers)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
}

// Stop rejects further tasks and waits for the workers to drain what was
// already queued. Safe to call while other goroutines are still enqueuing.
func (q *DownloadQueue) Stop() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
	q.mu.Unlock()
	q.wg.Wait()
}

// Enqueue hands a task to the pool without blocking the caller. A full or
// stopped queue is reported as an error so the job can be failed immediately
// instead of silently dropped.
func (q *DownloadQueue) Enqueue(task DownloadTask) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return fmt.Errorf("download queue is shut down")
	}
	select {
	case q.tasks <- task:
		return nil
	default:
		return fmt.Errorf("download queue is full")
	}
}

func (q *DownloadQueue) worker(ctx context.Context, id int) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-q.tasks:
			if !ok {
				return
			}
			q.run(ctx, id, task)
		}
	}
}

func (q *DownloadQueue) run(ctx context.Context, workerID int, task DownloadTask) {
	slog.Info("Worker picked up download", "worker", workerID, "job_id", task.JobID, "url", task.SourceURL)

	filename, err := q.fetcher.Fetch(ctx, task.SourceURL)
	status := models.JobStatusCompleted
	if err != nil {
		status = models.JobStatusFailed
		slog.Error("Background download failed", "worker", workerID, "job_id", task.JobID, "error", err)
	} else {
		slog.Info("Background download completed", "worker", workerID, "job_id", task.JobID, "filename", filename)
	}

	if err := q.jobs.Transition(ctx, task.JobID, status, ""); err != nil {
		slog.Error("Failed to record job outcome", "job_id", task.JobID, "status", status, "error", err)
	}
}
