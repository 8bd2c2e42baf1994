package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/draftdesk/feedpipe/app/database"
)

const (
	maxPendingJobs    = 1000
	terminalRetention = 1000
	jobMaxRetries     = 3
	jobTimeout        = 5 * time.Minute
)

// priorityOrder is the pop order of the pending queues.
var priorityOrder = []Priority{PriorityHigh, PriorityNormal, PriorityLow}

// Enqueuer is the queue surface the processor depends on. Enqueue is
// best-effort: a full queue returns an error and the caller moves on.
type Enqueuer interface {
	Enqueue(itemID string, priority Priority) (string, error)
}

var _ Enqueuer = (*Queue)(nil)

// Queue is an in-process, priority-ordered, bounded-concurrency job
// queue. Jobs run in goroutines capped at maxConcurrent; failures are
// retried with exponential backoff; terminal jobs are retained for
// inspection up to a cap.
type Queue struct {
	analyzer      Analyzer
	items         database.ItemRepository
	maxConcurrent int

	mu       sync.Mutex
	jobs     map[string]*Job
	pending  map[Priority][]*Job
	active   int
	terminal []string

	wake    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

func NewQueue(analyzer Analyzer, items database.ItemRepository, maxConcurrent int) *Queue {
	if maxConcurrent <= 0 {
		maxConcurrent = 2
	}

	return &Queue{
		analyzer:      analyzer,
		items:         items,
		maxConcurrent: maxConcurrent,
		jobs:          make(map[string]*Job),
		pending:       make(map[Priority][]*Job),
		wake:          make(chan struct{}, 1),
	}
}

// Start launches the dispatch loop. Idempotent.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.started {
		return
	}
	q.started = true
	q.ctx, q.cancel = context.WithCancel(context.Background())

	q.wg.Add(1)
	go q.dispatchLoop()

	slog.Info("Analysis queue started", "max_concurrent", q.maxConcurrent)
}

// Stop halts dispatch and waits for in-flight jobs.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.started = false
	cancel := q.cancel
	q.mu.Unlock()

	cancel()
	q.wg.Wait()

	slog.Info("Analysis queue stopped")
}

// Enqueue adds a job for the given feed item. Rejects when the pending
// backlog is at capacity.
func (q *Queue) Enqueue(itemID string, priority Priority) (string, error) {
	priority = ParsePriority(string(priority))

	q.mu.Lock()
	if q.pendingCountLocked() >= maxPendingJobs {
		q.mu.Unlock()
		return "", fmt.Errorf("analysis queue is full")
	}

	job := &Job{
		ID:        uuid.NewString(),
		ItemID:    itemID,
		Priority:  priority,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	q.jobs[job.ID] = job
	q.pending[priority] = append(q.pending[priority], job)
	q.mu.Unlock()

	q.signal()
	return job.ID, nil
}

// JobStatus returns a copy of the job, or nil if unknown or pruned.
func (q *Queue) JobStatus(id string) *Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[id]
	if !ok {
		return nil
	}
	jobCopy := *job
	return &jobCopy
}

func (q *Queue) Status() QueueStatus {
	q.mu.Lock()
	defer q.mu.Unlock()

	var status QueueStatus
	for _, job := range q.jobs {
		switch job.Status {
		case StatusPending:
			status.Pending++
		case StatusProcessing:
			status.Processing++
		case StatusCompleted:
			status.Completed++
		case StatusFailed:
			status.Failed++
		}
	}
	return status
}

func (q *Queue) dispatchLoop() {
	defer q.wg.Done()

	for {
		select {
		case <-q.ctx.Done():
			return
		case <-q.wake:
			q.fill()
		}
	}
}

// fill starts pending jobs until the concurrency cap is reached:
// highest priority first, creation order within a priority.
func (q *Queue) fill() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.active < q.maxConcurrent {
		job := q.popLocked()
		if job == nil {
			return
		}

		now := time.Now().UTC()
		job.Status = StatusProcessing
		job.StartedAt = &now
		q.active++

		q.wg.Add(1)
		go q.run(job)
	}
}

func (q *Queue) pendingCountLocked() int {
	count := 0
	for _, jobs := range q.pending {
		count += len(jobs)
	}
	return count
}

// requeueLocked returns a retried job to its priority queue in
// creation order, ahead of jobs enqueued after it.
func (q *Queue) requeueLocked(job *Job) {
	queue := q.pending[job.Priority]
	i := sort.Search(len(queue), func(i int) bool {
		return queue[i].CreatedAt.After(job.CreatedAt)
	})
	queue = append(queue, nil)
	copy(queue[i+1:], queue[i:])
	queue[i] = job
	q.pending[job.Priority] = queue
}

func (q *Queue) popLocked() *Job {
	for _, priority := range priorityOrder {
		queue := q.pending[priority]
		if len(queue) == 0 {
			continue
		}
		job := queue[0]
		q.pending[priority] = queue[1:]
		return job
	}
	return nil
}

func (q *Queue) run(job *Job) {
	defer q.wg.Done()

	runCtx, cancel := context.WithTimeout(q.ctx, jobTimeout)
	defer cancel()

	err := q.execute(runCtx, job)
	q.complete(job, err)
}

func (q *Queue) execute(ctx context.Context, job *Job) error {
	item, err := q.items.GetItem(job.ItemID)
	if err != nil {
		return fmt.Errorf("failed to load item: %w", err)
	}
	if item == nil {
		return fmt.Errorf("item not found: %s", job.ItemID)
	}

	return q.analyzer.Analyze(ctx, item)
}

func (q *Queue) complete(job *Job, err error) {
	q.mu.Lock()
	q.active--

	if err == nil {
		now := time.Now().UTC()
		job.Status = StatusCompleted
		job.CompletedAt = &now
		job.LastError = ""
		q.markTerminalLocked(job)
		q.mu.Unlock()

		slog.Debug("Analysis job completed", "job_id", job.ID, "item_id", job.ItemID)
		q.signal()
		return
	}

	job.RetryCount++
	job.LastError = err.Error()

	if job.RetryCount >= jobMaxRetries {
		now := time.Now().UTC()
		job.Status = StatusFailed
		job.CompletedAt = &now
		q.markTerminalLocked(job)
		q.mu.Unlock()

		slog.Error("Analysis job failed permanently", "job_id", job.ID, "item_id", job.ItemID, "retry_count", job.RetryCount, "error", err)
		q.signal()
		return
	}

	job.Status = StatusPending
	delay := time.Duration(1<<uint(job.RetryCount)) * time.Second
	q.mu.Unlock()

	slog.Warn("Analysis job retry scheduled", "job_id", job.ID, "retry_count", job.RetryCount, "delay", delay.String(), "error", err)

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		select {
		case <-q.ctx.Done():
			return
		case <-time.After(delay):
		}

		q.mu.Lock()
		q.requeueLocked(job)
		q.mu.Unlock()
		q.signal()
	}()

	q.signal()
}

// markTerminalLocked records a terminal job and prunes the oldest
// beyond the retention cap.
func (q *Queue) markTerminalLocked(job *Job) {
	q.terminal = append(q.terminal, job.ID)
	for len(q.terminal) > terminalRetention {
		delete(q.jobs, q.terminal[0])
		q.terminal = q.terminal[1:]
	}
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
