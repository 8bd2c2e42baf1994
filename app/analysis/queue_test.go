package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/draftdesk/feedpipe/app/database"
)

type mockAnalyzer struct {
	analyzeFunc func(ctx context.Context, item *database.Item) error

	mu       sync.Mutex
	analyzed []string
}

func (m *mockAnalyzer) Analyze(ctx context.Context, item *database.Item) error {
	m.mu.Lock()
	m.analyzed = append(m.analyzed, item.ID)
	m.mu.Unlock()

	if m.analyzeFunc != nil {
		return m.analyzeFunc(ctx, item)
	}
	return nil
}

func (m *mockAnalyzer) order() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.analyzed...)
}

type mockItemRepository struct {
	getItemFunc func(id string) (*database.Item, error)
}

func (m *mockItemRepository) GetItem(id string) (*database.Item, error) {
	if m.getItemFunc != nil {
		return m.getItemFunc(id)
	}
	return &database.Item{ID: id}, nil
}

func (m *mockItemRepository) GetRecentItems(_ string, _ int) ([]database.Item, error) {
	return nil, nil
}
func (m *mockItemRepository) GetItemCount(_ string) (int, error)           { return 0, nil }
func (m *mockItemRepository) ExistsByGUID(_ string) (bool, error)          { return false, nil }
func (m *mockItemRepository) ExistsByFingerprint(_, _ string) (bool, error) { return false, nil }
func (m *mockItemRepository) StoreItem(_ *database.Item) (string, error)   { return "", nil }

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in   string
		want Priority
	}{
		{"low", PriorityLow},
		{"normal", PriorityNormal},
		{"high", PriorityHigh},
		{"", PriorityNormal},
		{"urgent", PriorityNormal},
	}

	for _, tt := range tests {
		if got := ParsePriority(tt.in); got != tt.want {
			t.Errorf("ParsePriority(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestQueueCompletesJobs(t *testing.T) {
	analyzer := &mockAnalyzer{}
	q := NewQueue(analyzer, &mockItemRepository{}, 2)
	q.Start()
	defer q.Stop()

	id, err := q.Enqueue("item-1", PriorityNormal)
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	waitFor(t, 2*time.Second, func() bool { return q.Status().Completed == 1 })

	job := q.JobStatus(id)
	if job == nil {
		t.Fatal("JobStatus() = nil")
	}
	if job.Status != StatusCompleted {
		t.Errorf("Status = %q, want completed", job.Status)
	}
	if job.StartedAt == nil || job.CompletedAt == nil {
		t.Error("timestamps not set on completed job")
	}
	if job.RetryCount != 0 {
		t.Errorf("RetryCount = %d, want 0", job.RetryCount)
	}
}

func TestQueuePriorityOrder(t *testing.T) {
	analyzer := &mockAnalyzer{}
	q := NewQueue(analyzer, &mockItemRepository{}, 1)

	// Enqueue before Start so the backlog drains strictly by priority.
	if _, err := q.Enqueue("item-low", PriorityLow); err != nil {
		t.Fatal(err)
	}
	if _, err := q.Enqueue("item-normal", PriorityNormal); err != nil {
		t.Fatal(err)
	}
	if _, err := q.Enqueue("item-high", PriorityHigh); err != nil {
		t.Fatal(err)
	}

	q.Start()
	defer q.Stop()

	waitFor(t, 2*time.Second, func() bool { return q.Status().Completed == 3 })

	want := []string{"item-high", "item-normal", "item-low"}
	got := analyzer.order()
	if len(got) != len(want) {
		t.Fatalf("analyzed %d items, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("execution order = %v, want %v", got, want)
			break
		}
	}
}

func TestQueueFIFOWithinPriority(t *testing.T) {
	analyzer := &mockAnalyzer{}
	q := NewQueue(analyzer, &mockItemRepository{}, 1)

	for i := 1; i <= 4; i++ {
		if _, err := q.Enqueue(fmt.Sprintf("item-%d", i), PriorityNormal); err != nil {
			t.Fatal(err)
		}
	}

	q.Start()
	defer q.Stop()

	waitFor(t, 2*time.Second, func() bool { return q.Status().Completed == 4 })

	got := analyzer.order()
	for i := range got {
		if want := fmt.Sprintf("item-%d", i+1); got[i] != want {
			t.Errorf("execution order = %v", got)
			break
		}
	}
}

func TestQueueRejectsWhenFull(t *testing.T) {
	q := NewQueue(&mockAnalyzer{}, &mockItemRepository{}, 1)

	// Not started, so the backlog only grows.
	for i := 0; i < maxPendingJobs; i++ {
		if _, err := q.Enqueue(fmt.Sprintf("item-%d", i), PriorityNormal); err != nil {
			t.Fatalf("Enqueue(%d) error = %v", i, err)
		}
	}

	if _, err := q.Enqueue("one-too-many", PriorityHigh); err == nil {
		t.Error("Enqueue() past capacity, want error")
	}

	if got := q.Status().Pending; got != maxPendingJobs {
		t.Errorf("Pending = %d after rejection, want %d", got, maxPendingJobs)
	}

	q.mu.Lock()
	count := q.pendingCountLocked()
	q.mu.Unlock()
	if count != maxPendingJobs {
		t.Errorf("pending backlog = %d, want %d", count, maxPendingJobs)
	}
}

func TestQueueRequeuePreservesCreationOrder(t *testing.T) {
	q := NewQueue(&mockAnalyzer{}, &mockItemRepository{}, 1)

	base := time.Now().UTC()
	newer := &Job{ID: "newer", Priority: PriorityNormal, CreatedAt: base.Add(time.Second)}
	newest := &Job{ID: "newest", Priority: PriorityNormal, CreatedAt: base.Add(2 * time.Second)}
	retried := &Job{ID: "retried", Priority: PriorityNormal, CreatedAt: base, RetryCount: 1}

	q.mu.Lock()
	q.pending[PriorityNormal] = []*Job{newer, newest}
	q.requeueLocked(retried)

	var order []string
	for {
		job := q.popLocked()
		if job == nil {
			break
		}
		order = append(order, job.ID)
	}
	q.mu.Unlock()

	want := []string{"retried", "newer", "newest"}
	for i := range want {
		if i >= len(order) || order[i] != want[i] {
			t.Fatalf("pop order = %v, want %v", order, want)
		}
	}
}

func TestQueueRetriesThenSucceeds(t *testing.T) {
	var calls int
	var mu sync.Mutex
	analyzer := &mockAnalyzer{
		analyzeFunc: func(ctx context.Context, item *database.Item) error {
			mu.Lock()
			defer mu.Unlock()
			calls++
			if calls == 1 {
				return errors.New("transient")
			}
			return nil
		},
	}

	q := NewQueue(analyzer, &mockItemRepository{}, 1)
	q.Start()
	defer q.Stop()

	id, err := q.Enqueue("item-1", PriorityNormal)
	if err != nil {
		t.Fatal(err)
	}

	// First retry is delayed 2^1 seconds.
	waitFor(t, 5*time.Second, func() bool { return q.Status().Completed == 1 })

	job := q.JobStatus(id)
	if job.RetryCount != 1 {
		t.Errorf("RetryCount = %d, want 1", job.RetryCount)
	}
	if job.Status != StatusCompleted {
		t.Errorf("Status = %q, want completed", job.Status)
	}
}

func TestQueueRetryExhaustion(t *testing.T) {
	q := NewQueue(&mockAnalyzer{}, &mockItemRepository{}, 1)
	q.ctx, q.cancel = context.WithCancel(context.Background())
	defer q.cancel()

	job := &Job{
		ID:         "job-1",
		ItemID:     "item-1",
		Priority:   PriorityNormal,
		Status:     StatusProcessing,
		RetryCount: jobMaxRetries - 1,
	}
	q.jobs[job.ID] = job
	q.active = 1

	q.complete(job, errors.New("persistent failure"))

	if job.Status != StatusFailed {
		t.Errorf("Status = %q, want failed", job.Status)
	}
	if job.RetryCount != jobMaxRetries {
		t.Errorf("RetryCount = %d, want %d", job.RetryCount, jobMaxRetries)
	}
	if job.CompletedAt == nil {
		t.Error("CompletedAt not set on failed job")
	}
	if job.LastError == "" {
		t.Error("LastError not recorded")
	}
	if q.Status().Failed != 1 {
		t.Errorf("Failed count = %d, want 1", q.Status().Failed)
	}
}

func TestQueueMissingItemFails(t *testing.T) {
	items := &mockItemRepository{
		getItemFunc: func(id string) (*database.Item, error) { return nil, nil },
	}

	q := NewQueue(&mockAnalyzer{}, items, 1)
	q.ctx, q.cancel = context.WithCancel(context.Background())
	defer q.cancel()

	if err := q.execute(context.Background(), &Job{ItemID: "gone"}); err == nil {
		t.Error("execute() on a missing item, want error")
	}
}

func TestQueueTerminalRetention(t *testing.T) {
	q := NewQueue(&mockAnalyzer{}, &mockItemRepository{}, 1)

	q.mu.Lock()
	for i := 0; i < terminalRetention+10; i++ {
		job := &Job{ID: fmt.Sprintf("job-%d", i), Status: StatusCompleted}
		q.jobs[job.ID] = job
		q.markTerminalLocked(job)
	}
	q.mu.Unlock()

	if len(q.terminal) != terminalRetention {
		t.Errorf("terminal length = %d, want %d", len(q.terminal), terminalRetention)
	}

	// The oldest entries are pruned, the newest retained.
	if q.JobStatus("job-0") != nil {
		t.Error("oldest job still retained past the cap")
	}
	if q.JobStatus(fmt.Sprintf("job-%d", terminalRetention+9)) == nil {
		t.Error("newest job was pruned")
	}
}

func TestQueueStatusUnknownJob(t *testing.T) {
	q := NewQueue(&mockAnalyzer{}, &mockItemRepository{}, 1)
	if q.JobStatus("nope") != nil {
		t.Error("JobStatus() for unknown id, want nil")
	}
}

func TestQueueStartStopIdempotent(t *testing.T) {
	q := NewQueue(&mockAnalyzer{}, &mockItemRepository{}, 1)
	q.Start()
	q.Start()
	q.Stop()
	q.Stop()
}
