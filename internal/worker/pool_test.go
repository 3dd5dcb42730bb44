package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
)

type testJob struct {
	id      int
	counter *int64
	fail    bool
}

type testResult struct {
	id  int
	err error
}

func (r *testResult) GetError() error { return r.err }

func (j *testJob) Execute(ctx context.Context) Result {
	atomic.AddInt64(j.counter, 1)
	if j.fail {
		return &testResult{id: j.id, err: fmt.Errorf("job %d failed", j.id)}
	}
	return &testResult{id: j.id}
}

func TestPoolExecutesAllJobs(t *testing.T) {
	pool := NewPool(4)
	pool.Start()

	var counter int64
	for i := 0; i < 20; i++ {
		pool.Submit(&testJob{id: i, counter: &counter})
	}

	results := pool.Wait()

	if len(results) != 20 {
		t.Errorf("Expected 20 results, got %d", len(results))
	}
	if atomic.LoadInt64(&counter) != 20 {
		t.Errorf("Expected 20 executions, got %d", counter)
	}
}

func TestPoolCollectsErrors(t *testing.T) {
	pool := NewPool(2)
	pool.Start()

	var counter int64
	pool.Submit(&testJob{id: 0, counter: &counter})
	pool.Submit(&testJob{id: 1, counter: &counter, fail: true})

	results := pool.Wait()

	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}

	errorCount := 0
	for _, r := range results {
		if r.GetError() != nil {
			errorCount++
		}
	}
	if errorCount != 1 {
		t.Errorf("Expected 1 error, got %d", errorCount)
	}
}

func TestPoolDefaultsToOneWorker(t *testing.T) {
	pool := NewPool(0)
	pool.Start()

	var counter int64
	pool.Submit(&testJob{id: 0, counter: &counter})

	results := pool.Wait()
	if len(results) != 1 {
		t.Errorf("Expected 1 result, got %d", len(results))
	}
}
