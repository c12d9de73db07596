package workpool

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestPool_ParallelVisitsEveryIndexOnce(t *testing.T) {
	pool := New(4)
	defer pool.Stop()

	const n = 1000
	var hits [n]atomic.Int32
	pool.Parallel(n, func(i int) {
		hits[i].Add(1)
	})
	for i := range hits {
		if got := hits[i].Load(); got != 1 {
			t.Fatalf("index %d visited %d times, expected 1", i, got)
		}
	}
}

func TestPool_ParallelEmpty(t *testing.T) {
	pool := New(2)
	defer pool.Stop()
	called := false
	pool.Parallel(0, func(int) { called = true })
	if called {
		t.Error("Expected no calls for n = 0")
	}
}

func TestPool_SubmitAndWait(t *testing.T) {
	pool := New(3)
	var count atomic.Int32
	for i := 0; i < 50; i++ {
		if err := pool.Submit(func() { count.Add(1) }); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	pool.Wait()
	if count.Load() != 50 {
		t.Errorf("Completed tasks: got %d, expected 50", count.Load())
	}

	pool.Stop()
	if err := pool.Submit(func() {}); !errors.Is(err, ErrStopped) {
		t.Errorf("Expected ErrStopped after Stop, got %v", err)
	}
	pool.Stop()
}

func TestFuture_Result(t *testing.T) {
	pool := New(2)
	defer pool.Stop()

	ok := Go(pool, func() (int, error) { return 42, nil })
	failed := Go(pool, func() (string, error) { return "", errors.New("boom") })

	if v, err := ok.Wait(); v != 42 || err != nil {
		t.Errorf("Future: got (%d, %v), expected (42, nil)", v, err)
	}
	if _, err := failed.Wait(); err == nil {
		t.Error("Expected the task error")
	}
	if !ok.Ready() {
		t.Error("Expected a waited future to be ready")
	}
}

func TestFuture_StoppedPoolStillRuns(t *testing.T) {
	pool := New(1)
	pool.Stop()
	f := Go(pool, func() (int, error) { return 7, nil })
	if v, _ := f.Wait(); v != 7 {
		t.Errorf("Future on stopped pool: got %d, expected 7", v)
	}
}
