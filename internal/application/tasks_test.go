package application

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestTaskQueue_ExecutesAndDrains(t *testing.T) {
	q := NewTaskQueue(8)

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		q.Enqueue(func(context.Context) { ran.Add(1) })
	}

	q.Drain(2 * time.Second)

	if got := ran.Load(); got != 5 {
		t.Fatalf("expected all tasks executed before drain returned, got %d", got)
	}
}

func TestTaskQueue_EnqueueAfterDrainIsDropped(t *testing.T) {
	q := NewTaskQueue(4)
	q.Drain(time.Second)

	// 停机后断连清理仍会入队，必须静默丢弃而不是崩溃
	var ran atomic.Int32
	q.Enqueue(func(context.Context) { ran.Add(1) })

	// 重复排空也必须幂等
	q.Drain(time.Second)

	if got := ran.Load(); got != 0 {
		t.Fatalf("task enqueued after drain must be dropped, got %d runs", got)
	}
}

func TestTaskQueue_ConcurrentEnqueueDuringDrain(t *testing.T) {
	q := NewTaskQueue(16)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				q.Enqueue(func(context.Context) {})
			}
		}()
	}

	q.Drain(2 * time.Second)
	wg.Wait()
}

func TestTaskQueue_FullQueueDropsInsteadOfBlocking(t *testing.T) {
	q := NewTaskQueue(1)

	block := make(chan struct{})
	q.Enqueue(func(context.Context) { <-block })
	// 队列容量1：第一条可能已被worker取走，再塞两条保证打满
	q.Enqueue(func(context.Context) {})
	q.Enqueue(func(context.Context) {})

	done := make(chan struct{})
	go func() {
		q.Enqueue(func(context.Context) {})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("enqueue must never block the caller")
	}

	close(block)
	q.Drain(2 * time.Second)
}
