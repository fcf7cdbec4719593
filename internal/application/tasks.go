package application

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TaskQueue 有界的尽力而为任务队列
// 离线时间、状态快照这类副作用不允许阻塞断连路径，
// 统一丢进队列异步执行，优雅停机时整体排空
// 停机期间断连清理仍会触发入队，closed 标记保证迟到的任务被丢弃而不是撞上已关闭的通道
type TaskQueue struct {
	mu     sync.Mutex
	tasks  chan func(context.Context)
	closed bool
	wg     sync.WaitGroup
}

// NewTaskQueue 创建并启动队列，size 是积压上限
func NewTaskQueue(size int) *TaskQueue {
	q := &TaskQueue{
		tasks: make(chan func(context.Context), size),
	}
	q.wg.Add(1)
	go q.run()
	return q
}

func (q *TaskQueue) run() {
	defer q.wg.Done()
	for task := range q.tasks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					zap.L().Error("task panic", zap.Any("recover", r))
				}
			}()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			task(ctx)
		}()
	}
}

// Enqueue 入队，队列满或已经开始排空时丢弃并记日志，绝不阻塞调用方
func (q *TaskQueue) Enqueue(task func(context.Context)) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		zap.L().Warn("task queue draining, dropping task")
		return
	}
	select {
	case q.tasks <- task:
	default:
		zap.L().Warn("task queue full, dropping task")
	}
}

// Drain 停止接收新任务并等待积压执行完，超时则放弃
func (q *TaskQueue) Drain(timeout time.Duration) {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		zap.L().Warn("task queue drain timeout")
	}
}
