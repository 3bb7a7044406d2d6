// Package util provides the bounded worker pool that caps concurrent
// detector calls across all running analyses.
package util

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Task represents a unit of work to be executed
type Task func()

// DetectionPool is a fixed-size worker pool. Frame detection tasks from all
// concurrent analyses share it, so detector load stays bounded no matter how
// many uploads are in flight.
type DetectionPool struct {
	workers   int32
	taskQueue chan Task
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	stats     *PoolStats
}

// PoolStats tracks pool activity for the status endpoint
type PoolStats struct {
	TasksSubmitted int64 `json:"tasks_submitted"`
	TasksCompleted int64 `json:"tasks_completed"`
	ActiveWorkers  int32 `json:"active_workers"`
	QueueLength    int32 `json:"queue_length"`
	TotalWorkers   int32 `json:"total_workers"`
}

// NewDetectionPool creates and starts a pool with the given number of
// workers
func NewDetectionPool(workers int, queueSize int) *DetectionPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if queueSize <= 0 {
		queueSize = workers * 4
	}

	ctx, cancel := context.WithCancel(context.Background())

	p := &DetectionPool{
		workers:   int32(workers),
		taskQueue: make(chan Task, queueSize),
		ctx:       ctx,
		cancel:    cancel,
		stats:     &PoolStats{},
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	return p
}

// Submit queues a task, blocking while the queue is full. It reports false
// once the pool has been shut down; the caller must then run or drop the
// task itself.
func (p *DetectionPool) Submit(task Task) bool {
	if task == nil {
		return false
	}

	select {
	case p.taskQueue <- task:
		atomic.AddInt64(&p.stats.TasksSubmitted, 1)
		return true
	case <-p.ctx.Done():
		return false
	}
}

// worker executes tasks until the pool shuts down, then drains whatever is
// still queued so submitted tasks always run
func (p *DetectionPool) worker() {
	defer p.wg.Done()

	for {
		select {
		case task := <-p.taskQueue:
			p.run(task)
		case <-p.ctx.Done():
			for {
				select {
				case task := <-p.taskQueue:
					p.run(task)
				default:
					return
				}
			}
		}
	}
}

// run executes one task with panic recovery so a misbehaving detector call
// cannot kill a worker
func (p *DetectionPool) run(task Task) {
	if task == nil {
		return
	}

	atomic.AddInt32(&p.stats.ActiveWorkers, 1)
	defer func() {
		if r := recover(); r != nil {
			// The frame is still counted as completed and surfaces as a
			// miss upstream
			_ = r
		}
		atomic.AddInt32(&p.stats.ActiveWorkers, -1)
		atomic.AddInt64(&p.stats.TasksCompleted, 1)
	}()

	task()
}

// GetStats returns a snapshot of pool activity
func (p *DetectionPool) GetStats() PoolStats {
	return PoolStats{
		TasksSubmitted: atomic.LoadInt64(&p.stats.TasksSubmitted),
		TasksCompleted: atomic.LoadInt64(&p.stats.TasksCompleted),
		ActiveWorkers:  atomic.LoadInt32(&p.stats.ActiveWorkers),
		QueueLength:    int32(len(p.taskQueue)),
		TotalWorkers:   atomic.LoadInt32(&p.workers),
	}
}

// Shutdown stops accepting tasks and waits up to timeout for in-flight and
// queued tasks to finish
func (p *DetectionPool) Shutdown(timeout time.Duration) {
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
	}
}
