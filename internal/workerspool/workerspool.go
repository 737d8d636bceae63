// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package workerspool implements the bounded pool of goroutines used by the parallel graph executor.
package workerspool

import (
	"runtime"
	"sync/atomic"
)

// Pool limits the number of tasks running concurrently.
//
// A Pool with maxParallelism 0 is disabled, and one with maxParallelism < 0 has no limit.
type Pool struct {
	maxParallelism int

	// slots has capacity maxParallelism: a task holds one slot while running.
	slots chan struct{}

	numStarted atomic.Int64
}

// New returns a new Pool of workers with the default parallelism (runtime.NumCPU()).
func New() *Pool {
	return NewWithParallelism(runtime.NumCPU())
}

// NewWithParallelism returns a new Pool with the given maxParallelism.
// If set to 0 parallelism is disabled. If set to -1 parallelism is unlimited.
func NewWithParallelism(maxParallelism int) *Pool {
	w := &Pool{maxParallelism: maxParallelism}
	if maxParallelism > 0 {
		w.slots = make(chan struct{}, maxParallelism)
	}
	return w
}

// IsEnabled returns whether parallelism is enabled (maxParallelism is != 0)
func (w *Pool) IsEnabled() bool {
	return w.maxParallelism != 0
}

// IsUnlimited returns whether parallelism is unlimited (maxParallelism < 0)
func (w *Pool) IsUnlimited() bool {
	return w.maxParallelism < 0
}

// MaxParallelism returns the limit of concurrent tasks: 0 for disabled, -1 for unlimited.
func (w *Pool) MaxParallelism() int {
	return w.maxParallelism
}

// NumStarted returns the number of tasks started in a separate goroutine so far.
func (w *Pool) NumStarted() int64 {
	return w.numStarted.Load()
}

func (w *Pool) runInGoroutine(task func(), holdsSlot bool) {
	w.numStarted.Add(1)
	go func() {
		defer func() {
			if holdsSlot {
				<-w.slots
			}
		}()
		task()
	}()
}

// StartIfAvailable runs the task in a separate goroutine, if there are enough workers left.
// It returns true if it found workers to run the function, false otherwise: the caller usually runs
// the task inline then. It always returns false if parallelism is disabled.
//
// It's up to the client to synchronize the end of the function execution.
func (w *Pool) StartIfAvailable(task func()) bool {
	switch {
	case w.IsUnlimited():
		w.runInGoroutine(task, false)
		return true
	case !w.IsEnabled():
		return false
	}
	select {
	case w.slots <- struct{}{}:
		w.runInGoroutine(task, true)
		return true
	default:
		return false
	}
}
