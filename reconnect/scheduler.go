// Copyright (c) 2024 The relaynode developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package reconnect implements the single-threaded timer service that
// drives every 1-second delayed reconnect in the relay (trusted-peer
// dual sessions, relay-peer client, outbound P2P peers). A single
// goroutine services all scheduled tasks rather than one timer per peer,
// per spec §9's design note.
package reconnect

import (
	"container/heap"
	"sync"
	"sync/atomic"
	"time"
)

// Task is a cancellable scheduled unit of work.
type Task struct {
	cancelled atomic.Bool
}

// Cancel prevents Task's Run function from firing if it has not already.
// Safe to call more than once, safe to call after the task has fired, and
// safe to call concurrently with the scheduler's own goroutine deciding
// whether to run it.
func (t *Task) Cancel() {
	t.cancelled.Store(true)
}

type taskEntry struct {
	at    time.Time
	run   func()
	task  *Task
	index int
}

type taskHeap []*taskEntry

func (h taskHeap) Len() int            { return len(h) }
func (h taskHeap) Less(i, j int) bool  { return h[i].at.Before(h[j].at) }
func (h taskHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index, h[j].index = i, j }
func (h *taskHeap) Push(x interface{}) { *h = append(*h, x.(*taskEntry)) }
func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// Scheduler is a single-threaded delayed-task runner.
type Scheduler struct {
	mu      sync.Mutex
	heap    taskHeap
	wake    chan struct{}
	quit    chan struct{}
	stopped bool
}

// NewScheduler starts the scheduler's background goroutine.
func NewScheduler() *Scheduler {
	s := &Scheduler{
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
	}
	go s.loop()
	return s
}

// Stop halts the scheduler; no further scheduled tasks will run.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	close(s.quit)
}

// Schedule runs fn after delay, unless the returned Task is cancelled
// first.
func (s *Scheduler) Schedule(delay time.Duration, fn func()) *Task {
	task := &Task{}
	e := &taskEntry{at: time.Now().Add(delay), run: fn, task: task}

	s.mu.Lock()
	heap.Push(&s.heap, e)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return task
}

func (s *Scheduler) loop() {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		s.mu.Lock()
		var wait time.Duration
		if len(s.heap) == 0 {
			wait = time.Hour
		} else {
			wait = time.Until(s.heap[0].at)
			if wait < 0 {
				wait = 0
			}
		}
		s.mu.Unlock()

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-s.quit:
			return
		case <-s.wake:
			continue
		case <-timer.C:
			s.runDue()
		}
	}
}

func (s *Scheduler) runDue() {
	now := time.Now()
	var due []*taskEntry

	s.mu.Lock()
	for len(s.heap) > 0 && !s.heap[0].at.After(now) {
		e := heap.Pop(&s.heap).(*taskEntry)
		due = append(due, e)
	}
	s.mu.Unlock()

	for _, e := range due {
		if e.task.cancelled.Load() {
			continue
		}
		e.run()
	}
}
