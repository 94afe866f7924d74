// Copyright (c) 2024 The relaynode developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package reconnect

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestScheduleRunsAfterDelay(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var mu sync.Mutex
	var ran bool
	s.Schedule(10*time.Millisecond, func() {
		mu.Lock()
		ran = true
		mu.Unlock()
	})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return ran
	}, time.Second, 5*time.Millisecond)
}

func TestCancelBeforeFirePreventsRun(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var mu sync.Mutex
	var ran bool
	task := s.Schedule(20*time.Millisecond, func() {
		mu.Lock()
		ran = true
		mu.Unlock()
	})
	task.Cancel()

	time.Sleep(60 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.False(t, ran, "a cancelled task must never run")
}

func TestTasksRunInDeadlineOrder(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var mu sync.Mutex
	var order []int

	s.Schedule(30*time.Millisecond, func() {
		mu.Lock()
		order = append(order, 2)
		mu.Unlock()
	})
	s.Schedule(10*time.Millisecond, func() {
		mu.Lock()
		order = append(order, 1)
		mu.Unlock()
	})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 2
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{1, 2}, order)
}
