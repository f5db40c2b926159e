// Copyright 2024 The Vesta Authors
// This file is part of Vesta.
//
// Vesta is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Vesta is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Vesta. If not, see <http://www.gnu.org/licenses/>.

package lock

import (
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutualExclusion(t *testing.T) {
	l := New(false)
	var active int32
	var maxActive int32
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(writer bool) {
			defer wg.Done()
			if writer {
				l.AcquireWrite()
				defer l.ReleaseWrite()
			} else {
				l.AcquireRead()
				defer l.ReleaseRead()
			}
			n := atomic.AddInt32(&active, 1)
			for {
				old := atomic.LoadInt32(&maxActive)
				if n <= old || atomic.CompareAndSwapInt32(&maxActive, old, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
		}(i%3 == 0)
	}
	wg.Wait()

	// Writers can never overlap with anything, but many readers can
	// overlap, so we can't assert maxActive == 1 in general; instead
	// confirm the invariant directly with a dedicated check below.
	assert.GreaterOrEqual(t, maxActive, int32(1))
}

func TestWriterExclusivity(t *testing.T) {
	l := New(false)
	var writerHeld int32
	var readerHeld int32
	var violations int32
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(writer bool) {
			defer wg.Done()
			if writer {
				l.AcquireWrite()
				if atomic.LoadInt32(&readerHeld) > 0 || atomic.LoadInt32(&writerHeld) > 0 {
					atomic.AddInt32(&violations, 1)
				}
				atomic.AddInt32(&writerHeld, 1)
				time.Sleep(time.Microsecond * 200)
				atomic.AddInt32(&writerHeld, -1)
				l.ReleaseWrite()
			} else {
				l.AcquireRead()
				if atomic.LoadInt32(&writerHeld) > 0 {
					atomic.AddInt32(&violations, 1)
				}
				atomic.AddInt32(&readerHeld, 1)
				time.Sleep(time.Microsecond * 200)
				atomic.AddInt32(&readerHeld, -1)
				l.ReleaseRead()
			}
		}(i%4 == 0)
	}
	wg.Wait()

	assert.Zero(t, violations)
}

func TestNoStarvationFIFO(t *testing.T) {
	l := New(false)
	l.AcquireWrite() // hold the lock so every goroutine below queues up

	const n = 20
	order := make([]int, 0, n)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l.AcquireWrite()
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			l.ReleaseWrite()
		}(i)
		time.Sleep(time.Millisecond) // encourage arrival in index order
	}

	l.ReleaseWrite()
	wg.Wait()

	require.Len(t, order, n)
	// Every waiter eventually ran, each exactly once. The sleeps above only
	// encourage index-order arrival, so the run order itself is not
	// asserted.
	sorted := append([]int(nil), order...)
	sort.Ints(sorted)
	for i := range sorted {
		assert.Equal(t, i, sorted[i])
	}
}

func TestTryWriteFailsIffHeldOrWaiting(t *testing.T) {
	l := New(false)
	assert.True(t, l.TryWrite())
	assert.False(t, l.TryWrite())
	l.ReleaseWrite()

	assert.True(t, l.TryRead())
	assert.False(t, l.TryWrite())
	l.ReleaseRead()

	assert.True(t, l.TryWrite())
	l.ReleaseWrite()

	// With the write lock held and a second writer queued behind it,
	// TryWrite fails.
	l.AcquireWrite()
	done := make(chan struct{})
	go func() {
		l.AcquireWrite()
		l.ReleaseWrite()
		close(done)
	}()
	time.Sleep(5 * time.Millisecond) // let the goroutine enqueue
	assert.False(t, l.TryWrite())
	l.ReleaseWrite()
	<-done
}

func TestReleasePolymorphicDispatch(t *testing.T) {
	l := New(false)
	l.AcquireWrite()
	assert.True(t, l.Release())

	l.AcquireRead()
	assert.False(t, l.Release())
}
