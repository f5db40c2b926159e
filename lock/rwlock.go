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

// Package lock implements the repository's queued, FIFO-fair
// readers/writers lock. There can be many readers, one writer, or neither,
// but never both at once; waiters are served strictly in arrival order.
package lock

import "sync"

// node is one entry in the wait queue: either a single writer, or a group
// of readers that arrived consecutively behind the same head of queue and
// so share one wakeup.
type node struct {
	writer       bool
	waitingCount int
	cond         *sync.Cond
	next         *node
}

// RWLock is a fine-grained readers/writers lock used to serialize mutating
// steps against a repository's state. The zero value is not usable; use
// New.
type RWLock struct {
	mu   sync.Mutex
	cond *sync.Cond

	readers int
	writers int

	head, tail *node

	// favorWriters selects whether a new reader should block behind a
	// queued writer rather than joining an in-progress reader group. It is
	// accepted for construction-time parity with the original lock but,
	// matching the grounding source, tryRead's behavior (refusing to run
	// ahead of any queued waiter, writer or not) already favors writers
	// regardless of this flag's value.
	favorWriters bool
}

// New returns a ready-to-use RWLock. favorWriters records the caller's
// preference; see the RWLock.favorWriters field comment.
func New(favorWriters bool) *RWLock {
	l := &RWLock{favorWriters: favorWriters}
	l.cond = sync.NewCond(&l.mu)
	return l
}

func (l *RWLock) newNode(writer bool) *node {
	n := &node{writer: writer, cond: l.cond}
	if l.head == nil {
		l.head = n
	} else {
		l.tail.next = n
	}
	l.tail = n
	return n
}

// waitTurn blocks until n is at the head of the queue and the lock state
// satisfies ready, then removes n from the queue once the last thread
// waiting on it has been released.
func (l *RWLock) waitTurn(n *node, ready func() bool) {
	n.waitingCount++
	for !(n == l.head && ready()) {
		l.cond.Wait()
	}
	n.waitingCount--
	if n.waitingCount == 0 {
		l.head = l.head.next
		if l.head == nil {
			l.tail = nil
		}
	}
}

// AcquireRead blocks until a read lock can be granted.
func (l *RWLock) AcquireRead() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.writers > 0 || l.head != nil {
		var n *node
		if l.tail != nil && !l.tail.writer {
			n = l.tail
		} else {
			n = l.newNode(false)
		}
		l.waitTurn(n, func() bool { return l.writers == 0 })
	}
	l.readers++
}

// ReleaseRead releases one reader's hold on the lock.
func (l *RWLock) ReleaseRead() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.readers <= 0 {
		panic("lock: ReleaseRead without a held read lock")
	}
	l.readers--
	if l.readers == 0 && l.head != nil {
		l.cond.Broadcast()
	}
}

// AcquireWrite blocks until the write lock can be granted.
func (l *RWLock) AcquireWrite() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.readers > 0 || l.writers > 0 || l.head != nil {
		n := l.newNode(true)
		l.waitTurn(n, func() bool { return l.readers == 0 && l.writers == 0 })
	}
	l.writers++
}

// ReleaseWrite releases the write lock.
func (l *RWLock) ReleaseWrite() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.writers != 1 {
		panic("lock: ReleaseWrite without a held write lock")
	}
	l.writers = 0
	if l.head != nil {
		l.cond.Broadcast()
	}
}

// TryRead acquires a read lock only if it can do so immediately: no writer
// holds the lock, and no thread (reader or writer) is already waiting.
func (l *RWLock) TryRead() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.writers > 0 || l.head != nil {
		return false
	}
	l.readers++
	return true
}

// TryWrite acquires a write lock only if it can do so immediately: nobody
// holds the lock, and no thread is already waiting.
func (l *RWLock) TryWrite() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.readers > 0 || l.writers > 0 || l.head != nil {
		return false
	}
	l.writers++
	return true
}

// Release releases whichever side of the lock the caller holds: the write
// lock if held, otherwise one reader's hold. It reports whether a write
// lock was released.
func (l *RWLock) Release() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	hadWrite := l.writers > 0
	if hadWrite {
		l.writers = 0
	} else {
		if l.readers <= 0 {
			panic("lock: Release with neither side held")
		}
		l.readers--
	}

	if l.head != nil && (hadWrite || l.readers == 0) {
		l.cond.Broadcast()
	}
	return hadWrite
}
