// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package msgqueue provides the bounded FIFO that hands framed messages
// from the transport goroutine to the decoding goroutine.
package msgqueue

import "sync"

// DefaultCapacity is the default number of queue slots
const DefaultCapacity = 4096

// Queue is a bounded multi-producer/single-consumer FIFO of messages.
// A single mutex guards both cursors and the slot contents.
type Queue struct {
	mu      sync.Mutex
	slots   [][]byte
	head    int // next slot to pop
	tail    int // next slot to push
	count   int
	dropped uint64
}

// New creates a queue with the given capacity. Panics if capacity is not positive.
func New(capacity int) *Queue {
	if capacity <= 0 {
		panic("msgqueue: capacity must be positive")
	}
	return &Queue{slots: make([][]byte, capacity)}
}

// Push appends a copy of msg. It never blocks: when the queue is full the
// message is dropped and Push returns false.
func (q *Queue) Push(msg []byte) bool {
	owned := make([]byte, len(msg))
	copy(owned, msg)

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == len(q.slots) {
		q.dropped++
		return false
	}
	q.slots[q.tail] = owned
	q.tail = (q.tail + 1) % len(q.slots)
	q.count++
	return true
}

// Pop removes and returns the oldest message, or false when empty
func (q *Queue) Pop() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return nil, false
	}
	return q.popLocked(), true
}

// PopAll atomically drains the queue, oldest first. Returns nil when empty.
func (q *Queue) PopAll() [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return nil
	}
	msgs := make([][]byte, 0, q.count)
	for q.count > 0 {
		msgs = append(msgs, q.popLocked())
	}
	return msgs
}

func (q *Queue) popLocked() []byte {
	msg := q.slots[q.head]
	q.slots[q.head] = nil
	q.head = (q.head + 1) % len(q.slots)
	q.count--
	return msg
}

// Len returns the number of queued messages
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap returns the queue capacity
func (q *Queue) Cap() int {
	return len(q.slots)
}

// Dropped returns how many messages were dropped because the queue was full
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
