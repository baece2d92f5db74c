package bus

import "sync"

// QueueMailbox is a bounded FIFO mailbox. Producers never block: when the
// ring is full the OverflowPolicy discards a record, which is counted as
// Dropped, logged and released.
type QueueMailbox[K Kind] struct {
	name     string
	overflow OverflowPolicy

	mu     sync.Mutex
	ring   []Message[K]
	head   int
	count  int
	closed bool
	stats  MailboxStats

	notify chan struct{}
}

// NewQueueMailbox creates a FIFO mailbox holding up to capacity records.
// A capacity below one selects DefaultQueueCapacity.
func NewQueueMailbox[K Kind](name string, capacity int, overflow OverflowPolicy) *QueueMailbox[K] {
	if capacity < 1 {
		capacity = DefaultQueueCapacity
	}
	return &QueueMailbox[K]{
		name:     name,
		overflow: overflow,
		ring:     make([]Message[K], capacity),
		notify:   make(chan struct{}, 1),
	}
}

// Post implements Mailbox. After a kill was accepted every Post is
// refused, so the kill is always the last record of the queue.
func (q *QueueMailbox[K]) Post(msg Message[K]) bool {
	q.mu.Lock()
	if q.closed {
		q.stats.Refused++
		q.mu.Unlock()
		discard(q.name, "closed", msg)
		return false
	}

	var evicted Message[K]
	var didEvict bool
	if q.count == len(q.ring) {
		if q.overflow == DropNewest && !msg.Kind.IsKill() {
			q.stats.Dropped++
			q.mu.Unlock()
			discard(q.name, "queue full", msg)
			return false
		}
		evicted = q.popLocked()
		didEvict = true
		q.stats.Dropped++
	}

	q.ring[(q.head+q.count)%len(q.ring)] = msg
	q.count++
	q.stats.Posted++
	if msg.Kind.IsKill() {
		q.closed = true
	}
	q.mu.Unlock()

	if didEvict {
		discard(q.name, "queue full", evicted)
	}
	signal(q.notify)
	return true
}

// Take implements Mailbox.
func (q *QueueMailbox[K]) Take() (Message[K], bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return Message[K]{}, false
	}
	q.stats.Taken++
	return q.popLocked(), true
}

func (q *QueueMailbox[K]) popLocked() Message[K] {
	msg := q.ring[q.head]
	q.ring[q.head] = Message[K]{}
	q.head = (q.head + 1) % len(q.ring)
	q.count--
	return msg
}

// Ready implements Mailbox.
func (q *QueueMailbox[K]) Ready() <-chan struct{} {
	return q.notify
}

// Len implements Mailbox.
func (q *QueueMailbox[K]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap returns the capacity of the ring.
func (q *QueueMailbox[K]) Cap() int {
	return len(q.ring)
}

// Stats implements Mailbox.
func (q *QueueMailbox[K]) Stats() MailboxStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stats
}

// Close implements Mailbox.
func (q *QueueMailbox[K]) Close() {
	q.mu.Lock()
	q.closed = true
	pending := make([]Message[K], 0, q.count)
	for q.count > 0 {
		pending = append(pending, q.popLocked())
	}
	q.mu.Unlock()

	for _, msg := range pending {
		discard(q.name, "closed", msg)
	}
}
