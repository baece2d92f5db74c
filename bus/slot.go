package bus

import "sync"

// SlotMailbox holds at most one pending record. A Post while a record is
// still pending overwrites it; the lost record is counted as Overwritten,
// logged and released.
type SlotMailbox[K Kind] struct {
	name string

	mu     sync.Mutex
	slot   Message[K]
	ready  bool
	closed bool
	stats  MailboxStats

	notify chan struct{}
}

// NewSlotMailbox creates an empty single-slot mailbox.
func NewSlotMailbox[K Kind](name string) *SlotMailbox[K] {
	return &SlotMailbox[K]{
		name:   name,
		notify: make(chan struct{}, 1),
	}
}

// Post implements Mailbox.
func (s *SlotMailbox[K]) Post(msg Message[K]) bool {
	s.mu.Lock()
	if s.closed {
		s.stats.Refused++
		s.mu.Unlock()
		discard(s.name, "closed", msg)
		return false
	}

	var lost Message[K]
	overwrote := s.ready
	if overwrote {
		lost = s.slot
		s.stats.Overwritten++
	}
	s.slot = msg
	s.ready = true
	s.stats.Posted++
	if msg.Kind.IsKill() {
		s.closed = true
	}
	s.mu.Unlock()

	if overwrote {
		discard(s.name, "overwritten", lost)
	}
	signal(s.notify)
	return true
}

// Take implements Mailbox.
func (s *SlotMailbox[K]) Take() (Message[K], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return Message[K]{}, false
	}
	msg := s.slot
	s.slot = Message[K]{}
	s.ready = false
	s.stats.Taken++
	return msg, true
}

// Ready implements Mailbox.
func (s *SlotMailbox[K]) Ready() <-chan struct{} {
	return s.notify
}

// Len implements Mailbox.
func (s *SlotMailbox[K]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return 1
	}
	return 0
}

// Stats implements Mailbox.
func (s *SlotMailbox[K]) Stats() MailboxStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Close implements Mailbox.
func (s *SlotMailbox[K]) Close() {
	s.mu.Lock()
	s.closed = true
	pending, had := s.slot, s.ready
	s.slot = Message[K]{}
	s.ready = false
	s.mu.Unlock()

	if had {
		discard(s.name, "closed", pending)
	}
}
