package bus

import (
	"github.com/sirupsen/logrus"
)

// Mailbox is the holding area of one destination. It accepts records from
// any number of producers and is drained by exactly one consumer.
type Mailbox[K Kind] interface {
	// Post stores msg and signals Ready. It never blocks. It returns false
	// when msg was not accepted, either because a kill was posted before,
	// because the mailbox is closed, or because the overflow policy dropped
	// msg. A refused record is released by the mailbox.
	Post(msg Message[K]) bool

	// Take removes and returns the next pending record. The boolean is
	// false when nothing is pending.
	Take() (Message[K], bool)

	// Ready is signalled after every accepted Post. A consumer that finds
	// Take empty waits on Ready before trying again.
	Ready() <-chan struct{}

	// Len returns the number of pending records.
	Len() int

	// Stats returns a snapshot of the mailbox counters.
	Stats() MailboxStats

	// Close refuses every later Post and releases the pending records.
	Close()
}

// MailboxMode selects the Mailbox implementation.
type MailboxMode uint8

const (
	// ModeQueue selects QueueMailbox, a bounded FIFO.
	ModeQueue MailboxMode = iota
	// ModeSlot selects SlotMailbox, the single-slot overwrite mailbox.
	ModeSlot
)

func (m MailboxMode) String() string {
	switch m {
	case ModeQueue:
		return "queue"
	case ModeSlot:
		return "slot"
	}
	return "unknown"
}

// ParseMailboxMode converts the configuration spelling of a mode.
// Unknown values select ModeQueue.
func ParseMailboxMode(s string) MailboxMode {
	if s == "slot" {
		return ModeSlot
	}
	return ModeQueue
}

// OverflowPolicy decides which record a full QueueMailbox discards.
type OverflowPolicy uint8

const (
	// DropOldest evicts the oldest pending record to admit the new one.
	DropOldest OverflowPolicy = iota
	// DropNewest refuses the new record. A kill is still admitted by
	// evicting the oldest record.
	DropNewest
)

func (p OverflowPolicy) String() string {
	if p == DropNewest {
		return "drop-newest"
	}
	return "drop-oldest"
}

// DefaultQueueCapacity is the capacity of a QueueMailbox when none is set.
const DefaultQueueCapacity = 64

// MailboxOptions configures the mailboxes created by a Dispatcher.
type MailboxOptions struct {
	Mode     MailboxMode
	Capacity int
	Overflow OverflowPolicy
}

// NewMailboxOptions returns the default options: a FIFO of
// DefaultQueueCapacity records dropping the oldest on overflow.
func NewMailboxOptions() *MailboxOptions {
	return &MailboxOptions{
		Mode:     ModeQueue,
		Capacity: DefaultQueueCapacity,
		Overflow: DropOldest,
	}
}

// MailboxStats counts what happened to the records of a mailbox.
type MailboxStats struct {
	Posted      uint64 // accepted by Post
	Taken       uint64 // returned by Take
	Overwritten uint64 // lost to a later Post in slot mode
	Dropped     uint64 // discarded by the overflow policy
	Refused     uint64 // rejected after kill or Close
}

// NewMailbox creates the mailbox selected by opts. A nil opts selects the
// defaults.
func NewMailbox[K Kind](name string, opts *MailboxOptions) Mailbox[K] {
	if opts == nil {
		opts = NewMailboxOptions()
	}
	if opts.Mode == ModeSlot {
		return NewSlotMailbox[K](name)
	}
	return NewQueueMailbox[K](name, opts.Capacity, opts.Overflow)
}

// signal performs a non-blocking send on a 1-buffered notification channel.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// discard logs and releases a record the mailbox will never deliver.
func discard[K Kind](mailbox, reason string, msg Message[K]) {
	logrus.WithFields(logrus.Fields{
		"function": "Mailbox.Post",
		"mailbox":  mailbox,
		"reason":   reason,
		"kind":     msg.Kind.String(),
		"param1":   msg.Param1,
		"param2":   msg.Param2,
		"msg_id":   msg.ID.String(),
	}).Warn("Mailbox discarded record")
	msg.Release()
}
