// Package bus implements the inter-worker command/event bus of the uTox
// client.
//
// The client runs one UI goroutine and exactly four backend workers: the
// protocol worker ("tox"), the audio worker, the video worker and the call
// orchestration worker ("toxav"). The UI posts commands to the workers and
// the workers post events back to the UI. Every direction is carried by a
// [Mailbox] holding [Message] records whose Kind belongs to a closed
// taxonomy:
//
//   - [ToxKind] for the protocol worker
//   - [AudioKind] for the audio worker
//   - [VideoKind] for the video worker
//   - [ToxAVKind] for the call orchestration worker
//   - [UIEvent] for events consumed by the UI
//
// Because each destination has its own kind type, posting a protocol
// command to the audio worker does not compile.
//
// # Posting
//
// The [Dispatcher] owns the five mailboxes and exposes one fire-and-forget
// entry point per destination:
//
//	d := bus.NewDispatcher(bus.NewMailboxOptions())
//	d.PostToAudio(bus.AudioSetInput, 3, 0, nil)
//	d.PostToNetwork(bus.ToxSendMessage, friendNumber, 0, bus.Text{Value: "hi"})
//
// A payload that does not match the variant declared for its kind is a
// programming error: the record is logged and abandoned.
//
// # Consuming
//
// A [Loop] drains a mailbox on a single goroutine and hands every record to
// a [Handler]. The loop blocks on [Mailbox.Ready] while idle, so there is no
// busy polling. The reserved kill kind of each command taxonomy (value 0)
// ends the loop after the handler's Teardown ran.
//
// # Mailbox modes
//
// Two mailbox implementations exist. [SlotMailbox] keeps the legacy
// single-slot behaviour where a post overwrites a pending record.
// [QueueMailbox] is a bounded FIFO with an explicit [OverflowPolicy] and is
// the default. In both modes a posted kill is sticky: later posts are
// refused, so a kill is always processed after every record accepted
// before it and before nothing else.
//
// # Ownership
//
// A record belongs to the producer until Post returns and to the consumer
// after Take returns. Payloads holding pooled buffers implement [Releaser];
// the consumer calls [Message.Release] when done, and a mailbox releases
// every record it overwrites, drops or refuses.
package bus
