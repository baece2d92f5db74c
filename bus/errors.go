package bus

import "errors"

var (
	// ErrUnknownKind is returned by handlers for a kind outside their taxonomy.
	ErrUnknownKind = errors.New("unknown message kind")

	// ErrPayloadMismatch indicates a payload variant that the kind does not accept.
	ErrPayloadMismatch = errors.New("payload does not match message kind")

	// ErrMailboxClosed indicates a post to a mailbox after kill or close.
	ErrMailboxClosed = errors.New("mailbox closed")

	// ErrJoinTimeout indicates that a worker did not terminate in time.
	ErrJoinTimeout = errors.New("worker did not terminate before timeout")

	// ErrAlreadyRunning indicates a second Run on the same loop.
	ErrAlreadyRunning = errors.New("loop already running")
)
