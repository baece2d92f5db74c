package bus

import (
	"fmt"

	"github.com/google/uuid"
)

// Message is the unit of work carried by a Mailbox: a kind tag, two
// kind-specific integer parameters and an optional payload.
//
// A Message is immutable once posted. The producer must not touch it or
// its payload after Post; the consumer owns it after Take.
type Message[K Kind] struct {
	// ID correlates the record across log lines.
	ID      uuid.UUID
	Kind    K
	Param1  uint32
	Param2  uint32
	Payload Payload
}

// NewMessage builds a record after checking that payload is the variant
// declared for kind. The error wraps ErrPayloadMismatch for a mismatch and
// ErrUnknownKind for an undeclared kind.
func NewMessage[K Kind](kind K, param1, param2 uint32, payload Payload) (Message[K], error) {
	if !kind.Valid() {
		return Message[K]{}, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	if !kind.Accepts(payload) {
		return Message[K]{}, fmt.Errorf("%w: %s does not carry %T", ErrPayloadMismatch, kind, payload)
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return Message[K]{}, fmt.Errorf("allocate message id: %w", err)
	}
	return Message[K]{
		ID:      id,
		Kind:    kind,
		Param1:  param1,
		Param2:  param2,
		Payload: payload,
	}, nil
}

// Release frees pooled resources held by the payload. Releasing a record
// without such resources is a no-op.
func (m Message[K]) Release() {
	if r, ok := m.Payload.(Releaser); ok {
		r.Release()
	}
}

// IsZero reports whether m is the zero record returned by an empty Take.
func (m Message[K]) IsZero() bool {
	return m.ID == uuid.Nil
}

func (m Message[K]) String() string {
	return fmt.Sprintf("%s(%d, %d) id=%s", m.Kind, m.Param1, m.Param2, m.ID)
}
