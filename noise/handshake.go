// Package noise establishes encrypted sessions between two peers with the
// Noise IK pattern. The initiator knows the responder's static key in
// advance, which holds for friends whose Tox ID was exchanged.
package noise

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/flynn/noise"
	"github.com/opd-ai/utox/crypto"
)

var (
	// ErrHandshakeNotComplete indicates handshake is still in progress
	ErrHandshakeNotComplete = errors.New("handshake not complete")
	// ErrHandshakeComplete indicates handshake is already complete
	ErrHandshakeComplete = errors.New("handshake already complete")
	// ErrWrongRole indicates an operation reserved to the other handshake role
	ErrWrongRole = errors.New("operation not valid for handshake role")
)

// HandshakeRole defines whether we're initiating or responding to handshake
type HandshakeRole uint8

const (
	// Initiator starts the handshake (knows peer's static key)
	Initiator HandshakeRole = iota
	// Responder responds to handshake initiation
	Responder
)

func (r HandshakeRole) String() string {
	if r == Initiator {
		return "initiator"
	}
	return "responder"
}

var cipherSuite = noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashSHA256)

// IKHandshake implements the Noise IK pattern.
//
//	-> e, es, s, ss
//	<- e, ee, se
type IKHandshake struct {
	role       HandshakeRole
	state      *noise.HandshakeState
	sendCipher *noise.CipherState
	recvCipher *noise.CipherState
	complete   bool
}

// NewIKHandshake creates a new IK pattern handshake. keys is our long-term
// key pair. peerPublicKey is required for the initiator and ignored for the
// responder.
func NewIKHandshake(keys *crypto.KeyPair, peerPublicKey []byte, role HandshakeRole) (*IKHandshake, error) {
	if keys == nil {
		return nil, errors.New("static key pair required")
	}
	if role == Initiator && len(peerPublicKey) != 32 {
		return nil, fmt.Errorf("initiator requires peer public key (32 bytes), got %d", len(peerPublicKey))
	}

	staticKey := noise.DHKey{
		Private: append([]byte(nil), keys.Private[:]...),
		Public:  append([]byte(nil), keys.Public[:]...),
	}

	config := noise.Config{
		CipherSuite:   cipherSuite,
		Random:        rand.Reader,
		Pattern:       noise.HandshakeIK,
		Initiator:     role == Initiator,
		StaticKeypair: staticKey,
	}
	if role == Initiator {
		config.PeerStatic = append([]byte(nil), peerPublicKey...)
	}

	state, err := noise.NewHandshakeState(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create handshake state: %w", err)
	}
	return &IKHandshake{role: role, state: state}, nil
}

// WriteMessage produces the next handshake message. The initiator writes
// the first message and passes a nil receivedMessage. The responder passes
// the initiator's message, reads it and writes its response, which
// completes the handshake on its side.
func (ik *IKHandshake) WriteMessage(payload, receivedMessage []byte) ([]byte, bool, error) {
	if ik.complete {
		return nil, false, ErrHandshakeComplete
	}

	if ik.role == Initiator {
		message, _, _, err := ik.state.WriteMessage(nil, payload)
		if err != nil {
			return nil, false, fmt.Errorf("initiator write failed: %w", err)
		}
		return message, false, nil
	}

	if receivedMessage == nil {
		return nil, false, errors.New("responder requires received message")
	}
	if _, _, _, err := ik.state.ReadMessage(nil, receivedMessage); err != nil {
		return nil, false, fmt.Errorf("responder read failed: %w", err)
	}

	// The responder's send cipher is the second state returned.
	message, recv, send, err := ik.state.WriteMessage(nil, payload)
	if err != nil {
		return nil, false, fmt.Errorf("responder write failed: %w", err)
	}
	ik.sendCipher, ik.recvCipher = send, recv
	ik.complete = true
	return message, true, nil
}

// ReadMessage processes the responder's answer on the initiator side and
// returns its payload.
func (ik *IKHandshake) ReadMessage(message []byte) ([]byte, bool, error) {
	if ik.complete {
		return nil, false, ErrHandshakeComplete
	}
	if ik.role != Initiator {
		return nil, false, ErrWrongRole
	}

	payload, send, recv, err := ik.state.ReadMessage(nil, message)
	if err != nil {
		return nil, false, fmt.Errorf("initiator read response failed: %w", err)
	}
	ik.sendCipher, ik.recvCipher = send, recv
	ik.complete = true
	return payload, true, nil
}

// IsComplete returns true if handshake is finished and cipher states are available.
func (ik *IKHandshake) IsComplete() bool {
	return ik.complete
}

// Role returns the role of this side.
func (ik *IKHandshake) Role() HandshakeRole {
	return ik.role
}

// RemoteStaticKey returns the peer's static public key. On the responder
// it is learned from the first message.
func (ik *IKHandshake) RemoteStaticKey() ([32]byte, error) {
	var key [32]byte
	if !ik.complete {
		return key, ErrHandshakeNotComplete
	}
	copy(key[:], ik.state.PeerStatic())
	return key, nil
}
