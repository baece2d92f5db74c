package noise

import (
	"errors"
	"fmt"
	"sync"

	"github.com/flynn/noise"
	"github.com/opd-ai/utox/limits"
)

// ErrDecryptFailed is returned for a message that fails authentication.
var ErrDecryptFailed = errors.New("noise: message authentication failed")

// Session carries messages over a completed handshake. Encrypt and
// Decrypt are safe for concurrent use; each direction has its own nonce
// sequence, so messages must be decrypted in the order they were encrypted.
type Session struct {
	sendMu sync.Mutex
	send   *noise.CipherState

	recvMu sync.Mutex
	recv   *noise.CipherState

	peer [32]byte
}

// NewSession returns the session established by a completed handshake.
func NewSession(ik *IKHandshake) (*Session, error) {
	if !ik.IsComplete() {
		return nil, ErrHandshakeNotComplete
	}
	peer, err := ik.RemoteStaticKey()
	if err != nil {
		return nil, err
	}
	return &Session{send: ik.sendCipher, recv: ik.recvCipher, peer: peer}, nil
}

// Peer returns the static public key of the other side.
func (s *Session) Peer() [32]byte {
	return s.peer
}

// Encrypt seals one plaintext message.
func (s *Session) Encrypt(plaintext []byte) ([]byte, error) {
	if err := limits.ValidatePlaintextMessage(plaintext); err != nil {
		return nil, err
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	out, err := s.send.Encrypt(nil, nil, plaintext)
	if err != nil {
		return nil, fmt.Errorf("noise encrypt: %w", err)
	}
	return out, nil
}

// Decrypt opens one sealed message.
func (s *Session) Decrypt(ciphertext []byte) ([]byte, error) {
	if err := limits.ValidateEncryptedMessage(ciphertext); err != nil {
		return nil, err
	}

	s.recvMu.Lock()
	defer s.recvMu.Unlock()
	out, err := s.recv.Decrypt(nil, nil, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	return out, nil
}

// Handshake runs a complete IK exchange between two in-process peers and
// returns the initiator and responder sessions. It is used where both ends
// live in one process, such as the loopback network.
func Handshake(initiator, responder *IKHandshake) (*Session, *Session, error) {
	first, _, err := initiator.WriteMessage(nil, nil)
	if err != nil {
		return nil, nil, err
	}
	second, _, err := responder.WriteMessage(nil, first)
	if err != nil {
		return nil, nil, err
	}
	if _, _, err := initiator.ReadMessage(second); err != nil {
		return nil, nil, err
	}

	a, err := NewSession(initiator)
	if err != nil {
		return nil, nil, err
	}
	b, err := NewSession(responder)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}
