// Package crypto provides the key material of a Tox identity: Curve25519
// key pairs, Tox IDs and the anonymous sealing used for friend requests.
//
// Example:
//
//	keys, err := crypto.GenerateKeyPair()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	id := crypto.NewToxID(keys.Public, crypto.NewNospam())
//	fmt.Println("Tox ID:", id)
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"
)

// ErrZeroSecretKey is returned for an all zero secret key.
var ErrZeroSecretKey = errors.New("invalid secret key: all zeros")

// KeyPair represents a NaCl crypto_box key pair used for Tox communications.
type KeyPair struct {
	Public  [32]byte
	Private [32]byte
}

// GenerateKeyPair creates a new random NaCl key pair.
func GenerateKeyPair() (*KeyPair, error) {
	publicKey, privateKey, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key pair: %w", err)
	}

	return &KeyPair{
		Public:  *publicKey,
		Private: *privateKey,
	}, nil
}

// FromSecretKey rebuilds a key pair from a stored secret key by deriving
// the Curve25519 public key.
func FromSecretKey(secretKey [32]byte) (*KeyPair, error) {
	if isZeroKey(secretKey) {
		return nil, ErrZeroSecretKey
	}

	public, err := curve25519.X25519(secretKey[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("derive public key: %w", err)
	}

	kp := &KeyPair{Private: secretKey}
	copy(kp.Public[:], public)
	return kp, nil
}

// Wipe overwrites the private key with zeros.
func (kp *KeyPair) Wipe() {
	if kp == nil {
		return
	}
	var zeros [32]byte
	subtle.ConstantTimeCopy(1, kp.Private[:], zeros[:])
	runtime.KeepAlive(kp)
}

// isZeroKey checks if a key consists of all zeros.
func isZeroKey(key [32]byte) bool {
	var zero [32]byte
	return subtle.ConstantTimeCompare(key[:], zero[:]) == 1
}
