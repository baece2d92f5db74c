package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/box"
)

// ErrOpenFailed is returned when a sealed request cannot be opened.
var ErrOpenFailed = errors.New("cannot open sealed request")

// SealFriendRequest encrypts a friend request greeting for the owner of
// recipient. The sender stays anonymous until the request is opened; the
// sender's public key travels inside the sealed box.
func SealFriendRequest(sender [32]byte, message []byte, recipient [32]byte) ([]byte, error) {
	plain := make([]byte, 0, len(sender)+len(message))
	plain = append(plain, sender[:]...)
	plain = append(plain, message...)

	sealed, err := box.SealAnonymous(nil, plain, &recipient, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("seal friend request: %w", err)
	}
	return sealed, nil
}

// OpenFriendRequest decrypts a request sealed with SealFriendRequest and
// returns the sender's public key and greeting.
func OpenFriendRequest(sealed []byte, keys *KeyPair) ([32]byte, []byte, error) {
	var sender [32]byte
	plain, ok := box.OpenAnonymous(nil, sealed, &keys.Public, &keys.Private)
	if !ok || len(plain) < len(sender) {
		return sender, nil, ErrOpenFailed
	}
	copy(sender[:], plain)
	return sender, plain[len(sender):], nil
}
