package crypto

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ToxIDSize is the length of a binary Tox ID: public key, nospam and checksum.
const ToxIDSize = 38

// ErrInvalidToxID is wrapped by every ToxIDFromString failure.
var ErrInvalidToxID = errors.New("invalid Tox ID")

// ToxID represents a Tox identifier, consisting of a public key, nospam value, and checksum.
type ToxID struct {
	PublicKey [32]byte
	Nospam    [4]byte
	Checksum  [2]byte
}

// NewToxID creates a ToxID from a public key and nospam value.
func NewToxID(publicKey [32]byte, nospam [4]byte) *ToxID {
	id := &ToxID{
		PublicKey: publicKey,
		Nospam:    nospam,
	}
	id.Checksum = id.checksum()
	return id
}

// NewNospam returns a random nospam value.
func NewNospam() [4]byte {
	var nospam [4]byte
	if _, err := rand.Read(nospam[:]); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return nospam
}

// ToxIDFromString parses the 76 character hexadecimal form of a Tox ID.
// Surrounding white space is ignored and either letter case is accepted.
// A wrong length, a non hex character or a checksum mismatch yields an
// error wrapping ErrInvalidToxID.
func ToxIDFromString(s string) (*ToxID, error) {
	s = strings.TrimSpace(s)
	if len(s) != 2*ToxIDSize {
		return nil, fmt.Errorf("%w: length %d, want %d", ErrInvalidToxID, len(s), 2*ToxIDSize)
	}

	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToxID, err)
	}

	id := &ToxID{}
	copy(id.PublicKey[:], data[0:32])
	copy(id.Nospam[:], data[32:36])
	copy(id.Checksum[:], data[36:38])

	if id.Checksum != id.checksum() {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidToxID)
	}
	return id, nil
}

// String returns the upper case hexadecimal form shown to users.
func (id *ToxID) String() string {
	data := make([]byte, 0, ToxIDSize)
	data = append(data, id.PublicKey[:]...)
	data = append(data, id.Nospam[:]...)
	data = append(data, id.Checksum[:]...)
	return strings.ToUpper(hex.EncodeToString(data))
}

// NospamValue returns the nospam as the integer exposed by the Tox API.
func (id *ToxID) NospamValue() uint32 {
	return binary.BigEndian.Uint32(id.Nospam[:])
}

// checksum XORs the public key and nospam bytes pairwise.
func (id *ToxID) checksum() [2]byte {
	var sum [2]byte
	for i, b := range id.PublicKey {
		sum[i%2] ^= b
	}
	for i, b := range id.Nospam {
		sum[i%2] ^= b
	}
	return sum
}

// PublicKeyFromHex parses the 64 character hexadecimal form of a public key.
func PublicKeyFromHex(s string) ([32]byte, error) {
	var key [32]byte
	data, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return key, fmt.Errorf("invalid public key: %w", err)
	}
	if len(data) != len(key) {
		return key, fmt.Errorf("invalid public key: length %d, want %d", len(data), len(key))
	}
	copy(key[:], data)
	return key, nil
}
