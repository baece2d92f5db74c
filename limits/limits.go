package limits

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

const (
	// MaxNameLength is the longest name a peer may publish.
	MaxNameLength = 128

	// MaxStatusMessageLength is the longest status message a peer may publish.
	MaxStatusMessageLength = 1007

	// MaxPlaintextMessage is the Tox protocol limit for one chat message.
	MaxPlaintextMessage = 1372

	// MaxFriendRequestMessage is the longest greeting of a friend request.
	MaxFriendRequestMessage = 1016

	// MaxTopicLength is the longest group title.
	MaxTopicLength = 128

	// MaxFileNameLength is the longest file name offered in a transfer.
	MaxFileNameLength = 255

	// MaxAvatarSize is the largest PNG avatar accepted.
	MaxAvatarSize = 64 * 1024

	// EncryptionOverhead is the authentication tag added by NaCl box and by
	// the ChaCha20-Poly1305 Noise cipher.
	EncryptionOverhead = 16 // golang.org/x/crypto/nacl/box.Overhead

	// MaxEncryptedMessage is MaxPlaintextMessage plus EncryptionOverhead.
	MaxEncryptedMessage = MaxPlaintextMessage + EncryptionOverhead
)

var (
	// ErrMessageEmpty indicates an empty message was provided
	ErrMessageEmpty = errors.New("empty message")

	// ErrMessageTooLarge indicates message exceeds maximum size
	ErrMessageTooLarge = errors.New("message too large")
)

// ValidateMessageSize validates a message against the specified maximum size.
// Returns an error with context including the actual and maximum sizes.
func ValidateMessageSize(message []byte, maxSize int) error {
	if len(message) == 0 {
		return ErrMessageEmpty
	}
	return checkSize("message", len(message), maxSize)
}

// ValidatePlaintextMessage validates one chat message.
func ValidatePlaintextMessage(message []byte) error {
	if len(message) == 0 {
		return ErrMessageEmpty
	}
	return checkSize("plaintext", len(message), MaxPlaintextMessage)
}

// ValidateEncryptedMessage validates a sealed message.
func ValidateEncryptedMessage(message []byte) error {
	if len(message) == 0 {
		return ErrMessageEmpty
	}
	return checkSize("encrypted", len(message), MaxEncryptedMessage)
}

// ValidateName validates a name. Names must not be empty.
func ValidateName(name string) error {
	if name == "" {
		return ErrMessageEmpty
	}
	return checkSize("name", len(name), MaxNameLength)
}

// ValidateStatusMessage validates a status message. An empty status
// message clears it and is allowed.
func ValidateStatusMessage(status string) error {
	return checkSize("status message", len(status), MaxStatusMessageLength)
}

// ValidateFriendRequestMessage validates the greeting of a friend request.
func ValidateFriendRequestMessage(message string) error {
	if message == "" {
		return ErrMessageEmpty
	}
	return checkSize("friend request", len(message), MaxFriendRequestMessage)
}

// ValidateTopic validates a group title.
func ValidateTopic(topic string) error {
	if topic == "" {
		return ErrMessageEmpty
	}
	return checkSize("topic", len(topic), MaxTopicLength)
}

// ValidateFileName validates the name of an offered file.
func ValidateFileName(name string) error {
	if name == "" {
		return ErrMessageEmpty
	}
	return checkSize("file name", len(name), MaxFileNameLength)
}

// ValidateAvatar validates a PNG avatar.
func ValidateAvatar(png []byte) error {
	if len(png) == 0 {
		return ErrMessageEmpty
	}
	return checkSize("avatar", len(png), MaxAvatarSize)
}

func checkSize(what string, size, limit int) error {
	if size > limit {
		return fmt.Errorf("%w: %s size %d exceeds limit %d", ErrMessageTooLarge, what, size, limit)
	}
	return nil
}

// SplitMessage cuts text into parts of at most maxSize bytes. Cuts happen
// after the last space or newline of a part when there is one, and never
// inside a UTF-8 sequence. Empty text yields no parts.
func SplitMessage(text string, maxSize int) []string {
	if maxSize < utf8.UTFMax {
		maxSize = utf8.UTFMax
	}
	var parts []string
	for len(text) > maxSize {
		cut := maxSize
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		for i := cut - 1; i > 0; i-- {
			if text[i] == ' ' || text[i] == '\n' {
				cut = i + 1
				break
			}
		}
		parts = append(parts, text[:cut])
		text = text[cut:]
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}
