package limits

import (
	"crypto/rand"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"golang.org/x/crypto/nacl/box"
)

// TestEncryptionOverheadMatchesNaCl verifies that our EncryptionOverhead constant
// matches the actual overhead from golang.org/x/crypto/nacl/box
func TestEncryptionOverheadMatchesNaCl(t *testing.T) {
	if EncryptionOverhead != box.Overhead {
		t.Errorf("EncryptionOverhead = %d, want %d (box.Overhead)", EncryptionOverhead, box.Overhead)
	}
}

// TestSealedMaxMessageFits seals a message of MaxPlaintextMessage bytes and
// checks it against MaxEncryptedMessage.
func TestSealedMaxMessageFits(t *testing.T) {
	_, senderKey, err := box.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate key pair: %v", err)
	}
	peerKey, _, err := box.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate key pair: %v", err)
	}

	var nonce [24]byte
	message := make([]byte, MaxPlaintextMessage)
	sealed := box.Seal(nil, message, &nonce, peerKey, senderKey)

	if err := ValidateEncryptedMessage(sealed); err != nil {
		t.Errorf("ValidateEncryptedMessage() on sealed max message = %v", err)
	}
}

func TestValidateText(t *testing.T) {
	tests := []struct {
		name     string
		validate func(string) error
		input    string
		wantErr  error
	}{
		{"name empty", ValidateName, "", ErrMessageEmpty},
		{"name ok", ValidateName, "uTox User", nil},
		{"name at limit", ValidateName, strings.Repeat("n", MaxNameLength), nil},
		{"name too long", ValidateName, strings.Repeat("n", MaxNameLength+1), ErrMessageTooLarge},
		{"status empty allowed", ValidateStatusMessage, "", nil},
		{"status at limit", ValidateStatusMessage, strings.Repeat("s", MaxStatusMessageLength), nil},
		{"status too long", ValidateStatusMessage, strings.Repeat("s", MaxStatusMessageLength+1), ErrMessageTooLarge},
		{"request empty", ValidateFriendRequestMessage, "", ErrMessageEmpty},
		{"request too long", ValidateFriendRequestMessage, strings.Repeat("r", MaxFriendRequestMessage+1), ErrMessageTooLarge},
		{"topic ok", ValidateTopic, "Tox devs", nil},
		{"topic too long", ValidateTopic, strings.Repeat("t", MaxTopicLength+1), ErrMessageTooLarge},
		{"file name empty", ValidateFileName, "", ErrMessageEmpty},
		{"file name at limit", ValidateFileName, strings.Repeat("f", MaxFileNameLength), nil},
		{"file name too long", ValidateFileName, strings.Repeat("f", MaxFileNameLength+1), ErrMessageTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.validate(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateBytes(t *testing.T) {
	tests := []struct {
		name     string
		validate func([]byte) error
		input    []byte
		wantErr  error
	}{
		{"plaintext nil", ValidatePlaintextMessage, nil, ErrMessageEmpty},
		{"plaintext ok", ValidatePlaintextMessage, []byte("Hello, world!"), nil},
		{"plaintext at limit", ValidatePlaintextMessage, make([]byte, MaxPlaintextMessage), nil},
		{"plaintext too large", ValidatePlaintextMessage, make([]byte, MaxPlaintextMessage+1), ErrMessageTooLarge},
		{"encrypted at limit", ValidateEncryptedMessage, make([]byte, MaxEncryptedMessage), nil},
		{"encrypted too large", ValidateEncryptedMessage, make([]byte, MaxEncryptedMessage+1), ErrMessageTooLarge},
		{"avatar empty", ValidateAvatar, []byte{}, ErrMessageEmpty},
		{"avatar too large", ValidateAvatar, make([]byte, MaxAvatarSize+1), ErrMessageTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.validate(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestValidateMessageSize tests the generic message size validation function
func TestValidateMessageSize(t *testing.T) {
	if err := ValidateMessageSize(nil, 100); err != ErrMessageEmpty {
		t.Errorf("ValidateMessageSize(nil) = %v, want ErrMessageEmpty", err)
	}
	if err := ValidateMessageSize(make([]byte, 100), 100); err != nil {
		t.Errorf("ValidateMessageSize() at limit = %v", err)
	}
	err := ValidateMessageSize(make([]byte, 101), 100)
	if !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("ValidateMessageSize() over limit = %v, want ErrMessageTooLarge", err)
	}
	if !strings.Contains(err.Error(), "size 101 exceeds limit 100") {
		t.Errorf("error %q lacks size context", err)
	}
}

func TestSplitMessage(t *testing.T) {
	if parts := SplitMessage("", 10); len(parts) != 0 {
		t.Errorf("SplitMessage(\"\") = %q, want no parts", parts)
	}

	parts := SplitMessage("hello tox world", 10)
	want := []string{"hello tox ", "world"}
	if strings.Join(parts, "|") != strings.Join(want, "|") {
		t.Errorf("SplitMessage() = %q, want %q", parts, want)
	}

	long := strings.Repeat("ä", MaxPlaintextMessage)
	parts = SplitMessage(long, MaxPlaintextMessage)
	if strings.Join(parts, "") != long {
		t.Fatal("SplitMessage() lost text")
	}
	for i, p := range parts {
		if len(p) > MaxPlaintextMessage {
			t.Errorf("part %d is %d bytes", i, len(p))
		}
		if !utf8.ValidString(p) {
			t.Errorf("part %d cuts a UTF-8 sequence", i)
		}
	}
}

// BenchmarkValidatePlaintextMessage benchmarks plaintext validation performance
func BenchmarkValidatePlaintextMessage(b *testing.B) {
	message := make([]byte, MaxPlaintextMessage)
	rand.Read(message)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ValidatePlaintextMessage(message)
	}
}
