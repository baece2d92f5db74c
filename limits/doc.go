// Package limits provides the size limits of the Tox protocol and the
// validation functions the protocol worker applies to command payloads
// before handing them to the engine.
//
// # Limits
//
//   - MaxNameLength (128 bytes): our name and friend names.
//   - MaxStatusMessageLength (1007 bytes): status messages.
//   - MaxPlaintextMessage (1372 bytes): one chat message or action. Longer
//     text is cut into several messages with SplitMessage.
//   - MaxFriendRequestMessage (1016 bytes): the greeting of a friend request.
//   - MaxTopicLength (128 bytes): group titles.
//   - MaxFileNameLength (255 bytes): names of files offered to a friend.
//   - MaxAvatarSize (64 KiB): PNG avatars.
//   - MaxEncryptedMessage (1388 bytes): a plaintext message sealed with
//     the Poly1305 tag of NaCl box or the Noise cipher states.
//
// # Validation Functions
//
// Each validator returns ErrMessageEmpty for missing mandatory input and
// wraps ErrMessageTooLarge with the actual and allowed sizes:
//
//	if err := limits.ValidateName(name); err != nil {
//	    // errors.Is(err, limits.ErrMessageTooLarge)
//	}
package limits
