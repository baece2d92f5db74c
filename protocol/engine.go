package protocol

import (
	"fmt"
	"time"

	"github.com/opd-ai/utox/crypto"
)

// Profile defaults of a new identity.
const (
	DefaultName          = "uTox User"
	DefaultStatusMessage = "Toxing on uTox, from the future!"
)

// UserStatus is the presence a peer advertises.
type UserStatus uint8

const (
	UserStatusOnline UserStatus = iota
	UserStatusAway
	UserStatusBusy
)

func (s UserStatus) String() string {
	switch s {
	case UserStatusOnline:
		return "online"
	case UserStatusAway:
		return "away"
	case UserStatusBusy:
		return "busy"
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// MessageType represents the type of a message.
type MessageType uint8

const (
	MessageTypeNormal MessageType = iota
	MessageTypeAction
)

// FileControl represents a file transfer control action.
type FileControl uint8

const (
	FileControlResume FileControl = iota
	FileControlPause
	FileControlCancel
)

// CallState is the bit set reported by the engine for a friend call.
type CallState uint32

const (
	CallStateError CallState = 1 << iota
	CallStateFinished
	CallStateSendingAudio
	CallStateSendingVideo
	CallStateAcceptingAudio
	CallStateAcceptingVideo
)

// Has reports whether every bit of flag is set.
func (s CallState) Has(flag CallState) bool { return s&flag == flag }

// Ended reports whether the call is over.
func (s CallState) Ended() bool { return s&(CallStateError|CallStateFinished) != 0 }

// CallControl represents call control actions.
type CallControl uint8

const (
	CallControlResume CallControl = iota
	CallControlPause
	CallControlCancel
	CallControlMuteAudio
	CallControlUnmuteAudio
	CallControlHideVideo
	CallControlShowVideo
)

// FriendAddError is the failure code of a friend request. The value is
// reported to the UI in param2 of FRIEND_ADD.
type FriendAddError uint32

const (
	FriendAddOK FriendAddError = iota
	FriendAddNull
	FriendAddTooLong
	FriendAddNoMessage
	FriendAddOwnKey
	FriendAddAlreadySent
	FriendAddBadChecksum
	FriendAddSetNewNospam
	FriendAddMalloc
)

func (e FriendAddError) Error() string {
	switch e {
	case FriendAddOK:
		return "friend added"
	case FriendAddNull:
		return "missing friend address"
	case FriendAddTooLong:
		return "friend request message too long"
	case FriendAddNoMessage:
		return "friend request message empty"
	case FriendAddOwnKey:
		return "friend address is our own"
	case FriendAddAlreadySent:
		return "friend request already sent"
	case FriendAddBadChecksum:
		return "friend address checksum mismatch"
	case FriendAddSetNewNospam:
		return "friend already added with another nospam"
	case FriendAddMalloc:
		return "friend list full"
	}
	return fmt.Sprintf("friend add error %d", uint32(e))
}

// Engine is the protocol library handle driven by the protocol worker.
// Every method is called from the worker goroutine only. Callbacks of the
// EventHandler are invoked synchronously from Iterate or from the command
// methods, also on the worker goroutine.
type Engine interface {
	SetHandler(h EventHandler)

	SelfAddress() string
	SelfPublicKey() [32]byte
	SelfSetName(name string) error
	SelfSetStatusMessage(message string) error
	SelfSetStatus(status UserStatus) error
	SelfSetAvatar(png []byte) error
	SelfUnsetAvatar() error

	// FriendAdd sends a friend request. Failures are FriendAddError values.
	FriendAdd(id *crypto.ToxID, message string) (uint32, error)
	// FriendAddNoRequest accepts a received friend request.
	FriendAddNoRequest(publicKey [32]byte) (uint32, error)
	FriendDelete(friend uint32) error
	FriendConnected(friend uint32) (bool, error)
	FriendSendMessage(friend uint32, kind MessageType, text string) error
	SetTyping(friend uint32, typing bool) error

	// FileSend offers size bytes of the file at path under name.
	FileSend(friend uint32, path, name string, size uint64) (uint32, error)
	// FileSendData offers an in memory file, used for inline images.
	FileSendData(friend uint32, name string, data []byte) (uint32, error)
	// FileAccept accepts an incoming file and writes it to path.
	FileAccept(friend, file uint32, path string) error
	FileControl(friend, file uint32, control FileControl) error

	Call(friend uint32, audio, video bool) error
	Answer(friend uint32, audio, video bool) error
	CallControl(friend uint32, control CallControl) error

	GroupNew(audio bool) (uint32, error)
	GroupLeave(group uint32) error
	GroupInvite(group, friend uint32) error
	GroupSetTitle(group uint32, title string) error
	GroupSendMessage(group uint32, kind MessageType, text string) error

	Iterate()
	IterationInterval() time.Duration
	Kill()
}

// EventHandler receives the notifications of an Engine.
type EventHandler interface {
	OnConnectionStatus(connected bool)

	OnFriendRequest(publicKey [32]byte, message string)
	OnFriendMessage(friend uint32, kind MessageType, text string)
	OnFriendName(friend uint32, name string)
	OnFriendStatusMessage(friend uint32, message string)
	OnFriendStatus(friend uint32, status UserStatus)
	OnFriendTyping(friend uint32, typing bool)
	OnFriendConnectionStatus(friend uint32, connected bool)
	// OnFriendAvatar reports a received avatar; an empty png removes it.
	OnFriendAvatar(friend uint32, png []byte)

	OnFileRecv(friend, file uint32, name string, size uint64)
	OnFileRecvControl(friend, file uint32, control FileControl)
	OnFileProgress(friend, file uint32, transferred uint64)
	OnInlineImage(friend uint32, name string, png []byte)

	OnCall(friend uint32, audio, video bool)
	OnCallState(friend uint32, state CallState)

	OnGroupJoined(group uint32, audio bool)
	OnGroupMessage(group, peer uint32, kind MessageType, text string)
	OnGroupPeerJoin(group, peer uint32)
	OnGroupPeerExit(group, peer uint32)
	OnGroupPeerName(group, peer uint32, name string)
	OnGroupTitle(group, peer uint32, title string)
}
