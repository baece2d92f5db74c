package bus

// ToxKind is the taxonomy of commands consumed by the protocol worker.
type ToxKind uint8

// Protocol worker commands. The values match the client's historical
// enumeration.
const (
	// ToxKill shuts the protocol worker down.
	ToxKill ToxKind = iota

	// ToxSelfSetName sets our name. Payload: Text.
	ToxSelfSetName
	// ToxSelfSetStatus sets our status message. Payload: Text.
	ToxSelfSetStatus
	// ToxSelfSetState sets our user status. param1: 0 online, 1 away, 2 busy.
	ToxSelfSetState

	// ToxAvatarSet publishes our avatar. param1: avatar format. Payload: Avatar.
	ToxAvatarSet
	// ToxAvatarUnset removes our avatar.
	ToxAvatarUnset

	// ToxFriendNew sends a friend request. Payload: FriendAddress.
	ToxFriendNew
	// ToxFriendAccept accepts a friend request. Payload: PublicKey.
	ToxFriendAccept
	// ToxFriendDelete removes a friend. param1: friend number.
	ToxFriendDelete
	// ToxFriendOnline queries the connection status of a friend. param1: friend number.
	ToxFriendOnline

	// ToxSendMessage sends a chat message. param1: friend number. Payload: Text.
	ToxSendMessage
	// ToxSendAction sends an action ("/me") message. param1: friend number. Payload: Text.
	ToxSendAction
	// ToxSendTyping sets our typing state. param1: friend number. param2: 1 typing.
	ToxSendTyping

	// ToxFileAccept accepts an incoming file. param1: friend number,
	// param2: file number. Payload: FilePath to save to.
	ToxFileAccept
	// ToxFileSendNew offers files to a friend. param1: friend number. Payload: FileList.
	ToxFileSendNew
	// ToxFileSendNewInline sends an inline image. param1: friend number. Payload: InlineImage.
	ToxFileSendNewInline
	// ToxFileSendNewSlash sends one file named by a slash command.
	// param1: friend number. Payload: FilePath.
	ToxFileSendNewSlash

	// ToxFileResume resumes a transfer. param1: friend number, param2: file number.
	ToxFileResume
	// ToxFilePause pauses a transfer. param1: friend number, param2: file number.
	ToxFilePause
	// ToxFileCancel cancels a transfer. param1: friend number, param2: file number.
	ToxFileCancel

	// ToxCallSend calls a friend. param1: friend number, param2: 1 with video.
	ToxCallSend
	// ToxCallIncoming acknowledges a ringing call. param1: friend number, param2: 1 with video.
	ToxCallIncoming
	// ToxCallAnswer answers a call. param1: friend number, param2: 1 with video.
	ToxCallAnswer
	// ToxCallPauseAudio mutes our audio. param1: friend number, param2: 1 pause, 0 resume.
	ToxCallPauseAudio
	// ToxCallPauseVideo hides our video. param1: friend number, param2: 1 pause, 0 resume.
	ToxCallPauseVideo
	// ToxCallDisconnect hangs up. param1: friend number.
	ToxCallDisconnect

	// ToxGroupCreate creates a group chat. param1: 1 for an audio group.
	ToxGroupCreate
	// ToxGroupExit leaves a group. param1: group number.
	ToxGroupExit
	// ToxGroupSendInvite invites a friend. param1: group number, param2: friend number.
	ToxGroupSendInvite
	// ToxGroupSetTopic sets the group title. param1: group number. Payload: Text.
	ToxGroupSetTopic
	// ToxGroupSendMessage sends a group message. param1: group number. Payload: Text.
	ToxGroupSendMessage
	// ToxGroupSendAction sends a group action. param1: group number. Payload: Text.
	ToxGroupSendAction
	// ToxGroupAudioStart joins the group audio. param1: group number.
	ToxGroupAudioStart
	// ToxGroupAudioEnd leaves the group audio. param1: group number.
	ToxGroupAudioEnd

	toxKindCount
)

var toxKindNames = []string{
	ToxKill:              "TOX_KILL",
	ToxSelfSetName:       "TOX_SELF_SET_NAME",
	ToxSelfSetStatus:     "TOX_SELF_SET_STATUS",
	ToxSelfSetState:      "TOX_SELF_SET_STATE",
	ToxAvatarSet:         "TOX_AVATAR_SET",
	ToxAvatarUnset:       "TOX_AVATAR_UNSET",
	ToxFriendNew:         "TOX_FRIEND_NEW",
	ToxFriendAccept:      "TOX_FRIEND_ACCEPT",
	ToxFriendDelete:      "TOX_FRIEND_DELETE",
	ToxFriendOnline:      "TOX_FRIEND_ONLINE",
	ToxSendMessage:       "TOX_SEND_MESSAGE",
	ToxSendAction:        "TOX_SEND_ACTION",
	ToxSendTyping:        "TOX_SEND_TYPING",
	ToxFileAccept:        "TOX_FILE_ACCEPT",
	ToxFileSendNew:       "TOX_FILE_SEND_NEW",
	ToxFileSendNewInline: "TOX_FILE_SEND_NEW_INLINE",
	ToxFileSendNewSlash:  "TOX_FILE_SEND_NEW_SLASH",
	ToxFileResume:        "TOX_FILE_RESUME",
	ToxFilePause:         "TOX_FILE_PAUSE",
	ToxFileCancel:        "TOX_FILE_CANCEL",
	ToxCallSend:          "TOX_CALL_SEND",
	ToxCallIncoming:      "TOX_CALL_INCOMING",
	ToxCallAnswer:        "TOX_CALL_ANSWER",
	ToxCallPauseAudio:    "TOX_CALL_PAUSE_AUDIO",
	ToxCallPauseVideo:    "TOX_CALL_PAUSE_VIDEO",
	ToxCallDisconnect:    "TOX_CALL_DISCONNECT",
	ToxGroupCreate:       "TOX_GROUP_CREATE",
	ToxGroupExit:         "TOX_GROUP_EXIT",
	ToxGroupSendInvite:   "TOX_GROUP_SEND_INVITE",
	ToxGroupSetTopic:     "TOX_GROUP_SET_TOPIC",
	ToxGroupSendMessage:  "TOX_GROUP_SEND_MESSAGE",
	ToxGroupSendAction:   "TOX_GROUP_SEND_ACTION",
	ToxGroupAudioStart:   "TOX_GROUP_AUDIO_START",
	ToxGroupAudioEnd:     "TOX_GROUP_AUDIO_END",
}

var toxKindPayloads = [toxKindCount]payloadClass{
	ToxSelfSetName:       classText,
	ToxSelfSetStatus:     classText,
	ToxAvatarSet:         classAvatar,
	ToxFriendNew:         classFriendAddress,
	ToxFriendAccept:      classPublicKey,
	ToxSendMessage:       classText,
	ToxSendAction:        classText,
	ToxFileAccept:        classFilePath,
	ToxFileSendNew:       classFileList,
	ToxFileSendNewInline: classInlineImage,
	ToxFileSendNewSlash:  classFilePath,
	ToxGroupSetTopic:     classText,
	ToxGroupSendMessage:  classText,
	ToxGroupSendAction:   classText,
}

func (k ToxKind) String() string { return kindName(toxKindNames, uint8(k), "ToxKind") }

// IsKill reports whether k is ToxKill.
func (k ToxKind) IsKill() bool { return k == ToxKill }

// Valid reports whether k is declared in the taxonomy.
func (k ToxKind) Valid() bool { return k < toxKindCount }

// Destination returns DestinationNetwork.
func (ToxKind) Destination() Destination { return DestinationNetwork }

// Accepts reports whether p is the payload variant documented for k.
func (k ToxKind) Accepts(p Payload) bool {
	if !k.Valid() {
		return false
	}
	return toxKindPayloads[k].accepts(p)
}

// ToxKinds returns every protocol command kind, kill included.
func ToxKinds() []ToxKind {
	kinds := make([]ToxKind, 0, toxKindCount)
	for k := ToxKill; k < toxKindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}
