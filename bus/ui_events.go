package bus

// UIEvent is the taxonomy of events posted by the workers to the UI.
//
// Events marked "UI internal" are never produced by a worker; native file
// dialogs and the DNS resolver of the UI layer post them to the same
// mailbox so that the UI has a single consumption point.
type UIEvent uint8

const (
	// UIToxDone is posted once the protocol worker finished its teardown.
	UIToxDone UIEvent = iota
	// UIDHTConnected reports the network connection. param1: 1 connected.
	UIDHTConnected
	// UIDNSResult carries a resolved address (UI internal). Payload: FriendAddress.
	UIDNSResult

	// UISetAvatar confirms our avatar. param1: avatar format. Payload: Avatar.
	UISetAvatar

	// UISendFiles carries files picked in a dialog (UI internal).
	// param1: friend number. Payload: FileList.
	UISendFiles
	// UISaveFile carries a save location (UI internal). param1: friend number,
	// param2: file number. Payload: FilePath.
	UISaveFile
	// UIFileStartTemp starts a temporary inline transfer (UI internal).
	// param1: friend number, param2: file number.
	UIFileStartTemp
	// UIFileAbortTemp aborts a temporary inline transfer (UI internal).
	// param1: friend number, param2: file number.
	UIFileAbortTemp

	// UINewAudioInDevice announces a capture device. Payload: DeviceInfo.
	UINewAudioInDevice
	// UINewAudioOutDevice announces a playback device. Payload: DeviceInfo.
	UINewAudioOutDevice
	// UINewVideoDevice announces a video capture device. Payload: DeviceInfo.
	UINewVideoDevice

	// UIFriendRequest reports an incoming request. Payload: FriendRequestInfo.
	UIFriendRequest
	// UIFriendAccept confirms an accepted request. param1: friend number. Payload: PublicKey.
	UIFriendAccept
	// UIFriendAdd reports the result of a sent request. param1: friend number,
	// param2: 0 on success or the engine error code. Payload: FriendAddress.
	UIFriendAdd
	// UIFriendDel confirms a removed friend. param1: friend number.
	UIFriendDel
	// UIFriendMessage delivers a message. param1: friend number,
	// param2: 0 normal, 1 action. Payload: Text.
	UIFriendMessage
	// UIFriendName reports a name change. param1: friend number. Payload: Text.
	UIFriendName
	// UIFriendSetAvatar reports a received avatar. param1: friend number. Payload: Avatar.
	UIFriendSetAvatar
	// UIFriendUnsetAvatar reports a removed avatar. param1: friend number.
	UIFriendUnsetAvatar
	// UIFriendStatusMessage reports a status message. param1: friend number. Payload: Text.
	UIFriendStatusMessage
	// UIFriendStatus reports a user status. param1: friend number, param2: status.
	UIFriendStatus
	// UIFriendTyping reports typing. param1: friend number, param2: 1 typing.
	UIFriendTyping
	// UIFriendOnline reports connectivity. param1: friend number, param2: 1 online.
	UIFriendOnline

	// UIFriendAVStatusChange reports call progress. param1: friend number,
	// param2: AVStatus.
	UIFriendAVStatusChange
	// UIFriendAVIncoming reports an incoming call. param1: friend number,
	// param2: 1 with video.
	UIFriendAVIncoming
	// UIFriendAVDisconnect reports a finished call. param1: friend number.
	UIFriendAVDisconnect
	// UIFriendCallAudioConnected reports that audio flows. param1: friend number.
	UIFriendCallAudioConnected
	// UIFriendCallAudioDisconnected reports that audio stopped. param1: friend number.
	UIFriendCallAudioDisconnected
	// UIFriendCallVideo reports a call started with video. param1: friend number.
	UIFriendCallVideo
	// UIFriendCallVideoConnected reports that video flows. param1: friend number.
	UIFriendCallVideoConnected
	// UIFriendCallVideoDisconnected reports that video stopped. param1: friend number.
	UIFriendCallVideoDisconnected
	// UIFriendCallMediaChange reports changed call media. param1: friend number,
	// param2: engine call state flags.
	UIFriendCallMediaChange
	// UIFriendCallStartVideo reports that the peer started its video. param1: friend number.
	UIFriendCallStartVideo
	// UIFriendCallStopVideo reports that the peer stopped its video. param1: friend number.
	UIFriendCallStopVideo
	// UIFriendVideoFrame delivers a received frame. param1: friend number. Payload: *VideoFrame.
	UIFriendVideoFrame
	// UIPreviewFrame delivers a local preview frame. Payload: *VideoFrame.
	UIPreviewFrame
	// UIPreviewFrameNew delivers the first preview frame of a session. Payload: *VideoFrame.
	UIPreviewFrameNew

	// UIFriendFileNew reports a new transfer. param1: friend number,
	// param2: file number. Payload: FileInfo.
	UIFriendFileNew
	// UIFriendFileUpdate reports a transfer state change. param1: friend number,
	// param2: file number. Payload: FileInfo.
	UIFriendFileUpdate
	// UIFriendInlineImage delivers a received inline image. param1: friend number.
	// Payload: InlineImage.
	UIFriendInlineImage

	// UIGroupAdd reports a joined or created group. param1: group number,
	// param2: 1 audio group.
	UIGroupAdd
	// UIGroupMessage delivers a group message. param1: group number,
	// param2: peer number. Payload: Text.
	UIGroupMessage
	// UIGroupPeerAdd reports a joined peer. param1: group number, param2: peer number.
	UIGroupPeerAdd
	// UIGroupPeerDel reports a departed peer. param1: group number, param2: peer number.
	UIGroupPeerDel
	// UIGroupPeerName reports a peer name. param1: group number, param2: peer number.
	// Payload: Text.
	UIGroupPeerName
	// UIGroupTitle reports the group title. param1: group number,
	// param2: peer number that set it. Payload: Text.
	UIGroupTitle
	// UIGroupAudioStart reports joined group audio. param1: group number.
	UIGroupAudioStart
	// UIGroupAudioEnd reports left group audio. param1: group number.
	UIGroupAudioEnd
	// UIGroupUpdate asks the UI to redraw a group. param1: group number.
	UIGroupUpdate

	// UITooltipShow shows an informational tooltip. Payload: Text.
	UITooltipShow

	uiEventCount
)

var uiEventNames = []string{
	UIToxDone:                     "TOX_DONE",
	UIDHTConnected:                "DHT_CONNECTED",
	UIDNSResult:                   "DNS_RESULT",
	UISetAvatar:                   "SET_AVATAR",
	UISendFiles:                   "SEND_FILES",
	UISaveFile:                    "SAVE_FILE",
	UIFileStartTemp:               "FILE_START_TEMP",
	UIFileAbortTemp:               "FILE_ABORT_TEMP",
	UINewAudioInDevice:            "NEW_AUDIO_IN_DEVICE",
	UINewAudioOutDevice:           "NEW_AUDIO_OUT_DEVICE",
	UINewVideoDevice:              "NEW_VIDEO_DEVICE",
	UIFriendRequest:               "FRIEND_REQUEST",
	UIFriendAccept:                "FRIEND_ACCEPT",
	UIFriendAdd:                   "FRIEND_ADD",
	UIFriendDel:                   "FRIEND_DEL",
	UIFriendMessage:               "FRIEND_MESSAGE",
	UIFriendName:                  "FRIEND_NAME",
	UIFriendSetAvatar:             "FRIEND_SETAVATAR",
	UIFriendUnsetAvatar:           "FRIEND_UNSETAVATAR",
	UIFriendStatusMessage:         "FRIEND_STATUS_MESSAGE",
	UIFriendStatus:                "FRIEND_STATUS",
	UIFriendTyping:                "FRIEND_TYPING",
	UIFriendOnline:                "FRIEND_ONLINE",
	UIFriendAVStatusChange:        "FRIEND_AV_STATUS_CHANGE",
	UIFriendAVIncoming:            "FRIEND_AV_INCOMING",
	UIFriendAVDisconnect:          "FRIEND_AV_DISCONNECT",
	UIFriendCallAudioConnected:    "FRIEND_CALL_AUDIO_CONNECTED",
	UIFriendCallAudioDisconnected: "FRIEND_CALL_AUDIO_DISCONNECTED",
	UIFriendCallVideo:             "FRIEND_CALL_VIDEO",
	UIFriendCallVideoConnected:    "FRIEND_CALL_VIDEO_CONNECTED",
	UIFriendCallVideoDisconnected: "FRIEND_CALL_VIDEO_DISCONNECTED",
	UIFriendCallMediaChange:       "FRIEND_CALL_MEDIACHANGE",
	UIFriendCallStartVideo:        "FRIEND_CALL_START_VIDEO",
	UIFriendCallStopVideo:         "FRIEND_CALL_STOP_VIDEO",
	UIFriendVideoFrame:            "FRIEND_VIDEO_FRAME",
	UIPreviewFrame:                "PREVIEW_FRAME",
	UIPreviewFrameNew:             "PREVIEW_FRAME_NEW",
	UIFriendFileNew:               "FRIEND_FILE_NEW",
	UIFriendFileUpdate:            "FRIEND_FILE_UPDATE",
	UIFriendInlineImage:           "FRIEND_INLINE_IMAGE",
	UIGroupAdd:                    "GROUP_ADD",
	UIGroupMessage:                "GROUP_MESSAGE",
	UIGroupPeerAdd:                "GROUP_PEER_ADD",
	UIGroupPeerDel:                "GROUP_PEER_DEL",
	UIGroupPeerName:               "GROUP_PEER_NAME",
	UIGroupTitle:                  "GROUP_TITLE",
	UIGroupAudioStart:             "GROUP_AUDIO_START",
	UIGroupAudioEnd:               "GROUP_AUDIO_END",
	UIGroupUpdate:                 "GROUP_UPDATE",
	UITooltipShow:                 "TOOLTIP_SHOW",
}

var uiEventPayloads = [uiEventCount]payloadClass{
	UIDNSResult:           classFriendAddress,
	UISetAvatar:           classAvatar,
	UISendFiles:           classFileList,
	UISaveFile:            classFilePath,
	UINewAudioInDevice:    classDevice,
	UINewAudioOutDevice:   classDevice,
	UINewVideoDevice:      classDevice,
	UIFriendRequest:       classFriendRequest,
	UIFriendAccept:        classPublicKey,
	UIFriendAdd:           classFriendAddress,
	UIFriendMessage:       classText,
	UIFriendName:          classText,
	UIFriendSetAvatar:     classAvatar,
	UIFriendStatusMessage: classText,
	UIFriendVideoFrame:    classVideoFrame,
	UIPreviewFrame:        classVideoFrame,
	UIPreviewFrameNew:     classVideoFrame,
	UIFriendFileNew:       classFileInfo,
	UIFriendFileUpdate:    classFileInfo,
	UIFriendInlineImage:   classInlineImage,
	UIGroupMessage:        classText,
	UIGroupPeerName:       classText,
	UIGroupTitle:          classText,
	UITooltipShow:         classText,
}

func (e UIEvent) String() string { return kindName(uiEventNames, uint8(e), "UIEvent") }

// IsKill always reports false; the UI channel has no kill kind.
func (UIEvent) IsKill() bool { return false }

// Valid reports whether e is declared in the taxonomy.
func (e UIEvent) Valid() bool { return e < uiEventCount }

// Destination returns DestinationUI.
func (UIEvent) Destination() Destination { return DestinationUI }

// Accepts reports whether p is the payload variant documented for e.
func (e UIEvent) Accepts(p Payload) bool {
	if !e.Valid() {
		return false
	}
	return uiEventPayloads[e].accepts(p)
}

// UIEvents returns every UI event kind.
func UIEvents() []UIEvent {
	events := make([]UIEvent, 0, uiEventCount)
	for e := UIToxDone; e < uiEventCount; e++ {
		events = append(events, e)
	}
	return events
}

// AVStatus is the call progress reported with UIFriendAVStatusChange.
type AVStatus uint32

const (
	AVNone AVStatus = iota
	AVInvite
	AVRinging
	AVStarted
)

func (s AVStatus) String() string {
	switch s {
	case AVNone:
		return "UTOX_AV_NONE"
	case AVInvite:
		return "UTOX_AV_INVITE"
	case AVRinging:
		return "UTOX_AV_RINGING"
	case AVStarted:
		return "UTOX_AV_STARTED"
	}
	return "UTOX_AV_UNKNOWN"
}
