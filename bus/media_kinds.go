package bus

// AudioKind is the taxonomy of commands consumed by the audio worker.
// None of them carries a payload.
type AudioKind uint8

const (
	// AudioKill shuts the audio worker down.
	AudioKill AudioKind = iota
	// AudioSetInput selects the capture device. param1: device index.
	AudioSetInput
	// AudioSetOutput selects the playback device. param1: device index.
	AudioSetOutput
	// AudioPreviewStart loops captured audio back to the output.
	AudioPreviewStart
	// AudioPreviewEnd stops the loopback preview.
	AudioPreviewEnd
	// AudioCallStart starts sending audio to a friend. param1: friend number.
	AudioCallStart
	// AudioCallEnd stops sending audio to a friend. param1: friend number.
	AudioCallEnd
	// AudioPlayRingtone starts ringing for a friend. param1: friend number.
	AudioPlayRingtone
	// AudioStopRingtone stops ringing for a friend. param1: friend number.
	AudioStopRingtone
	// GroupAudioCallStart starts sending audio to a group. param1: group number.
	GroupAudioCallStart
	// GroupAudioCallEnd stops sending audio to a group. param1: group number.
	GroupAudioCallEnd

	audioKindCount
)

var audioKindNames = []string{
	AudioKill:           "AUDIO_KILL",
	AudioSetInput:       "AUDIO_SET_INPUT",
	AudioSetOutput:      "AUDIO_SET_OUTPUT",
	AudioPreviewStart:   "AUDIO_PREVIEW_START",
	AudioPreviewEnd:     "AUDIO_PREVIEW_END",
	AudioCallStart:      "AUDIO_CALL_START",
	AudioCallEnd:        "AUDIO_CALL_END",
	AudioPlayRingtone:   "AUDIO_PLAY_RINGTONE",
	AudioStopRingtone:   "AUDIO_STOP_RINGTONE",
	GroupAudioCallStart: "GROUP_AUDIO_CALL_START",
	GroupAudioCallEnd:   "GROUP_AUDIO_CALL_END",
}

func (k AudioKind) String() string { return kindName(audioKindNames, uint8(k), "AudioKind") }

// IsKill reports whether k is AudioKill.
func (k AudioKind) IsKill() bool { return k == AudioKill }

// Valid reports whether k is declared in the taxonomy.
func (k AudioKind) Valid() bool { return k < audioKindCount }

// Destination returns DestinationAudio.
func (AudioKind) Destination() Destination { return DestinationAudio }

// Accepts reports whether p is nil; audio commands carry no payload.
func (k AudioKind) Accepts(p Payload) bool { return k.Valid() && classNone.accepts(p) }

// AudioKinds returns every audio command kind, kill included.
func AudioKinds() []AudioKind {
	kinds := make([]AudioKind, 0, audioKindCount)
	for k := AudioKill; k < audioKindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// VideoKind is the taxonomy of commands consumed by the video worker.
// None of them carries a payload.
type VideoKind uint8

const (
	// VideoKill shuts the video worker down.
	VideoKill VideoKind = iota
	// VideoSet selects the capture device. param1: device index.
	VideoSet
	// VideoPreviewStart starts posting preview frames to the UI.
	VideoPreviewStart
	// VideoPreviewEnd stops the preview.
	VideoPreviewEnd
	// VideoCallStart starts sending video to a friend. param1: friend number.
	VideoCallStart
	// VideoCallEnd stops sending video to a friend. param1: friend number.
	VideoCallEnd

	videoKindCount
)

var videoKindNames = []string{
	VideoKill:         "VIDEO_KILL",
	VideoSet:          "VIDEO_SET",
	VideoPreviewStart: "VIDEO_PREVIEW_START",
	VideoPreviewEnd:   "VIDEO_PREVIEW_END",
	VideoCallStart:    "VIDEO_CALL_START",
	VideoCallEnd:      "VIDEO_CALL_END",
}

func (k VideoKind) String() string { return kindName(videoKindNames, uint8(k), "VideoKind") }

// IsKill reports whether k is VideoKill.
func (k VideoKind) IsKill() bool { return k == VideoKill }

// Valid reports whether k is declared in the taxonomy.
func (k VideoKind) Valid() bool { return k < videoKindCount }

// Destination returns DestinationVideo.
func (VideoKind) Destination() Destination { return DestinationVideo }

// Accepts reports whether p is nil; video commands carry no payload.
func (k VideoKind) Accepts(p Payload) bool { return k.Valid() && classNone.accepts(p) }

// VideoKinds returns every video command kind, kill included.
func VideoKinds() []VideoKind {
	kinds := make([]VideoKind, 0, videoKindCount)
	for k := VideoKill; k < videoKindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// ToxAVKind is the taxonomy of commands consumed by the call orchestration
// worker. It only knows how to stop.
type ToxAVKind uint8

const (
	// ToxAVKill shuts the call orchestration worker down.
	ToxAVKill ToxAVKind = iota

	toxAVKindCount
)

var toxAVKindNames = []string{
	ToxAVKill: "TOXAV_KILL",
}

func (k ToxAVKind) String() string { return kindName(toxAVKindNames, uint8(k), "ToxAVKind") }

// IsKill reports whether k is ToxAVKill.
func (k ToxAVKind) IsKill() bool { return k == ToxAVKill }

// Valid reports whether k is declared in the taxonomy.
func (k ToxAVKind) Valid() bool { return k < toxAVKindCount }

// Destination returns DestinationCallOrchestration.
func (ToxAVKind) Destination() Destination { return DestinationCallOrchestration }

// Accepts reports whether p is nil.
func (k ToxAVKind) Accepts(p Payload) bool { return k.Valid() && classNone.accepts(p) }

// ToxAVKinds returns every call orchestration kind.
func ToxAVKinds() []ToxAVKind {
	return []ToxAVKind{ToxAVKill}
}
