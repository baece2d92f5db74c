package protocol

import (
	"testing"

	"github.com/opd-ai/utox/bus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBridge(t *testing.T) (*bridge, *Worker, *recordingPoster) {
	t.Helper()
	w, engine, poster := newTestWorker(t)
	h, ok := engine.handler.(*bridge)
	require.True(t, ok, "Init registers the bridge")
	return h, w, poster
}

func TestBridgeConnectionStatusDeduplicated(t *testing.T) {
	h, _, poster := newTestBridge(t)

	h.OnConnectionStatus(false)
	h.OnConnectionStatus(true)
	h.OnConnectionStatus(true)
	h.OnConnectionStatus(false)

	require.Equal(t, []string{"DHT_CONNECTED", "DHT_CONNECTED"}, poster.kinds())
	assert.Equal(t, uint32(1), poster.posts[0].p1)
	assert.Equal(t, uint32(0), poster.posts[1].p1)
}

func TestBridgeFriendEvents(t *testing.T) {
	h, _, poster := newTestBridge(t)

	h.OnFriendRequest([32]byte{2}, "hi there")
	h.OnFriendMessage(1, MessageTypeAction, "waves")
	h.OnFriendName(1, "Bob")
	h.OnFriendStatus(1, UserStatusAway)
	h.OnFriendTyping(1, true)
	h.OnFriendAvatar(1, []byte{1, 2})
	h.OnFriendAvatar(1, nil)

	assert.Equal(t, []string{
		"FRIEND_REQUEST",
		"FRIEND_MESSAGE",
		"FRIEND_NAME",
		"FRIEND_STATUS",
		"FRIEND_TYPING",
		"FRIEND_SETAVATAR",
		"FRIEND_UNSETAVATAR",
	}, poster.kinds())

	req := poster.posts[0].payload.(bus.FriendRequestInfo)
	assert.Equal(t, "hi there", req.Message)
	assert.Equal(t, uint32(MessageTypeAction), poster.posts[1].p2)
	assert.Equal(t, uint32(UserStatusAway), poster.posts[3].p2)
}

func TestBridgeIncomingCallSelfPosts(t *testing.T) {
	h, _, poster := newTestBridge(t)

	h.OnCall(6, true, true)

	require.Len(t, poster.posts, 2)
	assert.Equal(t, bus.DestinationUI, poster.posts[0].dest)
	assert.Equal(t, "FRIEND_AV_INCOMING", poster.posts[0].kind)
	assert.Equal(t, bus.DestinationNetwork, poster.posts[1].dest)
	assert.Equal(t, "TOX_CALL_INCOMING", poster.posts[1].kind)
	assert.Equal(t, uint32(1), poster.posts[1].p2)
}

func TestBridgeCallEndedBeforeRingingDoesNotRing(t *testing.T) {
	h, w, poster := newTestBridge(t)

	h.OnCall(1, true, false)
	h.OnCallState(1, CallStateFinished)
	require.NoError(t, handle(t, w, bus.ToxCallIncoming, 1, 0, nil))

	var audio []string
	for _, p := range poster.posts {
		if p.dest == bus.DestinationAudio {
			audio = append(audio, p.kind)
		}
	}
	require.NotEmpty(t, audio)
	assert.NotEqual(t, "AUDIO_PLAY_RINGTONE", audio[len(audio)-1])
	assert.NotContains(t, audio, "AUDIO_PLAY_RINGTONE")
	assert.NotContains(t, w.calls, uint32(1))
	assert.Empty(t, w.ringing)
}

func TestBridgeCallAnsweredBeforeRingingDoesNotRing(t *testing.T) {
	h, w, poster := newTestBridge(t)

	h.OnCall(2, true, false)
	require.NoError(t, handle(t, w, bus.ToxCallAnswer, 2, 0, nil))
	require.NoError(t, handle(t, w, bus.ToxCallIncoming, 2, 0, nil))

	_, rang := poster.find("AUDIO_PLAY_RINGTONE")
	assert.False(t, rang)
	assert.Contains(t, w.calls, uint32(2))
}

func TestBridgeIncomingCallDoesNotOpenMediaBeforeAnswer(t *testing.T) {
	h, w, poster := newTestBridge(t)

	h.OnCall(3, true, false)
	poster.reset()
	h.OnCallState(3, CallStateSendingAudio)

	_, started := poster.find("AUDIO_CALL_START")
	assert.False(t, started)
	assert.True(t, w.ringing[3])
}

func TestBridgeCallStateTransitions(t *testing.T) {
	h, w, poster := newTestBridge(t)

	h.OnCallState(6, CallStateSendingAudio|CallStateAcceptingAudio)
	assert.Equal(t, []string{
		"FRIEND_AV_STATUS_CHANGE",
		"AUDIO_STOP_RINGTONE",
		"AUDIO_CALL_START",
		"FRIEND_CALL_AUDIO_CONNECTED",
		"FRIEND_CALL_MEDIACHANGE",
	}, poster.kinds())

	poster.reset()
	h.OnCallState(6, CallStateSendingAudio|CallStateAcceptingAudio|CallStateSendingVideo)
	assert.Equal(t, []string{
		"FRIEND_CALL_START_VIDEO",
		"FRIEND_CALL_VIDEO_CONNECTED",
		"FRIEND_CALL_MEDIACHANGE",
	}, poster.kinds())

	poster.reset()
	h.OnCallState(6, CallStateSendingAudio|CallStateAcceptingAudio|CallStateSendingVideo)
	assert.Empty(t, poster.kinds(), "an unchanged state reports nothing")

	poster.reset()
	h.OnCallState(6, CallStateAcceptingAudio)
	assert.Equal(t, []string{
		"FRIEND_CALL_AUDIO_DISCONNECTED",
		"FRIEND_CALL_STOP_VIDEO",
		"FRIEND_CALL_VIDEO_DISCONNECTED",
		"FRIEND_CALL_MEDIACHANGE",
	}, poster.kinds())

	poster.reset()
	h.OnCallState(6, CallStateFinished)
	assert.Contains(t, poster.kinds(), "AUDIO_CALL_END")
	assert.Contains(t, poster.kinds(), "FRIEND_AV_DISCONNECT")
	assert.NotContains(t, w.calls, uint32(6))
}

func TestBridgeFriendOfflineEndsCall(t *testing.T) {
	h, w, poster := newTestBridge(t)
	require.NoError(t, handle(t, w, bus.ToxCallAnswer, 8, 0, nil))
	poster.reset()

	h.OnFriendConnectionStatus(8, false)

	kinds := poster.kinds()
	assert.Contains(t, kinds, "AUDIO_CALL_END")
	assert.Equal(t, "FRIEND_ONLINE", kinds[len(kinds)-1])
	assert.Empty(t, w.calls)
}

func TestBridgeFileRecvControl(t *testing.T) {
	h, w, poster := newTestBridge(t)

	h.OnFileRecvControl(1, 1, FileControlPause)
	assert.Empty(t, poster.kinds(), "unknown transfers are ignored")

	h.OnFileRecv(1, 1, "song.ogg", 10)
	h.OnFileRecvControl(1, 1, FileControlCancel)
	update, ok := poster.find("FRIEND_FILE_UPDATE")
	require.True(t, ok)
	assert.Equal(t, bus.FileStatusCancelled, update.payload.(bus.FileInfo).Status)
	assert.Empty(t, w.transfers)
}

func TestBridgeGroupEvents(t *testing.T) {
	h, _, poster := newTestBridge(t)

	h.OnGroupJoined(2, true)
	h.OnGroupMessage(2, 4, MessageTypeNormal, "hey")
	h.OnGroupPeerJoin(2, 5)
	h.OnGroupTitle(2, 5, "Tox talk")

	assert.Equal(t, []string{
		"GROUP_ADD",
		"GROUP_MESSAGE",
		"GROUP_PEER_ADD", "GROUP_UPDATE",
		"GROUP_TITLE", "GROUP_UPDATE",
	}, poster.kinds())
	assert.Equal(t, uint32(4), poster.posts[1].p2)
}
