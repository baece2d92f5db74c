package testing

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/opd-ai/utox/crypto"
	"github.com/opd-ai/utox/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type event struct {
	name   string
	friend uint32
	num    uint32
	text   string
	flag   bool
	data   []byte
	state  protocol.CallState
	key    [32]byte
}

// recorder implements protocol.EventHandler.
type recorder struct {
	mu     sync.Mutex
	events []event
}

func (r *recorder) add(ev event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) all(name string) []event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []event
	for _, ev := range r.events {
		if ev.name == name {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recorder) last(name string) (event, bool) {
	evs := r.all(name)
	if len(evs) == 0 {
		return event{}, false
	}
	return evs[len(evs)-1], true
}

func (r *recorder) OnConnectionStatus(connected bool) {
	r.add(event{name: "connection", flag: connected})
}
func (r *recorder) OnFriendRequest(pk [32]byte, message string) {
	r.add(event{name: "request", key: pk, text: message})
}
func (r *recorder) OnFriendMessage(friend uint32, kind protocol.MessageType, text string) {
	r.add(event{name: "message", friend: friend, num: uint32(kind), text: text})
}
func (r *recorder) OnFriendName(friend uint32, name string) {
	r.add(event{name: "name", friend: friend, text: name})
}
func (r *recorder) OnFriendStatusMessage(friend uint32, message string) {
	r.add(event{name: "status_message", friend: friend, text: message})
}
func (r *recorder) OnFriendStatus(friend uint32, status protocol.UserStatus) {
	r.add(event{name: "status", friend: friend, num: uint32(status)})
}
func (r *recorder) OnFriendTyping(friend uint32, typing bool) {
	r.add(event{name: "typing", friend: friend, flag: typing})
}
func (r *recorder) OnFriendConnectionStatus(friend uint32, connected bool) {
	r.add(event{name: "friend_online", friend: friend, flag: connected})
}
func (r *recorder) OnFriendAvatar(friend uint32, png []byte) {
	r.add(event{name: "avatar", friend: friend, data: png})
}
func (r *recorder) OnFileRecv(friend, file uint32, name string, size uint64) {
	r.add(event{name: "file_recv", friend: friend, num: file, text: name})
}
func (r *recorder) OnFileRecvControl(friend, file uint32, control protocol.FileControl) {
	r.add(event{name: "file_control", friend: friend, num: file, state: protocol.CallState(control)})
}
func (r *recorder) OnFileProgress(friend, file uint32, transferred uint64) {
	r.add(event{name: "file_progress", friend: friend, num: file, state: protocol.CallState(transferred)})
}
func (r *recorder) OnInlineImage(friend uint32, name string, png []byte) {
	r.add(event{name: "inline", friend: friend, text: name, data: png})
}
func (r *recorder) OnCall(friend uint32, audio, video bool) {
	r.add(event{name: "call", friend: friend, flag: audio, num: boolNum(video)})
}
func (r *recorder) OnCallState(friend uint32, state protocol.CallState) {
	r.add(event{name: "call_state", friend: friend, state: state})
}
func (r *recorder) OnGroupJoined(group uint32, audio bool) {
	r.add(event{name: "group_joined", friend: group, flag: audio})
}
func (r *recorder) OnGroupMessage(group, peer uint32, kind protocol.MessageType, text string) {
	r.add(event{name: "group_message", friend: group, num: peer, text: text})
}
func (r *recorder) OnGroupPeerJoin(group, peer uint32) {
	r.add(event{name: "group_peer_join", friend: group, num: peer})
}
func (r *recorder) OnGroupPeerExit(group, peer uint32) {
	r.add(event{name: "group_peer_exit", friend: group, num: peer})
}
func (r *recorder) OnGroupPeerName(group, peer uint32, name string) {
	r.add(event{name: "group_peer_name", friend: group, num: peer, text: name})
}
func (r *recorder) OnGroupTitle(group, peer uint32, title string) {
	r.add(event{name: "group_title", friend: group, num: peer, text: title})
}

func boolNum(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

type node struct {
	*SimulatedEngine
	rec *recorder
}

func newNode(t *testing.T, network *LoopbackNetwork) node {
	t.Helper()
	e, err := NewSimulatedEngine(network)
	require.NoError(t, err)
	rec := &recorder{}
	e.SetHandler(rec)
	return node{e, rec}
}

func pump(nodes ...node) {
	for i := 0; i < 4; i++ {
		for _, n := range nodes {
			n.Iterate()
		}
	}
}

// befriend makes a and b friends and returns the friend number of b on a
// and of a on b.
func befriend(t *testing.T, a, b node) (uint32, uint32) {
	t.Helper()
	id, err := crypto.ToxIDFromString(b.SelfAddress())
	require.NoError(t, err)
	onA, err := a.FriendAdd(id, "let me in")
	require.NoError(t, err)
	pump(a, b)

	req, ok := b.rec.last("request")
	require.True(t, ok, "friend request not received")
	assert.Equal(t, a.SelfPublicKey(), req.key)
	assert.Equal(t, "let me in", req.text)

	onB, err := b.FriendAddNoRequest(req.key)
	require.NoError(t, err)
	pump(a, b)

	online, err := a.FriendConnected(onA)
	require.NoError(t, err)
	require.True(t, online)
	online, err = b.FriendConnected(onB)
	require.NoError(t, err)
	require.True(t, online)
	return onA, onB
}

func TestNewSimulatedEngine(t *testing.T) {
	network := NewLoopbackNetwork()
	n := newNode(t, network)

	assert.Equal(t, 1, network.Nodes())
	assert.Equal(t, protocol.DefaultName, n.SelfName())
	id, err := crypto.ToxIDFromString(n.SelfAddress())
	require.NoError(t, err)
	assert.Equal(t, n.SelfPublicKey(), id.PublicKey)

	_, err = NewSimulatedEngineWithKeys(nil, nil)
	assert.Error(t, err)
	_, err = NewSimulatedEngineWithKeys(network, nil)
	assert.Error(t, err)
}

func TestIterateAnnouncesConnectionOnce(t *testing.T) {
	n := newNode(t, NewLoopbackNetwork())
	n.Iterate()
	n.Iterate()

	evs := n.rec.all("connection")
	require.Len(t, evs, 1)
	assert.True(t, evs[0].flag)
	assert.Equal(t, uint64(2), n.Iterations())
}

func TestFriendshipEstablishesSession(t *testing.T) {
	network := NewLoopbackNetwork()
	alice, bob := newNode(t, network), newNode(t, network)
	befriend(t, alice, bob)

	name, ok := alice.rec.last("name")
	require.True(t, ok)
	assert.Equal(t, protocol.DefaultName, name.text)
	sm, ok := bob.rec.last("status_message")
	require.True(t, ok)
	assert.Equal(t, protocol.DefaultStatusMessage, sm.text)

	var kinds []string
	for _, rec := range network.DeliveryLog() {
		kinds = append(kinds, rec.Kind)
	}
	assert.Contains(t, kinds, "friend_request")
	assert.Contains(t, kinds, "handshake_init")
	assert.Contains(t, kinds, "handshake_reply")
}

func TestFriendAddErrors(t *testing.T) {
	network := NewLoopbackNetwork()
	alice, bob := newNode(t, network), newNode(t, network)

	own, err := crypto.ToxIDFromString(alice.SelfAddress())
	require.NoError(t, err)
	bobID, err := crypto.ToxIDFromString(bob.SelfAddress())
	require.NoError(t, err)

	tests := []struct {
		name string
		id   *crypto.ToxID
		msg  string
		want protocol.FriendAddError
	}{
		{"nil address", nil, "hi", protocol.FriendAddNull},
		{"empty message", bobID, "", protocol.FriendAddNoMessage},
		{"own key", own, "hi", protocol.FriendAddOwnKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := alice.FriendAdd(tt.id, tt.msg)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err = alice.FriendAdd(bobID, "hi")
	require.NoError(t, err)
	_, err = alice.FriendAdd(bobID, "again")
	assert.ErrorIs(t, err, protocol.FriendAddAlreadySent)
}

func TestFriendRequestWithStaleNospamIsDropped(t *testing.T) {
	network := NewLoopbackNetwork()
	alice, bob := newNode(t, network), newNode(t, network)

	stale := crypto.NewToxID(bob.SelfPublicKey(), [4]byte{0xde, 0xad, 0xbe, 0xef})
	_, err := alice.FriendAdd(stale, "hello?")
	require.NoError(t, err)
	pump(alice, bob)

	assert.Empty(t, bob.rec.all("request"))
}

func TestMutualFriendAddConnects(t *testing.T) {
	network := NewLoopbackNetwork()
	alice, bob := newNode(t, network), newNode(t, network)

	aliceID, _ := crypto.ToxIDFromString(alice.SelfAddress())
	bobID, _ := crypto.ToxIDFromString(bob.SelfAddress())
	_, err := alice.FriendAdd(bobID, "hi bob")
	require.NoError(t, err)
	_, err = bob.FriendAdd(aliceID, "hi alice")
	require.NoError(t, err)
	pump(alice, bob)

	for _, n := range []node{alice, bob} {
		online, err := n.FriendConnected(0)
		require.NoError(t, err)
		assert.True(t, online)
	}
	require.NoError(t, alice.FriendSendMessage(0, protocol.MessageTypeNormal, "crossed"))
	pump(alice, bob)
	msg, ok := bob.rec.last("message")
	require.True(t, ok)
	assert.Equal(t, "crossed", msg.text)
}

func TestMessagesAndProfileUpdates(t *testing.T) {
	network := NewLoopbackNetwork()
	alice, bob := newNode(t, network), newNode(t, network)
	befriend(t, alice, bob)

	require.NoError(t, alice.FriendSendMessage(0, protocol.MessageTypeNormal, "one"))
	require.NoError(t, alice.FriendSendMessage(0, protocol.MessageTypeAction, "waves"))
	require.NoError(t, alice.SelfSetName("Alice"))
	require.NoError(t, alice.SelfSetStatus(protocol.UserStatusBusy))
	require.NoError(t, alice.SetTyping(0, true))
	require.NoError(t, alice.SelfSetAvatar([]byte{0x89, 'P', 'N', 'G'}))
	require.NoError(t, alice.SelfUnsetAvatar())
	pump(alice, bob)

	msgs := bob.rec.all("message")
	require.Len(t, msgs, 2)
	assert.Equal(t, "one", msgs[0].text)
	assert.Equal(t, uint32(protocol.MessageTypeAction), msgs[1].num)

	name, _ := bob.rec.last("name")
	assert.Equal(t, "Alice", name.text)
	status, _ := bob.rec.last("status")
	assert.Equal(t, uint32(protocol.UserStatusBusy), status.num)
	typing, _ := bob.rec.last("typing")
	assert.True(t, typing.flag)
	avatars := bob.rec.all("avatar")
	require.Len(t, avatars, 2)
	assert.Len(t, avatars[0].data, 4)
	assert.Empty(t, avatars[1].data)

	err := alice.FriendSendMessage(7, protocol.MessageTypeNormal, "nobody")
	assert.ErrorIs(t, err, ErrFriendNotFound)
}

func TestFriendDeleteAndKill(t *testing.T) {
	network := NewLoopbackNetwork()
	alice, bob, carol := newNode(t, network), newNode(t, network), newNode(t, network)
	befriend(t, alice, bob)
	_, carolOnAlice := befriend(t, carol, alice)
	require.Equal(t, uint32(1), carolOnAlice)

	require.NoError(t, alice.FriendDelete(0))
	pump(alice, bob)
	off, ok := bob.rec.last("friend_online")
	require.True(t, ok)
	assert.False(t, off.flag)
	_, err := alice.FriendConnected(0)
	assert.ErrorIs(t, err, ErrFriendNotFound)

	alice.Kill()
	alice.Kill()
	pump(carol)
	off, ok = carol.rec.last("friend_online")
	require.True(t, ok)
	assert.False(t, off.flag)
	assert.Equal(t, 2, network.Nodes())
}

func TestFileTransfer(t *testing.T) {
	network := NewLoopbackNetwork()
	alice, bob := newNode(t, network), newNode(t, network)
	befriend(t, alice, bob)

	dir := t.TempDir()
	src := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello file"), 0o600))
	inbox := filepath.Join(dir, "inbox")
	require.NoError(t, os.Mkdir(inbox, 0o700))

	file, err := alice.FileSend(0, src, "notes.txt", 10)
	require.NoError(t, err)
	pump(alice, bob)

	offer, ok := bob.rec.last("file_recv")
	require.True(t, ok)
	assert.Equal(t, file, offer.num)
	assert.Equal(t, "notes.txt", offer.text)

	require.NoError(t, bob.FileAccept(0, offer.num, inbox))
	pump(alice, bob)

	got, err := os.ReadFile(filepath.Join(inbox, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello file", string(got))

	done, ok := bob.rec.last("file_progress")
	require.True(t, ok)
	assert.Equal(t, protocol.CallState(10), done.state)
	_, ok = alice.rec.last("file_progress")
	assert.True(t, ok)

	assert.ErrorIs(t, bob.FileAccept(0, offer.num, inbox), ErrUnknownFile)
}

func TestFileTransferCancel(t *testing.T) {
	network := NewLoopbackNetwork()
	alice, bob := newNode(t, network), newNode(t, network)
	befriend(t, alice, bob)

	file, err := alice.FileSend(0, "/does/not/matter", "big.iso", 1<<30)
	require.NoError(t, err)
	pump(alice, bob)

	require.NoError(t, bob.FileControl(0, file, protocol.FileControlCancel))
	pump(alice, bob)

	ctl, ok := alice.rec.last("file_control")
	require.True(t, ok)
	assert.Equal(t, protocol.CallState(protocol.FileControlCancel), ctl.state)
	assert.ErrorIs(t, alice.FileControl(0, file, protocol.FileControlPause), ErrUnknownFile)
}

func TestInlineImage(t *testing.T) {
	network := NewLoopbackNetwork()
	alice, bob := newNode(t, network), newNode(t, network)
	befriend(t, alice, bob)

	file, err := alice.FileSendData(0, "screenshot.png", []byte{1, 2, 3})
	require.NoError(t, err)
	pump(alice, bob)

	img, ok := bob.rec.last("inline")
	require.True(t, ok)
	assert.Equal(t, "screenshot.png", img.text)
	assert.Equal(t, []byte{1, 2, 3}, img.data)

	done, ok := alice.rec.last("file_progress")
	require.True(t, ok)
	assert.Equal(t, file, done.num)
}

func TestGroupConference(t *testing.T) {
	network := NewLoopbackNetwork()
	alice, bob, carol := newNode(t, network), newNode(t, network), newNode(t, network)
	bobOnAlice, _ := befriend(t, alice, bob)
	carolOnAlice, _ := befriend(t, alice, carol)
	require.NoError(t, alice.SelfSetName("Alice"))

	group, err := alice.GroupNew(true)
	require.NoError(t, err)
	require.NoError(t, alice.GroupSetTitle(group, "Standup"))
	require.NoError(t, alice.GroupInvite(group, bobOnAlice))
	require.NoError(t, alice.GroupInvite(group, carolOnAlice))
	pump(alice, bob, carol)

	joined, ok := bob.rec.last("group_joined")
	require.True(t, ok)
	assert.True(t, joined.flag)
	title, ok := carol.rec.last("group_title")
	require.True(t, ok)
	assert.Equal(t, "Standup", title.text)

	names := carol.rec.all("group_peer_name")
	require.NotEmpty(t, names)
	assert.Equal(t, "Alice", names[0].text)

	require.NoError(t, bob.GroupSendMessage(joined.friend, protocol.MessageTypeNormal, "morning"))
	pump(alice, bob, carol)
	for _, n := range []node{alice, carol} {
		msg, ok := n.rec.last("group_message")
		require.True(t, ok)
		assert.Equal(t, "morning", msg.text)
	}

	require.NoError(t, bob.GroupLeave(joined.friend))
	pump(alice, bob, carol)
	_, ok = alice.rec.last("group_peer_exit")
	assert.True(t, ok)
	assert.ErrorIs(t, bob.GroupLeave(joined.friend), ErrUnknownGroup)
	assert.Equal(t, 1, network.Groups())
}
