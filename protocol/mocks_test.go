package protocol

import (
	"errors"
	"sync"
	"time"

	"github.com/opd-ai/utox/bus"
	"github.com/opd-ai/utox/crypto"
)

// ---------------------------------------------------------------------------
// mockEngine records the calls made by the worker.
// ---------------------------------------------------------------------------

type mockEngine struct {
	handler EventHandler

	name, statusMessage string
	status              UserStatus
	avatar              []byte
	sent                []string
	typing              map[uint32]bool
	requests            []string
	controls            []CallControl
	fileControls        []FileControl
	titles              []string
	iterations          int
	killed              bool
	nextFile            uint32

	friendAddErr error
	callErr      error
}

var errMock = errors.New("mock failure")

func newMockEngine() *mockEngine {
	return &mockEngine{typing: make(map[uint32]bool)}
}

func (m *mockEngine) SetHandler(h EventHandler)     { m.handler = h }
func (m *mockEngine) SelfAddress() string           { return "mock" }
func (m *mockEngine) SelfPublicKey() [32]byte       { return [32]byte{1} }
func (m *mockEngine) SelfSetName(name string) error { m.name = name; return nil }
func (m *mockEngine) SelfSetStatusMessage(s string) error {
	m.statusMessage = s
	return nil
}
func (m *mockEngine) SelfSetStatus(s UserStatus) error { m.status = s; return nil }
func (m *mockEngine) SelfSetAvatar(png []byte) error   { m.avatar = png; return nil }
func (m *mockEngine) SelfUnsetAvatar() error           { m.avatar = nil; return nil }

func (m *mockEngine) FriendAdd(id *crypto.ToxID, message string) (uint32, error) {
	if m.friendAddErr != nil {
		return 0, m.friendAddErr
	}
	m.requests = append(m.requests, message)
	return uint32(len(m.requests) - 1), nil
}

func (m *mockEngine) FriendAddNoRequest(publicKey [32]byte) (uint32, error) { return 7, nil }
func (m *mockEngine) FriendDelete(friend uint32) error                      { return nil }
func (m *mockEngine) FriendConnected(friend uint32) (bool, error)           { return friend == 1, nil }

func (m *mockEngine) FriendSendMessage(friend uint32, kind MessageType, text string) error {
	m.sent = append(m.sent, text)
	return nil
}

func (m *mockEngine) SetTyping(friend uint32, typing bool) error {
	m.typing[friend] = typing
	return nil
}

func (m *mockEngine) FileSend(friend uint32, path, name string, size uint64) (uint32, error) {
	m.nextFile++
	return m.nextFile, nil
}

func (m *mockEngine) FileSendData(friend uint32, name string, data []byte) (uint32, error) {
	m.nextFile++
	return m.nextFile, nil
}

func (m *mockEngine) FileAccept(friend, file uint32, path string) error { return nil }

func (m *mockEngine) FileControl(friend, file uint32, control FileControl) error {
	m.fileControls = append(m.fileControls, control)
	return nil
}

func (m *mockEngine) Call(friend uint32, audio, video bool) error   { return m.callErr }
func (m *mockEngine) Answer(friend uint32, audio, video bool) error { return m.callErr }

func (m *mockEngine) CallControl(friend uint32, control CallControl) error {
	m.controls = append(m.controls, control)
	return nil
}

func (m *mockEngine) GroupNew(audio bool) (uint32, error) { return 3, nil }
func (m *mockEngine) GroupLeave(group uint32) error       { return nil }
func (m *mockEngine) GroupInvite(group, friend uint32) error {
	return nil
}

func (m *mockEngine) GroupSetTitle(group uint32, title string) error {
	m.titles = append(m.titles, title)
	return nil
}

func (m *mockEngine) GroupSendMessage(group uint32, kind MessageType, text string) error {
	m.sent = append(m.sent, text)
	return nil
}

func (m *mockEngine) Iterate()                         { m.iterations++ }
func (m *mockEngine) IterationInterval() time.Duration { return time.Millisecond }
func (m *mockEngine) Kill()                            { m.killed = true }

// ---------------------------------------------------------------------------
// recordingPoster stores every post in order.
// ---------------------------------------------------------------------------

type posted struct {
	dest    bus.Destination
	kind    string
	p1, p2  uint32
	payload bus.Payload
}

type recordingPoster struct {
	mu    sync.Mutex
	posts []posted
}

func (r *recordingPoster) add(dest bus.Destination, kind string, p1, p2 uint32, payload bus.Payload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts = append(r.posts, posted{dest, kind, p1, p2, payload})
}

func (r *recordingPoster) PostToNetwork(k bus.ToxKind, p1, p2 uint32, p bus.Payload) {
	r.add(k.Destination(), k.String(), p1, p2, p)
}

func (r *recordingPoster) PostToAudio(k bus.AudioKind, p1, p2 uint32, p bus.Payload) {
	r.add(k.Destination(), k.String(), p1, p2, p)
}

func (r *recordingPoster) PostToVideo(k bus.VideoKind, p1, p2 uint32, p bus.Payload) {
	r.add(k.Destination(), k.String(), p1, p2, p)
}

func (r *recordingPoster) PostToCallOrchestration(k bus.ToxAVKind, p1, p2 uint32, p bus.Payload) {
	r.add(k.Destination(), k.String(), p1, p2, p)
}

func (r *recordingPoster) PostToUI(k bus.UIEvent, p1, p2 uint32, p bus.Payload) {
	r.add(k.Destination(), k.String(), p1, p2, p)
}

// kinds returns the kind names posted, in order.
func (r *recordingPoster) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.posts))
	for i, p := range r.posts {
		out[i] = p.kind
	}
	return out
}

// find returns the first post of kind.
func (r *recordingPoster) find(kind string) (posted, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.posts {
		if p.kind == kind {
			return p, true
		}
	}
	return posted{}, false
}

func (r *recordingPoster) reset() {
	r.mu.Lock()
	r.posts = nil
	r.mu.Unlock()
}
