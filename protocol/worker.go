// Package protocol implements the protocol ("tox") worker. The worker owns
// the Engine handle: it turns ToxKind commands into engine calls and engine
// notifications into UI events.
package protocol

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opd-ai/utox/bus"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNoEngine is returned by NewWorker without an engine handle.
	ErrNoEngine = errors.New("protocol engine required")
	// ErrInvalidFriendAddress is returned for a malformed Tox ID.
	ErrInvalidFriendAddress = errors.New("invalid friend address")
	// ErrInvalidUserStatus is returned for a user status out of range.
	ErrInvalidUserStatus = errors.New("invalid user status")
	// ErrUnknownTransfer is returned for a file number the worker never saw.
	ErrUnknownTransfer = errors.New("unknown file transfer")
)

// DefaultFriendRequestMessage is sent when a friend request has no greeting.
const DefaultFriendRequestMessage = "Please accept this friend request."

// Options configures the protocol worker.
type Options struct {
	// SendTypingStatus forwards TOX_SEND_TYPING to the engine.
	SendTypingStatus bool
	// FriendRequestMessage replaces an empty friend request greeting.
	FriendRequestMessage string
	// MinIterationInterval bounds how often the engine is iterated.
	MinIterationInterval time.Duration
}

// NewOptions returns the default worker options.
func NewOptions() *Options {
	return &Options{
		SendTypingStatus:     true,
		FriendRequestMessage: DefaultFriendRequestMessage,
		MinIterationInterval: 5 * time.Millisecond,
	}
}

type transferKey struct {
	friend, file uint32
}

// Worker is the bus.Handler of the protocol destination. All of its state
// is confined to the loop goroutine: commands arrive through Handle and
// engine callbacks through Tick, both on that goroutine.
type Worker struct {
	engine Engine
	post   bus.Poster
	opts   Options

	transfers   map[transferKey]bus.FileInfo
	calls       map[uint32]CallState
	callVideo   map[uint32]bool
	ringing     map[uint32]bool
	media       map[uint32]bool
	audioGroups map[uint32]bool
	connected   bool
}

// NewWorker creates the protocol worker. poster receives UI events and
// the cross-worker commands of call handling.
func NewWorker(engine Engine, poster bus.Poster, opts *Options) (*Worker, error) {
	if engine == nil {
		return nil, ErrNoEngine
	}
	if opts == nil {
		opts = NewOptions()
	}
	return &Worker{
		engine:      engine,
		post:        poster,
		opts:        *opts,
		transfers:   make(map[transferKey]bus.FileInfo),
		calls:       make(map[uint32]CallState),
		callVideo:   make(map[uint32]bool),
		ringing:     make(map[uint32]bool),
		media:       make(map[uint32]bool),
		audioGroups: make(map[uint32]bool),
	}, nil
}

// Init registers the worker as the engine's event handler. It runs before
// the loop starts.
func (w *Worker) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.engine.SetHandler(&bridge{w: w})

	logrus.WithFields(logrus.Fields{
		"function": "Worker.Init",
		"address":  w.engine.SelfAddress(),
	}).Info("Protocol worker ready")
	return nil
}

// Interval implements bus.Ticker.
func (w *Worker) Interval() time.Duration {
	interval := w.engine.IterationInterval()
	if interval < w.opts.MinIterationInterval {
		return w.opts.MinIterationInterval
	}
	return interval
}

// Tick implements bus.Ticker by iterating the engine.
func (w *Worker) Tick(ctx context.Context) {
	w.engine.Iterate()
}

// Teardown kills the engine and tells the UI the protocol worker is done.
func (w *Worker) Teardown() {
	w.engine.Kill()
	w.post.PostToUI(bus.UIToxDone, 0, 0, nil)

	logrus.WithFields(logrus.Fields{
		"function":  "Worker.Teardown",
		"transfers": len(w.transfers),
		"calls":     len(w.calls),
	}).Info("Protocol worker stopped")
}

// Handle implements bus.Handler. Every ToxKind has a case.
func (w *Worker) Handle(ctx context.Context, msg bus.Message[bus.ToxKind]) error {
	p1, p2 := msg.Param1, msg.Param2

	switch msg.Kind {
	case bus.ToxKill:
		// consumed by the loop
		return nil

	case bus.ToxSelfSetName:
		return w.selfSetName(msg.Payload.(bus.Text).Value)
	case bus.ToxSelfSetStatus:
		return w.selfSetStatusMessage(msg.Payload.(bus.Text).Value)
	case bus.ToxSelfSetState:
		return w.selfSetState(p1)

	case bus.ToxAvatarSet:
		return w.avatarSet(p1, msg.Payload.(bus.Avatar))
	case bus.ToxAvatarUnset:
		return w.engine.SelfUnsetAvatar()

	case bus.ToxFriendNew:
		return w.friendNew(msg.Payload.(bus.FriendAddress))
	case bus.ToxFriendAccept:
		return w.friendAccept(msg.Payload.(bus.PublicKey))
	case bus.ToxFriendDelete:
		return w.friendDelete(p1)
	case bus.ToxFriendOnline:
		return w.friendOnline(p1)

	case bus.ToxSendMessage:
		return w.sendMessage(p1, MessageTypeNormal, msg.Payload.(bus.Text).Value)
	case bus.ToxSendAction:
		return w.sendMessage(p1, MessageTypeAction, msg.Payload.(bus.Text).Value)
	case bus.ToxSendTyping:
		return w.sendTyping(p1, p2 != 0)

	case bus.ToxFileAccept:
		return w.fileAccept(p1, p2, msg.Payload.(bus.FilePath).Path)
	case bus.ToxFileSendNew:
		return w.fileSendNew(p1, msg.Payload.(bus.FileList).Paths)
	case bus.ToxFileSendNewInline:
		return w.fileSendInline(p1, msg.Payload.(bus.InlineImage))
	case bus.ToxFileSendNewSlash:
		return w.fileSendNew(p1, []string{msg.Payload.(bus.FilePath).Path})
	case bus.ToxFileResume:
		return w.fileControl(p1, p2, FileControlResume)
	case bus.ToxFilePause:
		return w.fileControl(p1, p2, FileControlPause)
	case bus.ToxFileCancel:
		return w.fileControl(p1, p2, FileControlCancel)

	case bus.ToxCallSend:
		return w.callSend(p1, p2 != 0)
	case bus.ToxCallIncoming:
		return w.callIncoming(p1, p2 != 0)
	case bus.ToxCallAnswer:
		return w.callAnswer(p1, p2 != 0)
	case bus.ToxCallPauseAudio:
		return w.callPauseAudio(p1, p2 != 0)
	case bus.ToxCallPauseVideo:
		return w.callPauseVideo(p1, p2 != 0)
	case bus.ToxCallDisconnect:
		return w.callDisconnect(p1)

	case bus.ToxGroupCreate:
		return w.groupCreate(p1 != 0)
	case bus.ToxGroupExit:
		return w.groupExit(p1)
	case bus.ToxGroupSendInvite:
		return w.engine.GroupInvite(p1, p2)
	case bus.ToxGroupSetTopic:
		return w.groupSetTopic(p1, msg.Payload.(bus.Text).Value)
	case bus.ToxGroupSendMessage:
		return w.groupSend(p1, MessageTypeNormal, msg.Payload.(bus.Text).Value)
	case bus.ToxGroupSendAction:
		return w.groupSend(p1, MessageTypeAction, msg.Payload.(bus.Text).Value)
	case bus.ToxGroupAudioStart:
		return w.groupAudio(p1, true)
	case bus.ToxGroupAudioEnd:
		return w.groupAudio(p1, false)
	}

	return fmt.Errorf("%w: %s", bus.ErrUnknownKind, msg.Kind)
}

// tooltip reports a rejected command to the user.
func (w *Worker) tooltip(format string, args ...any) {
	w.post.PostToUI(bus.UITooltipShow, 0, 0, bus.Text{Value: fmt.Sprintf(format, args...)})
}
