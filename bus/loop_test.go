package bus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHandler stores every record it handles.
type recordingHandler[K Kind] struct {
	mu       sync.Mutex
	seen     []Message[K]
	err      error
	panicOn  K
	panics   bool
	tornDown atomic.Bool
	gate     chan struct{}
	interval time.Duration
	ticks    atomic.Int32
}

func (h *recordingHandler[K]) Handle(_ context.Context, msg Message[K]) error {
	if h.gate != nil {
		<-h.gate
	}
	if h.panics && msg.Kind == h.panicOn {
		panic("boom")
	}
	h.mu.Lock()
	h.seen = append(h.seen, msg)
	h.mu.Unlock()
	return h.err
}

func (h *recordingHandler[K]) Teardown() { h.tornDown.Store(true) }

func (h *recordingHandler[K]) records() []Message[K] {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Message[K](nil), h.seen...)
}

type tickingHandler struct {
	recordingHandler[VideoKind]
}

func (h *tickingHandler) Interval() time.Duration  { return h.interval }
func (h *tickingHandler) Tick(ctx context.Context) { h.ticks.Add(1) }

func startLoop[K Kind](t *testing.T, l *Loop[K]) chan error {
	t.Helper()
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(context.Background()) }()
	return errCh
}

func TestLoopProcessesRecordsPostedBeforeRun(t *testing.T) {
	mb := NewQueueMailbox[AudioKind]("audio", 8, DropOldest)
	h := &recordingHandler[AudioKind]{}

	require.True(t, mb.Post(mustMessage(t, AudioSetInput, 3, 0, nil)))
	require.True(t, mb.Post(mustMessage(t, AudioKill, 0, 0, nil)))

	l := NewLoop[AudioKind]("audio", mb, h)
	require.NoError(t, l.Run(context.Background()))

	seen := h.records()
	require.Len(t, seen, 1)
	assert.Equal(t, AudioSetInput, seen[0].Kind)
	assert.Equal(t, uint32(3), seen[0].Param1)
	assert.True(t, h.tornDown.Load())
	assert.Equal(t, uint64(1), l.Handled())
}

func TestLoopKillTerminatesAndRefusesLaterPosts(t *testing.T) {
	mb := NewQueueMailbox[ToxKind]("tox", 8, DropOldest)
	h := &recordingHandler[ToxKind]{}
	l := NewLoop[ToxKind]("tox", mb, h)
	errCh := startLoop(t, l)

	require.True(t, mb.Post(mustMessage(t, ToxSendTyping, 1, 1, nil)))
	require.True(t, mb.Post(mustMessage(t, ToxKill, 0, 0, nil)))
	assert.False(t, mb.Post(mustMessage(t, ToxSendTyping, 2, 1, nil)))

	require.NoError(t, l.Join(time.Second))
	require.NoError(t, <-errCh)

	seen := h.records()
	require.Len(t, seen, 1)
	assert.Equal(t, uint32(1), seen[0].Param1)
	assert.True(t, h.tornDown.Load())

	// closed after teardown
	assert.False(t, mb.Post(mustMessage(t, ToxSendTyping, 3, 1, nil)))
	assert.Equal(t, uint64(2), mb.Stats().Refused)
}

func TestLoopUnknownKindIsIgnored(t *testing.T) {
	mb := NewQueueMailbox[VideoKind]("video", 8, DropOldest)
	h := &recordingHandler[VideoKind]{err: ErrUnknownKind}
	l := NewLoop[VideoKind]("video", mb, h)

	mb.Post(mustMessage(t, VideoCallStart, 1, 0, nil))
	mb.Post(mustMessage(t, VideoCallEnd, 1, 0, nil))
	mb.Post(mustMessage(t, VideoKill, 0, 0, nil))
	require.NoError(t, l.Run(context.Background()))

	assert.Len(t, h.records(), 2, "the loop must continue after an unknown kind")
	assert.Equal(t, uint64(2), l.Failed())
}

func TestLoopRecoversFromHandlerPanic(t *testing.T) {
	mb := NewQueueMailbox[AudioKind]("audio", 8, DropOldest)
	h := &recordingHandler[AudioKind]{panics: true, panicOn: AudioPlayRingtone}
	l := NewLoop[AudioKind]("audio", mb, h)

	mb.Post(mustMessage(t, AudioPlayRingtone, 1, 0, nil))
	mb.Post(mustMessage(t, AudioStopRingtone, 1, 0, nil))
	mb.Post(mustMessage(t, AudioKill, 0, 0, nil))
	require.NoError(t, l.Run(context.Background()))

	seen := h.records()
	require.Len(t, seen, 1)
	assert.Equal(t, AudioStopRingtone, seen[0].Kind)
	assert.Equal(t, uint64(1), l.Failed())
}

func TestLoopReleasesPayloadAfterHandling(t *testing.T) {
	pool := NewFramePool(2, 2)
	mb := NewQueueMailbox[UIEvent]("ui", 8, DropOldest)
	var stop atomic.Bool
	h := HandlerFunc[UIEvent](func(_ context.Context, msg Message[UIEvent]) error {
		if msg.Kind == UIToxDone {
			stop.Store(true)
		}
		return nil
	})
	l := NewLoop[UIEvent]("ui", mb, h)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	for i := 0; i < 4; i++ {
		mb.Post(mustMessage(t, UIPreviewFrame, 0, 0, pool.Get()))
	}
	mb.Post(mustMessage(t, UIToxDone, 0, 0, nil))

	require.Eventually(t, stop.Load, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Zero(t, pool.Outstanding())
}

func TestLoopContextCancelTearsDown(t *testing.T) {
	mb := NewSlotMailbox[ToxAVKind]("toxav")
	h := &recordingHandler[ToxAVKind]{}
	l := NewLoop[ToxAVKind]("toxav", mb, h)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()
	cancel()

	require.NoError(t, l.Join(time.Second))
	require.NoError(t, <-done)
	assert.True(t, h.tornDown.Load())
	assert.False(t, mb.Post(mustMessage(t, ToxAVKill, 0, 0, nil)))
}

func TestLoopTicks(t *testing.T) {
	mb := NewQueueMailbox[VideoKind]("video", 8, DropOldest)
	h := &tickingHandler{}
	h.interval = 5 * time.Millisecond
	l := NewLoop[VideoKind]("video", mb, h)
	startLoop(t, l)

	require.Eventually(t, func() bool { return h.ticks.Load() >= 3 }, time.Second, time.Millisecond)
	mb.Post(mustMessage(t, VideoKill, 0, 0, nil))
	require.NoError(t, l.Join(time.Second))
}

func TestLoopRunTwice(t *testing.T) {
	mb := NewQueueMailbox[AudioKind]("audio", 8, DropOldest)
	l := NewLoop[AudioKind]("audio", mb, &recordingHandler[AudioKind]{})
	mb.Post(mustMessage(t, AudioKill, 0, 0, nil))
	require.NoError(t, l.Run(context.Background()))

	err := l.Run(context.Background())
	assert.True(t, errors.Is(err, ErrAlreadyRunning))
}

func TestLoopJoinTimeout(t *testing.T) {
	mb := NewQueueMailbox[AudioKind]("audio", 8, DropOldest)
	h := &recordingHandler[AudioKind]{gate: make(chan struct{})}
	l := NewLoop[AudioKind]("audio", mb, h)
	startLoop(t, l)

	mb.Post(mustMessage(t, AudioCallStart, 1, 0, nil))
	mb.Post(mustMessage(t, AudioKill, 0, 0, nil))

	err := l.Join(10 * time.Millisecond)
	assert.ErrorIs(t, err, ErrJoinTimeout)

	close(h.gate)
	assert.NoError(t, l.Join(time.Second))
}
