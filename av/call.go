package av

import (
	"context"
	"fmt"
	"time"

	"github.com/opd-ai/utox/bus"
	"github.com/sirupsen/logrus"
)

// minAVInterval bounds how often the media engine is iterated.
const minAVInterval = 5 * time.Millisecond

type frameSize struct {
	width, height uint16
}

// CallWorker is the call orchestration worker. It accepts no command but
// TOXAV_KILL; its work happens in Tick, where it iterates the media engine
// and routes the received media.
type CallWorker struct {
	media  MediaEngine
	output AudioDevices
	post   bus.Poster

	decoders map[uint32]*FrameDecoder
	pools    map[frameSize]*bus.FramePool

	audioPackets uint64
	videoFrames  uint64
}

var _ MediaSink = (*CallWorker)(nil)

// NewCallWorker creates the call orchestration worker. Decoded audio is
// written to output.
func NewCallWorker(media MediaEngine, output AudioDevices, poster bus.Poster) (*CallWorker, error) {
	if media == nil {
		return nil, ErrNoMediaEngine
	}
	if output == nil {
		return nil, ErrNoDevices
	}
	return &CallWorker{
		media:    media,
		output:   output,
		post:     poster,
		decoders: make(map[uint32]*FrameDecoder),
		pools:    make(map[frameSize]*bus.FramePool),
	}, nil
}

// Handle implements bus.Handler.
func (c *CallWorker) Handle(ctx context.Context, msg bus.Message[bus.ToxAVKind]) error {
	if msg.Kind == bus.ToxAVKill {
		return nil
	}
	return fmt.Errorf("%w: %s", bus.ErrUnknownKind, msg.Kind)
}

// Interval implements bus.Ticker.
func (c *CallWorker) Interval() time.Duration {
	interval := c.media.IterationInterval()
	if interval < minAVInterval {
		return minAVInterval
	}
	return interval
}

// Tick implements bus.Ticker.
func (c *CallWorker) Tick(ctx context.Context) {
	c.media.IterateAV(c)
}

// OnAudioPacket implements MediaSink.
func (c *CallWorker) OnAudioPacket(friend uint32, packet []byte) {
	dec, ok := c.decoders[friend]
	if !ok {
		dec = NewFrameDecoder()
		c.decoders[friend] = dec
	}
	pcm, err := dec.Decode(packet)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":      "CallWorker.OnAudioPacket",
			"friend_number": friend,
			"error":         err.Error(),
		}).Debug("Dropping audio packet")
		return
	}
	c.audioPackets++
	c.play(friend, pcm)
}

// OnAudioFrame implements MediaSink.
func (c *CallWorker) OnAudioFrame(friend uint32, pcm []int16, sampleRate uint32) {
	c.audioPackets++
	c.play(friend, resample(pcm, sampleRate, SampleRate))
}

func (c *CallWorker) play(friend uint32, pcm []int16) {
	if err := c.output.Write(pcm); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":      "CallWorker.play",
			"friend_number": friend,
			"error":         err.Error(),
		}).Debug("Audio playback failed")
	}
}

// OnVideoFrame implements MediaSink. The planes are copied into a pooled
// frame that is posted to the UI.
func (c *CallWorker) OnVideoFrame(friend uint32, width, height uint16, y, u, v []byte) {
	size := frameSize{width, height}
	pool, ok := c.pools[size]
	if !ok {
		pool = bus.NewFramePool(width, height)
		c.pools[size] = pool
	}

	frame := pool.Get()
	if len(y) < len(frame.Y) || len(u) < len(frame.U) || len(v) < len(frame.V) {
		frame.Release()
		logrus.WithFields(logrus.Fields{
			"function":      "CallWorker.OnVideoFrame",
			"friend_number": friend,
			"width":         width,
			"height":        height,
		}).Warn("Dropping truncated video frame")
		return
	}
	copy(frame.Y, y)
	copy(frame.U, u)
	copy(frame.V, v)
	c.videoFrames++
	c.post.PostToUI(bus.UIFriendVideoFrame, friend, 0, frame)
}

// Teardown implements bus.Handler.
func (c *CallWorker) Teardown() {
	logrus.WithFields(logrus.Fields{
		"function":      "CallWorker.Teardown",
		"decoders":      len(c.decoders),
		"audio_packets": c.audioPackets,
		"video_frames":  c.videoFrames,
	}).Info("Call orchestration worker stopped")
	c.decoders = make(map[uint32]*FrameDecoder)
}
