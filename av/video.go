package av

import (
	"context"
	"fmt"
	"time"

	"github.com/opd-ai/utox/bus"
	"github.com/sirupsen/logrus"
)

// DefaultVideoFPS is the capture rate when none is configured.
const DefaultVideoFPS = 25

// VideoOptions configures the video worker.
type VideoOptions struct {
	FPS    uint32
	Width  uint16
	Height uint16
}

// NewVideoOptions returns 640x480 at DefaultVideoFPS.
func NewVideoOptions() *VideoOptions {
	return &VideoOptions{
		FPS:    DefaultVideoFPS,
		Width:  640,
		Height: 480,
	}
}

// VideoWorker is the bus.Handler of the video destination.
type VideoWorker struct {
	devices VideoDevices
	media   MediaEngine
	post    bus.Poster
	opts    VideoOptions
	pool    *bus.FramePool

	names  []string
	device uint32
	open   bool

	preview      bool
	previewShown bool
	calls        map[uint32]bool

	frames uint64
}

// NewVideoWorker creates the video worker.
func NewVideoWorker(devices VideoDevices, media MediaEngine, poster bus.Poster, opts *VideoOptions) (*VideoWorker, error) {
	if devices == nil {
		return nil, ErrNoDevices
	}
	if media == nil {
		return nil, ErrNoMediaEngine
	}
	if opts == nil {
		opts = NewVideoOptions()
	}
	o := *opts
	if o.FPS == 0 {
		o.FPS = DefaultVideoFPS
	}
	return &VideoWorker{
		devices: devices,
		media:   media,
		post:    poster,
		opts:    o,
		pool:    bus.NewFramePool(o.Width, o.Height),
		calls:   make(map[uint32]bool),
	}, nil
}

// Init enumerates the cameras and announces them to the UI.
func (v *VideoWorker) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	names, err := v.devices.Devices()
	if err != nil {
		return fmt.Errorf("enumerate video devices: %w", err)
	}
	v.names = names
	for i, name := range names {
		v.post.PostToUI(bus.UINewVideoDevice, uint32(i), 0, bus.DeviceInfo{Index: uint32(i), Name: name})
	}

	logrus.WithFields(logrus.Fields{
		"function": "VideoWorker.Init",
		"devices":  len(names),
		"fps":      v.opts.FPS,
	}).Info("Video worker ready")
	return nil
}

// Handle implements bus.Handler.
func (v *VideoWorker) Handle(ctx context.Context, msg bus.Message[bus.VideoKind]) error {
	switch msg.Kind {
	case bus.VideoKill:
		return nil
	case bus.VideoSet:
		return v.setDevice(msg.Param1)
	case bus.VideoPreviewStart:
		v.preview = true
		v.previewShown = false
		return v.updateCapture()
	case bus.VideoPreviewEnd:
		v.preview = false
		return v.updateCapture()
	case bus.VideoCallStart:
		v.calls[msg.Param1] = true
		return v.updateCapture()
	case bus.VideoCallEnd:
		delete(v.calls, msg.Param1)
		return v.updateCapture()
	}
	return fmt.Errorf("%w: %s", bus.ErrUnknownKind, msg.Kind)
}

func (v *VideoWorker) setDevice(index uint32) error {
	if int(index) >= len(v.names) {
		return fmt.Errorf("video device %d: %w", index, ErrDeviceIndex)
	}
	v.device = index
	if !v.open {
		return nil
	}
	if err := v.devices.Close(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "VideoWorker.setDevice",
			"error":    err.Error(),
		}).Warn("Closing video device failed")
	}
	v.open = false
	v.previewShown = false
	return v.updateCapture()
}

func (v *VideoWorker) updateCapture() error {
	need := v.preview || len(v.calls) > 0
	switch {
	case need && !v.open:
		if len(v.names) == 0 {
			return fmt.Errorf("open video device: %w", ErrDeviceIndex)
		}
		if err := v.devices.Open(v.device); err != nil {
			return fmt.Errorf("open video device %d: %w", v.device, err)
		}
		v.open = true
	case !need && v.open:
		v.open = false
		if err := v.devices.Close(); err != nil {
			return fmt.Errorf("close video device: %w", err)
		}
	}
	return nil
}

// Interval implements bus.Ticker.
func (v *VideoWorker) Interval() time.Duration {
	return time.Second / time.Duration(v.opts.FPS)
}

// Tick implements bus.Ticker by capturing one frame. Call frames are
// handed to the media engine, which copies them; the preview frame is
// posted to the UI, which then owns it.
func (v *VideoWorker) Tick(ctx context.Context) {
	if !v.open {
		return
	}

	frame := v.pool.Get()
	if err := v.devices.ReadFrame(frame); err != nil {
		frame.Release()
		logrus.WithFields(logrus.Fields{
			"function": "VideoWorker.Tick",
			"error":    err.Error(),
		}).Warn("Video capture failed")
		return
	}
	v.frames++

	for friend := range v.calls {
		if err := v.media.SendVideoFrame(friend, frame); err != nil {
			logrus.WithFields(logrus.Fields{
				"function":      "VideoWorker.Tick",
				"friend_number": friend,
				"error":         err.Error(),
			}).Debug("Sending video frame failed")
		}
	}

	if !v.preview {
		frame.Release()
		return
	}
	kind := bus.UIPreviewFrame
	if !v.previewShown {
		kind = bus.UIPreviewFrameNew
		v.previewShown = true
	}
	v.post.PostToUI(kind, uint32(frame.Width), uint32(frame.Height), frame)
}

// Teardown implements bus.Handler by closing the camera.
func (v *VideoWorker) Teardown() {
	if v.open {
		if err := v.devices.Close(); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "VideoWorker.Teardown",
				"error":    err.Error(),
			}).Warn("Closing video device failed")
		}
		v.open = false
	}
	logrus.WithFields(logrus.Fields{
		"function":    "VideoWorker.Teardown",
		"frames":      v.frames,
		"outstanding": v.pool.Outstanding(),
	}).Info("Video worker stopped")
}

// Pool returns the frame pool of captured frames.
func (v *VideoWorker) Pool() *bus.FramePool { return v.pool }
