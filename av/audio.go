package av

import (
	"context"
	"fmt"
	"time"

	"github.com/opd-ai/utox/bus"
	"github.com/sirupsen/logrus"
)

// AudioOptions configures the audio worker.
type AudioOptions struct {
	// RingtoneEnabled plays the ringtone for incoming calls.
	RingtoneEnabled bool
	// FrameInterval is the capture period. Zero selects FrameDuration.
	FrameInterval time.Duration
}

// NewAudioOptions returns the default audio options.
func NewAudioOptions() *AudioOptions {
	return &AudioOptions{
		RingtoneEnabled: true,
		FrameInterval:   FrameDuration,
	}
}

// AudioWorker is the bus.Handler of the audio destination. Its state is
// confined to the loop goroutine.
type AudioWorker struct {
	devices AudioDevices
	media   MediaEngine
	post    bus.Poster
	opts    AudioOptions

	inputs  []string
	outputs []string

	input      uint32
	output     uint32
	inputOpen  bool
	outputOpen bool

	preview  bool
	calls    map[uint32]bool
	groups   map[uint32]bool
	ringing  map[uint32]bool
	ringtone *Ringtone

	captured uint64
}

// NewAudioWorker creates the audio worker.
func NewAudioWorker(devices AudioDevices, media MediaEngine, poster bus.Poster, opts *AudioOptions) (*AudioWorker, error) {
	if devices == nil {
		return nil, ErrNoDevices
	}
	if media == nil {
		return nil, ErrNoMediaEngine
	}
	if opts == nil {
		opts = NewAudioOptions()
	}
	return &AudioWorker{
		devices:  devices,
		media:    media,
		post:     poster,
		opts:     *opts,
		calls:    make(map[uint32]bool),
		groups:   make(map[uint32]bool),
		ringing:  make(map[uint32]bool),
		ringtone: NewRingtone(),
	}, nil
}

// Init enumerates the devices, announces them to the UI and opens the
// first output device. It runs before the loop starts.
func (a *AudioWorker) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	inputs, err := a.devices.InputDevices()
	if err != nil {
		return fmt.Errorf("enumerate audio inputs: %w", err)
	}
	outputs, err := a.devices.OutputDevices()
	if err != nil {
		return fmt.Errorf("enumerate audio outputs: %w", err)
	}
	a.inputs, a.outputs = inputs, outputs

	for i, name := range inputs {
		a.post.PostToUI(bus.UINewAudioInDevice, uint32(i), 0, bus.DeviceInfo{Index: uint32(i), Name: name})
	}
	for i, name := range outputs {
		a.post.PostToUI(bus.UINewAudioOutDevice, uint32(i), 0, bus.DeviceInfo{Index: uint32(i), Name: name})
	}

	if len(outputs) > 0 {
		if err := a.devices.OpenOutput(a.output); err != nil {
			return fmt.Errorf("open audio output: %w", err)
		}
		a.outputOpen = true
	}

	logrus.WithFields(logrus.Fields{
		"function": "AudioWorker.Init",
		"inputs":   len(inputs),
		"outputs":  len(outputs),
	}).Info("Audio worker ready")
	return nil
}

// Handle implements bus.Handler.
func (a *AudioWorker) Handle(ctx context.Context, msg bus.Message[bus.AudioKind]) error {
	p1 := msg.Param1

	switch msg.Kind {
	case bus.AudioKill:
		return nil
	case bus.AudioSetInput:
		return a.setInput(p1)
	case bus.AudioSetOutput:
		return a.setOutput(p1)
	case bus.AudioPreviewStart:
		a.preview = true
		return a.updateCapture()
	case bus.AudioPreviewEnd:
		a.preview = false
		return a.updateCapture()
	case bus.AudioCallStart:
		a.calls[p1] = true
		delete(a.ringing, p1)
		return a.updateCapture()
	case bus.AudioCallEnd:
		delete(a.calls, p1)
		return a.updateCapture()
	case bus.AudioPlayRingtone:
		if !a.opts.RingtoneEnabled {
			return nil
		}
		if len(a.ringing) == 0 {
			a.ringtone.Reset()
		}
		a.ringing[p1] = true
		return nil
	case bus.AudioStopRingtone:
		delete(a.ringing, p1)
		return nil
	case bus.GroupAudioCallStart:
		a.groups[p1] = true
		return a.updateCapture()
	case bus.GroupAudioCallEnd:
		delete(a.groups, p1)
		return a.updateCapture()
	}

	return fmt.Errorf("%w: %s", bus.ErrUnknownKind, msg.Kind)
}

func (a *AudioWorker) setInput(index uint32) error {
	if int(index) >= len(a.inputs) {
		return fmt.Errorf("audio input %d: %w", index, ErrDeviceIndex)
	}
	a.input = index
	if !a.inputOpen {
		return nil
	}
	if err := a.devices.CloseInput(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "AudioWorker.setInput",
			"error":    err.Error(),
		}).Warn("Closing audio input failed")
	}
	a.inputOpen = false
	return a.updateCapture()
}

func (a *AudioWorker) setOutput(index uint32) error {
	if int(index) >= len(a.outputs) {
		return fmt.Errorf("audio output %d: %w", index, ErrDeviceIndex)
	}
	a.output = index
	if a.outputOpen {
		if err := a.devices.CloseOutput(); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "AudioWorker.setOutput",
				"error":    err.Error(),
			}).Warn("Closing audio output failed")
		}
		a.outputOpen = false
	}
	if err := a.devices.OpenOutput(index); err != nil {
		return fmt.Errorf("open audio output %d: %w", index, err)
	}
	a.outputOpen = true
	return nil
}

// needCapture reports whether anything consumes captured audio.
func (a *AudioWorker) needCapture() bool {
	return a.preview || len(a.calls) > 0 || len(a.groups) > 0
}

// updateCapture opens the input when a consumer appeared and closes it
// when the last one went away.
func (a *AudioWorker) updateCapture() error {
	need := a.needCapture()
	switch {
	case need && !a.inputOpen:
		if len(a.inputs) == 0 {
			return fmt.Errorf("open audio input: %w", ErrDeviceIndex)
		}
		if err := a.devices.OpenInput(a.input); err != nil {
			return fmt.Errorf("open audio input %d: %w", a.input, err)
		}
		a.inputOpen = true
		logrus.WithFields(logrus.Fields{
			"function": "AudioWorker.updateCapture",
			"device":   a.input,
		}).Info("Audio capture started")
	case !need && a.inputOpen:
		a.inputOpen = false
		if err := a.devices.CloseInput(); err != nil {
			return fmt.Errorf("close audio input: %w", err)
		}
		logrus.WithFields(logrus.Fields{
			"function": "AudioWorker.updateCapture",
			"device":   a.input,
		}).Info("Audio capture stopped")
	}
	return nil
}

// Interval implements bus.Ticker.
func (a *AudioWorker) Interval() time.Duration {
	if a.opts.FrameInterval <= 0 {
		return FrameDuration
	}
	return a.opts.FrameInterval
}

// Tick implements bus.Ticker. It moves one frame of captured audio to its
// consumers and one frame of ringtone to the output.
func (a *AudioWorker) Tick(ctx context.Context) {
	if a.inputOpen {
		a.capture()
	}
	if len(a.ringing) > 0 && a.outputOpen {
		if err := a.devices.Write(a.ringtone.Next()); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "AudioWorker.Tick",
				"error":    err.Error(),
			}).Warn("Playing ringtone failed")
		}
	}
}

func (a *AudioWorker) capture() {
	pcm, err := a.devices.Read()
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "AudioWorker.capture",
			"error":    err.Error(),
		}).Warn("Audio capture failed")
		return
	}
	a.captured++

	for friend := range a.calls {
		if err := a.media.SendAudioFrame(friend, pcm, SampleRate); err != nil {
			logrus.WithFields(logrus.Fields{
				"function":      "AudioWorker.capture",
				"friend_number": friend,
				"error":         err.Error(),
			}).Debug("Sending audio frame failed")
		}
	}
	for group := range a.groups {
		if err := a.media.SendGroupAudio(group, pcm, SampleRate); err != nil {
			logrus.WithFields(logrus.Fields{
				"function":     "AudioWorker.capture",
				"group_number": group,
				"error":        err.Error(),
			}).Debug("Sending group audio failed")
		}
	}
	if a.preview && a.outputOpen {
		if err := a.devices.Write(pcm); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "AudioWorker.capture",
				"error":    err.Error(),
			}).Debug("Preview playback failed")
		}
	}
}

// Teardown implements bus.Handler by closing the devices.
func (a *AudioWorker) Teardown() {
	if a.inputOpen {
		if err := a.devices.CloseInput(); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "AudioWorker.Teardown",
				"error":    err.Error(),
			}).Warn("Closing audio input failed")
		}
		a.inputOpen = false
	}
	if a.outputOpen {
		if err := a.devices.CloseOutput(); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "AudioWorker.Teardown",
				"error":    err.Error(),
			}).Warn("Closing audio output failed")
		}
		a.outputOpen = false
	}

	logrus.WithFields(logrus.Fields{
		"function": "AudioWorker.Teardown",
		"captured": a.captured,
	}).Info("Audio worker stopped")
}

// Captured returns the number of frames captured. It must only be called
// after the loop has stopped or from the loop goroutine.
func (a *AudioWorker) Captured() uint64 { return a.captured }
