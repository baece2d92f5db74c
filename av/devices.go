package av

import (
	"time"

	"github.com/opd-ai/utox/bus"
)

const (
	// SampleRate is the PCM sample rate used between the workers and the
	// devices.
	SampleRate = 48000
	// FrameDuration is the length of one captured audio frame.
	FrameDuration = 20 * time.Millisecond
	// FrameSamples is the number of mono samples in one audio frame.
	FrameSamples = SampleRate / 50
)

// AudioDevices is the audio hardware seen by the audio worker. Only the
// audio worker and the call orchestration worker call it; the output side
// is shared between them and must be safe for concurrent Write.
type AudioDevices interface {
	// InputDevices and OutputDevices enumerate the devices by name. The
	// position in the slice is the device index used by the commands.
	InputDevices() ([]string, error)
	OutputDevices() ([]string, error)

	OpenInput(index uint32) error
	CloseInput() error
	OpenOutput(index uint32) error
	CloseOutput() error

	// Read returns one frame of FrameSamples captured samples.
	Read() ([]int16, error)
	// Write plays pcm on the open output.
	Write(pcm []int16) error
}

// VideoDevices is the camera side of the video worker.
type VideoDevices interface {
	Devices() ([]string, error)
	Open(index uint32) error
	Close() error
	// ReadFrame fills frame with the next captured image. frame has the
	// dimensions of the worker's pool.
	ReadFrame(frame *bus.VideoFrame) error
}

// MediaEngine is the call side of the protocol engine. The audio and
// video workers send captured media through it; the call orchestration
// worker iterates it.
type MediaEngine interface {
	SendAudioFrame(friend uint32, pcm []int16, sampleRate uint32) error
	SendGroupAudio(group uint32, pcm []int16, sampleRate uint32) error
	SendVideoFrame(friend uint32, frame *bus.VideoFrame) error

	// IterateAV delivers the media received since the last call to sink.
	IterateAV(sink MediaSink)
	IterationInterval() time.Duration
}

// MediaSink receives the media delivered by MediaEngine.IterateAV. The
// slices are only valid during the call.
type MediaSink interface {
	// OnAudioPacket delivers an Opus packet.
	OnAudioPacket(friend uint32, packet []byte)
	// OnAudioFrame delivers PCM an engine decoded itself.
	OnAudioFrame(friend uint32, pcm []int16, sampleRate uint32)
	OnVideoFrame(friend uint32, width, height uint16, y, u, v []byte)
}
