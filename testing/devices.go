package testing

import (
	"fmt"
	"math"
	"sync"

	"github.com/opd-ai/utox/av"
	"github.com/opd-ai/utox/bus"
)

// SimulatedAudio implements av.AudioDevices. Capture produces a sine tone
// and playback is counted.
type SimulatedAudio struct {
	mu sync.Mutex

	inputs  []string
	outputs []string
	input   int
	output  int

	tone    float64
	phase   float64
	written []int
}

var _ av.AudioDevices = (*SimulatedAudio)(nil)

// NewSimulatedAudio returns two loopback inputs and one output. Capture
// produces a 440 Hz tone.
func NewSimulatedAudio() *SimulatedAudio {
	return &SimulatedAudio{
		inputs:  []string{"Loopback Microphone", "Loopback Line In"},
		outputs: []string{"Loopback Speakers"},
		input:   -1,
		output:  -1,
		tone:    440,
	}
}

func (a *SimulatedAudio) InputDevices() ([]string, error) {
	return append([]string(nil), a.inputs...), nil
}

func (a *SimulatedAudio) OutputDevices() ([]string, error) {
	return append([]string(nil), a.outputs...), nil
}

func (a *SimulatedAudio) OpenInput(index uint32) error {
	if int(index) >= len(a.inputs) {
		return fmt.Errorf("%w: input %d", av.ErrDeviceIndex, index)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.input = int(index)
	a.phase = 0
	return nil
}

func (a *SimulatedAudio) CloseInput() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.input = -1
	return nil
}

func (a *SimulatedAudio) OpenOutput(index uint32) error {
	if int(index) >= len(a.outputs) {
		return fmt.Errorf("%w: output %d", av.ErrDeviceIndex, index)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.output = int(index)
	return nil
}

func (a *SimulatedAudio) CloseOutput() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.output = -1
	return nil
}

// Read returns one frame of the tone.
func (a *SimulatedAudio) Read() ([]int16, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.input < 0 {
		return nil, av.ErrDeviceClosed
	}
	pcm := make([]int16, av.FrameSamples)
	step := 2 * math.Pi * a.tone / av.SampleRate
	for i := range pcm {
		pcm[i] = int16(math.Sin(a.phase) * 8000)
		a.phase += step
	}
	a.phase = math.Mod(a.phase, 2*math.Pi)
	return pcm, nil
}

// Write records the length of one played frame.
func (a *SimulatedAudio) Write(pcm []int16) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.output < 0 {
		return av.ErrDeviceClosed
	}
	a.written = append(a.written, len(pcm))
	return nil
}

// Played returns the sizes of the frames written to the output.
func (a *SimulatedAudio) Played() []int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]int(nil), a.written...)
}

// InputOpen reports the open input index, or -1.
func (a *SimulatedAudio) InputOpen() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.input
}

// SimulatedCamera implements av.VideoDevices with a moving gradient.
type SimulatedCamera struct {
	mu     sync.Mutex
	names  []string
	open   int
	frames uint32
}

var _ av.VideoDevices = (*SimulatedCamera)(nil)

// NewSimulatedCamera returns a camera with one device.
func NewSimulatedCamera() *SimulatedCamera {
	return &SimulatedCamera{names: []string{"Loopback Camera"}, open: -1}
}

func (c *SimulatedCamera) Devices() ([]string, error) {
	return append([]string(nil), c.names...), nil
}

func (c *SimulatedCamera) Open(index uint32) error {
	if int(index) >= len(c.names) {
		return fmt.Errorf("%w: camera %d", av.ErrDeviceIndex, index)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = int(index)
	return nil
}

func (c *SimulatedCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = -1
	return nil
}

// ReadFrame paints a diagonal luma gradient that shifts every frame and
// flat chroma.
func (c *SimulatedCamera) ReadFrame(frame *bus.VideoFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open < 0 {
		return av.ErrDeviceClosed
	}
	c.frames++
	w := int(frame.Width)
	for i := range frame.Y {
		x, y := i%w, i/w
		frame.Y[i] = byte(x + y + int(c.frames))
	}
	for i := range frame.U {
		frame.U[i] = 128
	}
	for i := range frame.V {
		frame.V[i] = 128
	}
	return nil
}

// Frames returns how many frames were captured.
func (c *SimulatedCamera) Frames() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}
