package av

import (
	"sync"
	"time"

	"github.com/opd-ai/utox/bus"
)

// ---------------------------------------------------------------------------
// fakeAudio is an in-memory AudioDevices.
// ---------------------------------------------------------------------------

type fakeAudio struct {
	mu sync.Mutex

	inputs, outputs []string
	enumErr         error
	openErr         error

	input, output         int
	inputOpen, outputOpen bool
	opens                 []uint32
	written               [][]int16
}

func newFakeAudio() *fakeAudio {
	return &fakeAudio{
		inputs:  []string{"Built-in Microphone", "USB Headset", "Webcam Mic", "Line In"},
		outputs: []string{"Speakers", "USB Headset"},
		input:   -1,
		output:  -1,
	}
}

func (f *fakeAudio) InputDevices() ([]string, error)  { return f.inputs, f.enumErr }
func (f *fakeAudio) OutputDevices() ([]string, error) { return f.outputs, f.enumErr }

func (f *fakeAudio) OpenInput(index uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return f.openErr
	}
	f.input, f.inputOpen = int(index), true
	f.opens = append(f.opens, index)
	return nil
}

func (f *fakeAudio) CloseInput() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputOpen = false
	return nil
}

func (f *fakeAudio) OpenOutput(index uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.output, f.outputOpen = int(index), true
	return nil
}

func (f *fakeAudio) CloseOutput() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outputOpen = false
	return nil
}

func (f *fakeAudio) Read() ([]int16, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.inputOpen {
		return nil, ErrDeviceClosed
	}
	pcm := make([]int16, FrameSamples)
	pcm[0] = int16(f.input + 1)
	return pcm, nil
}

func (f *fakeAudio) Write(pcm []int16) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.outputOpen {
		return ErrDeviceClosed
	}
	f.written = append(f.written, pcm)
	return nil
}

func (f *fakeAudio) writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.written)
}

// ---------------------------------------------------------------------------
// fakeCamera is an in-memory VideoDevices.
// ---------------------------------------------------------------------------

type fakeCamera struct {
	names  []string
	device int
	open   bool
	opens  int
	fill   byte
}

func (c *fakeCamera) Devices() ([]string, error) { return c.names, nil }

func (c *fakeCamera) Open(index uint32) error {
	c.device, c.open = int(index), true
	c.opens++
	return nil
}

func (c *fakeCamera) Close() error {
	c.open = false
	return nil
}

func (c *fakeCamera) ReadFrame(frame *bus.VideoFrame) error {
	if !c.open {
		return ErrDeviceClosed
	}
	c.fill++
	frame.Y[0] = c.fill
	return nil
}

// ---------------------------------------------------------------------------
// fakeMedia records what the workers send and replays scripted media.
// ---------------------------------------------------------------------------

type videoDelivery struct {
	friend        uint32
	width, height uint16
	y, u, v       []byte
}

type fakeMedia struct {
	audio      map[uint32]int
	groupAudio map[uint32]int
	video      map[uint32]int

	packets    map[uint32][][]byte
	pcm        map[uint32][]int16
	frames     []videoDelivery
	iterations int
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{
		audio:      make(map[uint32]int),
		groupAudio: make(map[uint32]int),
		video:      make(map[uint32]int),
		packets:    make(map[uint32][][]byte),
		pcm:        make(map[uint32][]int16),
	}
}

func (m *fakeMedia) SendAudioFrame(friend uint32, pcm []int16, rate uint32) error {
	m.audio[friend]++
	return nil
}

func (m *fakeMedia) SendGroupAudio(group uint32, pcm []int16, rate uint32) error {
	m.groupAudio[group]++
	return nil
}

func (m *fakeMedia) SendVideoFrame(friend uint32, frame *bus.VideoFrame) error {
	m.video[friend]++
	return nil
}

func (m *fakeMedia) IterateAV(sink MediaSink) {
	m.iterations++
	for friend, packets := range m.packets {
		for _, p := range packets {
			sink.OnAudioPacket(friend, p)
		}
	}
	for friend, pcm := range m.pcm {
		sink.OnAudioFrame(friend, pcm, 24000)
	}
	for _, f := range m.frames {
		sink.OnVideoFrame(f.friend, f.width, f.height, f.y, f.u, f.v)
	}
	m.packets = make(map[uint32][][]byte)
	m.pcm = make(map[uint32][]int16)
	m.frames = nil
}

func (m *fakeMedia) IterationInterval() time.Duration { return time.Millisecond }

// ---------------------------------------------------------------------------
// recordingPoster stores every post in order.
// ---------------------------------------------------------------------------

type posted struct {
	kind    string
	p1, p2  uint32
	payload bus.Payload
}

type recordingPoster struct {
	mu    sync.Mutex
	posts []posted
}

func (r *recordingPoster) add(kind string, p1, p2 uint32, payload bus.Payload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts = append(r.posts, posted{kind, p1, p2, payload})
}

func (r *recordingPoster) PostToNetwork(k bus.ToxKind, p1, p2 uint32, p bus.Payload) {
	r.add(k.String(), p1, p2, p)
}

func (r *recordingPoster) PostToAudio(k bus.AudioKind, p1, p2 uint32, p bus.Payload) {
	r.add(k.String(), p1, p2, p)
}

func (r *recordingPoster) PostToVideo(k bus.VideoKind, p1, p2 uint32, p bus.Payload) {
	r.add(k.String(), p1, p2, p)
}

func (r *recordingPoster) PostToCallOrchestration(k bus.ToxAVKind, p1, p2 uint32, p bus.Payload) {
	r.add(k.String(), p1, p2, p)
}

func (r *recordingPoster) PostToUI(k bus.UIEvent, p1, p2 uint32, p bus.Payload) {
	r.add(k.String(), p1, p2, p)
}

func (r *recordingPoster) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.posts))
	for i, p := range r.posts {
		out[i] = p.kind
	}
	return out
}

func (r *recordingPoster) reset() {
	r.mu.Lock()
	r.posts = nil
	r.mu.Unlock()
}
