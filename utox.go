package utox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opd-ai/utox/av"
	"github.com/opd-ai/utox/bus"
	"github.com/opd-ai/utox/config"
	"github.com/opd-ai/utox/protocol"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Version is the client version reported to peers and in logs.
const Version = "0.14.0"

var (
	// ErrNoEngine is returned by New without a protocol engine.
	ErrNoEngine = errors.New("protocol engine required")
	// ErrNoMedia is returned by New without a media engine or devices.
	ErrNoMedia = errors.New("media engine and devices required")
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("client already started")
	// ErrKilled is returned by Start after Kill.
	ErrKilled = errors.New("client killed")
)

// Options contains the collaborators and settings of a Client.
type Options struct {
	Engine       protocol.Engine
	Media        av.MediaEngine
	AudioDevices av.AudioDevices
	VideoDevices av.VideoDevices

	// Settings is the configuration snapshot read at start.
	Settings config.Snapshot

	// FriendRequestMessage replaces an empty friend request greeting.
	FriendRequestMessage string
	// VideoWidth and VideoHeight set the capture resolution.
	VideoWidth  uint16
	VideoHeight uint16

	// ShutdownTimeout bounds the wait for each worker in Kill.
	ShutdownTimeout time.Duration
}

// NewOptions returns options with the default settings and no
// collaborators.
func NewOptions() *Options {
	video := av.NewVideoOptions()
	return &Options{
		Settings:             config.DefaultSettings().Snapshot(),
		FriendRequestMessage: protocol.DefaultFriendRequestMessage,
		VideoWidth:           video.Width,
		VideoHeight:          video.Height,
		ShutdownTimeout:      5 * time.Second,
	}
}

// runner is the part of bus.Loop the client drives.
type runner interface {
	Name() string
	Run(ctx context.Context) error
	Join(timeout time.Duration) error
	Handled() uint64
	Failed() uint64
}

// Client owns the bus and the four backend workers.
type Client struct {
	opts       Options
	dispatcher *bus.Dispatcher

	protocol *protocol.Worker
	audio    *av.AudioWorker
	video    *av.VideoWorker
	call     *av.CallWorker

	loops map[bus.Destination]runner

	started atomic.Bool
	running atomic.Bool
	killed  atomic.Bool
	stop    sync.Once
	loopsWG sync.WaitGroup

	mu       sync.Mutex
	settings config.Snapshot
}

// New validates options and builds the dispatcher and the workers. No
// goroutine runs until Start.
func New(options *Options) (*Client, error) {
	if options == nil {
		options = NewOptions()
	}
	if options.Engine == nil {
		return nil, ErrNoEngine
	}
	if options.Media == nil || options.AudioDevices == nil || options.VideoDevices == nil {
		return nil, ErrNoMedia
	}
	opts := *options
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	snap := opts.Settings

	mailbox := snap.Mailbox
	if mailbox.Capacity <= 0 {
		mailbox.Capacity = bus.DefaultQueueCapacity
	}
	d := bus.NewDispatcher(&mailbox)

	protoOpts := protocol.NewOptions()
	protoOpts.SendTypingStatus = snap.SendTypingStatus
	if opts.FriendRequestMessage != "" {
		protoOpts.FriendRequestMessage = opts.FriendRequestMessage
	}
	pw, err := protocol.NewWorker(opts.Engine, d, protoOpts)
	if err != nil {
		return nil, fmt.Errorf("create protocol worker: %w", err)
	}

	audioOpts := av.NewAudioOptions()
	audioOpts.RingtoneEnabled = snap.RingtoneEnabled
	aw, err := av.NewAudioWorker(opts.AudioDevices, opts.Media, d, audioOpts)
	if err != nil {
		return nil, fmt.Errorf("create audio worker: %w", err)
	}

	videoOpts := av.NewVideoOptions()
	if snap.VideoFPS > 0 {
		videoOpts.FPS = snap.VideoFPS
	}
	if opts.VideoWidth > 0 && opts.VideoHeight > 0 {
		videoOpts.Width, videoOpts.Height = opts.VideoWidth, opts.VideoHeight
	}
	vw, err := av.NewVideoWorker(opts.VideoDevices, opts.Media, d, videoOpts)
	if err != nil {
		return nil, fmt.Errorf("create video worker: %w", err)
	}

	cw, err := av.NewCallWorker(opts.Media, opts.AudioDevices, d)
	if err != nil {
		return nil, fmt.Errorf("create call worker: %w", err)
	}

	c := &Client{
		opts:       opts,
		dispatcher: d,
		protocol:   pw,
		audio:      aw,
		video:      vw,
		call:       cw,
		settings:   snap,
	}
	c.loops = map[bus.Destination]runner{
		bus.DestinationNetwork:           bus.NewLoop[bus.ToxKind]("tox", d.Network(), pw),
		bus.DestinationAudio:             bus.NewLoop[bus.AudioKind]("audio", d.Audio(), aw),
		bus.DestinationVideo:             bus.NewLoop[bus.VideoKind]("video", d.Video(), vw),
		bus.DestinationCallOrchestration: bus.NewLoop[bus.ToxAVKind]("toxav", d.CallOrchestration(), cw),
	}

	logrus.WithFields(logrus.Fields{
		"function": "New",
		"version":  Version,
		"mailbox":  mailbox.Mode.String(),
	}).Info("Client created")
	return c, nil
}

// Start initialises the collaborators concurrently, spawns the four worker
// loops and posts the commands that apply the settings snapshot. The loops
// stop when ctx is cancelled or when Kill is called. When a collaborator
// fails to initialise no loop runs and Start may be called again.
func (c *Client) Start(ctx context.Context) error {
	if c.killed.Load() {
		return ErrKilled
	}
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.protocol.Init(gctx) })
	g.Go(func() error { return c.audio.Init(gctx) })
	g.Go(func() error { return c.video.Init(gctx) })
	if err := g.Wait(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Client.Start",
			"error":    err.Error(),
		}).Error("Startup failed")
		c.started.Store(false)
		return fmt.Errorf("start client: %w", err)
	}

	for _, dest := range startOrder {
		loop := c.loops[dest]
		c.loopsWG.Add(1)
		go func() {
			defer c.loopsWG.Done()
			_ = loop.Run(ctx)
		}()
	}
	c.running.Store(true)

	c.applySettings()

	logrus.WithFields(logrus.Fields{
		"function": "Client.Start",
		"address":  c.opts.Engine.SelfAddress(),
	}).Info("Client started")
	return nil
}

var startOrder = []bus.Destination{
	bus.DestinationNetwork,
	bus.DestinationCallOrchestration,
	bus.DestinationAudio,
	bus.DestinationVideo,
}

func (c *Client) applySettings() {
	c.mu.Lock()
	snap := c.settings
	c.mu.Unlock()

	c.dispatcher.PostToAudio(bus.AudioSetInput, snap.AudioInputDevice, 0, nil)
	c.dispatcher.PostToAudio(bus.AudioSetOutput, snap.AudioOutputDevice, 0, nil)
	c.dispatcher.PostToVideo(bus.VideoSet, snap.VideoDevice, 0, nil)
	if snap.PushToTalk || snap.AudioPreview {
		c.dispatcher.PostToAudio(bus.AudioPreviewStart, 0, 0, nil)
	}
	if snap.VideoPreview {
		c.dispatcher.PostToVideo(bus.VideoPreviewStart, 0, 0, nil)
	}
}

// Kill stops the workers in the order video, audio, toxav, tox, waiting up
// to ShutdownTimeout for each. It is safe to call more than once; only the
// first call does anything.
func (c *Client) Kill() error {
	var err error
	c.stop.Do(func() {
		c.killed.Store(true)
		err = c.shutdown()
	})
	return err
}

func (c *Client) shutdown() error {
	started := c.running.Load()
	steps := []struct {
		dest bus.Destination
		post func()
	}{
		{bus.DestinationVideo, func() { c.dispatcher.PostToVideo(bus.VideoKill, 0, 0, nil) }},
		{bus.DestinationAudio, func() { c.dispatcher.PostToAudio(bus.AudioKill, 0, 0, nil) }},
		{bus.DestinationCallOrchestration, func() { c.dispatcher.PostToCallOrchestration(bus.ToxAVKill, 0, 0, nil) }},
		{bus.DestinationNetwork, func() { c.dispatcher.PostToNetwork(bus.ToxKill, 0, 0, nil) }},
	}

	var errs []error
	for _, step := range steps {
		step.post()
		if !started {
			continue
		}
		loop := c.loops[step.dest]
		if err := loop.Join(c.opts.ShutdownTimeout); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Client.Kill",
				"worker":   loop.Name(),
				"error":    err.Error(),
			}).Error("Worker did not stop")
			errs = append(errs, err)
		}
	}

	logrus.WithFields(logrus.Fields{
		"function": "Client.Kill",
		"started":  started,
		"failures": len(errs),
	}).Info("Client stopped")
	return errors.Join(errs...)
}

// Wait blocks until every worker loop returned.
func (c *Client) Wait() {
	c.loopsWG.Wait()
}

// Address returns the Tox ID of the engine.
func (c *Client) Address() string {
	return c.opts.Engine.SelfAddress()
}

// Events returns the mailbox of the UI events.
func (c *Client) Events() bus.Mailbox[bus.UIEvent] {
	return c.dispatcher.UI()
}

// RunEvents hands every UI event to fn until ctx is cancelled. fn runs on
// the calling goroutine; the record is released when fn returns.
func (c *Client) RunEvents(ctx context.Context, fn func(bus.Message[bus.UIEvent])) error {
	ui := c.dispatcher.UI()
	for {
		for {
			msg, ok := ui.Take()
			if !ok {
				break
			}
			fn(msg)
			msg.Release()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ui.Ready():
		}
	}
}

// PostToNetwork posts a command to the protocol worker.
func (c *Client) PostToNetwork(kind bus.ToxKind, param1, param2 uint32, payload bus.Payload) {
	c.dispatcher.PostToNetwork(kind, param1, param2, payload)
}

// PostToAudio posts a command to the audio worker. Device and preview
// commands are remembered for SaveSettings.
func (c *Client) PostToAudio(kind bus.AudioKind, param1, param2 uint32, payload bus.Payload) {
	c.mu.Lock()
	switch kind {
	case bus.AudioSetInput:
		c.settings.AudioInputDevice = param1
	case bus.AudioSetOutput:
		c.settings.AudioOutputDevice = param1
	case bus.AudioPreviewStart:
		c.settings.AudioPreview = true
	case bus.AudioPreviewEnd:
		c.settings.AudioPreview = false
	}
	c.mu.Unlock()
	c.dispatcher.PostToAudio(kind, param1, param2, payload)
}

// PostToVideo posts a command to the video worker.
func (c *Client) PostToVideo(kind bus.VideoKind, param1, param2 uint32, payload bus.Payload) {
	c.mu.Lock()
	switch kind {
	case bus.VideoSet:
		c.settings.VideoDevice = param1
	case bus.VideoPreviewStart:
		c.settings.VideoPreview = true
	case bus.VideoPreviewEnd:
		c.settings.VideoPreview = false
	}
	c.mu.Unlock()
	c.dispatcher.PostToVideo(kind, param1, param2, payload)
}

// PostToCallOrchestration posts a command to the toxav worker.
func (c *Client) PostToCallOrchestration(kind bus.ToxAVKind, param1, param2 uint32, payload bus.Payload) {
	c.dispatcher.PostToCallOrchestration(kind, param1, param2, payload)
}

// PostToUI posts an event to the UI mailbox.
func (c *Client) PostToUI(kind bus.UIEvent, param1, param2 uint32, payload bus.Payload) {
	c.dispatcher.PostToUI(kind, param1, param2, payload)
}

var _ bus.Poster = (*Client)(nil)

// Settings returns the current settings snapshot, including the devices
// selected since start.
func (c *Client) Settings() config.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// SaveSettings writes the current snapshot into settings and saves them to
// store.
func (c *Client) SaveSettings(store *config.Store, settings *config.Settings) error {
	if store == nil || settings == nil {
		return errors.New("settings store required")
	}
	settings.Apply(c.Settings())
	if err := store.Save(settings); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// WorkerStats combines the mailbox counters of a destination with the
// counters of its loop.
type WorkerStats struct {
	Mailbox bus.MailboxStats
	Handled uint64
	Failed  uint64
}

// Stats reports the counters of every destination.
func (c *Client) Stats() map[bus.Destination]WorkerStats {
	out := make(map[bus.Destination]WorkerStats)
	for dest, mb := range c.dispatcher.Stats() {
		ws := WorkerStats{Mailbox: mb}
		if loop, ok := c.loops[dest]; ok {
			ws.Handled, ws.Failed = loop.Handled(), loop.Failed()
		}
		out[dest] = ws
	}
	return out
}
