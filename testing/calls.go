package testing

import (
	"errors"
	"fmt"

	"github.com/opd-ai/utox/av"
	"github.com/opd-ai/utox/bus"
	"github.com/opd-ai/utox/protocol"
)

// ErrNoCall is returned for call operations on a friend without a call.
var ErrNoCall = errors.New("no call with friend")

// simCall is guarded by SimulatedEngine.avMu.
type simCall struct {
	peer      [32]byte
	active    bool
	sendAudio bool
	sendVideo bool
	remote    protocol.CallState
}

// mediaItem is one audio or video frame in flight.
type mediaItem struct {
	from          [32]byte
	video         bool
	pcm           []int16
	rate          uint32
	width, height uint16
	y, u, v       []byte
}

var _ av.MediaEngine = (*SimulatedEngine)(nil)

func sendingState(audio, video bool) protocol.CallState {
	var s protocol.CallState
	if audio {
		s |= protocol.CallStateSendingAudio | protocol.CallStateAcceptingAudio
	}
	if video {
		s |= protocol.CallStateSendingVideo | protocol.CallStateAcceptingVideo
	}
	return s
}

// Call implements protocol.Engine.
func (e *SimulatedEngine) Call(friend uint32, audio, video bool) error {
	f, err := e.online(friend)
	if err != nil {
		return err
	}
	e.avMu.Lock()
	e.calls[friend] = &simCall{peer: f.key, sendAudio: audio, sendVideo: video}
	e.avMu.Unlock()

	var flags uint32
	if audio {
		flags = 1
	}
	return e.net.send(f.key, packet{kind: pktCall, from: e.keys.Public, num: flags, flag: video})
}

// Answer implements protocol.Engine.
func (e *SimulatedEngine) Answer(friend uint32, audio, video bool) error {
	f, err := e.online(friend)
	if err != nil {
		return err
	}
	e.avMu.Lock()
	c, ok := e.calls[friend]
	if ok && !c.active {
		c.active = true
		c.sendAudio, c.sendVideo = audio, video
	}
	e.avMu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoCall, friend)
	}
	return e.net.send(f.key, packet{kind: pktCallAnswer, from: e.keys.Public, code: uint32(sendingState(audio, video))})
}

// CallControl implements protocol.Engine.
func (e *SimulatedEngine) CallControl(friend uint32, control protocol.CallControl) error {
	e.avMu.Lock()
	c, ok := e.calls[friend]
	if ok {
		switch control {
		case protocol.CallControlCancel:
			delete(e.calls, friend)
		case protocol.CallControlMuteAudio:
			c.sendAudio = false
		case protocol.CallControlUnmuteAudio:
			c.sendAudio = true
		case protocol.CallControlHideVideo:
			c.sendVideo = false
		case protocol.CallControlShowVideo:
			c.sendVideo = true
		}
	}
	e.avMu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoCall, friend)
	}

	f, err := e.online(friend)
	if err != nil {
		return err
	}
	return e.net.send(f.key, packet{kind: pktCallControl, from: e.keys.Public, code: uint32(control)})
}

// InCall reports whether a call with friend was answered.
func (e *SimulatedEngine) InCall(friend uint32) bool {
	e.avMu.Lock()
	defer e.avMu.Unlock()
	c, ok := e.calls[friend]
	return ok && c.active
}

func (e *SimulatedEngine) dropCall(friend uint32) {
	e.avMu.Lock()
	defer e.avMu.Unlock()
	delete(e.calls, friend)
}

func (e *SimulatedEngine) handleCall(friend uint32, p packet) {
	switch p.kind {
	case pktCall:
		e.avMu.Lock()
		e.calls[friend] = &simCall{peer: p.from}
		e.avMu.Unlock()
		audio := p.num == 1
		e.emit(func(h protocol.EventHandler) { h.OnCall(friend, audio, p.flag) })

	case pktCallAnswer:
		e.avMu.Lock()
		c, ok := e.calls[friend]
		if ok {
			c.active = true
			c.remote = protocol.CallState(p.code)
		}
		e.avMu.Unlock()
		if ok {
			state := protocol.CallState(p.code)
			e.emit(func(h protocol.EventHandler) { h.OnCallState(friend, state) })
		}

	case pktCallControl:
		control := protocol.CallControl(p.code)
		e.avMu.Lock()
		c, ok := e.calls[friend]
		var state protocol.CallState
		if ok {
			switch control {
			case protocol.CallControlCancel:
				delete(e.calls, friend)
				c.remote = protocol.CallStateFinished
			case protocol.CallControlMuteAudio:
				c.remote &^= protocol.CallStateSendingAudio
			case protocol.CallControlUnmuteAudio:
				c.remote |= protocol.CallStateSendingAudio
			case protocol.CallControlHideVideo:
				c.remote &^= protocol.CallStateSendingVideo
			case protocol.CallControlShowVideo:
				c.remote |= protocol.CallStateSendingVideo
			case protocol.CallControlPause:
				c.remote &^= protocol.CallStateSendingAudio | protocol.CallStateSendingVideo
			case protocol.CallControlResume:
				c.remote |= protocol.CallStateSendingAudio
			}
			state = c.remote
		}
		e.avMu.Unlock()
		if ok {
			e.emit(func(h protocol.EventHandler) { h.OnCallState(friend, state) })
		}
	}
}

// SendAudioFrame implements av.MediaEngine. Frames sent while muted are
// dropped.
func (e *SimulatedEngine) SendAudioFrame(friend uint32, pcm []int16, sampleRate uint32) error {
	e.avMu.Lock()
	c, ok := e.calls[friend]
	live := ok && c.active
	send := live && c.sendAudio
	var peer [32]byte
	if ok {
		peer = c.peer
	}
	e.avMu.Unlock()
	if !live {
		return fmt.Errorf("%w: %d", ErrNoCall, friend)
	}
	if !send {
		return nil
	}
	return e.deliverMedia(peer, mediaItem{
		from: e.keys.Public,
		pcm:  append([]int16(nil), pcm...),
		rate: sampleRate,
	})
}

// SendGroupAudio implements av.MediaEngine. Group audio reaches every
// other member and is counted, it is not played back.
func (e *SimulatedEngine) SendGroupAudio(group uint32, pcm []int16, sampleRate uint32) error {
	id, ok := e.groupID(group)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownGroup, group)
	}
	for _, member := range e.net.groupMembers(id) {
		if member == e.keys.Public {
			continue
		}
		if peer, ok := e.net.lookup(member); ok {
			peer.groupAudio.Add(1)
		}
	}
	return nil
}

// GroupAudioReceived returns how many group audio frames reached this
// engine.
func (e *SimulatedEngine) GroupAudioReceived() uint64 { return e.groupAudio.Load() }

// SendVideoFrame implements av.MediaEngine.
func (e *SimulatedEngine) SendVideoFrame(friend uint32, frame *bus.VideoFrame) error {
	if frame == nil {
		return errors.New("nil video frame")
	}
	e.avMu.Lock()
	c, ok := e.calls[friend]
	live := ok && c.active
	send := live && c.sendVideo
	var peer [32]byte
	if ok {
		peer = c.peer
	}
	e.avMu.Unlock()
	if !live {
		return fmt.Errorf("%w: %d", ErrNoCall, friend)
	}
	if !send {
		return nil
	}
	return e.deliverMedia(peer, mediaItem{
		from:   e.keys.Public,
		video:  true,
		width:  frame.Width,
		height: frame.Height,
		y:      append([]byte(nil), frame.Y...),
		u:      append([]byte(nil), frame.U...),
		v:      append([]byte(nil), frame.V...),
	})
}

// IterateAV implements av.MediaEngine.
func (e *SimulatedEngine) IterateAV(sink av.MediaSink) {
	e.avMu.Lock()
	items := e.avInbox
	e.avInbox = nil
	byKey := make(map[[32]byte]uint32, len(e.calls))
	for friend, c := range e.calls {
		if c.active {
			byKey[c.peer] = friend
		}
	}
	e.avMu.Unlock()

	for _, item := range items {
		friend, ok := byKey[item.from]
		if !ok {
			continue
		}
		if item.video {
			sink.OnVideoFrame(friend, item.width, item.height, item.y, item.u, item.v)
			continue
		}
		sink.OnAudioFrame(friend, item.pcm, item.rate)
	}
}

func (e *SimulatedEngine) deliverMedia(to [32]byte, item mediaItem) error {
	peer, ok := e.net.lookup(to)
	if !ok {
		return ErrPeerUnreachable
	}
	peer.avMu.Lock()
	peer.avInbox = append(peer.avInbox, item)
	peer.avMu.Unlock()
	return nil
}
