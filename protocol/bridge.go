package protocol

import (
	"github.com/opd-ai/utox/bus"
	"github.com/sirupsen/logrus"
)

// bridge translates engine notifications into UI events. It runs on the
// worker goroutine and shares the worker state without locking.
type bridge struct {
	w *Worker
}

var _ EventHandler = (*bridge)(nil)

func (b *bridge) ui(kind bus.UIEvent, p1, p2 uint32, payload bus.Payload) {
	b.w.post.PostToUI(kind, p1, p2, payload)
}

func (b *bridge) OnConnectionStatus(connected bool) {
	if connected == b.w.connected {
		return
	}
	b.w.connected = connected
	logrus.WithFields(logrus.Fields{
		"function":  "bridge.OnConnectionStatus",
		"connected": connected,
	}).Info("Network connection changed")
	b.ui(bus.UIDHTConnected, boolParam(connected), 0, nil)
}

func (b *bridge) OnFriendRequest(publicKey [32]byte, message string) {
	b.ui(bus.UIFriendRequest, 0, 0, bus.FriendRequestInfo{PublicKey: publicKey, Message: message})
}

func (b *bridge) OnFriendMessage(friend uint32, kind MessageType, text string) {
	b.ui(bus.UIFriendMessage, friend, uint32(kind), bus.Text{Value: text})
}

func (b *bridge) OnFriendName(friend uint32, name string) {
	b.ui(bus.UIFriendName, friend, 0, bus.Text{Value: name})
}

func (b *bridge) OnFriendStatusMessage(friend uint32, message string) {
	b.ui(bus.UIFriendStatusMessage, friend, 0, bus.Text{Value: message})
}

func (b *bridge) OnFriendStatus(friend uint32, status UserStatus) {
	b.ui(bus.UIFriendStatus, friend, uint32(status), nil)
}

func (b *bridge) OnFriendTyping(friend uint32, typing bool) {
	b.ui(bus.UIFriendTyping, friend, boolParam(typing), nil)
}

// OnFriendConnectionStatus also ends a call with a friend that went
// offline.
func (b *bridge) OnFriendConnectionStatus(friend uint32, connected bool) {
	if !connected {
		if _, ok := b.w.calls[friend]; ok {
			b.w.endCall(friend)
		}
	}
	b.ui(bus.UIFriendOnline, friend, boolParam(connected), nil)
}

func (b *bridge) OnFriendAvatar(friend uint32, png []byte) {
	if len(png) == 0 {
		b.ui(bus.UIFriendUnsetAvatar, friend, 0, nil)
		return
	}
	b.ui(bus.UIFriendSetAvatar, friend, 0, bus.Avatar{PNG: png})
}

func (b *bridge) OnFileRecv(friend, file uint32, name string, size uint64) {
	b.w.newTransfer(friend, bus.FileInfo{
		FileNumber: file,
		Name:       name,
		Size:       size,
		Incoming:   true,
		Status:     bus.FileStatusPending,
	})
}

func (b *bridge) OnFileRecvControl(friend, file uint32, control FileControl) {
	info, ok := b.w.transfers[transferKey{friend, file}]
	if !ok {
		logrus.WithFields(logrus.Fields{
			"function":      "bridge.OnFileRecvControl",
			"friend_number": friend,
			"file_number":   file,
		}).Warn("Control for unknown transfer")
		return
	}
	info.Status = controlStatus(control)
	b.w.updateTransfer(friend, info)
}

func (b *bridge) OnFileProgress(friend, file uint32, transferred uint64) {
	info, ok := b.w.transfers[transferKey{friend, file}]
	if !ok {
		return
	}
	info.Transferred = transferred
	info.Status = bus.FileStatusTransferring
	if transferred >= info.Size {
		info.Status = bus.FileStatusDone
	}
	b.w.updateTransfer(friend, info)
}

func (b *bridge) OnInlineImage(friend uint32, name string, png []byte) {
	b.ui(bus.UIFriendInlineImage, friend, 0, bus.InlineImage{Name: name, PNG: png})
}

// OnCall shows the incoming call and asks the worker itself to start
// ringing, the same path a UI initiated acknowledgement takes.
func (b *bridge) OnCall(friend uint32, audio, video bool) {
	b.w.calls[friend] = 0
	b.w.callVideo[friend] = video
	b.w.ringing[friend] = true
	b.ui(bus.UIFriendAVIncoming, friend, boolParam(video), nil)
	b.w.post.PostToNetwork(bus.ToxCallIncoming, friend, boolParam(video), nil)
}

// OnCallState reports the media changes between the previous and the new
// state of a call.
func (b *bridge) OnCallState(friend uint32, state CallState) {
	if state.Ended() {
		b.w.endCall(friend)
		return
	}

	prev := b.w.calls[friend]
	b.w.calls[friend] = state
	if !b.w.ringing[friend] && !b.w.media[friend] {
		b.ui(bus.UIFriendAVStatusChange, friend, uint32(bus.AVStarted), nil)
		b.w.startCallMedia(friend, b.w.callVideo[friend])
	}

	changed := prev ^ state
	if changed.Has(CallStateSendingAudio) {
		if state.Has(CallStateSendingAudio) {
			b.ui(bus.UIFriendCallAudioConnected, friend, 0, nil)
		} else {
			b.ui(bus.UIFriendCallAudioDisconnected, friend, 0, nil)
		}
	}
	if changed.Has(CallStateSendingVideo) {
		if state.Has(CallStateSendingVideo) {
			b.ui(bus.UIFriendCallStartVideo, friend, 0, nil)
			b.ui(bus.UIFriendCallVideoConnected, friend, 0, nil)
		} else {
			b.ui(bus.UIFriendCallStopVideo, friend, 0, nil)
			b.ui(bus.UIFriendCallVideoDisconnected, friend, 0, nil)
		}
	}
	if changed != 0 {
		b.ui(bus.UIFriendCallMediaChange, friend, uint32(state), nil)
	}
}

func (b *bridge) OnGroupJoined(group uint32, audio bool) {
	b.ui(bus.UIGroupAdd, group, boolParam(audio), nil)
}

func (b *bridge) OnGroupMessage(group, peer uint32, kind MessageType, text string) {
	b.ui(bus.UIGroupMessage, group, peer, bus.Text{Value: text})
}

func (b *bridge) OnGroupPeerJoin(group, peer uint32) {
	b.ui(bus.UIGroupPeerAdd, group, peer, nil)
	b.ui(bus.UIGroupUpdate, group, 0, nil)
}

func (b *bridge) OnGroupPeerExit(group, peer uint32) {
	b.ui(bus.UIGroupPeerDel, group, peer, nil)
	b.ui(bus.UIGroupUpdate, group, 0, nil)
}

func (b *bridge) OnGroupPeerName(group, peer uint32, name string) {
	b.ui(bus.UIGroupPeerName, group, peer, bus.Text{Value: name})
	b.ui(bus.UIGroupUpdate, group, 0, nil)
}

func (b *bridge) OnGroupTitle(group, peer uint32, title string) {
	b.ui(bus.UIGroupTitle, group, peer, bus.Text{Value: title})
	b.ui(bus.UIGroupUpdate, group, 0, nil)
}
