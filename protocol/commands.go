package protocol

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/opd-ai/utox/bus"
	"github.com/opd-ai/utox/crypto"
	"github.com/opd-ai/utox/limits"
	"github.com/sirupsen/logrus"
)

func (w *Worker) selfSetName(name string) error {
	if err := limits.ValidateName(name); err != nil {
		w.tooltip("Name rejected: %v", err)
		return fmt.Errorf("set name: %w", err)
	}
	return w.engine.SelfSetName(name)
}

func (w *Worker) selfSetStatusMessage(status string) error {
	if err := limits.ValidateStatusMessage(status); err != nil {
		w.tooltip("Status message rejected: %v", err)
		return fmt.Errorf("set status message: %w", err)
	}
	return w.engine.SelfSetStatusMessage(status)
}

func (w *Worker) selfSetState(state uint32) error {
	if state > uint32(UserStatusBusy) {
		return fmt.Errorf("%w: %d", ErrInvalidUserStatus, state)
	}
	return w.engine.SelfSetStatus(UserStatus(state))
}

func (w *Worker) avatarSet(format uint32, avatar bus.Avatar) error {
	if err := limits.ValidateAvatar(avatar.PNG); err != nil {
		w.tooltip("Avatar rejected: %v", err)
		return fmt.Errorf("set avatar: %w", err)
	}
	if err := w.engine.SelfSetAvatar(avatar.PNG); err != nil {
		return fmt.Errorf("set avatar: %w", err)
	}
	w.post.PostToUI(bus.UISetAvatar, format, 0, avatar)
	return nil
}

// friendNew sends a friend request and reports the outcome with
// FRIEND_ADD. param2 of the event is 0 on success and the FriendAddError
// code otherwise.
func (w *Worker) friendNew(addr bus.FriendAddress) error {
	id, err := crypto.ToxIDFromString(addr.ID)
	if err != nil {
		w.tooltip("Invalid Tox ID")
		w.post.PostToUI(bus.UIFriendAdd, 0, uint32(FriendAddBadChecksum), addr)
		return fmt.Errorf("%w: %v", ErrInvalidFriendAddress, err)
	}

	if addr.Message == "" {
		addr.Message = w.opts.FriendRequestMessage
	}
	if err := limits.ValidateFriendRequestMessage(addr.Message); err != nil {
		w.tooltip("Friend request message too long")
		w.post.PostToUI(bus.UIFriendAdd, 0, uint32(FriendAddTooLong), addr)
		return fmt.Errorf("friend request: %w", err)
	}

	friend, err := w.engine.FriendAdd(id, addr.Message)
	if err != nil {
		code := FriendAddNull
		var addErr FriendAddError
		if errors.As(err, &addErr) {
			code = addErr
		}
		w.post.PostToUI(bus.UIFriendAdd, 0, uint32(code), addr)
		return fmt.Errorf("friend request: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function":      "Worker.friendNew",
		"friend_number": friend,
	}).Info("Friend request sent")
	w.post.PostToUI(bus.UIFriendAdd, friend, uint32(FriendAddOK), addr)
	return nil
}

func (w *Worker) friendAccept(key bus.PublicKey) error {
	friend, err := w.engine.FriendAddNoRequest(key.Key)
	if err != nil {
		return fmt.Errorf("accept friend request: %w", err)
	}
	w.post.PostToUI(bus.UIFriendAccept, friend, 0, key)
	return nil
}

func (w *Worker) friendDelete(friend uint32) error {
	if err := w.engine.FriendDelete(friend); err != nil {
		return fmt.Errorf("delete friend %d: %w", friend, err)
	}
	for key := range w.transfers {
		if key.friend == friend {
			delete(w.transfers, key)
		}
	}
	if _, ok := w.calls[friend]; ok {
		w.endCall(friend)
	}
	w.post.PostToUI(bus.UIFriendDel, friend, 0, nil)
	return nil
}

func (w *Worker) friendOnline(friend uint32) error {
	online, err := w.engine.FriendConnected(friend)
	if err != nil {
		return fmt.Errorf("friend %d connection status: %w", friend, err)
	}
	w.post.PostToUI(bus.UIFriendOnline, friend, boolParam(online), nil)
	return nil
}

// sendMessage cuts text into protocol sized messages and sends them in
// order.
func (w *Worker) sendMessage(friend uint32, kind MessageType, text string) error {
	parts := limits.SplitMessage(text, limits.MaxPlaintextMessage)
	if len(parts) == 0 {
		return fmt.Errorf("send message: %w", limits.ErrMessageEmpty)
	}
	for _, part := range parts {
		if err := w.engine.FriendSendMessage(friend, kind, part); err != nil {
			return fmt.Errorf("send message to friend %d: %w", friend, err)
		}
	}
	return nil
}

func (w *Worker) sendTyping(friend uint32, typing bool) error {
	if !w.opts.SendTypingStatus {
		return nil
	}
	return w.engine.SetTyping(friend, typing)
}

func (w *Worker) fileAccept(friend, file uint32, path string) error {
	key := transferKey{friend, file}
	info, ok := w.transfers[key]
	if !ok {
		return fmt.Errorf("%w: friend %d file %d", ErrUnknownTransfer, friend, file)
	}
	if err := w.engine.FileAccept(friend, file, path); err != nil {
		return fmt.Errorf("accept file: %w", err)
	}
	info.Status = bus.FileStatusTransferring
	w.updateTransfer(friend, info)
	return nil
}

func (w *Worker) fileSendNew(friend uint32, paths []string) error {
	var errs []error
	for _, path := range paths {
		if err := w.fileSend(friend, path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *Worker) fileSend(friend uint32, path string) error {
	st, err := os.Stat(path)
	if err != nil {
		w.tooltip("Unable to open %s", path)
		return fmt.Errorf("send file: %w", err)
	}
	if st.IsDir() {
		w.tooltip("%s is a directory", path)
		return fmt.Errorf("send file: %s is a directory", path)
	}
	name := filepath.Base(path)
	if err := limits.ValidateFileName(name); err != nil {
		w.tooltip("File name too long")
		return fmt.Errorf("send file: %w", err)
	}

	size := uint64(st.Size())
	file, err := w.engine.FileSend(friend, path, name, size)
	if err != nil {
		return fmt.Errorf("send file %s: %w", name, err)
	}
	w.newTransfer(friend, bus.FileInfo{FileNumber: file, Name: name, Size: size})
	return nil
}

func (w *Worker) fileSendInline(friend uint32, img bus.InlineImage) error {
	if len(img.PNG) == 0 {
		return fmt.Errorf("send inline image: %w", limits.ErrMessageEmpty)
	}
	name := img.Name
	if name == "" {
		name = "utox-inline.png"
	}
	file, err := w.engine.FileSendData(friend, name, img.PNG)
	if err != nil {
		return fmt.Errorf("send inline image: %w", err)
	}
	w.newTransfer(friend, bus.FileInfo{FileNumber: file, Name: name, Size: uint64(len(img.PNG))})
	return nil
}

func (w *Worker) fileControl(friend, file uint32, control FileControl) error {
	key := transferKey{friend, file}
	info, ok := w.transfers[key]
	if !ok {
		return fmt.Errorf("%w: friend %d file %d", ErrUnknownTransfer, friend, file)
	}
	if err := w.engine.FileControl(friend, file, control); err != nil {
		return fmt.Errorf("file control: %w", err)
	}
	info.Status = controlStatus(control)
	w.updateTransfer(friend, info)
	return nil
}

func (w *Worker) newTransfer(friend uint32, info bus.FileInfo) {
	w.transfers[transferKey{friend, info.FileNumber}] = info
	w.post.PostToUI(bus.UIFriendFileNew, friend, info.FileNumber, info)
}

// updateTransfer stores info and reports it. Finished transfers are
// forgotten.
func (w *Worker) updateTransfer(friend uint32, info bus.FileInfo) {
	key := transferKey{friend, info.FileNumber}
	switch info.Status {
	case bus.FileStatusDone, bus.FileStatusCancelled, bus.FileStatusError:
		delete(w.transfers, key)
	default:
		w.transfers[key] = info
	}
	w.post.PostToUI(bus.UIFriendFileUpdate, friend, info.FileNumber, info)
}

func controlStatus(control FileControl) bus.FileStatus {
	switch control {
	case FileControlPause:
		return bus.FileStatusPaused
	case FileControlCancel:
		return bus.FileStatusCancelled
	}
	return bus.FileStatusTransferring
}

func (w *Worker) callSend(friend uint32, video bool) error {
	if err := w.engine.Call(friend, true, video); err != nil {
		w.tooltip("Unable to call friend")
		return fmt.Errorf("call friend %d: %w", friend, err)
	}
	w.calls[friend] = 0
	w.callVideo[friend] = video
	w.post.PostToUI(bus.UIFriendAVStatusChange, friend, uint32(bus.AVInvite), nil)
	return nil
}

// callIncoming acknowledges a ringing call: the UI shows it and the audio
// worker plays the ringtone until it is answered or ends. A call that was
// answered or ended before the acknowledgement was taken does not ring.
func (w *Worker) callIncoming(friend uint32, video bool) error {
	if !w.ringing[friend] {
		logrus.WithFields(logrus.Fields{
			"function":      "Worker.callIncoming",
			"friend_number": friend,
		}).Debug("Call no longer ringing")
		return nil
	}
	w.callVideo[friend] = video
	w.post.PostToUI(bus.UIFriendAVStatusChange, friend, uint32(bus.AVRinging), nil)
	w.post.PostToAudio(bus.AudioPlayRingtone, friend, 0, nil)
	return nil
}

func (w *Worker) callAnswer(friend uint32, video bool) error {
	if err := w.engine.Answer(friend, true, video); err != nil {
		return fmt.Errorf("answer friend %d: %w", friend, err)
	}
	delete(w.ringing, friend)
	w.calls[friend] = 0
	w.callVideo[friend] = video
	w.post.PostToUI(bus.UIFriendAVStatusChange, friend, uint32(bus.AVStarted), nil)
	w.startCallMedia(friend, video)
	return nil
}

// startCallMedia opens capture for a call once per call.
func (w *Worker) startCallMedia(friend uint32, video bool) {
	if w.media[friend] {
		return
	}
	w.media[friend] = true
	w.post.PostToAudio(bus.AudioStopRingtone, friend, 0, nil)
	w.post.PostToAudio(bus.AudioCallStart, friend, 0, nil)
	if video {
		w.post.PostToVideo(bus.VideoCallStart, friend, 0, nil)
		w.post.PostToUI(bus.UIFriendCallVideo, friend, 0, nil)
	}
}

func (w *Worker) callPauseAudio(friend uint32, pause bool) error {
	control := CallControlUnmuteAudio
	if pause {
		control = CallControlMuteAudio
	}
	return w.engine.CallControl(friend, control)
}

func (w *Worker) callPauseVideo(friend uint32, pause bool) error {
	control := CallControlShowVideo
	if pause {
		control = CallControlHideVideo
	}
	if err := w.engine.CallControl(friend, control); err != nil {
		return fmt.Errorf("video control friend %d: %w", friend, err)
	}
	w.callVideo[friend] = !pause
	if pause {
		w.post.PostToVideo(bus.VideoCallEnd, friend, 0, nil)
	} else {
		w.post.PostToVideo(bus.VideoCallStart, friend, 0, nil)
	}
	return nil
}

func (w *Worker) callDisconnect(friend uint32) error {
	err := w.engine.CallControl(friend, CallControlCancel)
	w.endCall(friend)
	if err != nil {
		return fmt.Errorf("hang up friend %d: %w", friend, err)
	}
	return nil
}

// endCall stops the media of a call and reports it finished.
func (w *Worker) endCall(friend uint32) {
	delete(w.calls, friend)
	delete(w.callVideo, friend)
	delete(w.ringing, friend)
	delete(w.media, friend)
	w.post.PostToAudio(bus.AudioStopRingtone, friend, 0, nil)
	w.post.PostToAudio(bus.AudioCallEnd, friend, 0, nil)
	w.post.PostToVideo(bus.VideoCallEnd, friend, 0, nil)
	w.post.PostToUI(bus.UIFriendAVDisconnect, friend, 0, nil)
	w.post.PostToUI(bus.UIFriendAVStatusChange, friend, uint32(bus.AVNone), nil)
}

func (w *Worker) groupCreate(audio bool) error {
	group, err := w.engine.GroupNew(audio)
	if err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	w.post.PostToUI(bus.UIGroupAdd, group, boolParam(audio), nil)
	return nil
}

func (w *Worker) groupExit(group uint32) error {
	if w.audioGroups[group] {
		w.stopGroupAudio(group)
	}
	if err := w.engine.GroupLeave(group); err != nil {
		return fmt.Errorf("leave group %d: %w", group, err)
	}
	return nil
}

func (w *Worker) groupSetTopic(group uint32, topic string) error {
	if err := limits.ValidateTopic(topic); err != nil {
		w.tooltip("Topic rejected: %v", err)
		return fmt.Errorf("set topic: %w", err)
	}
	return w.engine.GroupSetTitle(group, topic)
}

func (w *Worker) groupSend(group uint32, kind MessageType, text string) error {
	parts := limits.SplitMessage(text, limits.MaxPlaintextMessage)
	if len(parts) == 0 {
		return fmt.Errorf("send group message: %w", limits.ErrMessageEmpty)
	}
	for _, part := range parts {
		if err := w.engine.GroupSendMessage(group, kind, part); err != nil {
			return fmt.Errorf("send message to group %d: %w", group, err)
		}
	}
	return nil
}

func (w *Worker) groupAudio(group uint32, start bool) error {
	if !start {
		w.stopGroupAudio(group)
		return nil
	}
	if w.audioGroups[group] {
		return nil
	}
	w.audioGroups[group] = true
	w.post.PostToAudio(bus.GroupAudioCallStart, group, 0, nil)
	w.post.PostToUI(bus.UIGroupAudioStart, group, 0, nil)
	return nil
}

func (w *Worker) stopGroupAudio(group uint32) {
	if !w.audioGroups[group] {
		return
	}
	delete(w.audioGroups, group)
	w.post.PostToAudio(bus.GroupAudioCallEnd, group, 0, nil)
	w.post.PostToUI(bus.UIGroupAudioEnd, group, 0, nil)
}

func boolParam(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
