package testing

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/opd-ai/utox/protocol"
	"github.com/sirupsen/logrus"
)

// ErrUnknownFile is returned for a file number with no transfer.
var ErrUnknownFile = errors.New("unknown file transfer")

type transferKey struct {
	friend uint32
	file   uint32
}

// simFile is one side of a transfer. Outgoing transfers know the source
// path, incoming ones learn the destination when accepted.
type simFile struct {
	outgoing bool
	name     string
	path     string
	size     uint64
}

// FileSend implements protocol.Engine. The file is read when the receiver
// resumes the transfer.
func (e *SimulatedEngine) FileSend(friend uint32, path, name string, size uint64) (uint32, error) {
	f, err := e.online(friend)
	if err != nil {
		return 0, err
	}
	file := e.nextFile
	e.nextFile++
	e.files[transferKey{friend, file}] = &simFile{outgoing: true, name: name, path: path, size: size}
	if err := e.net.send(f.key, packet{kind: pktFileOffer, from: e.keys.Public, num: file, text: name, size: size}); err != nil {
		delete(e.files, transferKey{friend, file})
		return 0, err
	}
	return file, nil
}

// FileSendData implements protocol.Engine. Inline data needs no accept, the
// transfer completes on the next Iterate.
func (e *SimulatedEngine) FileSendData(friend uint32, name string, data []byte) (uint32, error) {
	f, err := e.online(friend)
	if err != nil {
		return 0, err
	}
	file := e.nextFile
	e.nextFile++
	payload := append([]byte(nil), data...)
	if err := e.net.send(f.key, packet{kind: pktInlineImage, from: e.keys.Public, num: file, text: name, data: payload}); err != nil {
		return 0, err
	}
	size := uint64(len(payload))
	e.later(func(h protocol.EventHandler) { h.OnFileProgress(friend, file, size) })
	return file, nil
}

// FileAccept implements protocol.Engine. When path is a directory the file
// is stored under its offered name.
func (e *SimulatedEngine) FileAccept(friend, file uint32, path string) error {
	t, ok := e.files[transferKey{friend, file}]
	if !ok || t.outgoing {
		return fmt.Errorf("%w: %d/%d", ErrUnknownFile, friend, file)
	}
	f, err := e.online(friend)
	if err != nil {
		return err
	}
	if st, err := os.Stat(path); err == nil && st.IsDir() {
		path = filepath.Join(path, filepath.Base(t.name))
	}
	t.path = path
	return e.net.send(f.key, packet{
		kind: pktFileControl,
		from: e.keys.Public,
		num:  file,
		code: uint32(protocol.FileControlResume),
	})
}

// FileControl implements protocol.Engine.
func (e *SimulatedEngine) FileControl(friend, file uint32, control protocol.FileControl) error {
	key := transferKey{friend, file}
	if _, ok := e.files[key]; !ok {
		return fmt.Errorf("%w: %d/%d", ErrUnknownFile, friend, file)
	}
	f, err := e.online(friend)
	if err != nil {
		return err
	}
	if control == protocol.FileControlCancel {
		delete(e.files, key)
	}
	return e.net.send(f.key, packet{kind: pktFileControl, from: e.keys.Public, num: file, code: uint32(control)})
}

func (e *SimulatedEngine) handleFile(friend uint32, p packet) {
	key := transferKey{friend, p.num}
	switch p.kind {
	case pktFileOffer:
		e.files[key] = &simFile{name: p.text, size: p.size}
		e.emit(func(h protocol.EventHandler) { h.OnFileRecv(friend, p.num, p.text, p.size) })

	case pktInlineImage:
		e.emit(func(h protocol.EventHandler) { h.OnInlineImage(friend, p.text, p.data) })

	case pktFileControl:
		t, ok := e.files[key]
		if !ok {
			return
		}
		control := protocol.FileControl(p.code)
		e.emit(func(h protocol.EventHandler) { h.OnFileRecvControl(friend, p.num, control) })
		switch {
		case control == protocol.FileControlCancel:
			delete(e.files, key)
		case control == protocol.FileControlResume && t.outgoing:
			e.sendFileData(friend, p.num, t)
		}

	case pktFileData:
		t, ok := e.files[key]
		if !ok || t.outgoing || t.path == "" {
			return
		}
		delete(e.files, key)
		if err := os.WriteFile(t.path, p.data, 0o600); err != nil {
			logrus.WithFields(logrus.Fields{
				"function":      "SimulatedEngine.handleFile",
				"friend_number": friend,
				"path":          t.path,
				"error":         err.Error(),
			}).Warn("Failed to store received file")
			e.emit(func(h protocol.EventHandler) { h.OnFileRecvControl(friend, p.num, protocol.FileControlCancel) })
			return
		}
		size := uint64(len(p.data))
		e.emit(func(h protocol.EventHandler) { h.OnFileProgress(friend, p.num, size) })
	}
}

// sendFileData ships the whole file in one packet.
func (e *SimulatedEngine) sendFileData(friend, file uint32, t *simFile) {
	key := transferKey{friend, file}
	data, err := os.ReadFile(t.path)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":      "SimulatedEngine.sendFileData",
			"friend_number": friend,
			"path":          t.path,
			"error":         err.Error(),
		}).Warn("Failed to read outgoing file")
		delete(e.files, key)
		if fr, ok := e.friends[friend]; ok {
			_ = e.net.send(fr.key, packet{kind: pktFileControl, from: e.keys.Public, num: file, code: uint32(protocol.FileControlCancel)})
		}
		e.emit(func(h protocol.EventHandler) { h.OnFileRecvControl(friend, file, protocol.FileControlCancel) })
		return
	}
	delete(e.files, key)
	fr := e.friends[friend]
	if err := e.net.send(fr.key, packet{kind: pktFileData, from: e.keys.Public, num: file, data: data}); err != nil {
		return
	}
	size := uint64(len(data))
	e.emit(func(h protocol.EventHandler) { h.OnFileProgress(friend, file, size) })
}
