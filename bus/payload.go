package bus

import (
	"sync"
	"sync/atomic"
)

// Payload is the sealed set of data variants a Message can carry. Each
// kind declares which variant it requires through Kind.Accepts.
type Payload interface {
	payload()
}

// Releaser is implemented by payloads that own pooled resources.
type Releaser interface {
	Release()
}

// Text carries a UTF-8 string: names, status messages, chat messages,
// group topics and tooltips.
type Text struct {
	Value string
}

// Avatar carries a PNG encoded avatar image.
type Avatar struct {
	PNG []byte
}

// FriendAddress carries a Tox ID in its 76 character hex form and the
// greeting sent along with the friend request.
type FriendAddress struct {
	ID      string
	Message string
}

// PublicKey carries a long-term public key of a peer.
type PublicKey struct {
	Key [32]byte
}

// FilePath carries a single path on the local file system.
type FilePath struct {
	Path string
}

// FileList carries the paths of the files to send to a friend.
type FileList struct {
	Paths []string
}

// InlineImage carries a PNG image sent inline in a conversation.
type InlineImage struct {
	Name string
	PNG  []byte
}

// FileStatus is the UI visible state of a file transfer.
type FileStatus uint8

const (
	FileStatusPending FileStatus = iota
	FileStatusTransferring
	FileStatusPaused
	FileStatusDone
	FileStatusCancelled
	FileStatusError
)

// FileInfo describes a file transfer for the UI.
type FileInfo struct {
	FileNumber  uint32
	Name        string
	Size        uint64
	Transferred uint64
	Incoming    bool
	Status      FileStatus
}

// FriendRequestInfo describes an incoming friend request.
type FriendRequestInfo struct {
	PublicKey [32]byte
	Message   string
}

// DeviceInfo describes an audio or video device.
type DeviceInfo struct {
	Index uint32
	Name  string
}

// VideoFrame is a decoded I420 frame. Frames handed out by a FramePool
// return their buffers to the pool on Release.
type VideoFrame struct {
	Width   uint16
	Height  uint16
	Y, U, V []byte

	pool     *FramePool
	released atomic.Bool
}

// Release returns the frame buffers to their pool. It is safe to call more
// than once; only the first call has an effect.
func (f *VideoFrame) Release() {
	if f == nil || !f.released.CompareAndSwap(false, true) {
		return
	}
	if f.pool != nil {
		f.pool.put(f)
	}
}

// Released reports whether Release was called.
func (f *VideoFrame) Released() bool {
	return f.released.Load()
}

// FramePool recycles the plane buffers of video frames of one resolution.
type FramePool struct {
	width, height uint16
	pool          sync.Pool
	outstanding   atomic.Int64
}

// NewFramePool creates a pool for frames of the given dimensions.
func NewFramePool(width, height uint16) *FramePool {
	p := &FramePool{width: width, height: height}
	ySize := int(width) * int(height)
	cSize := ySize / 4
	p.pool.New = func() any {
		return &[3][]byte{make([]byte, ySize), make([]byte, cSize), make([]byte, cSize)}
	}
	return p
}

// Get returns a frame backed by pooled buffers. The caller owns the frame
// until it is posted.
func (p *FramePool) Get() *VideoFrame {
	planes := p.pool.Get().(*[3][]byte)
	p.outstanding.Add(1)
	return &VideoFrame{
		Width:  p.width,
		Height: p.height,
		Y:      planes[0],
		U:      planes[1],
		V:      planes[2],
		pool:   p,
	}
}

// Outstanding returns the number of frames taken and not yet released.
func (p *FramePool) Outstanding() int64 {
	return p.outstanding.Load()
}

func (p *FramePool) put(f *VideoFrame) {
	p.outstanding.Add(-1)
	p.pool.Put(&[3][]byte{f.Y, f.U, f.V})
	f.Y, f.U, f.V = nil, nil, nil
}

func (Text) payload()              {}
func (Avatar) payload()            {}
func (FriendAddress) payload()     {}
func (PublicKey) payload()         {}
func (FilePath) payload()          {}
func (FileList) payload()          {}
func (InlineImage) payload()       {}
func (FileInfo) payload()          {}
func (FriendRequestInfo) payload() {}
func (DeviceInfo) payload()        {}
func (*VideoFrame) payload()       {}

// payloadClass identifies a payload variant for kind tables.
type payloadClass uint8

const (
	classNone payloadClass = iota
	classText
	classAvatar
	classFriendAddress
	classPublicKey
	classFilePath
	classFileList
	classInlineImage
	classFileInfo
	classFriendRequest
	classDevice
	classVideoFrame
)

func classOf(p Payload) payloadClass {
	switch v := p.(type) {
	case nil:
		return classNone
	case Text:
		return classText
	case Avatar:
		return classAvatar
	case FriendAddress:
		return classFriendAddress
	case PublicKey:
		return classPublicKey
	case FilePath:
		return classFilePath
	case FileList:
		return classFileList
	case InlineImage:
		return classInlineImage
	case FileInfo:
		return classFileInfo
	case FriendRequestInfo:
		return classFriendRequest
	case DeviceInfo:
		return classDevice
	case *VideoFrame:
		if v == nil {
			return classNone
		}
		return classVideoFrame
	}
	return classNone
}

func (c payloadClass) accepts(p Payload) bool {
	return classOf(p) == c
}
