package testing

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrPeerUnreachable is returned when a packet targets a key that is not
// on the network.
var ErrPeerUnreachable = errors.New("peer not on loopback network")

type packetKind uint8

const (
	pktFriendRequest packetKind = iota
	pktHandshakeInit
	pktHandshakeReply
	pktGoodbye
	pktMessage
	pktName
	pktStatusMessage
	pktStatus
	pktTyping
	pktAvatar
	pktFileOffer
	pktFileControl
	pktFileData
	pktInlineImage
	pktCall
	pktCallAnswer
	pktCallControl
	pktGroupInvite
	pktGroupPeerJoin
	pktGroupPeerExit
	pktGroupMessage
	pktGroupTitle
)

var packetKindNames = [...]string{
	pktFriendRequest:  "friend_request",
	pktHandshakeInit:  "handshake_init",
	pktHandshakeReply: "handshake_reply",
	pktGoodbye:        "goodbye",
	pktMessage:        "message",
	pktName:           "name",
	pktStatusMessage:  "status_message",
	pktStatus:         "status",
	pktTyping:         "typing",
	pktAvatar:         "avatar",
	pktFileOffer:      "file_offer",
	pktFileControl:    "file_control",
	pktFileData:       "file_data",
	pktInlineImage:    "inline_image",
	pktCall:           "call",
	pktCallAnswer:     "call_answer",
	pktCallControl:    "call_control",
	pktGroupInvite:    "group_invite",
	pktGroupPeerJoin:  "group_peer_join",
	pktGroupPeerExit:  "group_peer_exit",
	pktGroupMessage:   "group_message",
	pktGroupTitle:     "group_title",
}

func (k packetKind) String() string {
	if int(k) < len(packetKindNames) {
		return packetKindNames[k]
	}
	return "unknown"
}

// packet is one datagram between two engines. Only the fields the kind
// needs are set.
type packet struct {
	kind  packetKind
	from  [32]byte
	data  []byte
	text  string
	num   uint32
	code  uint32
	size  uint64
	flag  bool
	group uint64
}

// DeliveryRecord describes one packet handed to the network.
type DeliveryRecord struct {
	Kind       string
	From, To   [32]byte
	PacketSize int
	Timestamp  int64
	Success    bool
	Error      error
}

// LoopbackNetwork connects SimulatedEngines of one process. Packets are
// queued in the recipient's inbox and processed by its Iterate; media is
// queued separately and processed by IterateAV.
type LoopbackNetwork struct {
	mu    sync.RWMutex
	nodes map[[32]byte]*SimulatedEngine
	log   []DeliveryRecord

	groups    map[uint64]*loopbackGroup
	nextGroup uint64
}

// NewLoopbackNetwork creates an empty network.
func NewLoopbackNetwork() *LoopbackNetwork {
	return &LoopbackNetwork{
		nodes:  make(map[[32]byte]*SimulatedEngine),
		groups: make(map[uint64]*loopbackGroup),
	}
}

func (n *LoopbackNetwork) join(e *SimulatedEngine) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nodes[e.keys.Public] = e
}

func (n *LoopbackNetwork) leave(e *SimulatedEngine) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.nodes, e.keys.Public)
}

func (n *LoopbackNetwork) lookup(key [32]byte) (*SimulatedEngine, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	e, ok := n.nodes[key]
	return e, ok
}

// send queues p in the inbox of the engine owning to.
func (n *LoopbackNetwork) send(to [32]byte, p packet) error {
	target, ok := n.lookup(to)
	var err error
	if ok {
		target.receive(p)
	} else {
		err = ErrPeerUnreachable
	}
	n.record(p, to, err)
	return err
}

func (n *LoopbackNetwork) record(p packet, to [32]byte, err error) {
	rec := DeliveryRecord{
		Kind:       p.kind.String(),
		From:       p.from,
		To:         to,
		PacketSize: len(p.data) + len(p.text),
		Timestamp:  time.Now().UnixNano(),
		Success:    err == nil,
		Error:      err,
	}

	n.mu.Lock()
	n.log = append(n.log, rec)
	n.mu.Unlock()

	entry := logrus.WithFields(logrus.Fields{
		"function": "LoopbackNetwork.send",
		"kind":     rec.Kind,
		"size":     rec.PacketSize,
	})
	if err != nil {
		entry.WithField("error", err.Error()).Debug("Loopback packet not delivered")
		return
	}
	entry.Debug("Loopback packet delivered")
}

// DeliveryLog returns a copy of the delivery records.
func (n *LoopbackNetwork) DeliveryLog() []DeliveryRecord {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]DeliveryRecord, len(n.log))
	copy(out, n.log)
	return out
}

// ClearDeliveryLog empties the delivery log.
func (n *LoopbackNetwork) ClearDeliveryLog() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.log = nil
}

// Nodes returns the number of engines on the network.
func (n *LoopbackNetwork) Nodes() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.nodes)
}
