package testing

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opd-ai/utox/crypto"
	"github.com/opd-ai/utox/noise"
	"github.com/opd-ai/utox/protocol"
	"github.com/sirupsen/logrus"
)

var (
	// ErrFriendNotFound is returned for a friend number that is not in the
	// friend list.
	ErrFriendNotFound = errors.New("friend not found")
	// ErrFriendOffline is returned when a friend has no session yet.
	ErrFriendOffline = errors.New("friend not connected")
	// ErrEngineKilled is returned by an engine after Kill.
	ErrEngineKilled = errors.New("engine killed")
)

// iterationInterval is the pace of the simulated engine.
const iterationInterval = 10 * time.Millisecond

type simFriend struct {
	key           [32]byte
	session       *noise.Session
	name          string
	statusMessage string
}

// SimulatedEngine implements protocol.Engine and av.MediaEngine on a
// LoopbackNetwork. Friend requests are sealed with the recipient's public
// key and friends talk over a Noise IK session established when a request
// is accepted.
//
// The protocol methods and Iterate must be called from one goroutine, as
// the protocol worker does. The media methods may be called from the media
// workers concurrently.
type SimulatedEngine struct {
	net    *LoopbackNetwork
	keys   *crypto.KeyPair
	nospam [4]byte

	inboxMu sync.Mutex
	inbox   []packet

	handler       protocol.EventHandler
	name          string
	statusMessage string
	status        protocol.UserStatus
	avatar        []byte
	announced     bool

	friends    map[uint32]*simFriend
	byKey      map[[32]byte]uint32
	nextFriend uint32
	handshakes map[[32]byte]*noise.IKHandshake

	files    map[transferKey]*simFile
	nextFile uint32
	local    []func(h protocol.EventHandler)

	groupMu   sync.Mutex
	groups    map[uint32]uint64
	groupByID map[uint64]uint32
	nextGroup uint32

	avMu    sync.Mutex
	calls   map[uint32]*simCall
	avInbox []mediaItem

	iterations atomic.Uint64
	groupAudio atomic.Uint64
	killed     atomic.Bool
}

// NewSimulatedEngine creates an engine with a fresh identity and joins it
// to network.
func NewSimulatedEngine(network *LoopbackNetwork) (*SimulatedEngine, error) {
	keys, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("generate identity: %w", err)
	}
	return NewSimulatedEngineWithKeys(network, keys)
}

// NewSimulatedEngineWithKeys creates an engine for an existing identity.
func NewSimulatedEngineWithKeys(network *LoopbackNetwork, keys *crypto.KeyPair) (*SimulatedEngine, error) {
	if network == nil {
		return nil, errors.New("loopback network required")
	}
	if keys == nil {
		return nil, errors.New("key pair required")
	}
	e := &SimulatedEngine{
		net:           network,
		keys:          keys,
		nospam:        crypto.NewNospam(),
		name:          protocol.DefaultName,
		statusMessage: protocol.DefaultStatusMessage,
		friends:       make(map[uint32]*simFriend),
		byKey:         make(map[[32]byte]uint32),
		handshakes:    make(map[[32]byte]*noise.IKHandshake),
		files:         make(map[transferKey]*simFile),
		groups:        make(map[uint32]uint64),
		groupByID:     make(map[uint64]uint32),
		calls:         make(map[uint32]*simCall),
	}
	network.join(e)

	logrus.WithFields(logrus.Fields{
		"function": "NewSimulatedEngine",
		"address":  e.SelfAddress(),
	}).Info("Simulated engine joined loopback network")
	return e, nil
}

var _ protocol.Engine = (*SimulatedEngine)(nil)

// SetHandler implements protocol.Engine.
func (e *SimulatedEngine) SetHandler(h protocol.EventHandler) { e.handler = h }

// SelfAddress implements protocol.Engine.
func (e *SimulatedEngine) SelfAddress() string {
	return crypto.NewToxID(e.keys.Public, e.nospam).String()
}

// SelfPublicKey implements protocol.Engine.
func (e *SimulatedEngine) SelfPublicKey() [32]byte { return e.keys.Public }

// SelfName returns the current self name.
func (e *SimulatedEngine) SelfName() string { return e.name }

// SelfSetName implements protocol.Engine and tells every online friend.
func (e *SimulatedEngine) SelfSetName(name string) error {
	e.name = name
	e.broadcast(packet{kind: pktName, text: name})
	return nil
}

// SelfSetStatusMessage implements protocol.Engine.
func (e *SimulatedEngine) SelfSetStatusMessage(message string) error {
	e.statusMessage = message
	e.broadcast(packet{kind: pktStatusMessage, text: message})
	return nil
}

// SelfSetStatus implements protocol.Engine.
func (e *SimulatedEngine) SelfSetStatus(status protocol.UserStatus) error {
	e.status = status
	e.broadcast(packet{kind: pktStatus, num: uint32(status)})
	return nil
}

// SelfSetAvatar implements protocol.Engine.
func (e *SimulatedEngine) SelfSetAvatar(png []byte) error {
	e.avatar = append([]byte(nil), png...)
	e.broadcast(packet{kind: pktAvatar, data: e.avatar})
	return nil
}

// SelfUnsetAvatar implements protocol.Engine.
func (e *SimulatedEngine) SelfUnsetAvatar() error {
	e.avatar = nil
	e.broadcast(packet{kind: pktAvatar})
	return nil
}

// FriendAdd implements protocol.Engine by sending a sealed request.
func (e *SimulatedEngine) FriendAdd(id *crypto.ToxID, message string) (uint32, error) {
	switch {
	case id == nil:
		return 0, protocol.FriendAddNull
	case message == "":
		return 0, protocol.FriendAddNoMessage
	case id.PublicKey == e.keys.Public:
		return 0, protocol.FriendAddOwnKey
	}
	if _, ok := e.byKey[id.PublicKey]; ok {
		return 0, protocol.FriendAddAlreadySent
	}

	sealed, err := crypto.SealFriendRequest(e.keys.Public, []byte(message), id.PublicKey)
	if err != nil {
		return 0, protocol.FriendAddNull
	}
	friend := e.addFriend(id.PublicKey)
	if err := e.net.send(id.PublicKey, packet{
		kind: pktFriendRequest,
		from: e.keys.Public,
		data: sealed,
		num:  id.NospamValue(),
	}); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":      "SimulatedEngine.FriendAdd",
			"friend_number": friend,
			"error":         err.Error(),
		}).Warn("Friend request not delivered")
	}
	return friend, nil
}

// FriendAddNoRequest implements protocol.Engine. Accepting a request
// starts the session handshake with the requester.
func (e *SimulatedEngine) FriendAddNoRequest(publicKey [32]byte) (uint32, error) {
	if publicKey == e.keys.Public {
		return 0, protocol.FriendAddOwnKey
	}
	if _, ok := e.byKey[publicKey]; ok {
		return 0, protocol.FriendAddAlreadySent
	}
	friend := e.addFriend(publicKey)
	if err := e.startHandshake(publicKey); err != nil {
		return friend, err
	}
	return friend, nil
}

// FriendDelete implements protocol.Engine.
func (e *SimulatedEngine) FriendDelete(friend uint32) error {
	f, ok := e.friends[friend]
	if !ok {
		return fmt.Errorf("%w: %d", ErrFriendNotFound, friend)
	}
	if f.session != nil {
		_ = e.net.send(f.key, packet{kind: pktGoodbye, from: e.keys.Public})
	}
	e.dropCall(friend)
	delete(e.friends, friend)
	delete(e.byKey, f.key)
	delete(e.handshakes, f.key)
	return nil
}

// FriendConnected implements protocol.Engine.
func (e *SimulatedEngine) FriendConnected(friend uint32) (bool, error) {
	f, ok := e.friends[friend]
	if !ok {
		return false, fmt.Errorf("%w: %d", ErrFriendNotFound, friend)
	}
	return f.session != nil, nil
}

// FriendSendMessage implements protocol.Engine. The text is encrypted with
// the friend's session.
func (e *SimulatedEngine) FriendSendMessage(friend uint32, kind protocol.MessageType, text string) error {
	f, err := e.online(friend)
	if err != nil {
		return err
	}
	sealed, err := f.session.Encrypt([]byte(text))
	if err != nil {
		return fmt.Errorf("encrypt message: %w", err)
	}
	return e.net.send(f.key, packet{kind: pktMessage, from: e.keys.Public, num: uint32(kind), data: sealed})
}

// SetTyping implements protocol.Engine.
func (e *SimulatedEngine) SetTyping(friend uint32, typing bool) error {
	f, err := e.online(friend)
	if err != nil {
		return err
	}
	return e.net.send(f.key, packet{kind: pktTyping, from: e.keys.Public, flag: typing})
}

// Iterate implements protocol.Engine by processing the inbox.
func (e *SimulatedEngine) Iterate() {
	if e.killed.Load() {
		return
	}
	e.iterations.Add(1)
	if !e.announced {
		e.announced = true
		e.emit(func(h protocol.EventHandler) { h.OnConnectionStatus(true) })
	}

	local := e.local
	e.local = nil
	for _, fn := range local {
		e.emit(fn)
	}

	e.inboxMu.Lock()
	inbox := e.inbox
	e.inbox = nil
	e.inboxMu.Unlock()

	for _, p := range inbox {
		e.handle(p)
	}
}

// Iterations returns how often Iterate ran.
func (e *SimulatedEngine) Iterations() uint64 { return e.iterations.Load() }

// IterationInterval implements protocol.Engine and av.MediaEngine.
func (e *SimulatedEngine) IterationInterval() time.Duration { return iterationInterval }

// Kill implements protocol.Engine. Friends see the engine go offline.
func (e *SimulatedEngine) Kill() {
	if !e.killed.CompareAndSwap(false, true) {
		return
	}
	e.broadcast(packet{kind: pktGoodbye})
	e.leaveAllGroups()
	e.net.leave(e)

	logrus.WithFields(logrus.Fields{
		"function":   "SimulatedEngine.Kill",
		"friends":    len(e.friends),
		"iterations": e.iterations.Load(),
	}).Info("Simulated engine stopped")
}

// receive queues a packet from the network.
func (e *SimulatedEngine) receive(p packet) {
	e.inboxMu.Lock()
	defer e.inboxMu.Unlock()
	e.inbox = append(e.inbox, p)
}

func (e *SimulatedEngine) emit(fn func(h protocol.EventHandler)) {
	if e.handler != nil {
		fn(e.handler)
	}
}

// later runs fn with the handler on the next Iterate.
func (e *SimulatedEngine) later(fn func(h protocol.EventHandler)) {
	e.local = append(e.local, fn)
}

func (e *SimulatedEngine) addFriend(key [32]byte) uint32 {
	friend := e.nextFriend
	e.nextFriend++
	e.friends[friend] = &simFriend{key: key}
	e.byKey[key] = friend
	return friend
}

func (e *SimulatedEngine) online(friend uint32) (*simFriend, error) {
	f, ok := e.friends[friend]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrFriendNotFound, friend)
	}
	if f.session == nil {
		return nil, fmt.Errorf("%w: %d", ErrFriendOffline, friend)
	}
	return f, nil
}

// broadcast sends p to every online friend.
func (e *SimulatedEngine) broadcast(p packet) {
	p.from = e.keys.Public
	for _, f := range e.friends {
		if f.session != nil {
			_ = e.net.send(f.key, p)
		}
	}
}

func (e *SimulatedEngine) startHandshake(peer [32]byte) error {
	ik, err := noise.NewIKHandshake(e.keys, peer[:], noise.Initiator)
	if err != nil {
		return fmt.Errorf("start handshake: %w", err)
	}
	first, _, err := ik.WriteMessage(nil, nil)
	if err != nil {
		return fmt.Errorf("start handshake: %w", err)
	}
	e.handshakes[peer] = ik
	if err := e.net.send(peer, packet{kind: pktHandshakeInit, from: e.keys.Public, data: first}); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "SimulatedEngine.startHandshake",
			"error":    err.Error(),
		}).Debug("Peer unreachable, handshake pending")
	}
	return nil
}

// connected marks a friend online and sends it our profile.
func (e *SimulatedEngine) connected(friend uint32, session *noise.Session) {
	f := e.friends[friend]
	f.session = session
	delete(e.handshakes, f.key)
	e.emit(func(h protocol.EventHandler) { h.OnFriendConnectionStatus(friend, true) })

	from := e.keys.Public
	_ = e.net.send(f.key, packet{kind: pktName, from: from, text: e.name})
	_ = e.net.send(f.key, packet{kind: pktStatusMessage, from: from, text: e.statusMessage})
	_ = e.net.send(f.key, packet{kind: pktStatus, from: from, num: uint32(e.status)})
	if len(e.avatar) > 0 {
		_ = e.net.send(f.key, packet{kind: pktAvatar, from: from, data: e.avatar})
	}
}

func (e *SimulatedEngine) handle(p packet) {
	switch p.kind {
	case pktFriendRequest:
		e.handleFriendRequest(p)
		return
	case pktGroupPeerJoin, pktGroupPeerExit, pktGroupMessage, pktGroupTitle:
		// group members need not be friends
		e.handleGroup(p)
		return
	}
	friend, known := e.byKey[p.from]
	if !known {
		logrus.WithFields(logrus.Fields{
			"function": "SimulatedEngine.handle",
			"kind":     p.kind.String(),
		}).Debug("Dropping packet from stranger")
		return
	}

	switch p.kind {
	case pktHandshakeInit:
		e.handleHandshakeInit(friend, p)
	case pktHandshakeReply:
		e.handleHandshakeReply(friend, p)
	case pktGoodbye:
		if f := e.friends[friend]; f.session != nil {
			f.session = nil
			e.dropCall(friend)
			e.emit(func(h protocol.EventHandler) { h.OnFriendConnectionStatus(friend, false) })
		}
	case pktMessage:
		f := e.friends[friend]
		if f.session == nil {
			return
		}
		text, err := f.session.Decrypt(p.data)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function":      "SimulatedEngine.handle",
				"friend_number": friend,
				"error":         err.Error(),
			}).Warn("Dropping undecryptable message")
			return
		}
		e.emit(func(h protocol.EventHandler) {
			h.OnFriendMessage(friend, protocol.MessageType(p.num), string(text))
		})
	case pktName:
		e.friends[friend].name = p.text
		e.emit(func(h protocol.EventHandler) { h.OnFriendName(friend, p.text) })
	case pktStatusMessage:
		e.friends[friend].statusMessage = p.text
		e.emit(func(h protocol.EventHandler) { h.OnFriendStatusMessage(friend, p.text) })
	case pktStatus:
		e.emit(func(h protocol.EventHandler) { h.OnFriendStatus(friend, protocol.UserStatus(p.num)) })
	case pktTyping:
		e.emit(func(h protocol.EventHandler) { h.OnFriendTyping(friend, p.flag) })
	case pktAvatar:
		e.emit(func(h protocol.EventHandler) { h.OnFriendAvatar(friend, p.data) })
	case pktFileOffer, pktFileControl, pktFileData, pktInlineImage:
		e.handleFile(friend, p)
	case pktCall, pktCallAnswer, pktCallControl:
		e.handleCall(friend, p)
	case pktGroupInvite:
		e.handleGroupInvite(p)
	}
}

func (e *SimulatedEngine) handleFriendRequest(p packet) {
	if p.num != binary.BigEndian.Uint32(e.nospam[:]) {
		logrus.WithFields(logrus.Fields{
			"function": "SimulatedEngine.handleFriendRequest",
		}).Debug("Dropping friend request with stale nospam")
		return
	}
	sender, message, err := crypto.OpenFriendRequest(p.data, e.keys)
	if err != nil || sender != p.from {
		logrus.WithFields(logrus.Fields{
			"function": "SimulatedEngine.handleFriendRequest",
		}).Warn("Dropping forged friend request")
		return
	}
	if _, ok := e.byKey[sender]; ok {
		// both sides added each other
		if err := e.startHandshake(sender); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "SimulatedEngine.handleFriendRequest",
				"error":    err.Error(),
			}).Warn("Handshake failed")
		}
		return
	}
	e.emit(func(h protocol.EventHandler) { h.OnFriendRequest(sender, string(message)) })
}

func (e *SimulatedEngine) handleHandshakeInit(friend uint32, p packet) {
	if _, pending := e.handshakes[p.from]; pending && bytes.Compare(e.keys.Public[:], p.from[:]) > 0 {
		// crossed handshakes: the larger key keeps the initiator role
		return
	}
	ik, err := noise.NewIKHandshake(e.keys, nil, noise.Responder)
	if err == nil {
		var reply []byte
		reply, _, err = ik.WriteMessage(nil, p.data)
		if err == nil {
			var session *noise.Session
			session, err = noise.NewSession(ik)
			if err == nil && session.Peer() != p.from {
				err = errors.New("handshake key does not match sender")
			}
			if err == nil {
				_ = e.net.send(p.from, packet{kind: pktHandshakeReply, from: e.keys.Public, data: reply})
				e.connected(friend, session)
				return
			}
		}
	}
	logrus.WithFields(logrus.Fields{
		"function":      "SimulatedEngine.handleHandshakeInit",
		"friend_number": friend,
		"error":         err.Error(),
	}).Warn("Handshake failed")
}

func (e *SimulatedEngine) handleHandshakeReply(friend uint32, p packet) {
	ik, ok := e.handshakes[p.from]
	if !ok {
		return
	}
	if _, _, err := ik.ReadMessage(p.data); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":      "SimulatedEngine.handleHandshakeReply",
			"friend_number": friend,
			"error":         err.Error(),
		}).Warn("Handshake failed")
		return
	}
	session, err := noise.NewSession(ik)
	if err != nil {
		return
	}
	e.connected(friend, session)
}
