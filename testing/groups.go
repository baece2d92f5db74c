package testing

import (
	"errors"
	"fmt"
	"sort"

	"github.com/opd-ai/utox/protocol"
)

// ErrUnknownGroup is returned for a group number this engine is not in.
var ErrUnknownGroup = errors.New("unknown group")

// loopbackGroup is a conference shared by the engines of one network.
// Peer numbers are assigned on join and never reused.
type loopbackGroup struct {
	audio    bool
	title    string
	members  map[[32]byte]uint32
	names    map[uint32]string
	nextPeer uint32
}

type memberInfo struct {
	peer uint32
	name string
}

func (n *LoopbackNetwork) newGroup(owner [32]byte, name string, audio bool) uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextGroup++
	n.groups[n.nextGroup] = &loopbackGroup{
		audio:    audio,
		members:  map[[32]byte]uint32{owner: 0},
		names:    map[uint32]string{0: name},
		nextPeer: 1,
	}
	return n.nextGroup
}

// joinGroup adds key to the group and returns its peer number and the
// members that were already there, ordered by peer number.
func (n *LoopbackNetwork) joinGroup(id uint64, key [32]byte, name string) (uint32, []memberInfo, *loopbackGroup, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	g, ok := n.groups[id]
	if !ok {
		return 0, nil, nil, fmt.Errorf("%w: %d", ErrUnknownGroup, id)
	}
	if peer, ok := g.members[key]; ok {
		return peer, nil, nil, fmt.Errorf("already in group %d as peer %d", id, peer)
	}
	existing := make([]memberInfo, 0, len(g.members))
	for _, p := range g.members {
		existing = append(existing, memberInfo{peer: p, name: g.names[p]})
	}
	sort.Slice(existing, func(i, j int) bool { return existing[i].peer < existing[j].peer })

	peer := g.nextPeer
	g.nextPeer++
	g.members[key] = peer
	g.names[peer] = name
	snapshot := &loopbackGroup{audio: g.audio, title: g.title}
	return peer, existing, snapshot, nil
}

func (n *LoopbackNetwork) leaveGroup(id uint64, key [32]byte) (uint32, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	g, ok := n.groups[id]
	if !ok {
		return 0, false
	}
	peer, ok := g.members[key]
	if !ok {
		return 0, false
	}
	delete(g.members, key)
	delete(g.names, peer)
	if len(g.members) == 0 {
		delete(n.groups, id)
	}
	return peer, true
}

func (n *LoopbackNetwork) groupPeer(id uint64, key [32]byte) (uint32, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	g, ok := n.groups[id]
	if !ok {
		return 0, false
	}
	peer, ok := g.members[key]
	return peer, ok
}

func (n *LoopbackNetwork) groupMembers(id uint64) [][32]byte {
	n.mu.RLock()
	defer n.mu.RUnlock()
	g, ok := n.groups[id]
	if !ok {
		return nil
	}
	out := make([][32]byte, 0, len(g.members))
	for k := range g.members {
		out = append(out, k)
	}
	return out
}

func (n *LoopbackNetwork) setGroupTitle(id uint64, title string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if g, ok := n.groups[id]; ok {
		g.title = title
	}
}

// Groups returns the number of live conferences.
func (n *LoopbackNetwork) Groups() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.groups)
}

func (e *SimulatedEngine) groupID(group uint32) (uint64, bool) {
	e.groupMu.Lock()
	defer e.groupMu.Unlock()
	id, ok := e.groups[group]
	return id, ok
}

func (e *SimulatedEngine) registerGroup(id uint64) uint32 {
	e.groupMu.Lock()
	defer e.groupMu.Unlock()
	group := e.nextGroup
	e.nextGroup++
	e.groups[group] = id
	e.groupByID[id] = group
	return group
}

func (e *SimulatedEngine) forgetGroup(group uint32) (uint64, bool) {
	e.groupMu.Lock()
	defer e.groupMu.Unlock()
	id, ok := e.groups[group]
	if ok {
		delete(e.groups, group)
		delete(e.groupByID, id)
	}
	return id, ok
}

// groupcast sends p to every other member of group id.
func (e *SimulatedEngine) groupcast(id uint64, p packet) {
	p.from = e.keys.Public
	p.group = id
	for _, member := range e.net.groupMembers(id) {
		if member != e.keys.Public {
			_ = e.net.send(member, p)
		}
	}
}

// GroupNew implements protocol.Engine.
func (e *SimulatedEngine) GroupNew(audio bool) (uint32, error) {
	if e.killed.Load() {
		return 0, ErrEngineKilled
	}
	id := e.net.newGroup(e.keys.Public, e.name, audio)
	return e.registerGroup(id), nil
}

// GroupInvite implements protocol.Engine. Invited friends join at once.
func (e *SimulatedEngine) GroupInvite(group, friend uint32) error {
	id, ok := e.groupID(group)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownGroup, group)
	}
	f, err := e.online(friend)
	if err != nil {
		return err
	}
	return e.net.send(f.key, packet{kind: pktGroupInvite, from: e.keys.Public, group: id})
}

// GroupLeave implements protocol.Engine.
func (e *SimulatedEngine) GroupLeave(group uint32) error {
	id, ok := e.forgetGroup(group)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownGroup, group)
	}
	if peer, ok := e.net.leaveGroup(id, e.keys.Public); ok {
		e.groupcast(id, packet{kind: pktGroupPeerExit, code: peer})
	}
	return nil
}

// GroupSetTitle implements protocol.Engine.
func (e *SimulatedEngine) GroupSetTitle(group uint32, title string) error {
	id, ok := e.groupID(group)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownGroup, group)
	}
	peer, _ := e.net.groupPeer(id, e.keys.Public)
	e.net.setGroupTitle(id, title)
	e.groupcast(id, packet{kind: pktGroupTitle, code: peer, text: title})
	return nil
}

// GroupSendMessage implements protocol.Engine.
func (e *SimulatedEngine) GroupSendMessage(group uint32, kind protocol.MessageType, text string) error {
	id, ok := e.groupID(group)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownGroup, group)
	}
	peer, _ := e.net.groupPeer(id, e.keys.Public)
	e.groupcast(id, packet{kind: pktGroupMessage, code: peer, num: uint32(kind), text: text})
	return nil
}

func (e *SimulatedEngine) leaveAllGroups() {
	e.groupMu.Lock()
	groups := make([]uint32, 0, len(e.groups))
	for group := range e.groups {
		groups = append(groups, group)
	}
	e.groupMu.Unlock()
	for _, group := range groups {
		_ = e.GroupLeave(group)
	}
}

func (e *SimulatedEngine) handleGroupInvite(p packet) {
	e.groupMu.Lock()
	_, member := e.groupByID[p.group]
	e.groupMu.Unlock()
	if member {
		return
	}
	peer, existing, g, err := e.net.joinGroup(p.group, e.keys.Public, e.name)
	if err != nil {
		return
	}
	group := e.registerGroup(p.group)
	e.emit(func(h protocol.EventHandler) { h.OnGroupJoined(group, g.audio) })
	for _, m := range existing {
		m := m
		e.emit(func(h protocol.EventHandler) { h.OnGroupPeerJoin(group, m.peer) })
		e.emit(func(h protocol.EventHandler) { h.OnGroupPeerName(group, m.peer, m.name) })
	}
	if g.title != "" && len(existing) > 0 {
		e.emit(func(h protocol.EventHandler) { h.OnGroupTitle(group, existing[0].peer, g.title) })
	}
	e.groupcast(p.group, packet{kind: pktGroupPeerJoin, code: peer, text: e.name})
}

func (e *SimulatedEngine) handleGroup(p packet) {
	e.groupMu.Lock()
	group, ok := e.groupByID[p.group]
	e.groupMu.Unlock()
	if !ok {
		return
	}
	peer := p.code
	switch p.kind {
	case pktGroupPeerJoin:
		e.emit(func(h protocol.EventHandler) { h.OnGroupPeerJoin(group, peer) })
		e.emit(func(h protocol.EventHandler) { h.OnGroupPeerName(group, peer, p.text) })
	case pktGroupPeerExit:
		e.emit(func(h protocol.EventHandler) { h.OnGroupPeerExit(group, peer) })
	case pktGroupMessage:
		e.emit(func(h protocol.EventHandler) {
			h.OnGroupMessage(group, peer, protocol.MessageType(p.num), p.text)
		})
	case pktGroupTitle:
		e.emit(func(h protocol.EventHandler) { h.OnGroupTitle(group, peer, p.text) })
	}
}
