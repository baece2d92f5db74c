package bus

import "fmt"

// Destination names one of the five mailboxes of the bus.
type Destination uint8

const (
	// DestinationNetwork is the protocol ("tox") worker.
	DestinationNetwork Destination = iota
	// DestinationAudio is the audio worker.
	DestinationAudio
	// DestinationVideo is the video worker.
	DestinationVideo
	// DestinationCallOrchestration is the call orchestration ("toxav") worker.
	DestinationCallOrchestration
	// DestinationUI is the reverse channel consumed by the UI goroutine.
	DestinationUI
)

var destinationNames = [...]string{
	DestinationNetwork:           "network",
	DestinationAudio:             "audio",
	DestinationVideo:             "video",
	DestinationCallOrchestration: "toxav",
	DestinationUI:                "ui",
}

func (d Destination) String() string {
	if int(d) < len(destinationNames) {
		return destinationNames[d]
	}
	return fmt.Sprintf("destination(%d)", uint8(d))
}

// Kind is the constraint satisfied by every taxonomy of the bus.
//
// The zero value of each command taxonomy is its kill kind. UI events have
// no kill kind.
type Kind interface {
	~uint8
	fmt.Stringer

	// IsKill reports whether the kind is the reserved kill kind.
	IsKill() bool

	// Accepts reports whether p is the payload variant the kind carries.
	// A nil payload is accepted only by kinds that carry none.
	Accepts(p Payload) bool

	// Destination returns the mailbox the kind is consumed from.
	Destination() Destination

	// Valid reports whether the value is declared in the taxonomy.
	Valid() bool
}

func kindName(names []string, v uint8, prefix string) string {
	if int(v) < len(names) && names[v] != "" {
		return names[v]
	}
	return fmt.Sprintf("%s(%d)", prefix, v)
}
