package bus

import (
	"github.com/sirupsen/logrus"
)

// Poster is the producer side of the bus. Every method is safe for
// concurrent use, never blocks and reports nothing back: a command whose
// payload does not match its kind is logged and abandoned, and a record
// discarded by a mailbox is only visible in the mailbox Stats.
type Poster interface {
	PostToNetwork(kind ToxKind, param1, param2 uint32, payload Payload)
	PostToAudio(kind AudioKind, param1, param2 uint32, payload Payload)
	PostToVideo(kind VideoKind, param1, param2 uint32, payload Payload)
	PostToCallOrchestration(kind ToxAVKind, param1, param2 uint32, payload Payload)
	PostToUI(kind UIEvent, param1, param2 uint32, payload Payload)
}

// Dispatcher owns the five mailboxes of the bus and implements Poster.
type Dispatcher struct {
	network Mailbox[ToxKind]
	audio   Mailbox[AudioKind]
	video   Mailbox[VideoKind]
	toxav   Mailbox[ToxAVKind]
	ui      Mailbox[UIEvent]
}

// NewDispatcher creates the five mailboxes with the given options. A nil
// opts selects NewMailboxOptions. The mailboxes accept posts right away,
// before any consumer runs.
func NewDispatcher(opts *MailboxOptions) *Dispatcher {
	if opts == nil {
		opts = NewMailboxOptions()
	}

	logrus.WithFields(logrus.Fields{
		"function": "NewDispatcher",
		"mode":     opts.Mode.String(),
		"capacity": opts.Capacity,
		"overflow": opts.Overflow.String(),
	}).Info("Creating message bus dispatcher")

	return &Dispatcher{
		network: NewMailbox[ToxKind](DestinationNetwork.String(), opts),
		audio:   NewMailbox[AudioKind](DestinationAudio.String(), opts),
		video:   NewMailbox[VideoKind](DestinationVideo.String(), opts),
		toxav:   NewMailbox[ToxAVKind](DestinationCallOrchestration.String(), opts),
		ui:      NewMailbox[UIEvent](DestinationUI.String(), opts),
	}
}

// PostToNetwork posts a command to the protocol worker.
func (d *Dispatcher) PostToNetwork(kind ToxKind, param1, param2 uint32, payload Payload) {
	post(d.network, kind, param1, param2, payload)
}

// PostToAudio posts a command to the audio worker.
func (d *Dispatcher) PostToAudio(kind AudioKind, param1, param2 uint32, payload Payload) {
	post(d.audio, kind, param1, param2, payload)
}

// PostToVideo posts a command to the video worker.
func (d *Dispatcher) PostToVideo(kind VideoKind, param1, param2 uint32, payload Payload) {
	post(d.video, kind, param1, param2, payload)
}

// PostToCallOrchestration posts a command to the call orchestration worker.
func (d *Dispatcher) PostToCallOrchestration(kind ToxAVKind, param1, param2 uint32, payload Payload) {
	post(d.toxav, kind, param1, param2, payload)
}

// PostToUI posts an event to the UI.
func (d *Dispatcher) PostToUI(kind UIEvent, param1, param2 uint32, payload Payload) {
	post(d.ui, kind, param1, param2, payload)
}

// Network returns the protocol worker mailbox.
func (d *Dispatcher) Network() Mailbox[ToxKind] { return d.network }

// Audio returns the audio worker mailbox.
func (d *Dispatcher) Audio() Mailbox[AudioKind] { return d.audio }

// Video returns the video worker mailbox.
func (d *Dispatcher) Video() Mailbox[VideoKind] { return d.video }

// CallOrchestration returns the call orchestration worker mailbox.
func (d *Dispatcher) CallOrchestration() Mailbox[ToxAVKind] { return d.toxav }

// UI returns the UI event mailbox.
func (d *Dispatcher) UI() Mailbox[UIEvent] { return d.ui }

// Stats returns the counters of every mailbox keyed by destination.
func (d *Dispatcher) Stats() map[Destination]MailboxStats {
	return map[Destination]MailboxStats{
		DestinationNetwork:           d.network.Stats(),
		DestinationAudio:             d.audio.Stats(),
		DestinationVideo:             d.video.Stats(),
		DestinationCallOrchestration: d.toxav.Stats(),
		DestinationUI:                d.ui.Stats(),
	}
}

func post[K Kind](mb Mailbox[K], kind K, param1, param2 uint32, payload Payload) {
	msg, err := NewMessage(kind, param1, param2, payload)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    "Dispatcher.post",
			"destination": kind.Destination().String(),
			"kind":        kind.String(),
			"param1":      param1,
			"param2":      param2,
			"error":       err.Error(),
		}).Error("Abandoning command")
		if r, ok := payload.(Releaser); ok {
			r.Release()
		}
		return
	}

	logrus.WithFields(logrus.Fields{
		"function":    "Dispatcher.post",
		"destination": kind.Destination().String(),
		"kind":        kind.String(),
		"param1":      param1,
		"param2":      param2,
		"msg_id":      msg.ID.String(),
	}).Debug("Posting record")

	mb.Post(msg)
}
