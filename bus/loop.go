package bus

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Handler performs the action of every kind of one taxonomy. Handle runs
// on the loop goroutine only; it may block, which delays that worker and no
// other. It returns ErrUnknownKind (possibly wrapped) for a kind it does
// not know.
type Handler[K Kind] interface {
	Handle(ctx context.Context, msg Message[K]) error

	// Teardown releases the resources of the worker. It runs once, on the
	// loop goroutine, after the kill kind was taken or ctx was cancelled.
	Teardown()
}

// Ticker is implemented by handlers that also need periodic work, such as
// iterating the protocol engine or capturing media frames.
type Ticker interface {
	Interval() time.Duration
	Tick(ctx context.Context)
}

// HandlerFunc adapts a function to Handler with an empty Teardown.
type HandlerFunc[K Kind] func(ctx context.Context, msg Message[K]) error

// Handle calls f.
func (f HandlerFunc[K]) Handle(ctx context.Context, msg Message[K]) error { return f(ctx, msg) }

// Teardown does nothing.
func (HandlerFunc[K]) Teardown() {}

// Loop is the consumer of one mailbox. It takes records one at a time,
// hands them to its Handler and releases them afterwards.
type Loop[K Kind] struct {
	name    string
	mailbox Mailbox[K]
	handler Handler[K]

	started atomic.Bool
	done    chan struct{}

	handled atomic.Uint64
	failed  atomic.Uint64
}

// NewLoop creates a loop draining mailbox into handler.
func NewLoop[K Kind](name string, mailbox Mailbox[K], handler Handler[K]) *Loop[K] {
	return &Loop[K]{
		name:    name,
		mailbox: mailbox,
		handler: handler,
		done:    make(chan struct{}),
	}
}

// Name returns the worker name used in logs.
func (l *Loop[K]) Name() string { return l.name }

// Run drains the mailbox until the kill kind is taken or ctx is cancelled,
// then runs the handler Teardown, closes the mailbox and returns. Records
// posted before Run started are processed. Run may be called only once.
func (l *Loop[K]) Run(ctx context.Context) error {
	if !l.started.CompareAndSwap(false, true) {
		return fmt.Errorf("%s: %w", l.name, ErrAlreadyRunning)
	}
	defer close(l.done)

	logrus.WithFields(logrus.Fields{
		"function": "Loop.Run",
		"worker":   l.name,
	}).Info("Worker loop started")

	var tick <-chan time.Time
	ticker, _ := l.handler.(Ticker)
	if ticker != nil && ticker.Interval() > 0 {
		t := time.NewTicker(ticker.Interval())
		defer t.Stop()
		tick = t.C
	}

	reason := "kill"
	for !l.drain(ctx) {
		select {
		case <-ctx.Done():
			reason = "context cancelled"
		case <-l.mailbox.Ready():
			continue
		case <-tick:
			ticker.Tick(ctx)
			continue
		}
		break
	}

	l.handler.Teardown()
	l.mailbox.Close()

	logrus.WithFields(logrus.Fields{
		"function": "Loop.Run",
		"worker":   l.name,
		"reason":   reason,
		"handled":  l.handled.Load(),
		"failed":   l.failed.Load(),
	}).Info("Worker loop terminated")
	return nil
}

// drain handles every pending record and reports whether the kill kind was
// taken.
func (l *Loop[K]) drain(ctx context.Context) bool {
	for {
		msg, ok := l.mailbox.Take()
		if !ok {
			return false
		}
		if msg.Kind.IsKill() {
			logrus.WithFields(logrus.Fields{
				"function": "Loop.drain",
				"worker":   l.name,
				"msg_id":   msg.ID.String(),
			}).Info("Kill received")
			msg.Release()
			return true
		}
		l.dispatch(ctx, msg)
	}
}

func (l *Loop[K]) dispatch(ctx context.Context, msg Message[K]) {
	defer msg.Release()
	defer func() {
		if r := recover(); r != nil {
			l.failed.Add(1)
			logrus.WithFields(logrus.Fields{
				"function": "Loop.dispatch",
				"worker":   l.name,
				"kind":     msg.Kind.String(),
				"msg_id":   msg.ID.String(),
				"panic":    fmt.Sprint(r),
			}).Error("Handler panicked, record dropped")
		}
	}()

	logrus.WithFields(logrus.Fields{
		"function": "Loop.dispatch",
		"worker":   l.name,
		"kind":     msg.Kind.String(),
		"param1":   msg.Param1,
		"param2":   msg.Param2,
		"msg_id":   msg.ID.String(),
	}).Debug("Handling record")

	err := l.handler.Handle(ctx, msg)
	l.handled.Add(1)
	if err == nil {
		return
	}
	l.failed.Add(1)

	entry := logrus.WithFields(logrus.Fields{
		"function": "Loop.dispatch",
		"worker":   l.name,
		"kind":     msg.Kind.String(),
		"param1":   msg.Param1,
		"param2":   msg.Param2,
		"msg_id":   msg.ID.String(),
		"error":    err.Error(),
	})
	if errors.Is(err, ErrUnknownKind) {
		entry.Warn("Ignoring unknown kind")
		return
	}
	entry.Error("Handler failed")
}

// Done is closed when Run has returned.
func (l *Loop[K]) Done() <-chan struct{} {
	return l.done
}

// Join waits up to timeout for Run to return.
func (l *Loop[K]) Join(timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-l.done:
		return nil
	case <-timer.C:
		return fmt.Errorf("%s: %w", l.name, ErrJoinTimeout)
	}
}

// Handled returns the number of records handed to the handler.
func (l *Loop[K]) Handled() uint64 { return l.handled.Load() }

// Failed returns the number of records whose handler returned an error or
// panicked.
func (l *Loop[K]) Failed() uint64 { return l.failed.Load() }
