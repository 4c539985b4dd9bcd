// Package directory tracks every connected player: name reservation, room
// presence, chat channel membership, and best-effort line delivery for
// broadcasts. It is the rendezvous point between otherwise independent
// session goroutines.
package directory

import (
	"fmt"
	"sync"
)

// Outbox routes lines pushed by other sessions (broadcasts, tells) to the
// owning session's writer goroutine.
type Outbox struct {
	name   string
	lines  chan string
	mu     sync.Mutex
	closed bool
}

// NewOutbox creates an Outbox for the given player name.
//
// Postcondition: Returns an Outbox with an open lines channel.
func NewOutbox(name string, bufferSize int) *Outbox {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Outbox{
		name:  name,
		lines: make(chan string, bufferSize),
	}
}

// Name returns the owning player's name.
func (o *Outbox) Name() string {
	return o.name
}

// Push enqueues a line for delivery. Delivery is best-effort: a full buffer
// or a closed outbox returns an error and the line is dropped, so a slow
// reader never blocks the sender.
func (o *Outbox) Push(line string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return fmt.Errorf("outbox %s is closed", o.name)
	}
	select {
	case o.lines <- line:
		return nil
	default:
		return fmt.Errorf("outbox %s buffer full", o.name)
	}
}

// Lines returns the read-only delivery channel. The session's writer
// goroutine drains it onto the connection.
func (o *Outbox) Lines() <-chan string {
	return o.lines
}

// Close closes the delivery channel. Further Push calls return an error.
func (o *Outbox) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.closed {
		o.closed = true
		close(o.lines)
	}
	return nil
}

// IsClosed reports whether the outbox has been closed.
func (o *Outbox) IsClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}
