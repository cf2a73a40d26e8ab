package rtmsg

import (
	"errors"
	"sync"
)

// ErrClosed is returned by RecvNotification once Close has been called
// and every buffered notification has been drained.
var ErrClosed = errors.New("rtmsg: communicator closed")

// ChannelCommunicator is an in-process Communicator backed by Go
// channels: one FIFO job queue per runner (spec.md §5 ordering guarantee
// (a)) and one shared notification channel. It exists for single-process
// testing and for a single-machine multi-goroutine runner pool; a
// networked deployment implements Communicator over its own transport.
type ChannelCommunicator struct {
	mu       sync.Mutex
	jobs     map[uint32]chan JobMessage
	notify   chan Notification
	closed   chan struct{}
	closeErr error
	jobDepth int
}

// NewChannelCommunicator returns a ChannelCommunicator with jobQueueDepth
// buffered slots per runner and notifyDepth buffered notification slots.
func NewChannelCommunicator(jobQueueDepth, notifyDepth int) *ChannelCommunicator {
	c := &ChannelCommunicator{
		jobs:   make(map[uint32]chan JobMessage),
		notify: make(chan Notification, notifyDepth),
		closed: make(chan struct{}),
	}
	c.jobDepth = jobQueueDepth
	return c
}

func (c *ChannelCommunicator) jobQueue(runnerIx uint32, depth int) chan JobMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, ok := c.jobs[runnerIx]
	if !ok {
		q = make(chan JobMessage, depth)
		c.jobs[runnerIx] = q
	}
	return q
}

// JobQueue exposes runnerIx's inbound job channel so a runner goroutine
// can range over it; it is created lazily on first use by either side.
func (c *ChannelCommunicator) JobQueue(runnerIx uint32) <-chan JobMessage {
	return c.jobQueue(runnerIx, c.jobDepth)
}

// SendJob implements Communicator.
func (c *ChannelCommunicator) SendJob(runnerIx uint32, msg JobMessage) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}
	c.jobQueue(runnerIx, c.jobDepth) <- msg
	return nil
}

// Notify pushes a Notification from a runner back to the orchestrator.
func (c *ChannelCommunicator) Notify(n Notification) error {
	select {
	case <-c.closed:
		return ErrClosed
	case c.notify <- n:
		return nil
	}
}

// RecvNotification implements Communicator.
func (c *ChannelCommunicator) RecvNotification() (Notification, error) {
	select {
	case n := <-c.notify:
		return n, nil
	case <-c.closed:
		select {
		case n := <-c.notify:
			return n, nil
		default:
			return Notification{}, ErrClosed
		}
	}
}

// Close stops accepting new jobs/notifications; buffered notifications
// already queued are still delivered by RecvNotification.
func (c *ChannelCommunicator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}
}
