package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/aurelio-labs/aiversity/internal/adapter/metrics"
	"github.com/aurelio-labs/aiversity/internal/domain"
)

const (
	commandTimeout   = 5 * time.Second  // how long callers wait for the run loop
	stopTimeout      = 10 * time.Second // graceful shutdown bound
	commandQueueSize = 256
)

var (
	// ErrCommandTimeout means the run loop did not answer in time.
	ErrCommandTimeout = errors.New("relay command timed out")
	// ErrInvalidMessage means a submitted message is not valid JSON.
	ErrInvalidMessage = errors.New("message is not valid JSON")
	// ErrAlreadyRegistered means the connection is already a subscriber.
	ErrAlreadyRegistered = errors.New("connection already registered")
)

// relayCmd is the command interface for the Relay actor.
type relayCmd interface{ isRelayCmd() }

type baseRelayCmd struct{}

func (baseRelayCmd) isRelayCmd() {}

type registerCmd struct {
	baseRelayCmd
	connection Conn
	reply      chan error
}

type unregisterCmd struct {
	baseRelayCmd
	connection Conn
}

type submitCmd struct {
	baseRelayCmd
	data  []byte
	reply chan Receipt
}

type countCmd struct {
	baseRelayCmd
	reply chan int
}

type stopCmd struct {
	baseRelayCmd
}

// Receipt summarizes one fan-out. It is informational only; a submission is
// acknowledged no matter how many subscribers received it.
type Receipt struct {
	Queued  int
	Skipped int
	Failed  int
}

// Relay broadcasts submitted messages to all registered subscribers.
type Relay struct {
	cmdCh        chan relayCmd
	clock        clockwork.Clock
	registry     *registry
	metrics      *metrics.RelayMetrics
	bufferSize   int
	writeTimeout time.Duration
	stopTimeout  time.Duration
	done         chan struct{}
}

// NewRelay starts a relay. bufferSize bounds each subscriber's send queue;
// writeTimeout bounds a single frame write. m may be nil.
func NewRelay(clock clockwork.Clock, bufferSize int, writeTimeout time.Duration, m *metrics.RelayMetrics) *Relay {
	r := &Relay{
		cmdCh:        make(chan relayCmd, commandQueueSize),
		clock:        clock,
		registry:     newRegistry(),
		metrics:      m,
		bufferSize:   bufferSize,
		writeTimeout: writeTimeout,
		stopTimeout:  stopTimeout,
		done:         make(chan struct{}),
	}
	go r.run()
	return r
}

// send enqueues a command, failing if the run loop has exited.
func (r *Relay) send(cmd relayCmd) error {
	select {
	case r.cmdCh <- cmd:
		return nil
	case <-r.done:
		return domain.ErrRelayStopped
	}
}

func await[T any](ctx context.Context, r *Relay, reply <-chan T) (T, error) {
	timer := r.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-timer.Chan():
		return zero, fmt.Errorf("%w after %v", ErrCommandTimeout, commandTimeout)
	case <-r.done:
		return zero, domain.ErrRelayStopped
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Register adds conn as a new subscriber. Every Register must be paired with
// an Unregister once the connection's read loop ends.
func (r *Relay) Register(conn Conn) error {
	reply := make(chan error, 1)
	if err := r.send(registerCmd{connection: conn, reply: reply}); err != nil {
		return err
	}
	err, waitErr := await(context.Background(), r, reply)
	if waitErr != nil {
		return fmt.Errorf("register: %w", waitErr)
	}
	return err
}

// Unregister removes conn and stops its writer. Unknown connections are ignored.
func (r *Relay) Unregister(conn Conn) {
	if err := r.send(unregisterCmd{connection: conn}); err != nil {
		slog.Debug("Unregister after relay stop", "error", err)
	}
}

// Submit serializes message once and queues it for every open subscriber.
// An empty message is broadcast as JSON null.
func (r *Relay) Submit(ctx context.Context, message json.RawMessage) (Receipt, error) {
	data, err := compactMessage(message)
	if err != nil {
		return Receipt{}, err
	}

	reply := make(chan Receipt, 1)
	if err := r.send(submitCmd{data: data, reply: reply}); err != nil {
		return Receipt{}, err
	}
	receipt, err := await(ctx, r, reply)
	if err != nil {
		return Receipt{}, fmt.Errorf("submit: %w", err)
	}
	return receipt, nil
}

// SubscriberCount returns the number of registered subscribers, or -1 if the
// relay did not answer.
func (r *Relay) SubscriberCount() int {
	reply := make(chan int, 1)
	if err := r.send(countCmd{reply: reply}); err != nil {
		return -1
	}
	n, err := await(context.Background(), r, reply)
	if err != nil {
		slog.Warn("SubscriberCount failed", "error", err)
		return -1
	}
	return n
}

// Stop closes every subscriber with a normal-closure frame and ends the run
// loop. It blocks until the loop exits or the stop timeout elapses. Calling
// Stop more than once is safe.
func (r *Relay) Stop() {
	if err := r.send(stopCmd{}); err != nil {
		return
	}

	timeout := r.clock.NewTimer(r.stopTimeout)
	defer timeout.Stop()

	select {
	case <-r.done:
		slog.Info("Relay stopped gracefully")
	case <-timeout.Chan():
		slog.Warn("Relay stop timeout exceeded", "timeout", r.stopTimeout)
	}
}

// Check reports whether the run loop is still serving commands. It backs the
// readiness endpoint.
func (r *Relay) Check(ctx context.Context) error {
	reply := make(chan int, 1)
	if err := r.send(countCmd{reply: reply}); err != nil {
		return err
	}
	_, err := await(ctx, r, reply)
	return err
}

func compactMessage(message json.RawMessage) ([]byte, error) {
	trimmed := bytes.TrimSpace(message)
	if len(trimmed) == 0 {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return buf.Bytes(), nil
}

func (r *Relay) run() {
	defer close(r.done)
	defer func() {
		if p := recover(); p != nil {
			slog.Error("Relay panic recovered", "panic", p)
			r.metrics.Panicked()
			r.closeAll("relay failure")
		}
	}()

	for cmd := range r.cmdCh {
		r.metrics.SetQueueDepth(len(r.cmdCh))

		switch c := cmd.(type) {
		case registerCmd:
			c.reply <- r.handleRegister(c.connection)
		case unregisterCmd:
			r.handleUnregister(c.connection)
		case submitCmd:
			c.reply <- r.handleSubmit(c.data)
		case countCmd:
			c.reply <- r.registry.len()
		case stopCmd:
			r.handleStop()
			return
		default:
			slog.Warn("Relay received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
		}
	}
}

func (r *Relay) handleRegister(conn Conn) error {
	s := newSubscriber(conn, r.clock, r.bufferSize, r.writeTimeout, r.metrics)
	if !r.registry.add(s) {
		s.stop()
		return ErrAlreadyRegistered
	}
	r.metrics.SetSubscribers(r.registry.len())
	slog.Debug("Subscriber registered", "subscriber_id", s.id, "subscribers", r.registry.len())
	return nil
}

func (r *Relay) handleUnregister(conn Conn) {
	s, ok := r.registry.remove(conn)
	if !ok {
		return
	}
	s.stop()
	r.metrics.SetSubscribers(r.registry.len())
	slog.Debug("Subscriber unregistered", "subscriber_id", s.id, "subscribers", r.registry.len())
}

func (r *Relay) handleSubmit(data []byte) Receipt {
	r.metrics.Submitted()

	var receipt Receipt
	receipt.Skipped = r.registry.forEachOpen(func(s *subscriber) {
		if r.pushIsolated(s, data) {
			receipt.Queued++
		} else {
			receipt.Failed++
		}
	})

	for i := 0; i < receipt.Skipped; i++ {
		r.metrics.Push(metrics.PushSkipped)
	}

	slog.Debug("Message broadcast",
		"bytes", len(data),
		"queued", receipt.Queued,
		"skipped", receipt.Skipped,
		"failed", receipt.Failed,
	)
	return receipt
}

// pushIsolated queues data for one subscriber. A panic is contained so the
// remaining subscribers still receive the message.
func (r *Relay) pushIsolated(s *subscriber, data []byte) (ok bool) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("Push panicked", "subscriber_id", s.id, "panic", p)
			r.metrics.Push(metrics.PushPanic)
			ok = false
		}
	}()

	if !s.push(data) {
		slog.Warn("Subscriber send queue full, closing", "subscriber_id", s.id)
		r.metrics.Push(metrics.PushOverflow)
		return false
	}
	r.metrics.Push(metrics.PushQueued)
	return true
}

func (r *Relay) handleStop() {
	n := r.registry.len()
	slog.Info("Relay shutting down", "subscribers", n)
	r.closeAll("Server shutting down")
	slog.Info("Relay shutdown complete", "disconnected_subscribers", n)
}

// closeAll stops every subscriber in parallel so one stuck writer does not
// delay the close frames of the rest.
func (r *Relay) closeAll(reason string) {
	var wg sync.WaitGroup
	for _, s := range r.registry.clear() {
		s := s
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.stopGraceful(reason)
		}()
	}
	wg.Wait()
	r.metrics.SetSubscribers(0)
}
