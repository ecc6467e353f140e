// Package notify keeps the push channel that tells a signed-in user about
// report shares and revocations.
//
// A Bus owns one connection for one user. Incoming report-shared and
// report-revoked events are appended to a Feed with a rendered message.
// Delivery is at most once per hop and duplicates are appended as they
// arrive; the feed is advisory and never changes grant state.
//
// When the connection drops the bus reconnects with exponential backoff and
// reports its state through Status and WatchStatus. It stops only when closed
// or when the session token is missing or rejected.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/marmos91/reportshare/internal/logger"
	"github.com/marmos91/reportshare/internal/telemetry"
	apierrs "github.com/marmos91/reportshare/pkg/errors"
	"github.com/marmos91/reportshare/pkg/metrics"
)

// State is the connection state of a bus.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Conn is one established push connection.
type Conn interface {
	// Read blocks until the next frame arrives. Frames that cannot be
	// decoded are skipped by the implementation.
	Read() (Message, error)

	// Close tears the connection down and unblocks Read.
	Close() error
}

// Dialer opens push connections. Dial must subscribe the connection to
// userID before returning.
type Dialer interface {
	Dial(ctx context.Context, token, userID string) (Conn, error)
}

// TokenSource resolves the session token. *session.Store implements it.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Metrics observes the bus. A nil Metrics disables collection.
type Metrics = metrics.BusMetrics

// BackoffConfig shapes the reconnect delay.
type BackoffConfig struct {
	Initial    time.Duration `mapstructure:"initial" validate:"gte=0" yaml:"initial"`
	Max        time.Duration `mapstructure:"max" validate:"gte=0" yaml:"max"`
	Multiplier float64       `mapstructure:"multiplier" validate:"omitempty,gte=1" yaml:"multiplier"`
	Jitter     float64       `mapstructure:"jitter" validate:"gte=0,lte=1" yaml:"jitter"`
}

// DefaultBackoff starts at one second and doubles up to thirty.
func DefaultBackoff() BackoffConfig {
	return BackoffConfig{
		Initial:    time.Second,
		Max:        30 * time.Second,
		Multiplier: 2,
		Jitter:     0.2,
	}
}

func (c BackoffConfig) newBackOff() *backoff.ExponentialBackOff {
	def := DefaultBackoff()
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = def.Initial
	b.MaxInterval = def.Max
	b.Multiplier = def.Multiplier
	b.RandomizationFactor = c.Jitter
	if c.Initial > 0 {
		b.InitialInterval = c.Initial
	}
	if c.Max > 0 {
		b.MaxInterval = c.Max
	}
	if c.Multiplier >= 1 {
		b.Multiplier = c.Multiplier
	}
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Options configures a Bus.
type Options struct {
	Dialer Dialer
	Tokens TokenSource
	UserID string

	Backoff  BackoffConfig
	FeedSize int
	Metrics  Metrics

	// Now stamps received events. Defaults to time.Now.
	Now func() time.Time
}

// Bus is the per-session push channel.
type Bus struct {
	opts Options
	feed *Feed

	state atomic.Int32

	mu       sync.Mutex
	lastErr  error
	watchers map[chan State]struct{}
	cancel   context.CancelFunc
	done     chan struct{}
	started  bool
	closed   bool
}

// New creates a bus for one user. It does not connect until Start.
func New(opts Options) (*Bus, error) {
	switch {
	case opts.Dialer == nil:
		return nil, apierrs.NewValidationError("notify: dialer is required")
	case opts.Tokens == nil:
		return nil, apierrs.NewValidationError("notify: token source is required")
	case opts.UserID == "":
		return nil, apierrs.NewValidationError("notify: userId is required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	feed := NewFeed(opts.FeedSize)
	if opts.Metrics != nil {
		feed.onDrop = opts.Metrics.ObserveDropped
	}

	b := &Bus{
		opts:     opts,
		feed:     feed,
		watchers: make(map[chan State]struct{}),
		done:     make(chan struct{}),
	}
	b.state.Store(int32(StateDisconnected))
	return b, nil
}

// UserID returns the user the bus is scoped to.
func (b *Bus) UserID() string {
	return b.opts.UserID
}

// Feed returns the event feed.
func (b *Bus) Feed() *Feed {
	return b.feed
}

// Status returns the current connection state.
func (b *Bus) Status() State {
	return State(b.state.Load())
}

// LastError returns the error that caused the last disconnect, or nil once
// connected again.
func (b *Bus) LastError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

// Done is closed when the connection loop has exited.
func (b *Bus) Done() <-chan struct{} {
	return b.done
}

// WatchStatus returns a channel receiving every state change and a function
// that stops watching. Changes are dropped for a watcher whose buffer is
// full.
func (b *Bus) WatchStatus(buffer int) (<-chan State, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan State, buffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		ch <- StateDisconnected
		close(ch)
		return ch, func() {}
	}
	b.watchers[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.watchers[ch]; ok {
				delete(b.watchers, ch)
				close(ch)
			}
		})
	}
}

// Start connects in the background. The bus runs until Close or until ctx
// is done. A bus can be started once.
func (b *Bus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return errors.New("notify: bus closed")
	}
	if b.started {
		return errors.New("notify: bus already started")
	}
	b.started = true

	ctx, b.cancel = context.WithCancel(ctx)
	go b.run(ctx)
	return nil
}

// Close stops the bus, waits for the connection loop to exit and closes
// every feed subscription and status watcher. It is idempotent.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	started := b.started
	if b.cancel != nil {
		b.cancel()
	}
	b.mu.Unlock()

	if started {
		<-b.done
	} else {
		close(b.done)
	}

	b.setState(StateDisconnected)
	b.feed.Close()

	b.mu.Lock()
	for ch := range b.watchers {
		close(ch)
	}
	b.watchers = map[chan State]struct{}{}
	b.mu.Unlock()

	logger.Debug("Push channel closed", logger.UserID(b.opts.UserID))
	return nil
}

func (b *Bus) run(ctx context.Context) {
	defer close(b.done)

	bo := b.opts.Backoff.newBackOff()
	b.setState(StateConnecting)

	for attempt := 1; ; attempt++ {
		err := b.session(ctx, attempt, bo)
		if ctx.Err() != nil {
			b.setState(StateDisconnected)
			return
		}
		b.setLastError(err)

		if apierrs.IsAuth(err) {
			logger.Warn("Push channel stopped, sign in again",
				logger.UserID(b.opts.UserID), logger.Err(err))
			b.setState(StateDisconnected)
			return
		}

		wait := bo.NextBackOff()
		if wait == backoff.Stop {
			wait = bo.MaxInterval
		}
		b.setState(StateReconnecting)
		if b.opts.Metrics != nil {
			b.opts.Metrics.ObserveReconnect()
		}
		logger.Warn("Push channel lost, reconnecting",
			logger.UserID(b.opts.UserID), logger.Attempt(attempt), logger.Backoff(wait), logger.Err(err))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			b.setState(StateDisconnected)
			return
		case <-timer.C:
		}
	}
}

// session dials once and reads until the connection fails.
func (b *Bus) session(ctx context.Context, attempt int, bo *backoff.ExponentialBackOff) error {
	token, err := b.opts.Tokens.Token(ctx)
	if err != nil {
		return err
	}

	dialCtx, span := telemetry.StartNotifySpan(ctx, "connect",
		telemetry.UserID(b.opts.UserID), telemetry.Attempt(attempt))
	conn, err := b.opts.Dialer.Dial(dialCtx, token, b.opts.UserID)
	if err != nil {
		telemetry.RecordError(dialCtx, err)
		span.End()
		return err
	}
	telemetry.AddEvent(dialCtx, "connected", telemetry.State(StateConnected.String()))
	span.End()

	bo.Reset()
	b.setLastError(nil)
	b.setState(StateConnected)
	logger.Info("Push channel connected", logger.UserID(b.opts.UserID), logger.Attempt(attempt))

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer func() { _ = conn.Close() }()

	for {
		msg, err := conn.Read()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if apierrs.IsAuth(err) {
				return err
			}
			return apierrs.NewNetworkError("read push channel", err)
		}
		b.handle(msg)
	}
}

// handle appends a known event to the feed. Unknown events and malformed
// payloads are logged and skipped.
func (b *Bus) handle(msg Message) {
	typ, ok := typeOfWire(msg.Event)
	if !ok {
		logger.Debug("Ignoring push message", logger.Event(msg.Event))
		return
	}

	var p Payload
	if err := json.Unmarshal(msg.Data, &p); err != nil || p.OwnerID == "" {
		logger.Warn("Malformed push payload", logger.Event(msg.Event), logger.Err(err))
		return
	}

	ev := NewEvent(typ, p.OwnerID, p.ReportID, b.opts.Now())
	b.feed.Append(ev)
	if b.opts.Metrics != nil {
		b.opts.Metrics.ObserveEvent(msg.Event)
	}
	logger.Info("Notification received",
		logger.Event(msg.Event), logger.OwnerID(p.OwnerID), logger.ReportID(p.ReportID))
}

func (b *Bus) setLastError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastErr = err
}

func (b *Bus) setState(s State) {
	if State(b.state.Swap(int32(s))) == s {
		return
	}
	if b.opts.Metrics != nil {
		b.opts.Metrics.SetState(s.String())
	}
	logger.Debug("Push channel state", logger.KeyState, s.String())

	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.watchers {
		select {
		case ch <- s:
		default:
		}
	}
}
