package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrs "github.com/marmos91/reportshare/pkg/errors"
)

type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }

type tokenFunc func(context.Context) (string, error)

func (f tokenFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// pipeConn is a Conn fed through a channel.
type pipeConn struct {
	frames chan Message
	closed chan struct{}
	once   sync.Once
}

func newPipeConn() *pipeConn {
	return &pipeConn{frames: make(chan Message, 16), closed: make(chan struct{})}
}

func (p *pipeConn) Read() (Message, error) {
	select {
	case m := <-p.frames:
		return m, nil
	case <-p.closed:
		return Message{}, io.EOF
	}
}

func (p *pipeConn) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

func (p *pipeConn) send(t *testing.T, event string, data any) {
	t.Helper()
	msg, err := NewMessage(event, data)
	require.NoError(t, err)
	p.frames <- msg
}

// fakeDialer hands out queued connections or errors in order. Once the queue
// is empty every dial fails.
type fakeDialer struct {
	mu      sync.Mutex
	results []any // *pipeConn or error
	dials   atomic.Int32
	tokens  []string
	users   []string
}

func (d *fakeDialer) push(r any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.results = append(d.results, r)
}

func (d *fakeDialer) Dial(_ context.Context, token, userID string) (Conn, error) {
	d.dials.Add(1)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tokens = append(d.tokens, token)
	d.users = append(d.users, userID)
	if len(d.results) == 0 {
		return nil, errors.New("connection refused")
	}
	r := d.results[0]
	d.results = d.results[1:]
	if err, ok := r.(error); ok {
		return nil, err
	}
	return r.(*pipeConn), nil
}

type fakeBusMetrics struct {
	mu         sync.Mutex
	states     []string
	reconnects int
	events     map[string]int
	dropped    int
}

func newFakeBusMetrics() *fakeBusMetrics { return &fakeBusMetrics{events: map[string]int{}} }

func (m *fakeBusMetrics) SetState(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = append(m.states, s)
}

func (m *fakeBusMetrics) ObserveReconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconnects++
}

func (m *fakeBusMetrics) ObserveEvent(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[kind]++
}

func (m *fakeBusMetrics) ObserveDropped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped++
}

func fastBackoff() BackoffConfig {
	return BackoffConfig{Initial: 5 * time.Millisecond, Max: 20 * time.Millisecond, Multiplier: 2}
}

func newTestBus(t *testing.T, dialer Dialer, opts ...func(*Options)) *Bus {
	t.Helper()
	o := Options{Dialer: dialer, Tokens: staticToken("tok"), UserID: "bob", Backoff: fastBackoff()}
	for _, fn := range opts {
		fn(&o)
	}
	bus, err := New(o)
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close() })
	return bus
}

func waitForState(t *testing.T, bus *Bus, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return bus.Status() == want },
		2*time.Second, 5*time.Millisecond, "state %s, want %s", bus.Status(), want)
}

func waitForEvents(t *testing.T, feed *Feed, n int) []Event {
	t.Helper()
	require.Eventually(t, func() bool { return feed.Len() >= n }, 2*time.Second, 5*time.Millisecond)
	return feed.Events()
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := New(Options{Tokens: staticToken("t"), UserID: "bob"})
	assert.True(t, apierrs.IsValidation(err))
	_, err = New(Options{Dialer: &fakeDialer{}, UserID: "bob"})
	assert.True(t, apierrs.IsValidation(err))
	_, err = New(Options{Dialer: &fakeDialer{}, Tokens: staticToken("t")})
	assert.True(t, apierrs.IsValidation(err))
}

func TestBusDeliversEvents(t *testing.T) {
	conn := newPipeConn()
	dialer := &fakeDialer{}
	dialer.push(conn)
	metrics := newFakeBusMetrics()

	bus := newTestBus(t, dialer, func(o *Options) { o.Metrics = metrics })
	require.NoError(t, bus.Start(context.Background()))
	waitForState(t, bus, StateConnected)

	conn.send(t, WireShared, Payload{OwnerID: "Niki002", ReportID: "R1"})
	conn.send(t, WireRevoked, Payload{OwnerID: "Niki002", ReportID: "R1"})

	events := waitForEvents(t, bus.Feed(), 2)
	require.Len(t, events, 2)
	assert.Equal(t, EventShared, events[0].Type)
	assert.Equal(t, "Report shared by Niki002", events[0].Message)
	assert.Equal(t, "R1", events[0].ReportID)
	assert.Equal(t, EventRevoked, events[1].Type)
	assert.Equal(t, "Report revoked by Niki002", events[1].Message)
	assert.NotEqual(t, events[0].ID, events[1].ID)

	assert.Equal(t, []string{"tok"}, dialer.tokens)
	assert.Equal(t, []string{"bob"}, dialer.users)

	metrics.mu.Lock()
	assert.Equal(t, 1, metrics.events[WireShared])
	assert.Equal(t, 1, metrics.events[WireRevoked])
	assert.Contains(t, metrics.states, "connected")
	metrics.mu.Unlock()
}

func TestBusToleratesDuplicates(t *testing.T) {
	conn := newPipeConn()
	dialer := &fakeDialer{}
	dialer.push(conn)

	bus := newTestBus(t, dialer)
	require.NoError(t, bus.Start(context.Background()))
	waitForState(t, bus, StateConnected)

	conn.send(t, WireShared, Payload{OwnerID: "A", ReportID: "R"})
	conn.send(t, WireShared, Payload{OwnerID: "A", ReportID: "R"})

	events := waitForEvents(t, bus.Feed(), 2)
	require.Len(t, events, 2)
	assert.Equal(t, events[0].Message, events[1].Message)
	assert.Equal(t, StateConnected, bus.Status())
}

func TestBusSkipsUnknownAndMalformed(t *testing.T) {
	conn := newPipeConn()
	dialer := &fakeDialer{}
	dialer.push(conn)

	bus := newTestBus(t, dialer)
	require.NoError(t, bus.Start(context.Background()))
	waitForState(t, bus, StateConnected)

	conn.frames <- Message{Event: "report-commented", Data: json.RawMessage(`{"ownerId":"A"}`)}
	conn.frames <- Message{Event: WireShared, Data: json.RawMessage(`"not an object"`)}
	conn.frames <- Message{Event: WireShared, Data: json.RawMessage(`{"reportId":"R"}`)}
	conn.send(t, WireShared, Payload{OwnerID: "A"})

	events := waitForEvents(t, bus.Feed(), 1)
	require.Len(t, events, 1)
	assert.Equal(t, "A", events[0].OwnerID)
	assert.Empty(t, events[0].ReportID)
	assert.Equal(t, StateConnected, bus.Status())
}

func TestBusReconnectsWithBackoff(t *testing.T) {
	first, second := newPipeConn(), newPipeConn()
	dialer := &fakeDialer{}
	dialer.push(first)
	dialer.push(errors.New("connection refused"))
	dialer.push(second)
	metrics := newFakeBusMetrics()

	bus := newTestBus(t, dialer, func(o *Options) { o.Metrics = metrics })
	states, stop := bus.WatchStatus(16)
	defer stop()

	require.NoError(t, bus.Start(context.Background()))
	waitForState(t, bus, StateConnected)

	_ = first.Close()
	require.Eventually(t, func() bool { return dialer.dials.Load() == 3 && bus.Status() == StateConnected },
		2*time.Second, 5*time.Millisecond)
	assert.NoError(t, bus.LastError())

	second.send(t, WireShared, Payload{OwnerID: "Niki002", ReportID: "R1"})
	waitForEvents(t, bus.Feed(), 1)

	var seen []State
	for len(states) > 0 {
		seen = append(seen, <-states)
	}
	assert.Contains(t, seen, StateReconnecting)
	assert.Equal(t, StateConnected, seen[len(seen)-1])

	metrics.mu.Lock()
	assert.Equal(t, 2, metrics.reconnects)
	metrics.mu.Unlock()
}

func TestBusNeverGoesDarkSilently(t *testing.T) {
	dialer := &fakeDialer{}
	bus := newTestBus(t, dialer)
	require.NoError(t, bus.Start(context.Background()))

	waitForState(t, bus, StateReconnecting)
	require.Eventually(t, func() bool { return dialer.dials.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	assert.EqualError(t, bus.LastError(), "connection refused")
}

func TestBusStopsOnAuthError(t *testing.T) {
	t.Run("NoToken", func(t *testing.T) {
		dialer := &fakeDialer{}
		bus := newTestBus(t, dialer, func(o *Options) {
			o.Tokens = tokenFunc(func(context.Context) (string, error) { return "", apierrs.NewNoTokenError() })
		})
		require.NoError(t, bus.Start(context.Background()))

		select {
		case <-bus.Done():
		case <-time.After(2 * time.Second):
			t.Fatal("bus kept running without a token")
		}
		assert.Equal(t, StateDisconnected, bus.Status())
		assert.True(t, apierrs.IsNoToken(bus.LastError()))
		assert.Zero(t, dialer.dials.Load())
	})

	t.Run("Rejected", func(t *testing.T) {
		dialer := &fakeDialer{}
		dialer.push(apierrs.NewRejectedError(401, "bad token"))
		bus := newTestBus(t, dialer)
		require.NoError(t, bus.Start(context.Background()))

		<-bus.Done()
		assert.Equal(t, StateDisconnected, bus.Status())
		assert.True(t, apierrs.IsAuth(bus.LastError()))
		assert.Equal(t, int32(1), dialer.dials.Load())
	})
}

func TestBusClose(t *testing.T) {
	conn := newPipeConn()
	dialer := &fakeDialer{}
	dialer.push(conn)

	bus := newTestBus(t, dialer)
	sub := bus.Feed().Subscribe(4)
	states, _ := bus.WatchStatus(8)

	require.NoError(t, bus.Start(context.Background()))
	waitForState(t, bus, StateConnected)

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())
	assert.Equal(t, StateDisconnected, bus.Status())

	_, open := <-sub.C()
	assert.False(t, open, "subscriptions close with the bus")
	for range states {
	}

	select {
	case <-conn.closed:
	default:
		t.Fatal("connection left open")
	}

	assert.Error(t, bus.Start(context.Background()))
}

func TestBusCloseWithoutStart(t *testing.T) {
	bus := newTestBus(t, &fakeDialer{})
	require.NoError(t, bus.Close())
	<-bus.Done()

	states, stop := bus.WatchStatus(1)
	defer stop()
	assert.Equal(t, StateDisconnected, <-states)
}

func TestBusStartTwice(t *testing.T) {
	dialer := &fakeDialer{}
	dialer.push(newPipeConn())
	bus := newTestBus(t, dialer)
	require.NoError(t, bus.Start(context.Background()))
	assert.Error(t, bus.Start(context.Background()))
}

func TestBusStopsWithContext(t *testing.T) {
	dialer := &fakeDialer{}
	dialer.push(newPipeConn())
	bus := newTestBus(t, dialer)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, bus.Start(ctx))
	waitForState(t, bus, StateConnected)

	cancel()
	<-bus.Done()
	assert.Equal(t, StateDisconnected, bus.Status())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "reconnecting", StateReconnecting.String())
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "unknown", State(42).String())
}

func TestBackoffConfig(t *testing.T) {
	b := BackoffConfig{}.newBackOff()
	assert.Equal(t, time.Second, b.InitialInterval)
	assert.Equal(t, 30*time.Second, b.MaxInterval)
	assert.Equal(t, 2.0, b.Multiplier)
	assert.Zero(t, b.MaxElapsedTime)

	b = BackoffConfig{Initial: 10 * time.Millisecond, Max: 40 * time.Millisecond, Multiplier: 2}.newBackOff()
	assert.Equal(t, 10*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 20*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 40*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 40*time.Millisecond, b.NextBackOff())
}

func TestReadErrorMapsRefusalToRejected(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		rejected bool
		status   int
	}{
		{"policy violation", &websocket.CloseError{Code: websocket.ClosePolicyViolation, Text: "subscription does not match token"}, true, 401},
		{"unauthorized", &websocket.CloseError{Code: closeUnauthorized}, true, 401},
		{"forbidden", &websocket.CloseError{Code: closeForbidden}, true, 403},
		{"going away", &websocket.CloseError{Code: websocket.CloseGoingAway}, false, 0},
		{"plain io", io.ErrUnexpectedEOF, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := readError(tt.err)
			if !tt.rejected {
				assert.Same(t, tt.err, err)
				return
			}
			e, ok := apierrs.As(err)
			require.True(t, ok)
			assert.Equal(t, apierrs.ReasonRejected, e.Reason)
			assert.Equal(t, tt.status, e.Status)
		})
	}
}
