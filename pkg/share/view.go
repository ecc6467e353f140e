package share

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/marmos91/reportshare/internal/logger"
)

var (
	// ErrViewClosed is returned by Refresh once the view has been closed.
	ErrViewClosed = errors.New("share: view closed")

	// ErrSuperseded is returned by a Refresh whose results were discarded
	// because a newer Refresh started while it was in flight.
	ErrSuperseded = errors.New("share: refresh superseded")
)

// Snapshot is what a view last fetched.
type Snapshot struct {
	SharedByMe   []Grant
	SharedWithMe []Grant
	FetchedAt    time.Time

	// Stale is set when a notification arrived after the last refresh.
	Stale bool
}

// View is a screen-scoped pair of projections for one user. Closing the view
// cancels in-flight fetches and late results are dropped.
type View struct {
	svc    *Service
	userID string
	opts   []ListOption

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	gen    uint64
	snap   Snapshot
	closed bool
}

// NewView creates a view over both projections for userID.
func (s *Service) NewView(userID string, opts ...ListOption) *View {
	ctx, cancel := context.WithCancel(context.Background())
	return &View{
		svc:    s,
		userID: userID,
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Refresh fetches both projections concurrently. The two fetches are
// independent: a failure of one does not cancel the other, and the side that
// succeeded is still applied. The first error is returned.
func (v *View) Refresh(ctx context.Context) (Snapshot, error) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return Snapshot{}, ErrViewClosed
	}
	v.gen++
	gen := v.gen
	v.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(v.ctx, cancel)
	defer stop()

	var (
		by, with       []Grant
		byErr, withErr error
		g              errgroup.Group
	)
	g.Go(func() error {
		by, byErr = v.svc.ListSharedByMe(ctx, v.userID, v.opts...)
		return byErr
	})
	g.Go(func() error {
		with, withErr = v.svc.ListSharedWithMe(ctx, v.userID, v.opts...)
		return withErr
	})
	err := g.Wait()

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return Snapshot{}, ErrViewClosed
	}
	if gen != v.gen {
		logger.Debug("Dropping superseded refresh", logger.UserID(v.userID))
		return v.snap, ErrSuperseded
	}

	if byErr == nil {
		v.snap.SharedByMe = by
	}
	if withErr == nil {
		v.snap.SharedWithMe = with
	}
	if err == nil {
		v.snap.FetchedAt = v.svc.now()
		v.snap.Stale = false
	}
	return v.snap, err
}

// Snapshot returns the last fetched state without touching the network.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snap
}

// MarkStale records that a notification arrived. It never changes the lists;
// the caller decides when to Refresh.
func (v *View) MarkStale() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.closed {
		v.snap.Stale = true
	}
}

// Close cancels in-flight fetches. Results that arrive later are discarded.
// Close is idempotent.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.closed = true
	v.cancel()
}
