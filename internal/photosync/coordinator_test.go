package photosync_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/frameline/meetups-backend/internal/models"
	"github.com/frameline/meetups-backend/internal/photosync"
)

type fakeLog struct {
	mu        sync.Mutex
	events    map[uuid.UUID][]models.PhotoEvent
	appendErr error
	appends   int
}

func newFakeLog() *fakeLog {
	return &fakeLog{events: make(map[uuid.UUID][]models.PhotoEvent)}
}

func (f *fakeLog) Append(ctx context.Context, ev *models.PhotoEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appends++
	if f.appendErr != nil {
		return f.appendErr
	}
	ev.ID = int64(len(f.events[ev.SessionID]) + 1)
	f.events[ev.SessionID] = append(f.events[ev.SessionID], *ev)
	return nil
}

func (f *fakeLog) EventsFor(ctx context.Context, sessionID uuid.UUID) ([]models.PhotoEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.PhotoEvent, len(f.events[sessionID]))
	copy(out, f.events[sessionID])
	return out, nil
}

func (f *fakeLog) appendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.appends
}

type fakeSessions struct {
	mu      sync.Mutex
	latest  *models.Session
	err     error
	gate    chan struct{} // when set, first call blocks until gate closes
	entered chan struct{}
	calls   int
}

func (f *fakeSessions) LatestFor(ctx context.Context, meetupID string) (*models.Session, error) {
	f.mu.Lock()
	f.calls++
	first := f.calls == 1
	gate, entered := f.gate, f.entered
	latest, err := f.latest, f.err
	f.mu.Unlock()
	if first && gate != nil {
		if entered != nil {
			close(entered)
		}
		<-gate
	}
	return latest, err
}

type fakeBroadcaster struct {
	mu       sync.Mutex
	messages []photosync.SyncMessage
}

func (f *fakeBroadcaster) Publish(meetupID, event string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := payload.(photosync.SyncMessage); ok {
		f.messages = append(f.messages, msg)
	}
}

func (f *fakeBroadcaster) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func newCoordinator(t *testing.T, log photosync.EventLog, sessions photosync.SessionFinder, b *fakeBroadcaster) *photosync.Coordinator {
	t.Helper()
	return photosync.NewCoordinator("user-a", "meetup-1", 12, log, sessions, b, nil)
}

func TestNavigateToUpdatesIndexImmediately(t *testing.T) {
	log := newFakeLog()
	b := &fakeBroadcaster{}
	c := newCoordinator(t, log, &fakeSessions{}, b)
	c.SetSession(uuid.New())

	if err := c.NavigateTo("photo-5", 5); err != nil {
		t.Fatalf("NavigateTo: %v", err)
	}
	if got := c.CurrentIndex(); got != 5 {
		t.Fatalf("index after navigate = %d, want 5", got)
	}
	c.Wait()
	if got := b.count(); got != 1 {
		t.Fatalf("broadcasts = %d, want 1", got)
	}
	if got := log.appendCount(); got != 1 {
		t.Fatalf("appends = %d, want 1", got)
	}
}

func TestNavigateToValidation(t *testing.T) {
	c := newCoordinator(t, newFakeLog(), &fakeSessions{}, &fakeBroadcaster{})
	c.SetSession(uuid.New())

	var verr *photosync.ValidationError
	if err := c.NavigateTo("", 3); !errors.As(err, &verr) {
		t.Fatalf("empty photo id: got %v, want ValidationError", err)
	}
	if err := c.NavigateTo("photo-99", 12); !errors.As(err, &verr) {
		t.Fatalf("index == photoCount: got %v, want ValidationError", err)
	}
	if err := c.NavigateTo("photo-99", -1); !errors.As(err, &verr) {
		t.Fatalf("negative index: got %v, want ValidationError", err)
	}
	if got := c.CurrentIndex(); got != 0 {
		t.Fatalf("index after rejected navigations = %d, want 0", got)
	}
}

func TestNavigateToWithoutSession(t *testing.T) {
	c := newCoordinator(t, newFakeLog(), &fakeSessions{}, &fakeBroadcaster{})
	if err := c.NavigateTo("photo-1", 1); !errors.Is(err, photosync.ErrNoActiveSession) {
		t.Fatalf("got %v, want ErrNoActiveSession", err)
	}
}

func TestNavigateToKeepsStateWhenAppendRejected(t *testing.T) {
	log := newFakeLog()
	log.appendErr = photosync.ErrUnknownSession
	c := newCoordinator(t, log, &fakeSessions{}, &fakeBroadcaster{})
	c.SetSession(uuid.New())

	if err := c.NavigateTo("photo-7", 7); err != nil {
		t.Fatalf("NavigateTo: %v", err)
	}
	c.Wait()

	if got := c.CurrentIndex(); got != 7 {
		t.Fatalf("index after failed persist = %d, want 7", got)
	}
	// Unknown-session rejections are client errors; no retry.
	if got := log.appendCount(); got != 1 {
		t.Fatalf("appends = %d, want 1", got)
	}
}

func TestOnRemoteNavigation(t *testing.T) {
	c := newCoordinator(t, newFakeLog(), &fakeSessions{}, &fakeBroadcaster{})
	c.SetSession(uuid.New())
	if err := c.NavigateTo("photo-4", 4); err != nil {
		t.Fatalf("NavigateTo: %v", err)
	}
	c.Wait()

	// Own echo is ignored.
	if c.OnRemoteNavigation(&photosync.SyncMessage{Type: photosync.EventNavigatePhoto, PhotoID: "photo-9", PhotoIndex: 9, NavigatorID: "user-a"}) {
		t.Fatal("own echo was applied")
	}
	// Malformed and out-of-range messages are dropped silently.
	if c.OnRemoteNavigation(&photosync.SyncMessage{Type: "other", PhotoID: "photo-9", PhotoIndex: 9, NavigatorID: "user-b"}) {
		t.Fatal("wrong type was applied")
	}
	if c.OnRemoteNavigation(&photosync.SyncMessage{Type: photosync.EventNavigatePhoto, PhotoID: "", PhotoIndex: 9, NavigatorID: "user-b"}) {
		t.Fatal("empty photo id was applied")
	}
	if c.OnRemoteNavigation(&photosync.SyncMessage{Type: photosync.EventNavigatePhoto, PhotoID: "photo-x", PhotoIndex: 12, NavigatorID: "user-b"}) {
		t.Fatal("out-of-range index was applied")
	}
	if got := c.CurrentIndex(); got != 4 {
		t.Fatalf("index after dropped messages = %d, want 4", got)
	}

	// A valid remote navigation overwrites unconditionally, even backwards.
	if !c.OnRemoteNavigation(&photosync.SyncMessage{Type: photosync.EventNavigatePhoto, PhotoID: "photo-2", PhotoIndex: 2, NavigatorID: "user-b", Timestamp: 1}) {
		t.Fatal("valid remote navigation was not applied")
	}
	if got := c.CurrentIndex(); got != 2 {
		t.Fatalf("index after remote navigation = %d, want 2", got)
	}
}

func TestReconcileOnJoinReplaysLatestSession(t *testing.T) {
	log := newFakeLog()
	sess := &models.Session{ID: uuid.New(), MeetupID: "meetup-1", StartedAtMs: 1000}
	sessions := &fakeSessions{latest: sess}

	// Receipt order decides; the client timestamps deliberately disagree.
	for i, ev := range []models.PhotoEvent{
		{PhotoIndex: 2, PhotoID: "photo-2", TimestampMs: 900},
		{PhotoIndex: 5, PhotoID: "photo-5", TimestampMs: 300},
		{PhotoIndex: 1, PhotoID: "photo-1", TimestampMs: 600},
	} {
		ev.SessionID = sess.ID
		ev.ID = int64(i + 1)
		log.events[sess.ID] = append(log.events[sess.ID], ev)
	}

	c := newCoordinator(t, log, sessions, &fakeBroadcaster{})
	idx, err := c.ReconcileOnJoin(context.Background(), "meetup-1")
	if err != nil {
		t.Fatalf("ReconcileOnJoin: %v", err)
	}
	if idx != 1 {
		t.Fatalf("reconciled index = %d, want 1", idx)
	}
	if got := c.CurrentIndex(); got != 1 {
		t.Fatalf("CurrentIndex = %d, want 1", got)
	}

	// The reconciled session is bound: navigation now persists against it.
	if err := c.NavigateTo("photo-3", 3); err != nil {
		t.Fatalf("NavigateTo after reconcile: %v", err)
	}
	c.Wait()
	events, _ := log.EventsFor(context.Background(), sess.ID)
	if got := len(events); got != 4 {
		t.Fatalf("events after navigate = %d, want 4", got)
	}
}

func TestReconcileOnJoinEmptyLog(t *testing.T) {
	sess := &models.Session{ID: uuid.New(), MeetupID: "meetup-1"}
	c := newCoordinator(t, newFakeLog(), &fakeSessions{latest: sess}, &fakeBroadcaster{})

	idx, err := c.ReconcileOnJoin(context.Background(), "meetup-1")
	if err != nil {
		t.Fatalf("ReconcileOnJoin: %v", err)
	}
	if idx != 0 {
		t.Fatalf("reconciled index = %d, want 0", idx)
	}
}

func TestReconcileOnJoinNoSession(t *testing.T) {
	c := newCoordinator(t, newFakeLog(), &fakeSessions{}, &fakeBroadcaster{})

	idx, err := c.ReconcileOnJoin(context.Background(), "meetup-1")
	if err != nil {
		t.Fatalf("ReconcileOnJoin: %v", err)
	}
	if idx != 0 {
		t.Fatalf("reconciled index = %d, want 0", idx)
	}
	// Still no session bound.
	if err := c.NavigateTo("photo-1", 1); !errors.Is(err, photosync.ErrNoActiveSession) {
		t.Fatalf("got %v, want ErrNoActiveSession", err)
	}
}

func TestReconcileOnJoinFailureFallsBackToZero(t *testing.T) {
	sessions := &fakeSessions{err: errors.New("db down")}
	c := newCoordinator(t, newFakeLog(), sessions, &fakeBroadcaster{})
	c.SetSession(uuid.New())
	if err := c.NavigateTo("photo-6", 6); err != nil {
		t.Fatalf("NavigateTo: %v", err)
	}
	c.Wait()

	idx, err := c.ReconcileOnJoin(context.Background(), "meetup-1")
	if err == nil {
		t.Fatal("expected error from failed reconcile")
	}
	if idx != 0 {
		t.Fatalf("fallback index = %d, want 0", idx)
	}
	if got := c.CurrentIndex(); got != 0 {
		t.Fatalf("CurrentIndex after failed reconcile = %d, want 0", got)
	}
}

func TestReconcileOnJoinLastCallWins(t *testing.T) {
	sessA := &models.Session{ID: uuid.New(), MeetupID: "meetup-1", StartedAtMs: 1000}
	log := newFakeLog()
	log.events[sessA.ID] = []models.PhotoEvent{
		{ID: 1, SessionID: sessA.ID, PhotoID: "photo-8", PhotoIndex: 8},
	}

	sessions := &fakeSessions{
		latest:  sessA,
		gate:    make(chan struct{}),
		entered: make(chan struct{}),
	}
	c := newCoordinator(t, log, sessions, &fakeBroadcaster{})

	// First reconcile blocks inside the session lookup.
	firstDone := make(chan int, 1)
	go func() {
		idx, _ := c.ReconcileOnJoin(context.Background(), "meetup-1")
		firstDone <- idx
	}()
	<-sessions.entered

	// Second reconcile finishes while the first is stalled; the log has
	// grown in the meantime.
	log.mu.Lock()
	log.events[sessA.ID] = append(log.events[sessA.ID],
		models.PhotoEvent{ID: 2, SessionID: sessA.ID, PhotoID: "photo-3", PhotoIndex: 3})
	log.mu.Unlock()
	idx, err := c.ReconcileOnJoin(context.Background(), "meetup-1")
	if err != nil {
		t.Fatalf("second ReconcileOnJoin: %v", err)
	}
	if idx != 3 {
		t.Fatalf("second reconcile index = %d, want 3", idx)
	}

	// Unblock the first call; its stale result must not clobber the second's.
	close(sessions.gate)
	select {
	case got := <-firstDone:
		if got != 3 {
			t.Fatalf("stale reconcile returned %d, want 3", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("first reconcile did not finish")
	}
	if got := c.CurrentIndex(); got != 3 {
		t.Fatalf("CurrentIndex after overlapping reconciles = %d, want 3", got)
	}
}

// gatedLog stalls the first replay just before it returns, so a newer
// reconcile can run to completion right up against the stale one's write.
type gatedLog struct {
	*fakeLog
	gate     chan struct{}
	entered  chan struct{}
	firstErr error

	callMu sync.Mutex
	calls  int
}

func (g *gatedLog) EventsFor(ctx context.Context, sessionID uuid.UUID) ([]models.PhotoEvent, error) {
	g.callMu.Lock()
	g.calls++
	first := g.calls == 1
	g.callMu.Unlock()
	if first {
		close(g.entered)
		<-g.gate
		if g.firstErr != nil {
			return nil, g.firstErr
		}
	}
	return g.fakeLog.EventsFor(ctx, sessionID)
}

func TestReconcileOnJoinStaleFailureKeepsNewerResult(t *testing.T) {
	sess := &models.Session{ID: uuid.New(), MeetupID: "meetup-1", StartedAtMs: 1000}
	base := newFakeLog()
	base.events[sess.ID] = []models.PhotoEvent{
		{ID: 1, SessionID: sess.ID, PhotoID: "photo-3", PhotoIndex: 3},
	}
	log := &gatedLog{
		fakeLog:  base,
		gate:     make(chan struct{}),
		entered:  make(chan struct{}),
		firstErr: errors.New("replay timeout"),
	}
	c := newCoordinator(t, log, &fakeSessions{latest: sess}, &fakeBroadcaster{})

	// First reconcile stalls inside the replay and will eventually fail.
	type result struct {
		idx int
		err error
	}
	firstDone := make(chan result, 1)
	go func() {
		idx, err := c.ReconcileOnJoin(context.Background(), "meetup-1")
		firstDone <- result{idx, err}
	}()
	<-log.entered

	// A newer reconcile completes while the first is stalled.
	idx, err := c.ReconcileOnJoin(context.Background(), "meetup-1")
	if err != nil {
		t.Fatalf("second ReconcileOnJoin: %v", err)
	}
	if idx != 3 {
		t.Fatalf("second reconcile index = %d, want 3", idx)
	}

	// The stale failure must neither zero the index nor surface its error.
	close(log.gate)
	select {
	case got := <-firstDone:
		if got.err != nil {
			t.Fatalf("stale reconcile error = %v, want nil", got.err)
		}
		if got.idx != 3 {
			t.Fatalf("stale reconcile returned %d, want 3", got.idx)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("first reconcile did not finish")
	}
	if got := c.CurrentIndex(); got != 3 {
		t.Fatalf("CurrentIndex after stale failure = %d, want 3", got)
	}
}
