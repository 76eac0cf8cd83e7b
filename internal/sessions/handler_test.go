package sessions_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/frameline/meetups-backend/internal/models"
	"github.com/frameline/meetups-backend/internal/sessions"
)

type fakeRegistry struct {
	latest    *models.Session
	createErr error
	created   []string
}

func (f *fakeRegistry) Create(ctx context.Context, meetupID string) (*models.Session, error) {
	f.created = append(f.created, meetupID)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &models.Session{ID: uuid.New(), MeetupID: meetupID, StartedAtMs: time.Now().UnixMilli()}, nil
}

func (f *fakeRegistry) LatestFor(ctx context.Context, meetupID string) (*models.Session, error) {
	return f.latest, nil
}

type fakeDirectory struct {
	ensured []string
	err     error
}

func (f *fakeDirectory) GetOrCreate(ctx context.Context, id string) (*models.Meetup, error) {
	f.ensured = append(f.ensured, id)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Meetup{ID: id, PhotoCount: 12}, nil
}

type fakeEvents struct {
	events []models.PhotoEvent
}

func (f *fakeEvents) Append(ctx context.Context, ev *models.PhotoEvent) error { return nil }

func (f *fakeEvents) EventsFor(ctx context.Context, sessionID uuid.UUID) ([]models.PhotoEvent, error) {
	return f.events, nil
}

func newRouter(h *sessions.Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/meetups/:id/session", h.Create)
	r.GET("/meetups/:id/session/current", h.Current)
	return r
}

func TestCreateEnsuresMeetupFirst(t *testing.T) {
	registry := &fakeRegistry{}
	dir := &fakeDirectory{}
	h := sessions.NewHandler(registry, dir, &fakeEvents{}, nil)
	r := newRouter(h)

	// A meetup id never referenced before: the row is created lazily, the
	// session insert succeeds.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/meetups/brand-new-meetup/session", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	if len(dir.ensured) != 1 || dir.ensured[0] != "brand-new-meetup" {
		t.Fatalf("meetup not ensured before session create: %v", dir.ensured)
	}
	if len(registry.created) != 1 {
		t.Fatalf("sessions created = %v, want one", registry.created)
	}
	if !strings.Contains(w.Body.String(), "session_id") {
		t.Fatalf("body missing session_id: %s", w.Body.String())
	}
}

func TestCreateUnknownMeetupIsBadRequest(t *testing.T) {
	registry := &fakeRegistry{createErr: sessions.ErrUnknownMeetup}
	h := sessions.NewHandler(registry, &fakeDirectory{}, &fakeEvents{}, nil)
	r := newRouter(h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/meetups/m-1/session", nil))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCreateOtherErrorsStayInternal(t *testing.T) {
	registry := &fakeRegistry{createErr: errors.New("connection refused")}
	h := sessions.NewHandler(registry, &fakeDirectory{}, &fakeEvents{}, nil)
	r := newRouter(h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/meetups/m-1/session", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}

func TestCurrentNoSessionIs404(t *testing.T) {
	h := sessions.NewHandler(&fakeRegistry{}, &fakeDirectory{}, &fakeEvents{}, nil)
	r := newRouter(h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/meetups/m-1/session/current", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestCurrentReplaysLastEvent(t *testing.T) {
	sess := &models.Session{ID: uuid.New(), MeetupID: "m-1", StartedAtMs: 1000}
	events := &fakeEvents{events: []models.PhotoEvent{
		{ID: 1, SessionID: sess.ID, PhotoID: "photo-2", PhotoIndex: 2},
		{ID: 2, SessionID: sess.ID, PhotoID: "photo-7", PhotoIndex: 7},
	}}
	h := sessions.NewHandler(&fakeRegistry{latest: sess}, &fakeDirectory{}, events, nil)
	r := newRouter(h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/meetups/m-1/session/current", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"current_photo_index":7`) {
		t.Fatalf("body = %s, want current_photo_index 7", w.Body.String())
	}
}
