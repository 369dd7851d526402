package intercept

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/authlock/pkg/account"
	"github.com/entrhq/authlock/pkg/logging"
	"github.com/entrhq/authlock/pkg/redirect"
	"github.com/entrhq/authlock/pkg/session"
)

type fixedState session.State

func (f fixedState) Snapshot() session.State {
	return session.State(f)
}

func newTestRouter(t *testing.T, state session.State) *Router {
	t.Helper()
	router, err := NewRouter(redirect.New(), fixedState(state), nil, nil)
	require.NoError(t, err)
	return router
}

func lockedTo(index account.Index) session.State {
	return session.State{Index: index, Locked: true, Loaded: true}
}

func TestResourceType(t *testing.T) {
	tests := []struct {
		pwType   string
		topLevel bool
		want     string
	}{
		{"document", true, redirect.TypeMainFrame},
		{"document", false, redirect.TypeSubFrame},
		{"xhr", true, redirect.TypeXMLHTTPRequest},
		{"fetch", false, redirect.TypeXMLHTTPRequest},
		{"script", false, "script"},
		{"stylesheet", false, "stylesheet"},
		{"image", false, "image"},
		{"font", false, "font"},
		{"media", false, "media"},
		{"websocket", false, "websocket"},
		{"manifest", false, redirect.TypeOther},
		{"eventsource", false, redirect.TypeOther},
		{"", false, redirect.TypeOther},
	}

	for _, tt := range tests {
		t.Run(tt.pwType, func(t *testing.T) {
			assert.Equal(t, tt.want, ResourceType(tt.pwType, tt.topLevel))
		})
	}
}

func TestRouter_Decide(t *testing.T) {
	router := newTestRouter(t, lockedTo(2))

	action := router.Decide("https://mail.google.com/mail/u/0/#inbox", "GET", "document", true)
	assert.Equal(t, redirect.Redirect("https://mail.google.com/mail/u/2/#inbox"), action)

	// calendar sub frame documents are left alone
	action = router.Decide("https://calendar.google.com/calendar/u/0/r", "GET", "document", false)
	assert.Equal(t, redirect.NoAction, action)

	// mail fetches are api traffic
	action = router.Decide("https://mail.google.com/mail/u/0/sync", "GET", "fetch", false)
	assert.Equal(t, redirect.NoAction, action)

	// mail scripts follow the account
	action = router.Decide("https://mail.google.com/mail/u/0/app.js", "GET", "script", false)
	assert.Equal(t, redirect.Redirect("https://mail.google.com/mail/u/2/app.js"), action)
}

func TestRouter_OutOfScope(t *testing.T) {
	router := newTestRouter(t, lockedTo(2))

	action := router.Decide("https://mail.google.com.evil.net/mail/u/0/", "GET", "document", true)
	assert.Equal(t, redirect.NoAction, action)
}

func TestRouter_RedirectTargetIsContinued(t *testing.T) {
	router := newTestRouter(t, lockedTo(3))

	first := router.Decide("https://meet.google.com/abc", "GET", "document", true)
	require.True(t, first.IsRedirect())
	assert.Equal(t, "https://meet.google.com/abc?authuser=3", first.RedirectURL)

	assert.Equal(t, redirect.NoAction, router.Decide(first.RedirectURL, "GET", "document", true))
}

// switchableState lets a test change the lock between requests.
type switchableState struct {
	mu    sync.Mutex
	state session.State
}

func (s *switchableState) Snapshot() session.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *switchableState) set(state session.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func TestRouter_RelockBetweenNavigations(t *testing.T) {
	source := &switchableState{state: lockedTo(2)}
	router, err := NewRouter(redirect.New(), source, nil, nil)
	require.NoError(t, err)

	first := router.Decide("https://mail.google.com/mail/u/0/", "GET", "document", true)
	assert.Equal(t, redirect.Redirect("https://mail.google.com/mail/u/2/"), first)

	source.set(lockedTo(3))
	second := router.Decide(first.RedirectURL, "GET", "document", true)
	assert.Equal(t, redirect.Redirect("https://mail.google.com/mail/u/3/"), second)

	// repeated visits are decided again every time
	for i := 0; i < 3; i++ {
		action := router.Decide("https://drive.google.com/drive/u/0/", "GET", "document", true)
		assert.Equal(t, redirect.Redirect("https://drive.google.com/drive/u/3/"), action, "visit %d", i)
	}
}

func TestRouter_NotLoaded(t *testing.T) {
	router := newTestRouter(t, session.State{Index: 2, Locked: true})

	action := router.Decide("https://mail.google.com/mail/u/0/", "GET", "document", true)
	assert.Equal(t, redirect.NoAction, action)
}

func TestRouter_LogsRedirects(t *testing.T) {
	var buf bytes.Buffer
	router, err := NewRouter(redirect.New(), fixedState(lockedTo(1)), nil, logging.NewWriterLogger("intercept", &buf))
	require.NoError(t, err)

	router.Decide("https://photos.google.com/albums", "GET", "document", true)
	assert.Contains(t, buf.String(), "Redirecting GET https://photos.google.com/albums (main_frame) to https://photos.google.com/u/1/albums")
}

func TestRouter_Metrics(t *testing.T) {
	metrics := NewMetrics()
	router, err := NewRouter(redirect.New(), fixedState(lockedTo(2)), nil, nil, WithMetrics(metrics))
	require.NoError(t, err)

	first := router.Decide("https://mail.google.com/mail/u/0/", "GET", "document", true)
	require.True(t, first.IsRedirect())
	router.Decide(first.RedirectURL, "GET", "document", true)
	router.Decide("https://mail.google.com/mail/u/0/sync", "POST", "xhr", false)
	router.Decide("https://example.com/", "GET", "document", true)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RedirectsTotal.WithLabelValues("mail.google.com")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RequestsTotal.WithLabelValues("main_frame", outcomeRedirected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RequestsTotal.WithLabelValues("main_frame", outcomeContinued)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RequestsTotal.WithLabelValues("xmlhttprequest", outcomeContinued)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RequestsTotal.WithLabelValues("main_frame", outcomeOutOfScope)))
}

func TestMetrics_Handler(t *testing.T) {
	metrics := NewMetrics()
	metrics.observe("main_frame", outcomeRedirected, "meet.google.com")

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `authlock_redirects_total{app="meet.google.com"} 1`)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var metrics *Metrics
	assert.NotPanics(t, func() {
		metrics.observe("main_frame", outcomeContinued, "")
	})
}
