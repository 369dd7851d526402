// Package redirect decides, per intercepted request, whether the browser
// should be sent to the same page under the locked account.
//
// Decisions are synchronous and free of I/O. The caller passes the request
// and a session.State snapshot, and applies the returned Action.
package redirect

import (
	"github.com/entrhq/authlock/pkg/account"
	"github.com/entrhq/authlock/pkg/logging"
	"github.com/entrhq/authlock/pkg/session"
)

// HTTP methods and resource types the policy distinguishes.
const (
	MethodGet  = "GET"
	MethodPost = "POST"

	TypeMainFrame      = "main_frame"
	TypeSubFrame       = "sub_frame"
	TypeXMLHTTPRequest = "xmlhttprequest"
	TypeOther          = "other"
)

// mailHost gets a looser policy: its assets and navigations are rewritten,
// only API traffic is left alone.
const mailHost = "mail.google.com"

// Request describes one intercepted request.
type Request struct {
	URL          string
	Method       string
	ResourceType string
}

// Action is what the interception layer should do with a request.
// The zero value lets the request through.
type Action struct {
	// RedirectURL is the URL to load instead; empty for no action
	RedirectURL string
}

// NoAction lets the request continue unchanged.
var NoAction = Action{}

// Redirect returns an action that replaces the request with url.
func Redirect(url string) Action {
	return Action{RedirectURL: url}
}

// IsRedirect reports whether the action replaces the request.
func (a Action) IsRedirect() bool {
	return a.RedirectURL != ""
}

// Decision records every step of one evaluation.
type Decision struct {
	// App is the registered app the request targets
	App account.App

	// Known is false when the hostname is not registered
	Known bool

	// Eligible is true when method and resource type allow a rewrite
	Eligible bool

	// Outcome is the computed rewrite, recorded even when not applied
	Outcome account.Outcome

	// Action is the result handed to the interception layer
	Action Action
}

// Engine applies the redirect policy.
type Engine struct {
	requireLock bool
	logger      *logging.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithRequireLock sets whether redirects need the account lock. With false,
// every eligible request is redirected to the stored account.
func WithRequireLock(required bool) Option {
	return func(e *Engine) {
		e.requireLock = required
	}
}

// WithLogger logs every computed rewrite.
func WithLogger(logger *logging.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an engine. Redirects require the lock unless configured
// otherwise.
func New(opts ...Option) *Engine {
	e := &Engine{requireLock: true}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Handle returns the action for req under state.
func (e *Engine) Handle(req Request, state session.State) Action {
	return e.Decide(req, state).Action
}

// Decide evaluates req under state and returns the full decision.
func (e *Engine) Decide(req Request, state session.State) Decision {
	var d Decision

	host := account.ExtractHostApp(req.URL)
	app, ok := account.Lookup(host)
	if !ok {
		return d
	}
	d.App = app
	d.Known = true

	d.Eligible = eligible(app, req)
	if !d.Eligible {
		return d
	}

	d.Outcome = account.Rewrite(req.URL, app, state.Index)
	if e.logger != nil && d.Outcome.Changed {
		e.logger.Debugf("Original URL: %s --> %s", req.URL, d.Outcome.URL)
	}

	// The desired index is unknown until the session has been loaded
	if !state.Loaded {
		return d
	}
	if e.requireLock && !state.Locked {
		return d
	}

	if d.Outcome.Changed && d.Outcome.URL != req.URL {
		d.Action = Redirect(d.Outcome.URL)
	}
	return d
}

// eligible applies the per-app method and resource type filter.
func eligible(app account.App, req Request) bool {
	if app.Host == mailHost {
		return req.Method != MethodPost && req.ResourceType != TypeXMLHTTPRequest
	}
	return req.Method == MethodGet && req.ResourceType == TypeMainFrame
}
