// Package intercept connects a Playwright browser context to the redirect
// engine. Every request inside the match scope is turned into a
// redirect.Request, judged against the current session state, and either
// answered with a redirect or let through.
package intercept

import (
	"net/http"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/authlock/pkg/logging"
	"github.com/entrhq/authlock/pkg/redirect"
	"github.com/entrhq/authlock/pkg/session"
)

// StateSource provides the session state read once per request.
type StateSource interface {
	Snapshot() session.State
}

// Router decides and applies redirects for intercepted requests.
type Router struct {
	engine  *redirect.Engine
	source  StateSource
	scope   *Scope
	logger  *logging.Logger
	metrics *Metrics
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithMetrics counts every routed request in m.
func WithMetrics(m *Metrics) RouterOption {
	return func(r *Router) {
		r.metrics = m
	}
}

// NewRouter creates a router. A nil scope uses DefaultPatterns and a nil
// logger discards output.
func NewRouter(engine *redirect.Engine, source StateSource, scope *Scope, logger *logging.Logger, opts ...RouterOption) (*Router, error) {
	if scope == nil {
		var err error
		scope, err = NewScope(nil)
		if err != nil {
			return nil, err
		}
	}
	if logger == nil {
		logger = logging.Discard("intercept")
	}

	r := &Router{
		engine: engine,
		source: source,
		scope:  scope,
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// ResourceType maps a Playwright resource type to the webRequest
// vocabulary the engine uses. Documents are main_frame when loaded into the
// top-level frame.
func ResourceType(pwType string, topLevel bool) string {
	switch pwType {
	case "document":
		if topLevel {
			return redirect.TypeMainFrame
		}
		return redirect.TypeSubFrame
	case "xhr", "fetch":
		return redirect.TypeXMLHTTPRequest
	case "stylesheet", "script", "image", "font", "media", "websocket":
		return pwType
	default:
		return redirect.TypeOther
	}
}

// Decide returns the action for one request. topLevel reports whether a
// document request loads into the page's main frame.
//
// The request that follows a redirect is decided like any other; a URL
// already carrying the locked account rewrites to itself and is let through.
func (r *Router) Decide(url, method, pwResourceType string, topLevel bool) redirect.Action {
	resourceType := ResourceType(pwResourceType, topLevel)

	if !r.scope.Allows(url) {
		r.metrics.observe(resourceType, outcomeOutOfScope, "")
		return redirect.NoAction
	}

	req := redirect.Request{
		URL:          url,
		Method:       method,
		ResourceType: resourceType,
	}

	d := r.engine.Decide(req, r.source.Snapshot())
	if !d.Action.IsRedirect() {
		r.metrics.observe(resourceType, outcomeContinued, "")
		return d.Action
	}

	r.metrics.observe(resourceType, outcomeRedirected, d.App.Host)
	r.logger.Infof("Redirecting %s %s (%s) to %s", req.Method, req.URL, req.ResourceType, d.Action.RedirectURL)
	return d.Action
}

// Attach installs the router on every request of browserContext that the
// scope allows.
func (r *Router) Attach(browserContext playwright.BrowserContext) error {
	return browserContext.Route(r.scope.Allows, r.handle)
}

func (r *Router) handle(route playwright.Route) {
	request := route.Request()

	pwType := request.ResourceType()
	topLevel := false
	if pwType == "document" {
		if frame := request.Frame(); frame != nil {
			topLevel = frame.ParentFrame() == nil
		}
	}

	action := r.Decide(request.URL(), request.Method(), pwType, topLevel)
	if !action.IsRedirect() {
		if err := route.Continue(); err != nil {
			r.logger.Warnf("Failed to continue %s: %v", request.URL(), err)
		}
		return
	}

	err := route.Fulfill(playwright.RouteFulfillOptions{
		Status: playwright.Int(http.StatusFound),
		Headers: map[string]string{
			"Location": action.RedirectURL,
		},
	})
	if err != nil {
		r.logger.Errorf("Failed to redirect %s: %v", request.URL(), err)
		if err := route.Continue(); err != nil {
			r.logger.Warnf("Failed to continue %s: %v", request.URL(), err)
		}
	}
}
