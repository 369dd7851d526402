package intercept

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/authlock/pkg/logging"
)

// ErrNoPage is returned by ActiveURL when every tab has been closed.
var ErrNoPage = errors.New("intercept: no open page")

// Browser is a persistent Chromium context with the router installed.
type Browser struct {
	mu         sync.Mutex
	playwright *playwright.Playwright
	context    playwright.BrowserContext
	logger     *logging.Logger

	done      chan struct{}
	closeOnce sync.Once
}

// Launch installs Playwright if needed, starts Chromium with profile's user
// data directory, attaches router and opens the start URLs.
func Launch(profile *Profile, router *Router, logger *logging.Logger) (*Browser, error) {
	if profile == nil {
		profile = DefaultProfile()
	}
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	if logger == nil {
		logger = logging.Discard("browser")
	}

	// Keep driver output off the terminal, stdin carries commands
	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if err := playwright.Install(opts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	context, err := pw.Chromium.LaunchPersistentContext(profile.UserDataDir, playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(profile.Headless),
		Viewport: &playwright.Size{
			Width:  profile.Viewport.Width,
			Height: profile.Viewport.Height,
		},
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := &Browser{
		playwright: pw,
		context:    context,
		logger:     logger,
		done:       make(chan struct{}),
	}
	context.OnClose(func(playwright.BrowserContext) {
		b.markClosed()
	})

	if profile.Timeout > 0 {
		context.SetDefaultTimeout(profile.Timeout)
	}

	// The route must be in place before the first navigation
	if router != nil {
		if err := router.Attach(context); err != nil {
			b.Shutdown()
			return nil, fmt.Errorf("failed to install request router: %w", err)
		}
	}

	if err := b.openStartURLs(profile.StartURLs); err != nil {
		b.Shutdown()
		return nil, err
	}

	logger.Infof("Browser started (headless=%t, profile=%s)", profile.Headless, profile.UserDataDir)
	return b, nil
}

func (b *Browser) openStartURLs(urls []string) error {
	for i, url := range urls {
		var page playwright.Page

		// A persistent context starts with one blank tab, reuse it
		pages := b.context.Pages()
		if i == 0 && len(pages) > 0 {
			page = pages[0]
		} else {
			var err error
			page, err = b.context.NewPage()
			if err != nil {
				return fmt.Errorf("failed to create page: %w", err)
			}
		}

		if _, err := page.Goto(url); err != nil {
			// A slow page is not fatal; the tab stays open
			b.logger.Warnf("Failed to open %s: %v", url, err)
		}
	}
	return nil
}

// ActiveURL returns the URL of the most recently opened tab that is still
// open.
func (b *Browser) ActiveURL() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pages := b.context.Pages()
	for i := len(pages) - 1; i >= 0; i-- {
		if !pages[i].IsClosed() {
			return pages[i].URL(), nil
		}
	}
	return "", ErrNoPage
}

// Done is closed when the browser context closes, including when the user
// closes the window.
func (b *Browser) Done() <-chan struct{} {
	return b.done
}

func (b *Browser) markClosed() {
	b.closeOnce.Do(func() {
		close(b.done)
	})
}

// Shutdown closes the context and stops the Playwright driver.
func (b *Browser) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Ignore errors, continue cleanup
	_ = b.context.Close()
	_ = b.playwright.Stop()
	b.markClosed()
}
