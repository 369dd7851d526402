package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gobwas/glob"
)

const (
	// SectionIDIntercept is the identifier for request interception settings
	SectionIDIntercept = "intercept"

	defaultRequireLock = true
	defaultLogRewrites = false
)

// DefaultURLPatterns covers google.com and every subdomain, any scheme.
var DefaultURLPatterns = []string{
	"*://google.com/**",
	"*://*.google.com/**",
}

// CompileURLPattern compiles a request URL pattern. "*" stops at "/",
// "**" spans path segments.
func CompileURLPattern(pattern string) (glob.Glob, error) {
	return glob.Compile(pattern, '/')
}

// InterceptSection controls how intercepted requests are redirected.
type InterceptSection struct {
	// RequireLock gates redirects on the account lock. When false every
	// eligible request is redirected to the stored account.
	RequireLock bool `json:"require_lock"`

	// LogRewrites logs every computed rewrite
	LogRewrites bool `json:"log_rewrites"`

	// URLPatterns limits which requests are inspected at all
	URLPatterns []string `json:"url_patterns"`

	mu sync.RWMutex
}

// NewInterceptSection creates an intercept section with default settings.
func NewInterceptSection() *InterceptSection {
	return &InterceptSection{
		RequireLock: defaultRequireLock,
		LogRewrites: defaultLogRewrites,
		URLPatterns: append([]string(nil), DefaultURLPatterns...),
	}
}

// ID returns the section identifier.
func (s *InterceptSection) ID() string {
	return SectionIDIntercept
}

// Title returns the section title.
func (s *InterceptSection) Title() string {
	return "Request Interception"
}

// Description returns the section description.
func (s *InterceptSection) Description() string {
	return "Configure which requests are inspected and whether redirects require the account lock."
}

// Data returns the current configuration data.
func (s *InterceptSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	patterns := make([]any, len(s.URLPatterns))
	for i, p := range s.URLPatterns {
		patterns[i] = p
	}

	return map[string]any{
		"require_lock": s.RequireLock,
		"log_rewrites": s.LogRewrites,
		"url_patterns": patterns,
	}
}

// SetData updates the configuration from the provided data.
func (s *InterceptSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		switch key {
		case "require_lock":
			enabled, ok := value.(bool)
			if !ok {
				return fmt.Errorf("invalid value type for require_lock: expected bool, got %T", value)
			}
			s.RequireLock = enabled

		case "log_rewrites":
			enabled, ok := value.(bool)
			if !ok {
				return fmt.Errorf("invalid value type for log_rewrites: expected bool, got %T", value)
			}
			s.LogRewrites = enabled

		case "url_patterns":
			patterns, err := toStringSlice(value)
			if err != nil {
				return fmt.Errorf("invalid url_patterns: %w", err)
			}
			s.URLPatterns = patterns

		default:
			// Ignore unknown keys for forward compatibility
			continue
		}
	}

	return nil
}

func toStringSlice(value any) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return append([]string(nil), v...), nil
	case []any:
		out := make([]string, 0, len(v))
		for i, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("item %d: expected string, got %T", i, item)
			}
			out = append(out, str)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected list of strings, got %T", value)
	}
}

// Validate validates the current configuration.
func (s *InterceptSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.URLPatterns) == 0 {
		return fmt.Errorf("url_patterns must not be empty")
	}
	for i, pattern := range s.URLPatterns {
		if strings.TrimSpace(pattern) == "" {
			return fmt.Errorf("url pattern at index %d is empty", i)
		}
		if _, err := CompileURLPattern(pattern); err != nil {
			return fmt.Errorf("invalid url pattern '%s': %w", pattern, err)
		}
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *InterceptSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.RequireLock = defaultRequireLock
	s.LogRewrites = defaultLogRewrites
	s.URLPatterns = append([]string(nil), DefaultURLPatterns...)
}

// Settings returns (requireLock, logRewrites, patterns).
func (s *InterceptSection) Settings() (bool, bool, []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.RequireLock, s.LogRewrites, append([]string(nil), s.URLPatterns...)
}
