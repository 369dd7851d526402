package intercept

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gobwas/glob"
	"golang.org/x/net/publicsuffix"

	"github.com/entrhq/authlock/pkg/config"
)

// registrableDomain is the only site whose requests are inspected.
const registrableDomain = "google.com"

// DefaultPatterns is the default request match scope.
var DefaultPatterns = config.DefaultURLPatterns

// Scope decides which requests reach the redirect engine at all.
type Scope struct {
	patterns []glob.Glob
	raw      []string
}

// NewScope compiles patterns. An empty list selects DefaultPatterns.
func NewScope(patterns []string) (*Scope, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}

	s := &Scope{raw: append([]string(nil), patterns...)}
	for _, pattern := range patterns {
		g, err := config.CompileURLPattern(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid url pattern '%s': %w", pattern, err)
		}
		s.patterns = append(s.patterns, g)
	}
	return s, nil
}

// Patterns returns the source patterns.
func (s *Scope) Patterns() []string {
	return append([]string(nil), s.raw...)
}

// Allows reports whether rawURL matches a pattern and belongs to google.com.
func (s *Scope) Allows(rawURL string) bool {
	if !s.matches(rawURL) {
		return false
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return false
	}

	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return false
	}
	return domain == registrableDomain
}

func (s *Scope) matches(rawURL string) bool {
	for _, pattern := range s.patterns {
		if pattern.Match(rawURL) {
			return true
		}
	}
	return false
}
