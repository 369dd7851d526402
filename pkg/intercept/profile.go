package intercept

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultViewportWidth is the default browser viewport width
	DefaultViewportWidth = 1280

	// DefaultViewportHeight is the default browser viewport height
	DefaultViewportHeight = 800

	// DefaultTimeout is the default page operation timeout in milliseconds
	DefaultTimeout = 30000

	// DefaultStartURL is opened when the profile lists no start URLs
	DefaultStartURL = "https://mail.google.com/mail/"
)

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Profile configures the browser authlock launches.
type Profile struct {
	// Headless runs the browser without a visible window
	Headless bool `yaml:"headless"`

	// UserDataDir keeps cookies and sign-ins across runs
	UserDataDir string `yaml:"user_data_dir"`

	// StartURLs are opened in their own tabs on launch
	StartURLs []string `yaml:"start_urls"`

	// Viewport sets the initial viewport size
	Viewport Viewport `yaml:"viewport"`

	// Timeout is the default page operation timeout in milliseconds
	Timeout float64 `yaml:"timeout"`
}

// DefaultProfile returns a visible browser with a profile directory under
// ~/.authlock/browser.
func DefaultProfile() *Profile {
	dataDir := filepath.Join(".authlock", "browser")
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, dataDir)
	}

	return &Profile{
		UserDataDir: dataDir,
		StartURLs:   []string{DefaultStartURL},
		Viewport: Viewport{
			Width:  DefaultViewportWidth,
			Height: DefaultViewportHeight,
		},
		Timeout: DefaultTimeout,
	}
}

// LoadProfile reads a YAML profile from path on top of DefaultProfile.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	profile := DefaultProfile()
	if err := yaml.Unmarshal(data, profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}

	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	return profile, nil
}

// Validate checks the profile values.
func (p *Profile) Validate() error {
	if p.UserDataDir == "" {
		return fmt.Errorf("user_data_dir is required")
	}
	if p.Viewport.Width <= 0 || p.Viewport.Height <= 0 {
		return fmt.Errorf("viewport must be positive, got %dx%d", p.Viewport.Width, p.Viewport.Height)
	}
	if p.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	for i, u := range p.StartURLs {
		if u == "" {
			return fmt.Errorf("start url at index %d is empty", i)
		}
	}
	return nil
}
