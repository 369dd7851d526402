package config

import (
	"fmt"
	"sync"
)

const (
	// SectionIDSession is the identifier for the persisted account lock
	SectionIDSession = "session"

	// maxAuthUser mirrors the two-digit limit of URL account markers
	maxAuthUser = 99
)

// SessionSection persists the chosen account index and the lock flag.
type SessionSection struct {
	AuthUser int  `json:"authuser"`
	Locked   bool `json:"locked"`
	mu       sync.RWMutex
}

// NewSessionSection creates a session section selecting account 0, unlocked.
func NewSessionSection() *SessionSection {
	return &SessionSection{}
}

// ID returns the section identifier.
func (s *SessionSection) ID() string {
	return SectionIDSession
}

// Title returns the section title.
func (s *SessionSection) Title() string {
	return "Account Lock"
}

// Description returns the section description.
func (s *SessionSection) Description() string {
	return "The account index Google apps are redirected to, and whether the lock is active."
}

// Data returns the current configuration data.
func (s *SessionSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]any{
		"authuser": s.AuthUser,
		"locked":   s.Locked,
	}
}

// SetData updates the configuration from the provided data.
func (s *SessionSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		switch key {
		case "authuser":
			// JSON numbers come as float64
			switch v := value.(type) {
			case float64:
				if v != float64(int(v)) {
					return fmt.Errorf("invalid value for authuser: %v is not an integer", v)
				}
				s.AuthUser = int(v)
			case int:
				s.AuthUser = v
			case int64:
				s.AuthUser = int(v)
			default:
				return fmt.Errorf("invalid value type for authuser: expected number, got %T", value)
			}

		case "locked":
			locked, ok := value.(bool)
			if !ok {
				return fmt.Errorf("invalid value type for locked: expected bool, got %T", value)
			}
			s.Locked = locked

		default:
			continue
		}
	}

	return nil
}

// Validate validates the current configuration.
func (s *SessionSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.AuthUser < 0 || s.AuthUser > maxAuthUser {
		return fmt.Errorf("authuser must be between 0 and %d, got %d", maxAuthUser, s.AuthUser)
	}
	return nil
}

// Reset resets the section to account 0, unlocked.
func (s *SessionSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.AuthUser = 0
	s.Locked = false
}

// Get returns the stored account index and lock flag.
func (s *SessionSection) Get() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.AuthUser, s.Locked
}

// Set replaces the stored account index and lock flag.
func (s *SessionSection) Set(authUser int, locked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AuthUser = authUser
	s.Locked = locked
}
