// Package session owns the account lock shared by every redirect decision:
// which account index is desired and whether redirecting is switched on.
//
// A Controller is the only writer. It loads the persisted value once at
// startup, applies lock/unlock actions in memory first and persists them in
// the background. Readers take a State snapshot per request.
package session

import (
	"errors"
	"fmt"

	"github.com/entrhq/authlock/pkg/account"
)

var (
	// ErrUnrecognizedApp is returned by Lock for a page that is not a supported app
	ErrUnrecognizedApp = errors.New("session: page is not a supported account-aware app")

	// ErrIndexOutOfRange is returned for a stored index that no marker can carry
	ErrIndexOutOfRange = errors.New("session: account index out of range")
)

// State is one snapshot of the account lock.
type State struct {
	// Index is the desired account
	Index account.Index

	// Locked switches redirecting on
	Locked bool

	// Loaded is false until the persisted value has been read
	Loaded bool
}

// Label returns the indicator text: the index while locked, "" otherwise.
func (s State) Label() string {
	if !s.Locked {
		return ""
	}
	return s.Index.String()
}

// String implements fmt.Stringer.
func (s State) String() string {
	switch {
	case !s.Loaded:
		return "not loaded"
	case s.Locked:
		return fmt.Sprintf("locked to account %s", s.Index)
	default:
		return fmt.Sprintf("unlocked (last account %s)", s.Index)
	}
}

// Store persists the account lock.
type Store interface {
	// Load reads the persisted state. Loaded is ignored.
	Load() (State, error)

	// Save writes the state. Loaded is ignored.
	Save(State) error
}
