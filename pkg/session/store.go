package session

import (
	"fmt"

	"github.com/entrhq/authlock/pkg/account"
	"github.com/entrhq/authlock/pkg/config"
)

// ConfigStore keeps the account lock in the session section of the
// authlock config file.
type ConfigStore struct {
	manager *config.Manager
	section *config.SessionSection
}

// NewConfigStore creates a store backed by manager's session section.
func NewConfigStore(manager *config.Manager) (*ConfigStore, error) {
	section := config.GetSession(manager)
	if section == nil {
		return nil, fmt.Errorf("config has no %s section", config.SectionIDSession)
	}
	return &ConfigStore{manager: manager, section: section}, nil
}

// Load rereads the config file and returns the stored lock.
func (s *ConfigStore) Load() (State, error) {
	if err := s.manager.LoadAll(); err != nil {
		return State{}, err
	}

	index, locked := s.section.Get()
	if !account.Index(index).Valid() {
		return State{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	return State{Index: account.Index(index), Locked: locked}, nil
}

// Save writes the lock to the config file.
func (s *ConfigStore) Save(state State) error {
	s.section.Set(int(state.Index), state.Locked)
	return s.manager.SaveAll()
}
