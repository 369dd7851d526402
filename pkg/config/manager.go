package config

import (
	"fmt"
	"sync"
)

// Section is one named group of settings persisted in the store.
type Section interface {
	// ID returns the key the section is stored under
	ID() string

	// Title returns a short human readable name
	Title() string

	// Description explains what the section controls
	Description() string

	// Data returns the current values
	Data() map[string]any

	// SetData applies values read from the store
	SetData(data map[string]any) error

	// Validate checks the current values
	Validate() error

	// Reset restores the defaults
	Reset()
}

// Manager ties registered sections to a Store.
type Manager struct {
	store    Store
	sections []Section
	byID     map[string]Section
	mu       sync.RWMutex
}

// NewManager creates a manager backed by store.
func NewManager(store Store) *Manager {
	return &Manager{
		store: store,
		byID:  make(map[string]Section),
	}
}

// RegisterSection adds a section. IDs must be unique.
func (m *Manager) RegisterSection(section Section) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byID[section.ID()]; exists {
		return fmt.Errorf("section %q already registered", section.ID())
	}

	m.sections = append(m.sections, section)
	m.byID[section.ID()] = section
	return nil
}

// GetSection returns the section registered under id.
func (m *Manager) GetSection(id string) (Section, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	section, ok := m.byID[id]
	return section, ok
}

// GetSections returns all sections in registration order.
func (m *Manager) GetSections() []Section {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sections := make([]Section, len(m.sections))
	copy(sections, m.sections)
	return sections
}

// LoadAll reloads the store and pushes its data into every section.
func (m *Manager) LoadAll() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.store.Load(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	for _, section := range m.sections {
		if err := m.loadSectionLocked(section); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) loadSectionLocked(section Section) error {
	data, err := m.store.GetSection(section.ID())
	if err != nil {
		return fmt.Errorf("failed to read section %s: %w", section.ID(), err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := section.SetData(data); err != nil {
		return fmt.Errorf("invalid data in section %s: %w", section.ID(), err)
	}
	return nil
}

// SaveAll validates every section and writes them to the store.
func (m *Manager) SaveAll() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, section := range m.sections {
		if err := section.Validate(); err != nil {
			return fmt.Errorf("section %s is invalid: %w", section.ID(), err)
		}
	}

	for _, section := range m.sections {
		if err := m.store.SetSection(section.ID(), section.Data()); err != nil {
			return fmt.Errorf("failed to store section %s: %w", section.ID(), err)
		}
	}

	if err := m.store.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// ResetAll restores the defaults of every section.
func (m *Manager) ResetAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, section := range m.sections {
		section.Reset()
	}
}

// Store returns the underlying store.
func (m *Manager) Store() Store {
	return m.store
}
