// Package config persists authlock settings in a JSON file made of named
// sections. The session section holds the account lock; the intercept
// section controls which requests are inspected.
package config

// Open creates a file store at path (DefaultPath when empty), registers the
// authlock sections and loads them.
func Open(path string) (*Manager, error) {
	store, err := NewFileStore(path)
	if err != nil {
		return nil, err
	}

	manager := NewManager(store)

	if err := manager.RegisterSection(NewSessionSection()); err != nil {
		return nil, err
	}

	if err := manager.RegisterSection(NewInterceptSection()); err != nil {
		return nil, err
	}

	if err := manager.LoadAll(); err != nil {
		return nil, err
	}

	return manager, nil
}

// GetSession returns the session section of m, or nil if it is missing.
func GetSession(m *Manager) *SessionSection {
	section, ok := m.GetSection(SectionIDSession)
	if !ok {
		return nil
	}

	session, ok := section.(*SessionSection)
	if !ok {
		return nil
	}

	return session
}

// GetIntercept returns the intercept section of m, or nil if it is missing.
func GetIntercept(m *Manager) *InterceptSection {
	section, ok := m.GetSection(SectionIDIntercept)
	if !ok {
		return nil
	}

	intercept, ok := section.(*InterceptSection)
	if !ok {
		return nil
	}

	return intercept
}
