package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSection records what the manager pushes into it
type mockSection struct {
	id          string
	data        map[string]any
	validateErr error
	setDataErr  error
	resets      int
}

func (m *mockSection) ID() string           { return m.id }
func (m *mockSection) Title() string        { return "Mock " + m.id }
func (m *mockSection) Description() string  { return "mock section" }
func (m *mockSection) Data() map[string]any { return m.data }
func (m *mockSection) Validate() error      { return m.validateErr }
func (m *mockSection) Reset() {
	m.data = map[string]any{}
	m.resets++
}
func (m *mockSection) SetData(data map[string]any) error {
	if m.setDataErr != nil {
		return m.setDataErr
	}
	m.data = data
	return nil
}

// mockStore is an in-memory Store that counts saves
type mockStore struct {
	sections map[string]map[string]any
	loadErr  error
	saveErr  error
	loads    int
	saves    int
}

func newMockStore() *mockStore {
	return &mockStore{sections: map[string]map[string]any{}}
}

func (m *mockStore) Load() error {
	m.loads++
	return m.loadErr
}

func (m *mockStore) Save() error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	return nil
}

func (m *mockStore) GetSection(sectionID string) (map[string]any, error) {
	return m.sections[sectionID], nil
}

func (m *mockStore) SetSection(sectionID string, data map[string]any) error {
	m.sections[sectionID] = data
	return nil
}

func TestManager_Register(t *testing.T) {
	store := newMockStore()
	manager := NewManager(store)
	assert.Same(t, store, manager.Store())
	assert.Empty(t, manager.GetSections())

	for _, id := range []string{"session", "intercept", "extra"} {
		require.NoError(t, manager.RegisterSection(&mockSection{id: id}))
	}
	assert.Error(t, manager.RegisterSection(&mockSection{id: "intercept"}), "duplicate id")

	var ids []string
	for _, s := range manager.GetSections() {
		ids = append(ids, s.ID())
	}
	assert.Equal(t, []string{"session", "intercept", "extra"}, ids, "registration order")

	section, ok := manager.GetSection("extra")
	require.True(t, ok)
	assert.Equal(t, "Mock extra", section.Title())

	_, ok = manager.GetSection("absent")
	assert.False(t, ok)
}

func TestManager_LoadAll(t *testing.T) {
	tests := []struct {
		name      string
		stored    map[string]map[string]any
		loadErr   error
		setErr    error
		wantErr   bool
		wantValue any
	}{
		{
			name:      "pushes stored data",
			stored:    map[string]map[string]any{"s": {"value": "stored"}},
			wantValue: "stored",
		},
		{
			name:      "keeps defaults when nothing is stored",
			stored:    map[string]map[string]any{},
			wantValue: "default",
		},
		{
			name:      "keeps defaults for an empty section",
			stored:    map[string]map[string]any{"s": {}},
			wantValue: "default",
		},
		{
			name:    "store error",
			loadErr: errors.New("disk unreadable"),
			wantErr: true,
		},
		{
			name:    "section rejects data",
			stored:  map[string]map[string]any{"s": {"value": 7}},
			setErr:  errors.New("wrong type"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockStore()
			store.loadErr = tt.loadErr
			if tt.stored != nil {
				store.sections = tt.stored
			}

			section := &mockSection{id: "s", data: map[string]any{"value": "default"}, setDataErr: tt.setErr}
			manager := NewManager(store)
			require.NoError(t, manager.RegisterSection(section))

			err := manager.LoadAll()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 1, store.loads)
			assert.Equal(t, tt.wantValue, section.data["value"])
		})
	}
}

func TestManager_SaveAll(t *testing.T) {
	t.Run("writes every section then saves once", func(t *testing.T) {
		store := newMockStore()
		manager := NewManager(store)
		require.NoError(t, manager.RegisterSection(&mockSection{id: "a", data: map[string]any{"n": 1}}))
		require.NoError(t, manager.RegisterSection(&mockSection{id: "b", data: map[string]any{"n": 2}}))

		require.NoError(t, manager.SaveAll())
		assert.Equal(t, 1, store.sections["a"]["n"])
		assert.Equal(t, 2, store.sections["b"]["n"])
		assert.Equal(t, 1, store.saves)
	})

	t.Run("an invalid section blocks every write", func(t *testing.T) {
		store := newMockStore()
		manager := NewManager(store)
		require.NoError(t, manager.RegisterSection(&mockSection{id: "a", data: map[string]any{"n": 1}}))
		require.NoError(t, manager.RegisterSection(&mockSection{id: "b", validateErr: errors.New("out of range")}))

		assert.Error(t, manager.SaveAll())
		assert.Empty(t, store.sections)
		assert.Zero(t, store.saves)
	})

	t.Run("store error", func(t *testing.T) {
		store := newMockStore()
		store.saveErr = errors.New("read-only")
		manager := NewManager(store)
		require.NoError(t, manager.RegisterSection(&mockSection{id: "a"}))

		assert.Error(t, manager.SaveAll())
	})

	t.Run("real sections survive a file round trip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		first, err := Open(path)
		require.NoError(t, err)

		GetSession(first).Set(6, true)
		GetIntercept(first).LogRewrites = true
		require.NoError(t, first.SaveAll())

		second, err := Open(path)
		require.NoError(t, err)
		index, locked := GetSession(second).Get()
		assert.Equal(t, 6, index)
		assert.True(t, locked)
		_, logRewrites, _ := GetIntercept(second).Settings()
		assert.True(t, logRewrites)
	})
}

func TestManager_ResetAll(t *testing.T) {
	manager := NewManager(newMockStore())
	sections := []*mockSection{
		{id: "a", data: map[string]any{"n": 1}},
		{id: "b", data: map[string]any{"n": 2}},
	}
	for _, s := range sections {
		require.NoError(t, manager.RegisterSection(s))
	}

	manager.ResetAll()
	for _, s := range sections {
		assert.Empty(t, s.data, s.id)
		assert.Equal(t, 1, s.resets, s.id)
	}
}

func TestManager_ConcurrentRegister(t *testing.T) {
	manager := NewManager(newMockStore())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = manager.RegisterSection(&mockSection{id: fmt.Sprintf("section%d", i)})
			_ = manager.GetSections()
		}(i)
	}
	wg.Wait()

	assert.Len(t, manager.GetSections(), 10)
}
