package session

import (
	"fmt"
	"sync"

	"github.com/entrhq/authlock/pkg/account"
	"github.com/entrhq/authlock/pkg/logging"
)

// Controller is the single owner of the shared State.
type Controller struct {
	store  Store
	logger *logging.Logger

	mu    sync.RWMutex
	state State

	// userLocked records a lock or unlock made before the initial load
	// finished, so the load does not overwrite it
	userLocked *bool

	startOnce sync.Once
	ready     chan struct{}

	// saveMu serializes store access; writes tracks saves in flight
	saveMu sync.Mutex
	writes sync.WaitGroup
}

// New creates a controller over store. A nil logger discards log output.
func New(store Store, logger *logging.Logger) *Controller {
	if logger == nil {
		logger = logging.Discard("session")
	}
	return &Controller{
		store:  store,
		logger: logger,
		ready:  make(chan struct{}),
	}
}

// Start loads the persisted state in the background. Until it completes
// Snapshot reports Loaded == false. Calling Start again has no effect.
func (c *Controller) Start() {
	c.startOnce.Do(func() {
		go c.load()
	})
}

// Load reads the persisted state synchronously. It is a no-op after a
// successful Start or Load.
func (c *Controller) Load() {
	c.startOnce.Do(c.load)
}

func (c *Controller) load() {
	defer close(c.ready)

	c.saveMu.Lock()
	stored, err := c.store.Load()
	c.saveMu.Unlock()
	if err != nil {
		// Unreadable state is replaced by the default: account 0, unlocked
		c.logger.Errorf("Failed to load account lock, using defaults: %v", err)
		stored = State{}
	}

	c.mu.Lock()
	unlockedEarly := c.userLocked != nil && !*c.userLocked
	switch {
	case c.userLocked == nil:
		c.state = stored
	case *c.userLocked:
		// a lock before the load already fixed index and flag
	default:
		c.state.Index = stored.Index
		c.state.Locked = false
	}
	c.state.Loaded = true
	state := c.state
	c.mu.Unlock()

	c.logger.Infof("Account lock loaded: %s", state)
	if unlockedEarly && stored.Locked {
		c.persist()
	}
}

// Ready is closed once the persisted state has been read.
func (c *Controller) Ready() <-chan struct{} {
	return c.ready
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Label returns the indicator text for the current state.
func (c *Controller) Label() string {
	return c.Snapshot().Label()
}

// Lock fixes the desired account to the one selected by activeURL and turns
// redirecting on. The new state is returned immediately; it is persisted in
// the background.
func (c *Controller) Lock(activeURL string) (State, error) {
	host := account.ExtractHostApp(activeURL)
	app, ok := account.Lookup(host)
	if !ok {
		return c.Snapshot(), fmt.Errorf("%w: %q", ErrUnrecognizedApp, activeURL)
	}
	index := account.CurrentIndex(activeURL, app.Convention)

	state := c.lockTo(index)
	c.logger.Infof("Locked to account %s from %s (%s)", index, host, app.Convention)
	return state, nil
}

// LockIndex fixes the desired account directly.
func (c *Controller) LockIndex(index account.Index) (State, error) {
	if !index.Valid() {
		return c.Snapshot(), fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}

	state := c.lockTo(index)
	c.logger.Infof("Locked to account %s", index)
	return state, nil
}

func (c *Controller) lockTo(index account.Index) State {
	c.mu.Lock()
	c.state.Index = index
	c.state.Locked = true
	if !c.state.Loaded {
		// the desired index is known now, whatever the store holds
		c.state.Loaded = true
		locked := true
		c.userLocked = &locked
	}
	state := c.state
	c.mu.Unlock()

	c.persist()
	return state
}

// Unlock turns redirecting off and persists that in the background. Before
// the initial load the write is deferred until the stored index is known.
func (c *Controller) Unlock() State {
	c.mu.Lock()
	c.state.Locked = false
	loaded := c.state.Loaded
	if !loaded {
		unlocked := false
		c.userLocked = &unlocked
	}
	state := c.state
	c.mu.Unlock()

	c.logger.Infof("Unlocked")
	if loaded {
		c.persist()
	}
	return state
}

// persist saves the latest state on a background goroutine. Failures are
// logged and not retried; the in-memory state stays authoritative.
func (c *Controller) persist() {
	c.writes.Add(1)
	go func() {
		defer c.writes.Done()

		c.saveMu.Lock()
		defer c.saveMu.Unlock()

		state := c.Snapshot()
		if err := c.store.Save(state); err != nil {
			c.logger.Errorf("Failed to persist account lock (%s): %v", state, err)
			return
		}
		c.logger.Debugf("Persisted account lock: %s", state)
	}()
}

// Wait blocks until every background write has finished.
func (c *Controller) Wait() {
	c.writes.Wait()
}
