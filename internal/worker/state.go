package worker

import (
	"errors"
	"sync"

	"go-offline-cache/internal/interfaces"
	"go-offline-cache/internal/models"
)

// State is the lifecycle state of one cache generation
type State string

const (
	StateUnregistered  State = "unregistered"
	StateInstalling    State = "installing"
	StateInstalled     State = "installed"
	StateInstallFailed State = "install_failed"
	StateActivating    State = "activating"
	StateActive        State = "active"
	StateRedundant     State = "redundant"
)

var (
	// ErrAlreadyActive is returned when installing or activating the active generation
	ErrAlreadyActive = errors.New("generation is already active")
	// ErrInstallInProgress is returned when the generation is being installed
	ErrInstallInProgress = errors.New("generation install in progress")
	// ErrNotInstalled is returned when activating a generation that is not installed
	ErrNotInstalled = errors.New("generation is not installed")
	// ErrInstallFailed wraps every install failure; a later attempt may succeed
	ErrInstallFailed = errors.New("generation install failed")
	// ErrUnknownGeneration is returned for tags the registry has never seen
	ErrUnknownGeneration = errors.New("unknown generation")
)

// Generation is an installed cache generation
type Generation struct {
	tag         string
	fallbackKey string
	cache       interfaces.Cache

	// commits hold the read side, retire takes the write side
	writes  sync.RWMutex
	retired bool
}

func newGeneration(tag, fallbackKey string, cache interfaces.Cache) *Generation {
	return &Generation{
		tag:         tag,
		fallbackKey: fallbackKey,
		cache:       cache,
	}
}

// Tag returns the generation name
func (g *Generation) Tag() string {
	return g.tag
}

// FallbackKey returns the cache key of the offline document
func (g *Generation) FallbackKey() string {
	return g.fallbackKey
}

// Cache returns the generation store
func (g *Generation) Cache() interfaces.Cache {
	return g.cache
}

// Retired reports whether the generation has been superseded.
// Retired generations accept no new entries.
func (g *Generation) Retired() bool {
	g.writes.RLock()
	defer g.writes.RUnlock()
	return g.retired
}

// Commit stores entry unless the generation is retired and reports whether it was written.
// A commit in flight finishes before retire returns, so a swept store is never written again.
func (g *Generation) Commit(key string, entry *models.CacheEntry) (bool, error) {
	g.writes.RLock()
	defer g.writes.RUnlock()

	if g.retired {
		return false, nil
	}
	if err := g.cache.Put(key, entry); err != nil {
		return false, err
	}
	return true, nil
}

// retire blocks until commits in flight are done
func (g *Generation) retire() {
	g.writes.Lock()
	g.retired = true
	g.writes.Unlock()
}
