package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"go-offline-cache/internal/interfaces"
	"go-offline-cache/internal/manifest"
	"go-offline-cache/internal/metrics"
	"go-offline-cache/internal/models"
)

// Registry owns the cache generations and their lifecycle.
//
// Install and Activate are serialized. The active generation is swapped
// only by Activate and Resume, and readers always see either the old or
// the new generation.
type Registry struct {
	storage interfaces.CacheStorage
	fetcher interfaces.Fetcher
	keys    interfaces.KeyBuilder
	logger  *zap.Logger

	lifecycle sync.Mutex

	mu        sync.RWMutex
	states    map[string]State
	installed map[string]*Generation
	active    *Generation
}

// Status is a snapshot of the registry
type Status struct {
	Active      string           `json:"active"`
	Generations map[string]State `json:"generations"`
}

// NewRegistry creates a registry over storage
func NewRegistry(storage interfaces.CacheStorage, fetcher interfaces.Fetcher, keys interfaces.KeyBuilder, logger *zap.Logger) *Registry {
	return &Registry{
		storage:   storage,
		fetcher:   fetcher,
		keys:      keys,
		logger:    logger,
		states:    make(map[string]State),
		installed: make(map[string]*Generation),
	}
}

// Active returns the active generation, nil when none is active
func (r *Registry) Active() *Generation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// State returns the lifecycle state of tag
func (r *Registry) State(tag string) State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if state, ok := r.states[tag]; ok {
		return state
	}
	return StateUnregistered
}

// Status returns a snapshot of every known generation
func (r *Registry) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := Status{Generations: make(map[string]State, len(r.states))}
	for tag, state := range r.states {
		status.Generations[tag] = state
	}
	if r.active != nil {
		status.Active = r.active.Tag()
	}
	return status
}

// Update installs the manifest generation and activates it immediately
func (r *Registry) Update(ctx context.Context, m *manifest.Manifest) (*Generation, error) {
	if _, err := r.Install(ctx, m); err != nil {
		return nil, err
	}
	return r.Activate(m.Generation)
}

// RetryPolicy bounds the install attempts of UpdateWithRetry
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsed      time.Duration
}

// UpdateWithRetry runs Update until it succeeds, backing off exponentially between
// failed installs. Errors other than ErrInstallFailed end the loop immediately.
func (r *Registry) UpdateWithRetry(ctx context.Context, m *manifest.Manifest, policy RetryPolicy) (*Generation, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.InitialInterval
	b.MaxInterval = policy.MaxInterval

	attempt := func() (*Generation, error) {
		gen, err := r.Update(ctx, m)
		if err != nil && !errors.Is(err, ErrInstallFailed) {
			return nil, backoff.Permanent(err)
		}
		return gen, err
	}

	return backoff.Retry(ctx, attempt,
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(policy.MaxElapsed),
		backoff.WithNotify(func(err error, next time.Duration) {
			r.logger.Warn("Install failed, retrying",
				zap.String("generation", m.Generation),
				zap.Duration("retry_in", next),
				zap.Error(err))
		}))
}

// Install pre-populates a new generation with every manifest asset.
// All assets are fetched before anything is written; a single failure
// leaves storage untouched and marks the attempt failed. A failed tag may
// be installed again.
func (r *Registry) Install(ctx context.Context, m *manifest.Manifest) (*Generation, error) {
	tag := m.Generation
	if err := r.beginInstall(tag); err != nil {
		return nil, err
	}

	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	stopTimer := metrics.TimePrecache()
	defer stopTimer()

	r.logger.Info("Installing generation",
		zap.String("generation", tag),
		zap.Int("assets", len(m.Assets)))

	keys, err := r.keys.BuildBatch(m.Assets)
	if err != nil {
		return nil, r.failInstall(tag, fmt.Errorf("invalid asset list: %w", err))
	}
	fallbackKey, err := r.keys.Build(m.OfflineFallback)
	if err != nil {
		return nil, r.failInstall(tag, fmt.Errorf("invalid offline fallback: %w", err))
	}

	responses, err := r.fetchAll(ctx, keys)
	if err != nil {
		return nil, r.failInstall(tag, err)
	}

	cache, err := r.writeGeneration(tag, keys, responses)
	if err != nil {
		return nil, r.failInstall(tag, err)
	}

	gen := newGeneration(tag, fallbackKey, cache)

	r.mu.Lock()
	r.states[tag] = StateInstalled
	r.installed[tag] = gen
	r.mu.Unlock()

	metrics.RecordInstall("success")
	r.logger.Info("Generation installed", zap.String("generation", tag))

	return gen, nil
}

func (r *Registry) beginInstall(tag string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.states[tag] {
	case StateInstalling:
		return fmt.Errorf("%w: %s", ErrInstallInProgress, tag)
	case StateActive, StateActivating:
		return fmt.Errorf("%w: %s", ErrAlreadyActive, tag)
	}

	r.states[tag] = StateInstalling
	delete(r.installed, tag)
	return nil
}

func (r *Registry) failInstall(tag string, err error) error {
	r.mu.Lock()
	r.states[tag] = StateInstallFailed
	r.mu.Unlock()

	metrics.RecordInstall("failure")
	r.logger.Error("Generation install failed", zap.String("generation", tag), zap.Error(err))

	return fmt.Errorf("%w: %s: %w", ErrInstallFailed, tag, err)
}

// fetchAll fetches every key concurrently and fails on the first error or non-2xx status
func (r *Registry) fetchAll(ctx context.Context, keys []string) ([]*models.Response, error) {
	responses := make([]*models.Response, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	for i, key := range keys {
		g.Go(func() error {
			resp, err := r.fetcher.Fetch(gctx, &models.FetchRequest{
				Method: http.MethodGet,
				URL:    key,
				Header: http.Header{},
				Mode:   models.RequestModeSameOrigin,
			})
			if err != nil {
				return fmt.Errorf("fetch %s: %w", key, err)
			}
			if resp.Streamed() {
				_ = resp.Close()
				return fmt.Errorf("fetch %s: body exceeds the upstream buffer limit", key)
			}
			if !resp.OK() {
				return fmt.Errorf("fetch %s: unexpected status %d", key, resp.StatusCode)
			}
			responses[i] = resp
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return responses, nil
}

// writeGeneration recreates the tag store and writes every response into it
func (r *Registry) writeGeneration(tag string, keys []string, responses []*models.Response) (interfaces.Cache, error) {
	// Drop leftovers of an earlier attempt under the same tag
	if _, err := r.storage.Delete(tag); err != nil {
		return nil, fmt.Errorf("clear store %s: %w", tag, err)
	}

	cache, err := r.storage.Open(tag)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", tag, err)
	}

	for i, key := range keys {
		if err := cache.Put(key, models.NewCacheEntry(key, responses[i])); err != nil {
			if _, delErr := r.storage.Delete(tag); delErr != nil {
				r.logger.Warn("Failed to remove partial generation",
					zap.String("generation", tag), zap.Error(delErr))
			}
			return nil, fmt.Errorf("store %s: %w", key, err)
		}
	}

	return cache, nil
}

// Activate makes an installed generation the active one.
// Every other stored generation is deleted before the swap.
func (r *Registry) Activate(tag string) (*Generation, error) {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	r.mu.Lock()
	state, known := r.states[tag]
	gen := r.installed[tag]
	switch {
	case !known:
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownGeneration, tag)
	case state == StateActive:
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrAlreadyActive, tag)
	case state != StateInstalled || gen == nil:
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s is %s", ErrNotInstalled, tag, state)
	}
	r.states[tag] = StateActivating
	previous := r.active
	r.mu.Unlock()

	if previous != nil {
		previous.retire()
	}

	swept := r.sweep(tag)

	r.mu.Lock()
	for _, name := range swept {
		if _, ok := r.states[name]; ok {
			r.states[name] = StateRedundant
		}
		delete(r.installed, name)
	}
	if previous != nil {
		r.states[previous.Tag()] = StateRedundant
	}
	r.active = gen
	r.states[tag] = StateActive
	delete(r.installed, tag)
	r.mu.Unlock()

	previousTag := ""
	if previous != nil {
		previousTag = previous.Tag()
	}
	metrics.SetActiveGeneration(previousTag, tag)

	r.logger.Info("Generation activated",
		zap.String("generation", tag),
		zap.String("previous", previousTag),
		zap.Strings("evicted", swept))

	return gen, nil
}

// sweep deletes every stored generation other than keep and returns the deleted names.
// Failures are logged; the next activation enumerates and retries them.
func (r *Registry) sweep(keep string) []string {
	names, err := r.storage.Names()
	if err != nil {
		metrics.RecordCacheError("storage", "names")
		r.logger.Warn("Failed to list generations", zap.Error(err))
	}

	var swept []string
	for _, name := range names {
		if name == keep {
			continue
		}

		existed, err := r.storage.Delete(name)
		if err != nil {
			metrics.RecordCacheError("storage", "sweep")
			r.logger.Warn("Failed to delete generation", zap.String("generation", name), zap.Error(err))
			continue
		}
		if existed {
			metrics.RecordEviction()
		}
		swept = append(swept, name)
	}

	sort.Strings(swept)
	return swept
}

// Resume adopts the single generation left in storage as the active one.
// It does nothing when storage holds zero or several generations, or when
// the stored generation lacks the offline document.
func (r *Registry) Resume(m *manifest.Manifest) (bool, error) {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	r.mu.RLock()
	hasActive := r.active != nil
	r.mu.RUnlock()
	if hasActive {
		return false, nil
	}

	names, err := r.storage.Names()
	if err != nil {
		return false, fmt.Errorf("list generations: %w", err)
	}
	if len(names) != 1 {
		r.logger.Info("No single stored generation to resume", zap.Strings("generations", names))
		return false, nil
	}
	tag := names[0]

	fallbackKey, err := r.keys.Build(m.OfflineFallback)
	if err != nil {
		return false, fmt.Errorf("invalid offline fallback: %w", err)
	}

	cache, err := r.storage.Open(tag)
	if err != nil {
		return false, fmt.Errorf("open store %s: %w", tag, err)
	}
	if _, found := cache.Get(fallbackKey); !found {
		r.logger.Warn("Stored generation lacks offline fallback, not resuming",
			zap.String("generation", tag), zap.String("fallback", fallbackKey))
		return false, nil
	}

	gen := newGeneration(tag, fallbackKey, cache)

	r.mu.Lock()
	r.active = gen
	r.states[tag] = StateActive
	r.mu.Unlock()

	metrics.SetActiveGeneration("", tag)
	r.logger.Info("Resumed stored generation", zap.String("generation", tag))

	return true, nil
}

// Purge deletes every stored generation except keep, returning the deleted names.
// The active generation can only be kept, never purged.
func (r *Registry) Purge(keep string) ([]string, error) {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	if active := r.Active(); active != nil && active.Tag() != keep {
		return nil, fmt.Errorf("%w: %s must be kept", ErrAlreadyActive, active.Tag())
	}

	return r.sweep(keep), nil
}
