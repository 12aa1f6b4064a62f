package interceptor

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"go-offline-cache/internal/interfaces"
	"go-offline-cache/internal/metrics"
	"go-offline-cache/internal/models"
	"go-offline-cache/internal/worker"
)

// ErrNoFallback is returned when a navigation fails and no offline document is stored
var ErrNoFallback = errors.New("offline fallback not available")

// GenerationSource provides the active generation
type GenerationSource interface {
	Active() *worker.Generation
}

// Result is an answered request
type Result struct {
	Response *models.Response
	Status   models.CacheStatus
	Level    models.CacheLevel
}

// Interceptor answers page requests cache-first from the active generation
type Interceptor struct {
	generations GenerationSource
	fetcher     interfaces.Fetcher
	keys        interfaces.KeyBuilder
	logger      *zap.Logger
}

// NewInterceptor creates a new Interceptor
func NewInterceptor(generations GenerationSource, fetcher interfaces.Fetcher, keys interfaces.KeyBuilder, logger *zap.Logger) *Interceptor {
	return &Interceptor{
		generations: generations,
		fetcher:     fetcher,
		keys:        keys,
		logger:      logger,
	}
}

// Handle answers req. An error means no response can be given.
func (i *Interceptor) Handle(ctx context.Context, req *models.FetchRequest) (*Result, error) {
	observe := metrics.TimeRequest()
	result, err := i.handle(ctx, req)

	source := "error"
	if err == nil {
		source = string(result.Status)
	}
	metrics.RecordRequest(source)
	observe(source)

	return result, err
}

func (i *Interceptor) handle(ctx context.Context, req *models.FetchRequest) (*Result, error) {
	gen := i.generations.Active()

	var (
		lookup      Lookup
		fallbackKey string
		level       = models.CacheLevelMiss
	)
	key, err := i.keys.Build(req.URL)
	if err != nil {
		i.logger.Debug("Request URL not cacheable", zap.String("url", req.URL), zap.Error(err))
	} else if gen != nil {
		lookup = i.lookupFunc(gen, &level)
		fallbackKey = gen.FallbackKey()
	}

	d := Decide(req, key, lookup, fallbackKey)

	if d.Source == SourceCache {
		return &Result{Response: d.Entry.Response(), Status: models.CacheStatusHit, Level: level}, nil
	}

	resp, err := i.fetcher.Fetch(ctx, req)
	if err != nil {
		return i.offline(req, d, lookup, err)
	}

	if d.Store && Cacheable(resp) {
		i.commit(gen, key, resp)
	}

	return &Result{Response: resp, Status: statusFor(d.Source), Level: models.CacheLevelMiss}, nil
}

// lookupFunc reads gen, recording the answering level when the store reports one
func (i *Interceptor) lookupFunc(gen *worker.Generation, level *models.CacheLevel) Lookup {
	store := gen.Cache()
	if aware, ok := store.(interfaces.LevelAwareCache); ok {
		return func(key string) (*models.CacheEntry, bool) {
			result := aware.GetWithLevel(key)
			*level = result.Level
			return result.Entry, result.Found
		}
	}
	return func(key string) (*models.CacheEntry, bool) {
		entry, found := store.Get(key)
		if found {
			*level = models.CacheLevelL1
		}
		return entry, found
	}
}

// offline serves the offline document for failed navigations
func (i *Interceptor) offline(req *models.FetchRequest, d Decision, lookup Lookup, fetchErr error) (*Result, error) {
	if d.FallbackKey == "" {
		return nil, fmt.Errorf("network request for %s failed: %w", req.URL, fetchErr)
	}

	entry, found := lookup(d.FallbackKey)
	if !found {
		i.logger.Warn("Offline fallback missing from active generation", zap.String("fallback", d.FallbackKey))
		return nil, fmt.Errorf("%w: %w", ErrNoFallback, fetchErr)
	}

	i.logger.Info("Serving offline fallback",
		zap.String("url", req.URL),
		zap.String("fallback", d.FallbackKey),
		zap.Error(fetchErr))

	return &Result{Response: entry.Response(), Status: models.CacheStatusOffline}, nil
}

// commit writes resp into gen. Failures only cost a future hit.
func (i *Interceptor) commit(gen *worker.Generation, key string, resp *models.Response) {
	entry := models.NewCacheEntry(key, resp)
	written, err := gen.Commit(key, entry)
	if err != nil {
		metrics.RecordCacheError("storage", "commit")
		i.logger.Warn("Failed to store response",
			zap.String("generation", gen.Tag()),
			zap.String("key", key),
			zap.Error(err))
		return
	}
	if !written {
		i.logger.Debug("Skipping write to retired generation", zap.String("generation", gen.Tag()), zap.String("key", key))
		return
	}

	i.logger.Debug("Stored response",
		zap.String("generation", gen.Tag()),
		zap.String("key", key),
		zap.Int("bytes", entry.Size()))
}

func statusFor(source Source) models.CacheStatus {
	switch source {
	case SourceBypass:
		return models.CacheStatusBypass
	case SourcePassThrough:
		return models.CacheStatusPass
	default:
		return models.CacheStatusMiss
	}
}
