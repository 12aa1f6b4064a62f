package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"go-offline-cache/internal/cache"
	"go-offline-cache/internal/cache/l1"
	"go-offline-cache/internal/cache/l2"
	"go-offline-cache/internal/cache/multi"
	"go-offline-cache/internal/cache/noop"
	"go-offline-cache/internal/config"
	"go-offline-cache/internal/httpserver"
	"go-offline-cache/internal/interceptor"
	"go-offline-cache/internal/interfaces"
	"go-offline-cache/internal/manifest"
	"go-offline-cache/internal/models"
	"go-offline-cache/internal/network"
	"go-offline-cache/internal/worker"
)

// Options override the file locations taken from the environment
type Options struct {
	ConfigFile   string
	ManifestFile string
}

// CompositionRoot holds all application dependencies and provides a centralized
// place for dependency injection and service initialization.
type CompositionRoot struct {
	// Configuration
	Config   *config.Config
	Env      *config.Env
	Manifest *manifest.Manifest
	Logger   *zap.Logger

	// Cache components
	L1Storage  *l1.Storage
	L2Storage  *l2.Storage
	Storage    interfaces.CacheStorage
	KeyBuilder interfaces.KeyBuilder
	Fetcher    *network.HTTPFetcher

	// Services
	Registry    *worker.Registry
	Interceptor *interceptor.Interceptor
	HTTPServer  *httpserver.Server
}

// NewCompositionRoot creates and initializes all application dependencies.
//
// Initialization order:
// 1. Logger (needed by all other components)
// 2. Environment and configuration
// 3. Precache manifest
// 4. Cache components (L1, L2, layered storage, KeyBuilder)
// 5. Network fetcher and generation registry
// 6. Interceptor and HTTP server
func NewCompositionRoot(opts Options) (*CompositionRoot, error) {
	root := &CompositionRoot{}

	// Initialize logger first
	if err := root.initLogger(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Load configuration
	if err := root.loadConfig(opts); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Load precache manifest
	if err := root.loadManifest(opts); err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}

	// Initialize cache components
	if err := root.initCacheComponents(); err != nil {
		return nil, fmt.Errorf("failed to initialize cache components: %w", err)
	}

	// Initialize services
	if err := root.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	// Initialize HTTP server
	if err := root.initHTTPServer(); err != nil {
		return nil, fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	return root, nil
}

// initLogger initializes the application logger
func (r *CompositionRoot) initLogger() error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	r.Logger = logger
	redis.SetLogger(NewZapRedisLogger(logger))
	return nil
}

// loadConfig loads the application configuration
func (r *CompositionRoot) loadConfig(opts Options) error {
	env, err := config.LoadEnv()
	if err != nil {
		return err
	}
	r.Env = env

	configPath := opts.ConfigFile
	if configPath == "" {
		configPath = env.ConfigFile
	}

	cfg, err := config.LoadConfig(configPath, r.Logger)
	if errors.Is(err, fs.ErrNotExist) {
		r.Logger.Warn("Configuration file not found, using defaults", zap.String("path", configPath))
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return err
	}

	cfg.ApplyEnv(env)
	if err := cfg.Validate(); err != nil {
		return err
	}

	r.Config = cfg
	return nil
}

// loadManifest loads the precache manifest, falling back to the built-in one
func (r *CompositionRoot) loadManifest(opts Options) error {
	manifestPath := opts.ManifestFile
	if manifestPath == "" {
		manifestPath = r.Env.ManifestFile
	}

	m, err := manifest.LoadManifest(manifestPath, r.Logger)
	if errors.Is(err, fs.ErrNotExist) {
		r.Logger.Info("Manifest file not found, using built-in manifest", zap.String("path", manifestPath))
		m, err = manifest.Default(), nil
	}
	if err != nil {
		return err
	}

	if r.Env.Generation != "" && r.Env.Generation != m.Generation {
		if m, err = m.WithGeneration(r.Env.Generation); err != nil {
			return err
		}
	}

	r.Manifest = m
	return nil
}

// initCacheComponents initializes all cache-related components
func (r *CompositionRoot) initCacheComponents() error {
	var levels []multi.Level

	// Initialize L1 storage (BigCache)
	if r.Config.BigCache.Enabled {
		r.L1Storage = l1.NewStorage(&r.Config.BigCache, r.Logger)
		levels = append(levels, multi.Level{Name: models.CacheLevelL1, Storage: r.L1Storage})
		r.Logger.Info("BigCache (L1) initialized", zap.Int("size_mb", r.Config.BigCache.Size))
	} else {
		r.Logger.Info("BigCache (L1) disabled")
	}

	// Initialize L2 storage (KeyDB)
	levels = append(levels, multi.Level{Name: models.CacheLevelL2, Storage: r.initL2Storage()})

	r.Storage = multi.NewMultiStorage(levels, r.Config.MultiCache.EnablePropagation, r.Logger)

	// Initialize network fetcher and key builder
	fetcher, err := network.NewHTTPFetcher(&r.Config.Upstream, r.Logger)
	if err != nil {
		return err
	}
	r.Fetcher = fetcher
	r.KeyBuilder = cache.NewKeyBuilder(fetcher.Origin())

	return nil
}

// initL2Storage initializes the L2 storage (KeyDB)
func (r *CompositionRoot) initL2Storage() interfaces.CacheStorage {
	if !r.Config.KeyDB.Enabled {
		r.Logger.Info("KeyDB (L2) disabled")
		return noop.NewNoOpStorage()
	}

	keydbURL := GetKeyDBURL(r.Env, r.Logger)

	// Create KeyDB client
	keydbClient, err := l2.NewRedisKeyDbClient(&r.Config.KeyDB, keydbURL, r.Logger)
	if err != nil {
		r.Logger.Warn("Failed to connect to KeyDB, falling back to no L2 cache",
			zap.String("keydb_url", redactURL(keydbURL)),
			zap.Error(err))
		return noop.NewNoOpStorage()
	}

	r.L2Storage = l2.NewStorage(&r.Config.KeyDB, keydbClient, r.Logger)
	r.Logger.Info("KeyDB (L2) initialized", zap.String("keydb_url", redactURL(keydbURL)))
	return r.L2Storage
}

// initServices initializes application services
func (r *CompositionRoot) initServices() error {
	r.Registry = worker.NewRegistry(r.Storage, r.Fetcher, r.KeyBuilder, r.Logger)
	r.Interceptor = interceptor.NewInterceptor(r.Registry, r.Fetcher, r.KeyBuilder, r.Logger)
	return nil
}

// initHTTPServer initializes the HTTP server
func (r *CompositionRoot) initHTTPServer() error {
	proxy := interceptor.NewHandler(r.Interceptor, r.Fetcher.Origin(), r.Config.Upstream.MaxBodyBytes, r.Logger)
	r.HTTPServer = httpserver.NewServer(r.Registry, r.Manifest, proxy, &r.Config.Server, r.Logger)
	return nil
}

// Bootstrap resumes a stored generation and then installs and activates the manifest generation,
// retrying failed installs with backoff.
// The proxy serves throughout; requests pass through until a generation is active.
func (r *CompositionRoot) Bootstrap(ctx context.Context) {
	if resumed, err := r.Registry.Resume(r.Manifest); err != nil {
		r.Logger.Warn("Failed to resume stored generation", zap.Error(err))
	} else if resumed {
		r.Logger.Info("Serving stored generation until update completes")
	}

	_, err := r.Registry.UpdateWithRetry(ctx, r.Manifest, worker.RetryPolicy{
		InitialInterval: r.Config.Install.RetryInitialInterval,
		MaxInterval:     r.Config.Install.RetryMaxInterval,
		MaxElapsed:      r.Config.Install.RetryMaxElapsed,
	})
	switch {
	case err == nil:
	case errors.Is(err, worker.ErrAlreadyActive):
		r.Logger.Info("Manifest generation already active", zap.String("generation", r.Manifest.Generation))
	case errors.Is(err, context.Canceled):
		r.Logger.Info("Bootstrap canceled", zap.String("generation", r.Manifest.Generation))
	default:
		r.Logger.Error("Failed to update generation", zap.String("generation", r.Manifest.Generation), zap.Error(err))
	}
}

// Cleanup performs cleanup of all resources
func (r *CompositionRoot) Cleanup() error {
	var errs []error

	// Close L1 storage
	if r.L1Storage != nil {
		if err := r.L1Storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close L1 storage: %w", err))
		}
	}

	// Close L2 storage
	if r.L2Storage != nil {
		if err := r.L2Storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close L2 storage: %w", err))
		}
	}

	// Sync logger
	if r.Logger != nil {
		if err := r.Logger.Sync(); err != nil && !isSyncNoise(err) {
			errs = append(errs, fmt.Errorf("failed to sync logger: %w", err))
		}
	}

	return errors.Join(errs...)
}
