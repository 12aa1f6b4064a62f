package manifest

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DefaultGeneration is the generation tag shipped with the site
const DefaultGeneration = "portfolio-cache-v2"

// DefaultOfflineFallback is the document served to failed navigations
const DefaultOfflineFallback = "/offline.html"

// Manifest lists the assets pre-cached when a generation is installed
type Manifest struct {
	Generation      string   `yaml:"generation" validate:"required,printascii"`
	OfflineFallback string   `yaml:"offline_fallback" validate:"required,startswith=/"`
	Assets          []string `yaml:"assets" validate:"required,min=1,unique,dive,required"`
}

var validate = validator.New()

// Default returns the critical assets of the portfolio site
func Default() *Manifest {
	return &Manifest{
		Generation:      DefaultGeneration,
		OfflineFallback: DefaultOfflineFallback,
		Assets: []string{
			"/",
			"/index.html",
			"/css/main.css",
			"/js/main.js",
			"/js/theme.js",
			"/js/navigation.js",
			"/assets/icons/favicon.svg",
			"/assets/icons/apple-touch-icon.png",
			"/manifest.json",
			DefaultOfflineFallback,
		},
	}
}

// LoadManifest loads a precache manifest from a YAML file
func LoadManifest(path string, logger *zap.Logger) (*Manifest, error) {
	logger.Info("Loading precache manifest", zap.String("path", path))

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest file: %w", err)
	}
	defer file.Close()

	var m Manifest
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode YAML manifest: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("manifest validation failed: %w", err)
	}

	logger.Info("Precache manifest loaded",
		zap.String("generation", m.Generation),
		zap.Int("assets", len(m.Assets)))

	return &m, nil
}

// Validate checks the manifest structure
func (m *Manifest) Validate() error {
	if err := validate.Struct(m); err != nil {
		return err
	}

	// The fallback must be pre-cached or it cannot be served offline
	if !slices.Contains(m.Assets, m.OfflineFallback) {
		return fmt.Errorf("offline fallback %q is not listed in assets", m.OfflineFallback)
	}

	return nil
}

// WithGeneration returns a copy of the manifest under another generation tag
func (m *Manifest) WithGeneration(generation string) (*Manifest, error) {
	if generation == "" {
		return nil, errors.New("generation cannot be empty")
	}

	return &Manifest{
		Generation:      generation,
		OfflineFallback: m.OfflineFallback,
		Assets:          slices.Clone(m.Assets),
	}, nil
}
