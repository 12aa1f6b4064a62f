package interfaces

//go:generate mockgen -package=mock -source=keybuilder.go -destination=mock/keybuilder.go

// KeyBuilder canonizes request URLs into deterministic cache keys
type KeyBuilder interface {
	// For single request URL, absolute or origin-relative
	Build(rawURL string) (string, error)
	// For batch, returns per-item keys aligned by index
	BuildBatch(rawURLs []string) ([]string, error)
}
