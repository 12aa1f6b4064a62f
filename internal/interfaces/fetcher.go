package interfaces

import (
	"context"

	"go-offline-cache/internal/models"
)

//go:generate mockgen -package=mock -source=fetcher.go -destination=mock/fetcher.go

// Fetcher issues requests to the network
type Fetcher interface {
	// Fetch returns the upstream response; an error means no response was received at all.
	// The caller closes streamed responses.
	Fetch(ctx context.Context, req *models.FetchRequest) (*models.Response, error)
}
