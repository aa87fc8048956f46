package domain

import (
	"context"
)

// ArtifactRef points at a durably stored receipt image
type ArtifactRef struct {
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	URL         string `json:"url,omitempty"`
}

// ArtifactStore defines durable storage for uploaded receipt images
type ArtifactStore interface {
	Put(ctx context.Context, key string, content []byte, contentType string) (ArtifactRef, error)
	Delete(ctx context.Context, key string) error
}
