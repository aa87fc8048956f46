package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/ardiansr/mediqueue/config"
	"github.com/ardiansr/mediqueue/internal/domain"
	"github.com/ardiansr/mediqueue/pkg/metrics"
)

// ObjectStorage stores receipt artifacts in an S3-compatible object store
// over its HTTP API.
type ObjectStorage struct {
	baseURL    string
	apiKey     string
	bucket     string
	httpClient *http.Client
}

var _ domain.ArtifactStore = (*ObjectStorage)(nil)

// NewObjectStorage creates a new object storage client
func NewObjectStorage(cfg config.StorageConfig) *ObjectStorage {
	return &ObjectStorage{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		bucket:  cfg.Bucket,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Put uploads the artifact content under the given key
func (s *ObjectStorage) Put(ctx context.Context, key string, content []byte, contentType string) (domain.ArtifactRef, error) {
	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, key)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(content))
	if err != nil {
		return domain.ArtifactRef{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.apiKey))
	req.Header.Set("Content-Type", contentType)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		metrics.RecordStorageRequest("put", "error")
		return domain.ArtifactRef{}, fmt.Errorf("failed to upload artifact: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		metrics.RecordStorageRequest("put", "error")
		body, _ := io.ReadAll(resp.Body)
		return domain.ArtifactRef{}, fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(body))
	}

	metrics.RecordStorageRequest("put", "success")
	return domain.ArtifactRef{
		Key:         key,
		ContentType: contentType,
		Size:        int64(len(content)),
		URL:         s.publicURL(key),
	}, nil
}

// Delete removes the artifact stored under the given key
func (s *ObjectStorage) Delete(ctx context.Context, key string) error {
	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, key)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.apiKey))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		metrics.RecordStorageRequest("delete", "error")
		return fmt.Errorf("failed to delete artifact: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		metrics.RecordStorageRequest("delete", "error")
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("delete failed with status %d: %s", resp.StatusCode, string(body))
	}

	metrics.RecordStorageRequest("delete", "success")
	return nil
}

func (s *ObjectStorage) publicURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, key)
}

// MemoryStorage keeps artifacts in process memory. Used for development
// without an object store and in tests.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

type memoryObject struct {
	content     []byte
	contentType string
}

var _ domain.ArtifactStore = (*MemoryStorage)(nil)

// NewMemoryStorage creates an empty in-memory artifact store
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string]memoryObject)}
}

func (s *MemoryStorage) Put(_ context.Context, key string, content []byte, contentType string) (domain.ArtifactRef, error) {
	stored := make([]byte, len(content))
	copy(stored, content)

	s.mu.Lock()
	s.objects[key] = memoryObject{content: stored, contentType: contentType}
	s.mu.Unlock()

	return domain.ArtifactRef{
		Key:         key,
		ContentType: contentType,
		Size:        int64(len(content)),
	}, nil
}

func (s *MemoryStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

// Get returns a stored artifact's content and content type
func (s *MemoryStorage) Get(key string) ([]byte, string, bool) {
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, "", false
	}
	out := make([]byte, len(obj.content))
	copy(out, obj.content)
	return out, obj.contentType, true
}

// Len reports the number of stored artifacts
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
