package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ardiansr/mediqueue/config"
	"github.com/ardiansr/mediqueue/internal/domain"
	"github.com/ardiansr/mediqueue/pkg/metrics"
)

const classifyEndpoint = "/v1/classify"

// Adapter calls the remote severity inference service. It translates the
// domain abstraction into the concrete HTTP call, keeping auth headers,
// timeout, and payload structure in one place.
type Adapter struct {
	cfg        config.ClassifierConfig
	boundaries domain.TierBoundaries
	httpClient *http.Client
	timeout    time.Duration
}

// NewAdapter creates a new inference adapter instance
func NewAdapter(cfg config.ClassifierConfig, boundaries domain.TierBoundaries, client *http.Client) *Adapter {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	return &Adapter{
		cfg:        cfg,
		boundaries: boundaries,
		httpClient: client,
		timeout:    timeout,
	}
}

var _ domain.SeverityClassifier = (*Adapter)(nil)

// Classify sends the artifact reference and symptom text to the inference
// service and maps the returned score onto a tier.
func (a *Adapter) Classify(ctx context.Context, ref domain.ArtifactRef, symptomText string) (domain.Severity, error) {
	payload := &classifyRequest{
		ArtifactKey: ref.Key,
		ArtifactURL: ref.URL,
		ContentType: ref.ContentType,
		Symptoms:    symptomText,
	}

	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	var response classifyResponse
	if err := a.doPost(reqCtx, classifyEndpoint, payload, &response); err != nil {
		metrics.RecordClassifierRequest("error", time.Since(start).Seconds())
		return domain.Severity{}, fmt.Errorf("%w: %v", domain.ErrClassifierUnavailable, err)
	}
	metrics.RecordClassifierRequest("success", time.Since(start).Seconds())

	score := response.Score
	if score < 0 {
		score = 0
	}
	if score > 10 {
		score = 10
	}

	return domain.Severity{
		Score: score,
		Tier:  a.boundaries.TierFor(score),
	}, nil
}

func (a *Adapter) doPost(ctx context.Context, path string, payload interface{}, target interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint(path), bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if a.cfg.APIKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", a.cfg.APIKey))
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("classifier request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("failed to decode classifier response: %w", err)
	}

	return nil
}

func (a *Adapter) endpoint(path string) string {
	base := strings.TrimRight(a.cfg.BaseURL, "/")
	return base + path
}

// --- Inference service DTOs ---

type classifyRequest struct {
	ArtifactKey string `json:"artifact_key"`
	ArtifactURL string `json:"artifact_url,omitempty"`
	ContentType string `json:"content_type"`
	Symptoms    string `json:"symptoms"`
}

type classifyResponse struct {
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	Model      string  `json:"model"`
}
