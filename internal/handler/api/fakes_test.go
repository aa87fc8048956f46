package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/ardiansr/mediqueue/config"
	"github.com/ardiansr/mediqueue/internal/domain"
	authpkg "github.com/ardiansr/mediqueue/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubReceiptUC dispatches to per-test function fields so each test wires
// only the operations it exercises.
type stubReceiptUC struct {
	uploadFn func(ctx context.Context, in *domain.UploadInput) (*domain.Receipt, string, error)
	getFn    func(ctx context.Context, id string) (*domain.Receipt, error)
	listFn   func(ctx context.Context, userID string, bypassCache bool) ([]*domain.ReceiptSummary, bool, error)
	queueFn  func(ctx context.Context, hospitalID string) ([]*domain.Receipt, error)
	updateFn func(ctx context.Context, receiptID, newStatus string, doctorID *string) (*domain.Receipt, error)
	clearFn  func(ctx context.Context, userID string) error
}

var _ domain.ReceiptUsecase = (*stubReceiptUC)(nil)

func (s *stubReceiptUC) UploadReceipt(ctx context.Context, in *domain.UploadInput) (*domain.Receipt, string, error) {
	if s.uploadFn == nil {
		return nil, "", fmt.Errorf("unexpected UploadReceipt call")
	}
	return s.uploadFn(ctx, in)
}

func (s *stubReceiptUC) GetReceipt(ctx context.Context, id string) (*domain.Receipt, error) {
	if s.getFn == nil {
		return nil, fmt.Errorf("unexpected GetReceipt call")
	}
	return s.getFn(ctx, id)
}

func (s *stubReceiptUC) ListUserReceipts(ctx context.Context, userID string, bypassCache bool) ([]*domain.ReceiptSummary, bool, error) {
	if s.listFn == nil {
		return nil, false, fmt.Errorf("unexpected ListUserReceipts call")
	}
	return s.listFn(ctx, userID, bypassCache)
}

func (s *stubReceiptUC) ListHospitalQueue(ctx context.Context, hospitalID string) ([]*domain.Receipt, error) {
	if s.queueFn == nil {
		return nil, fmt.Errorf("unexpected ListHospitalQueue call")
	}
	return s.queueFn(ctx, hospitalID)
}

func (s *stubReceiptUC) UpdateStatus(ctx context.Context, receiptID, newStatus string, doctorID *string) (*domain.Receipt, error) {
	if s.updateFn == nil {
		return nil, fmt.Errorf("unexpected UpdateStatus call")
	}
	return s.updateFn(ctx, receiptID, newStatus, doctorID)
}

func (s *stubReceiptUC) ClearUserReceipts(ctx context.Context, userID string) error {
	if s.clearFn == nil {
		return fmt.Errorf("unexpected ClearUserReceipts call")
	}
	return s.clearFn(ctx, userID)
}

// stubHospitalRepo is an in-memory hospital directory.
type stubHospitalRepo struct {
	mu         sync.Mutex
	hospitals  map[string]*domain.Hospital
	doctors    map[string][]*domain.Doctor
	lastActive bool
}

var _ domain.HospitalRepository = (*stubHospitalRepo)(nil)

func newStubHospitalRepo() *stubHospitalRepo {
	return &stubHospitalRepo{
		hospitals: make(map[string]*domain.Hospital),
		doctors:   make(map[string][]*domain.Doctor),
	}
}

func (r *stubHospitalRepo) Create(ctx context.Context, hospital *domain.Hospital) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hospitals[hospital.ID] = hospital
	return nil
}

func (r *stubHospitalRepo) GetByID(ctx context.Context, id string) (*domain.Hospital, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hospitals[id], nil
}

func (r *stubHospitalRepo) List(ctx context.Context, activeOnly bool) ([]*domain.Hospital, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastActive = activeOnly

	out := make([]*domain.Hospital, 0, len(r.hospitals))
	for _, h := range r.hospitals {
		if activeOnly && !h.IsActive {
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

func (r *stubHospitalRepo) GetDoctor(ctx context.Context, id string) (*domain.Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, docs := range r.doctors {
		for _, d := range docs {
			if d.ID == id {
				return d, nil
			}
		}
	}
	return nil, nil
}

func (r *stubHospitalRepo) ListDoctors(ctx context.Context, hospitalID string) ([]*domain.Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.doctors[hospitalID], nil
}

// stubUserRepo is an in-memory account store keyed by email.
type stubUserRepo struct {
	mu        sync.Mutex
	users     map[string]*domain.User
	lastLogin map[string]time.Time
}

var _ domain.UserRepository = (*stubUserRepo)(nil)

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{
		users:     make(map[string]*domain.User),
		lastLogin: make(map[string]time.Time),
	}
}

func (r *stubUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[user.Email]; exists {
		return fmt.Errorf("%w: email already registered", domain.ErrInvalidInput)
	}
	r.users[user.Email] = user
	return nil
}

func (r *stubUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (r *stubUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[email], nil
}

func (r *stubUserRepo) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastLogin[id] = at
	return nil
}

// --- Harness ---

func newHandlerConfig() *config.Config {
	return &config.Config{
		API:   config.APIConfig{TimeoutSeconds: 5, MaxUploadBytes: 1 << 20},
		Queue: config.QueueConfig{LockWait: 2 * time.Second},
		Cache: config.CacheConfig{TTL: 5 * time.Minute},
	}
}

func newAuthService() domain.AuthService {
	return authpkg.NewJWTAuthService(config.AuthConfig{
		AccessSecret:   "handler-test-secret",
		Issuer:         "mediqueue",
		Audience:       "mediqueue-clients",
		AccessTokenTTL: time.Hour,
	})
}

func newTestRouter(receiptUC domain.ReceiptUsecase, hospitalRepo domain.HospitalRepository, userRepo domain.UserRepository) (*gin.Engine, domain.AuthService) {
	authService := newAuthService()
	router := gin.New()
	SetupRoutes(router,
		NewReceiptHandler(receiptUC, newHandlerConfig()),
		NewHospitalHandler(hospitalRepo),
		NewAuthHandler(userRepo, authService),
		authService,
	)
	return router, authService
}

func tokenFor(t *testing.T, authService domain.AuthService, userID, role string) string {
	t.Helper()
	token, err := authService.GenerateAccessToken(&domain.User{ID: userID, Role: role})
	require.NoError(t, err)
	return token
}

// buildUploadForm assembles a multipart receipt upload body.
func buildUploadForm(t *testing.T, hospitalID, symptoms string, image []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if hospitalID != "" {
		require.NoError(t, writer.WriteField("hospital_id", hospitalID))
	}
	if symptoms != "" {
		require.NoError(t, writer.WriteField("symptoms", symptoms))
	}
	if image != nil {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="image"; filename="receipt.png"`)
		header.Set("Content-Type", "image/png")
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

func doRequest(t *testing.T, router *gin.Engine, method, path, token, contentType string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	return doRequest(t, router, method, path, token, "application/json", body)
}

// envelope mirrors the wire format shared by success and error responses.
type envelope struct {
	Code      int             `json:"code"`
	Status    string          `json:"status"`
	ErrorCode string          `json:"error_code"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	return env
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	env := decodeEnvelope(t, rec)
	require.NotEmpty(t, env.Data, "body: %s", rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, target))
}
