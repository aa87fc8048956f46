package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardiansr/mediqueue/internal/domain"
)

func sampleReceipt(id, userID, hospitalID string) *domain.Receipt {
	return &domain.Receipt{
		ID:            id,
		ReceiptCode:   "RCP-20250601-0001",
		UserID:        userID,
		HospitalID:    hospitalID,
		ArtifactRef:   "receipts/" + hospitalID + "/" + id + ".png",
		SeverityScore: 5.0,
		SeverityTier:  domain.TierMedium,
		Status:        domain.StatusQueued,
		QueuePosition: 1,
		UploadedAt:    time.Now().UTC(),
	}
}

func TestUploadReceiptCreated(t *testing.T) {
	var gotInput *domain.UploadInput
	uc := &stubReceiptUC{
		uploadFn: func(ctx context.Context, in *domain.UploadInput) (*domain.Receipt, string, error) {
			gotInput = in
			return sampleReceipt("r1", in.UserID, in.HospitalID), "City General", nil
		},
	}
	router, authService := newTestRouter(uc, newStubHospitalRepo(), newStubUserRepo())
	token := tokenFor(t, authService, "u1", domain.RolePatient)

	body, contentType := buildUploadForm(t, "h1", "fever and cough", []byte("png bytes"))
	rec := doRequest(t, router, http.MethodPost, "/api/v1/receipts", token, contentType, body)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		ReceiptCode   string `json:"receipt_code"`
		HospitalName  string `json:"hospital_name"`
		SeverityTier  string `json:"severity_tier"`
		QueuePosition int    `json:"queue_position"`
	}
	decodeData(t, rec, &resp)
	assert.Equal(t, "RCP-20250601-0001", resp.ReceiptCode)
	assert.Equal(t, "City General", resp.HospitalName)
	assert.Equal(t, "MEDIUM", resp.SeverityTier)
	assert.Equal(t, 1, resp.QueuePosition)

	require.NotNil(t, gotInput)
	assert.Equal(t, "u1", gotInput.UserID)
	assert.Equal(t, "h1", gotInput.HospitalID)
	assert.Equal(t, "fever and cough", gotInput.Symptoms)
	assert.Equal(t, "image/png", gotInput.ContentType)
	assert.Equal(t, []byte("png bytes"), gotInput.Image)
}

func TestUploadReceiptRequiresToken(t *testing.T) {
	router, _ := newTestRouter(&stubReceiptUC{}, newStubHospitalRepo(), newStubUserRepo())

	body, contentType := buildUploadForm(t, "h1", "", []byte("png bytes"))
	rec := doRequest(t, router, http.MethodPost, "/api/v1/receipts", "", contentType, body)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decodeEnvelope(t, rec).ErrorCode)
}

func TestUploadReceiptRejectsGarbageToken(t *testing.T) {
	router, _ := newTestRouter(&stubReceiptUC{}, newStubHospitalRepo(), newStubUserRepo())

	body, contentType := buildUploadForm(t, "h1", "", []byte("png bytes"))
	rec := doRequest(t, router, http.MethodPost, "/api/v1/receipts", "not-a-jwt", contentType, body)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUploadReceiptMissingHospitalID(t *testing.T) {
	router, authService := newTestRouter(&stubReceiptUC{}, newStubHospitalRepo(), newStubUserRepo())
	token := tokenFor(t, authService, "u1", domain.RolePatient)

	body, contentType := buildUploadForm(t, "", "", []byte("png bytes"))
	rec := doRequest(t, router, http.MethodPost, "/api/v1/receipts", token, contentType, body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeEnvelope(t, rec).Message, "hospital_id")
}

func TestUploadReceiptMissingImage(t *testing.T) {
	router, authService := newTestRouter(&stubReceiptUC{}, newStubHospitalRepo(), newStubUserRepo())
	token := tokenFor(t, authService, "u1", domain.RolePatient)

	body, contentType := buildUploadForm(t, "h1", "fever", nil)
	rec := doRequest(t, router, http.MethodPost, "/api/v1/receipts", token, contentType, body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeEnvelope(t, rec).Message, "image")
}

func TestUploadReceiptTooLarge(t *testing.T) {
	router, authService := newTestRouter(&stubReceiptUC{}, newStubHospitalRepo(), newStubUserRepo())
	token := tokenFor(t, authService, "u1", domain.RolePatient)

	oversized := bytes.Repeat([]byte("a"), (1<<20)+1)
	body, contentType := buildUploadForm(t, "h1", "", oversized)
	rec := doRequest(t, router, http.MethodPost, "/api/v1/receipts", token, contentType, body)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "PAYLOAD_TOO_LARGE", decodeEnvelope(t, rec).ErrorCode)
}

func TestUploadReceiptQueueBusy(t *testing.T) {
	uc := &stubReceiptUC{
		uploadFn: func(ctx context.Context, in *domain.UploadInput) (*domain.Receipt, string, error) {
			return nil, "", domain.ErrQueueBusy
		},
	}
	router, authService := newTestRouter(uc, newStubHospitalRepo(), newStubUserRepo())
	token := tokenFor(t, authService, "u1", domain.RolePatient)

	body, contentType := buildUploadForm(t, "h1", "", []byte("png bytes"))
	rec := doRequest(t, router, http.MethodPost, "/api/v1/receipts", token, contentType, body)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.Equal(t, "QUEUE_BUSY", decodeEnvelope(t, rec).ErrorCode)
}

func TestUploadReceiptUnknownHospital(t *testing.T) {
	uc := &stubReceiptUC{
		uploadFn: func(ctx context.Context, in *domain.UploadInput) (*domain.Receipt, string, error) {
			return nil, "", domain.ErrHospitalNotFound
		},
	}
	router, authService := newTestRouter(uc, newStubHospitalRepo(), newStubUserRepo())
	token := tokenFor(t, authService, "u1", domain.RolePatient)

	body, contentType := buildUploadForm(t, "missing", "", []byte("png bytes"))
	rec := doRequest(t, router, http.MethodPost, "/api/v1/receipts", token, contentType, body)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "HOSPITAL_NOT_FOUND", decodeEnvelope(t, rec).ErrorCode)
}

func TestListReceiptsCacheHeaders(t *testing.T) {
	hit := false
	var gotBypass bool
	uc := &stubReceiptUC{
		listFn: func(ctx context.Context, userID string, bypassCache bool) ([]*domain.ReceiptSummary, bool, error) {
			gotBypass = bypassCache
			return []*domain.ReceiptSummary{{ID: "r1", Status: domain.StatusQueued}}, hit, nil
		},
	}
	router, authService := newTestRouter(uc, newStubHospitalRepo(), newStubUserRepo())
	token := tokenFor(t, authService, "u1", domain.RolePatient)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/receipts", token, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, "private, max-age=300", rec.Header().Get("Cache-Control"))
	assert.False(t, gotBypass)

	hit = true
	rec = doRequest(t, router, http.MethodGet, "/api/v1/receipts", token, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))

	var resp struct {
		Receipts []struct {
			ID string `json:"id"`
		} `json:"receipts"`
		Count int `json:"count"`
	}
	decodeData(t, rec, &resp)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "r1", resp.Receipts[0].ID)
}

func TestListReceiptsBypassesCacheOnNoCache(t *testing.T) {
	var gotBypass bool
	uc := &stubReceiptUC{
		listFn: func(ctx context.Context, userID string, bypassCache bool) ([]*domain.ReceiptSummary, bool, error) {
			gotBypass = bypassCache
			return nil, false, nil
		},
	}
	router, authService := newTestRouter(uc, newStubHospitalRepo(), newStubUserRepo())
	token := tokenFor(t, authService, "u1", domain.RolePatient)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/receipts?refresh=true", token, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, gotBypass, "refresh=true must bypass the cache")

	gotBypass = false
	req := httptest.NewRequest(http.MethodGet, "/api/v1/receipts", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Cache-Control", "no-cache")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, gotBypass, "Cache-Control: no-cache must bypass the cache")
}

func TestGetReceiptOwnership(t *testing.T) {
	uc := &stubReceiptUC{
		getFn: func(ctx context.Context, id string) (*domain.Receipt, error) {
			return sampleReceipt(id, "owner", "h1"), nil
		},
	}
	router, authService := newTestRouter(uc, newStubHospitalRepo(), newStubUserRepo())

	rec := doRequest(t, router, http.MethodGet, "/api/v1/receipts/r1", tokenFor(t, authService, "owner", domain.RolePatient), "", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "owner can read")

	rec = doRequest(t, router, http.MethodGet, "/api/v1/receipts/r1", tokenFor(t, authService, "stranger", domain.RolePatient), "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, "other patients cannot read")

	rec = doRequest(t, router, http.MethodGet, "/api/v1/receipts/r1", tokenFor(t, authService, "staff", domain.RoleHospital), "", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "hospital staff can read for triage")
}

func TestGetReceiptNotFound(t *testing.T) {
	uc := &stubReceiptUC{
		getFn: func(ctx context.Context, id string) (*domain.Receipt, error) {
			return nil, domain.ErrReceiptNotFound
		},
	}
	router, authService := newTestRouter(uc, newStubHospitalRepo(), newStubUserRepo())

	rec := doRequest(t, router, http.MethodGet, "/api/v1/receipts/missing", tokenFor(t, authService, "u1", domain.RolePatient), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "RECEIPT_NOT_FOUND", decodeEnvelope(t, rec).ErrorCode)
}

func TestUpdateStatusRequiresQueueManager(t *testing.T) {
	router, authService := newTestRouter(&stubReceiptUC{}, newStubHospitalRepo(), newStubUserRepo())

	rec := doJSON(t, router, http.MethodPatch, "/api/v1/receipts/r1/status",
		tokenFor(t, authService, "u1", domain.RolePatient),
		gin.H{"status": "PROCESSING"})

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpdateStatusAsHospitalStaff(t *testing.T) {
	var gotStatus string
	var gotDoctor *string
	uc := &stubReceiptUC{
		updateFn: func(ctx context.Context, receiptID, newStatus string, doctorID *string) (*domain.Receipt, error) {
			gotStatus = newStatus
			gotDoctor = doctorID
			r := sampleReceipt(receiptID, "owner", "h1")
			r.Status = newStatus
			return r, nil
		},
	}
	router, authService := newTestRouter(uc, newStubHospitalRepo(), newStubUserRepo())
	token := tokenFor(t, authService, "staff", domain.RoleHospital)

	doctorID := "d1"
	rec := doJSON(t, router, http.MethodPatch, "/api/v1/receipts/r1/status", token,
		gin.H{"status": "processing", "doctor_id": doctorID})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.StatusProcessing, gotStatus, "status is uppercased before the usecase sees it")
	require.NotNil(t, gotDoctor)
	assert.Equal(t, "d1", *gotDoctor)
}

func TestUpdateStatusInvalidTransition(t *testing.T) {
	uc := &stubReceiptUC{
		updateFn: func(ctx context.Context, receiptID, newStatus string, doctorID *string) (*domain.Receipt, error) {
			return nil, domain.ErrInvalidTransition
		},
	}
	router, authService := newTestRouter(uc, newStubHospitalRepo(), newStubUserRepo())
	token := tokenFor(t, authService, "staff", domain.RoleHospital)

	rec := doJSON(t, router, http.MethodPatch, "/api/v1/receipts/r1/status", token,
		gin.H{"status": "QUEUED"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_TRANSITION", decodeEnvelope(t, rec).ErrorCode)
}

func TestUpdateStatusMissingStatusField(t *testing.T) {
	router, authService := newTestRouter(&stubReceiptUC{}, newStubHospitalRepo(), newStubUserRepo())
	token := tokenFor(t, authService, "staff", domain.RoleHospital)

	rec := doJSON(t, router, http.MethodPatch, "/api/v1/receipts/r1/status", token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClearReceipts(t *testing.T) {
	var clearedUser string
	uc := &stubReceiptUC{
		clearFn: func(ctx context.Context, userID string) error {
			clearedUser = userID
			return nil
		},
	}
	router, authService := newTestRouter(uc, newStubHospitalRepo(), newStubUserRepo())
	token := tokenFor(t, authService, "u1", domain.RolePatient)

	rec := doRequest(t, router, http.MethodDelete, "/api/v1/receipts", token, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", clearedUser)
}

func TestGetHospitalQueue(t *testing.T) {
	uc := &stubReceiptUC{
		queueFn: func(ctx context.Context, hospitalID string) ([]*domain.Receipt, error) {
			first := sampleReceipt("r1", "u1", hospitalID)
			second := sampleReceipt("r2", "u2", hospitalID)
			second.QueuePosition = 2
			return []*domain.Receipt{first, second}, nil
		},
	}
	router, authService := newTestRouter(uc, newStubHospitalRepo(), newStubUserRepo())

	rec := doRequest(t, router, http.MethodGet, "/api/v1/hospitals/h1/queue",
		tokenFor(t, authService, "staff", domain.RoleHospital), "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		HospitalID string `json:"hospital_id"`
		Depth      int    `json:"depth"`
		Queue      []struct {
			ID            string `json:"id"`
			QueuePosition int    `json:"queue_position"`
		} `json:"queue"`
	}
	decodeData(t, rec, &resp)
	assert.Equal(t, "h1", resp.HospitalID)
	assert.Equal(t, 2, resp.Depth)
	assert.Equal(t, 1, resp.Queue[0].QueuePosition)
	assert.Equal(t, 2, resp.Queue[1].QueuePosition)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/hospitals/h1/queue",
		tokenFor(t, authService, "u1", domain.RolePatient), "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, "patients cannot inspect hospital queues")
}
