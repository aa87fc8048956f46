package api

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ardiansr/mediqueue/config"
	"github.com/ardiansr/mediqueue/internal/domain"
	"github.com/ardiansr/mediqueue/pkg/logger"
	"github.com/ardiansr/mediqueue/pkg/xresponse"
	"github.com/gin-gonic/gin"
)

// ReceiptHandler handles receipt intake and queue HTTP requests
type ReceiptHandler struct {
	receiptUC domain.ReceiptUsecase
	cfg       *config.Config
}

// NewReceiptHandler creates a new receipt handler
func NewReceiptHandler(receiptUC domain.ReceiptUsecase, cfg *config.Config) *ReceiptHandler {
	return &ReceiptHandler{
		receiptUC: receiptUC,
		cfg:       cfg,
	}
}

// receiptResponse is the receipt payload served to clients
type receiptResponse struct {
	ID            string     `json:"id"`
	ReceiptCode   string     `json:"receipt_code"`
	HospitalID    string     `json:"hospital_id"`
	HospitalName  string     `json:"hospital_name,omitempty"`
	DoctorID      *string    `json:"doctor_id,omitempty"`
	Symptoms      *string    `json:"symptoms,omitempty"`
	SeverityScore float64    `json:"severity_score"`
	SeverityTier  string     `json:"severity_tier"`
	Status        string     `json:"status"`
	QueuePosition int        `json:"queue_position"`
	UploadedAt    time.Time  `json:"uploaded_at"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

func toReceiptResponse(r *domain.Receipt, hospitalName string) *receiptResponse {
	return &receiptResponse{
		ID:            r.ID,
		ReceiptCode:   r.ReceiptCode,
		HospitalID:    r.HospitalID,
		HospitalName:  hospitalName,
		DoctorID:      r.DoctorID,
		Symptoms:      r.Symptoms,
		SeverityScore: r.SeverityScore,
		SeverityTier:  domain.TierName(r.SeverityTier),
		Status:        r.Status,
		QueuePosition: r.QueuePosition,
		UploadedAt:    r.UploadedAt,
		ProcessedAt:   r.ProcessedAt,
		CompletedAt:   r.CompletedAt,
	}
}

// UploadReceipt handles POST /api/v1/receipts (multipart form)
func (h *ReceiptHandler) UploadReceipt(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		xresponse.Unauthorized(c, "User not authenticated")
		return
	}

	hospitalID := strings.TrimSpace(c.PostForm("hospital_id"))
	if hospitalID == "" {
		xresponse.BadRequest(c, "hospital_id is required")
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		xresponse.BadRequest(c, "image file is required")
		return
	}
	if h.cfg.API.MaxUploadBytes > 0 && fileHeader.Size > h.cfg.API.MaxUploadBytes {
		xresponse.PayloadTooLarge(c, fmt.Sprintf("image exceeds %d bytes", h.cfg.API.MaxUploadBytes))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		xresponse.InternalServerError(c, "Failed to read uploaded file")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		xresponse.InternalServerError(c, "Failed to read uploaded file")
		return
	}

	input := &domain.UploadInput{
		UserID:      userID,
		HospitalID:  hospitalID,
		Image:       content,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Filename:    fileHeader.Filename,
		Symptoms:    c.PostForm("symptoms"),
	}

	receipt, hospitalName, err := h.receiptUC.UploadReceipt(c.Request.Context(), input)
	if err != nil {
		h.handleReceiptError(c, err)
		return
	}

	xresponse.Created(c, "Receipt uploaded", toReceiptResponse(receipt, hospitalName))
}

// ListReceipts handles GET /api/v1/receipts. Responses carry X-Cache and
// Cache-Control headers; Cache-Control: no-cache on the request bypasses
// the server-side cache.
func (h *ReceiptHandler) ListReceipts(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		xresponse.Unauthorized(c, "User not authenticated")
		return
	}

	bypass := strings.Contains(strings.ToLower(c.GetHeader("Cache-Control")), "no-cache") ||
		c.Query("refresh") == "true"

	summaries, cacheHit, err := h.receiptUC.ListUserReceipts(c.Request.Context(), userID, bypass)
	if err != nil {
		h.handleReceiptError(c, err)
		return
	}

	if cacheHit {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}
	c.Header("Cache-Control", fmt.Sprintf("private, max-age=%d", int(h.cfg.Cache.TTL.Seconds())))

	xresponse.Success(c, "Receipts retrieved", gin.H{
		"receipts": summaries,
		"count":    len(summaries),
	})
}

// GetReceipt handles GET /api/v1/receipts/:id
func (h *ReceiptHandler) GetReceipt(c *gin.Context) {
	userID := c.GetString("user_id")
	role := c.GetString("user_role")

	receipt, err := h.receiptUC.GetReceipt(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleReceiptError(c, err)
		return
	}

	if !domain.CanReadReceipt(userID, role, receipt.UserID) {
		xresponse.Forbidden(c, "Access denied")
		return
	}

	xresponse.Success(c, "Receipt retrieved", toReceiptResponse(receipt, ""))
}

// ClearReceipts handles DELETE /api/v1/receipts
func (h *ReceiptHandler) ClearReceipts(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		xresponse.Unauthorized(c, "User not authenticated")
		return
	}

	if err := h.receiptUC.ClearUserReceipts(c.Request.Context(), userID); err != nil {
		h.handleReceiptError(c, err)
		return
	}

	xresponse.Success(c, "Receipts cleared", nil)
}

// updateStatusRequest is the PATCH /receipts/:id/status payload
type updateStatusRequest struct {
	Status   string  `json:"status" binding:"required"`
	DoctorID *string `json:"doctor_id"`
}

// UpdateStatus handles PATCH /api/v1/receipts/:id/status
func (h *ReceiptHandler) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		xresponse.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	receipt, err := h.receiptUC.UpdateStatus(c.Request.Context(), c.Param("id"), strings.ToUpper(req.Status), req.DoctorID)
	if err != nil {
		h.handleReceiptError(c, err)
		return
	}

	xresponse.Success(c, "Status updated", toReceiptResponse(receipt, ""))
}

// GetHospitalQueue handles GET /api/v1/hospitals/:id/queue
func (h *ReceiptHandler) GetHospitalQueue(c *gin.Context) {
	hospitalID := c.Param("id")

	receipts, err := h.receiptUC.ListHospitalQueue(c.Request.Context(), hospitalID)
	if err != nil {
		h.handleReceiptError(c, err)
		return
	}

	queue := make([]*receiptResponse, 0, len(receipts))
	for _, r := range receipts {
		queue = append(queue, toReceiptResponse(r, ""))
	}

	xresponse.Success(c, "Hospital queue retrieved", gin.H{
		"hospital_id": hospitalID,
		"queue":       queue,
		"depth":       len(queue),
	})
}

// handleReceiptError maps domain errors onto HTTP responses
func (h *ReceiptHandler) handleReceiptError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		xresponse.BadRequest(c, err.Error())
	case errors.Is(err, domain.ErrHospitalNotFound):
		xresponse.HospitalNotFound(c, "Hospital not found")
	case errors.Is(err, domain.ErrReceiptNotFound):
		xresponse.ReceiptNotFound(c, "Receipt not found")
	case errors.Is(err, domain.ErrInvalidTransition):
		xresponse.InvalidTransition(c, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		xresponse.Forbidden(c, "Access denied")
	case errors.Is(err, domain.ErrQueueBusy):
		xresponse.QueueBusy(c, h.cfg.Queue.LockWait, "Queue is busy, please retry")
	default:
		logger.Error("Receipt request failed",
			logger.String("path", c.Request.URL.Path),
			logger.ErrorField(err),
		)
		xresponse.InternalServerError(c, "Internal server error")
	}
}
