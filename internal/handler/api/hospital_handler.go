package api

import (
	"errors"
	"strings"

	"github.com/ardiansr/mediqueue/internal/domain"
	"github.com/ardiansr/mediqueue/pkg/logger"
	"github.com/ardiansr/mediqueue/pkg/utils"
	"github.com/ardiansr/mediqueue/pkg/xresponse"
	"github.com/gin-gonic/gin"
)

// HospitalHandler handles hospital directory HTTP requests
type HospitalHandler struct {
	hospitalRepo domain.HospitalRepository
}

// NewHospitalHandler creates a new hospital handler
func NewHospitalHandler(hospitalRepo domain.HospitalRepository) *HospitalHandler {
	return &HospitalHandler{hospitalRepo: hospitalRepo}
}

// ListHospitals handles GET /api/v1/hospitals
func (h *HospitalHandler) ListHospitals(c *gin.Context) {
	activeOnly := c.Query("all") != "true"

	hospitals, err := h.hospitalRepo.List(c.Request.Context(), activeOnly)
	if err != nil {
		logger.Error("Failed to list hospitals", logger.ErrorField(err))
		xresponse.InternalServerError(c, "Failed to list hospitals")
		return
	}

	xresponse.Success(c, "Hospitals retrieved", gin.H{
		"hospitals": hospitals,
		"count":     len(hospitals),
	})
}

// GetHospital handles GET /api/v1/hospitals/:id
func (h *HospitalHandler) GetHospital(c *gin.Context) {
	hospital, err := h.hospitalRepo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		logger.Error("Failed to get hospital", logger.ErrorField(err))
		xresponse.InternalServerError(c, "Failed to get hospital")
		return
	}
	if hospital == nil {
		xresponse.HospitalNotFound(c, "Hospital not found")
		return
	}

	xresponse.Success(c, "Hospital retrieved", hospital)
}

// createHospitalRequest is the POST /hospitals payload
type createHospitalRequest struct {
	Name    string  `json:"name" binding:"required"`
	Address *string `json:"address"`
	Phone   *string `json:"phone"`
}

// CreateHospital handles POST /api/v1/hospitals (admin only)
func (h *HospitalHandler) CreateHospital(c *gin.Context) {
	var req createHospitalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		xresponse.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		xresponse.BadRequest(c, "name is required")
		return
	}

	hospital := &domain.Hospital{
		ID:       utils.GenerateUUID(),
		Name:     strings.TrimSpace(req.Name),
		Address:  req.Address,
		Phone:    req.Phone,
		IsActive: true,
	}

	if err := h.hospitalRepo.Create(c.Request.Context(), hospital); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			xresponse.BadRequest(c, err.Error())
			return
		}
		logger.Error("Failed to create hospital", logger.ErrorField(err))
		xresponse.InternalServerError(c, "Failed to create hospital")
		return
	}

	xresponse.Created(c, "Hospital created", hospital)
}

// ListDoctors handles GET /api/v1/hospitals/:id/doctors
func (h *HospitalHandler) ListDoctors(c *gin.Context) {
	hospitalID := c.Param("id")

	hospital, err := h.hospitalRepo.GetByID(c.Request.Context(), hospitalID)
	if err != nil {
		logger.Error("Failed to get hospital", logger.ErrorField(err))
		xresponse.InternalServerError(c, "Failed to get hospital")
		return
	}
	if hospital == nil {
		xresponse.HospitalNotFound(c, "Hospital not found")
		return
	}

	doctors, err := h.hospitalRepo.ListDoctors(c.Request.Context(), hospitalID)
	if err != nil {
		logger.Error("Failed to list doctors", logger.ErrorField(err))
		xresponse.InternalServerError(c, "Failed to list doctors")
		return
	}

	xresponse.Success(c, "Doctors retrieved", gin.H{
		"hospital_id": hospitalID,
		"doctors":     doctors,
		"count":       len(doctors),
	})
}
