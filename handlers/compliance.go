package handlers

import (
	"errors"
	"net/http"

	"rentline/models"
	"rentline/services/compliance"

	"github.com/gin-gonic/gin"
)

// ComplianceHandler exposes the document catalog and ad hoc evaluation.
type ComplianceHandler struct {
	Engine *compliance.Engine
}

// NewComplianceHandler creates a ComplianceHandler.
func NewComplianceHandler(engine *compliance.Engine) *ComplianceHandler {
	return &ComplianceHandler{Engine: engine}
}

// GetRequirementsHandler returns the document slots for a booking category.
func (h *ComplianceHandler) GetRequirementsHandler(c *gin.Context) {
	category, ok := models.ParseBookingCategory(c.Param("category"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown booking category"})
		return
	}
	req, err := compliance.RequirementsFor(category)
	if err != nil {
		respondError(c, "failed to load requirements", err)
		return
	}
	c.JSON(http.StatusOK, compliance.ViewOf(req))
}

type evaluateRequest struct {
	Category                string                                       `json:"category" binding:"required"`
	LicenseNumber           string                                       `json:"licenseNumber"`
	NationalInsuranceNumber string                                       `json:"nationalInsuranceNumber"`
	ReferenceDate           string                                       `json:"referenceDate" binding:"required"`
	Slots                   map[compliance.SlotID]compliance.UploadState `json:"slots"`
}

// input converts the request body. The reference date may be a plain
// calendar date or an RFC 3339 timestamp.
func (r evaluateRequest) input() (compliance.EvaluationInput, error) {
	category, ok := models.ParseBookingCategory(r.Category)
	if !ok {
		return compliance.EvaluationInput{}, errors.New("unknown booking category")
	}
	ref, ok := compliance.ParseReferenceDate(r.ReferenceDate)
	if !ok {
		return compliance.EvaluationInput{}, errors.New("referenceDate must be YYYY-MM-DD or RFC 3339")
	}
	return compliance.EvaluationInput{
		Category:                category,
		LicenseNumber:           r.LicenseNumber,
		NationalInsuranceNumber: r.NationalInsuranceNumber,
		ReferenceDate:           ref,
		Slots:                   r.Slots,
	}, nil
}

// EvaluateHandler evaluates a full checkout snapshot without a session.
func (h *ComplianceHandler) EvaluateHandler(c *gin.Context) {
	var body evaluateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "message": err.Error()})
		return
	}
	in, err := body.input()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.Engine.Evaluate(in))
}
