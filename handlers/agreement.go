package handlers

import (
	"net/http"

	"rentline/models"
	"rentline/services/agreement"

	"github.com/gin-gonic/gin"
)

// AgreementHandler serves the signing flow.
type AgreementHandler struct {
	Service agreement.AgreementService
}

// NewAgreementHandler creates an AgreementHandler.
func NewAgreementHandler(svc agreement.AgreementService) *AgreementHandler {
	return &AgreementHandler{Service: svc}
}

// OpenAgreementHandler returns the booking's agreement, creating a draft
// the first time.
func (h *AgreementHandler) OpenAgreementHandler(c *gin.Context) {
	var body struct {
		BookingID         string `json:"bookingId" binding:"required"`
		AdministratorName string `json:"administratorName"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bookingId is required"})
		return
	}
	a, err := h.Service.Open(c.Request.Context(), body.BookingID, body.AdministratorName)
	if err != nil {
		respondError(c, "failed to open agreement", err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// GetAgreementHandler returns the agreement record.
func (h *AgreementHandler) GetAgreementHandler(c *gin.Context) {
	a, err := h.Service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "failed to load agreement", err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// HistoryHandler lists the agreement's audit trail.
func (h *AgreementHandler) HistoryHandler(c *gin.Context) {
	records, err := h.Service.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "failed to load agreement history", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// SignHandler records a signature. The signature is a data URI or a URL.
func (h *AgreementHandler) SignHandler(c *gin.Context) {
	var body struct {
		Party     string `json:"party" binding:"required"`
		Signature string `json:"signature" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "party and signature are required"})
		return
	}
	a, err := h.Service.Sign(c.Request.Context(), c.Param("id"), models.SignatureParty(body.Party), body.Signature)
	if err != nil {
		respondError(c, "failed to sign agreement", err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// GenerateHandler composes and stores the agreement document now, without
// waiting for the background task.
func (h *AgreementHandler) GenerateHandler(c *gin.Context) {
	a, err := h.Service.Generate(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "failed to generate agreement", err)
		return
	}
	c.JSON(http.StatusOK, a)
}
