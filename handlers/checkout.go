package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"rentline/models"
	"rentline/services/compliance"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MaxUploadBytes caps a single checkout document.
const MaxUploadBytes = 15 << 20

// CheckoutHandler drives the document step of checkout.
type CheckoutHandler struct {
	Service compliance.CheckoutService
}

// NewCheckoutHandler creates a CheckoutHandler.
func NewCheckoutHandler(svc compliance.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{Service: svc}
}

// StartSessionHandler opens a document session for a booking.
func (h *CheckoutHandler) StartSessionHandler(c *gin.Context) {
	var body struct {
		BookingID string `json:"bookingId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bookingId is required"})
		return
	}
	view, err := h.Service.Start(c.Request.Context(), body.BookingID)
	if err != nil {
		respondError(c, "failed to start checkout session", err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// GetSessionHandler returns the session and its current verdict.
func (h *CheckoutHandler) GetSessionHandler(c *gin.Context) {
	view, err := h.Service.Get(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		respondError(c, "failed to load checkout session", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// UpdateIdentityHandler sets the licence and national insurance numbers.
func (h *CheckoutHandler) UpdateIdentityHandler(c *gin.Context) {
	var body struct {
		LicenseNumber           string `json:"licenseNumber"`
		NationalInsuranceNumber string `json:"nationalInsuranceNumber"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "message": err.Error()})
		return
	}
	view, err := h.Service.SetIdentity(c.Request.Context(), c.Param("sessionID"), body.LicenseNumber, body.NationalInsuranceNumber)
	if err != nil {
		respondError(c, "failed to update identity", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ChangeCategoryHandler switches the booking category mid-checkout.
func (h *CheckoutHandler) ChangeCategoryHandler(c *gin.Context) {
	var body struct {
		Category string `json:"category" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "category is required"})
		return
	}
	category, ok := models.ParseBookingCategory(body.Category)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown booking category"})
		return
	}
	view, err := h.Service.ChangeCategory(c.Request.Context(), c.Param("sessionID"), category)
	if err != nil {
		respondError(c, "failed to change category", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// SlotEventHandler applies one upload state event to a slot.
// Body: {"kind": "set_issue_date", "payload": {"date": "2024-05-01"}}.
func (h *CheckoutHandler) SlotEventHandler(c *gin.Context) {
	var body struct {
		Kind    string          `json:"kind" binding:"required"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "event kind is required"})
		return
	}
	ev, err := compliance.DecodeEvent(body.Kind, body.Payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event", "message": err.Error()})
		return
	}
	view, err := h.Service.Apply(c.Request.Context(), c.Param("sessionID"), compliance.SlotID(c.Param("slotID")), ev)
	if err != nil {
		respondError(c, "failed to apply slot event", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// UploadDocumentHandler stores a multipart "file" against a slot. A storage
// failure still answers 200; the slot carries the error for the form.
func (h *CheckoutHandler) UploadDocumentHandler(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file not provided", "message": err.Error()})
		return
	}
	if fileHeader.Size > MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		respondError(c, "failed to read file", err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, MaxUploadBytes+1))
	if err != nil {
		respondError(c, "failed to read file", err)
		return
	}
	if len(data) > MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	view, err := h.Service.UploadDocument(c.Request.Context(), c.Param("sessionID"), compliance.SlotID(c.Param("slotID")), compliance.UploadFile{
		Name:        fileHeader.Filename,
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		respondError(c, "failed to upload document", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// FinalizeHandler commits the documents to the booking. Outstanding
// requirements answer 422 with the current view so the form can point at
// each violation.
func (h *CheckoutHandler) FinalizeHandler(c *gin.Context) {
	view, err := h.Service.Finalize(c.Request.Context(), c.Param("sessionID"))
	if errors.Is(err, compliance.ErrIncomplete) && view != nil {
		zap.L().Info("checkout finalize rejected, documents outstanding",
			zap.String("sessionID", c.Param("sessionID")), zap.Int("violations", len(view.Result.Violations)))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "session": view})
		return
	}
	if err != nil {
		respondError(c, "failed to finalize checkout documents", err)
		return
	}
	c.JSON(http.StatusOK, view)
}
