package handlers

import (
	"errors"
	"net/http"

	agreementRepo "rentline/database/repository/agreement"
	bookingRepo "rentline/database/repository/booking"
	vehicleRepo "rentline/database/repository/vehicle"
	"rentline/services/agreement"
	"rentline/services/compliance"
	"rentline/utils"

	"github.com/gin-gonic/gin"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, compliance.ErrSessionNotFound),
		errors.Is(err, bookingRepo.ErrBookingNotFound),
		errors.Is(err, agreementRepo.ErrAgreementNotFound),
		errors.Is(err, vehicleRepo.ErrVehicleNotFound):
		return http.StatusNotFound
	case errors.Is(err, compliance.ErrUnknownSlot),
		errors.Is(err, compliance.ErrUnknownEvent),
		errors.Is(err, compliance.ErrUnknownCategory),
		errors.Is(err, agreement.ErrInvalidParty),
		errors.Is(err, agreement.ErrInvalidSignature):
		return http.StatusBadRequest
	case errors.Is(err, agreement.ErrNotFullySigned),
		errors.Is(err, agreement.ErrAlreadyCompleted),
		errors.Is(err, agreement.ErrDocumentsOutstanding):
		return http.StatusConflict
	case errors.Is(err, compliance.ErrIncomplete):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// respondError writes err with its mapped status.
func respondError(c *gin.Context, message string, err error) {
	utils.JSONError(c, statusFor(err), message, err)
}
