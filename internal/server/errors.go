package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	chargedomain "github.com/mediflow/billing/internal/charge/domain"
	inventorydomain "github.com/mediflow/billing/internal/inventory/domain"
	paymentdomain "github.com/mediflow/billing/internal/payment/domain"
	pharmacydomain "github.com/mediflow/billing/internal/pharmacy/domain"
	prescriptiondomain "github.com/mediflow/billing/internal/prescription/domain"
	registrationdomain "github.com/mediflow/billing/internal/registration/domain"
	settlementdomain "github.com/mediflow/billing/internal/settlement/domain"
)

type apiError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *apiError) Error() string { return e.Code }

func newValidationError(field, code, message string) *apiError {
	return &apiError{
		Status:  http.StatusBadRequest,
		Code:    code,
		Message: message,
		Field:   field,
	}
}

func invalidRequestError() *apiError {
	return &apiError{
		Status:  http.StatusBadRequest,
		Code:    "invalid_request",
		Message: "request body could not be parsed",
	}
}

// AbortWithError funnels every handler failure through one sentinel-to-status
// mapping so the services never learn about HTTP.
func AbortWithError(c *gin.Context, err error) {
	var known *apiError
	if errors.As(err, &known) {
		c.AbortWithStatusJSON(known.Status, gin.H{"error": known})
		return
	}

	status := http.StatusInternalServerError
	code := "internal_error"

	switch {
	case isNotFound(err):
		status = http.StatusNotFound
		code = sentinelCode(err)
	case isValidation(err):
		status = http.StatusBadRequest
		code = sentinelCode(err)
	case isStateConflict(err):
		status = http.StatusConflict
		code = sentinelCode(err)
	}

	body := gin.H{"code": code}
	if status != http.StatusInternalServerError {
		body["message"] = err.Error()
	}
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}

func isNotFound(err error) bool {
	return errors.Is(err, chargedomain.ErrChargeNotFound) ||
		errors.Is(err, registrationdomain.ErrRegistrationNotFound) ||
		errors.Is(err, prescriptiondomain.ErrPrescriptionNotFound) ||
		errors.Is(err, inventorydomain.ErrStockItemNotFound) ||
		errors.Is(err, gorm.ErrRecordNotFound)
}

func isValidation(err error) bool {
	return errors.Is(err, chargedomain.ErrInvalidChargeRequest) ||
		errors.Is(err, chargedomain.ErrInvalidPaymentMethod) ||
		errors.Is(err, chargedomain.ErrMissingTransactionNo) ||
		errors.Is(err, chargedomain.ErrAmountMismatch) ||
		errors.Is(err, registrationdomain.ErrInvalidRegistration) ||
		errors.Is(err, inventorydomain.ErrEmptyPrescription) ||
		errors.Is(err, settlementdomain.ErrInvalidDate)
}

func isStateConflict(err error) bool {
	return errors.Is(err, chargedomain.ErrAlreadyCharged) ||
		errors.Is(err, chargedomain.ErrNothingToCharge) ||
		errors.Is(err, chargedomain.ErrRegistrationNotPayable) ||
		errors.Is(err, chargedomain.ErrAlreadyPaid) ||
		errors.Is(err, chargedomain.ErrNotPaid) ||
		errors.Is(err, chargedomain.ErrDuplicateTransaction) ||
		errors.Is(err, registrationdomain.ErrIllegalTransition) ||
		errors.Is(err, registrationdomain.ErrTransitionConflict) ||
		errors.Is(err, prescriptiondomain.ErrNotReviewed) ||
		errors.Is(err, prescriptiondomain.ErrNotPaid) ||
		errors.Is(err, prescriptiondomain.ErrTransitionConflict) ||
		errors.Is(err, prescriptiondomain.ErrUnexpectedStatus) ||
		errors.Is(err, inventorydomain.ErrInsufficientStock) ||
		errors.Is(err, inventorydomain.ErrStockConflict) ||
		errors.Is(err, pharmacydomain.ErrNotPaid) ||
		errors.Is(err, paymentdomain.ErrAuthorizationDeclined)
}

// sentinelCode pulls the stable snake_case sentinel out of a wrapped error
// chain so clients can switch on it.
func sentinelCode(err error) string {
	for unwrapped := err; unwrapped != nil; unwrapped = errors.Unwrap(unwrapped) {
		err = unwrapped
	}
	return err.Error()
}
