package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	chargedomain "github.com/mediflow/billing/internal/charge/domain"
	paymentdomain "github.com/mediflow/billing/internal/payment/domain"
)

type payChargeRequest struct {
	Method        string  `json:"method"`
	TransactionNo *string `json:"transaction_no"`
	PaidAmount    string  `json:"paid_amount"`
}

func (s *Server) PayCharge(c *gin.Context) {
	chargeID, apiErr := parseID(c, "id")
	if apiErr != nil {
		AbortWithError(c, apiErr)
		return
	}

	var req payChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(req.PaidAmount))
	if err != nil {
		AbortWithError(c, newValidationError("paid_amount", "invalid_amount", "paid_amount must be a decimal string"))
		return
	}

	op, apiErr := operatorFromRequest(c)
	if apiErr != nil {
		AbortWithError(c, apiErr)
		return
	}

	resp, err := s.paymentSvc.Pay(c.Request.Context(), paymentdomain.PayRequest{
		ChargeID:      chargeID,
		Method:        chargedomain.PaymentMethod(strings.ToUpper(strings.TrimSpace(req.Method))),
		TransactionNo: req.TransactionNo,
		PaidAmount:    amount,
		Operator:      op,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
