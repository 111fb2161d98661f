package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	refunddomain "github.com/mediflow/billing/internal/refund/domain"
)

type refundChargeRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) RefundCharge(c *gin.Context) {
	chargeID, apiErr := parseID(c, "id")
	if apiErr != nil {
		AbortWithError(c, apiErr)
		return
	}

	var req refundChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	op, apiErr := operatorFromRequest(c)
	if apiErr != nil {
		AbortWithError(c, apiErr)
		return
	}

	resp, err := s.refundSvc.Refund(c.Request.Context(), refunddomain.RefundRequest{
		ChargeID: chargeID,
		Reason:   strings.TrimSpace(req.Reason),
		Operator: op,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
