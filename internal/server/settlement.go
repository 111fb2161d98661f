package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	settlementdomain "github.com/mediflow/billing/internal/settlement/domain"
)

func (s *Server) DailySettlement(c *gin.Context) {
	rawDate := strings.TrimSpace(c.Query("date"))
	date, err := time.ParseInLocation("2006-01-02", rawDate, time.UTC)
	if err != nil {
		AbortWithError(c, newValidationError("date", "invalid_date", "date must be YYYY-MM-DD"))
		return
	}

	req := settlementdomain.DailyRequest{Date: date}
	if raw := strings.TrimSpace(c.Query("operator_id")); raw != "" {
		operatorID, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, newValidationError("operator_id", "invalid_operator_id", "operator_id must be a snowflake"))
			return
		}
		req.OperatorID = &operatorID
	}

	resp, err := s.settlementSvc.Daily(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
