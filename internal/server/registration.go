package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	registrationdomain "github.com/mediflow/billing/internal/registration/domain"
)

type createRegistrationRequest struct {
	PatientName     string `json:"patient_name"`
	Department      string `json:"department"`
	RegistrationFee string `json:"registration_fee"`
}

func (s *Server) CreateRegistration(c *gin.Context) {
	var req createRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	fee, err := decimal.NewFromString(strings.TrimSpace(req.RegistrationFee))
	if err != nil {
		AbortWithError(c, newValidationError("registration_fee", "invalid_fee", "registration_fee must be a decimal string"))
		return
	}

	resp, err := s.registrationSvc.Create(c.Request.Context(), registrationdomain.CreateRequest{
		PatientName:     strings.TrimSpace(req.PatientName),
		Department:      strings.TrimSpace(req.Department),
		RegistrationFee: fee,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetRegistration(c *gin.Context) {
	id, apiErr := parseID(c, "id")
	if apiErr != nil {
		AbortWithError(c, apiErr)
		return
	}

	resp, err := s.registrationSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type cancelRegistrationRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) CancelRegistration(c *gin.Context) {
	id, apiErr := parseID(c, "id")
	if apiErr != nil {
		AbortWithError(c, apiErr)
		return
	}

	var req cancelRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	op, apiErr := operatorFromRequest(c)
	if apiErr != nil {
		AbortWithError(c, apiErr)
		return
	}

	if err := s.registrationSvc.Cancel(c.Request.Context(), id, op, strings.TrimSpace(req.Reason)); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"registration_id": id.String(), "status": "CANCELLED"}})
}

func parseID(c *gin.Context, name string) (snowflake.ID, *apiError) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return 0, newValidationError(name, "invalid_id", "id must be a snowflake")
	}
	return id, nil
}
