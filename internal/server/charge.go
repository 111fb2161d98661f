package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

type registrationChargeRequest struct {
	RegistrationID string `json:"registration_id"`
}

func (s *Server) CreateRegistrationCharge(c *gin.Context) {
	var req registrationChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	registrationID, apiErr := parseBodyID("registration_id", req.RegistrationID)
	if apiErr != nil {
		AbortWithError(c, apiErr)
		return
	}

	resp, err := s.chargeSvc.CreateRegistrationCharge(c.Request.Context(), registrationID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type prescriptionChargeRequest struct {
	RegistrationID  string   `json:"registration_id"`
	PrescriptionIDs []string `json:"prescription_ids"`
}

func (s *Server) CreatePrescriptionCharge(c *gin.Context) {
	var req prescriptionChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	registrationID, prescriptionIDs, apiErr := parseChargeTargets(req.RegistrationID, req.PrescriptionIDs)
	if apiErr != nil {
		AbortWithError(c, apiErr)
		return
	}

	resp, err := s.chargeSvc.CreatePrescriptionCharge(c.Request.Context(), registrationID, prescriptionIDs)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateCombinedCharge(c *gin.Context) {
	var req prescriptionChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	registrationID, prescriptionIDs, apiErr := parseChargeTargets(req.RegistrationID, req.PrescriptionIDs)
	if apiErr != nil {
		AbortWithError(c, apiErr)
		return
	}

	resp, err := s.chargeSvc.CreateCombinedCharge(c.Request.Context(), registrationID, prescriptionIDs)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCharge(c *gin.Context) {
	id, apiErr := parseID(c, "id")
	if apiErr != nil {
		AbortWithError(c, apiErr)
		return
	}

	resp, err := s.chargeSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func parseBodyID(field, raw string) (snowflake.ID, *apiError) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil {
		return 0, newValidationError(field, "invalid_id", field+" must be a snowflake")
	}
	return id, nil
}

func parseChargeTargets(rawRegistrationID string, rawPrescriptionIDs []string) (snowflake.ID, []snowflake.ID, *apiError) {
	registrationID, apiErr := parseBodyID("registration_id", rawRegistrationID)
	if apiErr != nil {
		return 0, nil, apiErr
	}

	prescriptionIDs := make([]snowflake.ID, 0, len(rawPrescriptionIDs))
	for _, raw := range rawPrescriptionIDs {
		id, apiErr := parseBodyID("prescription_ids", raw)
		if apiErr != nil {
			return 0, nil, apiErr
		}
		prescriptionIDs = append(prescriptionIDs, id)
	}
	return registrationID, prescriptionIDs, nil
}
