package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) DispensePrescription(c *gin.Context) {
	id, apiErr := parseID(c, "id")
	if apiErr != nil {
		AbortWithError(c, apiErr)
		return
	}

	op, apiErr := operatorFromRequest(c)
	if apiErr != nil {
		AbortWithError(c, apiErr)
		return
	}

	resp, err := s.pharmacySvc.Dispense(c.Request.Context(), id, op)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
