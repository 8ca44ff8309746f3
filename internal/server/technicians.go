package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type setRateRequest struct {
	HourlyRate *float64 `json:"hourly_rate"`
}

func (s *Server) ListTechnicians(c *gin.Context) {
	resp, err := s.technicianSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// SetTechnicianRate sets the hourly rate used for labor cost. The path id is
// the field-service technician id.
func (s *Server) SetTechnicianRate(c *gin.Context) {
	externalID, err := parseExternalID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid technician id"))
		return
	}

	var req setRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.HourlyRate == nil {
		AbortWithError(c, newValidationError("hourly_rate", "required", "hourly_rate is required"))
		return
	}

	resp, err := s.technicianSvc.SetRate(c.Request.Context(), externalID, *req.HourlyRate)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
