package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	activitydomain "github.com/smallbiznis/fieldops/internal/activity/domain"
	jobdomain "github.com/smallbiznis/fieldops/internal/job/domain"
	"github.com/smallbiznis/fieldops/internal/payment"
	"github.com/smallbiznis/fieldops/pkg/db/pagination"
)

type updatePaymentRequest struct {
	PaymentStatus       *string  `json:"payment_status"`
	PaymentAmount       *float64 `json:"payment_amount"`
	PaymentExpectedDate *string  `json:"payment_expected_date"`
	PaymentNotes        *string  `json:"payment_notes"`
	InvoiceSource       *string  `json:"invoice_source"`
}

type updateAssignmentRequest struct {
	AssignmentType string  `json:"assignment_type"`
	ContractorID   *string `json:"contractor_id"`
}

func (s *Server) GetJob(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, jobdomain.ErrInvalidID)
		return
	}

	resp, err := s.jobSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// UpdateJobPayment validates every field before the transition runs so a bad
// request never writes anything.
func (s *Server) UpdateJobPayment(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, jobdomain.ErrInvalidID)
		return
	}

	var req updatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	update := jobdomain.UpdatePaymentRequest{
		JobID:  id,
		Amount: req.PaymentAmount,
		Notes:  req.PaymentNotes,
	}
	if req.PaymentStatus != nil {
		status, err := payment.ParseStatus(*req.PaymentStatus)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		update.Status = &status
	}
	if req.InvoiceSource != nil {
		source, err := payment.ParseInvoiceSource(*req.InvoiceSource)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		update.InvoiceSource = &source
	}
	if req.PaymentExpectedDate != nil {
		expected, err := parseOptionalTime(*req.PaymentExpectedDate)
		if err != nil {
			AbortWithError(c, newValidationError("payment_expected_date", "invalid_payment_expected_date", "invalid payment_expected_date"))
			return
		}
		update.ExpectedDate = expected
	}
	if req.PaymentAmount != nil && *req.PaymentAmount < 0 {
		AbortWithError(c, payment.ErrInvalidAmount)
		return
	}

	resp, err := s.jobSvc.UpdatePayment(c.Request.Context(), update)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateJobAssignment(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, jobdomain.ErrInvalidID)
		return
	}

	var req updateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	assignment, err := jobdomain.ParseAssignmentType(req.AssignmentType)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	update := jobdomain.UpdateAssignmentRequest{
		JobID:          id,
		AssignmentType: assignment,
	}
	if req.ContractorID != nil {
		contractorID, err := parseOptionalSnowflakeID(*req.ContractorID)
		if err != nil {
			AbortWithError(c, newValidationError("contractor_id", "invalid_contractor_id", "invalid contractor_id"))
			return
		}
		update.ContractorID = contractorID
	}

	resp, err := s.jobSvc.UpdateAssignment(c.Request.Context(), update)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListJobActivity(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, jobdomain.ErrInvalidID)
		return
	}

	var query pagination.Pagination
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	query.PageToken = strings.TrimSpace(query.PageToken)

	resp, err := s.activitySvc.List(c.Request.Context(), activitydomain.ListRequest{
		Pagination: query,
		JobID:      id,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
