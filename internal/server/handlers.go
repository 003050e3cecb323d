package server

import (
	"errors"
	"net/http"

	"donation-gateway/internal/database"
	"donation-gateway/internal/domain"
	"donation-gateway/internal/repo"
	"donation-gateway/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	payments     service.PaymentService
	confirms     service.ConfirmService
	transactions repo.TransactionRepo
	health       database.Service
}

type initiateRequest struct {
	Amount     float64 `json:"amount"`
	DonationID string  `json:"donationId"`
	Method     string  `json:"method"`
	Provider   string  `json:"provider"`
	Customer   struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Phone string `json:"phone"`
	} `json:"customerInfo"`
}

func (h *Handler) Initiate(c *gin.Context) {
	var req initiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	donationID, err := uuid.Parse(req.DonationID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid donation id"})
		return
	}

	result, err := h.payments.Initiate(c.Request.Context(), service.InitiateRequest{
		Amount:     req.Amount,
		DonationID: donationID,
		Method:     domain.PaymentMethod(req.Method),
		Provider:   req.Provider,
		Customer: domain.CustomerInfo{
			Name:  req.Customer.Name,
			Email: req.Customer.Email,
			Phone: req.Customer.Phone,
		},
	})
	if err != nil {
		status := errorStatus(err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reference":   result.Reference,
		"redirectUrl": result.RedirectURL,
	})
}

func (h *Handler) GetTransaction(c *gin.Context) {
	txn, err := h.transactions.FindByReference(c.Request.Context(), c.Param("reference"))
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown reference"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reference":   txn.Reference,
		"donationId":  txn.DonationID,
		"amount":      txn.Amount,
		"method":      txn.Method,
		"provider":    txn.Provider,
		"status":      txn.Status,
		"createdAt":   txn.CreatedAt,
		"confirmedAt": txn.ConfirmedAt,
	})
}

type confirmRequest struct {
	Reference string `json:"reference"`
}

func (h *Handler) Confirm(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Reference == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reference is required"})
		return
	}

	status, err := h.confirms.Confirm(c.Request.Context(), req.Reference)
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": status == domain.TransactionConfirmed,
		"status":  status,
	})
}

// callbackRequest is the provider-pushed notification. Providers echo our
// reference where they have it; older notifications may carry only their own
// transaction id.
type callbackRequest struct {
	Reference     string `json:"reference"`
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
}

func (h *Handler) Callback(c *gin.Context) {
	var req callbackRequest
	if err := c.ShouldBindJSON(&req); err != nil || (req.Reference == "" && req.TransactionID == "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reference or transactionId is required"})
		return
	}

	var status domain.TransactionStatus
	var err error
	if req.Reference != "" {
		status, err = h.confirms.Confirm(c.Request.Context(), req.Reference)
	} else {
		status, err = h.confirms.ConfirmByGatewayTxn(c.Request.Context(), req.TransactionID)
	}
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": status == domain.TransactionConfirmed,
		"status":  status,
	})
}

func (h *Handler) Health(c *gin.Context) {
	stats := h.health.Health()
	code := http.StatusOK
	if stats["status"] != "up" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, stats)
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrGatewayRejected):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrGatewayAuth):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrGatewayUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
