package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"paytrack/internal/service"
)

type PaymentHandler struct {
	payments *service.PaymentService
	logger   *zap.Logger
}

func NewPaymentHandler(payments *service.PaymentService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, logger: logger}
}

func changeJSON(change *service.PaymentChange) gin.H {
	out := gin.H{"ledger": change.Ledger}
	if change.Payment != nil {
		out["payment"] = paymentJSON(*change.Payment)
	}
	return out
}

// ListByProject handles GET /projects/:id/payments
func (h *PaymentHandler) ListByProject(c *gin.Context) {
	pp, err := h.payments.ListByProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "list payments", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": paymentsJSON(pp.Payments), "ledger": pp.Ledger})
}

// Create handles POST /projects/:id/payments
func (h *PaymentHandler) Create(c *gin.Context) {
	var body paymentBody
	if !bindJSON(c, &body) {
		return
	}
	p, err := body.toModel()
	if err != nil {
		respondError(c, h.logger, "create payment", err)
		return
	}
	p.ProjectID = c.Param("id")

	change, err := h.payments.Create(c.Request.Context(), &p)
	if err != nil {
		respondError(c, h.logger, "create payment", err)
		return
	}
	c.JSON(http.StatusCreated, changeJSON(change))
}

// MarkPaid handles POST /payments/:id/pay
func (h *PaymentHandler) MarkPaid(c *gin.Context) {
	change, err := h.payments.MarkPaid(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "mark payment as paid", err)
		return
	}
	c.JSON(http.StatusOK, changeJSON(change))
}

// Delete handles DELETE /payments/:id
func (h *PaymentHandler) Delete(c *gin.Context) {
	change, err := h.payments.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "delete payment", err)
		return
	}
	c.JSON(http.StatusOK, changeJSON(change))
}
