package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"paytrack/internal/model"
	"paytrack/internal/service"
)

type ReportHandler struct {
	reports *service.ReportService
	logger  *zap.Logger
}

func NewReportHandler(reports *service.ReportService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, logger: logger}
}

// Summary handles GET /reports/summary
func (h *ReportHandler) Summary(c *gin.Context) {
	sum, err := h.reports.Summary(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "build summary", err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// Revenue handles GET /reports/revenue?year=2024; the year defaults to the current one.
func (h *ReportHandler) Revenue(c *gin.Context) {
	year := time.Now().Year()
	if raw := c.Query("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, h.logger, "build revenue report",
				model.NewValidationError("year", model.CodeInvalidFormat, "year must be a number"))
			return
		}
		year = y
	}

	rev, err := h.reports.Revenue(c.Request.Context(), year)
	if err != nil {
		respondError(c, h.logger, "build revenue report", err)
		return
	}
	c.JSON(http.StatusOK, rev)
}

// Payouts handles GET /reports/payouts
func (h *ReportHandler) Payouts(c *gin.Context) {
	payouts, err := h.reports.Payouts(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "build payouts report", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payouts": payouts})
}
