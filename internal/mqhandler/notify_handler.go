package mqhandler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	contractmq "paytrack/contracts/mq"
	"paytrack/pkg/logger"
	"paytrack/pkg/mq"
)

// NotifyHandler writes the user-facing notifications for status changes
// and overdue payments to the structured log.
type NotifyHandler struct {
	router *Router
	logger *zap.Logger
}

func NewNotifyHandler(log *zap.Logger) *NotifyHandler {
	h := &NotifyHandler{router: NewRouter(log), logger: log}
	On(h.router, contractmq.ProjectStatusChanged, h.statusChanged)
	On(h.router, contractmq.PaymentOverdue, h.paymentOverdue)
	return h
}

func (h *NotifyHandler) Handle(ctx context.Context, d mq.Delivery) error {
	return h.router.Handle(ctx, d)
}

func (h *NotifyHandler) statusChanged(ctx context.Context, p contractmq.ProjectStatusChangedPayload) error {
	logger.WithTrace(ctx, h.logger).Info("Notification: project status changed",
		zap.String("project_id", p.ProjectID),
		zap.String("message", fmt.Sprintf("%s moved from %s to %s", p.Name, p.FromStatus, p.ToStatus)),
	)
	return nil
}

func (h *NotifyHandler) paymentOverdue(ctx context.Context, p contractmq.PaymentChangedPayload) error {
	logger.WithTrace(ctx, h.logger).Info("Notification: payment overdue",
		zap.String("payment_id", p.PaymentID),
		zap.String("project_id", p.ProjectID),
		zap.String("message", fmt.Sprintf("payment of %.2f due %s is overdue", p.Amount, p.DueDate)),
	)
	return nil
}
