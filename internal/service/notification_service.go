package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/returnsdesk/oem-returns/internal/config"
	"github.com/returnsdesk/oem-returns/internal/domain"
	"github.com/returnsdesk/oem-returns/internal/events"
)

// NotificationService turns return events into outbound notices. Delivery is
// stubbed: email and webhook sends are logged when their target is configured.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventReturnUpdated, n.handleReturnUpdated)
	n.dispatcher.Subscribe(events.EventReturnReassigned, n.handleReturnReassigned)
}

func (n *NotificationService) handleReturnUpdated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ReturnUpdatedPayload)
	if !ok {
		return fmt.Errorf("%s: unexpected payload %T", event.Type, event.Payload)
	}
	n.sendWebhook(ctx, event, updateSummary(payload))
	return nil
}

func (n *NotificationService) handleReturnReassigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ReturnReassignedPayload)
	if !ok {
		return fmt.Errorf("%s: unexpected payload %T", event.Type, event.Payload)
	}
	summary := fmt.Sprintf("reassigned from %s to %s", domain.Display(payload.PreviousAgent), domain.Display(payload.NewAgent))
	if payload.NewAgent != nil {
		n.sendEmail(ctx, event, *payload.NewAgent, summary)
	}
	n.sendWebhook(ctx, event, summary)
	return nil
}

func updateSummary(payload events.ReturnUpdatedPayload) string {
	parts := make([]string, 0, len(payload.Changes))
	for _, change := range payload.Changes {
		parts = append(parts, fmt.Sprintf("%s: %s -> %s", change.Field, domain.Display(change.OldValue), domain.Display(change.NewValue)))
	}
	return fmt.Sprintf("order %s updated (%s)", domain.Display(payload.OrderNumber), strings.Join(parts, "; "))
}

func (n *NotificationService) sendEmail(_ context.Context, event events.Event, to, summary string) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Info("email notification",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("to", to),
		zap.String("return_id", event.ReturnID),
		zap.String("summary", summary))
}

func (n *NotificationService) sendWebhook(_ context.Context, event events.Event, summary string) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Info("webhook notification",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("event_type", string(event.Type)),
		zap.String("return_id", event.ReturnID),
		zap.String("actor", event.Actor.AgentID),
		zap.String("summary", summary))
}
