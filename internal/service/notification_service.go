package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/SpectrexWizard/Q-Reserve/internal/config"
	"github.com/SpectrexWizard/Q-Reserve/internal/events"
	"github.com/SpectrexWizard/Q-Reserve/internal/persistence"
)

// NotificationChannelEmail is the only delivery channel rendered today; the
// queue consumer decides the actual transport.
const NotificationChannelEmail = "email"

// Notification is the rendered, transport-agnostic message handed off to the
// external mailer via the Redis queue.
type Notification struct {
	Channel   string `json:"channel"`
	From      string `json:"from,omitempty"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

// NotificationService turns domain events into notifications. Every
// notification is logged; when the queue is enabled it is also pushed to
// Redis for asynchronous delivery. Failures here are logged and swallowed so
// they never reach the operation that raised the event.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	queue      *persistence.Redis
}

// NewNotificationService creates the service. The queue may be nil when
// Redis is not configured.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig, queue *persistence.Redis) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
		queue:      queue,
	}
}

// RegisterHandlers subscribes to every event type the ticket flow publishes.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventTicketCommentAdded, n.handleTicketCommentAdded)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		n.logger.Warn("unexpected payload type", zap.String("event_type", string(event.Type)))
		return nil
	}
	n.deliver(ctx, event, Notification{
		Channel:   NotificationChannelEmail,
		Recipient: payload.Recipient.Email,
		Subject:   fmt.Sprintf("Ticket received: %s", payload.Subject),
		Body: fmt.Sprintf("Your ticket %q was created in category %s with priority %s.",
			payload.Subject, payload.Category, payload.Priority),
	})
	return nil
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		n.logger.Warn("unexpected payload type", zap.String("event_type", string(event.Type)))
		return nil
	}
	n.deliver(ctx, event, Notification{
		Channel:   NotificationChannelEmail,
		Recipient: payload.Recipient.Email,
		Subject:   fmt.Sprintf("Ticket update: %s", payload.Subject),
		Body: fmt.Sprintf("Your ticket %q moved from %s to %s.",
			payload.Subject, payload.OldStatus, payload.NewStatus),
	})
	return nil
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		n.logger.Warn("unexpected payload type", zap.String("event_type", string(event.Type)))
		return nil
	}
	// An unassignment carries no recipient; there is nobody to notify.
	if payload.Recipient == nil {
		return nil
	}
	n.deliver(ctx, event, Notification{
		Channel:   NotificationChannelEmail,
		Recipient: payload.Recipient.Email,
		Subject:   fmt.Sprintf("Ticket assigned to you: %s", payload.Subject),
		Body:      fmt.Sprintf("Ticket %q was assigned to you by %s.", payload.Subject, event.Actor.Username),
	})
	return nil
}

func (n *NotificationService) handleTicketCommentAdded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCommentAddedPayload)
	if !ok {
		n.logger.Warn("unexpected payload type", zap.String("event_type", string(event.Type)))
		return nil
	}
	n.deliver(ctx, event, Notification{
		Channel:   NotificationChannelEmail,
		Recipient: payload.Recipient.Email,
		Subject:   fmt.Sprintf("New comment on: %s", payload.Subject),
		Body:      fmt.Sprintf("%s commented: %s", event.Actor.Username, payload.BodyPreview),
	})
	return nil
}

func (n *NotificationService) deliver(ctx context.Context, event events.Event, notification Notification) {
	notification.From = n.cfg.EmailFrom
	n.logger.Info("notification",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.String("channel", notification.Channel),
		zap.String("recipient", notification.Recipient),
		zap.String("subject", notification.Subject),
	)

	if !n.cfg.QueueEnabled || n.queue == nil {
		return
	}
	encoded, err := json.Marshal(notification)
	if err != nil {
		n.logger.Error("failed to encode notification", zap.Error(err))
		return
	}
	if err := n.queue.Enqueue(ctx, n.cfg.QueueKey, encoded); err != nil {
		n.logger.Error("failed to enqueue notification",
			zap.String("queue_key", n.cfg.QueueKey),
			zap.Error(err),
		)
	}
}
