package worker

import (
	"go.uber.org/zap"

	"github.com/SpectrexWizard/Q-Reserve/internal/config"
	"github.com/SpectrexWizard/Q-Reserve/internal/service"
)

// StartNotificationWorker subscribes the notification handlers to the event
// stream. Rendering and delivery stay in-process; when the queue is enabled
// the rendered notifications are handed to Redis for the external mailer.
func StartNotificationWorker(notificationService *service.NotificationService, cfg config.NotificationConfig, logger *zap.Logger) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
	logger.Info("notification worker started",
		zap.Bool("queue_enabled", cfg.QueueEnabled),
		zap.String("queue_key", cfg.QueueKey),
	)
}
