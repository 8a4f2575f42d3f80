package worker

import (
	"go.uber.org/zap"

	"github.com/teqwa/teqwa-core/internal/service"
)

// StartNotificationWorker subscribes the notification handlers to the
// dispatcher. Handlers run on the publishing goroutine after the
// originating write has committed.
func StartNotificationWorker(notificationService *service.NotificationService, logger *zap.Logger) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
	if logger != nil {
		logger.Info("notification handlers registered")
	}
}
