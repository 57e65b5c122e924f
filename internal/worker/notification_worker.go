package worker

import (
	"github.com/spec-kit/quiz-platform/internal/service"
)

// StartNotificationWorker registers audit/notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
