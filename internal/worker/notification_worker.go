package worker

import (
	"github.com/spec-kit/pharmacy-helpdesk/internal/service"
)

// StartNotificationWorker registers notification handlers. Handlers run
// synchronously on the publishing request.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
