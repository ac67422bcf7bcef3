package worker

import (
	"github.com/spec-kit/space-booking/internal/service"
)

// StartNotificationWorker registers notification handlers and returns the
// func that removes them.
func StartNotificationWorker(notificationService *service.NotificationService) (stop func()) {
	if notificationService == nil {
		return func() {}
	}
	return notificationService.RegisterHandlers()
}
