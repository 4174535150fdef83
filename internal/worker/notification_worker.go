package worker

import (
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/service"
)

// StartNotificationWorker registers notification handlers and the
// Redis stream mirror on the dispatcher.
func StartNotificationWorker(notificationService *service.NotificationService, mirror *events.StreamMirror, dispatcher events.Dispatcher) {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	if mirror != nil {
		mirror.Register(dispatcher)
	}
}
