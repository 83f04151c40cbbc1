package notification

import (
	"echoloom-api/core/database"
	"echoloom-api/core/middleware"
	"echoloom-api/modules/notification/controller"
	"echoloom-api/modules/notification/repository"
	"echoloom-api/modules/notification/router"
	"echoloom-api/modules/notification/service"

	"github.com/labstack/echo/v4"
)

// Init wires the notification module and returns the in-app notification
// service plus the best-effort mailer used by the other modules.
func Init(e *echo.Group, db database.IDatabase, mw *middleware.Middleware) (*service.NotificationService, *service.MailerService) {
	repo := repository.NewNotificationRepository(db)
	svc := service.NewNotificationService(repo)
	mailer := service.NewMailerService(svc)
	ctrl := controller.NewNotificationController(svc)

	router.NewNotificationRouter(ctrl).Register(e, mw)

	return svc, mailer
}
