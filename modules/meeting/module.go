package meeting

import (
	"echoloom-api/core/cache"
	"echoloom-api/core/database"
	"echoloom-api/core/middleware"
	"echoloom-api/core/video"
	authRepo "echoloom-api/modules/auth/repository"
	authService "echoloom-api/modules/auth/service"
	"echoloom-api/modules/meeting/controller"
	"echoloom-api/modules/meeting/repository"
	"echoloom-api/modules/meeting/router"
	"echoloom-api/modules/meeting/service"
	notifService "echoloom-api/modules/notification/service"

	"github.com/labstack/echo/v4"
)

// Init wires the meeting module and registers its routes.
func Init(
	e *echo.Echo,
	db database.IDatabase,
	c cache.Cache,
	mw *middleware.Middleware,
	accounts authService.AuthServiceInterface,
	mailer notifService.MailerInterface,
	provider video.Provider,
) service.MeetingServiceInterface {
	repo := repository.NewMeetingRepository(db)
	users := authRepo.NewAuthRepository(db)
	svc := service.NewMeetingService(repo, users, accounts, mailer, provider, c)
	ctrl := controller.NewMeetingController(svc)

	router.NewMeetingRouter(ctrl).Setup(e, mw)

	return svc
}
