package auth

import (
	"echoloom-api/core/cache"
	"echoloom-api/core/database"
	"echoloom-api/core/middleware"
	"echoloom-api/modules/auth/controller"
	"echoloom-api/modules/auth/repository"
	"echoloom-api/modules/auth/router"
	"echoloom-api/modules/auth/service"
	notifService "echoloom-api/modules/notification/service"

	"github.com/labstack/echo/v4"
)

// Init wires the auth module and registers its routes.
func Init(e *echo.Echo, db database.IDatabase, c cache.Cache, mw *middleware.Middleware, mailer notifService.MailerInterface) service.AuthServiceInterface {
	repo := repository.NewAuthRepository(db)
	svc := service.NewAuthService(repo, c, mailer)
	ctrl := controller.NewAuthController(svc)

	router.NewAuthRouter(ctrl).Setup(e, mw)

	return svc
}

// GetService creates an AuthService instance for use by other modules.
func GetService(db database.IDatabase, c cache.Cache, mailer notifService.MailerInterface) service.AuthServiceInterface {
	repo := repository.NewAuthRepository(db)
	return service.NewAuthService(repo, c, mailer)
}
