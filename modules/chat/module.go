package chat

import (
	"echoloom-api/core/config"
	"echoloom-api/core/database"
	"echoloom-api/core/middleware"
	authRepo "echoloom-api/modules/auth/repository"
	"echoloom-api/modules/chat/controller"
	"echoloom-api/modules/chat/repository"
	"echoloom-api/modules/chat/router"
	"echoloom-api/modules/chat/service"
	meetingRepo "echoloom-api/modules/meeting/repository"

	"github.com/labstack/echo/v4"
)

// Init wires the chat module and registers its routes.
func Init(e *echo.Echo, db database.IDatabase, mw *middleware.Middleware, awsCfg config.AWSConfig) {
	repo := repository.NewChatRepository(db)
	meetings := meetingRepo.NewMeetingRepository(db)
	users := authRepo.NewAuthRepository(db)
	svc := service.NewChatService(repo, meetings, users, awsCfg)
	ctrl := controller.NewChatController(svc)

	router.NewChatRouter(ctrl).Setup(e, mw)
}
