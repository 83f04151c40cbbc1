package main

import (
	"echoloom-api/core/logger"
	"echoloom-api/core/server"
)

// @title EchoLoom API
// @version 1.0
// @description Backend API for EchoLoom video meetings

// @contact.name API Support
// @contact.email support@echoloom.app

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:7070
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token. Example: "Bearer {token}"

func main() {
	if err := server.Run(); err != nil {
		logger.Error("run server error", err)
	}
}
