package main

import (
	"os"

	"github.com/semscan/semscan-api/internal/pkg/logger"
	"github.com/semscan/semscan-api/internal/server"
)

// @title SemScan Seminar API
// @version 1.0
// @description Seminar presentation slot registration service: degree-weighted slot capacity, supervisor approval links, and ordered waiting lists with promotion offers.

// @contact.name SemScan Team
// @contact.email seminars@semscan.local

// @host localhost:8080
// @BasePath /api/v1
// @schemes http

func main() {
	srv, err := server.NewServer()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server exited with error")
		os.Exit(1)
	}
}
