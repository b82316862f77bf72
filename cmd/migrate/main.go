// This file is used to run database migrations
// How to run:
// go run cmd/migrate/main.go
package main

import (
	"github.com/joho/godotenv"

	"github.com/dbpilot/dbpilot/config"
	"github.com/dbpilot/dbpilot/internal/constants"
	"github.com/dbpilot/dbpilot/internal/db"
	"github.com/dbpilot/dbpilot/internal/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Debugf("No .env file loaded: %v", err)
	}
	logger.Initialize()

	database, err := db.New(db.Options{
		Host:     config.GetEnv(constants.EnvDBHost, "localhost"),
		User:     config.GetEnv(constants.EnvDBUser, "dbpilot"),
		Password: config.GetEnv(constants.EnvDBPassword, ""),
		DBName:   config.GetEnv(constants.EnvDBName, "dbpilot"),
		Port:     config.GetEnvInt(constants.EnvDBPort, 5432),
	})
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.Migrate(database); err != nil {
		logger.Fatalf("Migration failed: %v", err)
	}
	logger.Info("Migrations applied")
}
