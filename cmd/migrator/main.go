package main

import (
	"github.com/sirupsen/logrus"

	"github.com/vancomm/minesweeper/internal/config"
	"github.com/vancomm/minesweeper/internal/database"
)

func main() {
	log := logrus.New()
	if err := config.Load(); err != nil {
		log.WithError(err).Fatal("unable to load .env")
	}
	if err := config.SetupLogging(log); err != nil {
		log.WithError(err).Fatal("unable to set up logging")
	}

	url, err := config.DatabaseURL()
	if err != nil {
		log.WithError(err).Fatal("unable to configure database")
	}
	migrator, err := database.Migrate(url, database.Migrations)
	if err != nil {
		log.WithError(err).Fatal("unable to migrate")
	}
	defer migrator.Close()

	version, dirty, err := migrator.Version()
	if err != nil {
		log.WithError(err).Error("failed to check migration version")
		return
	}
	log.WithFields(logrus.Fields{
		"version": version,
		"dirty":   dirty,
	}).Info("migration successful")
}
