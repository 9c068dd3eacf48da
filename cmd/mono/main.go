package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/vancomm/minesweeper/internal/app"
	"github.com/vancomm/minesweeper/internal/config"
)

func main() {
	log := logrus.New()
	if err := config.Load(); err != nil {
		log.WithError(err).Fatal("unable to load .env")
	}
	if err := config.SetupLogging(log); err != nil {
		log.WithError(err).Fatal("unable to set up logging")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.New(log).Start(ctx); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
