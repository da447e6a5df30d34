package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chefly/chefly/config"
	"github.com/chefly/chefly/database"
	"github.com/chefly/chefly/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	config.Init()

	if err := database.ConnectAndMigrate(); err != nil {
		logrus.Panicf("failed to initialize database, error: %v", err)
	}
	logrus.Println("migration is successful")

	svr := server.SetupRoutes()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logrus.Printf("starting server on %s", config.ServerPort)
		if err := svr.Run(config.ServerPort); err != nil && err != http.ErrServerClosed {
			logrus.Panicf("server failed, error: %v", err)
		}
	}()

	<-done

	logrus.Info("shutting down...")
	if err := svr.Shutdown(shutdownTimeout); err != nil {
		logrus.WithError(err).Error("failed to shut down server gracefully")
	}
	if err := database.ShutdownDatabase(); err != nil {
		logrus.WithError(err).Error("failed to close database connection!")
	}

	logrus.Info("system is shut ..zzz")
}
