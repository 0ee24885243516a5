package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"refmart/cache"
	"refmart/config"
	"refmart/database"
	"refmart/jobs"
	"refmart/logger"
	"refmart/routes"

	"github.com/gofiber/fiber/v2"
)

func main() {
	cfg := config.Load()

	database.Connect(cfg.DB)
	cache.Init(cfg.Redis)

	app := fiber.New()
	routes.Setup(app, cfg.App)
	jobs.StartReconciler(15 * time.Minute)

	addr := fmt.Sprintf("%s:%s", cfg.App.Host, cfg.App.Port)
	logger.Info("server running at ", addr)

	go func() {
		if err := app.Listen(addr); err != nil {
			logger.Fatal("failed to start server: ", err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	logger.Info("gracefully shutting down...")
	if err := app.Shutdown(); err != nil {
		logger.Fatal("server forced to shutdown: ", err)
	}
	logger.Info("server exited cleanly")
}
