package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"chatcal/core/cache"
	"chatcal/core/config"
	"chatcal/core/constants"
	"chatcal/core/database"
	"chatcal/core/logger"
	"chatcal/core/worker"
	"chatcal/modules/auth"
	"chatcal/modules/calendar"
	"chatcal/modules/chat"
)

// Run boots the HTTP server, wires every module and blocks until a shutdown
// signal arrives.
func Run() error {
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = constants.DefaultTimeout
	// The write timeout must outlast the slowest upstream model call.
	e.Server.WriteTimeout = constants.OpenAIHTTPTimeout + constants.DefaultTimeout
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{cfg.Server.FrontendURL},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	auth.Init(e, db, cfg)
	session, states, err := calendar.Init(e, db, redisCache, cfg)
	if err != nil {
		return fmt.Errorf("init calendar module: %w", err)
	}
	chat.Init(e, db, cfg)

	background := worker.New(cfg.Redis, session, states)
	background.Start()
	defer background.Stop()

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error("Server stopped", "error", err)
		}
	}()
	logger.Info("Server started", "port", cfg.Server.Port, "environment", cfg.Server.Environment)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(ctx)
}
