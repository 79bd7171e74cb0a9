package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dramadl/internal/api"
	"dramadl/internal/config"
	"dramadl/internal/event"
	"dramadl/internal/logger"
	"dramadl/internal/provider"
	"dramadl/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type App struct {
	config *config.Config
	log    *zap.Logger
	bus    *event.Bus

	downloadService *service.DownloadService

	httpServer *http.Server
	router     *api.Router
}

func New() (*App, error) {
	cfg := config.Load()
	l := logger.New(cfg.LogLevel, cfg.Dev)

	bus := event.NewBus()

	// Provider: plain HTTP resolver behind the sliding-window rate limit
	var p provider.Provider = provider.NewDirect(cfg.ProviderURL)
	p = provider.NewRateLimited(p, cfg.ProviderRateMax,
		time.Duration(cfg.ProviderRateWindow)*time.Second)

	ds := service.NewDownloadService(p, bus, cfg, l)

	// API
	router := api.NewRouter(cfg.APIKey, l)

	th := api.NewTaskHandler(ds)
	seth := api.NewSettingsHandler(ds)
	eh := api.NewEventHandler(bus)
	wsh := api.NewWSHandler(bus)

	v1 := chi.NewRouter()
	v1.Use(router.Auth)
	v1.Mount("/tasks", th.Routes())
	v1.Mount("/settings", seth.Routes())
	v1.Mount("/events", eh.Routes())
	v1.Handle("/ws", wsh)

	router.MountV1(v1)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router.Handler(),
	}

	return &App{
		config:          cfg,
		log:             l,
		bus:             bus,
		downloadService: ds,
		httpServer:      srv,
		router:          router,
	}, nil
}

func (a *App) Events() *event.Bus {
	return a.bus
}

func (a *App) Port() int {
	return a.config.Port
}

func (a *App) StartServer() error {
	go func() {
		a.log.Info("dramadl listening", zap.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			a.log.Error("HTTP server closed", zap.Error(err))
		}
	}()
	return nil
}

func (a *App) Stop() {
	a.log.Info("shutting down")

	// Abort live transfers; this waits a bounded time for them to settle
	a.downloadService.CancelAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.httpServer.Shutdown(shutdownCtx)
	a.log.Sync()
}

func (a *App) Run() error {
	if err := a.StartServer(); err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	a.Stop()
	return nil
}
