package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cassiomorais/offlinepay/internal/bootstrap"
	"github.com/cassiomorais/offlinepay/internal/connectivity"
	"github.com/cassiomorais/offlinepay/internal/controller"
)

func main() {
	ctx := context.Background()

	platform := connectivity.NewProbePlatform()
	app, err := bootstrap.New(ctx, "offlinepay-api", platform)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	router := controller.NewRouter(controller.RouterDeps{
		Store:      app.Store,
		Queue:      app.Queue,
		Cache:      app.Cache,
		Monitor:    app.Monitor,
		Processor:  app.Processor,
		Metrics:    app.Metrics,
		Retention:  app.Config.Queue.Retention,
		Version:    "dev",
		CORSConfig: app.Config.Server.CORS,
	})

	addr := fmt.Sprintf(":%d", app.Config.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  app.Config.Server.ReadTimeout,
		WriteTimeout: app.Config.Server.WriteTimeout,
		IdleTimeout:  app.Config.Server.IdleTimeout,
	}

	go func() {
		app.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	app.Logger.Info().Msg("Server exited")
}
