// Command simulator exercises the queue end to end: it flaps a simulated
// network link on a timer, enqueues remittance operations on another, and
// lets reconnect drains replay whatever accumulated while offline. Useful
// for watching retry and breaker behavior without a device.
package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/cassiomorais/offlinepay/internal/bootstrap"
	"github.com/cassiomorais/offlinepay/internal/connectivity"
	"github.com/cassiomorais/offlinepay/internal/controller"
	"github.com/cassiomorais/offlinepay/internal/domain/operation"
	"github.com/cassiomorais/offlinepay/internal/queue"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	platform := connectivity.NewSimulatedPlatform(true)
	app, err := bootstrap.New(ctx, "offlinepay-simulator", platform)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	simCfg := app.Config.Simulator
	app.Logger.Info().
		Dur("flap_interval", simCfg.FlapInterval).
		Dur("enqueue_interval", simCfg.EnqueueInterval).
		Msg("Simulator started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runFlapper(gCtx, app, platform, simCfg.FlapInterval)
	})

	g.Go(func() error {
		return runEnqueuer(gCtx, app, simCfg.EnqueueInterval)
	})

	g.Go(func() error {
		return runDebugServer(gCtx, app)
	})

	g.Go(func() error {
		select {
		case <-gCtx.Done():
			return gCtx.Err()
		case <-quit:
			app.Logger.Info().Msg("Shutting down simulator...")
			cancel()
			return nil
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		app.Logger.Error().Err(err).Msg("Simulator error")
	}

	report(context.Background(), app)
	app.Logger.Info().Msg("Simulator exited")
}

// runDebugServer exposes the queue/cache/network inspection API while the
// simulation runs.
func runDebugServer(ctx context.Context, app *bootstrap.App) error {
	router := controller.NewRouter(controller.RouterDeps{
		Store:      app.Store,
		Queue:      app.Queue,
		Cache:      app.Cache,
		Monitor:    app.Monitor,
		Processor:  app.Processor,
		Metrics:    app.Metrics,
		Retention:  app.Config.Queue.Retention,
		Version:    "simulator",
		CORSConfig: app.Config.Server.CORS,
	})

	addr := fmt.Sprintf(":%d", app.Config.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  app.Config.Server.ReadTimeout,
		WriteTimeout: app.Config.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	app.Logger.Info().Str("addr", addr).Msg("Debug server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func runFlapper(ctx context.Context, app *bootstrap.App, platform *connectivity.SimulatedPlatform, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		online := platform.Toggle()
		app.Logger.Info().Bool("online", online).Msg("Network flapped")
	}
}

func runEnqueuer(ctx context.Context, app *bootstrap.App, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		kind, payload := randomOperation()
		op, err := app.Queue.Enqueue(ctx, kind, payload, queue.WithMaxRetries(3))
		if err != nil {
			app.Logger.Error().Err(err).Str("kind", string(kind)).Msg("Enqueue failed")
			continue
		}
		app.Logger.Info().
			Str("operation_id", op.ID).
			Str("kind", string(op.Kind)).
			Bool("online", app.Monitor.IsOnline()).
			Msg("Operation enqueued")

		// Online enqueues do not wait for a flap.
		if app.Monitor.IsOnline() {
			if err := app.Processor.ProcessQueue(ctx); err != nil {
				app.Logger.Error().Err(err).Msg("Drain failed")
			}
		}
	}
}

func randomOperation() (operation.Kind, map[string]any) {
	reference := uuid.New().String()
	amount := float64(rand.IntN(49000)+1000) / 100
	switch rand.IntN(5) {
	case 0:
		return operation.KindSendMoney, map[string]any{
			"reference": reference, "amount": amount, "currency": "KES",
			"recipient": fmt.Sprintf("+2547%08d", rand.IntN(100000000)),
		}
	case 1:
		return operation.KindAirtime, map[string]any{
			"reference": reference, "amount": amount,
			"phone": fmt.Sprintf("+2547%08d", rand.IntN(100000000)),
		}
	case 2:
		return operation.KindDataBundle, map[string]any{
			"reference": reference, "bundle_code": "DATA_1GB_7D",
			"phone": fmt.Sprintf("+2547%08d", rand.IntN(100000000)),
		}
	case 3:
		return operation.KindBillPayment, map[string]any{
			"reference": reference, "amount": amount, "biller_code": "KPLC",
			"customer_id": fmt.Sprintf("%06d", rand.IntN(1000000)),
		}
	default:
		return operation.KindRemittance, map[string]any{
			"reference": reference, "amount": amount,
			"source_currency": "USD", "target_currency": "KES",
			"recipient": fmt.Sprintf("+2547%08d", rand.IntN(100000000)),
		}
	}
}

func report(ctx context.Context, app *bootstrap.App) {
	ops, err := app.Queue.List(ctx)
	if err != nil {
		return
	}
	var completed, pending, failed int
	for _, op := range ops {
		switch op.Status {
		case operation.StatusCompleted:
			completed++
		case operation.StatusFailed:
			failed++
		default:
			pending++
		}
	}
	app.Logger.Info().
		Int("total", len(ops)).
		Int("completed", completed).
		Int("pending", pending).
		Int("failed", failed).
		Msg("Final queue state")
}
