package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/marcelsud/sumit-gateway/config"
	"github.com/marcelsud/sumit-gateway/internal/app"
	"github.com/marcelsud/sumit-gateway/internal/http/chi"
	"github.com/marcelsud/sumit-gateway/webhook"
)

const TIMEOUT = 30 * time.Second

/* api serves the operations API and runs the periodic sweep in-process
 * main only wires packages together; imports flow downwards
 * (cmd -> internal/app -> domain packages -> storage)
 */

func main() {
	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Println(err)
		return
	}
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT,
	)
	defer stop()

	a, err := app.New(ctx, cfg, nil)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer func() {
		ctxTimeout, cancel := context.WithTimeout(context.Background(), TIMEOUT)
		defer cancel()
		if err := a.Close(ctxTimeout); err != nil {
			a.Logger.Error().Err(err).Msg("closing app")
		}
	}()

	r := chi.WebhookHandlers(ctx, a.Webhooks, a.Routes,
		chi.WithGateway(a.Gateway),
		chi.WithCollector(a.Collector),
		chi.WithMetricsHandler(a.Exporter.ServeHTTP()),
		chi.WithHealthCheck(a.Health),
		chi.WithLocale(cfg.SumitLocale),
	)
	srv := &http.Server{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		Addr:         ":" + cfg.Port,
		Handler:      r,
	}

	var wg sync.WaitGroup
	sweeper := a.NewSweeper(cfg.SweepInterval(), webhook.SweepOptions{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Run(ctx)
	}()

	errShutdown := make(chan error, 1)
	go shutdown(srv, ctx, errShutdown)
	a.Logger.Info().Str("port", cfg.Port).Str("store", cfg.Store).Str("sweeper_id", sweeper.ID()).Msg("listening")
	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		a.Logger.Error().Err(err).Msg("server failed")
		stop()
		wg.Wait()
		return
	}
	err = <-errShutdown
	wg.Wait()
	if err != nil {
		a.Logger.Error().Err(err).Msg("shutdown")
		return
	}
}

func shutdown(server *http.Server, ctxShutdown context.Context, errShutdown chan error) {
	<-ctxShutdown.Done()

	ctxTimeout, stop := context.WithTimeout(context.Background(), TIMEOUT)
	defer stop()

	err := server.Shutdown(ctxTimeout)
	switch err {
	case nil:
		fmt.Printf("\nShutting down server...\n")
		errShutdown <- nil
	case context.DeadlineExceeded:
		errShutdown <- fmt.Errorf("Forcing closing the server")
	default:
		errShutdown <- fmt.Errorf("Forcing closing the server")
	}
}
