// Command timerd serves the timer API on top of a configured store, so that
// clients can mirror timers into it over the network.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"multitimer/internal/api"
	"multitimer/internal/app"
	"multitimer/internal/pkg/config"
	"multitimer/internal/pkg/router"
	"multitimer/internal/pkg/uid"
	"multitimer/internal/pkg/validator"
	"multitimer/internal/store"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("timerd stopped", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.NewViper(configPath)
	if err != nil {
		return err
	}
	defer cfg.Close()

	_, logCloser, err := app.Logging(cfg, "timerd", false, os.Stdout)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	driver := cfg.GetString("store.driver")
	if driver == store.DriverHTTP {
		return errors.New("timerd cannot use the http store driver")
	}
	repo, err := app.Store(ctx, cfg)
	if err != nil {
		return err
	}
	if repo == nil {
		return errors.New("timerd needs a store driver")
	}
	defer repo.Close()

	v, err := validator.NewV10Validator()
	if err != nil {
		return err
	}

	gen := uid.NewUUID()
	r := router.NewRouter(router.Config{UUID: gen, Name: "timerd"})
	api.RegisterHTTPEndpoint(r, api.Deps{Repo: repo, Validator: v, UUID: gen, Driver: driver})

	handler := cors.New(cors.Options{
		AllowedOrigins: cfg.GetArray("server.cors"),
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"*"},
	}).Handler(r)

	srv := &http.Server{
		Addr:              cfg.GetString("server.addr"),
		Handler:           handler,
		ReadTimeout:       cfg.GetSecond("server.read_timeout_seconds"),
		ReadHeaderTimeout: cfg.GetSecond("server.read_timeout_seconds"),
		WriteTimeout:      cfg.GetSecond("server.write_timeout_seconds"),
		IdleTimeout:       cfg.GetSecond("server.idle_timeout_seconds"),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "address", srv.Addr, "store", driver)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "failed to close resources", "name", "HTTP Server", "error", err)
	}
	slog.Info("application gracefully shutdown")
	return nil
}
