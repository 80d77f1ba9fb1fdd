package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"brightedge-go-etl/internal/api"
	"brightedge-go-etl/internal/app"
	"brightedge-go-etl/internal/config"
	"brightedge-go-etl/pkg/logger"
)

func main() {
	var cfg config.Config
	cfgPath := config.BindFlags(flag.CommandLine, &cfg)
	flag.StringVar(&cfg.Addr, "addr", "", "listen address (default :8080)")
	flag.Int64Var(&cfg.MaxUploadBytes, "max-upload", 0, "largest accepted request body in bytes")
	flag.Parse()

	if err := config.Resolve(&cfg, *cfgPath); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat)
	l := logger.New()

	a, err := app.New(cfg)
	if err != nil {
		l.Errorf("init: %v", err)
		os.Exit(1)
	}
	defer a.Close()

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      api.NewServer(a, cfg.MaxUploadBytes).Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		l.Infof("server listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			l.Errorf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	l.Infof("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	l.Infof("bye")
}
