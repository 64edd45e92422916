package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/plumehq/plume/assist"
	"github.com/plumehq/plume/store"
	"github.com/plumehq/plume/toolapi"
	"github.com/plumehq/plume/web"
)

func main() {
	configFile := flag.String("config", "", "config file path")
	listenAddr := flag.String("listen", "", "editor WebSocket address (overrides config)")
	toolAddr := flag.String("tool", "", "tool API address (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "plume: %v\n", err)
		os.Exit(1)
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	if *toolAddr != "" {
		cfg.ToolAddr = *toolAddr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "plume: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *Config) error {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	svc := assist.NewClient(cfg.AssistURL, nil)
	editorSrv := web.NewServer(st, svc,
		web.WithDebounce(cfg.Debounce),
		web.WithAssistTimeout(cfg.AssistWait),
	)
	toolSrv := toolapi.NewServer(st, cfg.ToolSecret, editorSrv)

	editorHTTP := &http.Server{Addr: cfg.ListenAddr, Handler: editorSrv}
	toolHTTP := &http.Server{Addr: cfg.ToolAddr, Handler: toolSrv}

	errCh := make(chan error, 2)
	go func() {
		logrus.WithField("addr", cfg.ListenAddr).Info("editor server listening")
		errCh <- editorHTTP.ListenAndServe()
	}()
	go func() {
		logrus.WithField("addr", cfg.ToolAddr).Info("tool api listening")
		errCh <- toolHTTP.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := editorHTTP.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("editor server shutdown")
	}
	if err := toolHTTP.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("tool api shutdown")
	}
	return nil
}
