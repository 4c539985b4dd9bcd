// Package main runs the websocket bridge: a thin HTTP daemon that proxies
// browser clients onto the game server's Telnet listener.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeonmud/internal/config"
	"github.com/cory-johannsen/dungeonmud/internal/observability"
	"github.com/cory-johannsen/dungeonmud/internal/server"
	"github.com/cory-johannsen/dungeonmud/internal/webbridge"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	telnetAddr := cfg.Web.TelnetAddr
	if telnetAddr == "" {
		telnetAddr = cfg.Telnet.Addr()
	}

	bridge, err := webbridge.New(webbridge.Options{
		TelnetAddr:    telnetAddr,
		FlushInterval: cfg.Web.FlushInterval,
		FlushMaxLines: cfg.Web.FlushMaxLines,
	}, logger)
	if err != nil {
		logger.Fatal("building bridge", zap.Error(err))
	}

	httpSrv := &http.Server{
		Addr:              cfg.Web.Addr(),
		Handler:           bridge.Handler(cfg.Web.StaticDir),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("http", &server.FuncService{
		StartFn: func() error {
			err := httpSrv.ListenAndServe()
			if err == http.ErrServerClosed {
				return nil
			}
			return err
		},
		StopFn: func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(shutdownCtx)
		},
	})

	logger.Info("web bridge initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("listen_addr", cfg.Web.Addr()),
		zap.String("telnet_addr", telnetAddr),
	)

	if err := lifecycle.Run(context.Background()); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
