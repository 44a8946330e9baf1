package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	cfg "capserv/src/configuration"
	server "capserv/src/server"
)

func main() {
	config, err := cfg.ReadProperties()
	if err != nil {
		slog.Error("can not read configuration", "event", "config_invalid", "error", err.Error())
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: config.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.RunServer(ctx, config, logger); err != nil {
		logger.Error("server stopped", "event", "server_failed", "error", err.Error())
		os.Exit(1)
	}
}
