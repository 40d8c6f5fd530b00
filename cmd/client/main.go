package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chat-client/internal/auth"
	"chat-client/internal/client"
	"chat-client/internal/config"
	"chat-client/internal/database"
	"chat-client/internal/websocket"
	"chat-client/pkg/logger"

	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	flagSet := pflag.NewFlagSet("chat-client", pflag.ContinueOnError)
	flagSet.StringVar(&cfg.Server.WebSocketURL, "ws-url", cfg.Server.WebSocketURL, "relay websocket endpoint")
	flagSet.StringVar(&cfg.Server.APIURL, "api-url", cfg.Server.APIURL, "relay REST base URL")
	flagSet.StringVar(&cfg.Storage.Driver, "storage", cfg.Storage.Driver, "credential storage: bolt, postgres, redis or memory")
	flagSet.StringVar(&cfg.Storage.Path, "storage-path", cfg.Storage.Path, "bolt file for --storage=bolt")
	flagSet.StringVar(&cfg.Storage.Profile, "profile", cfg.Storage.Profile, "storage namespace for this client")
	flagSet.StringVar(&cfg.Display.TimeZone, "timezone", cfg.Display.TimeZone, "time zone used for day separators")
	flagSet.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "debug, info, warn or error")
	flagSet.BoolVar(&cfg.Log.Pretty, "log-pretty", cfg.Log.Pretty, "human readable log output")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	logger.Configure(cfg.Log.Level, cfg.Log.Pretty)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slots, err := database.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Driver, err)
	}
	defer slots.Close()

	c := client.New(client.Options{Config: cfg, Slots: slots})
	c.OnStateChange(func(from, to websocket.State) {
		logger.Info("Connection %s -> %s", from, to)
	})
	go c.Run(ctx)

	switch err := c.Start(ctx); {
	case err == nil:
	case errors.Is(err, auth.ErrNoCredential):
		fmt.Println("Not logged in. Use /login <email> <password> or /signup <name> <email> <password>.")
	case errors.Is(err, auth.ErrExpiredCredential), errors.Is(err, auth.ErrInvalidCredential):
		fmt.Println("Stored session is no longer valid. Please /login again.")
	default:
		return err
	}

	sh := newShell(c, os.Stdout)
	err = sh.loop(ctx, os.Stdin)
	c.Close()
	logger.Info("Client shutting down...")
	return err
}
