package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/BurstFinance/burst/config"
	"github.com/BurstFinance/burst/crypto"
	"github.com/BurstFinance/burst/node"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var (
		configPath = flag.String("config", "", "Path to YAML config file")
		dataDir    = flag.String("data", "", "Data directory (overrides config)")
		listenAddr = flag.String("listen", "", "API listen address (overrides config)")
		owner      = flag.String("owner", "", "Owner address (overrides config)")
		logLevel   = flag.String("log-level", "", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *listenAddr != "" {
		cfg.API.Addr = *listenAddr
	}
	if *owner != "" {
		cfg.Engine.Owner = *owner
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	log := newLogger(cfg.LogLevel)

	// Without a configured owner, derive a stable development identity so
	// restarts keep the same owner address.
	if cfg.Engine.Owner == "" {
		kp, err := crypto.DeriveKeyPair("burst-dev-owner")
		if err != nil {
			log.Fatal().Err(err).Msg("failed to derive development owner key")
		}
		cfg.Engine.Owner = kp.Address().String()
		log.Warn().Str("owner", cfg.Engine.Owner).Msg("using derived development owner")
	}

	n, err := node.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize node")
	}

	if err := n.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start node")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := n.Stop(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFile(path)
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(writer).Level(lvl).With().Timestamp().Logger()
}
