package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/blackjack/internal/advisory"
	"github.com/lox/blackjack/internal/config"
	"github.com/lox/blackjack/internal/policy"
)

// loadConfig reads and validates the configuration file
func (g *Globals) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", g.Config, err)
	}
	return cfg, nil
}

// setupLogger returns a logger writing to w, or to the configured log file
// when w is nil. The returned closer releases the file.
func (g *Globals) setupLogger(cfg *config.Config, w io.Writer) (*log.Logger, func(), error) {
	closer := func() {}
	if w == nil {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o666)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create log file: %w", err)
		}
		w = f
		closer = func() {
			if err := f.Close(); err != nil {
				log.Error("Failed to close log file", "error", err)
			}
		}
	}

	level := cfg.LogLevel()
	if g.Debug {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})
	return logger, closer, nil
}

// newDecider picks the computer seats' policy. The advisory service is used
// when enabled and an API key is present; the rules are always the fallback.
func newDecider(cfg *config.Config, logger *log.Logger) policy.Decider {
	if !cfg.AdvisoryEnabled() {
		logger.Info("Advisory disabled, using local rules")
		return policy.Rules{}
	}

	client, err := advisory.New(cfg.AdvisoryClientConfig(), logger)
	if errors.Is(err, advisory.ErrNoAPIKey) {
		logger.Warn("No advisory API key, using local rules", "env", cfg.Advisory.APIKeyEnv)
		return policy.Rules{}
	}
	if err != nil {
		logger.Error("Advisory client unavailable, using local rules", "error", err)
		return policy.Rules{}
	}
	return policy.NewAdvised(client, logger, policy.WithTimeout(cfg.AdvisoryTimeout()))
}

// signalContext is cancelled on interrupt or SIGTERM
func signalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("Received signal, shutting down gracefully", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}
