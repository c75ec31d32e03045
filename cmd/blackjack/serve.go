package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/coder/quartz"

	"github.com/lox/blackjack/internal/feed"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/policy"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/lox/blackjack/internal/simulator"
)

// ServeFeedCmd runs a self-playing table and streams it to spectators
type ServeFeedCmd struct {
	Addr       string `help:"Listen address (default from config)"`
	Seats      int    `default:"3" help:"Seats at the table, 1-3"`
	Bet        int    `default:"100" help:"Seat 1's bet per round"`
	Style      string `default:"conservative" enum:"aggressive,conservative" help:"Style seat 1 plays with"`
	Seed       int64  `help:"Deterministic shuffle seed (0 for random)"`
	ThinkDelay *int   `help:"Override the pause between actions in milliseconds"`
}

func (c *ServeFeedCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	logger, _, err := g.setupLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}

	style, err := policy.ParseStyle(c.Style)
	if err != nil {
		return err
	}
	addr := c.Addr
	if addr == "" {
		addr = cfg.FeedAddress()
	}
	delay := cfg.ThinkDelay()
	if c.ThinkDelay != nil {
		delay = time.Duration(*c.ThinkDelay) * time.Millisecond
	}

	clock := quartz.NewReal()
	seed := randutil.Seed(c.Seed)
	engine := game.NewEngine(randutil.New(seed), logger, append(cfg.EngineOptions(), game.WithClock(clock))...)

	hub := feed.NewHub(logger, feed.WithClock(clock), feed.WithHeartbeat(cfg.FeedHeartbeat()))
	defer hub.Close()
	engine.EventBus().Subscribe(hub.NewFollower(engine.Snapshot))

	decider := newDecider(cfg, logger)
	table := simulator.New(simulator.Config{
		Seats:      c.Seats,
		Bet:        c.Bet,
		HumanStyle: style,
		Decider:    decider,
		Logger:     logger,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           hub.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting spectator feed", "address", addr, "session", engine.SessionID(), "seed", seed)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		cancel()
	}()

	tableErr := table.Live(ctx, engine, game.NewPacer(clock, delay))

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shut down feed server", "error", err)
	}

	select {
	case err := <-serverErr:
		return err
	default:
	}
	if errors.Is(tableErr, context.Canceled) {
		logger.Info("Table stopped", "rounds", engine.Round())
		return nil
	}
	return tableErr
}
