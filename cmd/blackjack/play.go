package main

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/coder/quartz"

	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/lox/blackjack/internal/tui"
)

// PlayCmd runs the interactive terminal table
type PlayCmd struct {
	Seed       int64 `help:"Deterministic shuffle seed (0 for random)"`
	NoTracker  bool  `help:"Hide the card-counting panel"`
	ThinkDelay *int  `help:"Override the computer seats' pause in milliseconds"`
}

func (c *PlayCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog, err := g.setupLogger(cfg, nil)
	if err != nil {
		return err
	}
	defer closeLog()

	seed := randutil.Seed(c.Seed)
	logger.Info("Starting table", "seed", seed, "config", g.Config)

	clock := quartz.NewReal()
	engine := game.NewEngine(randutil.New(seed), logger, append(cfg.EngineOptions(), game.WithClock(clock))...)

	delay := cfg.ThinkDelay()
	if c.ThinkDelay != nil {
		delay = time.Duration(*c.ThinkDelay) * time.Millisecond
	}
	model := tui.NewModel(engine, newDecider(cfg, logger), game.NewPacer(clock, delay), logger,
		tui.WithTracker(cfg.ShowTracker() && !c.NoTracker))

	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	logger.Info("Table closed", "rounds", engine.Round())
	return nil
}
