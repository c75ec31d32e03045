package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/blackjack/internal/policy"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/lox/blackjack/internal/report"
	"github.com/lox/blackjack/internal/simulator"
	"github.com/lox/blackjack/internal/statistics"
)

// SimulateCmd plays headless sessions with every seat on the local rules
type SimulateCmd struct {
	Sessions int           `help:"Number of sessions (default from config)"`
	Rounds   int           `help:"Maximum rounds per session (default from config)"`
	Seats    int           `help:"Seats per table, 1-3 (default from config)"`
	Bet      int           `help:"Seat 1's bet per round (default from config)"`
	Style    string        `default:"conservative" enum:"aggressive,conservative" help:"Style seat 1 plays with"`
	Workers  int           `help:"Parallel sessions (default from config)"`
	Seed     int64         `help:"RNG seed (0 for random)"`
	Timeout  time.Duration `help:"Per-session time limit (0 for none)"`
	Output   string        `short:"o" type:"path" help:"Also write the summary as JSON to this file"`
}

func (c *SimulateCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	logger, _, err := g.setupLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	if !g.Debug {
		logger.SetLevel(max(cfg.LogLevel(), log.WarnLevel))
	}

	style, err := policy.ParseStyle(c.Style)
	if err != nil {
		return err
	}
	sim := cfg.Simulation
	seed := randutil.Seed(c.Seed)
	config := simulator.Config{
		Sessions:      pick(c.Sessions, sim.Sessions),
		Rounds:        pick(c.Rounds, sim.Rounds),
		Seats:         pick(c.Seats, sim.Seats),
		Bet:           pick(c.Bet, sim.Bet),
		Workers:       pick(c.Workers, sim.Workers),
		HumanStyle:    style,
		StartingChips: cfg.Table.StartingChips,
		Seed:          seed,
		Timeout:       c.Timeout,
		Decider:       policy.Rules{},
		EngineOptions: cfg.EngineOptions(),
		Logger:        logger,
	}

	fmt.Printf("Starting simulation: %d sessions x %d rounds, %d seats (seed: %d)\n",
		config.Sessions, config.Rounds, config.Seats, seed)

	ctx, cancel := signalContext(logger)
	defer cancel()

	result, err := simulator.New(config).Run(ctx)
	if err != nil {
		return err
	}
	printReport(result)

	if c.Output != "" {
		if err := report.WriteJSON(c.Output, report.Summarize(result, seed)); err != nil {
			return err
		}
		fmt.Printf("\nSummary written to %s\n", c.Output)
	}
	return nil
}

func printReport(r *simulator.Report) {
	s := r.Stats
	low, high := s.ConfidenceInterval95()

	fmt.Printf("\nCompleted %d rounds in %d sessions in %s (%.0f rounds/sec)\n",
		r.Rounds, r.Sessions, r.Duration.Round(time.Millisecond), float64(r.Rounds)/r.Duration.Seconds())
	fmt.Printf("Broke tables: %d\n\n", r.Broke)

	fmt.Printf("Seat results:  %d\n", s.Rounds)
	fmt.Printf("Mean net:      %+.2f chips (95%% CI %+.2f to %+.2f)\n", s.Mean(), low, high)
	fmt.Printf("Std dev:       %.2f\n", s.StdDev())
	fmt.Printf("Median:        %+.0f  (p5 %+.0f, p95 %+.0f)\n", s.Median(), s.Percentile(0.05), s.Percentile(0.95))
	fmt.Printf("House edge:    %.2f%%\n", s.HouseEdge()*100)
	fmt.Printf("Win rate:      %.1f%%\n\n", s.WinRate()*100)

	fmt.Printf("Wins %d  Losses %d  Pushes %d  Busts %d  Blackjacks %d  Doubles %d\n\n",
		s.Wins, s.Losses, s.Pushes, s.Busts, s.Naturals, s.Doubles)

	for i, seat := range s.Seats {
		if seat.Rounds == 0 {
			continue
		}
		fmt.Printf("Player %d: %d rounds, %+.2f per round, wagered %d\n", i+1, seat.Rounds, seat.Mean(), seat.Wagered)
	}
	for _, style := range policy.Styles {
		if ss, ok := s.ByStyle[style.String()]; ok {
			printStyle(style.String(), ss)
		}
	}
}

func printStyle(name string, ss *statistics.SeatStats) {
	fmt.Printf("%-13s %d rounds, %+.2f per round\n", name+":", ss.Rounds, ss.Mean())
}

// pick returns flag when set, otherwise the configured value
func pick(flag, configured int) int {
	if flag > 0 {
		return flag
	}
	return configured
}
