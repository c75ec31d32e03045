// Package simulator plays many blackjack sessions headlessly and collects
// settlement statistics. Sessions are independent, each with its own engine
// and RNG, and run in parallel.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/policy"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/lox/blackjack/internal/statistics"
)

// Config holds configuration for running simulations
type Config struct {
	Sessions      int
	Rounds        int // Maximum rounds per session; a broke table ends early
	Seats         int
	Bet           int          // Seat 0's bet, clamped to its chips
	HumanStyle    policy.Style // Style seat 0 plays with
	StartingChips int
	Seed          int64
	Workers       int           // Parallel sessions, 0 means GOMAXPROCS
	Timeout       time.Duration // Per-session limit, 0 means none
	Decider       policy.Decider
	EngineOptions []game.Option
	Logger        *log.Logger
}

// Report is the outcome of a simulation run
type Report struct {
	Sessions int
	Rounds   int // Rounds dealt across all sessions
	Broke    int // Sessions that ended with every seat out of chips
	Stats    *statistics.Statistics
	Duration time.Duration
}

// Simulator runs blackjack sessions
type Simulator struct {
	config Config
}

// New creates a new simulator, filling unset fields with defaults
func New(config Config) *Simulator {
	if config.Sessions <= 0 {
		config.Sessions = 1
	}
	if config.Rounds <= 0 {
		config.Rounds = 1
	}
	if config.Seats <= 0 || config.Seats > game.MaxSeats {
		config.Seats = game.MaxSeats
	}
	if config.Bet <= 0 {
		config.Bet = 100
	}
	if config.HumanStyle == 0 {
		config.HumanStyle = policy.Conservative
	}
	if config.StartingChips <= 0 {
		config.StartingChips = game.DefaultStartingChips
	}
	if config.Workers <= 0 {
		config.Workers = runtime.GOMAXPROCS(0)
	}
	if config.Decider == nil {
		config.Decider = policy.Rules{}
	}
	if config.Logger == nil {
		config.Logger = log.New(io.Discard)
	}
	return &Simulator{config: config}
}

type sessionResult struct {
	stats  *statistics.Statistics
	rounds int
	broke  bool
}

// Run plays every session and merges the results in session order, so a
// given seed always produces the same report.
func (s *Simulator) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	results := make([]sessionResult, s.config.Sessions)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)
	for i := range results {
		seed := s.config.Seed + int64(i)
		g.Go(func() error {
			sessionCtx := ctx
			if s.config.Timeout > 0 {
				var cancel context.CancelFunc
				sessionCtx, cancel = context.WithTimeout(ctx, s.config.Timeout)
				defer cancel()
			}
			result, err := s.playSession(sessionCtx, seed)
			if err != nil {
				return fmt.Errorf("session %d (seed %d): %w", i+1, seed, err)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{
		Sessions: s.config.Sessions,
		Stats:    &statistics.Statistics{},
		Duration: time.Since(start),
	}
	for _, r := range results {
		report.Stats.Merge(r.stats)
		report.Rounds += r.rounds
		if r.broke {
			report.Broke++
		}
	}
	if err := report.Stats.Validate(); err != nil {
		return nil, fmt.Errorf("statistics validation failed: %w", err)
	}
	return report, nil
}

// playSession runs one table from seat selection until the round limit or
// until nobody can bet, checking chip conservation after every round.
func (s *Simulator) playSession(ctx context.Context, seed int64) (sessionResult, error) {
	logger := s.config.Logger.With("seed", seed)
	opts := append([]game.Option{game.WithStartingChips(s.config.StartingChips)}, s.config.EngineOptions...)
	engine := game.NewEngine(randutil.New(seed), logger, opts...)
	pilot := game.NewAutopilot(engine, s.config.Decider, nil, logger)

	styles, err := s.seatTable(engine)
	if err != nil {
		return sessionResult{}, err
	}

	result := sessionResult{stats: &statistics.Statistics{}}
	expected := s.config.StartingChips * s.config.Seats
	for round := 0; round < s.config.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if round > 0 {
			err := engine.AdvanceToNextRound()
			if errors.Is(err, game.ErrTableBroke) {
				result.broke = true
				break
			}
			if err != nil {
				return result, err
			}
		}

		if err := s.playRound(ctx, engine, pilot, nil); err != nil {
			return result, err
		}

		snap := engine.Snapshot()
		for _, r := range snap.Results {
			result.stats.Add(statistics.FromSeatResult(r, styles[r.Seat], snap.Seats[r.Seat].Doubled))
			expected += r.Net
		}
		result.rounds++

		total := 0
		for _, seat := range snap.Seats {
			total += seat.Chips
		}
		if total != expected {
			return result, fmt.Errorf("chip conservation violated after round %d: have %d, want %d", round+1, total, expected)
		}
	}

	logger.Debug("Session complete", "rounds", result.rounds, "broke", result.broke)
	return result, nil
}

// seatTable seats the configured number of players, alternating computer
// styles, and returns each seat's style name (empty for seat 0).
func (s *Simulator) seatTable(engine *game.Engine) ([]string, error) {
	if err := engine.SelectSeatCount(s.config.Seats); err != nil {
		return nil, err
	}
	for seat := 1; seat < s.config.Seats; seat++ {
		style := policy.Styles[(seat-1)%len(policy.Styles)]
		if err := engine.SelectComputerStyle(seat, style); err != nil {
			return nil, err
		}
	}

	styles := make([]string, s.config.Seats)
	snap := engine.Snapshot()
	for seat := 1; seat < s.config.Seats; seat++ {
		styles[seat] = snap.Seats[seat].Style
	}
	return styles, nil
}

// playRound places seat 0's bet if it is asked for one, then resolves turns
// until the round is settled. Seat 0 is driven by the same decider as the
// computer seats, using the configured style. A nil pacer plays unpaced.
func (s *Simulator) playRound(ctx context.Context, engine *game.Engine, pilot *game.Autopilot, pacer *game.Pacer) error {
	if engine.Phase() == game.PhaseBetting {
		bet := min(s.config.Bet, engine.Chips(0))
		if err := engine.PlaceBet(bet); err != nil {
			return err
		}
	}

	for engine.Phase() == game.PhasePlaying {
		if engine.ActiveIsComputer() {
			if _, err := pilot.Run(ctx); err != nil {
				return err
			}
			continue
		}

		situation, ok := engine.Situation()
		if !ok {
			return fmt.Errorf("no active seat while playing")
		}
		situation.Style = s.config.HumanStyle
		decision := s.config.Decider.Decide(ctx, situation)
		if err := pacer.Wait(ctx); err != nil {
			return err
		}
		err := engine.ApplyDecision(decision)
		if errors.Is(err, game.ErrIllegalAction) {
			err = engine.Stand()
		}
		if err != nil {
			return err
		}
	}
	if engine.Phase() != game.PhaseSettlement {
		return fmt.Errorf("round ended in %s", engine.Phase())
	}
	return nil
}

// Live plays one table on engine until ctx is done, pausing on pacer
// between actions and after each settlement. When every seat is broke the
// session is ended and the table reseated. Watchers follow through the
// engine's event bus. It returns ctx.Err().
func (s *Simulator) Live(ctx context.Context, engine *game.Engine, pacer *game.Pacer) error {
	pilot := game.NewAutopilot(engine, s.config.Decider, pacer, s.config.Logger)

	for {
		if _, err := s.seatTable(engine); err != nil {
			return err
		}
		for {
			if err := s.playRound(ctx, engine, pilot, pacer); err != nil {
				return err
			}
			if err := pacer.Wait(ctx); err != nil {
				return err
			}
			err := engine.AdvanceToNextRound()
			if errors.Is(err, game.ErrTableBroke) {
				s.config.Logger.Info("Table broke, reseating", "rounds", engine.Round())
				engine.EndSession()
				break
			}
			if err != nil {
				return err
			}
		}
	}
}

// RunSimulation is a convenience wrapper with default settings
func RunSimulation(ctx context.Context, sessions, rounds int, seed int64, logger *log.Logger) (*Report, error) {
	return New(Config{
		Sessions: sessions,
		Rounds:   rounds,
		Seed:     seed,
		Logger:   logger,
	}).Run(ctx)
}
