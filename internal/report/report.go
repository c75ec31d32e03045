// Package report writes simulation summaries to disk.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lox/blackjack/internal/policy"
	"github.com/lox/blackjack/internal/simulator"
)

// Summary is the JSON form of a simulation run
type Summary struct {
	Seed        int64            `json:"seed"`
	Sessions    int              `json:"sessions"`
	Rounds      int              `json:"rounds"`
	BrokeTables int              `json:"broke_tables"`
	SeatRounds  int              `json:"seat_rounds"`
	MeanNet     float64          `json:"mean_net"`
	CI95        [2]float64       `json:"ci95"`
	StdDev      float64          `json:"std_dev"`
	HouseEdge   float64          `json:"house_edge"`
	WinRate     float64          `json:"win_rate"`
	Outcomes    map[string]int   `json:"outcomes"`
	Seats       []SeatSummary    `json:"seats"`
	Styles      map[string]Style `json:"styles,omitempty"`
	Duration    string           `json:"duration"`
}

// SeatSummary is one seat position's totals
type SeatSummary struct {
	Seat    int     `json:"seat"`
	Rounds  int     `json:"rounds"`
	MeanNet float64 `json:"mean_net"`
	Wagered int     `json:"wagered"`
}

// Style is the totals for computer seats playing one style
type Style struct {
	Rounds  int     `json:"rounds"`
	MeanNet float64 `json:"mean_net"`
}

// Summarize flattens a simulator report
func Summarize(r *simulator.Report, seed int64) Summary {
	s := r.Stats
	low, high := s.ConfidenceInterval95()
	sum := Summary{
		Seed:        seed,
		Sessions:    r.Sessions,
		Rounds:      r.Rounds,
		BrokeTables: r.Broke,
		SeatRounds:  s.Rounds,
		MeanNet:     s.Mean(),
		CI95:        [2]float64{low, high},
		StdDev:      s.StdDev(),
		HouseEdge:   s.HouseEdge(),
		WinRate:     s.WinRate(),
		Outcomes: map[string]int{
			"win":     s.Wins,
			"lose":    s.Losses,
			"push":    s.Pushes,
			"bust":    s.Busts,
			"natural": s.Naturals,
			"double":  s.Doubles,
		},
		Duration: r.Duration.Round(time.Millisecond).String(),
	}
	for i, seat := range s.Seats {
		if seat.Rounds == 0 {
			continue
		}
		sum.Seats = append(sum.Seats, SeatSummary{Seat: i, Rounds: seat.Rounds, MeanNet: seat.Mean(), Wagered: seat.Wagered})
	}
	for _, style := range policy.Styles {
		if ss, ok := s.ByStyle[style.String()]; ok {
			if sum.Styles == nil {
				sum.Styles = make(map[string]Style)
			}
			sum.Styles[style.String()] = Style{Rounds: ss.Rounds, MeanNet: ss.Mean()}
		}
	}
	return sum
}

// WriteJSON writes v as indented JSON to filename. The data goes to a
// temporary file in the same directory which is then renamed over the
// target, so readers see either the old file or the complete new one.
func WriteJSON(filename string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(filename), filepath.Base(filename)+".tmp.*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, filename); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	committed = true
	return nil
}
