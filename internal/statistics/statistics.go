// Package statistics accumulates settlement results across many rounds.
package statistics

import (
	"fmt"
	"math"
	"sort"

	"github.com/lox/blackjack/internal/game"
)

// RoundResult is one seat's settlement in one round
type RoundResult struct {
	Seat    int
	Style   string // empty for the human seat
	Outcome game.Outcome
	Bet     int
	Net     int // chips won (+) or lost (-)
	Doubled bool
}

// FromSeatResult converts an engine settlement
func FromSeatResult(r game.SeatResult, style string, doubled bool) RoundResult {
	return RoundResult{
		Seat:    r.Seat,
		Style:   style,
		Outcome: r.Outcome,
		Bet:     r.Bet,
		Net:     r.Net,
		Doubled: doubled,
	}
}

// SeatStats tracks totals for one seat position
type SeatStats struct {
	Rounds  int
	SumNet  float64
	SumNet2 float64
	Wagered int
}

// Mean returns the seat's mean net chips per round
func (s SeatStats) Mean() float64 {
	if s.Rounds == 0 {
		return 0
	}
	return s.SumNet / float64(s.Rounds)
}

// Statistics tracks simulation results
type Statistics struct {
	Rounds  int
	SumNet  float64
	SumNet2 float64   // Sum of squares for variance calculation
	Values  []float64 // Every net result for median/percentile calculation
	Wagered int

	Wins     int
	Losses   int
	Pushes   int
	Busts    int
	Naturals int
	Doubles  int

	Seats   [game.MaxSeats]SeatStats
	ByStyle map[string]*SeatStats
}

// Add incorporates a round result
func (s *Statistics) Add(r RoundResult) {
	net := float64(r.Net)
	s.Rounds++
	s.SumNet += net
	s.SumNet2 += net * net
	s.Values = append(s.Values, net)
	s.Wagered += r.Bet

	switch r.Outcome {
	case game.OutcomeWin:
		s.Wins++
	case game.OutcomePush:
		s.Pushes++
	case game.OutcomeBust:
		s.Busts++
	case game.OutcomeNatural:
		s.Naturals++
	default:
		s.Losses++
	}
	if r.Doubled {
		s.Doubles++
	}

	if r.Seat >= 0 && r.Seat < len(s.Seats) {
		addTo(&s.Seats[r.Seat], r)
	}
	if r.Style != "" {
		if s.ByStyle == nil {
			s.ByStyle = make(map[string]*SeatStats)
		}
		if s.ByStyle[r.Style] == nil {
			s.ByStyle[r.Style] = &SeatStats{}
		}
		addTo(s.ByStyle[r.Style], r)
	}
}

func addTo(ss *SeatStats, r RoundResult) {
	net := float64(r.Net)
	ss.Rounds++
	ss.SumNet += net
	ss.SumNet2 += net * net
	ss.Wagered += r.Bet
}

// Merge folds other into s
func (s *Statistics) Merge(other *Statistics) {
	s.Rounds += other.Rounds
	s.SumNet += other.SumNet
	s.SumNet2 += other.SumNet2
	s.Values = append(s.Values, other.Values...)
	s.Wagered += other.Wagered
	s.Wins += other.Wins
	s.Losses += other.Losses
	s.Pushes += other.Pushes
	s.Busts += other.Busts
	s.Naturals += other.Naturals
	s.Doubles += other.Doubles

	for i := range s.Seats {
		mergeSeat(&s.Seats[i], other.Seats[i])
	}
	for style, ss := range other.ByStyle {
		if s.ByStyle == nil {
			s.ByStyle = make(map[string]*SeatStats)
		}
		if s.ByStyle[style] == nil {
			s.ByStyle[style] = &SeatStats{}
		}
		mergeSeat(s.ByStyle[style], *ss)
	}
}

func mergeSeat(dst *SeatStats, src SeatStats) {
	dst.Rounds += src.Rounds
	dst.SumNet += src.SumNet
	dst.SumNet2 += src.SumNet2
	dst.Wagered += src.Wagered
}

// Mean returns the arithmetic mean net chips per seat-round
func (s *Statistics) Mean() float64 {
	if s.Rounds == 0 {
		return 0
	}
	return s.SumNet / float64(s.Rounds)
}

// Variance returns the sample variance of all results
func (s *Statistics) Variance() float64 {
	if s.Rounds < 2 {
		return 0
	}
	mean := s.Mean()
	return (s.SumNet2 - float64(s.Rounds)*mean*mean) / float64(s.Rounds-1)
}

// StdDev returns the sample standard deviation of all results
func (s *Statistics) StdDev() float64 {
	return math.Sqrt(s.Variance())
}

// StdError returns the standard error of the mean
func (s *Statistics) StdError() float64 {
	if s.Rounds == 0 {
		return 0
	}
	return s.StdDev() / math.Sqrt(float64(s.Rounds))
}

// ConfidenceInterval95 returns the 95% confidence interval for the mean
func (s *Statistics) ConfidenceInterval95() (float64, float64) {
	mean := s.Mean()
	margin := 1.96 * s.StdError()
	return mean - margin, mean + margin
}

// HouseEdge returns the fraction of wagered chips lost to the dealer
func (s *Statistics) HouseEdge() float64 {
	if s.Wagered == 0 {
		return 0
	}
	return -s.SumNet / float64(s.Wagered)
}

// WinRate returns the share of rounds won, naturals included
func (s *Statistics) WinRate() float64 {
	if s.Rounds == 0 {
		return 0
	}
	return float64(s.Wins+s.Naturals) / float64(s.Rounds)
}

// Median returns the median value of all results
func (s *Statistics) Median() float64 {
	return s.Percentile(0.5)
}

// Percentile returns the value at the given percentile (0.0 to 1.0)
func (s *Statistics) Percentile(p float64) float64 {
	if len(s.Values) == 0 {
		return 0
	}
	sorted := make([]float64, len(s.Values))
	copy(sorted, s.Values)
	sort.Float64s(sorted)

	index := p * float64(len(sorted)-1)
	lower := int(index)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// Validate checks that the tallies agree with each other
func (s *Statistics) Validate() error {
	if s.Rounds <= 0 {
		return fmt.Errorf("invalid rounds count: %d", s.Rounds)
	}
	if len(s.Values) != s.Rounds {
		return fmt.Errorf("values array length (%d) does not match rounds count (%d)", len(s.Values), s.Rounds)
	}
	if outcomes := s.Wins + s.Losses + s.Pushes + s.Busts + s.Naturals; outcomes != s.Rounds {
		return fmt.Errorf("outcome total (%d) does not match rounds count (%d)", outcomes, s.Rounds)
	}

	seatRounds := 0
	seatNet := 0.0
	for _, ss := range s.Seats {
		seatRounds += ss.Rounds
		seatNet += ss.SumNet
	}
	if seatRounds != s.Rounds {
		return fmt.Errorf("seat rounds total (%d) does not match rounds count (%d)", seatRounds, s.Rounds)
	}
	if math.Abs(seatNet-s.SumNet) > 1e-6 {
		return fmt.Errorf("ledger mismatch: seats=%.2f total=%.2f", seatNet, s.SumNet)
	}
	return nil
}
