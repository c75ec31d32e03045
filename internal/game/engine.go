package game

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	rand "math/rand/v2"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/policy"
	"github.com/lox/blackjack/internal/score"
	"github.com/lox/blackjack/internal/shoe"
)

// NoActiveSeat is reported by ActiveSeat when nobody is waiting to act
const NoActiveSeat = -1

// Engine owns one table session: the shoe, the seats, the dealer and the
// round state machine.
type Engine struct {
	cfg    *engineConfig
	id     string
	shoe   *shoe.Shoe
	seats  []*Seat
	dealer Dealer

	phase       Phase
	active      int
	round       int
	message     string
	explanation string
	results     []SeatResult

	logger *log.Logger
	bus    EventBus
	clock  quartz.Clock
}

// NewEngine creates a table waiting in ModeSelect.
// The RNG is required so shuffles are reproducible from a seed.
func NewEngine(rng *rand.Rand, logger *log.Logger, opts ...Option) *Engine {
	if rng == nil {
		panic("rng is required for engine creation")
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	cfg := defaultEngineConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	s := cfg.shoe
	if s == nil {
		s = shoe.New(rng, cfg.decks, shoe.WithReshuffleThreshold(cfg.threshold))
	}
	id := cfg.sessionID
	if id == "" {
		id = uuid.NewString()
	}
	clock := cfg.clock
	if clock == nil {
		clock = quartz.NewReal()
	}
	bus := cfg.bus
	if bus == nil {
		bus = NewEventBus()
	}

	e := &Engine{
		cfg:    cfg,
		id:     id,
		shoe:   s,
		phase:  PhaseModeSelect,
		active: NoActiveSeat,
		logger: logger.WithPrefix("engine").With("session", id[:min(8, len(id))]),
		bus:    bus,
		clock:  clock,
	}
	e.message = "Select number of players"
	return e
}

// SessionID returns the session's identifier
func (e *Engine) SessionID() string { return e.id }

// Phase returns the current phase
func (e *Engine) Phase() Phase { return e.phase }

// Round returns the number of rounds dealt this session
func (e *Engine) Round() int { return e.round }

// Message returns the human-readable status line
func (e *Engine) Message() string { return e.message }

// EventBus returns the bus events are published on
func (e *Engine) EventBus() EventBus { return e.bus }

// Shoe returns the session's shoe for read access
func (e *Engine) Shoe() *shoe.Shoe { return e.shoe }

// Results returns the last settlement's per-seat results
func (e *Engine) Results() []SeatResult {
	return append([]SeatResult(nil), e.results...)
}

// ActiveSeat returns the index of the seat expected to act, or NoActiveSeat
func (e *Engine) ActiveSeat() int { return e.active }

// ActiveIsComputer returns true if a computer seat is waiting for a decision
func (e *Engine) ActiveIsComputer() bool {
	seat := e.activeSeat()
	return seat != nil && e.phase == PhasePlaying && seat.Control == Computer
}

// SeatCount returns the number of seats at the table
func (e *Engine) SeatCount() int { return len(e.seats) }

// Chips returns a seat's balance
func (e *Engine) Chips(seat int) int {
	if seat < 0 || seat >= len(e.seats) {
		return 0
	}
	return e.seats[seat].Chips
}

// SelectSeatCount seats n players (1 to MaxSeats). Seat 0 is human, the rest
// are computer controlled.
func (e *Engine) SelectSeatCount(n int) error {
	if err := e.expect(PhaseModeSelect); err != nil {
		return err
	}
	if n < 1 || n > MaxSeats {
		e.message = fmt.Sprintf("Choose between 1 and %d players", MaxSeats)
		return fmt.Errorf("%w: seat count %d", ErrIllegalAction, n)
	}

	e.seats = make([]*Seat, n)
	for i := range e.seats {
		control := Computer
		if i == 0 {
			control = Human
		}
		e.seats[i] = &Seat{
			Index:   i,
			Name:    fmt.Sprintf("Player %d", i+1),
			Control: control,
			Chips:   e.cfg.startingChips,
		}
	}
	e.logger.Info("Seats selected", "seats", n)

	if n == 1 {
		return e.beginBetting()
	}
	e.setPhase(PhaseStyleSelect)
	e.message = "Select AI play styles"
	return nil
}

// SelectComputerStyle assigns a style to a computer seat. Betting opens once
// every computer seat has one.
func (e *Engine) SelectComputerStyle(seat int, style policy.Style) error {
	if err := e.expect(PhaseStyleSelect); err != nil {
		return err
	}
	if seat < 0 || seat >= len(e.seats) || e.seats[seat].Control != Computer {
		return fmt.Errorf("%w: seat %d is not a computer seat", ErrIllegalAction, seat)
	}
	if style != policy.Aggressive && style != policy.Conservative {
		return fmt.Errorf("%w: unknown style %d", ErrIllegalAction, style)
	}

	e.seats[seat].Style = style
	e.logger.Debug("Style selected", "seat", e.seats[seat].Name, "style", style)

	for _, s := range e.seats {
		if s.Control == Computer && s.Style == 0 {
			return nil
		}
	}
	return e.beginBetting()
}

// PlaceBet debits amount from the active human seat. Computer seats after it
// bet automatically; the last bet deals the round.
func (e *Engine) PlaceBet(amount int) error {
	if err := e.expect(PhaseBetting); err != nil {
		return err
	}
	seat := e.activeSeat()
	if seat == nil || seat.Control != Human {
		return fmt.Errorf("%w: no human seat is betting", ErrIllegalAction)
	}
	if amount <= 0 {
		e.message = "Bet must be greater than zero"
		return fmt.Errorf("%w: %d", ErrInvalidBet, amount)
	}
	if amount > seat.Chips {
		e.message = "Not enough chips!"
		return fmt.Errorf("%w: %d exceeds %d chips", ErrInvalidBet, amount, seat.Chips)
	}

	e.debitBet(seat, amount)
	return e.continueBetting(seat.Index + 1)
}

// Hit draws a card for the active seat
func (e *Engine) Hit() error {
	seat, err := e.actingSeat()
	if err != nil {
		return err
	}

	seat.Hand = append(seat.Hand, e.draw())
	e.publishAction(seat, policy.Hit)

	switch total := seat.Score(); {
	case total > score.Blackjack:
		seat.Busted = true
		seat.Done = true
		e.activateFrom(seat.Index+1, seat.Name+" BUSTS! ")
	case total == score.Blackjack:
		seat.Done = true
		e.activateFrom(seat.Index+1, "")
	default:
		e.message = seat.Name + "'s turn"
	}
	return nil
}

// Stand ends the active seat's turn
func (e *Engine) Stand() error {
	seat, err := e.actingSeat()
	if err != nil {
		return err
	}

	seat.Done = true
	e.publishAction(seat, policy.Stand)
	e.activateFrom(seat.Index+1, "")
	return nil
}

// DoubleDown doubles the active seat's bet, draws exactly one card and ends
// the turn.
func (e *Engine) DoubleDown() error {
	seat, err := e.actingSeat()
	if err != nil {
		return err
	}
	if len(seat.Hand) != 2 {
		e.message = "You can only double down on your first two cards"
		return fmt.Errorf("%w: double with %d cards", ErrIllegalAction, len(seat.Hand))
	}
	if seat.Chips < seat.Bet {
		e.message = "Not enough chips to double down!"
		return fmt.Errorf("%w: double needs %d chips, have %d", ErrIllegalAction, seat.Bet, seat.Chips)
	}

	seat.Chips -= seat.Bet
	seat.Bet *= 2
	seat.Doubled = true
	seat.Hand = append(seat.Hand, e.draw())
	seat.Done = true
	e.publishAction(seat, policy.Double)

	prefix := ""
	if seat.Score() > score.Blackjack {
		seat.Busted = true
		prefix = seat.Name + " BUSTS! "
	}
	e.activateFrom(seat.Index+1, prefix)
	return nil
}

// Apply performs a decided action for the active seat
func (e *Engine) Apply(action policy.Action) error {
	switch action {
	case policy.Hit:
		return e.Hit()
	case policy.Stand:
		return e.Stand()
	case policy.Double:
		return e.DoubleDown()
	default:
		return fmt.Errorf("%w: unknown action %d", ErrIllegalAction, action)
	}
}

// ApplyDecision records the decision's rationale for display, then applies it
func (e *Engine) ApplyDecision(d policy.Decision) error {
	seat, err := e.actingSeat()
	if err != nil {
		return err
	}
	e.explanation = fmt.Sprintf("%s: %s", seat.Name, d.Reason)
	return e.Apply(d.Action)
}

// Split is never available.
func (e *Engine) Split() error {
	e.message = "Split is not available"
	return ErrSplitUnavailable
}

// Situation describes the active seat for a policy.Decider. It returns false
// when no seat is in play.
func (e *Engine) Situation() (policy.Situation, bool) {
	seat := e.activeSeat()
	if seat == nil || e.phase != PhasePlaying {
		return policy.Situation{}, false
	}
	return policy.Situation{
		Name:     seat.Name,
		Hand:     append([]deck.Card(nil), seat.Hand...),
		DealerUp: e.dealer.UpCard(),
		Chips:    seat.Chips,
		Bet:      seat.Bet,
		Style:    seat.Style,
	}, true
}

// MarkThinking announces that the active computer seat is deciding
func (e *Engine) MarkThinking() {
	if seat := e.activeSeat(); seat != nil && e.phase == PhasePlaying {
		e.message = seat.Name + " is thinking..."
	}
}

// AdvanceToNextRound clears hands and bets and reopens Betting. Chips carry
// over. Fails with ErrTableBroke when no seat can bet.
func (e *Engine) AdvanceToNextRound() error {
	if err := e.expect(PhaseSettlement); err != nil {
		return err
	}
	broke := true
	for _, s := range e.seats {
		if s.Chips > 0 {
			broke = false
			break
		}
	}
	if broke {
		e.message = "Every seat is out of chips"
		return ErrTableBroke
	}
	return e.beginBetting()
}

// EndSession discards the seats, rebuilds the shoe and returns to
// ModeSelect. Allowed from any phase.
func (e *Engine) EndSession() {
	e.logger.Info("Session ended", "rounds", e.round)
	e.seats = nil
	e.dealer = Dealer{}
	e.results = nil
	e.explanation = ""
	e.round = 0
	e.active = NoActiveSeat
	e.reshuffle("session ended")
	e.setPhase(PhaseModeSelect)
	e.message = "Select number of players"
}

func (e *Engine) beginBetting() error {
	e.dealer = Dealer{}
	e.results = nil
	e.explanation = ""
	for _, s := range e.seats {
		s.clearRound()
	}
	e.setPhase(PhaseBetting)
	e.message = "Place your bet(s)"
	return e.continueBetting(0)
}

// continueBetting bets for computer seats from index from onward, stopping
// at the next human seat. Once every seat has bet the round is dealt.
func (e *Engine) continueBetting(from int) error {
	for i := from; i < len(e.seats); i++ {
		seat := e.seats[i]
		if seat.SittingOut {
			continue
		}
		if seat.Control == Human {
			e.active = i
			e.message = seat.Name + ", place your bet"
			return nil
		}
		stake := min(e.cfg.stakes[seat.Style], seat.Chips)
		if stake <= 0 {
			seat.SittingOut = true
			continue
		}
		e.debitBet(seat, stake)
	}

	e.active = NoActiveSeat
	for _, s := range e.seats {
		if s.InRound() {
			e.deal()
			return nil
		}
	}
	e.message = "Every seat is out of chips"
	return ErrTableBroke
}

func (e *Engine) debitBet(seat *Seat, amount int) {
	seat.Chips -= amount
	seat.Bet = amount
	e.logger.Debug("Bet placed", "seat", seat.Name, "amount", amount, "chips", seat.Chips)
	e.bus.Publish(BetPlacedEvent{
		Seat:      seat.Index,
		Name:      seat.Name,
		Amount:    amount,
		Chips:     seat.Chips,
		timestamp: e.clock.Now(),
	})
}

// deal checks the low-water mark, then deals two passes of one card per seat
// followed by one for the dealer.
func (e *Engine) deal() {
	if e.shoe.NeedsReshuffle() {
		e.reshuffle("low water mark")
	}
	e.round++

	playing := make([]*Seat, 0, len(e.seats))
	for _, s := range e.seats {
		if s.InRound() {
			playing = append(playing, s)
		}
	}
	e.logger.Info("Dealing round", "round", e.round, "seats", len(playing), "remaining", e.shoe.Remaining())
	e.bus.Publish(RoundStartEvent{
		Round:     e.round,
		Seats:     len(playing),
		Remaining: e.shoe.Remaining(),
		timestamp: e.clock.Now(),
	})

	for pass := 0; pass < 2; pass++ {
		for _, s := range playing {
			c := e.draw()
			s.Hand = append(s.Hand, c)
			e.bus.Publish(CardDealtEvent{Seat: s.Index, Card: c, timestamp: e.clock.Now()})
		}
		c := e.draw()
		e.dealer.Hand = append(e.dealer.Hand, c)
		if pass == 0 {
			e.bus.Publish(CardDealtEvent{Seat: DealerSeat, Card: c, timestamp: e.clock.Now()})
		} else {
			e.bus.Publish(CardDealtEvent{Seat: DealerSeat, Concealed: true, timestamp: e.clock.Now()})
		}
	}

	if e.cfg.payout == Bonus {
		for _, s := range playing {
			if !s.IsNatural() {
				continue
			}
			credit := NaturalBonus(s.Bet)
			s.Chips += credit
			s.Done = true
			s.Paid = true
			e.results = append(e.results, newResult(s, OutcomeNatural, credit))
			e.logger.Debug("Natural paid", "seat", s.Name, "credit", credit)
		}
	}

	e.setPhase(PhasePlaying)
	e.activateFrom(0, "")
}

// activateFrom hands the turn to the first seat at or after i that still has
// a decision to make, or runs the dealer when none is left. prefix is
// prepended to the resulting status message.
func (e *Engine) activateFrom(i int, prefix string) {
	for ; i < len(e.seats); i++ {
		s := e.seats[i]
		if !s.InRound() || s.Done {
			continue
		}
		if s.Score() >= score.Blackjack {
			s.Done = true
			continue
		}
		e.active = i
		e.message = prefix + s.Name + "'s turn"
		return
	}
	e.active = NoActiveSeat
	e.playDealer()
}

func (e *Engine) playDealer() {
	e.setPhase(PhaseDealerTurn)
	e.dealer.Revealed = true
	for e.dealer.Score() < score.DealerStandsOn {
		e.dealer.Hand = append(e.dealer.Hand, e.draw())
	}
	dealerScore := e.dealer.Score()
	e.logger.Debug("Dealer stands", "hand", deck.FormatCards(e.dealer.Hand), "score", dealerScore)
	e.bus.Publish(DealerPlayEvent{
		Hand:      append([]deck.Card(nil), e.dealer.Hand...),
		Score:     dealerScore,
		timestamp: e.clock.Now(),
	})
	e.settle(dealerScore)
}

func (e *Engine) settle(dealerScore int) {
	for _, s := range e.seats {
		if !s.InRound() || s.Paid {
			continue
		}
		outcome, credit := Settle(s.Score(), dealerScore, s.Bet)
		s.Chips += credit
		e.results = append(e.results, newResult(s, outcome, credit))
	}
	slices.SortFunc(e.results, func(a, b SeatResult) int {
		return cmp.Compare(a.Seat, b.Seat)
	})

	e.setPhase(PhaseSettlement)
	e.message = settlementMessage(dealerScore, e.results)
	e.logger.Info("Round settled", "round", e.round, "dealer", dealerScore)
	e.bus.Publish(RoundSettledEvent{
		Round:       e.round,
		DealerScore: dealerScore,
		Results:     e.Results(),
		timestamp:   e.clock.Now(),
	})
}

// draw takes the next card. The shoe is checked before every deal, so
// running dry mid-round only happens with tiny shoes; it is rebuilt rather
// than surfacing ErrEmptyShoe.
func (e *Engine) draw() deck.Card {
	c, err := e.shoe.Draw()
	if errors.Is(err, shoe.ErrEmptyShoe) {
		e.reshuffle("shoe ran out mid-round")
		c, err = e.shoe.Draw()
	}
	if err != nil {
		panic(fmt.Sprintf("draw from rebuilt shoe: %v", err))
	}
	return c
}

func (e *Engine) reshuffle(reason string) {
	e.shoe.Reshuffle()
	e.logger.Info("Shoe reshuffled", "reason", reason, "size", e.shoe.Size())
	e.bus.Publish(ReshuffleEvent{Reason: reason, Size: e.shoe.Size(), timestamp: e.clock.Now()})
}

func (e *Engine) publishAction(seat *Seat, action policy.Action) {
	e.logger.Debug("Seat action", "seat", seat.Name, "action", action, "hand", deck.FormatCards(seat.Hand))
	e.bus.Publish(SeatActionEvent{
		Seat:      seat.Index,
		Name:      seat.Name,
		Action:    action,
		Score:     seat.Score(),
		Bet:       seat.Bet,
		Busted:    seat.Score() > score.Blackjack,
		timestamp: e.clock.Now(),
	})
}

func (e *Engine) setPhase(p Phase) {
	if e.phase == p {
		return
	}
	from := e.phase
	e.phase = p
	e.bus.Publish(PhaseChangeEvent{From: from, To: p, timestamp: e.clock.Now()})
}

func (e *Engine) expect(p Phase) error {
	if e.phase != p {
		return fmt.Errorf("%w: in %s, want %s", ErrWrongPhase, e.phase, p)
	}
	return nil
}

func (e *Engine) activeSeat() *Seat {
	if e.active < 0 || e.active >= len(e.seats) {
		return nil
	}
	return e.seats[e.active]
}

func (e *Engine) actingSeat() (*Seat, error) {
	if err := e.expect(PhasePlaying); err != nil {
		return nil, err
	}
	seat := e.activeSeat()
	if seat == nil {
		return nil, fmt.Errorf("%w: no active seat", ErrIllegalAction)
	}
	return seat, nil
}
