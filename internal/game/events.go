package game

import (
	"time"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/policy"
)

// EventType represents a game event type with type safety
type EventType string

const (
	EventTypePhaseChange  EventType = "phase_change"
	EventTypeRoundStart   EventType = "round_start"
	EventTypeBetPlaced    EventType = "bet_placed"
	EventTypeCardDealt    EventType = "card_dealt"
	EventTypeSeatAction   EventType = "seat_action"
	EventTypeDealerPlay   EventType = "dealer_play"
	EventTypeRoundSettled EventType = "round_settled"
	EventTypeReshuffle    EventType = "reshuffle"
)

// String returns the string representation of the event type
func (et EventType) String() string {
	return string(et)
}

// GameEvent represents anything that happens at the table
type GameEvent interface {
	EventType() EventType
	Timestamp() time.Time
}

// DealerSeat is the seat index reported for cards dealt to the dealer
const DealerSeat = -1

// PhaseChangeEvent is published on every state machine transition
type PhaseChangeEvent struct {
	From      Phase
	To        Phase
	timestamp time.Time
}

func (e PhaseChangeEvent) EventType() EventType { return EventTypePhaseChange }
func (e PhaseChangeEvent) Timestamp() time.Time { return e.timestamp }

// RoundStartEvent is published when the last bet is in, before the deal
type RoundStartEvent struct {
	Round     int
	Seats     int
	Remaining int
	timestamp time.Time
}

func (e RoundStartEvent) EventType() EventType { return EventTypeRoundStart }
func (e RoundStartEvent) Timestamp() time.Time { return e.timestamp }

// BetPlacedEvent is published when a seat's bet is debited
type BetPlacedEvent struct {
	Seat      int
	Name      string
	Amount    int
	Chips     int
	timestamp time.Time
}

func (e BetPlacedEvent) EventType() EventType { return EventTypeBetPlaced }
func (e BetPlacedEvent) Timestamp() time.Time { return e.timestamp }

// CardDealtEvent is published for every card leaving the shoe. The dealer's
// hole card is published concealed, with a zero Card.
type CardDealtEvent struct {
	Seat      int
	Card      deck.Card
	Concealed bool
	timestamp time.Time
}

func (e CardDealtEvent) EventType() EventType { return EventTypeCardDealt }
func (e CardDealtEvent) Timestamp() time.Time { return e.timestamp }

// SeatActionEvent is published after a seat's action has been applied
type SeatActionEvent struct {
	Seat      int
	Name      string
	Action    policy.Action
	Score     int
	Bet       int
	Busted    bool
	timestamp time.Time
}

func (e SeatActionEvent) EventType() EventType { return EventTypeSeatAction }
func (e SeatActionEvent) Timestamp() time.Time { return e.timestamp }

// DealerPlayEvent is published once the dealer has revealed and drawn out
type DealerPlayEvent struct {
	Hand      []deck.Card
	Score     int
	timestamp time.Time
}

func (e DealerPlayEvent) EventType() EventType { return EventTypeDealerPlay }
func (e DealerPlayEvent) Timestamp() time.Time { return e.timestamp }

// RoundSettledEvent is published with every seat's result
type RoundSettledEvent struct {
	Round       int
	DealerScore int
	Results     []SeatResult
	timestamp   time.Time
}

func (e RoundSettledEvent) EventType() EventType { return EventTypeRoundSettled }
func (e RoundSettledEvent) Timestamp() time.Time { return e.timestamp }

// ReshuffleEvent is published whenever the shoe is rebuilt
type ReshuffleEvent struct {
	Reason    string
	Size      int
	timestamp time.Time
}

func (e ReshuffleEvent) EventType() EventType { return EventTypeReshuffle }
func (e ReshuffleEvent) Timestamp() time.Time { return e.timestamp }

// EventSubscriber can subscribe to game events
type EventSubscriber interface {
	OnEvent(event GameEvent)
}

// EventSubscriberFunc adapts a function to EventSubscriber. Func values are
// not comparable, so subscribers registered this way cannot be unsubscribed.
type EventSubscriberFunc func(GameEvent)

// OnEvent calls f(event)
func (f EventSubscriberFunc) OnEvent(event GameEvent) { f(event) }

// EventBus manages event publishing and subscription
type EventBus interface {
	Subscribe(subscriber EventSubscriber)
	Unsubscribe(subscriber EventSubscriber)
	Publish(event GameEvent)
}

// SimpleEventBus is a synchronous in-memory event bus. Subscribers run on
// the publishing goroutine, in subscription order.
type SimpleEventBus struct {
	subscribers []EventSubscriber
}

// NewEventBus creates a new event bus
func NewEventBus() *SimpleEventBus {
	return &SimpleEventBus{}
}

// Subscribe adds a subscriber to receive events
func (bus *SimpleEventBus) Subscribe(subscriber EventSubscriber) {
	bus.subscribers = append(bus.subscribers, subscriber)
}

// Unsubscribe removes a subscriber from receiving events
func (bus *SimpleEventBus) Unsubscribe(subscriber EventSubscriber) {
	for i, sub := range bus.subscribers {
		if _, isFunc := sub.(EventSubscriberFunc); isFunc {
			continue
		}
		if sub == subscriber {
			bus.subscribers = append(bus.subscribers[:i], bus.subscribers[i+1:]...)
			return
		}
	}
}

// Publish sends an event to all subscribers
func (bus *SimpleEventBus) Publish(event GameEvent) {
	for _, subscriber := range bus.subscribers {
		subscriber.OnEvent(event)
	}
}
