package game

import "fmt"

// Phase is the round state machine's current state
type Phase uint8

const (
	PhaseModeSelect Phase = iota
	PhaseStyleSelect
	PhaseBetting
	PhasePlaying
	PhaseDealerTurn
	PhaseSettlement
)

var phaseNames = [...]string{
	PhaseModeSelect:  "mode_select",
	PhaseStyleSelect: "style_select",
	PhaseBetting:     "betting",
	PhasePlaying:     "playing",
	PhaseDealerTurn:  "dealer_turn",
	PhaseSettlement:  "settlement",
}

// String returns the string representation of the phase
func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", p)
}

// MarshalText encodes the phase by name for the spectator feed
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name
func (p *Phase) UnmarshalText(b []byte) error {
	for i, name := range phaseNames {
		if name == string(b) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", b)
}
