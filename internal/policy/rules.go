package policy

import "context"

// Rules is the deterministic local policy
type Rules struct{}

// Decide implements Decider
func (Rules) Decide(_ context.Context, s Situation) Decision {
	return Evaluate(s)
}

// Evaluate applies the style's fixed thresholds to s.
func Evaluate(s Situation) Decision {
	total := s.Score()

	if s.Style == Aggressive {
		switch {
		case s.CanDouble() && (total == 10 || total == 11):
			return rule(Double, "Double down!")
		case s.IsSoft() && total == 17:
			return rule(Hit, "Soft 17, hitting")
		case total <= 16:
			return rule(Hit, "Fortune favors bold!")
		default:
			return rule(Stand, "Got strong hand")
		}
	}

	dealer := s.DealerValue()
	switch {
	case total >= 15:
		return rule(Stand, "Playing safe on 15+")
	case total >= 12:
		return rule(Stand, "Better safe than bust")
	case s.CanDouble() && total == 11 && dealer >= 4 && dealer <= 6:
		return rule(Double, "Safe double")
	case total <= 11:
		return rule(Hit, "Cannot bust")
	default:
		return rule(Stand, "Preserving total")
	}
}

func rule(a Action, reason string) Decision {
	return Decision{Action: a, Reason: reason, Source: SourceRules}
}
