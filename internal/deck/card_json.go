package deck

import "fmt"

// MarshalText encodes a card as "10♥". The zero Card (a concealed or absent
// card) encodes as an empty string.
func (c Card) MarshalText() ([]byte, error) {
	if c == (Card{}) {
		return []byte{}, nil
	}
	if !c.Rank.Valid() || c.Suit > Spades {
		return nil, fmt.Errorf("invalid card: rank %d suit %d", c.Rank, c.Suit)
	}
	return []byte(c.String()), nil
}

// UnmarshalText decodes anything ParseCard accepts; an empty string decodes
// to the zero Card.
func (c *Card) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*c = Card{}
		return nil
	}
	parsed, err := ParseCard(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
