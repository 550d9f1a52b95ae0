package models

import "strings"

// Outcome represents the resolution state of a market.
// It only ever moves from OutcomeUnresolved to OutcomeHit or OutcomeMiss.
type Outcome string

const (
	OutcomeUnresolved Outcome = "unresolved"
	OutcomeHit        Outcome = "hit"
	OutcomeMiss       Outcome = "miss"
)

// Valid reports whether o is one of the known outcomes.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeUnresolved, OutcomeHit, OutcomeMiss:
		return true
	}
	return false
}

// Resolved reports whether o is terminal.
func (o Outcome) Resolved() bool {
	return o == OutcomeHit || o == OutcomeMiss
}

// WinningSide returns the side paid out by a resolved outcome.
func (o Outcome) WinningSide() (Side, bool) {
	switch o {
	case OutcomeHit:
		return SideHit, true
	case OutcomeMiss:
		return SideMiss, true
	case OutcomeUnresolved:
		return "", false
	}
	return "", false
}

// ParseOutcome accepts "hit", "miss" or "unresolved" in any case.
func ParseOutcome(s string) (Outcome, error) {
	o := Outcome(strings.ToLower(strings.TrimSpace(s)))
	if !o.Valid() {
		return "", ErrInvalidOutcome
	}
	return o, nil
}

// Side selects one of the two outcome share books.
type Side string

const (
	SideHit  Side = "hit"
	SideMiss Side = "miss"
)

// Valid reports whether s is SideHit or SideMiss.
func (s Side) Valid() bool {
	return s == SideHit || s == SideMiss
}

// ParseSide accepts "hit" or "miss" in any case.
func ParseSide(s string) (Side, error) {
	side := Side(strings.ToLower(strings.TrimSpace(s)))
	if !side.Valid() {
		return "", ErrInvalidSide
	}
	return side, nil
}

// Direction tells buys and sells apart in trade records.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)
