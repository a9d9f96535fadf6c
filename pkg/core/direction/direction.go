package direction

import "fmt"

// Direction identifies which leg(s) of a trip an offer or assignment covers
type Direction string

const (
	ToActivity   Direction = "to_activity"
	FromActivity Direction = "from_activity"
	Both         Direction = "both"
)

// All lists the accepted directions in display order
var All = []Direction{ToActivity, FromActivity, Both}

// Legs lists the single-leg directions that capacity is counted against
var Legs = []Direction{ToActivity, FromActivity}

// IsValid reports whether d is one of the three known directions
func (d Direction) IsValid() bool {
	switch d {
	case ToActivity, FromActivity, Both:
		return true
	}
	return false
}

// IsValidDirection reports whether value names a known direction
func IsValidDirection(value string) bool {
	return Direction(value).IsValid()
}

// Parse converts a raw string into a Direction
func Parse(value string) (Direction, error) {
	d := Direction(value)
	if !d.IsValid() {
		return "", fmt.Errorf("invalid trip direction %q (expected one of to_activity, from_activity, both)", value)
	}
	return d, nil
}

// Overlaps reports whether two directions share at least one leg.
// Both overlaps everything; ToActivity and FromActivity do not overlap each other.
// Unknown directions never overlap.
func Overlaps(a, b Direction) bool {
	if !a.IsValid() || !b.IsValid() {
		return false
	}
	return a == Both || b == Both || a == b
}

// Covers reports whether a vehicle travelling in d carries a passenger travelling in other
func (d Direction) Covers(other Direction) bool {
	if !d.IsValid() || !other.IsValid() {
		return false
	}
	return d == Both || d == other
}

// Legs returns the single-leg directions consumed by d
func (d Direction) Legs() []Direction {
	switch d {
	case ToActivity:
		return []Direction{ToActivity}
	case FromActivity:
		return []Direction{FromActivity}
	case Both:
		return []Direction{ToActivity, FromActivity}
	}
	return nil
}

// Label returns a short human-readable name
func (d Direction) Label() string {
	switch d {
	case ToActivity:
		return "going"
	case FromActivity:
		return "return"
	case Both:
		return "going & return"
	}
	return string(d)
}

func (d Direction) String() string {
	return string(d)
}
