package allocator

import "github.com/jakechorley/carpool/pkg/core/direction"

// Seat limits for a single offer
const (
	MinSeats = 1
	MaxSeats = 8
)

// Offer is the part of a carpool offer that admission decisions depend on
type Offer struct {
	ID         string
	ActivityID string
	DriverID   string
	TotalSeats int
	Direction  direction.Direction
	Active     bool
}

// Usage counts seats taken on each leg of one offer.
// A "both" assignment takes one seat on each leg.
type Usage struct {
	ToActivity   int
	FromActivity int
}

// On returns the seats taken on a single leg
func (u Usage) On(leg direction.Direction) int {
	switch leg {
	case direction.ToActivity:
		return u.ToActivity
	case direction.FromActivity:
		return u.FromActivity
	}
	return 0
}

// With returns the usage after one more passenger travelling in d
func (u Usage) With(d direction.Direction) Usage {
	for _, leg := range d.Legs() {
		switch leg {
		case direction.ToActivity:
			u.ToActivity++
		case direction.FromActivity:
			u.FromActivity++
		}
	}
	return u
}

// Remaining returns the free seats per leg for an offer of totalSeats travelling in offered.
// Legs the offer does not travel have no seats.
func (u Usage) Remaining(totalSeats int, offered direction.Direction) Usage {
	var r Usage
	if offered.Covers(direction.ToActivity) {
		r.ToActivity = max(totalSeats-u.ToActivity, 0)
	}
	if offered.Covers(direction.FromActivity) {
		r.FromActivity = max(totalSeats-u.FromActivity, 0)
	}
	return r
}

// Held is an assignment a participant already holds for the same activity
type Held struct {
	AssignmentID string
	OfferID      string
	Direction    direction.Direction
}

// Request is a single admission question: may this participant take a seat
// travelling in Direction on Offer, given the offer's current usage and the
// participant's other assignments for the activity?
type Request struct {
	Offer         Offer
	Usage         Usage
	ParticipantID string
	Direction     direction.Direction
	Held          []Held
}

// Seat is one assignment as seen by the validator
type Seat struct {
	AssignmentID  string
	OfferID       string
	ParticipantID string
	Direction     direction.Direction
}
