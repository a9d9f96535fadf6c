package allocator

import (
	"fmt"
	"sort"

	"github.com/jakechorley/carpool/pkg/core/direction"
)

// Validation rules reported by ValidateActivity
const (
	RuleCapacity            = "capacity"
	RuleExclusivity         = "exclusivity"
	RuleCancelledWithSeats  = "cancelled_offer_has_assignments"
	RuleDirectionNotOffered = "direction_not_offered"
	RuleDuplicateSeat       = "duplicate_assignment"
	RuleOrphanSeat          = "unknown_offer"
)

// ValidationError describes one invariant violation found in stored state
type ValidationError struct {
	Rule          string
	OfferID       string
	ParticipantID string
	Direction     direction.Direction
	Message       string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Rule, e.Message)
}

// ValidateActivity checks the stored offers and assignments of one activity
// against the allocation invariants. An empty result means the state is valid.
func ValidateActivity(offers []Offer, seats []Seat) []ValidationError {
	var errors []ValidationError

	byID := make(map[string]Offer, len(offers))
	for _, o := range offers {
		byID[o.ID] = o
	}

	usage := make(map[string]Usage)
	perOfferParticipant := make(map[[2]string]int)
	perParticipant := make(map[string][]Seat)

	for _, s := range seats {
		offer, ok := byID[s.OfferID]
		if !ok {
			errors = append(errors, ValidationError{
				Rule: RuleOrphanSeat, OfferID: s.OfferID, ParticipantID: s.ParticipantID, Direction: s.Direction,
				Message: fmt.Sprintf("assignment %s references unknown offer %s", s.AssignmentID, s.OfferID),
			})
			continue
		}

		if !offer.Active {
			errors = append(errors, ValidationError{
				Rule: RuleCancelledWithSeats, OfferID: offer.ID, ParticipantID: s.ParticipantID, Direction: s.Direction,
				Message: fmt.Sprintf("assignment %s survives on cancelled offer %s", s.AssignmentID, offer.ID),
			})
			continue
		}

		if !offer.Direction.Covers(s.Direction) {
			errors = append(errors, ValidationError{
				Rule: RuleDirectionNotOffered, OfferID: offer.ID, ParticipantID: s.ParticipantID, Direction: s.Direction,
				Message: fmt.Sprintf("assignment %s is %s but offer travels %s", s.AssignmentID, s.Direction, offer.Direction),
			})
		}

		key := [2]string{s.OfferID, s.ParticipantID}
		perOfferParticipant[key]++
		if perOfferParticipant[key] == 2 {
			errors = append(errors, ValidationError{
				Rule: RuleDuplicateSeat, OfferID: offer.ID, ParticipantID: s.ParticipantID,
				Message: fmt.Sprintf("participant %s has more than one assignment on offer %s", s.ParticipantID, offer.ID),
			})
		}

		usage[s.OfferID] = usage[s.OfferID].With(s.Direction)
		perParticipant[s.ParticipantID] = append(perParticipant[s.ParticipantID], s)
	}

	for _, o := range offers {
		u := usage[o.ID]
		for _, leg := range direction.Legs {
			if u.On(leg) > o.TotalSeats {
				errors = append(errors, ValidationError{
					Rule: RuleCapacity, OfferID: o.ID, Direction: leg,
					Message: fmt.Sprintf("offer %s has %d %s passengers for %d seats", o.ID, u.On(leg), leg.Label(), o.TotalSeats),
				})
			}
		}
	}

	participants := make([]string, 0, len(perParticipant))
	for pid := range perParticipant {
		participants = append(participants, pid)
	}
	sort.Strings(participants)

	for _, pid := range participants {
		held := perParticipant[pid]
		for i := 0; i < len(held); i++ {
			for j := i + 1; j < len(held); j++ {
				if held[i].OfferID == held[j].OfferID {
					continue
				}
				if direction.Overlaps(held[i].Direction, held[j].Direction) {
					errors = append(errors, ValidationError{
						Rule: RuleExclusivity, OfferID: held[j].OfferID, ParticipantID: pid, Direction: held[j].Direction,
						Message: fmt.Sprintf("participant %s rides %s on offer %s and %s on offer %s",
							pid, held[i].Direction, held[i].OfferID, held[j].Direction, held[j].OfferID),
					})
				}
			}
		}
	}

	return errors
}
