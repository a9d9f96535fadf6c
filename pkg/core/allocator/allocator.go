package allocator

import (
	"github.com/jakechorley/carpool/pkg/core/apperrors"
	"github.com/jakechorley/carpool/pkg/core/direction"
)

// Admit decides whether a participant can be seated on an offer.
// Checks run in order: offer state, direction coverage, exclusivity against
// the participant's other assignments for the activity, then capacity on
// every leg the requested direction consumes.
//
// Admit is only authoritative when its inputs were read inside the same
// unit of work that performs the insert.
func Admit(req Request) error {
	offer := req.Offer

	if !offer.Active {
		return apperrors.Conflict(apperrors.CodeOfferCancelled, "offer %s has been cancelled", offer.ID).
			WithActivity(offer.ActivityID)
	}

	if !req.Direction.IsValid() {
		return apperrors.Validation(apperrors.CodeInvalidDirection, "invalid trip direction %q", string(req.Direction))
	}

	if !offer.Direction.Covers(req.Direction) {
		return apperrors.Conflict(apperrors.CodeDirectionNotOffered,
			"this ride only offers %s, cannot assign %s", offer.Direction.Label(), req.Direction.Label()).
			WithDirection(req.Direction).
			WithActivity(offer.ActivityID)
	}

	for _, h := range req.Held {
		if h.OfferID == offer.ID {
			return apperrors.Conflict(apperrors.CodeAlreadyAssigned,
				"participant is already assigned to this ride (%s)", h.Direction.Label()).
				WithDirection(h.Direction).
				WithActivity(offer.ActivityID)
		}
		if direction.Overlaps(h.Direction, req.Direction) {
			return apperrors.Conflict(apperrors.CodeAlreadyAssigned,
				"participant is already assigned for this leg (%s)", overlapLeg(h.Direction, req.Direction).Label()).
				WithDirection(overlapLeg(h.Direction, req.Direction)).
				WithActivity(offer.ActivityID)
		}
	}

	for _, leg := range req.Direction.Legs() {
		if req.Usage.On(leg)+1 > offer.TotalSeats {
			return apperrors.CapacityExceeded(leg, offer.ActivityID)
		}
	}

	return nil
}

// ValidateSeatCount checks a requested seat count against the allowed range
func ValidateSeatCount(seats int) error {
	if seats < MinSeats || seats > MaxSeats {
		return apperrors.Validation(apperrors.CodeSeatCountOutOfRange,
			"seat count must be between %d and %d, got %d", MinSeats, MaxSeats, seats)
	}
	return nil
}

// CheckDriverOverlap refuses a new or changed offer whose direction overlaps
// another active offer by the same driver for the same activity.
// existing must not include the offer being changed.
func CheckDriverOverlap(existing []Offer, requested direction.Direction, activityID string) error {
	for _, o := range existing {
		if !o.Active {
			continue
		}
		if direction.Overlaps(o.Direction, requested) {
			return apperrors.Conflict(apperrors.CodeDuplicateOffer,
				"driver already has an active offer for this activity covering %s", overlapLeg(o.Direction, requested).Label()).
				WithDirection(overlapLeg(o.Direction, requested)).
				WithActivity(activityID)
		}
	}
	return nil
}

// CheckSeatChange refuses to set the seat count below the seats already taken on either leg
func CheckSeatChange(offer Offer, usage Usage, newSeats int) error {
	if err := ValidateSeatCount(newSeats); err != nil {
		return err
	}
	for _, leg := range direction.Legs {
		used := usage.On(leg)
		if used > newSeats {
			err := apperrors.Conflict(apperrors.CodeSeatReductionBelowUsage,
				"cannot reduce to %d seats: %d participants are assigned for the %s leg; remove %d first",
				newSeats, used, leg.Label(), used-newSeats).
				WithDirection(leg).
				WithActivity(offer.ActivityID)
			err.Shortfall = used - newSeats
			return err
		}
	}
	return nil
}

// CheckDirectionChange refuses to stop travelling a leg that has passengers
func CheckDirectionChange(offer Offer, usage Usage, newDirection direction.Direction) error {
	if !newDirection.IsValid() {
		return apperrors.Validation(apperrors.CodeInvalidDirection, "invalid trip direction %q", string(newDirection))
	}
	for _, leg := range direction.Legs {
		if usage.On(leg) > 0 && !newDirection.Covers(leg) {
			return apperrors.Conflict(apperrors.CodeDirectionChangeInUse,
				"cannot change direction to %s: %d participants are assigned for the %s leg",
				newDirection.Label(), usage.On(leg), leg.Label()).
				WithDirection(leg).
				WithActivity(offer.ActivityID)
		}
	}
	return nil
}

// overlapLeg names the leg two overlapping directions share, preferring the more specific one
func overlapLeg(a, b direction.Direction) direction.Direction {
	if a != direction.Both {
		return a
	}
	return b
}
