package allocator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/carpool/pkg/core/apperrors"
	"github.com/jakechorley/carpool/pkg/core/direction"
)

func bothOffer(seats int) Offer {
	return Offer{ID: "offer-1", ActivityID: "act-1", DriverID: "driver-1", TotalSeats: seats, Direction: direction.Both, Active: true}
}

func TestAdmit_EmptyOffer(t *testing.T) {
	err := Admit(Request{Offer: bothOffer(2), ParticipantID: "kid-1", Direction: direction.Both})
	assert.NoError(t, err)
}

func TestAdmit_CancelledOffer(t *testing.T) {
	offer := bothOffer(2)
	offer.Active = false

	err := Admit(Request{Offer: offer, ParticipantID: "kid-1", Direction: direction.ToActivity})
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	assert.Equal(t, apperrors.CodeOfferCancelled, apperrors.CodeOf(err))
}

func TestAdmit_InvalidDirection(t *testing.T) {
	err := Admit(Request{Offer: bothOffer(2), ParticipantID: "kid-1", Direction: "sideways"})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestAdmit_DirectionNotOffered(t *testing.T) {
	offer := bothOffer(2)
	offer.Direction = direction.ToActivity

	err := Admit(Request{Offer: offer, ParticipantID: "kid-1", Direction: direction.FromActivity})
	assert.Equal(t, apperrors.CodeDirectionNotOffered, apperrors.CodeOf(err))

	err = Admit(Request{Offer: offer, ParticipantID: "kid-1", Direction: direction.Both})
	assert.Equal(t, apperrors.CodeDirectionNotOffered, apperrors.CodeOf(err))
}

func TestAdmit_LastSeatThenFull(t *testing.T) {
	offer := bothOffer(1)
	offer.Direction = direction.ToActivity

	err := Admit(Request{Offer: offer, Usage: Usage{}, ParticipantID: "kid-1", Direction: direction.ToActivity})
	require.NoError(t, err)

	err = Admit(Request{Offer: offer, Usage: Usage{ToActivity: 1}, ParticipantID: "kid-2", Direction: direction.ToActivity})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrCapacityExceeded))

	e, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, direction.ToActivity, e.Direction)
	assert.Equal(t, "act-1", e.ActivityID)
}

func TestAdmit_BothConsumesEachLegIndependently(t *testing.T) {
	// 4-seat "both" offer: 4 going and 4 returning, not 4 total
	offer := bothOffer(4)
	usage := Usage{ToActivity: 4, FromActivity: 3}

	err := Admit(Request{Offer: offer, Usage: usage, ParticipantID: "kid-9", Direction: direction.FromActivity})
	assert.NoError(t, err)

	err = Admit(Request{Offer: offer, Usage: usage, ParticipantID: "kid-9", Direction: direction.ToActivity})
	assert.True(t, errors.Is(err, apperrors.ErrCapacityExceeded))

	err = Admit(Request{Offer: offer, Usage: usage, ParticipantID: "kid-9", Direction: direction.Both})
	require.True(t, errors.Is(err, apperrors.ErrCapacityExceeded))
	e, _ := apperrors.As(err)
	assert.Equal(t, direction.ToActivity, e.Direction, "the full leg is reported")
}

func TestAdmit_ExclusivityAcrossOffers(t *testing.T) {
	held := []Held{{AssignmentID: "a-1", OfferID: "offer-other", Direction: direction.ToActivity}}

	// Return leg is free
	err := Admit(Request{Offer: bothOffer(2), ParticipantID: "kid-1", Direction: direction.FromActivity, Held: held})
	assert.NoError(t, err)

	// Going leg is already covered elsewhere
	err = Admit(Request{Offer: bothOffer(2), ParticipantID: "kid-1", Direction: direction.ToActivity, Held: held})
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	assert.Equal(t, apperrors.CodeAlreadyAssigned, apperrors.CodeOf(err))

	// Both overlaps the held going leg
	err = Admit(Request{Offer: bothOffer(2), ParticipantID: "kid-1", Direction: direction.Both, Held: held})
	assert.Equal(t, apperrors.CodeAlreadyAssigned, apperrors.CodeOf(err))
	e, _ := apperrors.As(err)
	assert.Equal(t, direction.ToActivity, e.Direction)
}

func TestAdmit_SameOfferTwice(t *testing.T) {
	held := []Held{{AssignmentID: "a-1", OfferID: "offer-1", Direction: direction.ToActivity}}

	err := Admit(Request{Offer: bothOffer(2), ParticipantID: "kid-1", Direction: direction.FromActivity, Held: held})
	assert.Equal(t, apperrors.CodeAlreadyAssigned, apperrors.CodeOf(err))
}

func TestAdmit_ExclusivityCheckedBeforeCapacity(t *testing.T) {
	held := []Held{{OfferID: "offer-other", Direction: direction.Both}}

	err := Admit(Request{Offer: bothOffer(1), Usage: Usage{ToActivity: 1}, ParticipantID: "kid-1", Direction: direction.ToActivity, Held: held})
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
}

func TestValidateSeatCount(t *testing.T) {
	for _, n := range []int{1, 4, 8} {
		assert.NoError(t, ValidateSeatCount(n), "seats=%d", n)
	}
	for _, n := range []int{-1, 0, 9, 100} {
		err := ValidateSeatCount(n)
		assert.True(t, errors.Is(err, apperrors.ErrValidation), "seats=%d", n)
		assert.Equal(t, apperrors.CodeSeatCountOutOfRange, apperrors.CodeOf(err))
	}
}

func TestCheckDriverOverlap(t *testing.T) {
	existing := []Offer{
		{ID: "o-1", Direction: direction.ToActivity, Active: true},
		{ID: "o-2", Direction: direction.FromActivity, Active: false},
	}

	assert.NoError(t, CheckDriverOverlap(existing, direction.FromActivity, "act-1"))

	err := CheckDriverOverlap(existing, direction.Both, "act-1")
	assert.Equal(t, apperrors.CodeDuplicateOffer, apperrors.CodeOf(err))

	err = CheckDriverOverlap(existing, direction.ToActivity, "act-1")
	assert.True(t, errors.Is(err, apperrors.ErrConflict))

	assert.NoError(t, CheckDriverOverlap(nil, direction.Both, "act-1"))
}

func TestCheckSeatChange(t *testing.T) {
	offer := bothOffer(3)
	usage := Usage{ToActivity: 3, FromActivity: 1}

	err := CheckSeatChange(offer, usage, 2)
	require.True(t, errors.Is(err, apperrors.ErrConflict))
	e, _ := apperrors.As(err)
	assert.Equal(t, apperrors.CodeSeatReductionBelowUsage, e.Code)
	assert.Equal(t, 1, e.Shortfall)
	assert.Equal(t, direction.ToActivity, e.Direction)

	assert.NoError(t, CheckSeatChange(offer, usage, 3))
	assert.NoError(t, CheckSeatChange(offer, usage, 8))

	err = CheckSeatChange(offer, usage, 9)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestCheckDirectionChange(t *testing.T) {
	offer := bothOffer(3)

	assert.NoError(t, CheckDirectionChange(offer, Usage{ToActivity: 2}, direction.ToActivity))

	err := CheckDirectionChange(offer, Usage{ToActivity: 2, FromActivity: 1}, direction.ToActivity)
	assert.Equal(t, apperrors.CodeDirectionChangeInUse, apperrors.CodeOf(err))

	err = CheckDirectionChange(offer, Usage{}, "nowhere")
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestUsage_Remaining(t *testing.T) {
	u := Usage{ToActivity: 2, FromActivity: 5}

	assert.Equal(t, Usage{ToActivity: 2, FromActivity: 0}, u.Remaining(4, direction.Both))
	assert.Equal(t, Usage{ToActivity: 2}, u.Remaining(4, direction.ToActivity))
	assert.Equal(t, Usage{}, Usage{}.Remaining(4, "bogus"))
}

func TestUsage_With(t *testing.T) {
	u := Usage{}.With(direction.Both).With(direction.ToActivity)
	assert.Equal(t, Usage{ToActivity: 2, FromActivity: 1}, u)
}
