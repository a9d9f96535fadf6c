package services

import (
	"context"
	"errors"

	"github.com/jakechorley/carpool/pkg/core/apperrors"
	"github.com/jakechorley/carpool/pkg/db"
)

// OfferView is an offer with its passengers and seat counts, for display only
type OfferView struct {
	db.OfferWithAssignments
	SeatsAvailable db.SeatUsage
}

func newOfferView(o db.OfferWithAssignments) OfferView {
	return OfferView{OfferWithAssignments: o, SeatsAvailable: seatsAvailable(o.Offer, o.SeatsUsed)}
}

// ListOffersForActivity returns the active offers of an activity in creation order
func ListOffersForActivity(ctx context.Context, views db.ViewStore, catalog db.ActivityCatalog, caller db.Caller, activityID string) ([]OfferView, error) {
	activity, err := requireActivity(ctx, catalog, caller, activityID)
	if err != nil {
		return nil, err
	}

	offers, err := views.ListOffersForActivity(ctx, caller.OrganizationID, activity.ID)
	if err != nil {
		return nil, storeErr("list offers", err)
	}

	result := make([]OfferView, 0, len(offers))
	for _, o := range offers {
		result = append(result, newOfferView(o))
	}
	return result, nil
}

// GetOffer returns one offer, cancelled or not, with its passengers
func GetOffer(ctx context.Context, views db.ViewStore, caller db.Caller, offerID string) (*OfferView, error) {
	offer, err := views.GetOfferView(ctx, offerID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperrors.NotFound(apperrors.CodeOfferNotFound, "offer %s not found", offerID)
	}
	if err != nil {
		return nil, storeErr("get offer", err)
	}
	if offer.OrganizationID != caller.OrganizationID {
		return nil, apperrors.NotFound(apperrors.CodeOfferNotFound, "offer %s not found", offerID)
	}
	view := newOfferView(*offer)
	return &view, nil
}

// ListMyOffers returns the caller's own offers across activities
func ListMyOffers(ctx context.Context, views db.ViewStore, caller db.Caller, includeCancelled bool) ([]db.OfferSummary, error) {
	offers, err := views.ListOffersForDriver(ctx, caller.OrganizationID, caller.UserID, includeCancelled)
	if err != nil {
		return nil, storeErr("list driver offers", err)
	}
	return offers, nil
}

// ListUnassignedParticipants returns the participants missing a ride for at least one leg
func ListUnassignedParticipants(ctx context.Context, views db.ViewStore, catalog db.ActivityCatalog, caller db.Caller, activityID string) ([]db.ParticipantCoverage, error) {
	activity, err := requireActivity(ctx, catalog, caller, activityID)
	if err != nil {
		return nil, err
	}

	coverage, err := views.ListParticipantCoverage(ctx, caller.OrganizationID, activity.ID)
	if err != nil {
		return nil, storeErr("list participant coverage", err)
	}

	var result []db.ParticipantCoverage
	for _, c := range coverage {
		if c.HasRideGoing && c.HasRideReturn {
			continue
		}
		result = append(result, c)
	}
	return result, nil
}
