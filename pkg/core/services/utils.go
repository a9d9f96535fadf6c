package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jakechorley/carpool/pkg/core/allocator"
	"github.com/jakechorley/carpool/pkg/core/apperrors"
	"github.com/jakechorley/carpool/pkg/db"
)

// now is replaced in tests that need fixed timestamps
var now = func() time.Time {
	return time.Now().UTC()
}

// storeErr passes typed errors through and turns anything else into a "try again" error
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	return apperrors.Unavailable(fmt.Errorf("%s: %w", op, err))
}

// lockVisibleOffer locks an offer and hides it from callers outside its organization
func lockVisibleOffer(ctx context.Context, tx db.Tx, caller db.Caller, offerID string) (*db.Offer, error) {
	offer, err := tx.LockOffer(ctx, offerID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperrors.NotFound(apperrors.CodeOfferNotFound, "offer %s not found", offerID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock offer: %w", err)
	}
	if offer.OrganizationID != caller.OrganizationID {
		return nil, apperrors.NotFound(apperrors.CodeOfferNotFound, "offer %s not found", offerID)
	}
	return offer, nil
}

// canManageOffer reports whether the caller is the offer's driver or organization staff
func canManageOffer(caller db.Caller, offer *db.Offer) bool {
	return caller.IsStaff || caller.UserID == offer.DriverID
}

func toAllocatorOffer(o db.Offer) allocator.Offer {
	return allocator.Offer{
		ID:         o.ID,
		ActivityID: o.ActivityID,
		DriverID:   o.DriverID,
		TotalSeats: o.TotalSeats,
		Direction:  o.Direction,
		Active:     o.Active,
	}
}

func toAllocatorOffers(offers []db.Offer) []allocator.Offer {
	result := make([]allocator.Offer, 0, len(offers))
	for _, o := range offers {
		result = append(result, toAllocatorOffer(o))
	}
	return result
}

func toAllocatorUsage(u db.SeatUsage) allocator.Usage {
	return allocator.Usage{ToActivity: u.ToActivity, FromActivity: u.FromActivity}
}

func fromAllocatorUsage(u allocator.Usage) db.SeatUsage {
	return db.SeatUsage{ToActivity: u.ToActivity, FromActivity: u.FromActivity}
}

func toHeld(assignments []db.Assignment) []allocator.Held {
	held := make([]allocator.Held, 0, len(assignments))
	for _, a := range assignments {
		held = append(held, allocator.Held{AssignmentID: a.ID, OfferID: a.OfferID, Direction: a.Direction})
	}
	return held
}

// seatsAvailable derives free seats per leg for display
func seatsAvailable(o db.Offer, used db.SeatUsage) db.SeatUsage {
	return fromAllocatorUsage(toAllocatorUsage(used).Remaining(o.TotalSeats, o.Direction))
}

func cleanText(s string) string {
	return strings.TrimSpace(s)
}
