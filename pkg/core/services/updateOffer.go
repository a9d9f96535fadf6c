package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/carpool/pkg/core/allocator"
	"github.com/jakechorley/carpool/pkg/core/apperrors"
	"github.com/jakechorley/carpool/pkg/core/direction"
	"github.com/jakechorley/carpool/pkg/db"
)

// OfferPatch lists the offer fields to change. Nil fields are left alone.
type OfferPatch struct {
	VehicleMake  *string
	VehicleColor *string
	TotalSeats   *int
	Direction    *string
	Notes        *string
}

// IsEmpty reports whether the patch changes nothing
func (p OfferPatch) IsEmpty() bool {
	return p.VehicleMake == nil && p.VehicleColor == nil && p.TotalSeats == nil && p.Direction == nil && p.Notes == nil
}

// UpdateOffer changes an active offer. Seat reductions below current usage
// and direction changes that would strand assigned participants are refused.
func UpdateOffer(ctx context.Context, store db.TxRunner, logger *zap.Logger, caller db.Caller, offerID string, patch OfferPatch) (*db.Offer, error) {
	if patch.IsEmpty() {
		return nil, apperrors.Validation(apperrors.CodeEmptyPatch, "no fields to update")
	}
	if patch.TotalSeats != nil {
		if err := allocator.ValidateSeatCount(*patch.TotalSeats); err != nil {
			return nil, err
		}
	}
	var newDirection direction.Direction
	if patch.Direction != nil {
		d, err := direction.Parse(*patch.Direction)
		if err != nil {
			return nil, apperrors.Validation(apperrors.CodeInvalidDirection, "%v", err)
		}
		newDirection = d
	}

	logger.Debug("Updating carpool offer", zap.String("offer_id", offerID))

	var updated *db.Offer
	err := store.InTx(ctx, func(tx db.Tx) error {
		offer, err := lockVisibleOffer(ctx, tx, caller, offerID)
		if err != nil {
			return err
		}
		if !canManageOffer(caller, offer) {
			return apperrors.Forbidden(apperrors.CodeNotOfferOwner, "only the driver or staff can change this offer")
		}
		if !offer.Active {
			return apperrors.Conflict(apperrors.CodeOfferCancelled, "offer %s has been cancelled", offer.ID).
				WithActivity(offer.ActivityID)
		}

		usage, err := tx.SeatUsage(ctx, offer.ID)
		if err != nil {
			return fmt.Errorf("failed to count seat usage: %w", err)
		}
		current := toAllocatorOffer(*offer)

		if patch.TotalSeats != nil {
			if err := allocator.CheckSeatChange(current, toAllocatorUsage(usage), *patch.TotalSeats); err != nil {
				return err
			}
			offer.TotalSeats = *patch.TotalSeats
		}

		if patch.Direction != nil && newDirection != offer.Direction {
			if err := allocator.CheckDirectionChange(current, toAllocatorUsage(usage), newDirection); err != nil {
				return err
			}
			existing, err := tx.ListActiveDriverOffers(ctx, offer.DriverID, offer.ActivityID)
			if err != nil {
				return fmt.Errorf("failed to list driver offers: %w", err)
			}
			others := make([]db.Offer, 0, len(existing))
			for _, o := range existing {
				if o.ID != offer.ID {
					others = append(others, o)
				}
			}
			if err := allocator.CheckDriverOverlap(toAllocatorOffers(others), newDirection, offer.ActivityID); err != nil {
				return err
			}
			offer.Direction = newDirection
		}

		if patch.VehicleMake != nil {
			offer.VehicleMake = cleanText(*patch.VehicleMake)
		}
		if patch.VehicleColor != nil {
			offer.VehicleColor = cleanText(*patch.VehicleColor)
		}
		if patch.Notes != nil {
			offer.Notes = cleanText(*patch.Notes)
		}
		offer.UpdatedAt = now()

		if err := tx.UpdateOffer(ctx, offer); err != nil {
			return fmt.Errorf("failed to update offer: %w", err)
		}
		updated = offer
		return nil
	})
	if err != nil {
		return nil, storeErr("update offer", err)
	}

	logger.Info("Carpool offer updated",
		zap.String("offer_id", updated.ID),
		zap.Int("seats", updated.TotalSeats),
		zap.String("direction", string(updated.Direction)))

	return updated, nil
}
