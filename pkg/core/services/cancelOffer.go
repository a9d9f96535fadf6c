package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/carpool/pkg/core/apperrors"
	"github.com/jakechorley/carpool/pkg/db"
)

// CancellationNotifier delivers cancellation notices to affected guardians.
// It is called after the cancellation commits and its failures never undo it.
type CancellationNotifier interface {
	NotifyCancellation(ctx context.Context, notice db.CancellationNotice) error
}

// CancelResult is what a committed cancellation produced
type CancelResult struct {
	Offer              *db.Offer
	AffectedParties    []db.AffectedParty
	RemovedAssignments int
}

// CancelOffer cancels an offer and removes all of its assignments in one unit
// of work. The affected parties are captured before the assignments are
// removed and handed to notifier once the cancellation has committed.
func CancelOffer(ctx context.Context, store db.TxRunner, notifier CancellationNotifier, logger *zap.Logger, caller db.Caller, offerID, reason string) (*CancelResult, error) {
	reason = cleanText(reason)
	logger.Debug("Cancelling carpool offer", zap.String("offer_id", offerID))

	var result *CancelResult
	var driverName string
	err := store.InTx(ctx, func(tx db.Tx) error {
		offer, err := lockVisibleOffer(ctx, tx, caller, offerID)
		if err != nil {
			return err
		}
		if !canManageOffer(caller, offer) {
			return apperrors.Forbidden(apperrors.CodeNotOfferOwner, "only the driver or staff can cancel this offer")
		}
		if !offer.Active {
			return apperrors.Conflict(apperrors.CodeOfferCancelled, "offer %s is already cancelled", offer.ID).
				WithActivity(offer.ActivityID)
		}

		parties, err := tx.AffectedParties(ctx, offer.ID)
		if err != nil {
			return fmt.Errorf("failed to load affected parties: %w", err)
		}

		name, err := tx.UserDisplayName(ctx, offer.DriverID)
		if err != nil && !errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("failed to load driver name: %w", err)
		}
		driverName = name

		cancelledAt := now()
		if err := tx.MarkOfferCancelled(ctx, offer.ID, reason, cancelledAt); err != nil {
			return fmt.Errorf("failed to mark offer cancelled: %w", err)
		}
		removed, err := tx.DeleteOfferAssignments(ctx, offer.ID)
		if err != nil {
			return fmt.Errorf("failed to remove assignments: %w", err)
		}

		offer.Active = false
		offer.CancelledAt = &cancelledAt
		offer.CancellationReason = reason
		offer.UpdatedAt = cancelledAt

		result = &CancelResult{Offer: offer, AffectedParties: parties, RemovedAssignments: removed}
		return nil
	})
	if err != nil {
		return nil, storeErr("cancel offer", err)
	}

	logger.Info("Carpool offer cancelled",
		zap.String("offer_id", result.Offer.ID),
		zap.String("activity_id", result.Offer.ActivityID),
		zap.Int("removed_assignments", result.RemovedAssignments),
		zap.Int("affected_parties", len(result.AffectedParties)))

	if notifier != nil && len(result.AffectedParties) > 0 {
		notice := db.CancellationNotice{
			OfferID:     result.Offer.ID,
			ActivityID:  result.Offer.ActivityID,
			DriverName:  driverName,
			Reason:      reason,
			CancelledAt: *result.Offer.CancelledAt,
			Parties:     result.AffectedParties,
		}
		if err := notifier.NotifyCancellation(ctx, notice); err != nil {
			logger.Error("Failed to queue cancellation notices",
				zap.String("offer_id", result.Offer.ID),
				zap.Error(err))
		}
	}

	return result, nil
}
