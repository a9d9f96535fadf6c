package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/carpool/pkg/core/allocator"
	"github.com/jakechorley/carpool/pkg/core/apperrors"
	"github.com/jakechorley/carpool/pkg/core/direction"
	"github.com/jakechorley/carpool/pkg/db"
)

// CreateOfferRequest holds the fields a driver supplies when offering a ride
type CreateOfferRequest struct {
	ActivityID string
	// DriverID defaults to the caller. Only staff may offer on behalf of someone else.
	DriverID     string
	VehicleMake  string
	VehicleColor string
	TotalSeats   int
	Direction    string
	Notes        string
}

// CreateOffer registers a new ride offer for an activity.
// A driver may hold several offers for one activity as long as their directions don't overlap.
func CreateOffer(ctx context.Context, store db.TxRunner, catalog db.ActivityCatalog, logger *zap.Logger, caller db.Caller, req CreateOfferRequest) (*db.Offer, error) {
	if req.ActivityID == "" {
		return nil, apperrors.Validation(apperrors.CodeMissingReference, "activity is required")
	}
	if err := allocator.ValidateSeatCount(req.TotalSeats); err != nil {
		return nil, err
	}
	dir, err := direction.Parse(req.Direction)
	if err != nil {
		return nil, apperrors.Validation(apperrors.CodeInvalidDirection, "%v", err)
	}

	driverID := req.DriverID
	if driverID == "" {
		driverID = caller.UserID
	}
	if driverID != caller.UserID && !caller.IsStaff {
		return nil, apperrors.Forbidden(apperrors.CodeNotDriverOrStaff, "only staff can create an offer for another driver")
	}

	activity, err := requireActivity(ctx, catalog, caller, req.ActivityID)
	if err != nil {
		return nil, err
	}
	if !activity.Active {
		return nil, apperrors.NotFound(apperrors.CodeActivityNotFound, "activity %s is not open for carpools", req.ActivityID)
	}

	timestamp := now()
	offer := &db.Offer{
		ID:             uuid.New().String(),
		ActivityID:     activity.ID,
		DriverID:       driverID,
		OrganizationID: caller.OrganizationID,
		VehicleMake:    cleanText(req.VehicleMake),
		VehicleColor:   cleanText(req.VehicleColor),
		TotalSeats:     req.TotalSeats,
		Direction:      dir,
		Notes:          cleanText(req.Notes),
		Active:         true,
		CreatedAt:      timestamp,
		UpdatedAt:      timestamp,
	}

	logger.Debug("Creating carpool offer",
		zap.String("activity_id", activity.ID),
		zap.String("driver_id", driverID),
		zap.String("direction", string(dir)),
		zap.Int("seats", req.TotalSeats))

	err = store.InTx(ctx, func(tx db.Tx) error {
		existing, err := tx.ListActiveDriverOffers(ctx, driverID, activity.ID)
		if err != nil {
			return fmt.Errorf("failed to list driver offers: %w", err)
		}
		if err := allocator.CheckDriverOverlap(toAllocatorOffers(existing), dir, activity.ID); err != nil {
			return err
		}
		if err := tx.InsertOffer(ctx, offer); err != nil {
			return fmt.Errorf("failed to insert offer: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("create offer", err)
	}

	logger.Info("Carpool offer created",
		zap.String("offer_id", offer.ID),
		zap.String("activity_id", offer.ActivityID),
		zap.String("driver_id", offer.DriverID),
		zap.String("direction", string(offer.Direction)),
		zap.Int("seats", offer.TotalSeats))

	return offer, nil
}

// requireActivity loads an activity visible to the caller's organization
func requireActivity(ctx context.Context, catalog db.ActivityCatalog, caller db.Caller, activityID string) (*db.Activity, error) {
	if activityID == "" {
		return nil, apperrors.Validation(apperrors.CodeMissingReference, "activity is required")
	}
	activity, err := catalog.GetActivity(ctx, activityID, caller.OrganizationID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperrors.NotFound(apperrors.CodeActivityNotFound, "activity %s not found", activityID)
	}
	if err != nil {
		return nil, storeErr("get activity", err)
	}
	return activity, nil
}
