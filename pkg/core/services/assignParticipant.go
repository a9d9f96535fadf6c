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

// AssignRequest asks for a participant to be seated on an offer
type AssignRequest struct {
	OfferID       string
	ParticipantID string
	Direction     string
	Notes         string
}

// AssignResult is the created assignment plus the state of the offer right after it
type AssignResult struct {
	Assignment     db.Assignment
	DriverName     string
	SeatsUsed      db.SeatUsage
	SeatsAvailable db.SeatUsage
}

// AssignParticipant seats a participant on an offer for a direction.
// Every check and the insert run in one unit of work with the offer locked,
// so two concurrent requests can never both take the last seat of a leg.
func AssignParticipant(ctx context.Context, store db.TxRunner, guardians db.GuardianDirectory, logger *zap.Logger, caller db.Caller, req AssignRequest) (*AssignResult, error) {
	if req.OfferID == "" || req.ParticipantID == "" {
		return nil, apperrors.Validation(apperrors.CodeMissingReference, "offer and participant are required")
	}
	dir, err := direction.Parse(req.Direction)
	if err != nil {
		return nil, apperrors.Validation(apperrors.CodeInvalidDirection, "%v", err)
	}

	logger.Debug("Assigning participant",
		zap.String("offer_id", req.OfferID),
		zap.String("participant_id", req.ParticipantID),
		zap.String("direction", string(dir)))

	var result *AssignResult
	err = store.InTx(ctx, func(tx db.Tx) error {
		offer, err := lockVisibleOffer(ctx, tx, caller, req.OfferID)
		if err != nil {
			return err
		}
		if !offer.Active {
			return apperrors.Conflict(apperrors.CodeOfferCancelled, "offer %s has been cancelled", offer.ID).
				WithActivity(offer.ActivityID)
		}

		if !caller.IsStaff {
			ok, err := guardians.IsGuardianOf(ctx, caller.UserID, req.ParticipantID)
			if err != nil {
				return fmt.Errorf("failed to check guardianship: %w", err)
			}
			if !ok {
				return apperrors.Forbidden(apperrors.CodeNotGuardian, "only a guardian or staff can assign this participant")
			}
		}

		participant, err := tx.GetParticipant(ctx, req.ParticipantID)
		if errors.Is(err, db.ErrNotFound) {
			return apperrors.NotFound(apperrors.CodeParticipantNotFound, "participant %s not found", req.ParticipantID)
		}
		if err != nil {
			return fmt.Errorf("failed to load participant: %w", err)
		}
		if participant.OrganizationID != offer.OrganizationID {
			return apperrors.NotFound(apperrors.CodeParticipantNotFound, "participant %s not found", req.ParticipantID)
		}

		held, err := tx.ListParticipantAssignments(ctx, participant.ID, offer.ActivityID)
		if err != nil {
			return fmt.Errorf("failed to list participant assignments: %w", err)
		}
		usage, err := tx.SeatUsage(ctx, offer.ID)
		if err != nil {
			return fmt.Errorf("failed to count seat usage: %w", err)
		}

		err = allocator.Admit(allocator.Request{
			Offer:         toAllocatorOffer(*offer),
			Usage:         toAllocatorUsage(usage),
			ParticipantID: participant.ID,
			Direction:     dir,
			Held:          toHeld(held),
		})
		if err != nil {
			return err
		}

		assignment := db.Assignment{
			ID:             uuid.New().String(),
			OfferID:        offer.ID,
			ParticipantID:  participant.ID,
			OrganizationID: offer.OrganizationID,
			AssignedBy:     caller.UserID,
			Direction:      dir,
			Notes:          cleanText(req.Notes),
			CreatedAt:      now(),
		}
		if err := tx.InsertAssignment(ctx, &assignment); err != nil {
			return fmt.Errorf("failed to insert assignment: %w", err)
		}

		driverName, err := tx.UserDisplayName(ctx, offer.DriverID)
		if err != nil && !errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("failed to load driver name: %w", err)
		}

		used := fromAllocatorUsage(toAllocatorUsage(usage).With(dir))
		result = &AssignResult{
			Assignment:     assignment,
			DriverName:     driverName,
			SeatsUsed:      used,
			SeatsAvailable: seatsAvailable(*offer, used),
		}
		return nil
	})
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindCapacityExceeded {
			logger.Info("Offer full, assignment refused",
				zap.String("offer_id", req.OfferID),
				zap.String("participant_id", req.ParticipantID),
				zap.String("direction", string(dir)))
		}
		return nil, storeErr("assign participant", err)
	}

	logger.Info("Participant assigned",
		zap.String("assignment_id", result.Assignment.ID),
		zap.String("offer_id", result.Assignment.OfferID),
		zap.String("participant_id", result.Assignment.ParticipantID),
		zap.String("direction", string(result.Assignment.Direction)))

	return result, nil
}

// RemoveAssignment deletes one assignment. Staff and the participant's guardians may remove it.
func RemoveAssignment(ctx context.Context, store db.TxRunner, guardians db.GuardianDirectory, logger *zap.Logger, caller db.Caller, assignmentID string) error {
	if assignmentID == "" {
		return apperrors.Validation(apperrors.CodeMissingReference, "assignment is required")
	}

	var removed *db.Assignment
	err := store.InTx(ctx, func(tx db.Tx) error {
		assignment, err := tx.GetAssignment(ctx, assignmentID)
		if errors.Is(err, db.ErrNotFound) {
			return apperrors.NotFound(apperrors.CodeAssignmentNotFound, "assignment %s not found", assignmentID)
		}
		if err != nil {
			return fmt.Errorf("failed to load assignment: %w", err)
		}
		if assignment.OrganizationID != caller.OrganizationID {
			return apperrors.NotFound(apperrors.CodeAssignmentNotFound, "assignment %s not found", assignmentID)
		}

		if !caller.IsStaff {
			ok, err := guardians.IsGuardianOf(ctx, caller.UserID, assignment.ParticipantID)
			if err != nil {
				return fmt.Errorf("failed to check guardianship: %w", err)
			}
			if !ok {
				return apperrors.Forbidden(apperrors.CodeNotGuardian, "only a guardian or staff can remove this assignment")
			}
		}

		if err := tx.DeleteAssignment(ctx, assignment.ID); err != nil {
			return fmt.Errorf("failed to delete assignment: %w", err)
		}
		removed = assignment
		return nil
	})
	if err != nil {
		return storeErr("remove assignment", err)
	}

	logger.Info("Assignment removed",
		zap.String("assignment_id", removed.ID),
		zap.String("offer_id", removed.OfferID),
		zap.String("participant_id", removed.ParticipantID))

	return nil
}
