package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/jakechorley/carpool/pkg/core/allocator"
	"github.com/jakechorley/carpool/pkg/core/apperrors"
	"github.com/jakechorley/carpool/pkg/db"
)

// AuditReport is the result of checking one activity's stored carpool state
type AuditReport struct {
	ActivityID      string
	ActivityName    string
	OfferCount      int
	AssignmentCount int
	Violations      []allocator.ValidationError
}

// Valid reports whether no violations were found
func (r *AuditReport) Valid() bool {
	return len(r.Violations) == 0
}

// AuditActivity re-checks every allocation invariant over the stored offers
// and assignments of an activity. Staff only.
func AuditActivity(ctx context.Context, views db.ViewStore, catalog db.ActivityCatalog, logger *zap.Logger, caller db.Caller, activityID string) (*AuditReport, error) {
	if !caller.IsStaff {
		return nil, apperrors.Forbidden(apperrors.CodeNotDriverOrStaff, "only staff can audit an activity")
	}
	activity, err := requireActivity(ctx, catalog, caller, activityID)
	if err != nil {
		return nil, err
	}

	offers, err := views.ListActivityOffers(ctx, caller.OrganizationID, activity.ID)
	if err != nil {
		return nil, storeErr("list activity offers", err)
	}
	assignments, err := views.ListActivityAssignments(ctx, caller.OrganizationID, activity.ID)
	if err != nil {
		return nil, storeErr("list activity assignments", err)
	}

	seats := make([]allocator.Seat, 0, len(assignments))
	for _, a := range assignments {
		seats = append(seats, allocator.Seat{
			AssignmentID:  a.ID,
			OfferID:       a.OfferID,
			ParticipantID: a.ParticipantID,
			Direction:     a.Direction,
		})
	}

	report := &AuditReport{
		ActivityID:      activity.ID,
		ActivityName:    activity.Name,
		OfferCount:      len(offers),
		AssignmentCount: len(assignments),
		Violations:      allocator.ValidateActivity(toAllocatorOffers(offers), seats),
	}

	if report.Valid() {
		logger.Debug("Activity audit passed", zap.String("activity_id", activity.ID))
	} else {
		logger.Warn("Activity audit found violations",
			zap.String("activity_id", activity.ID),
			zap.Int("violations", len(report.Violations)))
	}

	return report, nil
}
