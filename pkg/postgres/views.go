package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/carpool/pkg/core/direction"
	"github.com/jakechorley/carpool/pkg/db"
)

// GetOfferView returns one offer with its live assignments
func (d *DB) GetOfferView(ctx context.Context, offerID string) (*db.OfferWithAssignments, error) {
	row := d.pool.QueryRow(ctx, `SELECT `+offerColumns+` FROM carpool_offer WHERE id = $1`, offerID)
	o, err := scanOffer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("offer %s: %w", offerID, db.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get offer: %w", err)
	}

	views, err := d.withAssignments(ctx, []db.Offer{o})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// ListOffersForActivity returns the active offers of an activity with their assignments
func (d *DB) ListOffersForActivity(ctx context.Context, orgID, activityID string) ([]db.OfferWithAssignments, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT `+offerColumns+`
		FROM carpool_offer
		WHERE organization_id = $1 AND activity_id = $2 AND active
		ORDER BY created_at, id
	`, orgID, activityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity offers: %w", err)
	}
	offers, err := collectOffers(rows)
	if err != nil {
		return nil, err
	}
	return d.withAssignments(ctx, offers)
}

// ListOffersForDriver returns a driver's offers with assignment totals
func (d *DB) ListOffersForDriver(ctx context.Context, orgID, driverID string, includeCancelled bool) ([]db.OfferSummary, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT o.id, o.activity_id, o.driver_id, o.organization_id, o.vehicle_make, o.vehicle_color,
			o.total_seats, o.direction, o.notes, o.active, o.cancelled_at, o.cancellation_reason,
			o.created_at, o.updated_at,
			COALESCE(act.name, ''), act.starts_at,
			COUNT(DISTINCT a.participant_id) FILTER (WHERE a.direction IN ('to_activity', 'both')),
			COUNT(DISTINCT a.participant_id) FILTER (WHERE a.direction IN ('from_activity', 'both')),
			COUNT(a.id)
		FROM carpool_offer o
		LEFT JOIN activity act ON act.id = o.activity_id
		LEFT JOIN carpool_assignment a ON a.offer_id = o.id
		WHERE o.organization_id = $1 AND o.driver_id = $2 AND (o.active OR $3)
		GROUP BY o.id, act.name, act.starts_at
		ORDER BY o.created_at, o.id
	`, orgID, driverID, includeCancelled)
	if err != nil {
		return nil, fmt.Errorf("failed to query driver offers: %w", err)
	}
	defer rows.Close()

	var result []db.OfferSummary
	for rows.Next() {
		var s db.OfferSummary
		var dir string
		var startsAt *time.Time
		err := rows.Scan(&s.ID, &s.ActivityID, &s.DriverID, &s.OrganizationID, &s.VehicleMake, &s.VehicleColor,
			&s.TotalSeats, &dir, &s.Notes, &s.Active, &s.CancelledAt, &s.CancellationReason,
			&s.CreatedAt, &s.UpdatedAt,
			&s.ActivityName, &startsAt,
			&s.SeatsUsed.ToActivity, &s.SeatsUsed.FromActivity, &s.AssignmentCount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan driver offer: %w", err)
		}
		s.Direction = direction.Direction(dir)
		if startsAt != nil {
			s.ActivityDate = *startsAt
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating driver offers: %w", err)
	}
	return result, nil
}

// ListParticipantCoverage reports which legs of the activity each participant
// of the organization already has a ride for
func (d *DB) ListParticipantCoverage(ctx context.Context, orgID, activityID string) ([]db.ParticipantCoverage, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT p.id, p.first_name, p.last_name,
			COALESCE(BOOL_OR(a.direction IN ('to_activity', 'both')), FALSE),
			COALESCE(BOOL_OR(a.direction IN ('from_activity', 'both')), FALSE)
		FROM participant p
		LEFT JOIN carpool_assignment a ON a.participant_id = p.id
			AND a.offer_id IN (SELECT id FROM carpool_offer WHERE activity_id = $2 AND active)
		WHERE p.organization_id = $1
		GROUP BY p.id, p.first_name, p.last_name
		ORDER BY p.first_name, p.last_name, p.id
	`, orgID, activityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participant coverage: %w", err)
	}
	defer rows.Close()

	var result []db.ParticipantCoverage
	for rows.Next() {
		var c db.ParticipantCoverage
		var first, last string
		if err := rows.Scan(&c.ParticipantID, &first, &last, &c.HasRideGoing, &c.HasRideReturn); err != nil {
			return nil, fmt.Errorf("failed to scan participant coverage: %w", err)
		}
		c.ParticipantName = db.Participant{FirstName: first, LastName: last}.DisplayName()
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participant coverage: %w", err)
	}
	return result, nil
}

// ListActivityOffers returns every offer of an activity, cancelled ones included
func (d *DB) ListActivityOffers(ctx context.Context, orgID, activityID string) ([]db.Offer, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT `+offerColumns+`
		FROM carpool_offer
		WHERE organization_id = $1 AND activity_id = $2
		ORDER BY created_at, id
	`, orgID, activityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity offers: %w", err)
	}
	return collectOffers(rows)
}

// ListActivityAssignments returns every assignment referencing an offer of the activity
func (d *DB) ListActivityAssignments(ctx context.Context, orgID, activityID string) ([]db.Assignment, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT a.id, a.offer_id, a.participant_id, a.organization_id, a.assigned_by, a.direction, a.notes, a.created_at
		FROM carpool_assignment a
		JOIN carpool_offer o ON o.id = a.offer_id
		WHERE o.organization_id = $1 AND o.activity_id = $2
		ORDER BY a.created_at, a.id
	`, orgID, activityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity assignments: %w", err)
	}
	return collectAssignments(rows)
}

// withAssignments loads the assignments of the given offers and derives their seat usage
func (d *DB) withAssignments(ctx context.Context, offers []db.Offer) ([]db.OfferWithAssignments, error) {
	if len(offers) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(offers))
	for _, o := range offers {
		ids = append(ids, o.ID)
	}

	rows, err := d.pool.Query(ctx, `
		SELECT a.id, a.offer_id, a.participant_id, a.organization_id, a.assigned_by, a.direction, a.notes, a.created_at,
			COALESCE(p.first_name, ''), COALESCE(p.last_name, ''), COALESCE(u.display_name, '')
		FROM carpool_assignment a
		LEFT JOIN participant p ON p.id = a.participant_id
		LEFT JOIN app_user u ON u.id = a.assigned_by
		WHERE a.offer_id = ANY($1)
		ORDER BY a.created_at, a.id
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query offer assignments: %w", err)
	}
	defer rows.Close()

	byOffer := make(map[string][]db.AssignmentDetail)
	for rows.Next() {
		var detail db.AssignmentDetail
		var dir, first, last string
		a := &detail.Assignment
		if err := rows.Scan(&a.ID, &a.OfferID, &a.ParticipantID, &a.OrganizationID, &a.AssignedBy, &dir, &a.Notes, &a.CreatedAt,
			&first, &last, &detail.AssignedByName); err != nil {
			return nil, fmt.Errorf("failed to scan offer assignment: %w", err)
		}
		a.Direction = direction.Direction(dir)
		detail.ParticipantName = db.Participant{FirstName: first, LastName: last}.DisplayName()
		byOffer[a.OfferID] = append(byOffer[a.OfferID], detail)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating offer assignments: %w", err)
	}

	driverNames, err := d.displayNames(ctx, offers)
	if err != nil {
		return nil, err
	}

	result := make([]db.OfferWithAssignments, 0, len(offers))
	for _, o := range offers {
		details := byOffer[o.ID]
		assignments := make([]db.Assignment, 0, len(details))
		for _, detail := range details {
			assignments = append(assignments, detail.Assignment)
		}
		result = append(result, db.OfferWithAssignments{
			Offer:       o,
			DriverName:  driverNames[o.DriverID],
			SeatsUsed:   db.UsageOf(assignments),
			Assignments: details,
		})
	}
	return result, nil
}

func (d *DB) displayNames(ctx context.Context, offers []db.Offer) (map[string]string, error) {
	ids := make([]string, 0, len(offers))
	for _, o := range offers {
		ids = append(ids, o.DriverID)
	}

	rows, err := d.pool.Query(ctx, `SELECT id, display_name FROM app_user WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query driver names: %w", err)
	}
	defer rows.Close()

	names := make(map[string]string)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan driver name: %w", err)
		}
		names[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating driver names: %w", err)
	}
	return names, nil
}
