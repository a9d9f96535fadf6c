package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/carpool/pkg/core/apperrors"
	"github.com/jakechorley/carpool/pkg/core/direction"
	"github.com/jakechorley/carpool/pkg/db"
)

const offerColumns = `
	id, activity_id, driver_id, organization_id, vehicle_make, vehicle_color,
	total_seats, direction, notes, active, cancelled_at, cancellation_reason,
	created_at, updated_at`

const assignmentColumns = `
	id, offer_id, participant_id, organization_id, assigned_by, direction, notes, created_at`

// scanner is satisfied by pgx.Row and pgx.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanOffer(row scanner) (db.Offer, error) {
	var o db.Offer
	var dir string
	err := row.Scan(&o.ID, &o.ActivityID, &o.DriverID, &o.OrganizationID, &o.VehicleMake, &o.VehicleColor,
		&o.TotalSeats, &dir, &o.Notes, &o.Active, &o.CancelledAt, &o.CancellationReason,
		&o.CreatedAt, &o.UpdatedAt)
	o.Direction = direction.Direction(dir)
	return o, err
}

func scanAssignment(row scanner) (db.Assignment, error) {
	var a db.Assignment
	var dir string
	err := row.Scan(&a.ID, &a.OfferID, &a.ParticipantID, &a.OrganizationID, &a.AssignedBy, &dir, &a.Notes, &a.CreatedAt)
	a.Direction = direction.Direction(dir)
	return a, err
}

func collectOffers(rows pgx.Rows) ([]db.Offer, error) {
	defer rows.Close()
	var offers []db.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan offer: %w", err)
		}
		offers = append(offers, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating offers: %w", err)
	}
	return offers, nil
}

func collectAssignments(rows pgx.Rows) ([]db.Assignment, error) {
	defer rows.Close()
	var assignments []db.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assignments: %w", err)
	}
	return assignments, nil
}

// pgTx implements db.Tx on a pgx transaction
type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) LockOffer(ctx context.Context, offerID string) (*db.Offer, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+offerColumns+` FROM carpool_offer WHERE id = $1 FOR UPDATE`, offerID)
	o, err := scanOffer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("offer %s: %w", offerID, db.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock offer: %w", err)
	}
	return &o, nil
}

func (t *pgTx) ListActiveDriverOffers(ctx context.Context, driverID, activityID string) ([]db.Offer, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT `+offerColumns+`
		FROM carpool_offer
		WHERE driver_id = $1 AND activity_id = $2 AND active
		ORDER BY created_at, id
	`, driverID, activityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query driver offers: %w", err)
	}
	return collectOffers(rows)
}

func (t *pgTx) InsertOffer(ctx context.Context, o *db.Offer) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO carpool_offer (id, activity_id, driver_id, organization_id, vehicle_make, vehicle_color,
			total_seats, direction, notes, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, o.ID, o.ActivityID, o.DriverID, o.OrganizationID, o.VehicleMake, o.VehicleColor,
		o.TotalSeats, string(o.Direction), o.Notes, o.Active, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert offer: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateOffer(ctx context.Context, o *db.Offer) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE carpool_offer
		SET vehicle_make = $2, vehicle_color = $3, total_seats = $4, direction = $5, notes = $6, updated_at = $7
		WHERE id = $1
	`, o.ID, o.VehicleMake, o.VehicleColor, o.TotalSeats, string(o.Direction), o.Notes, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update offer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("offer %s: %w", o.ID, db.ErrNotFound)
	}
	return nil
}

func (t *pgTx) MarkOfferCancelled(ctx context.Context, offerID, reason string, at time.Time) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE carpool_offer
		SET active = FALSE, cancelled_at = $2, cancellation_reason = $3, updated_at = $2
		WHERE id = $1
	`, offerID, at, reason)
	if err != nil {
		return fmt.Errorf("failed to cancel offer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("offer %s: %w", offerID, db.ErrNotFound)
	}
	return nil
}

func (t *pgTx) SeatUsage(ctx context.Context, offerID string) (db.SeatUsage, error) {
	var usage db.SeatUsage
	err := t.tx.QueryRow(ctx, `
		SELECT
			COUNT(DISTINCT participant_id) FILTER (WHERE direction IN ('to_activity', 'both')),
			COUNT(DISTINCT participant_id) FILTER (WHERE direction IN ('from_activity', 'both'))
		FROM carpool_assignment
		WHERE offer_id = $1
	`, offerID).Scan(&usage.ToActivity, &usage.FromActivity)
	if err != nil {
		return db.SeatUsage{}, fmt.Errorf("failed to count seat usage: %w", err)
	}
	return usage, nil
}

func (t *pgTx) ListParticipantAssignments(ctx context.Context, participantID, activityID string) ([]db.Assignment, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT a.id, a.offer_id, a.participant_id, a.organization_id, a.assigned_by, a.direction, a.notes, a.created_at
		FROM carpool_assignment a
		JOIN carpool_offer o ON o.id = a.offer_id
		WHERE a.participant_id = $1 AND o.activity_id = $2 AND o.active
		ORDER BY a.created_at, a.id
	`, participantID, activityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participant assignments: %w", err)
	}
	return collectAssignments(rows)
}

func (t *pgTx) GetAssignment(ctx context.Context, assignmentID string) (*db.Assignment, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+assignmentColumns+` FROM carpool_assignment WHERE id = $1`, assignmentID)
	a, err := scanAssignment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("assignment %s: %w", assignmentID, db.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return &a, nil
}

func (t *pgTx) InsertAssignment(ctx context.Context, a *db.Assignment) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO carpool_assignment (id, offer_id, participant_id, organization_id, assigned_by, direction, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, a.ID, a.OfferID, a.ParticipantID, a.OrganizationID, a.AssignedBy, string(a.Direction), a.Notes, a.CreatedAt)
	if isUniqueViolation(err) {
		return apperrors.Conflict(apperrors.CodeAlreadyAssigned, "participant is already assigned to this ride")
	}
	if err != nil {
		return fmt.Errorf("failed to insert assignment: %w", err)
	}
	return nil
}

func (t *pgTx) DeleteAssignment(ctx context.Context, assignmentID string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM carpool_assignment WHERE id = $1`, assignmentID)
	if err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("assignment %s: %w", assignmentID, db.ErrNotFound)
	}
	return nil
}

func (t *pgTx) DeleteOfferAssignments(ctx context.Context, offerID string) (int, error) {
	tag, err := t.tx.Exec(ctx, `DELETE FROM carpool_assignment WHERE offer_id = $1`, offerID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete offer assignments: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (t *pgTx) AffectedParties(ctx context.Context, offerID string) ([]db.AffectedParty, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT a.participant_id, p.first_name, p.last_name,
			COALESCE(g.guardian_id, ''), COALESCE(u.display_name, ''), COALESCE(u.email, ''),
			act.id, act.name, act.starts_at, a.direction
		FROM carpool_assignment a
		JOIN carpool_offer o ON o.id = a.offer_id
		JOIN activity act ON act.id = o.activity_id
		JOIN participant p ON p.id = a.participant_id
		LEFT JOIN guardian_link g ON g.participant_id = a.participant_id
		LEFT JOIN app_user u ON u.id = g.guardian_id
		WHERE a.offer_id = $1
		ORDER BY a.created_at, a.id, g.guardian_id
	`, offerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query affected parties: %w", err)
	}
	defer rows.Close()

	var parties []db.AffectedParty
	for rows.Next() {
		var p db.AffectedParty
		var first, last, dir string
		var startsAt *time.Time
		if err := rows.Scan(&p.ParticipantID, &first, &last, &p.GuardianID, &p.GuardianName, &p.GuardianEmail,
			&p.ActivityID, &p.ActivityName, &startsAt, &dir); err != nil {
			return nil, fmt.Errorf("failed to scan affected party: %w", err)
		}
		p.ParticipantName = db.Participant{FirstName: first, LastName: last}.DisplayName()
		p.Direction = direction.Direction(dir)
		if startsAt != nil {
			p.ActivityDate = *startsAt
		}
		parties = append(parties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating affected parties: %w", err)
	}
	return parties, nil
}

func (t *pgTx) GetParticipant(ctx context.Context, participantID string) (*db.Participant, error) {
	var p db.Participant
	err := t.tx.QueryRow(ctx, `
		SELECT id, organization_id, first_name, last_name FROM participant WHERE id = $1
	`, participantID).Scan(&p.ID, &p.OrganizationID, &p.FirstName, &p.LastName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("participant %s: %w", participantID, db.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return &p, nil
}

func (t *pgTx) UserDisplayName(ctx context.Context, userID string) (string, error) {
	var name string
	err := t.tx.QueryRow(ctx, `SELECT display_name FROM app_user WHERE id = $1`, userID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("user %s: %w", userID, db.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get user: %w", err)
	}
	return name, nil
}
