package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/carpool/pkg/db"
)

// GetActivity implements db.ActivityCatalog
func (d *DB) GetActivity(ctx context.Context, activityID, orgID string) (*db.Activity, error) {
	var a db.Activity
	var startsAt *time.Time
	err := d.pool.QueryRow(ctx, `
		SELECT id, organization_id, name, starts_at, active
		FROM activity
		WHERE id = $1 AND organization_id = $2
	`, activityID, orgID).Scan(&a.ID, &a.OrganizationID, &a.Name, &startsAt, &a.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("activity %s: %w", activityID, db.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}
	if startsAt != nil {
		a.StartsAt = *startsAt
	}
	return &a, nil
}

// IsGuardianOf implements db.GuardianDirectory
func (d *DB) IsGuardianOf(ctx context.Context, userID, participantID string) (bool, error) {
	var ok bool
	err := d.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM guardian_link WHERE guardian_id = $1 AND participant_id = $2)
	`, userID, participantID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("failed to check guardian link: %w", err)
	}
	return ok, nil
}

// SeedReference upserts users, activities, participants and guardian links.
// It is used to load fixtures into a development database.
func (d *DB) SeedReference(ctx context.Context, ref *db.ReferenceData) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, u := range ref.Users {
		_, err := tx.Exec(ctx, `
			INSERT INTO app_user (id, organization_id, display_name, email)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE
			SET organization_id = EXCLUDED.organization_id, display_name = EXCLUDED.display_name, email = EXCLUDED.email
		`, u.ID, u.OrganizationID, u.DisplayName, u.Email)
		if err != nil {
			return fmt.Errorf("failed to upsert user %s: %w", u.ID, err)
		}
	}

	for _, a := range ref.Activities {
		var startsAt *time.Time
		if !a.StartsAt.IsZero() {
			startsAt = &a.StartsAt
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO activity (id, organization_id, name, starts_at, active)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE
			SET organization_id = EXCLUDED.organization_id, name = EXCLUDED.name,
				starts_at = EXCLUDED.starts_at, active = EXCLUDED.active
		`, a.ID, a.OrganizationID, a.Name, startsAt, a.Active)
		if err != nil {
			return fmt.Errorf("failed to upsert activity %s: %w", a.ID, err)
		}
	}

	for _, p := range ref.Participants {
		_, err := tx.Exec(ctx, `
			INSERT INTO participant (id, organization_id, first_name, last_name)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE
			SET organization_id = EXCLUDED.organization_id, first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name
		`, p.ID, p.OrganizationID, p.FirstName, p.LastName)
		if err != nil {
			return fmt.Errorf("failed to upsert participant %s: %w", p.ID, err)
		}
	}

	for _, g := range ref.Guardians {
		_, err := tx.Exec(ctx, `
			INSERT INTO guardian_link (guardian_id, participant_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, g.GuardianID, g.ParticipantID)
		if err != nil {
			return fmt.Errorf("failed to link guardian %s to %s: %w", g.GuardianID, g.ParticipantID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
