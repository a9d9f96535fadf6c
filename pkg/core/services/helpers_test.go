package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/carpool/pkg/db"
)

var (
	driver    = db.Caller{UserID: "driver-1", OrganizationID: "org-1"}
	driver2   = db.Caller{UserID: "driver-2", OrganizationID: "org-1"}
	guardian  = db.Caller{UserID: "guardian-1", OrganizationID: "org-1"}
	guardian2 = db.Caller{UserID: "guardian-2", OrganizationID: "org-1"}
	staff     = db.Caller{UserID: "staff-1", OrganizationID: "org-1", IsStaff: true}
	outsider  = db.Caller{UserID: "user-x", OrganizationID: "org-2", IsStaff: true}
)

// newTestDB seeds one organization with two drivers, two guardians and three children
func newTestDB(t *testing.T) *db.MemoryDB {
	t.Helper()
	m := db.NewMemoryDB()

	m.AddUser(db.User{ID: "driver-1", OrganizationID: "org-1", DisplayName: "Dana Driver", Email: "dana@example.com"})
	m.AddUser(db.User{ID: "driver-2", OrganizationID: "org-1", DisplayName: "Dev Driver", Email: "dev@example.com"})
	m.AddUser(db.User{ID: "guardian-1", OrganizationID: "org-1", DisplayName: "Gina Guardian", Email: "gina@example.com"})
	m.AddUser(db.User{ID: "guardian-2", OrganizationID: "org-1", DisplayName: "Gus Guardian", Email: "gus@example.com"})
	m.AddUser(db.User{ID: "staff-1", OrganizationID: "org-1", DisplayName: "Sam Staff"})

	m.AddActivity(db.Activity{ID: "act-1", OrganizationID: "org-1", Name: "Swim Meet", Active: true,
		StartsAt: time.Date(2026, 11, 7, 9, 0, 0, 0, time.UTC)})
	m.AddActivity(db.Activity{ID: "act-closed", OrganizationID: "org-1", Name: "Old Trip", Active: false,
		StartsAt: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)})
	m.AddActivity(db.Activity{ID: "act-x", OrganizationID: "org-2", Name: "Elsewhere", Active: true})

	m.AddParticipant(db.Participant{ID: "kid-1", OrganizationID: "org-1", FirstName: "Ada", LastName: "Lee"})
	m.AddParticipant(db.Participant{ID: "kid-2", OrganizationID: "org-1", FirstName: "Ben", LastName: "Khan"})
	m.AddParticipant(db.Participant{ID: "kid-3", OrganizationID: "org-1", FirstName: "Cleo", LastName: "Lee"})
	m.AddParticipant(db.Participant{ID: "kid-x", OrganizationID: "org-2", FirstName: "Xavi", LastName: "Roe"})

	m.LinkGuardian("guardian-1", "kid-1")
	m.LinkGuardian("guardian-1", "kid-3")
	m.LinkGuardian("guardian-2", "kid-2")
	m.LinkGuardian("guardian-2", "kid-1")
	return m
}

func mustCreateOffer(t *testing.T, store *db.MemoryDB, caller db.Caller, dir string, seats int) *db.Offer {
	t.Helper()
	offer, err := CreateOffer(context.Background(), store, store, zap.NewNop(), caller, CreateOfferRequest{
		ActivityID: "act-1",
		TotalSeats: seats,
		Direction:  dir,
	})
	require.NoError(t, err)
	return offer
}

func mustAssign(t *testing.T, store *db.MemoryDB, offerID, participantID, dir string) *AssignResult {
	t.Helper()
	result, err := AssignParticipant(context.Background(), store, store, zap.NewNop(), staff, AssignRequest{
		OfferID:       offerID,
		ParticipantID: participantID,
		Direction:     dir,
	})
	require.NoError(t, err)
	return result
}

// recordingNotifier captures cancellation notices
type recordingNotifier struct {
	mu      sync.Mutex
	notices []db.CancellationNotice
	err     error
}

func (n *recordingNotifier) NotifyCancellation(ctx context.Context, notice db.CancellationNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
	return n.err
}

func ptr[T any](v T) *T {
	return &v
}
