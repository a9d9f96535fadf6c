//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/carpool/pkg/core/apperrors"
	"github.com/jakechorley/carpool/pkg/core/services"
	"github.com/jakechorley/carpool/pkg/db"
)

// Run with: CARPOOL_TEST_DATABASE_URL=postgres://... go test -tags integration ./pkg/postgres/

type seededOrg struct {
	org      string
	activity string
	driver   db.Caller
	staff    db.Caller
	kids     []string
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("CARPOOL_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("CARPOOL_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	store, err := NewDB(ctx, url, Options{MaxTxRetries: 25, RetryBackoff: 5 * time.Millisecond, Logger: zap.NewNop()})
	require.NoError(t, err)
	t.Cleanup(store.Close)

	_, err = store.RunMigrations(ctx)
	require.NoError(t, err)
	return store
}

// seedOrg loads a fresh organization so runs never collide with earlier data.
// Each kid gets guardiansPerKid guardians of its own.
func seedOrg(t *testing.T, store *DB, kids int, guardiansPerKid int) seededOrg {
	t.Helper()
	suffix := uuid.NewString()[:8]
	s := seededOrg{
		org:      "org-" + suffix,
		activity: "act-" + suffix,
	}
	s.driver = db.Caller{UserID: "driver-" + suffix, OrganizationID: s.org}
	s.staff = db.Caller{UserID: "staff-" + suffix, OrganizationID: s.org, IsStaff: true}

	ref := &db.ReferenceData{
		Users: []db.User{
			{ID: s.driver.UserID, OrganizationID: s.org, DisplayName: "Dana Driver", Email: "dana@example.com"},
			{ID: s.staff.UserID, OrganizationID: s.org, DisplayName: "Sam Staff"},
		},
		Activities: []db.Activity{
			{ID: s.activity, OrganizationID: s.org, Name: "Swim Meet", Active: true,
				StartsAt: time.Date(2026, 11, 7, 9, 0, 0, 0, time.UTC)},
		},
	}
	for i := 0; i < kids; i++ {
		kid := fmt.Sprintf("kid-%d-%s", i, suffix)
		s.kids = append(s.kids, kid)
		ref.Participants = append(ref.Participants, db.Participant{ID: kid, OrganizationID: s.org, FirstName: "Kid", LastName: fmt.Sprint(i)})
		for g := 0; g < guardiansPerKid; g++ {
			gid := fmt.Sprintf("guardian-%d-%d-%s", i, g, suffix)
			ref.Users = append(ref.Users, db.User{ID: gid, OrganizationID: s.org, DisplayName: "Guardian", Email: gid + "@example.com"})
			ref.Guardians = append(ref.Guardians, db.GuardianLink{GuardianID: gid, ParticipantID: kid})
		}
	}

	require.NoError(t, store.SeedReference(context.Background(), ref))
	return s
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []db.CancellationNotice
}

func (n *recordingNotifier) NotifyCancellation(ctx context.Context, notice db.CancellationNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
	return nil
}

func TestIntegration_ConcurrentLastSeat(t *testing.T) {
	store := openTestDB(t)
	const contenders = 10
	s := seedOrg(t, store, contenders, 0)
	ctx := context.Background()

	offer, err := services.CreateOffer(ctx, store, store, zap.NewNop(), s.driver, services.CreateOfferRequest{
		ActivityID: s.activity, TotalSeats: 1, Direction: "to_activity",
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i, kid := range s.kids {
		wg.Add(1)
		go func(i int, kid string) {
			defer wg.Done()
			_, errs[i] = services.AssignParticipant(ctx, store, store, zap.NewNop(), s.staff, services.AssignRequest{
				OfferID: offer.ID, ParticipantID: kid, Direction: "to_activity",
			})
		}(i, kid)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, apperrors.ErrCapacityExceeded), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)

	view, err := services.GetOffer(ctx, store, s.driver, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.SeatsUsed.ToActivity)
	assert.Len(t, view.Assignments, 1)
}

func TestIntegration_CancelReportsEveryChildGuardianPair(t *testing.T) {
	store := openTestDB(t)
	s := seedOrg(t, store, 2, 2)
	ctx := context.Background()

	offer, err := services.CreateOffer(ctx, store, store, zap.NewNop(), s.driver, services.CreateOfferRequest{
		ActivityID: s.activity, TotalSeats: 3, Direction: "both",
	})
	require.NoError(t, err)
	for _, kid := range s.kids {
		_, err := services.AssignParticipant(ctx, store, store, zap.NewNop(), s.staff, services.AssignRequest{
			OfferID: offer.ID, ParticipantID: kid, Direction: "both",
		})
		require.NoError(t, err)
	}

	notifier := &recordingNotifier{}
	result, err := services.CancelOffer(ctx, store, notifier, zap.NewNop(), s.driver, offer.ID, "Car in the shop")
	require.NoError(t, err)

	assert.False(t, result.Offer.Active)
	assert.Equal(t, 2, result.RemovedAssignments)

	var pairs []string
	for _, p := range result.AffectedParties {
		pairs = append(pairs, p.ParticipantID+"/"+p.GuardianID)
		assert.Equal(t, "Swim Meet", p.ActivityName)
		assert.Equal(t, p.GuardianID+"@example.com", p.GuardianEmail)
	}
	var want []string
	for i, kid := range s.kids {
		for g := 0; g < 2; g++ {
			want = append(want, fmt.Sprintf("%s/guardian-%d-%d-%s", kid, i, g, s.org[len("org-"):]))
		}
	}
	assert.ElementsMatch(t, want, pairs)

	require.Len(t, notifier.notices, 1)
	assert.Equal(t, "Dana Driver", notifier.notices[0].DriverName)
	assert.Len(t, notifier.notices[0].Parties, 4)

	view, err := services.GetOffer(ctx, store, s.driver, offer.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Assignments)
	assert.Equal(t, db.SeatUsage{}, view.SeatsUsed)
}
