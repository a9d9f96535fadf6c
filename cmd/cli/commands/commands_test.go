package commands

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/carpool/pkg/core/apperrors"
	"github.com/jakechorley/carpool/pkg/core/direction"
	"github.com/jakechorley/carpool/pkg/db"
)

const testFixtures = `
users:
  - {id: driver-1, organizationID: org-1, displayName: Dana Driver, email: dana@example.com}
  - {id: guardian-1, organizationID: org-1, displayName: Gina Guardian, email: gina@example.com}
  - {id: staff-1, organizationID: org-1, displayName: Sam Staff}
activities:
  - {id: act-1, organizationID: org-1, name: Swim Meet, startsAt: "2026-11-07T09:00:00Z"}
participants:
  - {id: kid-1, organizationID: org-1, firstName: Ada, lastName: Lee, guardians: [guardian-1]}
  - {id: kid-2, organizationID: org-1, firstName: Ben, lastName: Khan}
`

type noticeRecorder struct {
	notices []db.CancellationNotice
}

func (r *noticeRecorder) NotifyCancellation(ctx context.Context, notice db.CancellationNotice) error {
	r.notices = append(r.notices, notice)
	return nil
}

func newTestApp(t *testing.T) (*AppContext, *noticeRecorder) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixtures.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testFixtures), 0644))

	store, err := db.LoadFixtures(path)
	require.NoError(t, err)

	notifier := &noticeRecorder{}
	return &AppContext{
		Database: store,
		Notifier: notifier,
		Caller:   db.Caller{UserID: "driver-1", OrganizationID: "org-1"},
		Logger:   zap.NewNop(),
		Ctx:      context.Background(),
	}, notifier
}

func newTestRoot(app *AppContext) *cobra.Command {
	root := &cobra.Command{Use: "carpool", SilenceUsage: true, SilenceErrors: true}
	root.AddCommand(
		CreateOfferCmd(app),
		UpdateOfferCmd(app),
		CancelOfferCmd(app),
		AssignCmd(app),
		RemoveAssignmentCmd(app),
		ListOffersCmd(app),
		GetOfferCmd(app),
		MyOffersCmd(app),
		UnassignedCmd(app),
		AuditCmd(app),
		MigrateCmd(app),
		InteractiveCmd(app),
	)
	return root
}

func run(t *testing.T, app *AppContext, args ...string) (string, error) {
	t.Helper()
	root := newTestRoot(app)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

var offerIDPattern = regexp.MustCompile(`Offer ID:\s+(\S+)`)
var assignmentIDPattern = regexp.MustCompile(`Assignment ID:\s+(\S+)`)

func createOffer(t *testing.T, app *AppContext, args ...string) string {
	t.Helper()
	out, err := run(t, app, append([]string{"createOffer"}, args...)...)
	require.NoError(t, err)
	m := offerIDPattern.FindStringSubmatch(out)
	require.Len(t, m, 2, out)
	return m[1]
}

func TestCreateOfferCmd(t *testing.T) {
	app, _ := newTestApp(t)

	out, err := run(t, app, "createOffer", "act-1", "3", "both", "--make", "Volvo", "--color", "Red", "--notes", "Leaves 8:30")

	require.NoError(t, err)
	assert.Contains(t, out, "Offer created")
	assert.Contains(t, out, "Red Volvo")
	assert.Contains(t, out, "going & return")
	assert.Contains(t, out, "Leaves 8:30")
}

func TestCreateOfferCmd_BadSeats(t *testing.T) {
	app, _ := newTestApp(t)

	_, err := run(t, app, "createOffer", "act-1", "three", "both")
	assert.ErrorContains(t, err, "seats must be a number")

	_, err = run(t, app, "createOffer", "act-1", "9", "both")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestUpdateOfferCmd_OnlyChangedFlags(t *testing.T) {
	app, _ := newTestApp(t)
	offerID := createOffer(t, app, "act-1", "3", "both", "--make", "Volvo")

	out, err := run(t, app, "updateOffer", offerID, "--seats", "5")

	require.NoError(t, err)
	assert.Contains(t, out, "Seats:      5")
	assert.Contains(t, out, "Volvo", "make untouched")

	_, err = run(t, app, "updateOffer", offerID)
	assert.Equal(t, apperrors.CodeEmptyPatch, apperrors.CodeOf(err))
}

func TestAssignAndViews(t *testing.T) {
	app, _ := newTestApp(t)
	offerID := createOffer(t, app, "act-1", "2", "both")

	app.Caller = db.Caller{UserID: "guardian-1", OrganizationID: "org-1"}
	out, err := run(t, app, "assign", offerID, "kid-1", "to_activity")
	require.NoError(t, err)
	assert.Contains(t, out, "Driver:        Dana Driver")
	assert.Contains(t, out, "going 1, return 2")

	out, err = run(t, app, "listOffers", "act-1")
	require.NoError(t, err)
	assert.Contains(t, out, "1 offer(s)")
	assert.Contains(t, out, "Ada Lee [going]")

	out, err = run(t, app, "getOffer", offerID)
	require.NoError(t, err)
	assert.Contains(t, out, "Ada Lee")

	out, err = run(t, app, "unassigned", "act-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Ada Lee", "still needs a ride back")
	assert.Contains(t, out, "Ben Khan")

	app.Caller = db.Caller{UserID: "driver-1", OrganizationID: "org-1"}
	out, err = run(t, app, "myOffers")
	require.NoError(t, err)
	assert.Contains(t, out, "Swim Meet")
	assert.Contains(t, out, "1 passenger(s)")
}

func TestAssignCmd_NotGuardian(t *testing.T) {
	app, _ := newTestApp(t)
	offerID := createOffer(t, app, "act-1", "2", "both")

	_, err := run(t, app, "assign", offerID, "kid-2", "both")

	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	assert.Contains(t, DescribeError(err), "[NOT_GUARDIAN]")
}

func TestRemoveAssignmentCmd(t *testing.T) {
	app, _ := newTestApp(t)
	offerID := createOffer(t, app, "act-1", "2", "both")

	app.Caller = db.Caller{UserID: "staff-1", OrganizationID: "org-1", IsStaff: true}
	out, err := run(t, app, "assign", offerID, "kid-2", "both")
	require.NoError(t, err)
	assignmentID := assignmentIDPattern.FindStringSubmatch(out)[1]

	out, err = run(t, app, "removeAssignment", assignmentID)
	require.NoError(t, err)
	assert.Contains(t, out, "removed")

	out, err = run(t, app, "listOffers", "act-1")
	require.NoError(t, err)
	assert.Contains(t, out, "no passengers yet")
}

func TestCancelOfferCmd_NotifiesGuardians(t *testing.T) {
	app, notifier := newTestApp(t)
	offerID := createOffer(t, app, "act-1", "2", "both")

	app.Caller = db.Caller{UserID: "guardian-1", OrganizationID: "org-1"}
	_, err := run(t, app, "assign", offerID, "kid-1", "both")
	require.NoError(t, err)

	app.Caller = db.Caller{UserID: "driver-1", OrganizationID: "org-1"}
	out, err := run(t, app, "cancelOffer", offerID, "car", "broke", "down")

	require.NoError(t, err)
	assert.Contains(t, out, "Removed 1 assignment(s)")
	assert.Contains(t, out, "Gina Guardian (gina@example.com) for Ada Lee")
	require.Len(t, notifier.notices, 1)
	assert.Equal(t, "car broke down", notifier.notices[0].Reason)
	assert.Equal(t, direction.Both, notifier.notices[0].Parties[0].Direction)

	out, err = run(t, app, "myOffers", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "(cancelled)")
}

func TestAuditCmd(t *testing.T) {
	app, _ := newTestApp(t)
	createOffer(t, app, "act-1", "2", "both")

	_, err := run(t, app, "audit", "act-1")
	assert.ErrorIs(t, err, apperrors.ErrForbidden, "staff only")

	app.Caller = db.Caller{UserID: "staff-1", OrganizationID: "org-1", IsStaff: true}
	out, err := run(t, app, "audit", "act-1")
	require.NoError(t, err)
	assert.Contains(t, out, "1 offer(s), 0 assignment(s)")
	assert.Contains(t, out, "No violations")
}

func TestMigrateCmd_MemoryDriver(t *testing.T) {
	app, _ := newTestApp(t)

	out, err := run(t, app, "migrate")

	require.NoError(t, err)
	assert.Contains(t, out, "no schema to migrate")
}

func TestInteractiveSession(t *testing.T) {
	app, _ := newTestApp(t)
	root := newTestRoot(app)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetIn(strings.NewReader("whoami\ncreateOffer act-1 2 to_activity --make Volvo\nlistOffers act-1\ncreateOffer act-1 2 both\nbogus\nhelp\nexit\n"))
	root.SetArgs([]string{"interactive"})

	require.NoError(t, root.Execute())

	text := out.String()
	assert.Contains(t, text, "user=driver-1 org=org-1 staff=false")
	assert.Contains(t, text, "Offer created")
	assert.Contains(t, text, "1 offer(s)")
	assert.Contains(t, text, "[DUPLICATE_OFFER]", "second overlapping offer rejected")
	assert.Contains(t, text, "Unknown command: bogus")
	assert.Contains(t, text, "Available commands:")
	assert.Contains(t, text, "Goodbye!")
}

func TestSeatColor(t *testing.T) {
	tests := []struct {
		name      string
		available int
		total     int
		expected  string
	}{
		{"full", 0, 4, "RED"},
		{"one left of four", 1, 4, "YELLOW"},
		{"one left of one", 1, 1, "GREEN"},
		{"plenty", 3, 4, "GREEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, seatColor(tt.available, tt.total, "GREEN", "YELLOW", "RED"))
		})
	}
}

func TestDescribeError(t *testing.T) {
	err := &apperrors.Error{Kind: apperrors.KindConflict, Code: apperrors.CodeSeatReductionBelowUsage, Message: "too few seats", Shortfall: 2}
	assert.Equal(t, "[SEAT_REDUCTION_BELOW_USAGE] too few seats (remove 2 assignment(s) first)", DescribeError(err))
	assert.Equal(t, "plain", DescribeError(errors.New("plain")))
}
