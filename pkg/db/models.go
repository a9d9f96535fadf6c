package db

import (
	"strings"
	"time"

	"github.com/jakechorley/carpool/pkg/core/direction"
)

// Caller identifies who is performing an operation. It is supplied by the
// surrounding service layer and trusted as already verified.
type Caller struct {
	UserID         string
	OrganizationID string
	IsStaff        bool
}

// Offer represents a carpool_offer record
type Offer struct {
	ID                 string
	ActivityID         string
	DriverID           string
	OrganizationID     string
	VehicleMake        string
	VehicleColor       string
	TotalSeats         int
	Direction          direction.Direction
	Notes              string
	Active             bool
	CancelledAt        *time.Time
	CancellationReason string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Assignment represents a carpool_assignment record
type Assignment struct {
	ID             string
	OfferID        string
	ParticipantID  string
	OrganizationID string
	AssignedBy     string
	Direction      direction.Direction
	Notes          string
	CreatedAt      time.Time
}

// Activity is the read-only view of an activity catalog entry
type Activity struct {
	ID             string
	OrganizationID string
	Name           string
	StartsAt       time.Time
	Active         bool
}

// Participant is the read-only view of a child registered with an organization
type Participant struct {
	ID             string
	OrganizationID string
	FirstName      string
	LastName       string
}

// DisplayName returns "First Last", trimmed
func (p Participant) DisplayName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// User is the read-only view of an adult account (driver, guardian or staff)
type User struct {
	ID             string
	OrganizationID string
	DisplayName    string
	Email          string
}

// GuardianLink records that a user is a guardian of a participant
type GuardianLink struct {
	GuardianID    string
	ParticipantID string
}

// SeatUsage counts assignments per leg, recomputed from live assignment rows
type SeatUsage struct {
	ToActivity   int
	FromActivity int
}

// AffectedParty is one (participant, guardian) pair that must hear about a cancellation
type AffectedParty struct {
	ParticipantID   string
	ParticipantName string
	GuardianID      string
	GuardianName    string
	GuardianEmail   string
	ActivityID      string
	ActivityName    string
	ActivityDate    time.Time
	Direction       direction.Direction
}

// CancellationNotice is handed to the notification collaborator after an offer cancellation commits
type CancellationNotice struct {
	OfferID     string
	ActivityID  string
	DriverName  string
	Reason      string
	CancelledAt time.Time
	Parties     []AffectedParty
}

// AssignmentDetail is an assignment enriched for display
type AssignmentDetail struct {
	Assignment
	ParticipantName string
	AssignedByName  string
}

// OfferWithAssignments is an offer with its live assignments and derived seat usage
type OfferWithAssignments struct {
	Offer
	DriverName  string
	SeatsUsed   SeatUsage
	Assignments []AssignmentDetail
}

// OfferSummary is one row of a driver's own offers
type OfferSummary struct {
	Offer
	ActivityName    string
	ActivityDate    time.Time
	SeatsUsed       SeatUsage
	AssignmentCount int
}

// ParticipantCoverage reports which legs a participant has a ride for
type ParticipantCoverage struct {
	ParticipantID   string
	ParticipantName string
	HasRideGoing    bool
	HasRideReturn   bool
}
