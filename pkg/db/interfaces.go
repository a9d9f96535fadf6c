package db

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned (wrapped) by stores when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// Tx defines the operations available inside one atomic unit of work.
// Everything done through a Tx is committed together or not at all.
type Tx interface {
	// LockOffer reads an offer and holds it against concurrent writers until the unit of work ends
	LockOffer(ctx context.Context, offerID string) (*Offer, error)
	ListActiveDriverOffers(ctx context.Context, driverID, activityID string) ([]Offer, error)
	InsertOffer(ctx context.Context, offer *Offer) error
	UpdateOffer(ctx context.Context, offer *Offer) error
	MarkOfferCancelled(ctx context.Context, offerID, reason string, at time.Time) error

	// SeatUsage counts live assignments of an offer per leg
	SeatUsage(ctx context.Context, offerID string) (SeatUsage, error)
	// ListParticipantAssignments returns a participant's assignments on active offers of one activity
	ListParticipantAssignments(ctx context.Context, participantID, activityID string) ([]Assignment, error)
	GetAssignment(ctx context.Context, assignmentID string) (*Assignment, error)
	InsertAssignment(ctx context.Context, assignment *Assignment) error
	DeleteAssignment(ctx context.Context, assignmentID string) error
	DeleteOfferAssignments(ctx context.Context, offerID string) (int, error)

	// AffectedParties joins an offer's assignments with participants, guardians and the activity
	AffectedParties(ctx context.Context, offerID string) ([]AffectedParty, error)
	GetParticipant(ctx context.Context, participantID string) (*Participant, error)
	UserDisplayName(ctx context.Context, userID string) (string, error)
}

// TxRunner runs fn inside a unit of work strong enough to prevent write skew
// on seat counts. Implementations may run fn more than once.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// ViewStore defines the read-only aggregations. Results are for display and
// must never feed an admission decision.
type ViewStore interface {
	GetOfferView(ctx context.Context, offerID string) (*OfferWithAssignments, error)
	ListOffersForActivity(ctx context.Context, orgID, activityID string) ([]OfferWithAssignments, error)
	ListOffersForDriver(ctx context.Context, orgID, driverID string, includeCancelled bool) ([]OfferSummary, error)
	ListParticipantCoverage(ctx context.Context, orgID, activityID string) ([]ParticipantCoverage, error)
	ListActivityOffers(ctx context.Context, orgID, activityID string) ([]Offer, error)
	ListActivityAssignments(ctx context.Context, orgID, activityID string) ([]Assignment, error)
}

// ActivityCatalog is the read-only activity directory
type ActivityCatalog interface {
	GetActivity(ctx context.Context, activityID, orgID string) (*Activity, error)
}

// GuardianDirectory answers guardian-to-participant linkage questions
type GuardianDirectory interface {
	IsGuardianOf(ctx context.Context, userID, participantID string) (bool, error)
}

// Database defines the interface for all database operations.
// Both the in-memory MemoryDB and postgres.DB implement this interface.
type Database interface {
	TxRunner
	ViewStore
	ActivityCatalog
	GuardianDirectory
}
