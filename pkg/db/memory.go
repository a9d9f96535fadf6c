package db

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/jakechorley/carpool/pkg/core/direction"
)

// MemoryDB is an in-process Database. Units of work run one at a time on a
// copy of the offer and assignment tables, and the copy replaces the live
// tables only when the unit of work succeeds. That makes every InTx call
// serializable and all-or-nothing, like a serializable Postgres transaction
// that never has to retry.
//
// Reference data (activities, participants, users, guardian links) is loaded
// with the Add* methods and never changed by the engine.
type MemoryDB struct {
	txMu sync.Mutex   // serializes units of work
	mu   sync.RWMutex // guards every field below

	tables *memTables

	activities   map[string]Activity
	participants map[string]Participant
	users        map[string]User
	guardians    map[string][]string // participant ID -> guardian user IDs
}

type memTables struct {
	offers      map[string]Offer
	assignments map[string]Assignment
	order       map[string]int64
	seq         int64
}

func (t *memTables) clone() *memTables {
	return &memTables{
		offers:      maps.Clone(t.offers),
		assignments: maps.Clone(t.assignments),
		order:       maps.Clone(t.order),
		seq:         t.seq,
	}
}

func (t *memTables) nextSeq(id string) {
	t.seq++
	t.order[id] = t.seq
}

// NewMemoryDB creates an empty in-memory database
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		tables: &memTables{
			offers:      make(map[string]Offer),
			assignments: make(map[string]Assignment),
			order:       make(map[string]int64),
		},
		activities:   make(map[string]Activity),
		participants: make(map[string]Participant),
		users:        make(map[string]User),
		guardians:    make(map[string][]string),
	}
}

// AddActivity registers an activity catalog entry
func (m *MemoryDB) AddActivity(a Activity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activities[a.ID] = a
}

// AddParticipant registers a participant
func (m *MemoryDB) AddParticipant(p Participant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.participants[p.ID] = p
}

// AddUser registers an adult user
func (m *MemoryDB) AddUser(u User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

// LinkGuardian records that guardianID is a guardian of participantID
func (m *MemoryDB) LinkGuardian(guardianID, participantID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if slices.Contains(m.guardians[participantID], guardianID) {
		return
	}
	m.guardians[participantID] = append(m.guardians[participantID], guardianID)
}

// InTx runs fn against a private copy of the tables and publishes the copy if fn succeeds
func (m *MemoryDB) InTx(ctx context.Context, fn func(tx Tx) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.RLock()
	working := m.tables.clone()
	m.mu.RUnlock()

	if err := fn(&memTx{db: m, t: working}); err != nil {
		return err
	}

	m.mu.Lock()
	m.tables = working
	m.mu.Unlock()
	return nil
}

// GetActivity implements ActivityCatalog
func (m *MemoryDB) GetActivity(ctx context.Context, activityID, orgID string) (*Activity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.activities[activityID]
	if !ok || a.OrganizationID != orgID {
		return nil, fmt.Errorf("activity %s: %w", activityID, ErrNotFound)
	}
	return &a, nil
}

// IsGuardianOf implements GuardianDirectory
func (m *MemoryDB) IsGuardianOf(ctx context.Context, userID, participantID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Contains(m.guardians[participantID], userID), nil
}

// GetOfferView returns one offer with its live assignments
func (m *MemoryDB) GetOfferView(ctx context.Context, offerID string) (*OfferWithAssignments, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.tables.offers[offerID]
	if !ok {
		return nil, fmt.Errorf("offer %s: %w", offerID, ErrNotFound)
	}
	view := m.offerViewLocked(o)
	return &view, nil
}

// ListOffersForActivity returns the active offers of an activity with their assignments
func (m *MemoryDB) ListOffersForActivity(ctx context.Context, orgID, activityID string) ([]OfferWithAssignments, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []OfferWithAssignments
	for _, o := range m.sortedOffersLocked() {
		if o.OrganizationID != orgID || o.ActivityID != activityID || !o.Active {
			continue
		}
		result = append(result, m.offerViewLocked(o))
	}
	return result, nil
}

// ListOffersForDriver returns a driver's offers with assignment totals
func (m *MemoryDB) ListOffersForDriver(ctx context.Context, orgID, driverID string, includeCancelled bool) ([]OfferSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []OfferSummary
	for _, o := range m.sortedOffersLocked() {
		if o.OrganizationID != orgID || o.DriverID != driverID {
			continue
		}
		if !o.Active && !includeCancelled {
			continue
		}
		assignments := m.offerAssignmentsLocked(m.tables, o.ID)
		summary := OfferSummary{
			Offer:           o,
			SeatsUsed:       UsageOf(assignments),
			AssignmentCount: len(assignments),
		}
		if a, ok := m.activities[o.ActivityID]; ok {
			summary.ActivityName = a.Name
			summary.ActivityDate = a.StartsAt
		}
		result = append(result, summary)
	}
	return result, nil
}

// ListParticipantCoverage reports, for every participant of the organization,
// which legs of the activity they already have a ride for
func (m *MemoryDB) ListParticipantCoverage(ctx context.Context, orgID, activityID string) ([]ParticipantCoverage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	coverage := make(map[string]*ParticipantCoverage)
	var ids []string
	for _, p := range m.participants {
		if p.OrganizationID != orgID {
			continue
		}
		coverage[p.ID] = &ParticipantCoverage{ParticipantID: p.ID, ParticipantName: p.DisplayName()}
		ids = append(ids, p.ID)
	}

	for _, a := range m.tables.assignments {
		o, ok := m.tables.offers[a.OfferID]
		if !ok || !o.Active || o.ActivityID != activityID {
			continue
		}
		c, ok := coverage[a.ParticipantID]
		if !ok {
			continue
		}
		if direction.Overlaps(a.Direction, direction.ToActivity) {
			c.HasRideGoing = true
		}
		if direction.Overlaps(a.Direction, direction.FromActivity) {
			c.HasRideReturn = true
		}
	}

	sort.Slice(ids, func(i, j int) bool {
		return coverage[ids[i]].ParticipantName < coverage[ids[j]].ParticipantName
	})
	result := make([]ParticipantCoverage, 0, len(ids))
	for _, id := range ids {
		result = append(result, *coverage[id])
	}
	return result, nil
}

// ListActivityOffers returns every offer of an activity, cancelled ones included
func (m *MemoryDB) ListActivityOffers(ctx context.Context, orgID, activityID string) ([]Offer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Offer
	for _, o := range m.sortedOffersLocked() {
		if o.OrganizationID == orgID && o.ActivityID == activityID {
			result = append(result, o)
		}
	}
	return result, nil
}

// ListActivityAssignments returns every assignment referencing an offer of the activity
func (m *MemoryDB) ListActivityAssignments(ctx context.Context, orgID, activityID string) ([]Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Assignment
	for _, a := range m.sortedAssignmentsLocked(m.tables) {
		o, ok := m.tables.offers[a.OfferID]
		if ok && o.OrganizationID == orgID && o.ActivityID == activityID {
			result = append(result, a)
		}
	}
	return result, nil
}

func (m *MemoryDB) offerViewLocked(o Offer) OfferWithAssignments {
	assignments := m.offerAssignmentsLocked(m.tables, o.ID)
	view := OfferWithAssignments{
		Offer:      o,
		DriverName: m.users[o.DriverID].DisplayName,
		SeatsUsed:  UsageOf(assignments),
	}
	for _, a := range assignments {
		view.Assignments = append(view.Assignments, AssignmentDetail{
			Assignment:      a,
			ParticipantName: m.participants[a.ParticipantID].DisplayName(),
			AssignedByName:  m.users[a.AssignedBy].DisplayName,
		})
	}
	return view
}

func (m *MemoryDB) sortedOffersLocked() []Offer {
	offers := slices.Collect(maps.Values(m.tables.offers))
	sort.Slice(offers, func(i, j int) bool {
		return m.tables.order[offers[i].ID] < m.tables.order[offers[j].ID]
	})
	return offers
}

func (m *MemoryDB) sortedAssignmentsLocked(t *memTables) []Assignment {
	assignments := slices.Collect(maps.Values(t.assignments))
	sort.Slice(assignments, func(i, j int) bool {
		return t.order[assignments[i].ID] < t.order[assignments[j].ID]
	})
	return assignments
}

func (m *MemoryDB) offerAssignmentsLocked(t *memTables, offerID string) []Assignment {
	var result []Assignment
	for _, a := range m.sortedAssignmentsLocked(t) {
		if a.OfferID == offerID {
			result = append(result, a)
		}
	}
	return result
}

// UsageOf counts distinct participants per leg of the given assignments
func UsageOf(assignments []Assignment) SeatUsage {
	going := make(map[string]bool)
	returning := make(map[string]bool)
	for _, a := range assignments {
		if direction.Overlaps(a.Direction, direction.ToActivity) {
			going[a.ParticipantID] = true
		}
		if direction.Overlaps(a.Direction, direction.FromActivity) {
			returning[a.ParticipantID] = true
		}
	}
	return SeatUsage{ToActivity: len(going), FromActivity: len(returning)}
}

// memTx is the Tx handed to InTx callbacks
type memTx struct {
	db *MemoryDB
	t  *memTables
}

func (tx *memTx) LockOffer(ctx context.Context, offerID string) (*Offer, error) {
	o, ok := tx.t.offers[offerID]
	if !ok {
		return nil, fmt.Errorf("offer %s: %w", offerID, ErrNotFound)
	}
	return &o, nil
}

func (tx *memTx) ListActiveDriverOffers(ctx context.Context, driverID, activityID string) ([]Offer, error) {
	var result []Offer
	for _, o := range tx.t.offers {
		if o.Active && o.DriverID == driverID && o.ActivityID == activityID {
			result = append(result, o)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return tx.t.order[result[i].ID] < tx.t.order[result[j].ID]
	})
	return result, nil
}

func (tx *memTx) InsertOffer(ctx context.Context, offer *Offer) error {
	if _, exists := tx.t.offers[offer.ID]; exists {
		return fmt.Errorf("offer %s already exists", offer.ID)
	}
	tx.t.offers[offer.ID] = *offer
	tx.t.nextSeq(offer.ID)
	return nil
}

func (tx *memTx) UpdateOffer(ctx context.Context, offer *Offer) error {
	if _, exists := tx.t.offers[offer.ID]; !exists {
		return fmt.Errorf("offer %s: %w", offer.ID, ErrNotFound)
	}
	tx.t.offers[offer.ID] = *offer
	return nil
}

func (tx *memTx) MarkOfferCancelled(ctx context.Context, offerID, reason string, at time.Time) error {
	o, ok := tx.t.offers[offerID]
	if !ok {
		return fmt.Errorf("offer %s: %w", offerID, ErrNotFound)
	}
	cancelledAt := at
	o.Active = false
	o.CancelledAt = &cancelledAt
	o.CancellationReason = reason
	o.UpdatedAt = at
	tx.t.offers[offerID] = o
	return nil
}

func (tx *memTx) SeatUsage(ctx context.Context, offerID string) (SeatUsage, error) {
	return UsageOf(tx.db.offerAssignmentsLocked(tx.t, offerID)), nil
}

func (tx *memTx) ListParticipantAssignments(ctx context.Context, participantID, activityID string) ([]Assignment, error) {
	var result []Assignment
	for _, a := range tx.db.sortedAssignmentsLocked(tx.t) {
		if a.ParticipantID != participantID {
			continue
		}
		o, ok := tx.t.offers[a.OfferID]
		if ok && o.Active && o.ActivityID == activityID {
			result = append(result, a)
		}
	}
	return result, nil
}

func (tx *memTx) GetAssignment(ctx context.Context, assignmentID string) (*Assignment, error) {
	a, ok := tx.t.assignments[assignmentID]
	if !ok {
		return nil, fmt.Errorf("assignment %s: %w", assignmentID, ErrNotFound)
	}
	return &a, nil
}

func (tx *memTx) InsertAssignment(ctx context.Context, assignment *Assignment) error {
	for _, a := range tx.t.assignments {
		if a.OfferID == assignment.OfferID && a.ParticipantID == assignment.ParticipantID {
			return fmt.Errorf("participant %s already has an assignment on offer %s", assignment.ParticipantID, assignment.OfferID)
		}
	}
	tx.t.assignments[assignment.ID] = *assignment
	tx.t.nextSeq(assignment.ID)
	return nil
}

func (tx *memTx) DeleteAssignment(ctx context.Context, assignmentID string) error {
	if _, ok := tx.t.assignments[assignmentID]; !ok {
		return fmt.Errorf("assignment %s: %w", assignmentID, ErrNotFound)
	}
	delete(tx.t.assignments, assignmentID)
	delete(tx.t.order, assignmentID)
	return nil
}

func (tx *memTx) DeleteOfferAssignments(ctx context.Context, offerID string) (int, error) {
	count := 0
	for id, a := range tx.t.assignments {
		if a.OfferID == offerID {
			delete(tx.t.assignments, id)
			delete(tx.t.order, id)
			count++
		}
	}
	return count, nil
}

func (tx *memTx) AffectedParties(ctx context.Context, offerID string) ([]AffectedParty, error) {
	o, ok := tx.t.offers[offerID]
	if !ok {
		return nil, fmt.Errorf("offer %s: %w", offerID, ErrNotFound)
	}

	tx.db.mu.RLock()
	defer tx.db.mu.RUnlock()

	activity := tx.db.activities[o.ActivityID]
	seen := make(map[string]bool)
	var parties []AffectedParty
	for _, a := range tx.db.offerAssignmentsLocked(tx.t, offerID) {
		if seen[a.ParticipantID] {
			continue
		}
		seen[a.ParticipantID] = true

		base := AffectedParty{
			ParticipantID:   a.ParticipantID,
			ParticipantName: tx.db.participants[a.ParticipantID].DisplayName(),
			ActivityID:      activity.ID,
			ActivityName:    activity.Name,
			ActivityDate:    activity.StartsAt,
			Direction:       a.Direction,
		}
		guardianIDs := tx.db.guardians[a.ParticipantID]
		if len(guardianIDs) == 0 {
			parties = append(parties, base)
			continue
		}
		for _, gid := range guardianIDs {
			party := base
			guardian := tx.db.users[gid]
			party.GuardianID = gid
			party.GuardianName = guardian.DisplayName
			party.GuardianEmail = guardian.Email
			parties = append(parties, party)
		}
	}
	return parties, nil
}

func (tx *memTx) GetParticipant(ctx context.Context, participantID string) (*Participant, error) {
	tx.db.mu.RLock()
	defer tx.db.mu.RUnlock()
	p, ok := tx.db.participants[participantID]
	if !ok {
		return nil, fmt.Errorf("participant %s: %w", participantID, ErrNotFound)
	}
	return &p, nil
}

func (tx *memTx) UserDisplayName(ctx context.Context, userID string) (string, error) {
	tx.db.mu.RLock()
	defer tx.db.mu.RUnlock()
	u, ok := tx.db.users[userID]
	if !ok {
		return "", fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return u.DisplayName, nil
}
