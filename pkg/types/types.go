package types

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultGracePeriod is how long an unconfirmed hold blocks other claimants
// before it becomes reclaimable.
const DefaultGracePeriod = 5 * time.Minute

// NormalizeUsername folds a requested username to its reservation key. The key
// is the unit of uniqueness: two names that normalize to the same key collide.
func NormalizeUsername(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ReservationPhase is the closed set of states a reservation can be in. A
// reservation is either a provisional hold (carries an expiry) or a confirmed
// ownership (carries the confirmation time, never expires). Modeling the phase
// as a sum keeps "confirmed rows have no expiry" out of runtime checks.
type ReservationPhase interface {
	reservationPhase()
}

// Held is the provisional phase created while a profile update is in flight.
type Held struct {
	ExpiresAt time.Time
}

func (Held) reservationPhase() {}

// Confirmed is the permanent phase; confirmed names never expire on their own.
type Confirmed struct {
	ConfirmedAt time.Time
}

func (Confirmed) reservationPhase() {}

// Reservation is the domain view of a row in the usernames collection.
type Reservation struct {
	Key         string
	DisplayName string
	OwnerID     uuid.UUID
	Scope       ScopeFilter
	ReservedAt  time.Time
	Phase       ReservationPhase
}

// Held returns the provisional phase data when the reservation is a hold.
func (r Reservation) Held() (Held, bool) {
	held, ok := r.Phase.(Held)
	return held, ok
}

// Confirmed returns the permanent phase data when the reservation is owned.
func (r Reservation) Confirmed() (Confirmed, bool) {
	confirmed, ok := r.Phase.(Confirmed)
	return confirmed, ok
}

// Expired reports whether the reservation is a hold whose grace window has
// elapsed at the supplied instant. Confirmed reservations never expire.
func (r Reservation) Expired(now time.Time) bool {
	held, ok := r.Held()
	if !ok {
		return false
	}
	return !now.Before(held.ExpiresAt)
}

// ScopeFilter carries tenant/org scoping fields used by commands and queries.
// Username uniqueness is platform-wide; the scope only drives authorization
// and admin filtering.
type ScopeFilter struct {
	TenantID uuid.UUID
	OrgID    uuid.UUID
}

// ReserveRequest captures a single reservation attempt. DisplayName keeps the
// caller's original casing; the key is derived by NormalizeUsername.
type ReserveRequest struct {
	DisplayName string
	OwnerID     uuid.UUID
	Scope       ScopeFilter
	GracePeriod time.Duration
}

// Key returns the normalized reservation key for the request.
func (r ReserveRequest) Key() string {
	return NormalizeUsername(r.DisplayName)
}

// ReservationRepository is the storage contract for the reservation protocol.
// Reserve must execute its read/decide/write cycle inside a single store
// transaction so two concurrent claims for the same key are serialized by the
// store, never by application locks. Confirm and Release are conditional on
// unchanged ownership; Confirm surfaces a changed owner as ErrOwnershipDrift.
type ReservationRepository interface {
	Reserve(ctx context.Context, req ReserveRequest) (*Reservation, error)
	Confirm(ctx context.Context, key string, ownerID uuid.UUID) (*Reservation, error)
	Release(ctx context.Context, key string, ownerID uuid.UUID) error
	SweepExpired(ctx context.Context) (int, error)
	GetReservation(ctx context.Context, key string) (*Reservation, error)
}

// UserProfile captures the structured profile data the username workflow
// updates alongside the reservation. Username, UsernameReservedAt and
// UsernameConfirmed mirror the reservation record for display and querying;
// they are written by the reservation repository inside the reserve/confirm
// transactions, never independently.
type UserProfile struct {
	UserID             uuid.UUID
	DisplayName        string
	AvatarURL          string
	Locale             string
	Timezone           string
	Bio                string
	Username           string
	UsernameReservedAt *time.Time
	UsernameConfirmed  bool
	Scope              ScopeFilter
	CreatedAt          time.Time
	UpdatedAt          time.Time
	CreatedBy          uuid.UUID
	UpdatedBy          uuid.UUID
}

// ProfilePatch represents partial updates applied to a user profile. The
// username is not part of the patch; it travels through the reservation
// protocol instead.
type ProfilePatch struct {
	DisplayName *string
	AvatarURL   *string
	Locale      *string
	Timezone    *string
	Bio         *string
}

// ProfileRepository persists and retrieves profile records.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID uuid.UUID, scope ScopeFilter) (*UserProfile, error)
	UpsertProfile(ctx context.Context, profile UserProfile) (*UserProfile, error)
}

// ReservationStatus classifies a key for availability lookups. Readers
// interpret expiry themselves: an expired hold reads as available.
type ReservationStatus string

const (
	ReservationStatusAvailable ReservationStatus = "available"
	ReservationStatusHeld      ReservationStatus = "held"
	ReservationStatusTaken     ReservationStatus = "taken"
)

// ReservationFilter narrows admin reservation listings.
type ReservationFilter struct {
	Actor      ActorRef
	Scope      ScopeFilter
	OwnerID    uuid.UUID
	Status     ReservationStatus
	Keyword    string
	Pagination Pagination
}

// Type implements gocommand.Message for query inputs.
func (ReservationFilter) Type() string {
	return "query.username.reservations"
}

// Validate implements gocommand.Message.
func (filter ReservationFilter) Validate() error {
	if filter.Actor.ID == uuid.Nil {
		return ErrActorRequired
	}
	return nil
}

// ReservationPage represents a paginated reservation listing.
type ReservationPage struct {
	Reservations []Reservation
	Total        int
	NextOffset   int
	HasMore      bool
}

// ReservationLister exposes the read side used by admin panels. Implemented by
// the default reservation repository; kept separate from the protocol contract
// so hosts can point listings at a replica.
type ReservationLister interface {
	ListReservations(ctx context.Context, filter ReservationFilter) (ReservationPage, error)
}

// ActorRef identifies who or what is initiating a username change.
type ActorRef struct {
	ID   uuid.UUID
	Type string
}

// Pagination supports query pagination across admin panels.
type Pagination struct {
	Limit  int
	Offset int
}

// ReservationEvent is emitted after reserve/confirm/release transitions.
type ReservationEvent struct {
	Key         string
	DisplayName string
	OwnerID     uuid.UUID
	ActorID     uuid.UUID
	Action      string
	Scope       ScopeFilter
	OccurredAt  time.Time
	ReleasedKey string
}

// SweepEvent is emitted after a maintenance sweep completes.
type SweepEvent struct {
	Cleaned    int
	OccurredAt time.Time
}

// ProfileEvent signals that a profile mutation occurred.
type ProfileEvent struct {
	UserID     uuid.UUID
	Scope      ScopeFilter
	ActorID    uuid.UUID
	OccurredAt time.Time
	Profile    UserProfile
}

// Hooks groups optional callbacks invoked after key workflows complete.
type Hooks struct {
	AfterReserve       func(context.Context, ReservationEvent)
	AfterConfirm       func(context.Context, ReservationEvent)
	AfterRelease       func(context.Context, ReservationEvent)
	AfterSweep         func(context.Context, SweepEvent)
	AfterProfileChange func(context.Context, ProfileEvent)
	AfterActivity      func(context.Context, ActivityRecord)
}

// ActivityRecord describes sink inputs and is shared across sink and query layers.
type ActivityRecord struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	ActorID    uuid.UUID
	Verb       string
	ObjectType string
	ObjectID   string
	Channel    string
	TenantID   uuid.UUID
	OrgID      uuid.UUID
	Data       map[string]any
	OccurredAt time.Time
}

// ActivitySink is the minimal DI contract for emitting activity. Keep it stable
// and limited to Log so downstream modules can swap sinks without breaking
// changes.
type ActivitySink interface {
	Log(context.Context, ActivityRecord) error
}

// ActivityFilter narrows activity feed queries.
type ActivityFilter struct {
	Actor      ActorRef
	Scope      ScopeFilter
	UserID     uuid.UUID
	Verbs      []string
	ObjectID   string
	Since      *time.Time
	Until      *time.Time
	Pagination Pagination
}

// Type implements gocommand.Message for query inputs.
func (ActivityFilter) Type() string {
	return "query.activity.feed"
}

// Validate implements gocommand.Message.
func (filter ActivityFilter) Validate() error {
	if filter.Actor.ID == uuid.Nil {
		return ErrActorRequired
	}
	return nil
}

// ActivityPage represents a paginated feed response.
type ActivityPage struct {
	Records    []ActivityRecord
	Total      int
	NextOffset int
	HasMore    bool
}

// ActivityRepository exposes read-side access to activity logs.
type ActivityRepository interface {
	ListActivity(ctx context.Context, filter ActivityFilter) (ActivityPage, error)
}

// Clock abstracts time retrieval for deterministic testing.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts UUID creation.
type IDGenerator interface {
	UUID() uuid.UUID
}

// Logger captures basic logging hooks used by the service.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Error(msg string, err error, fields ...any)
}

// SystemClock defers to time.Now for production usage.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// UUIDGenerator produces UUIDv4 identifiers.
type UUIDGenerator struct{}

// UUID returns a randomly generated UUID.
func (UUIDGenerator) UUID() uuid.UUID { return uuid.New() }

// NopLogger discards all log lines.
type NopLogger struct{}

// Debug implements Logger.
func (NopLogger) Debug(string, ...any) {}

// Info implements Logger.
func (NopLogger) Info(string, ...any) {}

// Error implements Logger.
func (NopLogger) Error(string, error, ...any) {}

var (
	// ErrUsernameTaken indicates the name is permanently owned by someone else.
	ErrUsernameTaken = errors.New("go-usernames: username already taken")
	// ErrUsernameTemporarilyReserved indicates another claim is in flight and
	// its grace window has not elapsed.
	ErrUsernameTemporarilyReserved = errors.New("go-usernames: username temporarily reserved")
	// ErrOwnershipDrift indicates the reservation changed hands between the
	// claim and its confirmation attempt.
	ErrOwnershipDrift = errors.New("go-usernames: reservation owner changed before confirmation")
	// ErrReservationNotFound indicates no reservation exists for the key.
	ErrReservationNotFound = errors.New("go-usernames: reservation not found")
	// ErrActorRequired indicates an actor reference was not supplied.
	ErrActorRequired = errors.New("go-usernames: actor reference required")
	// ErrUserIDRequired indicates a user identifier was omitted.
	ErrUserIDRequired = errors.New("go-usernames: user id required")
	// ErrUsernameRequired indicates a username was omitted.
	ErrUsernameRequired = errors.New("go-usernames: username required")
	// ErrServiceNotReady indicates the service has not been properly configured.
	ErrServiceNotReady = errors.New("go-usernames: service not ready")
	// ErrMissingReservationRepository occurs when commands lack reservation storage.
	ErrMissingReservationRepository = errors.New("go-usernames: missing reservation repository")
	// ErrMissingProfileRepository occurs when the workflow lacks profile storage.
	ErrMissingProfileRepository = errors.New("go-usernames: missing profile repository")
	// ErrMissingActivitySink occurs when no activity sink was supplied.
	ErrMissingActivitySink = errors.New("go-usernames: missing activity sink")
	// ErrMissingActivityRepository occurs when no activity repository was supplied.
	ErrMissingActivityRepository = errors.New("go-usernames: missing activity repository")
)
