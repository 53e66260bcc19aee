package query

import (
	"context"
	"time"

	gocommand "github.com/goliatone/go-command"
	"github.com/google/uuid"
	"github.com/ring-platform/go-usernames/pkg/types"
	"github.com/ring-platform/go-usernames/scope"
)

// AvailabilityInput asks whether a username can currently be claimed.
type AvailabilityInput struct {
	Username string
	Scope    types.ScopeFilter
	Actor    types.ActorRef
}

// Type implements gocommand.Message.
func (AvailabilityInput) Type() string {
	return "query.username.availability"
}

// Validate implements gocommand.Message.
func (input AvailabilityInput) Validate() error {
	if types.NormalizeUsername(input.Username) == "" {
		return types.ErrUsernameRequired
	}
	return nil
}

// Availability describes the claimability of a key at query time.
type Availability struct {
	Key    string
	Status types.ReservationStatus
	// HeldUntil is set only for active holds, so callers can tell users when
	// to retry.
	HeldUntil *time.Time
}

// AvailabilityQuery classifies a username as available, held, or taken. The
// classification reads expiry from the clock rather than from a cleanup job,
// so a hold past its grace window reports available even if its row still
// exists.
type AvailabilityQuery struct {
	repo  types.ReservationRepository
	clock types.Clock
	guard scope.Guard
}

// NewAvailabilityQuery constructs the availability helper.
func NewAvailabilityQuery(repo types.ReservationRepository, clock types.Clock, guard scope.Guard) *AvailabilityQuery {
	return &AvailabilityQuery{
		repo:  repo,
		clock: safeClock(clock),
		guard: safeScopeGuard(guard),
	}
}

var _ gocommand.Querier[AvailabilityInput, Availability] = (*AvailabilityQuery)(nil)

// Query returns the key's current status.
func (q *AvailabilityQuery) Query(ctx context.Context, input AvailabilityInput) (Availability, error) {
	if q.repo == nil {
		return Availability{}, types.ErrMissingReservationRepository
	}
	if err := input.Validate(); err != nil {
		return Availability{}, err
	}
	if _, err := q.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionUsernamesRead, uuid.Nil); err != nil {
		return Availability{}, err
	}

	key := types.NormalizeUsername(input.Username)
	res, err := q.repo.GetReservation(ctx, key)
	if err != nil {
		return Availability{}, err
	}

	out := Availability{Key: key, Status: types.ReservationStatusAvailable}
	if res == nil {
		return out, nil
	}
	if _, confirmed := res.Confirmed(); confirmed {
		out.Status = types.ReservationStatusTaken
		return out, nil
	}
	held, ok := res.Held()
	if !ok || res.Expired(q.clock.Now()) {
		return out, nil
	}
	out.Status = types.ReservationStatusHeld
	expiresAt := held.ExpiresAt
	out.HeldUntil = &expiresAt
	return out, nil
}
