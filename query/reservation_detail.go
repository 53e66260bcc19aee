package query

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/ring-platform/go-usernames/pkg/types"
	"github.com/ring-platform/go-usernames/scope"
)

// ReservationDetailInput fetches a single reservation by key.
type ReservationDetailInput struct {
	Username string
	Scope    types.ScopeFilter
	Actor    types.ActorRef
}

// Type implements gocommand.Message.
func (ReservationDetailInput) Type() string {
	return "query.username.reservation"
}

// Validate implements gocommand.Message.
func (input ReservationDetailInput) Validate() error {
	if types.NormalizeUsername(input.Username) == "" {
		return types.ErrUsernameRequired
	}
	return nil
}

// ReservationDetailQuery returns the full reservation row for admin views.
// Unlike AvailabilityQuery it treats a missing row as an error, mapped through
// go-errors so HTTP layers translate it to a 404 without inspecting sentinels.
type ReservationDetailQuery struct {
	repo  types.ReservationRepository
	guard scope.Guard
}

// NewReservationDetailQuery constructs the detail helper.
func NewReservationDetailQuery(repo types.ReservationRepository, guard scope.Guard) *ReservationDetailQuery {
	return &ReservationDetailQuery{
		repo:  repo,
		guard: safeScopeGuard(guard),
	}
}

var _ gocommand.Querier[ReservationDetailInput, *types.Reservation] = (*ReservationDetailQuery)(nil)

// Query returns the reservation for the supplied key.
func (q *ReservationDetailQuery) Query(ctx context.Context, input ReservationDetailInput) (*types.Reservation, error) {
	if q.repo == nil {
		return nil, goerrors.New("reservation repository missing", goerrors.CategoryInternal).WithCode(goerrors.CodeInternal)
	}
	if err := input.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid reservation lookup").WithCode(goerrors.CodeBadRequest)
	}
	if _, err := q.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionUsernamesRead, uuid.Nil); err != nil {
		return nil, err
	}

	key := types.NormalizeUsername(input.Username)
	res, err := q.repo.GetReservation(ctx, key)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, goerrors.New("username reservation not found", goerrors.CategoryNotFound).WithCode(goerrors.CodeNotFound)
	}
	return res, nil
}
