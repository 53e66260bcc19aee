package query

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/google/uuid"
	"github.com/ring-platform/go-usernames/pkg/types"
	"github.com/ring-platform/go-usernames/scope"
)

// ReservationListQuery wraps the reservation lister and normalizes filters
// for admin dashboards.
type ReservationListQuery struct {
	repo  types.ReservationLister
	guard scope.Guard
}

// NewReservationListQuery constructs the list helper.
func NewReservationListQuery(repo types.ReservationLister, guard scope.Guard) *ReservationListQuery {
	return &ReservationListQuery{
		repo:  repo,
		guard: safeScopeGuard(guard),
	}
}

var _ gocommand.Querier[types.ReservationFilter, types.ReservationPage] = (*ReservationListQuery)(nil)

// Query delegates to the configured lister after normalizing filters.
func (q *ReservationListQuery) Query(ctx context.Context, filter types.ReservationFilter) (types.ReservationPage, error) {
	if q.repo == nil {
		return types.ReservationPage{}, types.ErrMissingReservationRepository
	}
	if err := filter.Validate(); err != nil {
		return types.ReservationPage{}, err
	}
	enforced, err := q.guard.Enforce(ctx, filter.Actor, filter.Scope, types.PolicyActionUsernamesRead, uuid.Nil)
	if err != nil {
		return types.ReservationPage{}, err
	}
	filter.Scope = enforced
	filter.Keyword = types.NormalizeUsername(filter.Keyword)
	filter.Pagination = normalizePagination(filter.Pagination)
	return q.repo.ListReservations(ctx, filter)
}
