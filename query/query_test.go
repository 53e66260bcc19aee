package query

import (
	"context"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/ring-platform/go-usernames/pkg/types"
	"github.com/ring-platform/go-usernames/scope"
	"github.com/stretchr/testify/require"
)

func TestAvailabilityQuery_ClassifiesStates(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := fixedClock{t: now}
	repo := &fakeReservationStore{reservations: map[string]*types.Reservation{
		"taken.name": {
			Key:     "taken.name",
			OwnerID: uuid.New(),
			Phase:   types.Confirmed{ConfirmedAt: now.Add(-time.Hour)},
		},
		"held.name": {
			Key:     "held.name",
			OwnerID: uuid.New(),
			Phase:   types.Held{ExpiresAt: now.Add(2 * time.Minute)},
		},
		"expired.name": {
			Key:     "expired.name",
			OwnerID: uuid.New(),
			Phase:   types.Held{ExpiresAt: now.Add(-time.Second)},
		},
	}}
	q := NewAvailabilityQuery(repo, clock, nil)
	actor := types.ActorRef{ID: uuid.New()}

	cases := []struct {
		username string
		status   types.ReservationStatus
	}{
		{"Unclaimed", types.ReservationStatusAvailable},
		{"Taken.Name", types.ReservationStatusTaken},
		{"Held.Name", types.ReservationStatusHeld},
		{"Expired.Name", types.ReservationStatusAvailable},
	}
	for _, tc := range cases {
		out, err := q.Query(context.Background(), AvailabilityInput{Username: tc.username, Actor: actor})
		require.NoError(t, err)
		require.Equal(t, tc.status, out.Status, "username %q", tc.username)
		require.Equal(t, types.NormalizeUsername(tc.username), out.Key)
	}

	held, err := q.Query(context.Background(), AvailabilityInput{Username: "held.name", Actor: actor})
	require.NoError(t, err)
	require.NotNil(t, held.HeldUntil)
	require.Equal(t, now.Add(2*time.Minute), *held.HeldUntil)
}

func TestAvailabilityQuery_RequiresUsername(t *testing.T) {
	q := NewAvailabilityQuery(&fakeReservationStore{}, nil, nil)
	_, err := q.Query(context.Background(), AvailabilityInput{Username: "  "})
	require.ErrorIs(t, err, types.ErrUsernameRequired)
}

func TestReservationDetailQuery_MapsMissingRowToNotFound(t *testing.T) {
	q := NewReservationDetailQuery(&fakeReservationStore{reservations: map[string]*types.Reservation{}}, nil)

	_, err := q.Query(context.Background(), ReservationDetailInput{
		Username: "ghost",
		Actor:    types.ActorRef{ID: uuid.New()},
	})

	var richErr *goerrors.Error
	require.ErrorAs(t, err, &richErr)
	require.Equal(t, goerrors.CategoryNotFound, richErr.Category)
}

func TestReservationDetailQuery_ReturnsRow(t *testing.T) {
	ownerID := uuid.New()
	q := NewReservationDetailQuery(&fakeReservationStore{reservations: map[string]*types.Reservation{
		"present": {Key: "present", OwnerID: ownerID, Phase: types.Confirmed{}},
	}}, nil)

	res, err := q.Query(context.Background(), ReservationDetailInput{
		Username: "Present",
		Actor:    types.ActorRef{ID: uuid.New()},
	})
	require.NoError(t, err)
	require.Equal(t, ownerID, res.OwnerID)
}

func TestReservationListQuery_NormalizesFilter(t *testing.T) {
	lister := &fakeLister{}
	q := NewReservationListQuery(lister, nil)

	_, err := q.Query(context.Background(), types.ReservationFilter{
		Actor:      types.ActorRef{ID: uuid.New()},
		Keyword:    "  MiXeD  ",
		Pagination: types.Pagination{Limit: 10_000, Offset: -3},
	})

	require.NoError(t, err)
	require.Equal(t, "mixed", lister.lastFilter.Keyword)
	require.Equal(t, maxListLimit, lister.lastFilter.Pagination.Limit)
	require.Zero(t, lister.lastFilter.Pagination.Offset)
}

func TestReservationListQuery_RequiresActor(t *testing.T) {
	q := NewReservationListQuery(&fakeLister{}, nil)
	_, err := q.Query(context.Background(), types.ReservationFilter{})
	require.ErrorIs(t, err, types.ErrActorRequired)
}

func TestActivityFeedQuery_EnforcesPolicy(t *testing.T) {
	denied := scope.NewGuard(nil, types.AuthorizationPolicyFunc(func(context.Context, types.PolicyCheck) error {
		return types.ErrUnauthorizedScope
	}))
	repo := &fakeActivityRepo{}
	q := NewActivityFeedQuery(repo, denied)

	_, err := q.Query(context.Background(), types.ActivityFilter{
		Actor: types.ActorRef{ID: uuid.New()},
	})

	require.ErrorIs(t, err, types.ErrUnauthorizedScope)
	require.False(t, repo.called, "denied feed queries must not reach the repository")
}

func TestActivityFeedQuery_AppliesScopeFromResolver(t *testing.T) {
	tenantID := uuid.New()
	resolver := types.ScopeResolverFunc(func(_ context.Context, _ types.ActorRef, requested types.ScopeFilter) (types.ScopeFilter, error) {
		requested.TenantID = tenantID
		return requested, nil
	})
	repo := &fakeActivityRepo{}
	q := NewActivityFeedQuery(repo, scope.NewGuard(resolver, nil))

	_, err := q.Query(context.Background(), types.ActivityFilter{
		Actor: types.ActorRef{ID: uuid.New()},
	})

	require.NoError(t, err)
	require.Equal(t, tenantID, repo.lastFilter.Scope.TenantID)
	require.Equal(t, defaultListLimit, repo.lastFilter.Pagination.Limit)
}

func TestProfileQuery_NotFound(t *testing.T) {
	q := NewProfileQuery(&fakeProfileStore{}, nil)

	_, err := q.Query(context.Background(), ProfileQueryInput{
		UserID: uuid.New(),
		Actor:  types.ActorRef{ID: uuid.New()},
	})

	var richErr *goerrors.Error
	require.ErrorAs(t, err, &richErr)
	require.Equal(t, goerrors.CategoryNotFound, richErr.Category)
}

type fakeReservationStore struct {
	reservations map[string]*types.Reservation
}

func (f *fakeReservationStore) Reserve(context.Context, types.ReserveRequest) (*types.Reservation, error) {
	return nil, nil
}

func (f *fakeReservationStore) Confirm(context.Context, string, uuid.UUID) (*types.Reservation, error) {
	return nil, nil
}

func (f *fakeReservationStore) Release(context.Context, string, uuid.UUID) error {
	return nil
}

func (f *fakeReservationStore) SweepExpired(context.Context) (int, error) {
	return 0, nil
}

func (f *fakeReservationStore) GetReservation(_ context.Context, key string) (*types.Reservation, error) {
	res, ok := f.reservations[key]
	if !ok {
		return nil, nil
	}
	return res, nil
}

var _ types.ReservationRepository = (*fakeReservationStore)(nil)

type fakeLister struct {
	lastFilter types.ReservationFilter
}

func (f *fakeLister) ListReservations(_ context.Context, filter types.ReservationFilter) (types.ReservationPage, error) {
	f.lastFilter = filter
	return types.ReservationPage{}, nil
}

type fakeActivityRepo struct {
	called     bool
	lastFilter types.ActivityFilter
}

func (f *fakeActivityRepo) ListActivity(_ context.Context, filter types.ActivityFilter) (types.ActivityPage, error) {
	f.called = true
	f.lastFilter = filter
	return types.ActivityPage{}, nil
}

type fakeProfileStore struct {
	profiles map[uuid.UUID]*types.UserProfile
}

func (f *fakeProfileStore) GetProfile(_ context.Context, userID uuid.UUID, _ types.ScopeFilter) (*types.UserProfile, error) {
	if f.profiles == nil {
		return nil, nil
	}
	return f.profiles[userID], nil
}

func (f *fakeProfileStore) UpsertProfile(_ context.Context, profile types.UserProfile) (*types.UserProfile, error) {
	return &profile, nil
}

type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now() time.Time {
	return c.t
}
