package command

import (
	"context"
	"time"

	gocommand "github.com/goliatone/go-command"
	"github.com/google/uuid"
	"github.com/ring-platform/go-usernames/activity"
	"github.com/ring-platform/go-usernames/pkg/types"
	"github.com/ring-platform/go-usernames/scope"
)

// ReservationCommandConfig wires dependencies shared by the reservation
// commands.
type ReservationCommandConfig struct {
	Repository types.ReservationRepository
	Activity   types.ActivitySink
	Hooks      types.Hooks
	Clock      types.Clock
	Logger     types.Logger
	ScopeGuard scope.Guard
}

// UsernameReserveInput captures a single reservation attempt.
type UsernameReserveInput struct {
	Username    string
	OwnerID     uuid.UUID
	Scope       types.ScopeFilter
	Actor       types.ActorRef
	GracePeriod time.Duration
	Result      *types.Reservation
}

// Type implements gocommand.Message.
func (UsernameReserveInput) Type() string {
	return "command.username.reserve"
}

// Validate implements gocommand.Message.
func (input UsernameReserveInput) Validate() error {
	switch {
	case types.NormalizeUsername(input.Username) == "":
		return ErrUsernameRequired
	case input.OwnerID == uuid.Nil:
		return ErrUserIDRequired
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	default:
		return nil
	}
}

// UsernameReserveCommand places a provisional hold on a username.
type UsernameReserveCommand struct {
	repo  types.ReservationRepository
	sink  types.ActivitySink
	hooks types.Hooks
	clock types.Clock
	guard scope.Guard
}

// NewUsernameReserveCommand constructs the reserve handler.
func NewUsernameReserveCommand(cfg ReservationCommandConfig) *UsernameReserveCommand {
	return &UsernameReserveCommand{
		repo:  cfg.Repository,
		sink:  cfg.Activity,
		hooks: safeHooks(cfg.Hooks),
		clock: safeClock(cfg.Clock),
		guard: safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[UsernameReserveInput] = (*UsernameReserveCommand)(nil)

// Execute runs the reservation protocol for the requested name. Conflict
// outcomes (taken, temporarily reserved) propagate as typed errors for the
// caller to map to form-level messages; they are expected results, not
// failures.
func (c *UsernameReserveCommand) Execute(ctx context.Context, input UsernameReserveInput) error {
	if c.repo == nil {
		return types.ErrMissingReservationRepository
	}
	if err := input.Validate(); err != nil {
		return err
	}

	enforced, err := c.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionUsernamesReserve, input.OwnerID)
	if err != nil {
		return err
	}

	res, err := c.repo.Reserve(ctx, types.ReserveRequest{
		DisplayName: input.Username,
		OwnerID:     input.OwnerID,
		Scope:       enforced,
		GracePeriod: input.GracePeriod,
	})
	if err != nil {
		return err
	}
	if input.Result != nil {
		*input.Result = *res
	}

	occurredAt := now(c.clock)
	logActivity(ctx, c.sink, types.ActivityRecord{
		UserID:     input.OwnerID,
		ActorID:    input.Actor.ID,
		Verb:       activity.VerbUsernameReserved,
		ObjectType: "username",
		ObjectID:   res.Key,
		TenantID:   enforced.TenantID,
		OrgID:      enforced.OrgID,
		Data:       map[string]any{"display_name": res.DisplayName},
		OccurredAt: occurredAt,
	})
	emitReserveHook(ctx, c.hooks, types.ReservationEvent{
		Key:         res.Key,
		DisplayName: res.DisplayName,
		OwnerID:     res.OwnerID,
		ActorID:     input.Actor.ID,
		Action:      "username.reserved",
		Scope:       enforced,
		OccurredAt:  occurredAt,
	})
	return nil
}
