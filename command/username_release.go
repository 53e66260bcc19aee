package command

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/google/uuid"
	"github.com/ring-platform/go-usernames/activity"
	"github.com/ring-platform/go-usernames/pkg/types"
	"github.com/ring-platform/go-usernames/scope"
)

// UsernameReleaseInput drops the caller's own unconfirmed hold.
type UsernameReleaseInput struct {
	Username string
	OwnerID  uuid.UUID
	Scope    types.ScopeFilter
	Actor    types.ActorRef
}

// Type implements gocommand.Message.
func (UsernameReleaseInput) Type() string {
	return "command.username.release"
}

// Validate implements gocommand.Message.
func (input UsernameReleaseInput) Validate() error {
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

// UsernameReleaseCommand frees a hold immediately instead of waiting out the
// grace window. Workflows call it when the profile update fails after the
// reservation was placed.
type UsernameReleaseCommand struct {
	repo  types.ReservationRepository
	sink  types.ActivitySink
	hooks types.Hooks
	clock types.Clock
	guard scope.Guard
}

// NewUsernameReleaseCommand constructs the release handler.
func NewUsernameReleaseCommand(cfg ReservationCommandConfig) *UsernameReleaseCommand {
	return &UsernameReleaseCommand{
		repo:  cfg.Repository,
		sink:  cfg.Activity,
		hooks: safeHooks(cfg.Hooks),
		clock: safeClock(cfg.Clock),
		guard: safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[UsernameReleaseInput] = (*UsernameReleaseCommand)(nil)

// Execute releases the hold. Releasing a key that is already gone, expired
// away, or held by someone else is a no-op.
func (c *UsernameReleaseCommand) Execute(ctx context.Context, input UsernameReleaseInput) error {
	if c.repo == nil {
		return types.ErrMissingReservationRepository
	}
	if err := input.Validate(); err != nil {
		return err
	}

	enforced, err := c.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionUsernamesRelease, input.OwnerID)
	if err != nil {
		return err
	}

	key := types.NormalizeUsername(input.Username)
	if err := c.repo.Release(ctx, key, input.OwnerID); err != nil {
		return err
	}

	occurredAt := now(c.clock)
	logActivity(ctx, c.sink, types.ActivityRecord{
		UserID:     input.OwnerID,
		ActorID:    input.Actor.ID,
		Verb:       activity.VerbUsernameReleased,
		ObjectType: "username",
		ObjectID:   key,
		TenantID:   enforced.TenantID,
		OrgID:      enforced.OrgID,
		OccurredAt: occurredAt,
	})
	emitReleaseHook(ctx, c.hooks, types.ReservationEvent{
		Key:        key,
		OwnerID:    input.OwnerID,
		ActorID:    input.Actor.ID,
		Action:     "username.released",
		Scope:      enforced,
		OccurredAt: occurredAt,
	})
	return nil
}
