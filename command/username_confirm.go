package command

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	"github.com/google/uuid"
	"github.com/ring-platform/go-usernames/activity"
	"github.com/ring-platform/go-usernames/pkg/types"
	"github.com/ring-platform/go-usernames/scope"
)

// UsernameConfirmInput promotes a hold to permanent ownership.
type UsernameConfirmInput struct {
	Username string
	OwnerID  uuid.UUID
	Scope    types.ScopeFilter
	Actor    types.ActorRef
	Result   *types.Reservation
}

// Type implements gocommand.Message.
func (UsernameConfirmInput) Type() string {
	return "command.username.confirm"
}

// Validate implements gocommand.Message.
func (input UsernameConfirmInput) Validate() error {
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

// UsernameConfirmCommand finalizes ownership after the surrounding profile
// update succeeded.
type UsernameConfirmCommand struct {
	repo   types.ReservationRepository
	sink   types.ActivitySink
	hooks  types.Hooks
	clock  types.Clock
	logger types.Logger
	guard  scope.Guard
}

// NewUsernameConfirmCommand constructs the confirm handler.
func NewUsernameConfirmCommand(cfg ReservationCommandConfig) *UsernameConfirmCommand {
	return &UsernameConfirmCommand{
		repo:   cfg.Repository,
		sink:   cfg.Activity,
		hooks:  safeHooks(cfg.Hooks),
		clock:  safeClock(cfg.Clock),
		logger: safeLogger(cfg.Logger),
		guard:  safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[UsernameConfirmInput] = (*UsernameConfirmCommand)(nil)

// Execute confirms the caller's hold. Ownership drift means the hold expired
// and was reclaimed after the caller's profile write succeeded; since that
// write is not rolled back over a display field, drift is logged and swallowed
// rather than returned.
func (c *UsernameConfirmCommand) Execute(ctx context.Context, input UsernameConfirmInput) error {
	if c.repo == nil {
		return types.ErrMissingReservationRepository
	}
	if err := input.Validate(); err != nil {
		return err
	}

	enforced, err := c.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionUsernamesConfirm, input.OwnerID)
	if err != nil {
		return err
	}

	key := types.NormalizeUsername(input.Username)
	res, err := c.repo.Confirm(ctx, key, input.OwnerID)
	if err != nil {
		if errors.Is(err, types.ErrOwnershipDrift) {
			c.logger.Error("username ownership drifted before confirmation", err,
				"key", key, "owner_id", input.OwnerID.String())
			return nil
		}
		return err
	}
	if input.Result != nil {
		*input.Result = *res
	}

	occurredAt := now(c.clock)
	logActivity(ctx, c.sink, types.ActivityRecord{
		UserID:     input.OwnerID,
		ActorID:    input.Actor.ID,
		Verb:       activity.VerbUsernameConfirmed,
		ObjectType: "username",
		ObjectID:   res.Key,
		TenantID:   enforced.TenantID,
		OrgID:      enforced.OrgID,
		OccurredAt: occurredAt,
	})
	emitConfirmHook(ctx, c.hooks, types.ReservationEvent{
		Key:         res.Key,
		DisplayName: res.DisplayName,
		OwnerID:     res.OwnerID,
		ActorID:     input.Actor.ID,
		Action:      "username.confirmed",
		Scope:       enforced,
		OccurredAt:  occurredAt,
	})
	return nil
}
