package command

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/google/uuid"
	"github.com/ring-platform/go-usernames/activity"
	"github.com/ring-platform/go-usernames/pkg/types"
	"github.com/ring-platform/go-usernames/scope"
)

// SweepExpiredInput triggers a maintenance sweep of abandoned holds.
type SweepExpiredInput struct {
	Actor  types.ActorRef
	Scope  types.ScopeFilter
	Result *SweepExpiredResult
}

// SweepExpiredResult reports how many abandoned holds were removed.
type SweepExpiredResult struct {
	Cleaned int
}

// Type implements gocommand.Message.
func (SweepExpiredInput) Type() string {
	return "command.username.sweep"
}

// Validate implements gocommand.Message.
func (input SweepExpiredInput) Validate() error {
	if input.Actor.ID == uuid.Nil {
		return ErrActorRequired
	}
	return nil
}

// SweepExpiredCommand garbage-collects unconfirmed, expired reservations. The
// protocol already treats them as claimable; the sweep only bounds storage
// growth, so hosts typically run it from a scheduled job.
type SweepExpiredCommand struct {
	repo   types.ReservationRepository
	sink   types.ActivitySink
	hooks  types.Hooks
	clock  types.Clock
	logger types.Logger
	guard  scope.Guard
}

// NewSweepExpiredCommand constructs the sweep handler.
func NewSweepExpiredCommand(cfg ReservationCommandConfig) *SweepExpiredCommand {
	return &SweepExpiredCommand{
		repo:   cfg.Repository,
		sink:   cfg.Activity,
		hooks:  safeHooks(cfg.Hooks),
		clock:  safeClock(cfg.Clock),
		logger: safeLogger(cfg.Logger),
		guard:  safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[SweepExpiredInput] = (*SweepExpiredCommand)(nil)

// Execute deletes abandoned holds and reports the count.
func (c *SweepExpiredCommand) Execute(ctx context.Context, input SweepExpiredInput) error {
	if c.repo == nil {
		return types.ErrMissingReservationRepository
	}
	if err := input.Validate(); err != nil {
		return err
	}

	enforced, err := c.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionUsernamesSweep, uuid.Nil)
	if err != nil {
		return err
	}

	cleaned, err := c.repo.SweepExpired(ctx)
	if err != nil {
		return err
	}
	if input.Result != nil {
		input.Result.Cleaned = cleaned
	}

	occurredAt := now(c.clock)
	if cleaned > 0 {
		c.logger.Info("swept expired username holds", "cleaned", cleaned)
	}
	logActivity(ctx, c.sink, types.ActivityRecord{
		ActorID:    input.Actor.ID,
		Verb:       activity.VerbUsernameSwept,
		ObjectType: "username",
		TenantID:   enforced.TenantID,
		OrgID:      enforced.OrgID,
		Data:       map[string]any{"cleaned": cleaned},
		OccurredAt: occurredAt,
	})
	emitSweepHook(ctx, c.hooks, types.SweepEvent{
		Cleaned:    cleaned,
		OccurredAt: occurredAt,
	})
	return nil
}
