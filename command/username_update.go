package command

import (
	"context"
	"errors"
	"time"

	gocommand "github.com/goliatone/go-command"
	featuregate "github.com/goliatone/go-featuregate/gate"
	"github.com/google/uuid"
	"github.com/ring-platform/go-usernames/activity"
	"github.com/ring-platform/go-usernames/pkg/types"
	"github.com/ring-platform/go-usernames/scope"
)

// UsernameUpdateConfig wires the profile-update workflow. It extends the
// reservation dependencies with the profile store and the feature gate that
// controls whether existing usernames may change.
type UsernameUpdateConfig struct {
	Reservations types.ReservationRepository
	Profiles     types.ProfileRepository
	Activity     types.ActivitySink
	Hooks        types.Hooks
	Clock        types.Clock
	Logger       types.Logger
	ScopeGuard   scope.Guard
	FeatureGate  featuregate.FeatureGate
	GracePeriod  time.Duration
}

// UsernameUpdateInput carries a profile save that may rename the user.
type UsernameUpdateInput struct {
	UserID   uuid.UUID
	Username string
	Patch    types.ProfilePatch
	Scope    types.ScopeFilter
	Actor    types.ActorRef
	Result   *UsernameUpdateResult
}

// UsernameUpdateResult reports the saved profile and, when the username
// changed, the confirmed reservation.
type UsernameUpdateResult struct {
	Profile     types.UserProfile
	Reservation *types.Reservation
}

// Type implements gocommand.Message.
func (UsernameUpdateInput) Type() string {
	return "command.username.update"
}

// Validate implements gocommand.Message.
func (input UsernameUpdateInput) Validate() error {
	switch {
	case input.UserID == uuid.Nil:
		return ErrUserIDRequired
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	case types.NormalizeUsername(input.Username) == "":
		return ErrUsernameRequired
	default:
		return nil
	}
}

// UsernameUpdateCommand runs the two-phase profile save: reserve the new
// name, persist the profile, then confirm the hold. A failed profile write
// releases the hold so the name frees immediately instead of waiting out the
// grace window. Confirm failures after a successful save are logged, never
// surfaced; the hold still converges via expiry or a later save.
type UsernameUpdateCommand struct {
	reservations types.ReservationRepository
	profiles     types.ProfileRepository
	sink         types.ActivitySink
	hooks        types.Hooks
	clock        types.Clock
	logger       types.Logger
	guard        scope.Guard
	gate         featuregate.FeatureGate
	gracePeriod  time.Duration
}

// NewUsernameUpdateCommand constructs the workflow handler.
func NewUsernameUpdateCommand(cfg UsernameUpdateConfig) *UsernameUpdateCommand {
	gracePeriod := cfg.GracePeriod
	if gracePeriod <= 0 {
		gracePeriod = types.DefaultGracePeriod
	}
	return &UsernameUpdateCommand{
		reservations: cfg.Reservations,
		profiles:     cfg.Profiles,
		sink:         cfg.Activity,
		hooks:        safeHooks(cfg.Hooks),
		clock:        safeClock(cfg.Clock),
		logger:       safeLogger(cfg.Logger),
		guard:        safeScopeGuard(cfg.ScopeGuard),
		gate:         cfg.FeatureGate,
		gracePeriod:  gracePeriod,
	}
}

var _ gocommand.Commander[UsernameUpdateInput] = (*UsernameUpdateCommand)(nil)

// Execute saves the profile with the reservation protocol wrapped around the
// username change.
func (c *UsernameUpdateCommand) Execute(ctx context.Context, input UsernameUpdateInput) error {
	if c.reservations == nil {
		return types.ErrMissingReservationRepository
	}
	if c.profiles == nil {
		return types.ErrMissingProfileRepository
	}
	if err := input.Validate(); err != nil {
		return err
	}
	if err := ValidateUsernameFormat(input.Username); err != nil {
		return err
	}

	enforced, err := c.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionProfilesWrite, input.UserID)
	if err != nil {
		return err
	}

	key := types.NormalizeUsername(input.Username)
	current, err := c.profiles.GetProfile(ctx, input.UserID, enforced)
	if err != nil {
		return err
	}
	renaming := current == nil || types.NormalizeUsername(current.Username) != key
	if renaming && current != nil && current.Username != "" {
		enabled, gateErr := featureEnabled(ctx, c.gate, featureUsernameChange, enforced, input.UserID)
		if gateErr != nil {
			return gateErr
		}
		if !enabled {
			return ErrUsernameChangeDisabled
		}
	}

	if _, err = c.reservations.Reserve(ctx, types.ReserveRequest{
		DisplayName: input.Username,
		OwnerID:     input.UserID,
		Scope:       enforced,
		GracePeriod: c.gracePeriod,
	}); err != nil {
		return err
	}

	profile := c.mergeProfile(current, input, enforced)
	saved, err := c.profiles.UpsertProfile(ctx, profile)
	if err != nil {
		c.releaseAfterFailure(ctx, key, input.UserID)
		return err
	}

	confirmed, err := c.reservations.Confirm(ctx, key, input.UserID)
	switch {
	case errors.Is(err, types.ErrOwnershipDrift):
		c.logger.Error("username ownership drifted before confirm", err,
			"key", key, "user_id", input.UserID.String())
		confirmed = nil
	case err != nil:
		c.logger.Error("username confirm failed after profile save", err, "key", key)
		confirmed = nil
	}

	if input.Result != nil {
		input.Result.Profile = *saved
		input.Result.Reservation = confirmed
	}

	occurredAt := now(c.clock)
	logActivity(ctx, c.sink, types.ActivityRecord{
		UserID:     input.UserID,
		ActorID:    input.Actor.ID,
		Verb:       activity.VerbProfileUpdated,
		ObjectType: "profile",
		ObjectID:   input.UserID.String(),
		TenantID:   enforced.TenantID,
		OrgID:      enforced.OrgID,
		Data:       map[string]any{"username": key, "renamed": renaming},
		OccurredAt: occurredAt,
	})
	if confirmed != nil {
		emitConfirmHook(ctx, c.hooks, types.ReservationEvent{
			Key:         confirmed.Key,
			DisplayName: confirmed.DisplayName,
			OwnerID:     confirmed.OwnerID,
			ActorID:     input.Actor.ID,
			Action:      "username.confirmed",
			Scope:       enforced,
			OccurredAt:  occurredAt,
		})
	}
	emitProfileHook(ctx, c.hooks, types.ProfileEvent{
		UserID:     input.UserID,
		Scope:      enforced,
		ActorID:    input.Actor.ID,
		OccurredAt: occurredAt,
		Profile:    *saved,
	})
	return nil
}

// mergeProfile folds the patch into the current profile, or seeds a new one.
func (c *UsernameUpdateCommand) mergeProfile(current *types.UserProfile, input UsernameUpdateInput, enforced types.ScopeFilter) types.UserProfile {
	profile := types.UserProfile{
		UserID: input.UserID,
		Scope:  enforced,
	}
	if current != nil {
		profile = *current
		profile.Scope = enforced
	}
	if input.Patch.DisplayName != nil {
		profile.DisplayName = *input.Patch.DisplayName
	}
	if input.Patch.AvatarURL != nil {
		profile.AvatarURL = *input.Patch.AvatarURL
	}
	if input.Patch.Locale != nil {
		profile.Locale = *input.Patch.Locale
	}
	if input.Patch.Timezone != nil {
		profile.Timezone = *input.Patch.Timezone
	}
	if input.Patch.Bio != nil {
		profile.Bio = *input.Patch.Bio
	}
	// The username mirror in storage is maintained by the reservation
	// transaction; setting it here only keeps the returned snapshot coherent.
	profile.Username = types.NormalizeUsername(input.Username)
	profile.UpdatedBy = input.Actor.ID
	if current == nil {
		profile.CreatedBy = input.Actor.ID
	}
	return profile
}

func (c *UsernameUpdateCommand) releaseAfterFailure(ctx context.Context, key string, ownerID uuid.UUID) {
	if err := c.reservations.Release(ctx, key, ownerID); err != nil {
		c.logger.Error("failed to release username hold after save error", err, "key", key)
	}
}
