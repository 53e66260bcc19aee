package command

import (
	"context"
	"time"

	"github.com/ring-platform/go-usernames/pkg/types"
	"github.com/ring-platform/go-usernames/scope"
)

func safeClock(clock types.Clock) types.Clock {
	if clock != nil {
		return clock
	}
	return types.SystemClock{}
}

func safeLogger(logger types.Logger) types.Logger {
	if logger != nil {
		return logger
	}
	return types.NopLogger{}
}

func safeHooks(hooks types.Hooks) types.Hooks {
	return hooks
}

func safeScopeGuard(g scope.Guard) scope.Guard {
	return scope.Ensure(g)
}

func now(clock types.Clock) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock.Now()
}

func logActivity(ctx context.Context, sink types.ActivitySink, record types.ActivityRecord) {
	if sink == nil {
		return
	}
	_ = sink.Log(ctx, record)
}

func emitReserveHook(ctx context.Context, hooks types.Hooks, event types.ReservationEvent) {
	if hooks.AfterReserve == nil {
		return
	}
	hooks.AfterReserve(ctx, event)
}

func emitConfirmHook(ctx context.Context, hooks types.Hooks, event types.ReservationEvent) {
	if hooks.AfterConfirm == nil {
		return
	}
	hooks.AfterConfirm(ctx, event)
}

func emitReleaseHook(ctx context.Context, hooks types.Hooks, event types.ReservationEvent) {
	if hooks.AfterRelease == nil {
		return
	}
	hooks.AfterRelease(ctx, event)
}

func emitSweepHook(ctx context.Context, hooks types.Hooks, event types.SweepEvent) {
	if hooks.AfterSweep == nil {
		return
	}
	hooks.AfterSweep(ctx, event)
}

func emitProfileHook(ctx context.Context, hooks types.Hooks, event types.ProfileEvent) {
	if hooks.AfterProfileChange == nil {
		return
	}
	hooks.AfterProfileChange(ctx, event)
}
