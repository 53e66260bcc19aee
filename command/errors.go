package command

import (
	"errors"

	"github.com/ring-platform/go-usernames/pkg/types"
)

var (
	// ErrActorRequired indicates an actor reference was not supplied.
	ErrActorRequired = types.ErrActorRequired
	// ErrUserIDRequired occurs when commands omit the user.
	ErrUserIDRequired = types.ErrUserIDRequired
	// ErrUsernameRequired indicates a username was not supplied.
	ErrUsernameRequired = types.ErrUsernameRequired
	// ErrUsernameInvalid indicates the requested username fails format
	// validation. Format is checked here, before the reservation protocol is
	// invoked; the repository never re-validates it.
	ErrUsernameInvalid = errors.New("go-usernames: username must be 3-30 chars of a-z, 0-9, dot, dash or underscore, starting and ending alphanumeric")
	// ErrUsernameChangeDisabled indicates username changes are disabled via
	// feature gate for the requesting scope.
	ErrUsernameChangeDisabled = errors.New("go-usernames: username change disabled")
)
