package command

import (
	"strings"

	"github.com/ring-platform/go-usernames/pkg/types"
)

const (
	usernameMinLength = 3
	usernameMaxLength = 30
)

// ValidateUsernameFormat checks length and character set on the normalized
// name. This runs at the workflow boundary; the reservation repository
// assumes names it receives already passed.
func ValidateUsernameFormat(name string) error {
	key := types.NormalizeUsername(name)
	if key == "" {
		return ErrUsernameRequired
	}
	if len(key) < usernameMinLength || len(key) > usernameMaxLength {
		return ErrUsernameInvalid
	}
	if !isAlphanumeric(key[0]) || !isAlphanumeric(key[len(key)-1]) {
		return ErrUsernameInvalid
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		if isAlphanumeric(c) || c == '.' || c == '-' || c == '_' {
			continue
		}
		return ErrUsernameInvalid
	}
	if strings.Contains(key, "..") {
		return ErrUsernameInvalid
	}
	return nil
}

func isAlphanumeric(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}
