package usernames

import "github.com/ring-platform/go-usernames/service"

// Re-export the service package entry point so consumers can do
// `usernames.New(...)` without importing internal wiring helpers.
type (
	Service  = service.Service
	Config   = service.Config
	Commands = service.Commands
	Queries  = service.Queries
)

// New constructs the go-usernames runtime using the provided configuration.
func New(cfg Config) *Service {
	return service.New(cfg)
}
