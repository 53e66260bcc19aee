// Package command exposes go-command compatible handlers implementing the
// username reservation workflows (reserve, confirm, release, sweep, and the
// full profile update). Commands are wired by the service layer and can be
// invoked by any transport.
package command
