package service

import (
	"context"
	"time"

	featuregate "github.com/goliatone/go-featuregate/gate"
	"github.com/ring-platform/go-usernames/command"
	"github.com/ring-platform/go-usernames/pkg/types"
	"github.com/ring-platform/go-usernames/query"
	"github.com/ring-platform/go-usernames/scope"
)

// Service is the entry point for go-usernames. It wires repositories, hooks,
// and command/query facades supplied by the host application.
type Service struct {
	cfg          Config
	commands     Commands
	queries      Queries
	listerRepo   types.ReservationLister
	activityRepo types.ActivityRepository
	scopeGuard   scope.Guard
}

// Commands exposes the service command handlers.
type Commands struct {
	UsernameReserve *command.UsernameReserveCommand
	UsernameConfirm *command.UsernameConfirmCommand
	UsernameRelease *command.UsernameReleaseCommand
	UsernameUpdate  *command.UsernameUpdateCommand
	SweepExpired    *command.SweepExpiredCommand
}

// Queries exposes read-model helpers.
type Queries struct {
	Availability      *query.AvailabilityQuery
	ReservationDetail *query.ReservationDetailQuery
	ReservationList   *query.ReservationListQuery
	ProfileDetail     *query.ProfileQuery
	ActivityFeed      *query.ActivityFeedQuery
}

// Config captures all required dependencies so callers can provide their own
// instances (bun.DB repositories, cached wrappers, hooks, etc.).
type Config struct {
	ReservationRepository types.ReservationRepository
	ReservationLister     types.ReservationLister
	ProfileRepository     types.ProfileRepository
	ActivityRepository    types.ActivityRepository
	ActivitySink          types.ActivitySink
	Hooks                 types.Hooks
	Clock                 types.Clock
	IDGenerator           types.IDGenerator
	Logger                types.Logger
	FeatureGate           featuregate.FeatureGate
	GracePeriod           time.Duration
	ScopeResolver         types.ScopeResolver
	AuthorizationPolicy   types.AuthorizationPolicy
}

// New constructs a Service from the supplied configuration.
func New(cfg Config) *Service {
	norm := normalizeConfig(cfg)
	lister := norm.ReservationLister
	if lister == nil {
		if cast, ok := norm.ReservationRepository.(types.ReservationLister); ok {
			lister = cast
		}
	}
	actRepo := norm.ActivityRepository
	if actRepo == nil {
		if sinkRepo, ok := norm.ActivitySink.(types.ActivityRepository); ok {
			actRepo = sinkRepo
		}
	}

	scopeGuard := scope.Ensure(scope.NewGuard(norm.ScopeResolver, norm.AuthorizationPolicy))

	s := &Service{
		cfg:          norm,
		listerRepo:   lister,
		activityRepo: actRepo,
		scopeGuard:   scopeGuard,
	}
	s.commands = s.buildCommands()
	s.queries = s.buildQueries()
	return s
}

func normalizeConfig(cfg Config) Config {
	if cfg.Clock == nil {
		cfg.Clock = types.SystemClock{}
	}
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = types.UUIDGenerator{}
	}
	if cfg.Logger == nil {
		cfg.Logger = types.NopLogger{}
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = types.DefaultGracePeriod
	}
	return cfg
}

// Commands returns the command facade.
func (s *Service) Commands() Commands {
	return s.commands
}

// Queries returns the query facade.
func (s *Service) Queries() Queries {
	return s.queries
}

// GracePeriod reports the configured hold duration so transports can surface
// retry hints.
func (s *Service) GracePeriod() time.Duration {
	if s == nil {
		return types.DefaultGracePeriod
	}
	return s.cfg.GracePeriod
}

// Ready reports whether the service has the required dependencies wired in.
func (s *Service) Ready() bool {
	return s != nil &&
		s.cfg.ReservationRepository != nil &&
		s.cfg.ProfileRepository != nil &&
		s.cfg.ActivitySink != nil &&
		s.listerRepo != nil &&
		s.activityRepo != nil
}

// HealthCheck surfaces missing configuration to upstream transports
// (REST/gRPC/jobs) before they start routing traffic.
func (s *Service) HealthCheck(ctx context.Context) error {
	if !s.Ready() {
		return types.ErrServiceNotReady
	}
	if s.cfg.ReservationRepository == nil {
		return types.ErrMissingReservationRepository
	}
	if s.cfg.ProfileRepository == nil {
		return types.ErrMissingProfileRepository
	}
	if s.cfg.ActivitySink == nil {
		return types.ErrMissingActivitySink
	}
	if s.activityRepo == nil {
		return types.ErrMissingActivityRepository
	}
	return nil
}

// ScopeGuard exposes the guard instance used internally so transports can
// reuse the same resolver/policy combination for HTTP adapters.
func (s *Service) ScopeGuard() scope.Guard {
	if s == nil {
		return scope.NopGuard()
	}
	return scope.Ensure(s.scopeGuard)
}

// ActivitySink returns the configured sink so hosts can emit their own
// records alongside the module's.
func (s *Service) ActivitySink() types.ActivitySink {
	if s == nil {
		return nil
	}
	return s.cfg.ActivitySink
}

func (s *Service) buildCommands() Commands {
	reservationCfg := command.ReservationCommandConfig{
		Repository: s.cfg.ReservationRepository,
		Activity:   s.cfg.ActivitySink,
		Hooks:      s.cfg.Hooks,
		Clock:      s.cfg.Clock,
		Logger:     s.cfg.Logger,
		ScopeGuard: s.scopeGuard,
	}
	return Commands{
		UsernameReserve: command.NewUsernameReserveCommand(reservationCfg),
		UsernameConfirm: command.NewUsernameConfirmCommand(reservationCfg),
		UsernameRelease: command.NewUsernameReleaseCommand(reservationCfg),
		UsernameUpdate: command.NewUsernameUpdateCommand(command.UsernameUpdateConfig{
			Reservations: s.cfg.ReservationRepository,
			Profiles:     s.cfg.ProfileRepository,
			Activity:     s.cfg.ActivitySink,
			Hooks:        s.cfg.Hooks,
			Clock:        s.cfg.Clock,
			Logger:       s.cfg.Logger,
			ScopeGuard:   s.scopeGuard,
			FeatureGate:  s.cfg.FeatureGate,
			GracePeriod:  s.cfg.GracePeriod,
		}),
		SweepExpired: command.NewSweepExpiredCommand(reservationCfg),
	}
}

func (s *Service) buildQueries() Queries {
	return Queries{
		Availability:      query.NewAvailabilityQuery(s.cfg.ReservationRepository, s.cfg.Clock, s.scopeGuard),
		ReservationDetail: query.NewReservationDetailQuery(s.cfg.ReservationRepository, s.scopeGuard),
		ReservationList:   query.NewReservationListQuery(s.listerRepo, s.scopeGuard),
		ProfileDetail:     query.NewProfileQuery(s.cfg.ProfileRepository, s.scopeGuard),
		ActivityFeed:      query.NewActivityFeedQuery(s.activityRepo, s.scopeGuard),
	}
}
