package profile

import (
	"context"
	"errors"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/ring-platform/go-usernames/pkg/types"
	"github.com/uptrace/bun"
)

// RepositoryConfig wires the Bun-backed profile repository.
type RepositoryConfig struct {
	DB         *bun.DB
	Repository repository.Repository[*Record]
	Clock      types.Clock
}

type profileStore interface {
	repository.Repository[*Record]
}

// Repository implements types.ProfileRepository using Bun.
type Repository struct {
	profileStore
	clock types.Clock
	db    *bun.DB
}

// NewRepository constructs the default profile repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if cfg.Repository == nil && cfg.DB == nil {
		return nil, errors.New("profile: db or repository required")
	}
	repo := cfg.Repository
	if repo == nil {
		repo = repository.NewRepository(cfg.DB, repository.ModelHandlers[*Record]{
			NewRecord: func() *Record { return &Record{} },
			GetID: func(rec *Record) uuid.UUID {
				if rec == nil {
					return uuid.Nil
				}
				return rec.UserID
			},
			SetID: func(rec *Record, id uuid.UUID) {
				if rec != nil {
					rec.UserID = id
				}
			},
		})
	}

	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	db := cfg.DB
	if db == nil {
		if withDB, ok := repo.(interface{ DB() *bun.DB }); ok {
			db = withDB.DB()
		}
	}

	return &Repository{
		profileStore: repo,
		clock:        clock,
		db:           db,
	}, nil
}

var (
	_ repository.Repository[*Record] = (*Repository)(nil)
	_ types.ProfileRepository        = (*Repository)(nil)
)

// GetProfile returns the profile for the supplied user within the provided scope.
func (r *Repository) GetProfile(ctx context.Context, userID uuid.UUID, scope types.ScopeFilter) (*types.UserProfile, error) {
	if userID == uuid.Nil {
		return nil, types.ErrUserIDRequired
	}
	rec, err := r.Get(ctx, selectUserID(userID), scopeCriteria(scope))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return toDomain(rec), nil
}

// UpsertProfile inserts or updates the user profile. Updates list their
// columns explicitly so the username mirror columns, owned by the reservation
// transaction, are never overwritten with stale values from this path.
func (r *Repository) UpsertProfile(ctx context.Context, profile types.UserProfile) (*types.UserProfile, error) {
	if profile.UserID == uuid.Nil {
		return nil, types.ErrUserIDRequired
	}
	if r.db == nil {
		return nil, errors.New("profile: db required for updates")
	}
	now := r.clock.Now()
	rec := fromDomain(profile)
	rec.UpdatedAt = now
	if rec.UpdatedBy == uuid.Nil {
		rec.UpdatedBy = profile.CreatedBy
	}

	existing, err := r.Get(ctx, selectUserID(profile.UserID), scopeCriteria(profile.Scope))
	switch {
	case err == nil:
		rec.CreatedAt = existing.CreatedAt
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		if rec.CreatedBy == uuid.Nil {
			rec.CreatedBy = existing.CreatedBy
			if rec.CreatedBy == uuid.Nil {
				rec.CreatedBy = rec.UpdatedBy
			}
		}
		if _, err := r.db.NewUpdate().Model(rec).
			Column("display_name", "avatar_url", "locale", "timezone", "bio",
				"tenant_id", "org_id", "updated_at", "updated_by").
			WherePK().
			Exec(ctx); err != nil {
			return nil, repository.MapDatabaseError(err, repository.DetectDriver(r.db))
		}
		updated, err := r.Get(ctx, selectUserID(profile.UserID), scopeCriteria(profile.Scope))
		if err != nil {
			return nil, err
		}
		return toDomain(updated), nil
	case repository.IsRecordNotFound(err):
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		if rec.CreatedBy == uuid.Nil {
			rec.CreatedBy = rec.UpdatedBy
		}
		created, err := r.Create(ctx, rec)
		if err != nil {
			return nil, err
		}
		return toDomain(created), nil
	default:
		return nil, err
	}
}

func scopeCriteria(scope types.ScopeFilter) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		if scope.TenantID != uuid.Nil {
			q = q.Where("tenant_id = ?", scope.TenantID)
		}
		if scope.OrgID != uuid.Nil {
			q = q.Where("org_id = ?", scope.OrgID)
		}
		return q
	}
}

func selectUserID(userID uuid.UUID) repository.SelectCriteria {
	return repository.SelectBy("user_id", "=", userID.String())
}

func fromDomain(profile types.UserProfile) *Record {
	return &Record{
		UserID:             profile.UserID,
		DisplayName:        profile.DisplayName,
		AvatarURL:          profile.AvatarURL,
		Locale:             profile.Locale,
		Timezone:           profile.Timezone,
		Bio:                profile.Bio,
		Username:           profile.Username,
		UsernameReservedAt: profile.UsernameReservedAt,
		UsernameConfirmed:  profile.UsernameConfirmed,
		TenantID:           profile.Scope.TenantID,
		OrgID:              profile.Scope.OrgID,
		CreatedAt:          profile.CreatedAt,
		CreatedBy:          profile.CreatedBy,
		UpdatedAt:          profile.UpdatedAt,
		UpdatedBy:          profile.UpdatedBy,
	}
}

func toDomain(rec *Record) *types.UserProfile {
	if rec == nil {
		return nil
	}
	return &types.UserProfile{
		UserID:             rec.UserID,
		DisplayName:        rec.DisplayName,
		AvatarURL:          rec.AvatarURL,
		Locale:             rec.Locale,
		Timezone:           rec.Timezone,
		Bio:                rec.Bio,
		Username:           rec.Username,
		UsernameReservedAt: rec.UsernameReservedAt,
		UsernameConfirmed:  rec.UsernameConfirmed,
		Scope: types.ScopeFilter{
			TenantID: rec.TenantID,
			OrgID:    rec.OrgID,
		},
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
		CreatedBy: rec.CreatedBy,
		UpdatedBy: rec.UpdatedBy,
	}
}
