package reservation

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/google/uuid"
	"github.com/ring-platform/go-usernames/pkg/types"
	"github.com/uptrace/bun"
)

// RepositoryConfig wires the Bun-backed reservation repository.
type RepositoryConfig struct {
	DB         *bun.DB
	Repository repository.Repository[*Record]
	Clock      types.Clock
	IDGen      types.IDGenerator
}

// Repository implements the reservation protocol on top of Bun. All mutual
// exclusion is delegated to the store's transaction discipline: Reserve runs
// its read/decide/write cycle in a single transaction, Confirm/Release/Sweep
// are single guarded statements.
type Repository struct {
	store repository.Repository[*Record]
	clock types.Clock
	idGen types.IDGenerator
	db    *bun.DB
}

// NewRepository constructs the default reservation repository. The read-side
// store can be wrapped in a cache decorator via WithCache; the write path
// always goes straight to the database.
func NewRepository(cfg RepositoryConfig, options ...RepositoryOption) (*Repository, error) {
	if cfg.DB == nil {
		return nil, errors.New("reservation: db required")
	}
	repo := cfg.Repository
	if repo == nil {
		repo = repository.NewRepository(cfg.DB, repository.ModelHandlers[*Record]{
			NewRecord: func() *Record { return &Record{} },
			GetID: func(rec *Record) uuid.UUID {
				if rec == nil {
					return uuid.Nil
				}
				return rec.ID
			},
			SetID: func(rec *Record, id uuid.UUID) {
				if rec != nil {
					rec.ID = id
				}
			},
		})
	}
	opts := applyRepositoryOptions(options)
	if opts.CacheEnabled {
		if _, ok := repo.(*repositorycache.CachedRepository[*Record]); !ok {
			cacheCfg := cache.DefaultConfig()
			if opts.CacheConfig != nil {
				cacheCfg = *opts.CacheConfig
			}
			cacheService, err := cache.NewCacheService(cacheCfg)
			if err != nil {
				return nil, err
			}
			repo = repositorycache.New(repo, cacheService, cache.NewDefaultKeySerializer())
		}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	idGen := cfg.IDGen
	if idGen == nil {
		idGen = types.UUIDGenerator{}
	}
	return &Repository{
		store: repo,
		clock: clock,
		idGen: idGen,
		db:    cfg.DB,
	}, nil
}

var (
	_ types.ReservationRepository = (*Repository)(nil)
	_ types.ReservationLister     = (*Repository)(nil)
)

// Reserve decides whether the caller may hold the requested name and writes
// the hold, the mirror columns on the caller's profile row, and the deletion
// of the caller's previous name, all inside one transaction. Two concurrent
// claims for the same key are serialized by the store; the loser observes the
// winner's row (or its unique-index violation) and receives a conflict error.
func (r *Repository) Reserve(ctx context.Context, req types.ReserveRequest) (*types.Reservation, error) {
	key := req.Key()
	if key == "" {
		return nil, types.ErrUsernameRequired
	}
	if req.OwnerID == uuid.Nil {
		return nil, types.ErrUserIDRequired
	}
	grace := req.GracePeriod
	if grace <= 0 {
		grace = types.DefaultGracePeriod
	}

	var out *types.Reservation
	err := r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		now := r.clock.Now()
		existing := new(Record)
		err := tx.NewSelect().Model(existing).Where("key = ?", key).Scan(ctx)
		found := err == nil
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return r.mapError(err)
		}

		if found {
			switch {
			case existing.Confirmed && existing.OwnerID == req.OwnerID:
				// Caller already owns the name; nothing to write.
				out = toDomain(existing)
				return nil
			case existing.Confirmed:
				return types.ErrUsernameTaken
			case existing.OwnerID == req.OwnerID:
				// Refresh the caller's own in-flight hold.
			case existing.ExpiresAt != nil && now.Before(*existing.ExpiresAt):
				return types.ErrUsernameTemporarilyReserved
			default:
				// Expired foreign hold; the row is reclaimable.
			}
		}

		expiresAt := now.Add(grace)
		rec := &Record{
			Key:         key,
			DisplayName: strings.TrimSpace(req.DisplayName),
			OwnerID:     req.OwnerID,
			TenantID:    req.Scope.TenantID,
			OrgID:       req.Scope.OrgID,
			ReservedAt:  now,
			Confirmed:   false,
			ExpiresAt:   &expiresAt,
			UpdatedAt:   now,
		}
		if found {
			rec.ID = existing.ID
			rec.CreatedAt = existing.CreatedAt
			if err := r.claimExisting(ctx, tx, existing, rec); err != nil {
				return err
			}
		} else {
			rec.ID = r.idGen.UUID()
			rec.CreatedAt = now
			if _, err := tx.NewInsert().Model(rec).Exec(ctx); err != nil {
				mapped := r.mapError(err)
				if repository.IsDuplicatedKey(mapped) {
					// Another claim won the insert race inside its own grace
					// window.
					return types.ErrUsernameTemporarilyReserved
				}
				return mapped
			}
		}

		if err := r.freePreviousKey(ctx, tx, req.OwnerID, key); err != nil {
			return err
		}
		if err := r.writeMirror(ctx, tx, req.OwnerID, rec.DisplayName, &now, false); err != nil {
			return err
		}

		out = toDomain(rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Confirm promotes the hold at key to permanent ownership, but only while the
// row still belongs to the caller. A row owned by someone else means the hold
// expired and was reclaimed between reserve and confirm; that is reported as
// ErrOwnershipDrift so the workflow can log it without unwinding the profile
// update that already succeeded.
func (r *Repository) Confirm(ctx context.Context, key string, ownerID uuid.UUID) (*types.Reservation, error) {
	key = types.NormalizeUsername(key)
	if key == "" {
		return nil, types.ErrUsernameRequired
	}
	if ownerID == uuid.Nil {
		return nil, types.ErrUserIDRequired
	}

	var out *types.Reservation
	err := r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		now := r.clock.Now()
		res, err := tx.NewUpdate().Model((*Record)(nil)).
			Set("confirmed = ?", true).
			Set("confirmed_at = ?", now).
			Set("expires_at = NULL").
			Set("updated_at = ?", now).
			Where("key = ?", key).
			Where("owner_id = ?", ownerID).
			Exec(ctx)
		if err != nil {
			return r.mapError(err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			exists, err := tx.NewSelect().Model((*Record)(nil)).
				Where("key = ?", key).
				Exists(ctx)
			if err != nil {
				return r.mapError(err)
			}
			if exists {
				return types.ErrOwnershipDrift
			}
			return types.ErrReservationNotFound
		}

		rec := new(Record)
		if err := tx.NewSelect().Model(rec).Where("key = ?", key).Scan(ctx); err != nil {
			return r.mapError(err)
		}
		if err := r.writeMirror(ctx, tx, ownerID, rec.DisplayName, &rec.ReservedAt, true); err != nil {
			return err
		}
		out = toDomain(rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Release drops the caller's own unconfirmed hold so a failed profile update
// frees the name immediately instead of waiting out the grace window. A hold
// that no longer exists, already expired away, or belongs to someone else is
// a no-op: expiry remains the backstop for callers that crash before
// releasing.
func (r *Repository) Release(ctx context.Context, key string, ownerID uuid.UUID) error {
	key = types.NormalizeUsername(key)
	if key == "" {
		return types.ErrUsernameRequired
	}
	if ownerID == uuid.Nil {
		return types.ErrUserIDRequired
	}
	return r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().Model((*Record)(nil)).
			Where("key = ?", key).
			Where("owner_id = ?", ownerID).
			Where("confirmed = ?", false).
			Exec(ctx)
		if err != nil {
			return r.mapError(err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return nil
		}
		// Clear the mirror only while it still points at the released name.
		if _, err := tx.NewUpdate().Table("user_profiles").
			Set("username = ?", "").
			Set("username_reserved_at = NULL").
			Set("username_confirmed = ?", false).
			Where("user_id = ?", ownerID).
			Where("lower(username) = ?", key).
			Exec(ctx); err != nil {
			return r.mapError(err)
		}
		return nil
	})
}

// SweepExpired garbage-collects abandoned holds. The delete re-checks both
// predicates at delete time, so a hold reclaimed between any earlier read and
// this statement is left alone.
func (r *Repository) SweepExpired(ctx context.Context) (int, error) {
	now := r.clock.Now()
	res, err := r.db.NewDelete().Model((*Record)(nil)).
		Where("confirmed = ?", false).
		Where("expires_at IS NOT NULL").
		Where("expires_at <= ?", now).
		Exec(ctx)
	if err != nil {
		return 0, r.mapError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

// GetReservation returns the reservation at key, or nil when none exists.
func (r *Repository) GetReservation(ctx context.Context, key string) (*types.Reservation, error) {
	key = types.NormalizeUsername(key)
	if key == "" {
		return nil, types.ErrUsernameRequired
	}
	rec, err := r.store.Get(ctx, selectKey(key))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return toDomain(rec), nil
}

// ListReservations returns paginated reservations for admin panels.
func (r *Repository) ListReservations(ctx context.Context, filter types.ReservationFilter) (types.ReservationPage, error) {
	pagination := normalizePagination(filter.Pagination, 50, 200)
	now := r.clock.Now()
	criteria := []repository.SelectCriteria{
		func(q *bun.SelectQuery) *bun.SelectQuery {
			if filter.Scope.TenantID != uuid.Nil {
				q = q.Where("tenant_id = ?", filter.Scope.TenantID)
			}
			if filter.Scope.OrgID != uuid.Nil {
				q = q.Where("org_id = ?", filter.Scope.OrgID)
			}
			if filter.OwnerID != uuid.Nil {
				q = q.Where("owner_id = ?", filter.OwnerID)
			}
			switch filter.Status {
			case types.ReservationStatusTaken:
				q = q.Where("confirmed = ?", true)
			case types.ReservationStatusHeld:
				q = q.Where("confirmed = ?", false).
					Where("expires_at > ?", now)
			}
			if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
				q = q.Where("key LIKE ?", "%"+strings.ToLower(keyword)+"%")
			}
			return q.OrderExpr("key ASC").
				Limit(pagination.Limit).
				Offset(pagination.Offset)
		},
	}
	rows, total, err := r.store.List(ctx, criteria...)
	if err != nil {
		return types.ReservationPage{}, err
	}
	page := types.ReservationPage{
		Reservations: make([]types.Reservation, 0, len(rows)),
		Total:        total,
		NextOffset:   pagination.Offset + len(rows),
	}
	for _, row := range rows {
		page.Reservations = append(page.Reservations, *toDomain(row))
	}
	page.HasMore = page.NextOffset < total
	return page, nil
}

// claimExisting overwrites a refreshable or reclaimable row with the caller's
// hold. The update re-checks owner, confirmation state, and row version at
// write time: under read-committed isolation a rival reclaim can commit
// between the decision-table select and this statement, and an unguarded
// update by primary key would silently overwrite the rival's hold. Zero rows
// affected means the row changed under us, so the caller lost the race.
func (r *Repository) claimExisting(ctx context.Context, idb bun.IDB, existing, rec *Record) error {
	res, err := idb.NewUpdate().Model(rec).
		Column("display_name", "owner_id", "tenant_id", "org_id",
			"reserved_at", "confirmed", "confirmed_at", "expires_at", "updated_at").
		WherePK().
		Where("owner_id = ?", existing.OwnerID).
		Where("confirmed = ?", false).
		Where("updated_at = ?", existing.UpdatedAt).
		Exec(ctx)
	if err != nil {
		return r.mapError(err)
	}
	if err := repository.SQLExpectedCount(res, 1); err != nil {
		return types.ErrUsernameTemporarilyReserved
	}
	return nil
}

// freePreviousKey deletes the caller's previous reservation when the profile
// mirror names a different key, so abandoning an old name makes it claimable
// in the same transaction. Deleting then recreating the same key would race
// against itself, hence the key inequality guard.
func (r *Repository) freePreviousKey(ctx context.Context, tx bun.Tx, ownerID uuid.UUID, newKey string) error {
	var previous string
	err := tx.NewSelect().Table("user_profiles").
		Column("username").
		Where("user_id = ?", ownerID).
		Scan(ctx, &previous)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return r.mapError(err)
	}
	previousKey := types.NormalizeUsername(previous)
	if previousKey == "" || previousKey == newKey {
		return nil
	}
	if _, err := tx.NewDelete().Model((*Record)(nil)).
		Where("key = ?", previousKey).
		Where("owner_id = ?", ownerID).
		Exec(ctx); err != nil {
		return r.mapError(err)
	}
	return nil
}

// writeMirror keeps the denormalized username columns on the profile row in
// agreement with the reservation record. A missing profile row is fine; the
// workflow upserts the profile before confirmation and Confirm re-syncs the
// mirror.
func (r *Repository) writeMirror(ctx context.Context, tx bun.Tx, ownerID uuid.UUID, displayName string, reservedAt *time.Time, confirmed bool) error {
	_, err := tx.NewUpdate().Table("user_profiles").
		Set("username = ?", displayName).
		Set("username_reserved_at = ?", reservedAt).
		Set("username_confirmed = ?", confirmed).
		Set("updated_at = ?", r.clock.Now()).
		Where("user_id = ?", ownerID).
		Exec(ctx)
	if err != nil {
		return r.mapError(err)
	}
	return nil
}

func (r *Repository) mapError(err error) error {
	if err == nil {
		return nil
	}
	return repository.MapDatabaseError(err, repository.DetectDriver(r.db))
}

func selectKey(key string) repository.SelectCriteria {
	return repository.SelectBy("key", "=", key)
}

func normalizePagination(p types.Pagination, def, max int) types.Pagination {
	if p.Limit <= 0 {
		p.Limit = def
	}
	if p.Limit > max {
		p.Limit = max
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

func toDomain(rec *Record) *types.Reservation {
	if rec == nil {
		return nil
	}
	out := &types.Reservation{
		Key:         rec.Key,
		DisplayName: rec.DisplayName,
		OwnerID:     rec.OwnerID,
		Scope: types.ScopeFilter{
			TenantID: rec.TenantID,
			OrgID:    rec.OrgID,
		},
		ReservedAt: rec.ReservedAt,
	}
	switch {
	case rec.Confirmed && rec.ConfirmedAt != nil:
		out.Phase = types.Confirmed{ConfirmedAt: *rec.ConfirmedAt}
	case rec.ExpiresAt != nil:
		out.Phase = types.Held{ExpiresAt: *rec.ExpiresAt}
	default:
		// Rows written by this repository always carry one of the two phase
		// timestamps; treat anything else as an immediately expired hold.
		out.Phase = types.Held{ExpiresAt: rec.ReservedAt}
	}
	return out
}
