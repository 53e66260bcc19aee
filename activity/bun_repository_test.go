package activity

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/ring-platform/go-usernames/pkg/types"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

func TestRepository_LogAndList(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	applyDDL(t, db)

	repo, err := NewRepository(RepositoryConfig{DB: db})
	require.NoError(t, err)

	userID := uuid.New()
	actorID := uuid.New()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, verb := range []string{VerbUsernameReserved, VerbUsernameConfirmed, VerbProfileUpdated} {
		err := repo.Log(ctx, types.ActivityRecord{
			UserID:     userID,
			ActorID:    actorID,
			Verb:       verb,
			ObjectType: "username",
			ObjectID:   "alice",
			OccurredAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	page, err := repo.ListActivity(ctx, types.ActivityFilter{
		Actor:  types.ActorRef{ID: actorID},
		UserID: userID,
	})
	require.NoError(t, err)
	require.Len(t, page.Records, 3)
	require.Equal(t, VerbProfileUpdated, page.Records[0].Verb, "feed is newest first")

	page, err = repo.ListActivity(ctx, types.ActivityFilter{
		Actor: types.ActorRef{ID: actorID},
		Verbs: []string{VerbUsernameConfirmed},
	})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	require.Equal(t, "alice", page.Records[0].ObjectID)
}

func TestRepository_ListActivityPagination(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	applyDDL(t, db)

	repo, err := NewRepository(RepositoryConfig{DB: db})
	require.NoError(t, err)

	userID := uuid.New()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		err := repo.Log(ctx, types.ActivityRecord{
			UserID:     userID,
			ActorID:    userID,
			Verb:       VerbUsernameReserved,
			OccurredAt: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	page, err := repo.ListActivity(ctx, types.ActivityFilter{
		Actor:      types.ActorRef{ID: userID},
		Pagination: types.Pagination{Limit: 2},
	})
	require.NoError(t, err)
	require.Len(t, page.Records, 2)
	require.Equal(t, 5, page.Total)
	require.True(t, page.HasMore)
	require.Equal(t, 2, page.NextOffset)
}

func TestSanitizeRecord_MasksDenylistedFields(t *testing.T) {
	record := types.ActivityRecord{
		Verb: VerbUsernameReserved,
		Data: map[string]any{
			"username": "alice",
			"secret":   "hunter2",
		},
	}
	out := SanitizeRecord(DefaultMasker(), record)
	require.Equal(t, "alice", out.Data["username"])
	require.NotEqual(t, "hunter2", out.Data["secret"])
}

func newTestDB(t *testing.T) *bun.DB {
	sqldb, err := sql.Open("sqlite3", ":memory:?cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		_ = db.Close()
		_ = sqldb.Close()
	})
	return db
}

func applyDDL(t *testing.T, db *bun.DB) {
	content, err := os.ReadFile("../data/sql/migrations/sqlite/00003_username_activity.up.sql")
	require.NoError(t, err)
	for _, stmt := range splitStatements(string(content)) {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
}

func splitStatements(sql string) []string {
	lines := strings.Split(sql, "\n")
	var builder strings.Builder
	var statements []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		builder.WriteString(line)
		if strings.HasSuffix(line, ";") {
			statements = append(statements, strings.TrimSuffix(builder.String(), ";"))
			builder.Reset()
		} else {
			builder.WriteString(" ")
		}
	}
	if builder.Len() > 0 {
		statements = append(statements, builder.String())
	}
	return statements
}
