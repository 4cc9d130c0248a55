//go:build integration

package groupstore_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/faceops/groupcore/internal/database"
	"github.com/faceops/groupcore/internal/domain"
	"github.com/faceops/groupcore/internal/groupstore"
)

func setupPgStoreIntegrationTest(t *testing.T) (*groupstore.PgStore, *pgxpool.Pool, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "groupcore",
			"POSTGRES_PASSWORD": "groupcore",
			"POSTGRES_DB":       "groupcore_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://groupcore:groupcore@%s:%s/groupcore_test?sslmode=disable", host, port.Port())

	migrationDB, err := sql.Open("pgx", dsn)
	require.NoError(t, err)

	migrator, err := database.NewMigrator(migrationDB, "groupcore_test")
	require.NoError(t, err)
	require.NoError(t, migrator.Up())
	require.NoError(t, migrator.Close())
	require.NoError(t, migrationDB.Close())

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return groupstore.NewPgStore(pool), pool, cleanup
}

func TestPgStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	store, pool, cleanup := setupPgStoreIntegrationTest(t)
	defer cleanup()

	ctx := context.Background()
	userID := "user-integration-1"

	t.Run("put and get group round-trips", func(t *testing.T) {
		g := &domain.Group{
			GroupID:      "group-1",
			UserID:       userID,
			FaceIDs:      []string{"face-1", "face-2"},
			FaceCount:    2,
			LeaderFaceID: "face-1",
			Status:       domain.StatusUnreviewed,
		}
		require.NoError(t, store.PutGroup(ctx, g))

		got, err := store.GetGroup(ctx, userID, "group-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, []string{"face-1", "face-2"}, got.FaceIDs)
		assert.Equal(t, "face-1", got.LeaderFaceID)
		assert.False(t, got.CreatedAt.IsZero())
	})

	t.Run("get group not found returns nil, nil", func(t *testing.T) {
		got, err := store.GetGroup(ctx, userID, "no-such-group")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("list groups orders by updated_at desc", func(t *testing.T) {
		older := &domain.Group{GroupID: "group-older", UserID: userID, FaceIDs: []string{"f-a"}, FaceCount: 1}
		require.NoError(t, store.PutGroup(ctx, older))
		time.Sleep(10 * time.Millisecond)
		newer := &domain.Group{GroupID: "group-newer", UserID: userID, FaceIDs: []string{"f-b"}, FaceCount: 1}
		require.NoError(t, store.PutGroup(ctx, newer))

		groups, err := store.ListGroups(ctx, userID)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(groups), 2)
		assert.Equal(t, "group-newer", groups[0].GroupID)
	})

	t.Run("find groups containing any returns each matching group once", func(t *testing.T) {
		groups, err := store.FindGroupsContainingAny(ctx, userID, []string{"face-1", "face-2"}, "")
		require.NoError(t, err)
		require.Len(t, groups, 1)
		assert.Equal(t, "group-1", groups[0].GroupID)
	})

	t.Run("find groups containing any with empty input returns nil", func(t *testing.T) {
		groups, err := store.FindGroupsContainingAny(ctx, userID, nil, "")
		require.NoError(t, err)
		assert.Nil(t, groups)
	})

	t.Run("put and get face round-trips", func(t *testing.T) {
		f := &domain.Face{
			FaceID:      "face-1",
			UserID:      userID,
			GroupID:     "group-1",
			FileID:      "file-1",
			BoundingBox: domain.BoundingBox{Left: 0.1, Top: 0.2, Width: 0.3, Height: 0.4},
			Confidence:  0.98,
		}
		require.NoError(t, store.PutFace(ctx, f))

		got, err := store.GetFace(ctx, userID, "face-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "group-1", got.GroupID)
		assert.InDelta(t, 0.3, got.BoundingBox.Width, 1e-9)
	})

	t.Run("delete face removes it", func(t *testing.T) {
		f := &domain.Face{FaceID: "face-to-delete", UserID: userID, GroupID: "group-1", FileID: "file-1"}
		require.NoError(t, store.PutFace(ctx, f))
		require.NoError(t, store.DeleteFace(ctx, userID, "face-to-delete"))

		got, err := store.GetFace(ctx, userID, "face-to-delete")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("list user ids includes the test user", func(t *testing.T) {
		ids, err := store.ListUserIDs(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, userID)
	})

	t.Run("update file mapping merges into existing jsonb", func(t *testing.T) {
		_, err := pool.Exec(ctx, `INSERT INTO files (user_id, file_id, url) VALUES ($1, $2, $3)`, userID, "file-1", "https://example.com/file-1.jpg")
		require.NoError(t, err)

		require.NoError(t, store.UpdateFileMapping(ctx, userID, "file-1", map[string]string{"face-1": "group-1"}, time.Now().UTC()))

		f, err := store.GetFile(ctx, userID, "file-1")
		require.NoError(t, err)
		require.NotNil(t, f)
		assert.Equal(t, "group-1", f.FaceGroupMapping["face-1"])
	})
}
