package groupengine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faceops/groupcore/internal/domain"
	"github.com/faceops/groupcore/internal/groupstore"
	"github.com/faceops/groupcore/internal/matchresolver"
)

type stubProber struct{ reachable bool }

func (p stubProber) Reachable(context.Context, string) bool { return p.reachable }

func box(l, t, w, h float64) domain.RawBoundingBox {
	return domain.RawBoundingBox{Left: &l, Top: &t, Width: &w, Height: &h}
}

func newTestEngine(store groupstore.Store) *Engine {
	resolver := matchresolver.New(nil, "face_coll_")
	return New(store, resolver, stubProber{reachable: true})
}

func seedFile(t *testing.T, store *groupstore.MemStore, userID, fileID string) {
	t.Helper()
	store.SeedFile(&domain.File{FileID: fileID, UserID: userID, URL: "https://images.example/" + fileID})
}

// S1 — Chain merge.
func TestProcessBatch_ChainMerge(t *testing.T) {
	store := groupstore.NewMemStore()
	engine := newTestEngine(store)
	ctx := context.Background()
	const user = "u1"

	seedFile(t, store, user, "fileA")
	_, err := engine.ProcessBatch(ctx, user, "fileA", []domain.InputFace{
		{FaceID: "A", BoundingBox: box(0.1, 0.1, 0.2, 0.2)},
	}, "")
	require.NoError(t, err)

	seedFile(t, store, user, "fileB")
	_, err = engine.ProcessBatch(ctx, user, "fileB", []domain.InputFace{
		{FaceID: "B", BoundingBox: box(0.3, 0.3, 0.2, 0.2), MatchedFaceIDs: []string{"A"}},
	}, "")
	require.NoError(t, err)

	seedFile(t, store, user, "fileC")
	result, err := engine.ProcessBatch(ctx, user, "fileC", []domain.InputFace{
		{FaceID: "C", BoundingBox: box(0.5, 0.5, 0.2, 0.2), MatchedFaceIDs: []string{"B"}},
	}, "")
	require.NoError(t, err)

	require.Len(t, result.Groups, 1)
	g := result.Groups[0]
	assert.Equal(t, 3, g.FaceCount)
	assert.ElementsMatch(t, []string{"A", "B", "C"}, g.FaceIDs)
	assert.ElementsMatch(t, []string{"fileA", "fileB", "fileC"}, g.FileIDs)

	groups, err := store.ListGroups(ctx, user)
	require.NoError(t, err)
	require.Len(t, groups, 1)
}

// S2 — Bridge merge.
func TestProcessBatch_BridgeMerge(t *testing.T) {
	store := groupstore.NewMemStore()
	engine := newTestEngine(store)
	ctx := context.Background()
	const user = "u1"

	seedFile(t, store, user, "fileA")
	_, err := engine.ProcessBatch(ctx, user, "fileA", []domain.InputFace{
		{FaceID: "A", BoundingBox: box(0.1, 0.1, 0.1, 0.1)},
	}, "")
	require.NoError(t, err)

	seedFile(t, store, user, "fileB")
	_, err = engine.ProcessBatch(ctx, user, "fileB", []domain.InputFace{
		{FaceID: "B", BoundingBox: box(0.2, 0.1, 0.1, 0.1), MatchedFaceIDs: []string{"A"}},
	}, "")
	require.NoError(t, err)

	seedFile(t, store, user, "fileC")
	_, err = engine.ProcessBatch(ctx, user, "fileC", []domain.InputFace{
		{FaceID: "C", BoundingBox: box(0.6, 0.6, 0.1, 0.1)},
	}, "")
	require.NoError(t, err)

	seedFile(t, store, user, "fileD")
	_, err = engine.ProcessBatch(ctx, user, "fileD", []domain.InputFace{
		{FaceID: "D", BoundingBox: box(0.7, 0.6, 0.1, 0.1), MatchedFaceIDs: []string{"C"}},
	}, "")
	require.NoError(t, err)

	groups, err := store.ListGroups(ctx, user)
	require.NoError(t, err)
	require.Len(t, groups, 2, "two separate groups before the bridge")

	seedFile(t, store, user, "fileE")
	result, err := engine.ProcessBatch(ctx, user, "fileE", []domain.InputFace{
		{FaceID: "E", BoundingBox: box(0.9, 0.9, 0.1, 0.1), MatchedFaceIDs: []string{"B", "C"}},
	}, "")
	require.NoError(t, err)

	require.Len(t, result.Groups, 1)
	bridged := result.Groups[0]
	assert.ElementsMatch(t, []string{"A", "B", "C", "D", "E"}, bridged.FaceIDs)
	assert.Len(t, bridged.MergedFrom, 1)

	groups, err = store.ListGroups(ctx, user)
	require.NoError(t, err)
	require.Len(t, groups, 1, "bridge collapses both groups into one")
}

// S3 — Tombstone.
func TestProcessBatch_Tombstone(t *testing.T) {
	store := groupstore.NewMemStore()
	engine := newTestEngine(store)
	ctx := context.Background()
	const user = "u1"

	seedFile(t, store, user, "fileF")
	faces := []domain.InputFace{
		{FaceID: "F1", BoundingBox: box(0.10, 0.10, 0.20, 0.20)},
		{FaceID: "F2", BoundingBox: box(0.60, 0.60, 0.20, 0.20)},
	}
	first, err := engine.ProcessBatch(ctx, user, "fileF", faces, "")
	require.NoError(t, err)
	assert.Equal(t, 2, first.ProcessedCount)

	store.SeedFile(&domain.File{
		FileID: "fileF", UserID: user, URL: "https://images.example/fileF",
		DeletedFaces: []domain.DeletedFace{{BoundingBox: domain.BoundingBox{Left: 0.101, Top: 0.099, Width: 0.201, Height: 0.199}}},
	})

	second, err := engine.ProcessBatch(ctx, user, "fileF", faces, "")
	require.NoError(t, err)
	assert.Equal(t, 1, second.ProcessedCount, "F1 is filtered by the tombstone, only F2 is processed again")

	for _, g := range second.Groups {
		assert.NotContains(t, g.FaceIDs, "F1")
	}
}

// Empty batch falls back to the file's upstream-recorded ExtractedFaces,
// still subject to the tombstone filter.
func TestProcessBatch_FallsBackToExtractedFaces(t *testing.T) {
	store := groupstore.NewMemStore()
	engine := newTestEngine(store)
	ctx := context.Background()
	const user = "u1"

	store.SeedFile(&domain.File{
		FileID: "fileG", UserID: user, URL: "https://images.example/fileG",
		ExtractedFaces: []domain.ExtractedFace{
			{FaceID: "G1", BoundingBox: domain.BoundingBox{Left: 0.1, Top: 0.1, Width: 0.2, Height: 0.2}},
			{FaceID: "G2", BoundingBox: domain.BoundingBox{Left: 0.6, Top: 0.6, Width: 0.2, Height: 0.2}},
		},
		DeletedFaces: []domain.DeletedFace{
			{BoundingBox: domain.BoundingBox{Left: 0.101, Top: 0.099, Width: 0.201, Height: 0.199}},
		},
	})

	result, err := engine.ProcessBatch(ctx, user, "fileG", nil, "")
	require.NoError(t, err)
	assert.Equal(t, 1, result.ProcessedCount, "G1 matches a tombstoned box and is dropped before processing")

	require.Len(t, result.Groups, 1)
	assert.Equal(t, []string{"G2"}, result.Groups[0].FaceIDs)
}

// S4 — Unreachable image.
func TestProcessBatch_UnreachableImage(t *testing.T) {
	store := groupstore.NewMemStore()
	resolver := matchresolver.New(nil, "face_coll_")
	engine := New(store, resolver, stubProber{reachable: false})
	ctx := context.Background()
	const user = "u1"

	seedFile(t, store, user, "fileG")
	result, err := engine.ProcessBatch(ctx, user, "fileG", []domain.InputFace{
		{FaceID: "G1", BoundingBox: box(0.1, 0.1, 0.1, 0.1)},
		{FaceID: "G2", BoundingBox: box(0.3, 0.3, 0.1, 0.1)},
	}, "")
	require.NoError(t, err)

	assert.Equal(t, 0, result.ProcessedCount)
	assert.Empty(t, result.Groups)

	face, err := store.GetFace(ctx, user, "G1")
	require.NoError(t, err)
	assert.Nil(t, face)
}

// S5 — Interview scoping.
func TestProcessBatch_InterviewScoping(t *testing.T) {
	store := groupstore.NewMemStore()
	engine := newTestEngine(store)
	ctx := context.Background()
	const user = "u1"

	seedFile(t, store, user, "fileA")
	_, err := engine.ProcessBatch(ctx, user, "fileA", []domain.InputFace{
		{FaceID: "A", BoundingBox: box(0.1, 0.1, 0.1, 0.1)},
	}, "X")
	require.NoError(t, err)

	seedFile(t, store, user, "fileB")
	result, err := engine.ProcessBatch(ctx, user, "fileB", []domain.InputFace{
		{FaceID: "B", BoundingBox: box(0.3, 0.3, 0.1, 0.1), MatchedFaceIDs: []string{"A"}},
	}, "Y")
	require.NoError(t, err)

	require.Len(t, result.Groups, 1)
	assert.Equal(t, []string{"B"}, result.Groups[0].FaceIDs, "A sits in a different scope and is not considered")

	groups, err := store.ListGroups(ctx, user)
	require.NoError(t, err)
	assert.Len(t, groups, 2)
}

// S6 — Leader after removal.
func TestReassignLeader_AfterRemoval(t *testing.T) {
	store := groupstore.NewMemStore()
	engine := newTestEngine(store)
	ctx := context.Background()
	const user = "u1"

	now := time.Now()
	for _, f := range []struct{ id, file string }{{"A", "f1"}, {"B", "f2"}, {"C", "f3"}} {
		require.NoError(t, store.PutFace(ctx, &domain.Face{
			FaceID: f.id, UserID: user, GroupID: "g1", FileID: f.file,
			BoundingBox: domain.BoundingBox{Left: 0.1, Top: 0.1, Width: 0.1, Height: 0.1},
		}))
	}

	g := &domain.Group{
		GroupID: "g1", UserID: user, FaceIDs: []string{"A", "B", "C"}, FaceCount: 3,
		LeaderFaceID: "A", CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, store.PutGroup(ctx, g))

	wasLeader := g.RemoveFace("A")
	require.True(t, wasLeader)
	require.NoError(t, engine.ReassignLeader(ctx, user, g))
	require.NoError(t, store.PutGroup(ctx, g))

	assert.Equal(t, 2, g.FaceCount)
	assert.Contains(t, []string{"B", "C"}, g.LeaderFaceID)
	if g.LeaderFaceID == "B" {
		assert.Equal(t, "f2", g.LeaderFaceData.FileID)
	} else {
		assert.Equal(t, "f3", g.LeaderFaceData.FileID)
	}
}
