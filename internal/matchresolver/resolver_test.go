package matchresolver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/faceops/groupcore/internal/domain"
)

type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) SearchMatches(ctx context.Context, collectionID, faceID string, threshold float64, maxMatches int) ([]Match, error) {
	args := m.Called(ctx, collectionID, faceID, threshold, maxMatches)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Match), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResolver_Resolve_PreSuppliedMatchesWin(t *testing.T) {
	engine := new(MockEngine)
	r := New(engine, "face_coll_", WithLogger(testLogger()))

	face := domain.InputFace{FaceID: "a", MatchedFaceIDs: []string{"b", "c", "a", "b"}}
	got := r.Resolve(context.Background(), "u1", face)

	assert.Equal(t, []string{"b", "c"}, got)
	engine.AssertNotCalled(t, "SearchMatches")
}

func TestResolver_Resolve_NilEngine(t *testing.T) {
	r := New(nil, "face_coll_")
	got := r.Resolve(context.Background(), "u1", domain.InputFace{FaceID: "a"})
	assert.Nil(t, got)
}

func TestResolver_Resolve_CallsEngineWithCollectionAndExcludesSelf(t *testing.T) {
	engine := new(MockEngine)
	r := New(engine, "face_coll_", WithThreshold(0.9), WithMaxMatches(5), WithLogger(testLogger()))

	engine.On("SearchMatches", mock.Anything, "face_coll_u1", "a", 0.9, 5).
		Return([]Match{{FaceID: "a", Similarity: 1.0}, {FaceID: "b", Similarity: 0.95}}, nil)

	got := r.Resolve(context.Background(), "u1", domain.InputFace{FaceID: "a"})
	assert.Equal(t, []string{"b"}, got)
	engine.AssertExpectations(t)
}

func TestResolver_Resolve_EngineErrorDowngradesToEmpty(t *testing.T) {
	engine := new(MockEngine)
	r := New(engine, "face_coll_", WithLogger(testLogger()))

	engine.On("SearchMatches", mock.Anything, "face_coll_u1", "a", DefaultThreshold, DefaultMaxMatches).
		Return(nil, errors.New("engine unavailable"))

	got := r.Resolve(context.Background(), "u1", domain.InputFace{FaceID: "a"})
	assert.Nil(t, got)
	engine.AssertExpectations(t)
}

func TestDedupeExcluding(t *testing.T) {
	got := dedupeExcluding([]string{"a", "", "b", "a", "c"}, "c")
	assert.Equal(t, []string{"a", "b"}, got)
}
