package matchresolver

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faceops/groupcore/internal/domain"
)

func TestEmbeddingResolver_Resolve_PreSuppliedMatchesWin(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := NewEmbeddingResolver(mock, WithLogger(testLogger()))
	face := domain.InputFace{FaceID: "a", MatchedFaceIDs: []string{"b", "a"}, Embedding: []float32{0.1, 0.2}}

	got := r.Resolve(context.Background(), "u1", face)
	assert.Equal(t, []string{"b"}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmbeddingResolver_Resolve_NoEmbeddingNoMatches(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := NewEmbeddingResolver(mock, WithLogger(testLogger()))
	got := r.Resolve(context.Background(), "u1", domain.InputFace{FaceID: "a"})
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmbeddingResolver_Resolve_FiltersBelowThreshold(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"face_id", "similarity"}).
		AddRow("b", 0.92).
		AddRow("c", 0.5)

	mock.ExpectQuery(`SELECT face_id, 1 - \(embedding <=> \$1\) AS similarity`).
		WithArgs(pgxmock.AnyArg(), "u1", "a", DefaultMaxMatches).
		WillReturnRows(rows)

	r := NewEmbeddingResolver(mock, WithThreshold(0.85), WithLogger(testLogger()))
	got := r.Resolve(context.Background(), "u1", domain.InputFace{FaceID: "a", Embedding: []float32{0.1, 0.2}})

	assert.Equal(t, []string{"b"}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmbeddingResolver_Resolve_QueryErrorDowngradesToEmpty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT face_id, 1 - \(embedding <=> \$1\) AS similarity`).
		WithArgs(pgxmock.AnyArg(), "u1", "a", DefaultMaxMatches).
		WillReturnError(errors.New("connection lost"))

	r := NewEmbeddingResolver(mock, WithLogger(testLogger()))
	got := r.Resolve(context.Background(), "u1", domain.InputFace{FaceID: "a", Embedding: []float32{0.1, 0.2}})

	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
