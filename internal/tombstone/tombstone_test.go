package tombstone

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/faceops/groupcore/internal/domain"
)

func box(l, t, w, h float64) domain.BoundingBox {
	return domain.BoundingBox{Left: l, Top: t, Width: w, Height: h}
}

func TestFilter_NoTombstones(t *testing.T) {
	candidates := []domain.ExtractedFace{{FaceID: "f1", BoundingBox: box(0.1, 0.1, 0.2, 0.2)}}
	out := Filter(candidates, nil, DefaultTolerance)
	assert.Equal(t, candidates, out)
}

func TestFilter_DropsWithinTolerance(t *testing.T) {
	candidates := []domain.ExtractedFace{
		{FaceID: "f1", BoundingBox: box(0.10, 0.10, 0.20, 0.20)},
		{FaceID: "f2", BoundingBox: box(0.50, 0.50, 0.20, 0.20)},
	}
	deleted := []domain.DeletedFace{{BoundingBox: box(0.101, 0.099, 0.201, 0.199)}}

	out := Filter(candidates, deleted, DefaultTolerance)

	assert.Len(t, out, 1)
	assert.Equal(t, "f2", out[0].FaceID)
}

func TestFilter_KeepsOutsideTolerance(t *testing.T) {
	candidates := []domain.ExtractedFace{{FaceID: "f1", BoundingBox: box(0.10, 0.10, 0.20, 0.20)}}
	deleted := []domain.DeletedFace{{BoundingBox: box(0.20, 0.20, 0.20, 0.20)}}

	out := Filter(candidates, deleted, DefaultTolerance)

	assert.Len(t, out, 1)
}

func TestFilter_BoundaryIsExclusive(t *testing.T) {
	candidates := []domain.ExtractedFace{{FaceID: "f1", BoundingBox: box(0.0, 0.0, 0.0, 0.0)}}
	deleted := []domain.DeletedFace{{BoundingBox: box(0.05, 0.0, 0.0, 0.0)}}

	out := Filter(candidates, deleted, DefaultTolerance)

	assert.Len(t, out, 1, "difference equal to tolerance must not match")
}
