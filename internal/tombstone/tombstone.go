// Package tombstone implements the Deletion Filter: dropping candidate
// faces whose bounding box matches a file's tombstoned (deleted) faces
// within tolerance. It has no external dependencies — bounding boxes are
// stable across re-indexing even though face IDs are not, so box comparison
// is the only reliable way to recognize "this is the same detection the
// user already removed."
package tombstone

import "github.com/faceops/groupcore/internal/domain"

// DefaultTolerance is the per-coordinate tolerance used when no
// configuration overrides it.
const DefaultTolerance = 0.05

// Filter drops candidates whose bounding box matches any box in deleted
// within tolerance. ExtractedFace always carries a box, so every candidate
// is compared; a zero box is compared like any other.
func Filter(candidates []domain.ExtractedFace, deleted []domain.DeletedFace, tolerance float64) []domain.ExtractedFace {
	if len(deleted) == 0 {
		return candidates
	}

	out := make([]domain.ExtractedFace, 0, len(candidates))
	for _, c := range candidates {
		if matchesAny(c.BoundingBox, deleted, tolerance) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// IsTombstoned reports whether box matches any deleted box within
// tolerance, so callers that hold faces in a shape other than
// domain.ExtractedFace (e.g. inbound batch input) can reuse the same
// comparison Filter applies internally.
func IsTombstoned(box domain.BoundingBox, deleted []domain.DeletedFace, tolerance float64) bool {
	return matchesAny(box, deleted, tolerance)
}

func matchesAny(box domain.BoundingBox, deleted []domain.DeletedFace, tolerance float64) bool {
	for _, d := range deleted {
		if closeEnough(box, d.BoundingBox, tolerance) {
			return true
		}
	}
	return false
}

func closeEnough(a, b domain.BoundingBox, tolerance float64) bool {
	return within(a.Left, b.Left, tolerance) &&
		within(a.Top, b.Top, tolerance) &&
		within(a.Width, b.Width, tolerance) &&
		within(a.Height, b.Height, tolerance)
}

func within(a, b, tolerance float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < tolerance
}
