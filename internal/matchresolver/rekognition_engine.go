package matchresolver

import (
	"context"
	"fmt"

	"github.com/faceops/groupcore/internal/provider/rekognition"
)

// RekognitionEngine adapts the teacher's Rekognition client wrapper to the
// Engine interface, searching an already-indexed face ID within the
// caller's collection.
type RekognitionEngine struct {
	client *rekognition.Client
}

// NewRekognitionEngine wraps an existing Rekognition client.
func NewRekognitionEngine(client *rekognition.Client) *RekognitionEngine {
	return &RekognitionEngine{client: client}
}

// SearchMatches implements Engine. It ensures the user's collection exists
// before searching it, so a user's very first indexed face doesn't fail
// against a collection nobody has provisioned yet.
func (e *RekognitionEngine) SearchMatches(ctx context.Context, collectionID, faceID string, threshold float64, maxMatches int) ([]Match, error) {
	if err := e.client.EnsureCollection(ctx, collectionID); err != nil {
		return nil, fmt.Errorf("ensure collection %s: %w", collectionID, err)
	}

	results, err := e.client.SearchFacesInCollection(ctx, collectionID, faceID, threshold, maxMatches)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		matches = append(matches, Match{FaceID: r.FaceID, Similarity: r.Similarity})
	}
	return matches, nil
}

var _ Engine = (*RekognitionEngine)(nil)
