// Package matchresolver implements the Match Resolver: given a face, it
// returns the set of matching face IDs, either from caller-supplied matches
// or by calling an external recognition engine.
package matchresolver

import (
	"context"
	"log/slog"

	"github.com/faceops/groupcore/internal/domain"
)

// DefaultThreshold and DefaultMaxMatches match spec's configuration
// defaults (§6): similarityThreshold=0.85, maxMatches=20.
const (
	DefaultThreshold  = 0.85
	DefaultMaxMatches = 20
)

// Match is one hit returned by an Engine.
type Match struct {
	FaceID     string
	Similarity float64
}

// Engine is the external recognition engine's search capability:
// searchMatches(collectionId, faceId) -> [faceId, similarity].
type Engine interface {
	SearchMatches(ctx context.Context, collectionID, faceID string, threshold float64, maxMatches int) ([]Match, error)
}

// Resolver implements the Match Resolver contract.
type Resolver struct {
	engine            Engine
	collectionPrefix  string
	threshold         float64
	maxMatches        int
	logger            *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithThreshold overrides the default similarity threshold.
func WithThreshold(threshold float64) Option {
	return func(r *Resolver) { r.threshold = threshold }
}

// WithMaxMatches overrides the default match cap.
func WithMaxMatches(max int) Option {
	return func(r *Resolver) { r.maxMatches = max }
}

// WithLogger attaches a logger for recognition-engine failures.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// New creates a Resolver. engine may be nil, in which case every face
// without pre-supplied matches resolves to an empty match set (a valid
// singleton), matching the "engine not configured" degenerate case.
func New(engine Engine, collectionPrefix string, opts ...Option) *Resolver {
	r := &Resolver{
		engine:           engine,
		collectionPrefix: collectionPrefix,
		threshold:        DefaultThreshold,
		maxMatches:       DefaultMaxMatches,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the match IDs for face, excluding its own ID. Engine
// errors are downgraded to an empty result, never surfaced as a failure —
// a face with no matches is handled correctly as a singleton group.
func (r *Resolver) Resolve(ctx context.Context, userID string, face domain.InputFace) []string {
	if len(face.MatchedFaceIDs) > 0 {
		return dedupeExcluding(face.MatchedFaceIDs, face.FaceID)
	}

	if r.engine == nil {
		return nil
	}

	collectionID := r.collectionPrefix + userID
	matches, err := r.engine.SearchMatches(ctx, collectionID, face.FaceID, r.threshold, r.maxMatches)
	if err != nil {
		r.logger.WarnContext(ctx, "recognition engine search failed, treating as no matches",
			slog.String("user_id", userID),
			slog.String("face_id", face.FaceID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.FaceID)
	}
	return dedupeExcluding(ids, face.FaceID)
}

func dedupeExcluding(ids []string, exclude string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || id == exclude {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
