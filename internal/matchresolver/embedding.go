package matchresolver

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/faceops/groupcore/internal/domain"
)

// PgxPool is the subset of *pgxpool.Pool the embedding resolver needs.
type PgxPool interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// EmbeddingResolver is the pgvector-backed fallback match path: when a face
// carries a raw embedding instead of pre-resolved matches (no upstream
// recognition engine configured, or the caller supplies embeddings
// directly), matches are found via cosine-distance nearest-neighbor search
// over the faces table, the same query shape the teacher's face repository
// used for 1:N embedding search.
type EmbeddingResolver struct {
	pool       PgxPool
	threshold  float64
	maxMatches int
	logger     *slog.Logger
}

// NewEmbeddingResolver creates a pgvector-backed Resolver.
func NewEmbeddingResolver(pool PgxPool, opts ...Option) *EmbeddingResolver {
	r := &EmbeddingResolver{
		pool:       pool,
		threshold:  DefaultThreshold,
		maxMatches: DefaultMaxMatches,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		// Option operates on *Resolver; reuse its fields via a throwaway
		// receiver so callers can share configuration helpers.
		tmp := &Resolver{threshold: r.threshold, maxMatches: r.maxMatches, logger: r.logger}
		opt(tmp)
		r.threshold, r.maxMatches, r.logger = tmp.threshold, tmp.maxMatches, tmp.logger
	}
	return r
}

// Resolve implements the same contract as Resolver.Resolve: pre-supplied
// matches win verbatim; otherwise nearest neighbors above threshold are
// returned, excluding the face itself. A face with no embedding and no
// pre-supplied matches resolves to an empty set.
func (r *EmbeddingResolver) Resolve(ctx context.Context, userID string, face domain.InputFace) []string {
	if len(face.MatchedFaceIDs) > 0 {
		return dedupeExcluding(face.MatchedFaceIDs, face.FaceID)
	}

	if len(face.Embedding) == 0 {
		return nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT face_id, 1 - (embedding <=> $1) AS similarity
		FROM faces
		WHERE user_id = $2 AND embedding IS NOT NULL AND face_id <> $3
		ORDER BY embedding <=> $1
		LIMIT $4`,
		pgvector.NewVector(face.Embedding), userID, face.FaceID, r.maxMatches)
	if err != nil {
		r.logger.WarnContext(ctx, "embedding search failed, treating as no matches",
			slog.String("user_id", userID),
			slog.String("face_id", face.FaceID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var faceID string
		var similarity float64
		if err := rows.Scan(&faceID, &similarity); err != nil {
			r.logger.WarnContext(ctx, "scan embedding match row failed", slog.String("error", err.Error()))
			continue
		}
		if similarity < r.threshold {
			continue
		}
		ids = append(ids, faceID)
	}

	return dedupeExcluding(ids, face.FaceID)
}

var _ interface {
	Resolve(ctx context.Context, userID string, face domain.InputFace) []string
} = (*EmbeddingResolver)(nil)
