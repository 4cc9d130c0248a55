// Package groupengine implements the Group Engine: the core transitive-
// closure algorithm that keeps face IDs grouped into persistent equivalence
// classes as matches stream in, batch by batch. It is expressed as plain
// union-find over documents — group docs are canonical representatives, face
// docs are the "find" map — with no in-memory parent pointers and no
// multi-document transactions; see Merge for the convergence rule this
// relies on.
package groupengine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/faceops/groupcore/internal/audit"
	"github.com/faceops/groupcore/internal/domain"
	"github.com/faceops/groupcore/internal/groupstore"
	"github.com/faceops/groupcore/internal/tombstone"
)

// MatchResolver returns the set of face IDs a face matches, excluding
// itself. Both matchresolver.Resolver (Rekognition-backed) and
// matchresolver.EmbeddingResolver (pgvector-backed) satisfy this shape.
type MatchResolver interface {
	Resolve(ctx context.Context, userID string, face domain.InputFace) []string
}

// Prober checks whether a file's source image is currently reachable.
type Prober interface {
	Reachable(ctx context.Context, url string) bool
}

// BoundingBoxTolerance is the default per-coordinate tombstone tolerance.
const BoundingBoxTolerance = tombstone.DefaultTolerance

// Engine wires the store adapter, match resolver, deletion filter, and
// reachability probe into the grouping algorithm.
type Engine struct {
	store      groupstore.Store
	resolver   MatchResolver
	prober     Prober
	tolerance  float64
	auditLog   audit.Logger
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithTolerance overrides the tombstone bounding-box tolerance.
func WithTolerance(tolerance float64) Option {
	return func(e *Engine) { e.tolerance = tolerance }
}

// WithAuditLogger attaches an audit trail for group lifecycle events.
func WithAuditLogger(a audit.Logger) Option {
	return func(e *Engine) { e.auditLog = a }
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New creates an Engine.
func New(store groupstore.Store, resolver MatchResolver, prober Prober, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		resolver:  resolver,
		prober:    prober,
		tolerance: BoundingBoxTolerance,
		auditLog:  &audit.NoOpLogger{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BatchResult is processBatch's return value.
type BatchResult struct {
	ProcessedCount int
	Groups         []*domain.Group
}

// ProcessBatch runs the grouping algorithm over one file's worth of faces.
//
// 1. Source validation — the file must exist, carry a URL, and that URL
//    must be reachable; otherwise the batch is skipped, not failed.
// 2. Tombstone filter — faces whose box matches a deleted box are dropped.
// 3. Per-face processing, in input order, branching on how many existing
//    groups the face's matches land in (create / join / merge).
// 4. The accumulated faceId->groupId map is written back onto the file.
// 5. The distinct set of touched groups is returned.
func (e *Engine) ProcessBatch(ctx context.Context, userID, fileID string, faces []domain.InputFace, interviewID string) (*BatchResult, error) {
	file, err := e.store.GetFile(ctx, userID, fileID)
	if err != nil {
		return nil, fmt.Errorf("groupengine: process batch: get file %s: %w", fileID, err)
	}
	if file == nil || file.URL == "" || !e.prober.Reachable(ctx, file.URL) {
		e.logger.WarnContext(ctx, "source image unreachable, skipping batch",
			slog.String("user_id", userID), slog.String("file_id", fileID))
		return &BatchResult{}, nil
	}

	if len(faces) == 0 {
		faces = inputFacesFromExtracted(tombstone.Filter(file.ExtractedFaces, file.DeletedFaces, e.tolerance))
	}

	survivors := filterTombstoned(faces, file.DeletedFaces, e.tolerance)
	if len(survivors) == 0 {
		return &BatchResult{}, nil
	}

	mapping := make(map[string]string, len(survivors))
	touched := make(map[string]*domain.Group)

	for _, face := range survivors {
		if !face.BoundingBox.Complete() {
			e.logger.WarnContext(ctx, "face missing bounding box, skipping",
				slog.String("user_id", userID), slog.String("face_id", face.FaceID))
			continue
		}
		box := face.BoundingBox.Resolve()

		matches := e.resolver.Resolve(ctx, userID, face)

		// Include the face's own id in the lookup so re-processing a face
		// that already points to a valid group lands that group in
		// candidates instead of falling into the create-new-group branch
		// (processBatch must be a no-op on an already-grouped face).
		lookup := append(append([]string{}, matches...), face.FaceID)
		candidates, err := e.store.FindGroupsContainingAny(ctx, userID, lookup, interviewID)
		if err != nil {
			return nil, fmt.Errorf("groupengine: process batch: find groups for face %s: %w", face.FaceID, err)
		}

		group, err := e.assignFace(ctx, userID, fileID, face, box, candidates, interviewID)
		if err != nil {
			return nil, err
		}

		mapping[face.FaceID] = group.GroupID
		touched[group.GroupID] = group
	}

	if len(mapping) > 0 {
		if err := e.store.UpdateFileMapping(ctx, userID, fileID, mapping, time.Now()); err != nil {
			return nil, fmt.Errorf("groupengine: process batch: update file mapping: %w", err)
		}
	}

	groups := make([]*domain.Group, 0, len(touched))
	for _, g := range touched {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].GroupID < groups[j].GroupID })

	e.auditLog.Log(ctx, audit.Event{
		UserID:      userID,
		EventType:   audit.EventBatchProcessed,
		InterviewID: interviewID,
		Success:     true,
		Metadata:    map[string]string{"file_id": fileID, "processed": fmt.Sprintf("%d", len(mapping))},
	})

	return &BatchResult{ProcessedCount: len(mapping), Groups: groups}, nil
}

// assignFace implements processBatch step 3.4: branch on how many existing
// groups the face's matches land in, and persist both sides (face doc and
// group doc) of the chosen outcome.
func (e *Engine) assignFace(ctx context.Context, userID, fileID string, face domain.InputFace, box domain.BoundingBox, candidates []*domain.Group, interviewID string) (*domain.Group, error) {
	var target *domain.Group

	switch len(candidates) {
	case 0:
		now := time.Now()
		target = &domain.Group{
			GroupID:      uuid.NewString(),
			UserID:       userID,
			InterviewID:  interviewID,
			FaceIDs:      []string{face.FaceID},
			FileIDs:      []string{fileID},
			FaceCount:    1,
			LeaderFaceID: face.FaceID,
			LeaderFaceData: domain.LeaderFaceData{
				FileID:      fileID,
				BoundingBox: box,
			},
			Status:    domain.StatusUnreviewed,
			CreatedAt: now,
			UpdatedAt: now,
		}
		e.auditLog.Log(ctx, audit.Event{UserID: userID, EventType: audit.EventGroupCreated, GroupID: target.GroupID, FaceID: face.FaceID, Success: true})
	case 1:
		target = candidates[0]
		target.AddFace(face.FaceID)
		target.AddFile(fileID)
		target.UpdatedAt = time.Now()
	default:
		primary, err := e.mergeAll(ctx, userID, candidates)
		if err != nil {
			return nil, err
		}
		target = primary
		target.AddFace(face.FaceID)
		target.AddFile(fileID)
		target.UpdatedAt = time.Now()
	}

	if err := e.store.PutGroup(ctx, target); err != nil {
		return nil, fmt.Errorf("groupengine: put group %s: %w", target.GroupID, err)
	}

	faceDoc := &domain.Face{
		FaceID:      face.FaceID,
		UserID:      userID,
		GroupID:     target.GroupID,
		FileID:      fileID,
		BoundingBox: box,
		Confidence:  face.Confidence,
		Embedding:   face.Embedding,
		UpdatedAt:   time.Now(),
	}
	if existing, err := e.store.GetFace(ctx, userID, face.FaceID); err == nil && existing != nil {
		faceDoc.CreatedAt = existing.CreatedAt
	} else {
		faceDoc.CreatedAt = faceDoc.UpdatedAt
	}
	if err := e.store.PutFace(ctx, faceDoc); err != nil {
		return nil, fmt.Errorf("groupengine: put face %s: %w", face.FaceID, err)
	}

	return target, nil
}

// mergeAll picks the deterministic primary (earliest createdAt, tie-broken
// by groupId) out of candidates and folds every other group into it one at
// a time, returning the surviving primary.
func (e *Engine) mergeAll(ctx context.Context, userID string, candidates []*domain.Group) (*domain.Group, error) {
	ordered := make([]*domain.Group, len(candidates))
	copy(ordered, candidates)
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].GroupID < ordered[j].GroupID
	})

	primary := ordered[0]
	for _, secondary := range ordered[1:] {
		if err := e.Merge(ctx, userID, primary, secondary); err != nil {
			return nil, err
		}
	}
	return primary, nil
}

// Merge folds secondary into primary in place and deletes secondary. It is
// exported so manual operations (mergeGroups) reuse the same primitive.
//
// Ordering matters: every secondary face doc is repointed (step 3) before
// the secondary group doc is deleted (step 5). If a crash happens between
// the two, the secondary group still exists but none of its faces reference
// it any longer — the face doc is the source of truth for membership, so a
// reconciler (or the next read of any of those faces) converges on primary.
func (e *Engine) Merge(ctx context.Context, userID string, primary, secondary *domain.Group) error {
	if primary.GroupID == secondary.GroupID {
		return nil
	}

	for _, faceID := range secondary.FaceIDs {
		primary.AddFace(faceID)
	}
	for _, fileID := range secondary.FileIDs {
		primary.AddFile(fileID)
	}

	for _, faceID := range secondary.FaceIDs {
		faceDoc, err := e.store.GetFace(ctx, userID, faceID)
		if err != nil {
			e.logger.WarnContext(ctx, "merge: could not load secondary face, reconciler will repair",
				slog.String("user_id", userID), slog.String("face_id", faceID), slog.String("error", err.Error()))
			continue
		}
		if faceDoc == nil {
			continue
		}
		faceDoc.GroupID = primary.GroupID
		faceDoc.UpdatedAt = time.Now()
		if err := e.store.PutFace(ctx, faceDoc); err != nil {
			e.logger.WarnContext(ctx, "merge: could not repoint secondary face, reconciler will repair",
				slog.String("user_id", userID), slog.String("face_id", faceID), slog.String("error", err.Error()))
		}
	}

	primary.MergedFrom = append(primary.MergedFrom, secondary.GroupID)
	primary.UpdatedAt = time.Now()
	if err := e.store.PutGroup(ctx, primary); err != nil {
		return fmt.Errorf("groupengine: merge: put primary %s: %w", primary.GroupID, err)
	}

	if err := e.store.DeleteGroup(ctx, userID, secondary.GroupID); err != nil {
		return fmt.Errorf("groupengine: merge: delete secondary %s: %w", secondary.GroupID, err)
	}

	e.auditLog.Log(ctx, audit.Event{
		UserID: userID, EventType: audit.EventGroupMerged, GroupID: primary.GroupID, Success: true,
		Metadata: map[string]string{"absorbed": secondary.GroupID},
	})
	return nil
}

// ReassignLeader picks a remaining member as the new leader (conventionally
// faceIds[0]) and refreshes leaderFaceData from that member's face doc.
// On an empty group it clears the leader fields and returns nil — the
// caller decides whether that warrants deletion.
func (e *Engine) ReassignLeader(ctx context.Context, userID string, g *domain.Group) error {
	if len(g.FaceIDs) == 0 {
		g.LeaderFaceID = ""
		g.LeaderFaceData = domain.LeaderFaceData{}
		return nil
	}

	leaderID := g.FaceIDs[0]
	face, err := e.store.GetFace(ctx, userID, leaderID)
	if err != nil {
		return fmt.Errorf("groupengine: reassign leader: get face %s: %w", leaderID, err)
	}
	if face == nil {
		return fmt.Errorf("groupengine: reassign leader: face %s not found", leaderID)
	}

	g.LeaderFaceID = leaderID
	g.LeaderFaceData = domain.LeaderFaceData{FileID: face.FileID, BoundingBox: face.BoundingBox}

	e.auditLog.Log(ctx, audit.Event{UserID: userID, EventType: audit.EventLeaderReassigned, GroupID: g.GroupID, FaceID: leaderID, Success: true})
	return nil
}

// inputFacesFromExtracted adapts upstream-provided File.ExtractedFaces into
// the InputFace shape ProcessBatch operates on, used when a caller submits a
// batch for a file without re-sending the faces the upstream engine already
// recorded on it.
func inputFacesFromExtracted(extracted []domain.ExtractedFace) []domain.InputFace {
	out := make([]domain.InputFace, 0, len(extracted))
	for _, ef := range extracted {
		out = append(out, domain.InputFace{
			FaceID: ef.FaceID,
			BoundingBox: domain.RawBoundingBox{
				Left:   &ef.BoundingBox.Left,
				Top:    &ef.BoundingBox.Top,
				Width:  &ef.BoundingBox.Width,
				Height: &ef.BoundingBox.Height,
			},
			Confidence: ef.Confidence,
		})
	}
	return out
}

// filterTombstoned drops faces whose complete bounding box matches a
// deleted box within tolerance. A face with no box (or an incomplete one)
// is kept here; it is rejected later, per-face, in step 3.1.
func filterTombstoned(faces []domain.InputFace, deleted []domain.DeletedFace, tolerance float64) []domain.InputFace {
	if len(deleted) == 0 {
		return faces
	}

	out := make([]domain.InputFace, 0, len(faces))
	for _, f := range faces {
		if f.BoundingBox.Complete() && tombstone.IsTombstoned(f.BoundingBox.Resolve(), deleted, tolerance) {
			continue
		}
		out = append(out, f)
	}
	return out
}
