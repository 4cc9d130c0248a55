// Package manualops implements Manual Ops (C6): the explicit, user-driven
// group operations that sit alongside the automatic batch pipeline —
// creating a group by hand, moving faces between groups, merging, renaming,
// and deleting. Merge and leader-reassignment both delegate to
// groupengine.Engine so there is exactly one implementation of each.
package manualops

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/faceops/groupcore/internal/audit"
	"github.com/faceops/groupcore/internal/domain"
	"github.com/faceops/groupcore/internal/groupengine"
	"github.com/faceops/groupcore/internal/groupstore"
)

// Ops implements the manual group operations.
type Ops struct {
	store      groupstore.Store
	engine     *groupengine.Engine
	testUserID string
	auditLog   audit.Logger
	logger     *slog.Logger
}

// Option configures Ops.
type Option func(*Ops)

// WithTestUserID restricts clearAllGroups to the given user ID.
func WithTestUserID(userID string) Option {
	return func(o *Ops) { o.testUserID = userID }
}

// WithAuditLogger attaches an audit trail.
func WithAuditLogger(a audit.Logger) Option {
	return func(o *Ops) { o.auditLog = a }
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Ops) { o.logger = logger }
}

// New creates an Ops.
func New(store groupstore.Store, engine *groupengine.Engine, opts ...Option) *Ops {
	o := &Ops{
		store:    store,
		engine:   engine,
		auditLog: &audit.NoOpLogger{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ListGroups returns every group for the user, ordered updatedAt desc.
func (o *Ops) ListGroups(ctx context.Context, userID string) ([]*domain.Group, error) {
	groups, err := o.store.ListGroups(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("manualops: list groups: %w", err)
	}
	return groups, nil
}

// GetGroup returns a single group, or domain.ErrGroupNotFound.
func (o *Ops) GetGroup(ctx context.Context, userID, groupID string) (*domain.Group, error) {
	g, err := o.store.GetGroup(ctx, userID, groupID)
	if err != nil {
		return nil, fmt.Errorf("manualops: get group %s: %w", groupID, err)
	}
	if g == nil {
		return nil, domain.ErrGroupNotFound
	}
	return g, nil
}

// CreateGroupWithFaces builds a new group from scratch. The leader is the
// first face. Any face that already belongs to another group is moved: the
// old group's membership, count, and leader are adjusted, but the old group
// itself is never deleted even if it becomes empty — operational policy
// preserves empty groups so the UI can drag faces back into them.
func (o *Ops) CreateGroupWithFaces(ctx context.Context, userID string, faces []domain.InputFace, name string) (*domain.Group, error) {
	if len(faces) == 0 {
		return nil, domain.ErrValidationFailed.WithError(fmt.Errorf("at least one face is required"))
	}

	now := time.Now()
	group := &domain.Group{
		GroupID:      uuid.NewString(),
		UserID:       userID,
		LeaderFaceID: faces[0].FaceID,
		Status:       domain.StatusUnreviewed,
		GroupName:    name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	for i, face := range faces {
		if !face.BoundingBox.Complete() {
			return nil, domain.ErrInvalidBoundingBox.WithError(fmt.Errorf("face %s", face.FaceID))
		}
		box := face.BoundingBox.Resolve()

		if err := o.detachFromExistingGroup(ctx, userID, face.FaceID); err != nil {
			return nil, err
		}

		group.AddFace(face.FaceID)
		if i == 0 {
			group.LeaderFaceData = domain.LeaderFaceData{BoundingBox: box}
		}

		faceDoc := &domain.Face{
			FaceID: face.FaceID, UserID: userID, GroupID: group.GroupID,
			BoundingBox: box, Confidence: face.Confidence, Embedding: face.Embedding,
		}
		if err := o.store.PutFace(ctx, faceDoc); err != nil {
			return nil, fmt.Errorf("manualops: create group: put face %s: %w", face.FaceID, err)
		}
	}

	if err := o.store.PutGroup(ctx, group); err != nil {
		return nil, fmt.Errorf("manualops: create group: put group %s: %w", group.GroupID, err)
	}

	o.auditLog.Log(ctx, audit.Event{UserID: userID, EventType: audit.EventGroupCreated, GroupID: group.GroupID, Success: true})
	return group, nil
}

// detachFromExistingGroup removes faceID from whatever group it currently
// belongs to (per the face doc), reassigning the leader if needed. The
// vacated group is kept even if it becomes empty.
func (o *Ops) detachFromExistingGroup(ctx context.Context, userID, faceID string) error {
	existing, err := o.store.GetFace(ctx, userID, faceID)
	if err != nil {
		return fmt.Errorf("manualops: get face %s: %w", faceID, err)
	}
	if existing == nil || existing.GroupID == "" {
		return nil
	}

	old, err := o.store.GetGroup(ctx, userID, existing.GroupID)
	if err != nil {
		return fmt.Errorf("manualops: get old group %s: %w", existing.GroupID, err)
	}
	if old == nil {
		return nil
	}

	wasLeader := old.RemoveFace(faceID)
	if wasLeader {
		if err := o.engine.ReassignLeader(ctx, userID, old); err != nil {
			o.logger.WarnContext(ctx, "could not reassign leader after move", slog.String("group_id", old.GroupID), slog.String("error", err.Error()))
		}
	}
	old.UpdatedAt = time.Now()
	if err := o.store.PutGroup(ctx, old); err != nil {
		return fmt.Errorf("manualops: put old group %s: %w", old.GroupID, err)
	}
	return nil
}

// AddFaceToGroup adds faceID to groupID, creating or updating the face doc.
// Idempotent: adding an existing member is a no-op beyond refreshing the doc.
func (o *Ops) AddFaceToGroup(ctx context.Context, userID, groupID, faceID, fileID string) error {
	group, err := o.store.GetGroup(ctx, userID, groupID)
	if err != nil {
		return fmt.Errorf("manualops: get group %s: %w", groupID, err)
	}
	if group == nil {
		return domain.ErrGroupNotFound
	}

	if err := o.detachFromExistingGroup(ctx, userID, faceID); err != nil {
		return err
	}

	group.AddFace(faceID)
	if fileID != "" {
		group.AddFile(fileID)
	}
	group.UpdatedAt = time.Now()
	if err := o.store.PutGroup(ctx, group); err != nil {
		return fmt.Errorf("manualops: add face: put group %s: %w", groupID, err)
	}

	faceDoc, err := o.store.GetFace(ctx, userID, faceID)
	if err != nil {
		return fmt.Errorf("manualops: add face: get face %s: %w", faceID, err)
	}
	if faceDoc == nil {
		faceDoc = &domain.Face{FaceID: faceID, UserID: userID}
	}
	faceDoc.GroupID = groupID
	if fileID != "" {
		faceDoc.FileID = fileID
	}
	if err := o.store.PutFace(ctx, faceDoc); err != nil {
		return fmt.Errorf("manualops: add face: put face %s: %w", faceID, err)
	}

	o.auditLog.Log(ctx, audit.Event{UserID: userID, EventType: audit.EventFaceAdded, GroupID: groupID, FaceID: faceID, Success: true})
	return nil
}

// RemoveFaceFromGroup removes faceID from the group and deletes its face
// doc, reassigning the leader if faceID was the leader. The group is kept
// even if it becomes empty.
func (o *Ops) RemoveFaceFromGroup(ctx context.Context, userID, groupID, faceID string) error {
	group, err := o.store.GetGroup(ctx, userID, groupID)
	if err != nil {
		return fmt.Errorf("manualops: get group %s: %w", groupID, err)
	}
	if group == nil {
		return domain.ErrGroupNotFound
	}

	wasLeader := group.RemoveFace(faceID)
	if wasLeader {
		if err := o.engine.ReassignLeader(ctx, userID, group); err != nil {
			o.logger.WarnContext(ctx, "could not reassign leader", slog.String("group_id", groupID), slog.String("error", err.Error()))
		}
	}
	group.UpdatedAt = time.Now()
	if err := o.store.PutGroup(ctx, group); err != nil {
		return fmt.Errorf("manualops: remove face: put group %s: %w", groupID, err)
	}

	if err := o.store.DeleteFace(ctx, userID, faceID); err != nil {
		return fmt.Errorf("manualops: remove face: delete face %s: %w", faceID, err)
	}

	o.auditLog.Log(ctx, audit.Event{UserID: userID, EventType: audit.EventFaceRemoved, GroupID: groupID, FaceID: faceID, Success: true})
	return nil
}

// DeleteGroup deletes the group doc. Member face docs are deleted alongside
// by default, per the operative API contract.
func (o *Ops) DeleteGroup(ctx context.Context, userID, groupID string) error {
	group, err := o.store.GetGroup(ctx, userID, groupID)
	if err != nil {
		return fmt.Errorf("manualops: get group %s: %w", groupID, err)
	}
	if group == nil {
		return domain.ErrGroupNotFound
	}

	for _, faceID := range group.FaceIDs {
		if err := o.store.DeleteFace(ctx, userID, faceID); err != nil {
			o.logger.WarnContext(ctx, "could not delete member face", slog.String("face_id", faceID), slog.String("error", err.Error()))
		}
	}

	if err := o.store.DeleteGroup(ctx, userID, groupID); err != nil {
		return fmt.Errorf("manualops: delete group %s: %w", groupID, err)
	}

	o.auditLog.Log(ctx, audit.Event{UserID: userID, EventType: audit.EventGroupDeleted, GroupID: groupID, Success: true})
	return nil
}

// MergeGroups merges groupIDs pairwise into the first ID, which wins as
// primary. Returns the primary group ID.
func (o *Ops) MergeGroups(ctx context.Context, userID string, groupIDs []string) (string, error) {
	if len(groupIDs) < 2 {
		return "", domain.ErrValidationFailed.WithError(fmt.Errorf("at least two groups are required to merge"))
	}

	primary, err := o.store.GetGroup(ctx, userID, groupIDs[0])
	if err != nil {
		return "", fmt.Errorf("manualops: merge: get primary %s: %w", groupIDs[0], err)
	}
	if primary == nil {
		return "", domain.ErrGroupNotFound
	}

	for _, id := range groupIDs[1:] {
		secondary, err := o.store.GetGroup(ctx, userID, id)
		if err != nil {
			return "", fmt.Errorf("manualops: merge: get secondary %s: %w", id, err)
		}
		if secondary == nil {
			continue
		}
		if err := o.engine.Merge(ctx, userID, primary, secondary); err != nil {
			return "", fmt.Errorf("manualops: merge %s into %s: %w", id, primary.GroupID, err)
		}
	}

	return primary.GroupID, nil
}

// RenameGroup sets the group's display labels. Renaming always implies the
// "named" status; it never affects membership.
func (o *Ops) RenameGroup(ctx context.Context, userID, groupID, personName string) (*domain.Group, error) {
	group, err := o.store.GetGroup(ctx, userID, groupID)
	if err != nil {
		return nil, fmt.Errorf("manualops: get group %s: %w", groupID, err)
	}
	if group == nil {
		return nil, domain.ErrGroupNotFound
	}

	group.PersonName = personName
	group.Status = domain.StatusNamed
	group.UpdatedAt = time.Now()
	if err := o.store.PutGroup(ctx, group); err != nil {
		return nil, fmt.Errorf("manualops: rename group %s: %w", groupID, err)
	}

	o.auditLog.Log(ctx, audit.Event{UserID: userID, EventType: audit.EventGroupRenamed, GroupID: groupID, Success: true})
	return group, nil
}

// ClearAllGroups deletes every group for userID together with each group's
// member face docs; face docs that no group lists are left in place.
// Restricted to the configured test user; any other caller is rejected with
// domain.ErrNotTestUser.
func (o *Ops) ClearAllGroups(ctx context.Context, userID string) (int, error) {
	if o.testUserID == "" || userID != o.testUserID {
		return 0, domain.ErrNotTestUser
	}

	groups, err := o.store.ListGroups(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("manualops: clear all: list groups: %w", err)
	}

	count := 0
	for _, g := range groups {
		if err := o.DeleteGroup(ctx, userID, g.GroupID); err != nil {
			o.logger.WarnContext(ctx, "could not delete group during clear", slog.String("group_id", g.GroupID), slog.String("error", err.Error()))
			continue
		}
		count++
	}
	return count, nil
}
