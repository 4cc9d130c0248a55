// Package groupstore abstracts persistence for groups, faces, and files —
// the Store Adapter. It provides no cross-document transactions; callers
// (the group engine) compensate by treating the face doc as authoritative
// on conflict.
package groupstore

import (
	"context"
	"time"

	"github.com/faceops/groupcore/internal/domain"
)

// Store is the persistence contract for the grouping core.
type Store interface {
	GetGroup(ctx context.Context, userID, groupID string) (*domain.Group, error)
	PutGroup(ctx context.Context, group *domain.Group) error
	DeleteGroup(ctx context.Context, userID, groupID string) error
	ListGroups(ctx context.Context, userID string) ([]*domain.Group, error)

	// FindGroupsContainingAny returns every group whose FaceIDs intersects
	// faceIDs. When interviewID is non-empty, groups whose own InterviewID is
	// set and differs are excluded. Callers larger than the store's native
	// in-clause limit are transparently batched; results are deduplicated by
	// GroupID.
	FindGroupsContainingAny(ctx context.Context, userID string, faceIDs []string, interviewID string) ([]*domain.Group, error)

	GetFace(ctx context.Context, userID, faceID string) (*domain.Face, error)
	PutFace(ctx context.Context, face *domain.Face) error
	DeleteFace(ctx context.Context, userID, faceID string) error
	// ListFaces returns every face doc for userID, for the reconciler's
	// convergence sweep.
	ListFaces(ctx context.Context, userID string) ([]*domain.Face, error)

	GetFile(ctx context.Context, userID, fileID string) (*domain.File, error)
	UpdateFileMapping(ctx context.Context, userID, fileID string, mapping map[string]string, processedAt time.Time) error

	// ListUserIDs returns every user ID with at least one persisted group or
	// face, so a background sweep knows which scopes to reconcile.
	ListUserIDs(ctx context.Context) ([]string, error)
}
