package handler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/faceops/groupcore/internal/domain"
	"github.com/faceops/groupcore/internal/groupengine"
)

// GroupEngine is the subset of groupengine.Engine the transport layer needs.
type GroupEngine interface {
	ProcessBatch(ctx context.Context, userID, fileID string, faces []domain.InputFace, interviewID string) (*groupengine.BatchResult, error)
}

// ManualOps is the subset of manualops.Ops the transport layer needs.
type ManualOps interface {
	ListGroups(ctx context.Context, userID string) ([]*domain.Group, error)
	GetGroup(ctx context.Context, userID, groupID string) (*domain.Group, error)
	CreateGroupWithFaces(ctx context.Context, userID string, faces []domain.InputFace, name string) (*domain.Group, error)
	AddFaceToGroup(ctx context.Context, userID, groupID, faceID, fileID string) error
	RemoveFaceFromGroup(ctx context.Context, userID, groupID, faceID string) error
	DeleteGroup(ctx context.Context, userID, groupID string) error
	MergeGroups(ctx context.Context, userID string, groupIDs []string) (string, error)
	RenameGroup(ctx context.Context, userID, groupID, personName string) (*domain.Group, error)
	ClearAllGroups(ctx context.Context, userID string) (int, error)
}

// GroupHandler binds the inbound operation table (processBatch, listGroups,
// getGroup, createGroup, addFaceToGroup, removeFaceFromGroup, renameGroup,
// mergeGroups, deleteGroup, clearAllGroups) to JSON endpoints under
// /v1/groups.
type GroupHandler struct {
	engine GroupEngine
	ops    ManualOps
	logger *slog.Logger
}

// NewGroupHandler creates a GroupHandler instance.
func NewGroupHandler(engine GroupEngine, ops ManualOps, logger *slog.Logger) *GroupHandler {
	return &GroupHandler{engine: engine, ops: ops, logger: logger}
}

// faceRequest is the wire shape of a face object (spec §6): unknown fields
// are ignored by fiber's JSON decoder.
type faceRequest struct {
	FaceID         string                `json:"faceId"`
	BoundingBox    domain.RawBoundingBox `json:"boundingBox"`
	Confidence     float64               `json:"confidence"`
	MatchedFaceIDs []string              `json:"matchedFaceIds"`
	GroupID        string                `json:"groupId"`
}

func toInputFaces(reqs []faceRequest) []domain.InputFace {
	out := make([]domain.InputFace, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, domain.InputFace{
			FaceID:         r.FaceID,
			BoundingBox:    r.BoundingBox,
			Confidence:     r.Confidence,
			MatchedFaceIDs: r.MatchedFaceIDs,
			GroupID:        r.GroupID,
		})
	}
	return out
}

type processBatchRequest struct {
	UserID      string        `json:"userId"`
	FileID      string        `json:"fileId"`
	Faces       []faceRequest `json:"faces"`
	InterviewID string        `json:"interviewId,omitempty"`
}

type processBatchResponse struct {
	ProcessedCount int             `json:"processedCount"`
	Groups         []*domain.Group `json:"groups"`
}

// ProcessBatch POST /v1/groups/batch — run a batch of newly-detected faces
// through the group engine. faces may be omitted, in which case the engine
// falls back to the file's upstream-recorded extraction results.
func (h *GroupHandler) ProcessBatch(c *fiber.Ctx) error {
	var req processBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}
	if req.UserID == "" || req.FileID == "" {
		return domain.ErrValidationFailed.WithError(errors.New("userId and fileId are required"))
	}

	result, err := h.engine.ProcessBatch(c.Context(), req.UserID, req.FileID, toInputFaces(req.Faces), req.InterviewID)
	if err != nil {
		return err
	}

	return c.JSON(processBatchResponse{
		ProcessedCount: result.ProcessedCount,
		Groups:         result.Groups,
	})
}

// ListGroups GET /v1/groups?userId=...
func (h *GroupHandler) ListGroups(c *fiber.Ctx) error {
	userID := c.Query("userId")
	if userID == "" {
		return domain.ErrValidationFailed.WithError(errors.New("userId is required"))
	}

	groups, err := h.ops.ListGroups(c.Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(groups)
}

// GetGroup GET /v1/groups/:groupId?userId=...
func (h *GroupHandler) GetGroup(c *fiber.Ctx) error {
	userID := c.Query("userId")
	groupID := c.Params("groupId")
	if userID == "" || groupID == "" {
		return domain.ErrValidationFailed.WithError(errors.New("userId and groupId are required"))
	}

	group, err := h.ops.GetGroup(c.Context(), userID, groupID)
	if err != nil {
		return err
	}
	return c.JSON(group)
}

type createGroupRequest struct {
	UserID string        `json:"userId"`
	Faces  []faceRequest `json:"faces"`
	Name   string        `json:"name,omitempty"`
}

// CreateGroup POST /v1/groups
func (h *GroupHandler) CreateGroup(c *fiber.Ctx) error {
	var req createGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}
	if req.UserID == "" {
		return domain.ErrValidationFailed.WithError(errors.New("userId is required"))
	}

	group, err := h.ops.CreateGroupWithFaces(c.Context(), req.UserID, toInputFaces(req.Faces), req.Name)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(group)
}

type addFaceRequest struct {
	UserID string `json:"userId"`
	FaceID string `json:"faceId"`
	FileID string `json:"fileId,omitempty"`
}

// AddFaceToGroup POST /v1/groups/:groupId/faces
func (h *GroupHandler) AddFaceToGroup(c *fiber.Ctx) error {
	groupID := c.Params("groupId")
	var req addFaceRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}
	if req.UserID == "" || req.FaceID == "" || groupID == "" {
		return domain.ErrValidationFailed.WithError(errors.New("userId, groupId, and faceId are required"))
	}

	if err := h.ops.AddFaceToGroup(c.Context(), req.UserID, groupID, req.FaceID, req.FileID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"ok": true})
}

// RemoveFaceFromGroup DELETE /v1/groups/:groupId/faces/:faceId?userId=...
func (h *GroupHandler) RemoveFaceFromGroup(c *fiber.Ctx) error {
	userID := c.Query("userId")
	groupID := c.Params("groupId")
	faceID := c.Params("faceId")
	if userID == "" || groupID == "" || faceID == "" {
		return domain.ErrValidationFailed.WithError(errors.New("userId, groupId, and faceId are required"))
	}

	if err := h.ops.RemoveFaceFromGroup(c.Context(), userID, groupID, faceID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"ok": true})
}

type renameGroupRequest struct {
	UserID     string `json:"userId"`
	PersonName string `json:"personName"`
}

// RenameGroup PATCH /v1/groups/:groupId/name
func (h *GroupHandler) RenameGroup(c *fiber.Ctx) error {
	groupID := c.Params("groupId")
	var req renameGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}
	if req.UserID == "" || groupID == "" {
		return domain.ErrValidationFailed.WithError(errors.New("userId and groupId are required"))
	}

	group, err := h.ops.RenameGroup(c.Context(), req.UserID, groupID, req.PersonName)
	if err != nil {
		return err
	}
	return c.JSON(group)
}

type mergeGroupsRequest struct {
	UserID   string   `json:"userId"`
	GroupIDs []string `json:"groupIds"`
}

type mergeGroupsResponse struct {
	GroupID string `json:"groupId"`
}

// MergeGroups POST /v1/groups/merge
func (h *GroupHandler) MergeGroups(c *fiber.Ctx) error {
	var req mergeGroupsRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}
	if req.UserID == "" {
		return domain.ErrValidationFailed.WithError(errors.New("userId is required"))
	}

	primaryID, err := h.ops.MergeGroups(c.Context(), req.UserID, req.GroupIDs)
	if err != nil {
		return err
	}
	return c.JSON(mergeGroupsResponse{GroupID: primaryID})
}

// DeleteGroup DELETE /v1/groups/:groupId?userId=...
func (h *GroupHandler) DeleteGroup(c *fiber.Ctx) error {
	userID := c.Query("userId")
	groupID := c.Params("groupId")
	if userID == "" || groupID == "" {
		return domain.ErrValidationFailed.WithError(errors.New("userId and groupId are required"))
	}

	if err := h.ops.DeleteGroup(c.Context(), userID, groupID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type clearAllGroupsResponse struct {
	DeletedCount int `json:"deletedCount"`
}

// ClearAllGroups DELETE /v1/groups?userId=... — restricted to the configured
// test user.
func (h *GroupHandler) ClearAllGroups(c *fiber.Ctx) error {
	userID := c.Query("userId")
	if userID == "" {
		return domain.ErrValidationFailed.WithError(errors.New("userId is required"))
	}

	start := time.Now()
	count, err := h.ops.ClearAllGroups(c.Context(), userID)
	if err != nil {
		return err
	}
	h.logger.Info("cleared all groups", slog.String("user_id", userID), slog.Int("deleted", count), slog.Duration("latency", time.Since(start)))
	return c.JSON(clearAllGroupsResponse{DeletedCount: count})
}
