// Package docs declares the OpenAPI surface for the grouping API's /v1/groups
// endpoints, served from /swagger by the router.
package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// ErrorResponse mirrors the error handler's wire shape: a domain.AppError's
// code and message nested under "error".
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries an AppError's code and message.
type ErrorBody struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
}

// ProcessBatchResponse documents the processBatch result shape.
type ProcessBatchResponse struct {
	ProcessedCount int             `json:"processedCount" example:"2"`
	Groups         []GroupResponse `json:"groups"`
}

// MergeGroupsResponse documents the mergeGroups result shape.
type MergeGroupsResponse struct {
	GroupID string `json:"groupId" example:"7c2f9b0e-7f2e-4b0b-9c3e-2f1a9b0e7f2e"`
}

// ClearAllGroupsResponse documents the clearAllGroups result shape.
type ClearAllGroupsResponse struct {
	DeletedCount int `json:"deletedCount" example:"14"`
}

// EmptyResponse documents a no-content (204) response.
type EmptyResponse struct{}

// GroupResponse documents a single group DTO (domain.Group's JSON shape) as
// returned by getGroup, createGroup, and renameGroup.
type GroupResponse struct {
	GroupID    string   `json:"group_id" example:"7c2f9b0e-7f2e-4b0b-9c3e-2f1a9b0e7f2e"`
	FaceIDs    []string `json:"face_ids"`
	PersonName string   `json:"person_name,omitempty" example:"Jane Doe"`
	Status     string   `json:"status" example:"named"`
}

// OkResponse documents a boolean acknowledgement DTO.
type OkResponse struct {
	OK bool `json:"ok" example:"true"`
}

// NewSwagger builds the OpenAPI document for the grouping API.
func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Group Manager API",
		Version:     "v1.0.0",
		Description: "Persistent face-grouping service: maintains a transitive equivalence closure over face identifiers as matches stream in across batches",
		Host:        "localhost:3000",
		Path:        "/v1",
	})

	userIDQuery := parameter.StrParam("userId", parameter.Query, parameter.WithDescription("Scoping user ID"))

	sw.AddEndpoints([]*endpoint.EndPoint{
		endpoint.New(
			endpoint.POST, "/groups/batch",
			endpoint.WithTags("Groups"),
			endpoint.WithSummary("Process a batch of newly-detected faces"),
			endpoint.WithDescription("Resolves matches for each face and folds it into the transitive closure of groups, merging as needed. faces may be omitted, in which case the file's upstream-recorded extraction results are used instead"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ProcessBatchResponse{}, "200", "Batch processed"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Error: ErrorBody{Code: "VALIDATION_FAILED"}}, "422", "Missing userId/fileId"),
				response.New(ErrorResponse{Error: ErrorBody{Code: "INTERNAL_ERROR"}}, "500", "Store failure"),
			}),
		),
		endpoint.New(
			endpoint.GET, "/groups",
			endpoint.WithTags("Groups"),
			endpoint.WithSummary("List groups for a user"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(userIDQuery),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New([]GroupResponse{}, "200", "Groups ordered by updatedAt desc"),
			}),
		),
		endpoint.New(
			endpoint.POST, "/groups",
			endpoint.WithTags("Groups"),
			endpoint.WithSummary("Create a group from a set of faces"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(GroupResponse{}, "201", "Group created"),
			}),
		),
		endpoint.New(
			endpoint.DELETE, "/groups",
			endpoint.WithTags("Groups"),
			endpoint.WithSummary("Delete every group for a user (test-user-restricted)"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(userIDQuery),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ClearAllGroupsResponse{}, "200", "Groups cleared"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Error: ErrorBody{Code: "FORBIDDEN_TEST_ONLY"}}, "403", "Caller is not the configured test user"),
			}),
		),
		endpoint.New(
			endpoint.GET, "/groups/{groupId}",
			endpoint.WithTags("Groups"),
			endpoint.WithSummary("Get a single group"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("groupId", parameter.Path, parameter.WithDescription("Group ID")),
				userIDQuery,
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(GroupResponse{}, "200", "Group found"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Error: ErrorBody{Code: "GROUP_NOT_FOUND"}}, "404", "No such group"),
			}),
		),
		endpoint.New(
			endpoint.DELETE, "/groups/{groupId}",
			endpoint.WithTags("Groups"),
			endpoint.WithSummary("Delete a group and its member faces"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("groupId", parameter.Path, parameter.WithDescription("Group ID")),
				userIDQuery,
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "Deleted"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Error: ErrorBody{Code: "GROUP_NOT_FOUND"}}, "404", "No such group"),
			}),
		),
		endpoint.New(
			endpoint.PATCH, "/groups/{groupId}/name",
			endpoint.WithTags("Groups"),
			endpoint.WithSummary("Rename a group, implying named status"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithParams(parameter.StrParam("groupId", parameter.Path, parameter.WithDescription("Group ID"))),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(GroupResponse{}, "200", "Group renamed"),
			}),
		),
		endpoint.New(
			endpoint.POST, "/groups/merge",
			endpoint.WithTags("Groups"),
			endpoint.WithSummary("Merge groups into the first ID"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(MergeGroupsResponse{}, "200", "Merged"),
			}),
		),
		endpoint.New(
			endpoint.POST, "/groups/{groupId}/faces",
			endpoint.WithTags("Groups"),
			endpoint.WithSummary("Add a face to a group, moving it if already a member elsewhere"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithParams(parameter.StrParam("groupId", parameter.Path, parameter.WithDescription("Group ID"))),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(OkResponse{}, "200", "Face added"),
			}),
		),
		endpoint.New(
			endpoint.DELETE, "/groups/{groupId}/faces/{faceId}",
			endpoint.WithTags("Groups"),
			endpoint.WithSummary("Remove a face from a group, reassigning the leader if needed"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("groupId", parameter.Path, parameter.WithDescription("Group ID")),
				parameter.StrParam("faceId", parameter.Path, parameter.WithDescription("Face ID")),
				userIDQuery,
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(OkResponse{}, "200", "Face removed"),
			}),
		),
	})

	return sw
}
