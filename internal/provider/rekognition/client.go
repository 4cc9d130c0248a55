package rekognition

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/smithy-go"
)

const (
	errCodeAccessDenied     = "AccessDeniedException"
	errCodeResourceNotFound = "ResourceNotFoundException"
	errCodeResourceExists   = "ResourceAlreadyExistsException"
	errCodeInvalidParameter = "InvalidParameterException"
)

// Client wraps the AWS Rekognition client and provides collection management operations
type Client struct {
	rekognition *rekognition.Client
	config      Config
}

// NewClient creates a new Rekognition client with the provided configuration
// It uses the AWS default credential chain to authenticate
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	// Load AWS SDK config using default credential chain
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Client{
		rekognition: rekognition.NewFromConfig(awsCfg),
		config:      cfg,
	}, nil
}

// CreateCollection creates a new Rekognition collection with the given
// collection ID. Returns ErrCollectionAlreadyExists if a collection with the
// same name already exists.
func (c *Client) CreateCollection(ctx context.Context, collectionID string) error {
	input := &rekognition.CreateCollectionInput{
		CollectionId: aws.String(collectionID),
	}

	_, err := c.rekognition.CreateCollection(ctx, input)
	if err != nil {
		// Check if collection already exists
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.ErrorCode() {
			case errCodeResourceExists:
				return fmt.Errorf("collection %s: %w", collectionID, ErrCollectionAlreadyExists)
			case errCodeInvalidParameter:
				return fmt.Errorf("collection %s: invalid collection parameters: %w", collectionID, err)
			case errCodeAccessDenied:
				return fmt.Errorf("collection %s: %w", collectionID, ErrInvalidCredentials)
			}
		}
		return fmt.Errorf("failed to create collection %s: %w", collectionID, err)
	}

	return nil
}

// CollectionExists checks if a collection exists for the given collection ID.
func (c *Client) CollectionExists(ctx context.Context, collectionID string) (bool, error) {
	input := &rekognition.DescribeCollectionInput{
		CollectionId: aws.String(collectionID),
	}

	_, err := c.rekognition.DescribeCollection(ctx, input)
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.ErrorCode() {
			case errCodeResourceNotFound:
				return false, nil
			case errCodeAccessDenied:
				return false, fmt.Errorf("collection %s: %w", collectionID, ErrInvalidCredentials)
			}
		}
		return false, fmt.Errorf("failed to check collection %s: %w", collectionID, err)
	}

	return true, nil
}

// EnsureCollection creates a collection if it doesn't exist, or does nothing
// if it already exists. Called before a collection search so that a user's
// first indexed face doesn't fail against a collection that was never
// provisioned.
func (c *Client) EnsureCollection(ctx context.Context, collectionID string) error {
	exists, err := c.CollectionExists(ctx, collectionID)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if exists {
		return nil
	}

	if err := c.CreateCollection(ctx, collectionID); err != nil {
		// Ignore if collection was created concurrently
		if errors.Is(err, ErrCollectionAlreadyExists) {
			return nil
		}
		return err
	}

	return nil
}

// SearchResult represents a face match result from a Rekognition collection search.
type SearchResult struct {
	FaceID     string
	Similarity float64
}

// SearchFacesByFaceID finds faces in userID's collection similar to an
// already-indexed face, by its Rekognition face ID. Resource-not-found
// (unknown collection or unknown face) surfaces as an empty result, not an
// error, matching the recognition-engine contract the group engine relies
// on (a face with no matches is a valid singleton).
func (c *Client) SearchFacesByFaceID(ctx context.Context, userID, faceID string, threshold float64, maxFaces int) ([]SearchResult, error) {
	return c.SearchFacesInCollection(ctx, c.config.CollectionName(userID), faceID, threshold, maxFaces)
}

// SearchFacesInCollection is the collection-ID-addressed form of
// SearchFacesByFaceID, for callers that already hold the fully-qualified
// collection name directly (e.g. the match resolver, which derives it from
// the user ID itself).
func (c *Client) SearchFacesInCollection(ctx context.Context, collectionID, faceID string, threshold float64, maxFaces int) ([]SearchResult, error) {
	if maxFaces <= 0 || maxFaces > 4096 {
		maxFaces = 20
	}

	input := &rekognition.SearchFacesInput{
		CollectionId:       aws.String(collectionID),
		FaceId:             aws.String(faceID),
		MaxFaces:           aws.Int32(int32(maxFaces)), // #nosec G115 - bounded above
		FaceMatchThreshold: aws.Float32(float32(threshold * 100)),
	}

	output, err := c.rekognition.SearchFaces(ctx, input)
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == errCodeResourceNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("collection %s: search faces by id: %w", collectionID, err)
	}

	results := make([]SearchResult, 0, len(output.FaceMatches))
	for _, match := range output.FaceMatches {
		if match.Face == nil || match.Face.FaceId == nil {
			continue
		}
		similarity := 0.0
		if match.Similarity != nil {
			similarity = float64(*match.Similarity) / 100.0
		}
		results = append(results, SearchResult{FaceID: *match.Face.FaceId, Similarity: similarity})
	}

	return results, nil
}
