package rekognition

import "errors"

var (
	// ErrCollectionAlreadyExists indicates that a collection with the same name already exists
	ErrCollectionAlreadyExists = errors.New("rekognition collection already exists")

	// ErrInvalidCredentials indicates that AWS credentials are invalid or missing
	ErrInvalidCredentials = errors.New("invalid or missing AWS credentials")
)
