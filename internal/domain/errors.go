package domain

import (
	"fmt"
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// Pre-defined errors. Codes line up with the error kinds the grouping
// contract names: InvalidInput, NotFound, SourceUnreachable, StoreError,
// RecognitionError, Forbidden.
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrForbidden = &AppError{
		Code:       "FORBIDDEN",
		Message:    "Access denied",
		StatusCode: 403,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: 404,
	}

	ErrGroupNotFound = &AppError{
		Code:       "GROUP_NOT_FOUND",
		Message:    "Group not found",
		StatusCode: 404,
	}

	ErrFaceNotFound = &AppError{
		Code:       "FACE_NOT_FOUND",
		Message:    "Face not found",
		StatusCode: 404,
	}

	ErrFileNotFound = &AppError{
		Code:       "FILE_NOT_FOUND",
		Message:    "File not found",
		StatusCode: 404,
	}

	// ErrInvalidBoundingBox covers a face with a missing or undefined
	// bounding box coordinate; a per-face skip, never fatal to the batch.
	ErrInvalidBoundingBox = &AppError{
		Code:       "INVALID_BOUNDING_BOX",
		Message:    "Face bounding box is missing or incomplete",
		StatusCode: 422,
	}

	// ErrSourceUnreachable covers a missing file doc, missing URL, or a
	// failed HEAD probe. A batch returns empty on this, not an error.
	ErrSourceUnreachable = &AppError{
		Code:       "SOURCE_UNREACHABLE",
		Message:    "Source image is not reachable",
		StatusCode: 422,
	}

	ErrValidationFailed = &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "Request validation failed",
		StatusCode: 422,
	}

	ErrNotTestUser = &AppError{
		Code:       "FORBIDDEN_TEST_ONLY",
		Message:    "Operation restricted to the configured test user",
		StatusCode: 403,
	}
)
