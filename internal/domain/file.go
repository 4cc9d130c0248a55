package domain

import "time"

// ExtractedFace is one upstream-produced detection on a File, read-only to
// the grouping core.
type ExtractedFace struct {
	FaceID      string      `json:"face_id"`
	BoundingBox BoundingBox `json:"bounding_box"`
	Confidence  float64     `json:"confidence,omitempty"`
}

// DeletedFace is a tombstone: a bounding box the user has removed, recorded
// by box rather than by ID because the upstream engine re-indexes images
// between runs and issues fresh face IDs.
type DeletedFace struct {
	BoundingBox BoundingBox `json:"bounding_box"`
}

// File is owned by an external uploader. The grouping core only reads URL,
// ExtractedFaces, and DeletedFaces, and writes FaceGroupMapping /
// FaceGroupsProcessedAt.
type File struct {
	FileID               string            `json:"file_id"`
	UserID                string            `json:"-"`
	URL                   string            `json:"url"`
	ExtractedFaces        []ExtractedFace   `json:"extracted_faces,omitempty"`
	DeletedFaces          []DeletedFace     `json:"deleted_faces,omitempty"`
	FaceGroupMapping      map[string]string `json:"face_group_mapping,omitempty"`
	FaceGroupsProcessedAt *time.Time        `json:"face_groups_processed_at,omitempty"`
}
