package domain

import "time"

// RawBoundingBox is the wire shape of a bounding box: each coordinate is a
// pointer so a caller can omit one, matching upstream engines that leave a
// coordinate undefined rather than zero.
type RawBoundingBox struct {
	Left   *float64 `json:"left"`
	Top    *float64 `json:"top"`
	Width  *float64 `json:"width"`
	Height *float64 `json:"height"`
}

// Complete reports whether every coordinate is present.
func (b RawBoundingBox) Complete() bool {
	return b.Left != nil && b.Top != nil && b.Width != nil && b.Height != nil
}

// Resolve converts a complete raw box into the persisted BoundingBox shape.
// Callers must check Complete() first.
func (b RawBoundingBox) Resolve() BoundingBox {
	return BoundingBox{Left: *b.Left, Top: *b.Top, Width: *b.Width, Height: *b.Height}
}

// BoundingBox locates a detected face within its source image, each
// coordinate normalized to [0,1]. Only ever constructed from a Complete
// RawBoundingBox, so plain float64 fields are safe once persisted.
type BoundingBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Face is a persisted detection: one region in one image, with the group
// it currently belongs to. The face doc is the source of truth for group
// membership (see Group); group docs are secondary indexes over it.
type Face struct {
	FaceID      string      `json:"face_id"`
	UserID      string      `json:"-"`
	GroupID     string      `json:"group_id"`
	FileID      string      `json:"file_id"`
	BoundingBox BoundingBox `json:"bounding_box"`
	Confidence  float64     `json:"confidence,omitempty"`
	// Embedding optionally carries a raw face embedding for the pgvector
	// fallback match path (see matchresolver.EmbeddingResolver). Faces
	// resolved via pre-supplied matches or the Rekognition engine leave
	// this nil.
	Embedding []float32 `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InputFace is the shape a caller submits to processBatch or the manual
// group operations. Unknown fields are ignored by the caller; MatchedFaceIDs
// lets a caller pre-supply matches and skip the recognition engine call.
type InputFace struct {
	FaceID         string
	BoundingBox    RawBoundingBox
	Confidence     float64
	MatchedFaceIDs []string
	GroupID        string
	Embedding      []float32
}
