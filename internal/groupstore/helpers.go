package groupstore

import (
	"encoding/json"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/faceops/groupcore/internal/domain"
)

// rowScanner matches both pgx.Row (QueryRow) and pgx.Rows (Query iteration).
type rowScanner interface {
	Scan(dest ...any) error
}

func scanGroup(row rowScanner) (*domain.Group, error) {
	var g domain.Group
	var interviewID, leaderFaceID, leaderFileID, groupName, personName *string
	var left, top, width, height *float64

	err := row.Scan(
		&g.GroupID, &g.UserID, &interviewID, &g.FaceIDs, &g.FileIDs, &g.FaceCount,
		&leaderFaceID, &leaderFileID, &left, &top, &width, &height,
		&g.Status, &groupName, &personName, &g.MergedFrom, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	g.InterviewID = derefString(interviewID)
	g.LeaderFaceID = derefString(leaderFaceID)
	g.GroupName = derefString(groupName)
	g.PersonName = derefString(personName)
	if leaderFileID != nil {
		g.LeaderFaceData.FileID = *leaderFileID
	}
	if left != nil && top != nil && width != nil && height != nil {
		g.LeaderFaceData.BoundingBox = domain.BoundingBox{Left: *left, Top: *top, Width: *width, Height: *height}
	}

	return &g, nil
}

func scanFace(row rowScanner) (*domain.Face, error) {
	var f domain.Face
	var embedding *pgvector.Vector
	err := row.Scan(
		&f.FaceID, &f.UserID, &f.GroupID, &f.FileID,
		&f.BoundingBox.Left, &f.BoundingBox.Top, &f.BoundingBox.Width, &f.BoundingBox.Height,
		&f.Confidence, &embedding, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if embedding != nil {
		f.Embedding = embedding.Slice()
	}
	return &f, nil
}

func scanFile(row rowScanner) (*domain.File, error) {
	var f domain.File
	var extractedJSON, deletedJSON, mappingJSON []byte
	var processedAt *time.Time
	var url *string

	err := row.Scan(&f.FileID, &f.UserID, &url, &extractedJSON, &deletedJSON, &mappingJSON, &processedAt)
	if err != nil {
		return nil, err
	}

	f.URL = derefString(url)
	f.FaceGroupsProcessedAt = processedAt

	if len(extractedJSON) > 0 {
		if err := json.Unmarshal(extractedJSON, &f.ExtractedFaces); err != nil {
			return nil, err
		}
	}
	if len(deletedJSON) > 0 {
		if err := json.Unmarshal(deletedJSON, &f.DeletedFaces); err != nil {
			return nil, err
		}
	}
	if len(mappingJSON) > 0 {
		if err := json.Unmarshal(mappingJSON, &f.FaceGroupMapping); err != nil {
			return nil, err
		}
	}

	return &f, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
