package domain

import "time"

// Status tracks where a group sits in the review workflow.
type Status string

const (
	StatusUnreviewed Status = "unreviewed"
	StatusReviewed    Status = "reviewed"
	StatusNamed       Status = "named"
)

// Group is a persistent set of face IDs asserted to depict the same person,
// scoped to a single user and optionally to a single interview.
type Group struct {
	GroupID        string         `json:"group_id"`
	UserID         string         `json:"-"`
	InterviewID    string         `json:"interview_id,omitempty"`
	FaceIDs        []string       `json:"face_ids"`
	FileIDs        []string       `json:"file_ids"`
	FaceCount      int            `json:"face_count"`
	LeaderFaceID   string         `json:"leader_face_id"`
	LeaderFaceData LeaderFaceData `json:"leader_face_data"`
	Status         Status         `json:"status"`
	GroupName      string         `json:"group_name,omitempty"`
	PersonName     string         `json:"person_name,omitempty"`
	MergedFrom     []string       `json:"merged_from,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// LeaderFaceData caches the leader's source so the UI can render a thumbnail
// without a face-doc lookup.
type LeaderFaceData struct {
	FileID      string      `json:"file_id"`
	BoundingBox BoundingBox `json:"bounding_box"`
}

// HasFace reports whether faceID is currently a member of the group.
func (g *Group) HasFace(faceID string) bool {
	for _, id := range g.FaceIDs {
		if id == faceID {
			return true
		}
	}
	return false
}

// AddFace inserts faceID into the group's member set, deduplicating and
// keeping FaceCount in sync (invariant #2: no duplicates, count == len).
func (g *Group) AddFace(faceID string) {
	if g.HasFace(faceID) {
		return
	}
	g.FaceIDs = append(g.FaceIDs, faceID)
	g.FaceCount = len(g.FaceIDs)
}

// AddFile records fileID as provenance for the group, deduplicating.
func (g *Group) AddFile(fileID string) {
	for _, id := range g.FileIDs {
		if id == fileID {
			return
		}
	}
	g.FileIDs = append(g.FileIDs, fileID)
}

// RemoveFace drops faceID from the member set and refreshes FaceCount.
// Reports whether faceID was the group's leader, so the caller knows to
// run leader reassignment (invariant #3).
func (g *Group) RemoveFace(faceID string) (wasLeader bool) {
	for i, id := range g.FaceIDs {
		if id == faceID {
			g.FaceIDs = append(g.FaceIDs[:i], g.FaceIDs[i+1:]...)
			g.FaceCount = len(g.FaceIDs)
			break
		}
	}
	return g.LeaderFaceID == faceID
}

// InScope reports whether a group participates in matching for the given
// interview scope. Unscoped groups (InterviewID == "") participate in every
// scope for backward compatibility; scoped groups only match their own
// interview.
func (g *Group) InScope(interviewID string) bool {
	if g.InterviewID == "" {
		return true
	}
	return g.InterviewID == interviewID
}
