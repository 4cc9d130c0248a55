package groupstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/faceops/groupcore/internal/domain"
)

// MemStore is an in-memory Store used by group-engine unit tests, so the
// merge/leader/scoping logic can be exercised without a database. Every read
// and write deep-copies, so callers can never mutate stored state by holding
// onto a returned pointer.
type MemStore struct {
	mu     sync.Mutex
	groups map[string]map[string]*domain.Group // userID -> groupID -> group
	faces  map[string]map[string]*domain.Face  // userID -> faceID -> face
	files  map[string]map[string]*domain.File  // userID -> fileID -> file
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		groups: make(map[string]map[string]*domain.Group),
		faces:  make(map[string]map[string]*domain.Face),
		files:  make(map[string]map[string]*domain.File),
	}
}

func copyGroup(g *domain.Group) *domain.Group {
	if g == nil {
		return nil
	}
	cp := *g
	cp.FaceIDs = append([]string(nil), g.FaceIDs...)
	cp.FileIDs = append([]string(nil), g.FileIDs...)
	cp.MergedFrom = append([]string(nil), g.MergedFrom...)
	return &cp
}

func copyFace(f *domain.Face) *domain.Face {
	if f == nil {
		return nil
	}
	cp := *f
	cp.Embedding = append([]float32(nil), f.Embedding...)
	return &cp
}

func copyFile(f *domain.File) *domain.File {
	if f == nil {
		return nil
	}
	cp := *f
	cp.ExtractedFaces = append([]domain.ExtractedFace(nil), f.ExtractedFaces...)
	cp.DeletedFaces = append([]domain.DeletedFace(nil), f.DeletedFaces...)
	mapping := make(map[string]string, len(f.FaceGroupMapping))
	for k, v := range f.FaceGroupMapping {
		mapping[k] = v
	}
	cp.FaceGroupMapping = mapping
	return &cp
}

// SeedFile installs a file doc directly, for test setup.
func (s *MemStore) SeedFile(file *domain.File) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[file.UserID]; !ok {
		s.files[file.UserID] = make(map[string]*domain.File)
	}
	s.files[file.UserID][file.FileID] = copyFile(file)
}

func (s *MemStore) GetGroup(_ context.Context, userID, groupID string) (*domain.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[userID][groupID]
	if !ok {
		return nil, nil
	}
	return copyGroup(g), nil
}

func (s *MemStore) PutGroup(_ context.Context, group *domain.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[group.UserID]; !ok {
		s.groups[group.UserID] = make(map[string]*domain.Group)
	}
	group.UpdatedAt = time.Now().UTC()
	if group.CreatedAt.IsZero() {
		group.CreatedAt = group.UpdatedAt
	}
	s.groups[group.UserID][group.GroupID] = copyGroup(group)
	return nil
}

func (s *MemStore) DeleteGroup(_ context.Context, userID, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.groups[userID], groupID)
	return nil
}

func (s *MemStore) ListGroups(_ context.Context, userID string) ([]*domain.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Group, 0, len(s.groups[userID]))
	for _, g := range s.groups[userID] {
		out = append(out, copyGroup(g))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (s *MemStore) FindGroupsContainingAny(_ context.Context, userID string, faceIDs []string, interviewID string) ([]*domain.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	want := make(map[string]struct{}, len(faceIDs))
	for _, id := range faceIDs {
		want[id] = struct{}{}
	}

	seen := make(map[string]struct{})
	var out []*domain.Group
	for _, g := range s.groups[userID] {
		if interviewID != "" && g.InterviewID != "" && g.InterviewID != interviewID {
			continue
		}
		matched := false
		for _, fid := range g.FaceIDs {
			if _, ok := want[fid]; ok {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		if _, ok := seen[g.GroupID]; ok {
			continue
		}
		seen[g.GroupID] = struct{}{}
		out = append(out, copyGroup(g))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].GroupID < out[j].GroupID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemStore) GetFace(_ context.Context, userID, faceID string) (*domain.Face, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.faces[userID][faceID]
	if !ok {
		return nil, nil
	}
	return copyFace(f), nil
}

func (s *MemStore) PutFace(_ context.Context, face *domain.Face) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.faces[face.UserID]; !ok {
		s.faces[face.UserID] = make(map[string]*domain.Face)
	}
	face.UpdatedAt = time.Now().UTC()
	if face.CreatedAt.IsZero() {
		face.CreatedAt = face.UpdatedAt
	}
	s.faces[face.UserID][face.FaceID] = copyFace(face)
	return nil
}

func (s *MemStore) DeleteFace(_ context.Context, userID, faceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.faces[userID], faceID)
	return nil
}

func (s *MemStore) ListFaces(_ context.Context, userID string) ([]*domain.Face, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Face, 0, len(s.faces[userID]))
	for _, f := range s.faces[userID] {
		out = append(out, copyFace(f))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FaceID < out[j].FaceID })
	return out, nil
}

func (s *MemStore) ListUserIDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{})
	for uid := range s.groups {
		seen[uid] = struct{}{}
	}
	for uid := range s.faces {
		seen[uid] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for uid := range seen {
		out = append(out, uid)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemStore) GetFile(_ context.Context, userID, fileID string) (*domain.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[userID][fileID]
	if !ok {
		return nil, nil
	}
	return copyFile(f), nil
}

func (s *MemStore) UpdateFileMapping(_ context.Context, userID, fileID string, mapping map[string]string, processedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[userID]; !ok {
		s.files[userID] = make(map[string]*domain.File)
	}
	f, ok := s.files[userID][fileID]
	if !ok {
		f = &domain.File{FileID: fileID, UserID: userID, FaceGroupMapping: map[string]string{}}
	} else {
		f = copyFile(f)
	}
	if f.FaceGroupMapping == nil {
		f.FaceGroupMapping = map[string]string{}
	}
	for k, v := range mapping {
		f.FaceGroupMapping[k] = v
	}
	f.FaceGroupsProcessedAt = &processedAt
	s.files[userID][fileID] = f
	return nil
}

var _ Store = (*MemStore)(nil)
