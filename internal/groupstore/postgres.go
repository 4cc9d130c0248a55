package groupstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/faceops/groupcore/internal/domain"
)

// maxBatchSize bounds how many face IDs are sent to a single
// findGroupsContainingAny query, matching the contract's requirement that
// the adapter transparently batch oversized inputs rather than pass them
// through to a store with a native in-clause limit.
const maxBatchSize = 1000

// PgxPool is the subset of *pgxpool.Pool this adapter needs, narrowed so
// tests can substitute pgxmock.
type PgxPool interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// PgStore is the Postgres-backed Store Adapter.
type PgStore struct {
	pool PgxPool
}

// NewPgStore wraps a connection pool as a Store.
func NewPgStore(pool PgxPool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) GetGroup(ctx context.Context, userID, groupID string) (*domain.Group, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT group_id, user_id, interview_id, face_ids, file_ids, face_count,
		       leader_face_id, leader_file_id, leader_bbox_left, leader_bbox_top,
		       leader_bbox_width, leader_bbox_height, status, group_name,
		       person_name, merged_from, created_at, updated_at
		FROM groups WHERE user_id = $1 AND group_id = $2`, userID, groupID)

	g, err := scanGroup(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get group %s: %w", groupID, err)
	}
	return g, nil
}

func (s *PgStore) PutGroup(ctx context.Context, g *domain.Group) error {
	now := time.Now().UTC()
	g.UpdatedAt = now
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}

	var leaderFileID *string
	var left, top, width, height *float64
	if g.LeaderFaceData.FileID != "" {
		leaderFileID = &g.LeaderFaceData.FileID
		left, top, width, height = &g.LeaderFaceData.BoundingBox.Left, &g.LeaderFaceData.BoundingBox.Top,
			&g.LeaderFaceData.BoundingBox.Width, &g.LeaderFaceData.BoundingBox.Height
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO groups (group_id, user_id, interview_id, face_ids, file_ids, face_count,
		                     leader_face_id, leader_file_id, leader_bbox_left, leader_bbox_top,
		                     leader_bbox_width, leader_bbox_height, status, group_name,
		                     person_name, merged_from, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		ON CONFLICT (group_id) DO UPDATE SET
		       interview_id = EXCLUDED.interview_id,
		       face_ids = EXCLUDED.face_ids,
		       file_ids = EXCLUDED.file_ids,
		       face_count = EXCLUDED.face_count,
		       leader_face_id = EXCLUDED.leader_face_id,
		       leader_file_id = EXCLUDED.leader_file_id,
		       leader_bbox_left = EXCLUDED.leader_bbox_left,
		       leader_bbox_top = EXCLUDED.leader_bbox_top,
		       leader_bbox_width = EXCLUDED.leader_bbox_width,
		       leader_bbox_height = EXCLUDED.leader_bbox_height,
		       status = EXCLUDED.status,
		       group_name = EXCLUDED.group_name,
		       person_name = EXCLUDED.person_name,
		       merged_from = EXCLUDED.merged_from,
		       updated_at = EXCLUDED.updated_at`,
		g.GroupID, g.UserID, nullableString(g.InterviewID), g.FaceIDs, g.FileIDs, g.FaceCount,
		nullableString(g.LeaderFaceID), leaderFileID, left, top, width, height,
		string(g.Status), nullableString(g.GroupName), nullableString(g.PersonName),
		g.MergedFrom, g.CreatedAt, g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("put group %s: %w", g.GroupID, err)
	}
	return nil
}

func (s *PgStore) DeleteGroup(ctx context.Context, userID, groupID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM groups WHERE user_id = $1 AND group_id = $2`, userID, groupID)
	if err != nil {
		return fmt.Errorf("delete group %s: %w", groupID, err)
	}
	return nil
}

func (s *PgStore) ListGroups(ctx context.Context, userID string) ([]*domain.Group, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT group_id, user_id, interview_id, face_ids, file_ids, face_count,
		       leader_face_id, leader_file_id, leader_bbox_left, leader_bbox_top,
		       leader_bbox_width, leader_bbox_height, status, group_name,
		       person_name, merged_from, created_at, updated_at
		FROM groups WHERE user_id = $1 ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var out []*domain.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan group row: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *PgStore) FindGroupsContainingAny(ctx context.Context, userID string, faceIDs []string, interviewID string) ([]*domain.Group, error) {
	if len(faceIDs) == 0 {
		return nil, nil
	}

	seen := make(map[string]struct{})
	var out []*domain.Group

	for start := 0; start < len(faceIDs); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(faceIDs) {
			end = len(faceIDs)
		}
		chunk := faceIDs[start:end]

		rows, err := s.pool.Query(ctx, `
			SELECT group_id, user_id, interview_id, face_ids, file_ids, face_count,
			       leader_face_id, leader_file_id, leader_bbox_left, leader_bbox_top,
			       leader_bbox_width, leader_bbox_height, status, group_name,
			       person_name, merged_from, created_at, updated_at
			FROM groups
			WHERE user_id = $1 AND face_ids && $2::text[]
			  AND (interview_id IS NULL OR interview_id = '' OR $3 = '' OR interview_id = $3)
			ORDER BY created_at ASC, group_id ASC`, userID, chunk, interviewID)
		if err != nil {
			return nil, fmt.Errorf("find groups containing any: %w", err)
		}

		for rows.Next() {
			g, err := scanGroup(rows)
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan group row: %w", err)
			}
			if _, ok := seen[g.GroupID]; ok {
				continue
			}
			seen[g.GroupID] = struct{}{}
			out = append(out, g)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}

	return out, nil
}

func (s *PgStore) GetFace(ctx context.Context, userID, faceID string) (*domain.Face, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT face_id, user_id, group_id, file_id, bbox_left, bbox_top, bbox_width,
		       bbox_height, confidence, embedding, created_at, updated_at
		FROM faces WHERE user_id = $1 AND face_id = $2`, userID, faceID)

	f, err := scanFace(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get face %s: %w", faceID, err)
	}
	return f, nil
}

func (s *PgStore) PutFace(ctx context.Context, f *domain.Face) error {
	now := time.Now().UTC()
	f.UpdatedAt = now
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}

	var embedding *pgvector.Vector
	if len(f.Embedding) > 0 {
		v := pgvector.NewVector(f.Embedding)
		embedding = &v
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO faces (face_id, user_id, group_id, file_id, bbox_left, bbox_top,
		                    bbox_width, bbox_height, confidence, embedding, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (face_id) DO UPDATE SET
		       group_id = EXCLUDED.group_id,
		       file_id = EXCLUDED.file_id,
		       bbox_left = EXCLUDED.bbox_left,
		       bbox_top = EXCLUDED.bbox_top,
		       bbox_width = EXCLUDED.bbox_width,
		       bbox_height = EXCLUDED.bbox_height,
		       confidence = EXCLUDED.confidence,
		       embedding = EXCLUDED.embedding,
		       updated_at = EXCLUDED.updated_at`,
		f.FaceID, f.UserID, f.GroupID, f.FileID, f.BoundingBox.Left, f.BoundingBox.Top,
		f.BoundingBox.Width, f.BoundingBox.Height, f.Confidence, embedding, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("put face %s: %w", f.FaceID, err)
	}
	return nil
}

func (s *PgStore) DeleteFace(ctx context.Context, userID, faceID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM faces WHERE user_id = $1 AND face_id = $2`, userID, faceID)
	if err != nil {
		return fmt.Errorf("delete face %s: %w", faceID, err)
	}
	return nil
}

func (s *PgStore) ListFaces(ctx context.Context, userID string) ([]*domain.Face, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT face_id, user_id, group_id, file_id, bbox_left, bbox_top, bbox_width,
		       bbox_height, confidence, embedding, created_at, updated_at
		FROM faces WHERE user_id = $1 ORDER BY face_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list faces: %w", err)
	}
	defer rows.Close()

	var out []*domain.Face
	for rows.Next() {
		f, err := scanFace(rows)
		if err != nil {
			return nil, fmt.Errorf("scan face row: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *PgStore) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id FROM groups
		UNION
		SELECT user_id FROM faces
		ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan user id row: %w", err)
		}
		out = append(out, userID)
	}
	return out, rows.Err()
}

func (s *PgStore) GetFile(ctx context.Context, userID, fileID string) (*domain.File, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT file_id, user_id, url, extracted_faces, deleted_faces, face_group_mapping,
		       face_groups_processed_at
		FROM files WHERE user_id = $1 AND file_id = $2`, userID, fileID)

	f, err := scanFile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get file %s: %w", fileID, err)
	}
	return f, nil
}

func (s *PgStore) UpdateFileMapping(ctx context.Context, userID, fileID string, mapping map[string]string, processedAt time.Time) error {
	mappingJSON, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("marshal file mapping: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		UPDATE files
		SET face_group_mapping = COALESCE(face_group_mapping, '{}'::jsonb) || $3::jsonb,
		    face_groups_processed_at = $4
		WHERE user_id = $1 AND file_id = $2`, userID, fileID, mappingJSON, processedAt)
	if err != nil {
		return fmt.Errorf("update file mapping %s: %w", fileID, err)
	}
	return nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ Store = (*PgStore)(nil)
