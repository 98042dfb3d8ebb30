package repository

import (
	"context"

	"media_share_service/internal/media/domain"

	"github.com/jackc/pgx/v4/pgxpool"
)

// ClipRepository definition media_clips access
type ClipRepository interface {
	EnsureSchema(ctx context.Context) error
	Insert(ctx context.Context, clip *domain.MediaClip) error
	ListByPost(ctx context.Context, postID string) ([]domain.MediaClip, error)
}

type clipRepository struct {
	db *pgxpool.Pool
}

// NewClipRepository create a ClipRepository
func NewClipRepository(db *pgxpool.Pool) ClipRepository {
	return &clipRepository{db: db}
}

const createClipTable = `
CREATE TABLE IF NOT EXISTS media_clips (
	id         BIGSERIAL PRIMARY KEY,
	post_id    TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	url        TEXT NOT NULL,
	type       TEXT NOT NULL CHECK (type IN ('audio', 'video')),
	duration   DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS media_clips_post_id_idx ON media_clips (post_id, created_at);`

func (r *clipRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, createClipTable)
	return err
}

func (r *clipRepository) Insert(ctx context.Context, clip *domain.MediaClip) error {
	row := r.db.QueryRow(ctx,
		"INSERT INTO media_clips(post_id, user_id, url, type, duration) VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at",
		clip.PostID, clip.UserID, clip.URL, string(clip.Type), clip.Duration)
	return row.Scan(&clip.ID, &clip.CreatedAt)
}

// ListByPost 依建立順序回傳, 也就是 merge 的播放順序
func (r *clipRepository) ListByPost(ctx context.Context, postID string) ([]domain.MediaClip, error) {
	rows, err := r.db.Query(ctx,
		"SELECT id, post_id, user_id, url, type, duration, created_at FROM media_clips WHERE post_id = $1 ORDER BY created_at ASC, id ASC",
		postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clips []domain.MediaClip
	for rows.Next() {
		var c domain.MediaClip
		var clipType string
		if err := rows.Scan(&c.ID, &c.PostID, &c.UserID, &c.URL, &clipType, &c.Duration, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Type = domain.ClipType(clipType)
		clips = append(clips, c)
	}
	return clips, rows.Err()
}
