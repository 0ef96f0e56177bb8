package store

import (
	"context"
	"fmt"

	"postcouncil/internal/types"

	"github.com/google/uuid"
)

// InsertPost stores a winning post and returns its new id.
func (s *Store) InsertPost(ctx context.Context, p types.NewPost) (string, error) {
	meta, err := marshalJSON(p.Metadata)
	if err != nil {
		return "", fmt.Errorf("encode generation_metadata: %w", err)
	}
	status := p.Status
	if status == "" {
		status = types.PostPendingReview
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO posts (id, campaign_id, author_id, content, original_content, status,
			execution_id, generation_metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.CampaignID, p.AuthorID, p.Content, p.OriginalContent, string(status),
		p.ExecutionID, meta, toMillis(s.now()),
	)
	if err != nil {
		return "", fmt.Errorf("insert post: %w", err)
	}
	return id, nil
}

// ListPosts returns the posts of a campaign, newest first. An empty status matches all.
func (s *Store) ListPosts(ctx context.Context, campaignID string, status types.PostStatus) ([]types.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, campaign_id, author_id, content, original_content, status, execution_id,
			generation_metadata, created_at
		FROM posts
		WHERE campaign_id = ? AND (? = '' OR status = ?)
		ORDER BY created_at DESC, id`,
		campaignID, string(status), string(status))
	if err != nil {
		return nil, fmt.Errorf("list posts of %s: %w", campaignID, err)
	}
	defer rows.Close()

	var out []types.Post
	for rows.Next() {
		var (
			p         types.Post
			st, meta  string
			createdAt int64
		)
		if err := rows.Scan(&p.ID, &p.CampaignID, &p.AuthorID, &p.Content, &p.OriginalContent,
			&st, &p.ExecutionID, &meta, &createdAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		p.Status = types.PostStatus(st)
		p.CreatedAt = fromMillis(createdAt)
		if err := unmarshalJSON(meta, &p.Metadata); err != nil {
			return nil, fmt.Errorf("decode generation_metadata of post %s: %w", p.ID, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
