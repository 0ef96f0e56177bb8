package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"postcouncil/internal/types"
)

const campaignColumns = `id, name, type, description, status, workflow_type, posts_per_employee,
	platform, brand_name, brand_settings, workflow_config, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (*types.Campaign, error) {
	var (
		c                    types.Campaign
		status               string
		brandSettings, wfCfg string
		createdAt            int64
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Type, &c.Description, &status, &c.WorkflowType,
		&c.PostsPerEmployee, &c.Platform, &c.BrandName, &brandSettings, &wfCfg, &createdAt); err != nil {
		return nil, err
	}
	c.Status = types.CampaignStatus(status)
	c.CreatedAt = fromMillis(createdAt)
	if err := unmarshalJSON(brandSettings, &c.BrandSettings); err != nil {
		return nil, fmt.Errorf("decode brand_settings of campaign %s: %w", c.ID, err)
	}
	// A malformed workflow_config must surface at activation, not be read as defaults.
	if err := unmarshalJSON(wfCfg, &c.Workflow); err != nil {
		return nil, types.WrapError(types.KindInvalidConfiguration, err, "decode workflow_config of campaign %s", c.ID)
	}
	return &c, nil
}

// GetCampaign returns one campaign by id.
func (s *Store) GetCampaign(ctx context.Context, id string) (*types.Campaign, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+campaignColumns+" FROM campaigns WHERE id = ?", id)
	c, err := scanCampaign(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("campaign %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign %s: %w", id, err)
	}
	return c, nil
}

// ListCampaigns returns every campaign ordered by creation time.
func (s *Store) ListCampaigns(ctx context.Context) ([]types.Campaign, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+campaignColumns+" FROM campaigns ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var out []types.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func scanSubject(row rowScanner) (*types.Subject, error) {
	var (
		sub      types.Subject
		settings string
	)
	if err := row.Scan(&sub.ID, &sub.Name, &sub.Email, &settings); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(settings, &sub.Settings); err != nil {
		return nil, fmt.Errorf("decode settings of user %s: %w", sub.ID, err)
	}
	return &sub, nil
}

// ListActiveSubjects returns the active roster of a campaign in enrollment order.
func (s *Store) ListActiveSubjects(ctx context.Context, campaignID string) ([]types.Subject, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.name, u.email, u.settings
		FROM campaign_employees ce
		JOIN users u ON u.id = ce.user_id
		WHERE ce.campaign_id = ? AND ce.is_active = 1
		ORDER BY ce.enrolled_at, u.id`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list roster of %s: %w", campaignID, err)
	}
	defer rows.Close()

	var out []types.Subject
	for rows.Next() {
		sub, err := scanSubject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		out = append(out, *sub)
	}
	return out, rows.Err()
}

// GetSubject returns one subject by id.
func (s *Store) GetSubject(ctx context.Context, id string) (*types.Subject, error) {
	row := s.db.QueryRowContext(ctx, "SELECT id, name, email, settings FROM users WHERE id = ?", id)
	sub, err := scanSubject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return sub, nil
}

// GetVoiceSample returns the voice sample for an email.
func (s *Store) GetVoiceSample(ctx context.Context, email string) (*types.VoiceSample, error) {
	var (
		v        types.VoiceSample
		isSample int
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT email, example_post_1, example_post_2, example_post_3, blurb, is_sample
		FROM voice_samples WHERE email = ?`, email,
	).Scan(&v.Email, &v.ExamplePost1, &v.ExamplePost2, &v.ExamplePost3, &v.Blurb, &isSample)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("voice sample %s: %w", email, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get voice sample %s: %w", email, err)
	}
	v.IsSample = isSample != 0
	return &v, nil
}
