package store

import (
	"context"
	"fmt"

	"postcouncil/internal/types"
)

// UpsertCampaign inserts or replaces a campaign definition. Used by seeding.
func (s *Store) UpsertCampaign(ctx context.Context, c types.Campaign) error {
	brand, err := marshalJSON(c.BrandSettings)
	if err != nil {
		return fmt.Errorf("encode brand_settings: %w", err)
	}
	wf, err := marshalJSON(c.Workflow)
	if err != nil {
		return fmt.Errorf("encode workflow_config: %w", err)
	}
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO campaigns (id, name, type, description, status, workflow_type, posts_per_employee,
			platform, brand_name, brand_settings, workflow_config, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, type = excluded.type, description = excluded.description,
			status = excluded.status, workflow_type = excluded.workflow_type,
			posts_per_employee = excluded.posts_per_employee, platform = excluded.platform,
			brand_name = excluded.brand_name, brand_settings = excluded.brand_settings,
			workflow_config = excluded.workflow_config`,
		c.ID, c.Name, c.Type, c.Description, string(c.Status), c.WorkflowType, c.PostsPerEmployee,
		c.Platform, c.BrandName, brand, wf, toMillis(createdAt),
	)
	if err != nil {
		return fmt.Errorf("upsert campaign %s: %w", c.ID, err)
	}
	return nil
}

// UpsertSubject inserts or replaces a user.
func (s *Store) UpsertSubject(ctx context.Context, sub types.Subject) error {
	settings, err := marshalJSON(sub.Settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, settings, created_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, email = excluded.email, settings = excluded.settings`,
		sub.ID, sub.Name, sub.Email, settings, toMillis(s.now()),
	)
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", sub.ID, err)
	}
	return nil
}

// Enroll adds or updates a roster membership.
func (s *Store) Enroll(ctx context.Context, campaignID, userID string, active bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO campaign_employees (campaign_id, user_id, is_active, enrolled_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(campaign_id, user_id) DO UPDATE SET is_active = excluded.is_active`,
		campaignID, userID, boolInt(active), toMillis(s.now()),
	)
	if err != nil {
		return fmt.Errorf("enroll %s in %s: %w", userID, campaignID, err)
	}
	return nil
}

// UpsertVoiceSample inserts or replaces the voice sample keyed by email.
func (s *Store) UpsertVoiceSample(ctx context.Context, v types.VoiceSample) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO voice_samples (email, example_post_1, example_post_2, example_post_3, blurb, is_sample, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET
			example_post_1 = excluded.example_post_1, example_post_2 = excluded.example_post_2,
			example_post_3 = excluded.example_post_3, blurb = excluded.blurb,
			is_sample = excluded.is_sample, updated_at = excluded.updated_at`,
		v.Email, v.ExamplePost1, v.ExamplePost2, v.ExamplePost3, v.Blurb, boolInt(v.IsSample), toMillis(s.now()),
	)
	if err != nil {
		return fmt.Errorf("upsert voice sample %s: %w", v.Email, err)
	}
	return nil
}
