package types

import (
	"context"
)

// CampaignReader is the read side of persistence used by the engine.
// Lookups that find nothing return an error wrapping ErrNotFound.
type CampaignReader interface {
	GetCampaign(ctx context.Context, id string) (*Campaign, error)
	ListActiveSubjects(ctx context.Context, campaignID string) ([]Subject, error)
	GetSubject(ctx context.Context, id string) (*Subject, error)
	GetVoiceSample(ctx context.Context, email string) (*VoiceSample, error)
}

// PostWriter persists winning posts.
type PostWriter interface {
	InsertPost(ctx context.Context, post NewPost) (string, error)
}

// PostReader lists stored posts.
type PostReader interface {
	ListPosts(ctx context.Context, campaignID string, status PostStatus) ([]Post, error)
}

// LogWriter appends execution log entries. Entries are never updated or deleted.
type LogWriter interface {
	AppendLog(ctx context.Context, entry LogEntry) error
}

// LogReader reads the execution log back for audit.
type LogReader interface {
	ListLogs(ctx context.Context, filter LogFilter) ([]LogEntry, error)
}
