package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"postcouncil/internal/types"
)

// AppendLog inserts one execution log entry. Rows are never updated.
func (s *Store) AppendLog(ctx context.Context, e types.LogEntry) error {
	meta, err := marshalJSON(e.Metadata)
	if err != nil {
		return fmt.Errorf("encode log metadata: %w", err)
	}
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO execution_logs (execution_id, campaign_id, employee_id, workflow_type, step_name,
			status, error_message, model, input_tokens, output_tokens, latency_ms, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ExecutionID, nullString(e.CampaignID), nullString(e.EmployeeID), e.WorkflowType, e.Step,
		string(e.Status), nullString(e.ErrorMessage), nullString(e.Model),
		e.InputTokens, e.OutputTokens, e.LatencyMS, meta, toMillis(createdAt),
	)
	if err != nil {
		return fmt.Errorf("append log %s/%s: %w", e.ExecutionID, e.Step, err)
	}
	return nil
}

// ListLogs returns matching entries in insertion order.
func (s *Store) ListLogs(ctx context.Context, f types.LogFilter) ([]types.LogEntry, error) {
	var (
		where []string
		args  []any
	)
	if f.ExecutionPrefix != "" {
		where = append(where, `execution_id LIKE ? ESCAPE '\'`)
		args = append(args, escapeLike(f.ExecutionPrefix)+"%")
	}
	if f.CampaignID != "" {
		where = append(where, "campaign_id = ?")
		args = append(args, f.CampaignID)
	}
	if f.Step != "" {
		where = append(where, "step_name = ?")
		args = append(args, f.Step)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}

	query := `SELECT id, execution_id, campaign_id, employee_id, workflow_type, step_name, status,
		error_message, model, input_tokens, output_tokens, latency_ms, metadata, created_at
		FROM execution_logs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	defer rows.Close()

	var out []types.LogEntry
	for rows.Next() {
		var (
			e                                   types.LogEntry
			campaignID, employeeID, errMsg, mdl sql.NullString
			status, meta                        string
			createdAt                           int64
		)
		if err := rows.Scan(&e.ID, &e.ExecutionID, &campaignID, &employeeID, &e.WorkflowType, &e.Step,
			&status, &errMsg, &mdl, &e.InputTokens, &e.OutputTokens, &e.LatencyMS, &meta, &createdAt); err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		e.CampaignID = campaignID.String
		e.EmployeeID = employeeID.String
		e.ErrorMessage = errMsg.String
		e.Model = mdl.String
		e.Status = types.LogStatus(status)
		e.CreatedAt = fromMillis(createdAt)
		if err := unmarshalJSON(meta, &e.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata of log %d: %w", e.ID, err)
		}
		if len(e.Metadata) == 0 {
			e.Metadata = nil
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
