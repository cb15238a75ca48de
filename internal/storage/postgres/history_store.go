package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pingmyweb/pingd/internal/ping"
)

const defaultHistoryPageSize = 20

// HistoryStore writes dispatch reports into ping_history.
type HistoryStore struct {
	db DB
}

// NewHistoryStore constructs a HistoryStore on an existing pool.
func NewHistoryStore(db DB) (*HistoryStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	return &HistoryStore{db: db}, nil
}

// Record inserts one history row. The report is stored as JSONB.
func (s *HistoryStore) Record(ctx context.Context, rec ping.HistoryRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("record id is required")
	}
	reportJSON, err := json.Marshal(rec.Report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	query := `
INSERT INTO ping_history (id, user_id, url_id, url, report, content_hash, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	args := []any{rec.ID, rec.UserID, rec.URLID, rec.URL, reportJSON, rec.ContentHash, rec.CreatedAt}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

// Query returns one page of history, newest first, plus the unpaged total.
func (s *HistoryStore) Query(ctx context.Context, userID string, filter ping.HistoryFilter, page ping.Page) (ping.HistoryPage, error) {
	where := []string{"user_id = $1"}
	args := []any{userID}

	if filter.URLID != "" {
		args = append(args, filter.URLID)
		where = append(where, fmt.Sprintf("url_id = $%d", len(args)))
	}
	if filter.URLSubstring != "" {
		args = append(args, "%"+filter.URLSubstring+"%")
		where = append(where, fmt.Sprintf("url ILIKE $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where = append(where, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	clause := strings.Join(where, " AND ")

	out := ping.HistoryPage{Limit: page.Limit, Offset: page.Offset}
	if out.Limit <= 0 {
		out.Limit = defaultHistoryPageSize
	}

	countQuery := "SELECT COUNT(*) FROM ping_history WHERE " + clause
	if err := s.db.QueryRow(ctx, countQuery, args...).Scan(&out.Total); err != nil {
		return ping.HistoryPage{}, fmt.Errorf("count history: %w", err)
	}

	pageArgs := append(args, out.Limit, out.Offset)
	pageQuery := fmt.Sprintf(`
SELECT id, user_id, url_id, url, report, COALESCE(content_hash, ''), created_at
FROM ping_history
WHERE %s
ORDER BY created_at DESC, id ASC
LIMIT $%d OFFSET $%d`, clause, len(args)+1, len(args)+2)

	rows, err := s.db.Query(ctx, pageQuery, pageArgs...)
	if err != nil {
		return ping.HistoryPage{}, fmt.Errorf("select history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec ping.HistoryRecord
		var reportJSON []byte
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.URLID, &rec.URL, &reportJSON, &rec.ContentHash, &rec.CreatedAt); err != nil {
			return ping.HistoryPage{}, fmt.Errorf("scan history row: %w", err)
		}
		if len(reportJSON) > 0 {
			if err := json.Unmarshal(reportJSON, &rec.Report); err != nil {
				return ping.HistoryPage{}, fmt.Errorf("unmarshal report: %w", err)
			}
		}
		out.Records = append(out.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return ping.HistoryPage{}, fmt.Errorf("iterate history rows: %w", err)
	}
	return out, nil
}
