package convstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/didi/gendry/builder"
	"github.com/healrag/healrag/internal/model"
	"github.com/healrag/healrag/internal/pkg/dbutil"
	appErr "github.com/healrag/healrag/internal/pkg/errors"
	_ "github.com/lib/pq"
)

const conversationTableDDL = `
CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	query TEXT NOT NULL,
	response TEXT NOT NULL,
	ts TEXT NOT NULL,
	search_results JSONB
);
CREATE INDEX IF NOT EXISTS idx_conversations_session ON conversations (session_id);
CREATE INDEX IF NOT EXISTS idx_conversations_ts ON conversations (ts DESC);
`

type postgresConfig struct {
	DSN string `json:"dsn"`
}

type postgresStore struct {
	db *sql.DB
}

func init() {
	Register("postgres", createPostgresStore)
}

func createPostgresStore(args interface{}) (Store, error) {
	config := &postgresConfig{}
	if err := decodeConfig(args, config); err != nil {
		return nil, err
	}
	if config.DSN == "" {
		return nil, fmt.Errorf("conversation store dsn is required")
	}
	db, err := sql.Open("postgres", config.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	if _, err := db.Exec(conversationTableDDL); err != nil {
		return nil, fmt.Errorf("create conversations table: %w", err)
	}
	return &postgresStore{db: db}, nil
}

func (s *postgresStore) Put(ctx context.Context, record *model.ConversationRecord) error {
	var results interface{}
	if len(record.SearchResults) > 0 {
		data, err := json.Marshal(record.SearchResults)
		if err != nil {
			return err
		}
		results = string(data)
	}
	sqlStr := `
		INSERT INTO conversations (id, session_id, query, response, ts, search_results)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	args := []interface{}{
		record.ID,
		record.SessionID,
		record.Query,
		record.Response,
		record.Timestamp,
		results,
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil && dbutil.IsConflict(err) {
		return fmt.Errorf("%w: conversation %s", appErr.ErrConflict, record.ID)
	}
	return err
}

func (s *postgresStore) Get(ctx context.Context, id string) (*model.ConversationRecord, error) {
	sqlStr, args, err := builder.BuildSelect("conversations", map[string]interface{}{"id": id}, []string{
		"id", "session_id", "query", "response", "ts", "search_results",
	})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	record, err := scanRecord(rows)
	if err != nil {
		return nil, err
	}
	return record, rows.Err()
}

func (s *postgresStore) List(ctx context.Context, limit int) ([]*model.ConversationRecord, error) {
	sqlStr := `
		SELECT id, session_id, query, response, ts, search_results
		FROM conversations
		ORDER BY ts DESC
	`
	args := []interface{}{}
	if limit > 0 {
		sqlStr += ` LIMIT ?`
		args = append(args, limit)
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	items := make([]*model.ConversationRecord, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, record)
	}
	return items, rows.Err()
}

// DeleteBefore removes records older than the RFC3339 cutoff. Used by
// the retention job, not part of the Store surface.
func (s *postgresStore) DeleteBefore(ctx context.Context, cutoff string) (int64, error) {
	sqlStr := `DELETE FROM conversations WHERE ts < ?`
	args := []interface{}{cutoff}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	res, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *postgresStore) Close() error {
	return s.db.Close()
}

func scanRecord(rows *sql.Rows) (*model.ConversationRecord, error) {
	var record model.ConversationRecord
	var results sql.NullString
	if err := rows.Scan(&record.ID, &record.SessionID, &record.Query, &record.Response, &record.Timestamp, &results); err != nil {
		return nil, err
	}
	if results.Valid && results.String != "" {
		if err := json.Unmarshal([]byte(results.String), &record.SearchResults); err != nil {
			return nil, err
		}
	}
	return &record, nil
}
