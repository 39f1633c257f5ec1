// Package chatlog is the relational Chat Log Writer used
// when ENVIRONMENT=prod (one row per conversation, upserted on write).
package chatlog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"surveyengine/internal/chatlog"
	"surveyengine/internal/domain"
	"surveyengine/internal/domain/models"
	"surveyengine/internal/repository/postgres"
)

// Store is a postgres-backed chatlog.Store.
type Store struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// New builds a Store.
func New(pool *pgxpool.Pool, tables *postgres.TableNames, logger *slog.Logger) *Store {
	return &Store{pool: pool, tables: tables, logger: logger}
}

func (s *Store) Write(ctx context.Context, conversationID string, messages []models.Message) error {
	payload, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (conversation_id, created_at, message_count, messages)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (conversation_id) DO UPDATE SET
			message_count = EXCLUDED.message_count,
			messages = EXCLUDED.messages
	`, s.tables.ChatLogs)

	executor := postgres.GetExecutor(ctx, s.pool)
	_, err = executor.Exec(ctx, query, conversationID, time.Now().UTC(), len(messages), payload)
	if err != nil {
		return fmt.Errorf("write chat log: %w", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]chatlog.Summary, error) {
	query := fmt.Sprintf(`
		SELECT conversation_id, created_at, message_count
		FROM %s
		ORDER BY created_at DESC
	`, s.tables.ChatLogs)

	executor := postgres.GetExecutor(ctx, s.pool)
	rows, err := executor.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list chat logs: %w", err)
	}
	defer rows.Close()

	var out []chatlog.Summary
	for rows.Next() {
		var (
			id        string
			createdAt time.Time
			count     int
		)
		if err := rows.Scan(&id, &createdAt, &count); err != nil {
			return nil, fmt.Errorf("scan chat log row: %w", err)
		}
		out = append(out, chatlog.Summary{
			ConversationID: id,
			Timestamp:      createdAt.Format(time.RFC3339),
			CreatedAt:      createdAt.Format(time.RFC3339),
			MessageCount:   count,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat log rows: %w", err)
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, conversationID string) (*chatlog.Entry, error) {
	query := fmt.Sprintf(`
		SELECT conversation_id, created_at, message_count, messages
		FROM %s
		WHERE conversation_id = $1
	`, s.tables.ChatLogs)

	var (
		id        string
		createdAt time.Time
		count     int
		payload   []byte
	)

	executor := postgres.GetExecutor(ctx, s.pool)
	err := executor.QueryRow(ctx, query, conversationID).Scan(&id, &createdAt, &count, &payload)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("conversation %s: %w", conversationID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get chat log: %w", err)
	}

	var messages []models.Message
	if err := json.Unmarshal(payload, &messages); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}

	visible := make([]models.Message, 0, len(messages))
	for _, m := range messages {
		if m.Tag == models.TagHuman || m.Tag == models.TagAssistant {
			visible = append(visible, m)
		}
	}

	formatted := createdAt.Format(time.RFC3339)
	return &chatlog.Entry{
		ConversationID: id,
		Timestamp:      formatted,
		CreatedAt:      formatted,
		MessageCount:   count,
		Messages:       visible,
	}, nil
}
