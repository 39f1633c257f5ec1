package chatlog

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"surveyengine/internal/domain"
	"surveyengine/internal/domain/models"
)

// FileStore is a JSONL-backed Store: one line per conversation, used
// by default/local/test environments so they need no database.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore opens (creating if needed) a JSONL file at path.
func NewFileStore(path string) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create chat log directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open chat log file: %w", err)
	}
	f.Close()
	return &FileStore{path: path}, nil
}

func (s *FileStore) Write(ctx context.Context, conversationID string, messages []models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	entry := Entry{
		ConversationID: conversationID,
		Timestamp:      now,
		CreatedAt:      now,
		MessageCount:   len(messages),
		Messages:       messages,
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode chat log entry: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open chat log file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append chat log entry: %w", err)
	}
	return nil
}

func (s *FileStore) List(ctx context.Context) ([]Summary, error) {
	entries, err := s.readAll()
	if err != nil {
		return nil, err
	}

	out := make([]Summary, 0, len(entries))
	for _, e := range entries {
		out = append(out, Summary{
			ConversationID: e.ConversationID,
			Timestamp:      e.Timestamp,
			CreatedAt:      e.CreatedAt,
			MessageCount:   e.MessageCount,
		})
	}
	return out, nil
}

func (s *FileStore) Get(ctx context.Context, conversationID string) (*Entry, error) {
	entries, err := s.readAll()
	if err != nil {
		return nil, err
	}

	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].ConversationID == conversationID {
			e := entries[i]
			e.Messages = visibleMessages(e.Messages)
			return &e, nil
		}
	}
	return nil, fmt.Errorf("conversation %s: %w", conversationID, domain.ErrNotFound)
}

func (s *FileStore) readAll() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open chat log file: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("decode chat log entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan chat log file: %w", err)
	}
	return entries, nil
}
