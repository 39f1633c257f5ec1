package chatlog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"surveyengine/internal/domain"
	"surveyengine/internal/domain/models"
)

func TestFileStoreWriteListGet(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(filepath.Join(dir, "chatlog.jsonl"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	messages := []models.Message{
		{Tag: models.TagSystem, Content: "sys"},
		{Tag: models.TagAssistant, Content: "hi"},
		{Tag: models.TagHuman, Content: "hello"},
		{Tag: models.TagAssistant, Content: "bye"},
	}

	if err := store.Write(context.Background(), "conv-1", messages); err != nil {
		t.Fatalf("Write: %v", err)
	}

	summaries, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(summaries) != 1 || summaries[0].ConversationID != "conv-1" {
		t.Fatalf("List = %+v", summaries)
	}
	if summaries[0].MessageCount != 4 {
		t.Errorf("MessageCount = %d, want 4", summaries[0].MessageCount)
	}

	entry, err := store.Get(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(entry.Messages) != 3 {
		t.Fatalf("Get should filter out SYSTEM messages, got %d", len(entry.Messages))
	}
	for _, m := range entry.Messages {
		if m.Tag == models.TagSystem {
			t.Errorf("SYSTEM message leaked into visible transcript: %+v", m)
		}
	}
}

func TestFileStoreGetUnknownConversation(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(filepath.Join(dir, "chatlog.jsonl"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	_, err = store.Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
