package db

import (
	"testing"

	"Wetty/pkg/models"
)

func strPtr(s string) *string { return &s }

func TestChatListCacheRoundTrip(t *testing.T) {
	gdb, err := OpenMemory()
	if err != nil {
		t.Fatalf("db: %v", err)
	}

	chats := []models.ChatListItem{
		{ID: 1, Name: strPtr("older"), LastMessageAt: strPtr("2025-01-01T09:00:00.000Z")},
		{ID: 2, Name: strPtr("newer"), LastMessageAt: strPtr("2025-01-01T10:00:00.000Z")},
	}
	if err := SaveChatList(gdb, chats); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := LoadChatList(gdb)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("loaded %d chats, want 2", len(loaded))
	}
	if loaded[0].ID != 2 || loaded[1].ID != 1 {
		t.Errorf("order = %d,%d, want newest activity first", loaded[0].ID, loaded[1].ID)
	}
}

func TestChatListCacheUpserts(t *testing.T) {
	gdb, err := OpenMemory()
	if err != nil {
		t.Fatalf("db: %v", err)
	}

	if err := SaveChatList(gdb, []models.ChatListItem{
		{ID: 1, Name: strPtr("before"), LastMessageAt: strPtr("2025-01-01T09:00:00.000Z")},
	}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := SaveChatList(gdb, []models.ChatListItem{
		{ID: 1, Name: strPtr("after"), LastMessageAt: strPtr("2025-01-01T10:00:00.000Z")},
	}); err != nil {
		t.Fatalf("resave: %v", err)
	}

	loaded, err := LoadChatList(gdb)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("loaded %d chats, want 1 (second save must update, not insert)", len(loaded))
	}
	if loaded[0].Name == nil || *loaded[0].Name != "after" {
		t.Errorf("name = %v, want after", loaded[0].Name)
	}
}
