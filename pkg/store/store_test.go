package store

import (
	"fmt"
	"testing"

	"Wetty/pkg/models"
)

func msg(id, createdAt string) models.Message {
	body := "m" + id
	return models.Message{
		ID:          id,
		ChatID:      "1",
		SenderUID:   1,
		Message:     &body,
		MessageType: "text",
		CreatedAt:   createdAt,
	}
}

func pendingMsg(cgid, createdAt string) models.Message {
	m := msg(models.PendingMessageID, createdAt)
	m.ClientGeneratedID = cgid
	return m
}

func cursor(c string) *string {
	return &c
}

func ids(messages []models.Message) []string {
	out := make([]string, len(messages))
	for i, m := range messages {
		out[i] = m.ID
	}
	return out
}

func wantIDs(t *testing.T, got []models.Message, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d messages %v, want %v", len(got), ids(got), want)
	}
	for i, m := range got {
		if m.ID != want[i] {
			t.Fatalf("message %d = %q, want %q (all: %v)", i, m.ID, want[i], ids(got))
		}
	}
}

func TestPrependMergesOlderPage(t *testing.T) {
	s := New()
	s.ResetChat("1", []models.Message{
		msg("m1", "2025-01-01T10:00:00.000Z"),
		msg("m2", "2025-01-01T10:01:00.000Z"),
	}, cursor("c1"), nil)

	s.PrependMessages("1", []models.Message{msg("m0", "2025-01-01T09:59:00.000Z")}, nil)

	wantIDs(t, s.MessagesForChat("1"), "m0", "m1", "m2")
	if got := s.NextCursorForChat("1"); got != nil {
		t.Errorf("nextCursor = %q, want nil", *got)
	}
}

func TestPrependAndAppendDeduplicate(t *testing.T) {
	s := New()
	s.ResetChat("1", []models.Message{
		msg("3", "2025-01-01T10:03:00.000Z"),
		msg("4", "2025-01-01T10:04:00.000Z"),
	}, cursor("c"), cursor("p"))

	// Overlapping older page: "3" already present and must win.
	s.PrependMessages("1", []models.Message{
		msg("2", "2025-01-01T10:02:00.000Z"),
		msg("3", "2025-01-01T10:03:00.000Z"),
	}, cursor("c2"))
	// Overlapping newer page.
	s.AppendMessages("1", []models.Message{
		msg("4", "2025-01-01T10:04:00.000Z"),
		msg("5", "2025-01-01T10:05:00.000Z"),
	}, cursor("p2"))

	wantIDs(t, s.MessagesForChat("1"), "2", "3", "4", "5")
	if got := s.NextCursorForChat("1"); got == nil || *got != "c2" {
		t.Errorf("nextCursor = %v, want c2", got)
	}
	if got := s.PrevCursorForChat("1"); got == nil || *got != "p2" {
		t.Errorf("prevCursor = %v, want p2", got)
	}
}

func TestConfirmPendingReplacesInPlace(t *testing.T) {
	s := New()
	s.ResetChat("1", []models.Message{msg("1", "2025-01-01T10:00:00.000Z")}, nil, nil)
	s.AddMessage("1", pendingMsg("cg1", "2025-01-01T10:01:00.000Z"))

	confirmed := msg("42", "2025-01-01T10:01:00.500Z")
	confirmed.ClientGeneratedID = "cg1"
	s.ConfirmPendingMessage("1", "cg1", confirmed)

	got := s.MessagesForChat("1")
	wantIDs(t, got, "1", "42")
	if got[1].ClientGeneratedID != "cg1" {
		t.Errorf("confirmed message lost its client token")
	}
}

func TestConfirmPendingWithoutMatchIsNoop(t *testing.T) {
	s := New()
	s.ResetChat("1", []models.Message{msg("1", "2025-01-01T10:00:00.000Z")}, nil, nil)
	s.ConfirmPendingMessage("1", "missing", msg("42", "2025-01-01T10:01:00.000Z"))
	s.ConfirmPendingMessage("2", "missing", msg("42", "2025-01-01T10:01:00.000Z"))
	wantIDs(t, s.MessagesForChat("1"), "1")
	if s.WindowCount("2") != 0 {
		t.Errorf("confirm on unknown chat created state")
	}
}

func TestAppendMergesNextWindowAtLiveEdge(t *testing.T) {
	s := New()
	// Recent window from the initial open.
	s.ResetChat("1", []models.Message{
		msg("8", "2025-01-01T10:08:00.000Z"),
		msg("9", "2025-01-01T10:09:00.000Z"),
	}, cursor("c8"), nil)
	// Jump to an old message creates an earlier disjoint window.
	s.PushWindow("1", []models.Message{
		msg("1", "2025-01-01T10:01:00.000Z"),
		msg("2", "2025-01-01T10:02:00.000Z"),
	}, nil, cursor("p2"))

	if s.WindowCount("1") != 2 {
		t.Fatalf("windows = %d, want 2", s.WindowCount("1"))
	}
	if s.ActiveWindowIndex("1") != 0 {
		t.Fatalf("active window = %d, want 0 (jump window is older)", s.ActiveWindowIndex("1"))
	}

	// Paging forward reaches the recent window: cursor closes, windows merge.
	s.AppendMessages("1", []models.Message{
		msg("3", "2025-01-01T10:03:00.000Z"),
		msg("8", "2025-01-01T10:08:00.000Z"),
	}, nil)

	if s.WindowCount("1") != 1 {
		t.Fatalf("windows after merge = %d, want 1", s.WindowCount("1"))
	}
	wantIDs(t, s.MessagesForChat("1"), "1", "2", "3", "8", "9")
	if s.PrevCursorForChat("1") != nil {
		t.Errorf("merged window should adopt the next window's nil prevCursor")
	}
}

func TestPushWindowEvictsOldestNonActive(t *testing.T) {
	s := New()
	for i := 0; i < 6; i++ {
		ts := fmt.Sprintf("2025-01-01T10:0%d:00.000Z", i)
		s.PushWindow("1", []models.Message{msg(fmt.Sprintf("w%d", i), ts)}, cursor("n"), cursor("p"))
	}

	if got := s.WindowCount("1"); got != MaxWindows {
		t.Fatalf("windows = %d, want %d", got, MaxWindows)
	}
	// The most recently pushed window must be present and active.
	wantIDs(t, s.MessagesForChat("1"), "w5")
	// w0 was the oldest non-active window and must be gone.
	for _, m := range s.AllMessagesForChat("1") {
		if m.ID == "w0" {
			t.Errorf("oldest window survived eviction")
		}
	}
}

func TestPushWindowInsertsChronologically(t *testing.T) {
	s := New()
	s.PushWindow("1", []models.Message{msg("b", "2025-01-01T10:05:00.000Z")}, nil, nil)
	s.PushWindow("1", []models.Message{msg("a", "2025-01-01T10:01:00.000Z")}, nil, nil)

	all := s.AllMessagesForChat("1")
	wantIDs(t, all, "a", "b")
	// The pushed window becomes active even when inserted before others.
	wantIDs(t, s.MessagesForChat("1"), "a")

	gen := s.Generation("1")
	if gen != 2 {
		t.Errorf("generation = %d, want 2 (one per push)", gen)
	}
}

func TestAddMessageCreatesWindowAndDropsDuplicates(t *testing.T) {
	s := New()
	s.AddMessage("1", msg("9", "2025-01-01T10:00:00.000Z"))
	s.AddMessage("1", msg("9", "2025-01-01T10:00:00.000Z"))
	wantIDs(t, s.MessagesForChat("1"), "9")
}

func TestResetChatAdvancesGeneration(t *testing.T) {
	s := New()
	if s.Generation("1") != 0 {
		t.Fatalf("unknown chat generation should be 0")
	}
	s.ResetChat("1", nil, nil, nil)
	s.PushWindow("1", []models.Message{msg("1", "2025-01-01T10:00:00.000Z")}, nil, nil)
	s.ResetChat("1", nil, nil, nil)
	if got := s.Generation("1"); got != 3 {
		t.Errorf("generation = %d, want 3", got)
	}
	if s.WindowCount("1") != 1 {
		t.Errorf("reset must leave a single window")
	}
}

func TestRemovePendingMessage(t *testing.T) {
	s := New()
	s.ResetChat("1", []models.Message{msg("1", "2025-01-01T10:00:00.000Z")}, nil, nil)
	s.AddMessage("1", pendingMsg("cg1", "2025-01-01T10:01:00.000Z"))
	s.RemovePendingMessage("1", "cg1")
	wantIDs(t, s.MessagesForChat("1"), "1")
	// Removing again, or for an unknown chat, must not blow up.
	s.RemovePendingMessage("1", "cg1")
	s.RemovePendingMessage("2", "cg1")
}

func TestRemovePendingKeepsConfirmedEntry(t *testing.T) {
	s := New()
	confirmed := msg("42", "2025-01-01T10:00:00.000Z")
	confirmed.ClientGeneratedID = "cg1"
	s.AddMessage("1", confirmed)
	s.RemovePendingMessage("1", "cg1")
	wantIDs(t, s.MessagesForChat("1"), "42")
}

func TestUpdateMessageInPlace(t *testing.T) {
	s := New()
	s.ResetChat("1", []models.Message{
		msg("1", "2025-01-01T10:00:00.000Z"),
		msg("2", "2025-01-01T10:01:00.000Z"),
	}, nil, nil)

	deleted := msg("1", "2025-01-01T10:00:00.000Z")
	deleted.Message = nil
	at := "2025-01-01T11:00:00.000Z"
	deleted.DeletedAt = &at
	s.UpdateMessage("1", deleted)

	got := s.MessagesForChat("1")
	wantIDs(t, got, "1", "2")
	if got[0].Message != nil || got[0].DeletedAt == nil {
		t.Errorf("soft delete not applied in place: %+v", got[0])
	}
}

func TestReplaceMessagesKeepsCursors(t *testing.T) {
	s := New()
	s.ResetChat("1", []models.Message{msg("1", "2025-01-01T10:00:00.000Z")}, cursor("c"), cursor("p"))
	s.ReplaceMessages("1", []models.Message{msg("2", "2025-01-01T10:01:00.000Z")})
	wantIDs(t, s.MessagesForChat("1"), "2")
	if got := s.NextCursorForChat("1"); got == nil || *got != "c" {
		t.Errorf("nextCursor lost on replace: %v", got)
	}
}

func TestSubscribersNotified(t *testing.T) {
	s := New()
	calls := 0
	unsubscribe := s.Subscribe(func() { calls++ })

	s.AddMessage("1", msg("1", "2025-01-01T10:00:00.000Z"))
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	unsubscribe()
	s.AddMessage("1", msg("2", "2025-01-01T10:01:00.000Z"))
	if calls != 1 {
		t.Errorf("unsubscribed callback still invoked")
	}
}

func TestConnectionFlag(t *testing.T) {
	s := New()
	if !s.Connected() {
		t.Fatalf("connectivity should start optimistic")
	}
	notified := 0
	s.Subscribe(func() { notified++ })
	s.SetConnected(false)
	s.SetConnected(false)
	if s.Connected() {
		t.Errorf("flag not cleared")
	}
	if notified != 1 {
		t.Errorf("notified %d times, want 1 (no-op change must not notify)", notified)
	}
}
