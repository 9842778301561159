// Package store holds the client-side message state: per-conversation message
// windows, pagination cursors, the connection flag, and persisted settings.
// It is the single state container injected into the connector and the thread
// controller; every mutation is atomic and total (absent conversations are
// created lazily, impossible targets are silent no-ops).
package store

import (
	"sync"

	"Wetty/pkg/models"
)

// MaxWindows caps how many disjoint message windows a conversation may hold
// before the oldest non-active one is evicted.
const MaxWindows = 5

// Store is the in-memory client state container. Subscribers registered with
// Subscribe are notified after every mutation, outside the store lock.
type Store struct {
	mu          sync.RWMutex
	chats       map[string]*models.ChatMessageState
	wsConnected bool

	subMu   sync.Mutex
	subs    map[int]func()
	nextSub int
}

// New creates an empty state container.
func New() *Store {
	return &Store{
		chats:       make(map[string]*models.ChatMessageState),
		wsConnected: true,
		subs:        make(map[int]func()),
	}
}

// Subscribe registers a callback invoked after every state change. The
// returned function removes the subscription.
func (s *Store) Subscribe(fn func()) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify() {
	s.subMu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// getChat returns the conversation state, creating it on first access.
// Callers must hold the write lock.
func (s *Store) getChat(chatID string) *models.ChatMessageState {
	chat, ok := s.chats[chatID]
	if !ok {
		chat = &models.ChatMessageState{}
		s.chats[chatID] = chat
	}
	return chat
}

func activeWindow(chat *models.ChatMessageState) *models.MessageWindow {
	if chat.ActiveWindowIndex < 0 || chat.ActiveWindowIndex >= len(chat.Windows) {
		return nil
	}
	return chat.Windows[chat.ActiveWindowIndex]
}

// dedup returns the incoming messages whose ids do not already appear in
// existing. Existing entries always win.
func dedup(existing, incoming []models.Message) []models.Message {
	ids := make(map[string]struct{}, len(existing))
	for _, m := range existing {
		ids[m.ID] = struct{}{}
	}
	unique := make([]models.Message, 0, len(incoming))
	for _, m := range incoming {
		if _, ok := ids[m.ID]; !ok {
			unique = append(unique, m)
		}
	}
	return unique
}

// ResetChat replaces all windows of the conversation with a single new one and
// bumps the generation so stale in-flight pagination results get discarded.
func (s *Store) ResetChat(chatID string, messages []models.Message, nextCursor, prevCursor *string) {
	s.mu.Lock()
	prevGen := 0
	if chat, ok := s.chats[chatID]; ok {
		prevGen = chat.Generation
	}
	s.chats[chatID] = &models.ChatMessageState{
		Windows: []*models.MessageWindow{{
			Messages:   messages,
			NextCursor: nextCursor,
			PrevCursor: prevCursor,
		}},
		ActiveWindowIndex: 0,
		Generation:        prevGen + 1,
	}
	s.mu.Unlock()
	s.notify()
}

// PushWindow inserts a new, possibly-disjoint window and makes it active.
// Windows stay sorted by the created_at of their first message so the last
// window is always the most recent. Once the count exceeds MaxWindows the
// oldest non-active window is evicted.
func (s *Store) PushWindow(chatID string, messages []models.Message, nextCursor, prevCursor *string) {
	s.mu.Lock()
	chat := s.getChat(chatID)
	newWin := &models.MessageWindow{
		Messages:   messages,
		NextCursor: nextCursor,
		PrevCursor: prevCursor,
	}

	newTs := ""
	if len(messages) > 0 {
		newTs = messages[0].CreatedAt
	}
	insertIdx := len(chat.Windows)
	for i, win := range chat.Windows {
		winTs := ""
		if len(win.Messages) > 0 {
			winTs = win.Messages[0].CreatedAt
		}
		if newTs < winTs {
			insertIdx = i
			break
		}
	}
	chat.Windows = append(chat.Windows, nil)
	copy(chat.Windows[insertIdx+1:], chat.Windows[insertIdx:])
	chat.Windows[insertIdx] = newWin
	chat.ActiveWindowIndex = insertIdx
	chat.Generation++

	for len(chat.Windows) > MaxWindows {
		evictIdx := -1
		for i := range chat.Windows {
			if i != chat.ActiveWindowIndex {
				evictIdx = i
				break
			}
		}
		if evictIdx == -1 {
			break
		}
		chat.Windows = append(chat.Windows[:evictIdx], chat.Windows[evictIdx+1:]...)
		if chat.ActiveWindowIndex > evictIdx {
			chat.ActiveWindowIndex--
		}
	}
	s.mu.Unlock()
	s.notify()
}

// PrependMessages merges older messages into the head of the active window.
// Incoming entries whose id is already present are dropped. When a cursor is
// supplied it replaces the window's nextCursor.
func (s *Store) PrependMessages(chatID string, messages []models.Message, nextCursor ...*string) {
	s.mu.Lock()
	chat := s.getChat(chatID)
	win := activeWindow(chat)
	if win == nil {
		s.mu.Unlock()
		return
	}
	unique := dedup(win.Messages, messages)
	win.Messages = append(unique, win.Messages...)
	if len(nextCursor) > 0 {
		win.NextCursor = nextCursor[0]
	}
	s.mu.Unlock()
	s.notify()
}

// AppendMessages merges newer messages into the tail of the active window.
// When the supplied cursor closes the live edge (nil) and a chronologically
// next window exists, the two windows merge: the gap opened by an earlier
// jump-to-message has been paged shut.
func (s *Store) AppendMessages(chatID string, messages []models.Message, prevCursor ...*string) {
	s.mu.Lock()
	chat := s.getChat(chatID)
	win := activeWindow(chat)
	if win == nil {
		s.mu.Unlock()
		return
	}
	unique := dedup(win.Messages, messages)
	win.Messages = append(win.Messages, unique...)
	if len(prevCursor) > 0 {
		win.PrevCursor = prevCursor[0]
	}
	if win.PrevCursor == nil && chat.ActiveWindowIndex < len(chat.Windows)-1 {
		next := chat.Windows[chat.ActiveWindowIndex+1]
		merged := dedup(win.Messages, next.Messages)
		win.Messages = append(win.Messages, merged...)
		win.PrevCursor = next.PrevCursor
		idx := chat.ActiveWindowIndex + 1
		chat.Windows = append(chat.Windows[:idx], chat.Windows[idx+1:]...)
	}
	s.mu.Unlock()
	s.notify()
}

// AddMessage appends a message to the tail of the last window, creating an
// empty window first when none exist. Used for optimistic local sends and for
// live push deliveries. Adding an id already present in that window is a
// no-op, which swallows duplicate deliveries of the same confirmed message.
func (s *Store) AddMessage(chatID string, message models.Message) {
	s.mu.Lock()
	chat := s.getChat(chatID)
	if len(chat.Windows) == 0 {
		chat.Windows = []*models.MessageWindow{{}}
		chat.ActiveWindowIndex = 0
	}
	last := chat.Windows[len(chat.Windows)-1]
	for _, m := range last.Messages {
		if m.ID == message.ID {
			s.mu.Unlock()
			return
		}
	}
	last.Messages = append(last.Messages, message)
	s.mu.Unlock()
	s.notify()
}

// ConfirmPendingMessage replaces the optimistic entry carrying the given
// client-generated token with the authoritative server message, in place.
// The scan stops at the first match; tokens are unique per conversation.
// Without a matching entry (already confirmed, or its window was evicted)
// this is a no-op.
func (s *Store) ConfirmPendingMessage(chatID, clientGeneratedID string, message models.Message) {
	s.mu.Lock()
	chat, ok := s.chats[chatID]
	if !ok {
		s.mu.Unlock()
		return
	}
	for _, win := range chat.Windows {
		for i := range win.Messages {
			if win.Messages[i].ClientGeneratedID == clientGeneratedID {
				win.Messages[i] = message
				s.mu.Unlock()
				s.notify()
				return
			}
		}
	}
	s.mu.Unlock()
}

// RemovePendingMessage drops the optimistic entry with the given token, used
// to roll back a failed send. No-op when nothing matches.
func (s *Store) RemovePendingMessage(chatID, clientGeneratedID string) {
	s.mu.Lock()
	chat, ok := s.chats[chatID]
	if !ok {
		s.mu.Unlock()
		return
	}
	for _, win := range chat.Windows {
		for i := range win.Messages {
			if win.Messages[i].ClientGeneratedID == clientGeneratedID && win.Messages[i].IsPending() {
				win.Messages = append(win.Messages[:i], win.Messages[i+1:]...)
				s.mu.Unlock()
				s.notify()
				return
			}
		}
	}
	s.mu.Unlock()
}

// UpdateMessage replaces the entry with the same id in any window with the
// given server message (edit or soft delete result). No-op when absent.
func (s *Store) UpdateMessage(chatID string, message models.Message) {
	s.mu.Lock()
	chat, ok := s.chats[chatID]
	if !ok {
		s.mu.Unlock()
		return
	}
	for _, win := range chat.Windows {
		for i := range win.Messages {
			if win.Messages[i].ID == message.ID {
				win.Messages[i] = message
				s.mu.Unlock()
				s.notify()
				return
			}
		}
	}
	s.mu.Unlock()
}

// ReplaceMessages rewrites the active window's messages wholesale, keeping
// its cursors. With no state yet it becomes a single cursor-less window.
func (s *Store) ReplaceMessages(chatID string, messages []models.Message) {
	s.mu.Lock()
	if chat, ok := s.chats[chatID]; ok && len(chat.Windows) > 0 {
		if win := activeWindow(chat); win != nil {
			win.Messages = messages
			s.mu.Unlock()
			s.notify()
			return
		}
	}
	s.chats[chatID] = &models.ChatMessageState{
		Windows:           []*models.MessageWindow{{Messages: messages}},
		ActiveWindowIndex: 0,
	}
	s.mu.Unlock()
	s.notify()
}

// SetNextCursor updates the active window's older-direction cursor.
func (s *Store) SetNextCursor(chatID string, cursor *string) {
	s.mu.Lock()
	if win := activeWindow(s.getChat(chatID)); win != nil {
		win.NextCursor = cursor
	}
	s.mu.Unlock()
	s.notify()
}

// SetPrevCursor updates the active window's newer-direction cursor.
func (s *Store) SetPrevCursor(chatID string, cursor *string) {
	s.mu.Lock()
	if win := activeWindow(s.getChat(chatID)); win != nil {
		win.PrevCursor = cursor
	}
	s.mu.Unlock()
	s.notify()
}
