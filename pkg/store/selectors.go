package store

import "Wetty/pkg/models"

// MessagesForChat returns a copy of the active window's messages, oldest
// first. An unknown conversation yields an empty slice.
func (s *Store) MessagesForChat(chatID string) []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chat, ok := s.chats[chatID]
	if !ok {
		return nil
	}
	win := activeWindow(chat)
	if win == nil {
		return nil
	}
	out := make([]models.Message, len(win.Messages))
	copy(out, win.Messages)
	return out
}

// AllMessagesForChat flattens every loaded window of the conversation, in
// window order. Used by delivery reconciliation, which must see entries in
// non-active windows too.
func (s *Store) AllMessagesForChat(chatID string) []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chat, ok := s.chats[chatID]
	if !ok {
		return nil
	}
	var out []models.Message
	for _, win := range chat.Windows {
		out = append(out, win.Messages...)
	}
	return out
}

// NextCursorForChat returns the active window's cursor for loading older
// messages, nil at the conversation's beginning or when nothing is loaded.
func (s *Store) NextCursorForChat(chatID string) *string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chat, ok := s.chats[chatID]
	if !ok {
		return nil
	}
	if win := activeWindow(chat); win != nil {
		return win.NextCursor
	}
	return nil
}

// PrevCursorForChat returns the active window's cursor for loading newer
// messages, nil at the live edge or when nothing is loaded.
func (s *Store) PrevCursorForChat(chatID string) *string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chat, ok := s.chats[chatID]
	if !ok {
		return nil
	}
	if win := activeWindow(chat); win != nil {
		return win.PrevCursor
	}
	return nil
}

// Generation returns the conversation's version stamp, 0 when unknown.
func (s *Store) Generation(chatID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if chat, ok := s.chats[chatID]; ok {
		return chat.Generation
	}
	return 0
}

// WindowCount reports how many windows the conversation currently holds.
func (s *Store) WindowCount(chatID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if chat, ok := s.chats[chatID]; ok {
		return len(chat.Windows)
	}
	return 0
}

// ActiveWindowIndex reports which window backs the visible view.
func (s *Store) ActiveWindowIndex(chatID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if chat, ok := s.chats[chatID]; ok {
		return chat.ActiveWindowIndex
	}
	return 0
}

// SetConnected records push-channel connectivity for the UI indicator.
func (s *Store) SetConnected(connected bool) {
	s.mu.Lock()
	changed := s.wsConnected != connected
	s.wsConnected = connected
	s.mu.Unlock()
	if changed {
		s.notify()
	}
}

// Connected reports the last known push-channel connectivity.
func (s *Store) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wsConnected
}
