// Package models defines the data models for the Wetty chat client.
package models

import "time"

// PendingMessageID is the sentinel id carried by a locally-created message
// that the server has not confirmed yet.
const PendingMessageID = "0"

// ReplyToMessage is the denormalized snapshot of a replied-to message that the
// server embeds in a reply.
type ReplyToMessage struct {
	ID        string  `json:"id"`
	Message   *string `json:"message"`
	SenderUID int     `json:"sender_uid"`
	DeletedAt *string `json:"deleted_at"`
}

// Message is the canonical message record shared by REST responses and push
// deliveries. Timestamps are ISO 8601 strings as sent by the server, so
// lexicographic order matches chronological order.
type Message struct {
	ID                string          `json:"id"`
	ChatID            string          `json:"chat_id"`
	SenderUID         int             `json:"sender_uid"`
	Message           *string         `json:"message"`
	MessageType       string          `json:"message_type"`
	ClientGeneratedID string          `json:"client_generated_id"`
	ReplyToID         *string         `json:"reply_to_id"`
	ReplyRootID       *string         `json:"reply_root_id"`
	ReplyToMessage    *ReplyToMessage `json:"reply_to_message,omitempty"`
	CreatedAt         string          `json:"created_at"`
	UpdatedAt         *string         `json:"updated_at"`
	DeletedAt         *string         `json:"deleted_at"`
	HasAttachments    bool            `json:"has_attachments"`
}

// IsPending reports whether the message is a local optimistic entry awaiting
// server confirmation.
func (m *Message) IsPending() bool {
	return m.ID == PendingMessageID
}

// MessageWindow is a contiguous, gapless run of messages for one conversation,
// oldest first. NextCursor pages older messages preceding the window start
// (nil once the conversation beginning is reached); PrevCursor pages newer
// messages following the window end (nil at the live edge).
type MessageWindow struct {
	Messages   []Message
	NextCursor *string
	PrevCursor *string
}

// ChatMessageState holds the loaded windows of a single conversation. A second
// window appears when the user jumps to a message outside the loaded range.
// Generation increases on every reset or window push and lets callers discard
// pagination responses that resolved after a newer load superseded them.
type ChatMessageState struct {
	Windows           []*MessageWindow
	ActiveWindowIndex int
	Generation        int
}

// ChatListItem is one row of the conversation list.
type ChatListItem struct {
	ID            int64   `json:"id"`
	Name          *string `json:"name"`
	LastMessageAt *string `json:"last_message_at"`
}

// Chat is the detail view of a conversation.
type Chat struct {
	ID          int64   `json:"id"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Avatar      *string `json:"avatar"`
	CreatedAt   string  `json:"created_at"`
	Visibility  string  `json:"visibility"`
}

// Member is a group membership entry.
type Member struct {
	UID      int     `json:"uid"`
	Role     string  `json:"role"`
	JoinedAt string  `json:"joined_at,omitempty"`
	Username *string `json:"username"`
}

// Setting is a persisted client setting (e.g. the selected locale), stored as
// a key/value row in the local database.
type Setting struct {
	Key       string    `gorm:"primarykey" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ChatCacheEntry is a locally cached conversation-list row so the chat list
// can be shown before the first REST round-trip completes.
type ChatCacheEntry struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	ChatID        int64     `gorm:"uniqueIndex" json:"chatId"`
	Name          *string   `json:"name"`
	LastMessageAt *string   `json:"lastMessageAt"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
