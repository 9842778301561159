// Package normalize converts heterogeneous raw payloads (REST bodies, push
// frames) into the canonical message record. Everything here is pure: bad
// input yields nil, never an error or a panic.
package normalize

import (
	"strconv"
	"time"

	"Wetty/pkg/models"
)

// isoNow returns the current instant in the ISO 8601 shape the server uses.
func isoNow() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}

// asString renders a scalar the way the server would have serialized it.
// Numeric ids arrive as JSON numbers on some paths and as strings on others.
func asString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(s), true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	default:
		return "", false
	}
}

func stringPtr(v any) *string {
	if s, ok := asString(v); ok {
		return &s
	}
	return nil
}

func asInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	default:
		return 0
	}
}

func asBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case float64:
		return b != 0
	case string:
		return b != ""
	default:
		return false
	}
}

// replySnapshot normalizes the nested replied-to message object with the same
// defaulting rules as the top level. A missing object stays absent (nil),
// which is distinct from a reply target that was explicitly null.
func replySnapshot(v any) *models.ReplyToMessage {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	snap := &models.ReplyToMessage{
		ID:        models.PendingMessageID,
		SenderUID: asInt(obj["sender_uid"]),
	}
	if id, ok := asString(obj["id"]); ok {
		snap.ID = id
	}
	snap.Message = stringPtr(obj["message"])
	snap.DeletedAt = stringPtr(obj["deleted_at"])
	return snap
}

// Message maps an arbitrary decoded payload to the canonical record, or nil
// when the payload has no resolvable conversation identifier. The server
// sends the group/chat id as "gid" on push frames; that alias takes the place
// of the canonical "chat_id" field when present.
func Message(payload any) *models.Message {
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil
	}

	chatID, ok := asString(obj["gid"])
	if !ok {
		chatID, ok = asString(obj["chat_id"])
	}
	if !ok {
		return nil
	}

	msg := &models.Message{
		ID:          models.PendingMessageID,
		ChatID:      chatID,
		SenderUID:   asInt(obj["sender_uid"]),
		MessageType: "text",
		CreatedAt:   isoNow(),
	}
	if id, ok := asString(obj["id"]); ok {
		msg.ID = id
	}
	if cgid, ok := obj["client_generated_id"].(string); ok {
		msg.ClientGeneratedID = cgid
	}
	msg.Message = stringPtr(obj["message"])
	if mt, ok := obj["message_type"].(string); ok {
		msg.MessageType = mt
	}
	if created, ok := obj["created_at"].(string); ok {
		msg.CreatedAt = created
	}
	msg.ReplyToID = stringPtr(obj["reply_to_id"])
	msg.ReplyRootID = stringPtr(obj["reply_root_id"])
	msg.ReplyToMessage = replySnapshot(obj["reply_to_message"])
	msg.UpdatedAt = stringPtr(obj["updated_at"])
	msg.DeletedAt = stringPtr(obj["deleted_at"])
	msg.HasAttachments = asBool(obj["has_attachments"])
	return msg
}
