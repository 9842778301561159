package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"Wetty/pkg/models"
	"Wetty/pkg/normalize"
)

// MessagesPage is one page of conversation history. NextCursor pages older
// messages, PrevCursor newer ones; nil marks the respective boundary.
type MessagesPage struct {
	Messages   []models.Message
	NextCursor *string
	PrevCursor *string
}

// MessageQuery selects which slice of a conversation to fetch. At most one
// of Before, After, Around should be set; none fetches the newest page.
type MessageQuery struct {
	Before *string
	After  *string
	Around *string
	Max    int
}

// rawMessagesPage is the wire shape before normalization.
type rawMessagesPage struct {
	Messages   []any   `json:"messages"`
	NextCursor *string `json:"next_cursor"`
	PrevCursor *string `json:"prev_cursor"`
}

func normalizePage(raw rawMessagesPage) *MessagesPage {
	page := &MessagesPage{
		Messages:   make([]models.Message, 0, len(raw.Messages)),
		NextCursor: raw.NextCursor,
		PrevCursor: raw.PrevCursor,
	}
	for _, item := range raw.Messages {
		if msg := normalize.Message(item); msg != nil {
			page.Messages = append(page.Messages, *msg)
		}
	}
	return page
}

// ListMessages fetches a page of the conversation's history, oldest first.
func (c *Client) ListMessages(ctx context.Context, chatID string, q MessageQuery) (*MessagesPage, error) {
	query := url.Values{}
	if q.Before != nil {
		query.Set("before", *q.Before)
	}
	if q.After != nil {
		query.Set("after", *q.After)
	}
	if q.Around != nil {
		query.Set("around", *q.Around)
	}
	if q.Max > 0 {
		query.Set("max", strconv.Itoa(q.Max))
	}

	var raw rawMessagesPage
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/chats/%s/messages", chatID), query, nil, &raw); err != nil {
		return nil, err
	}
	return normalizePage(raw), nil
}

// SendMessageRequest is the body of a message send.
type SendMessageRequest struct {
	Message           string  `json:"message"`
	MessageType       string  `json:"message_type"`
	ClientGeneratedID string  `json:"client_generated_id"`
	ReplyToID         *string `json:"reply_to_id,omitempty"`
	ReplyRootID       *string `json:"reply_root_id,omitempty"`
}

// SendMessage creates a message and returns the server's canonical record.
func (c *Client) SendMessage(ctx context.Context, chatID string, req SendMessageRequest) (*models.Message, error) {
	var raw any
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/chats/%s/messages", chatID), nil, req, &raw); err != nil {
		return nil, err
	}
	msg := normalize.Message(raw)
	if msg == nil {
		return nil, fmt.Errorf("api: unexpected send response shape")
	}
	return msg, nil
}

// UpdateMessage edits a message body and returns the updated record.
func (c *Client) UpdateMessage(ctx context.Context, chatID, messageID, body string) (*models.Message, error) {
	var raw any
	path := fmt.Sprintf("/chats/%s/messages/%s", chatID, messageID)
	req := map[string]string{"message": body}
	if err := c.do(ctx, http.MethodPatch, path, nil, req, &raw); err != nil {
		return nil, err
	}
	msg := normalize.Message(raw)
	if msg == nil {
		return nil, fmt.Errorf("api: unexpected update response shape")
	}
	return msg, nil
}

// DeleteMessage soft-deletes a message and returns the tombstoned record.
func (c *Client) DeleteMessage(ctx context.Context, chatID, messageID string) (*models.Message, error) {
	var raw any
	path := fmt.Sprintf("/chats/%s/messages/%s", chatID, messageID)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil, &raw); err != nil {
		return nil, err
	}
	msg := normalize.Message(raw)
	if msg == nil {
		return nil, fmt.Errorf("api: unexpected delete response shape")
	}
	return msg, nil
}
