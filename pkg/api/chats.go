package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"Wetty/pkg/models"
)

// ChatsPage is one page of the conversation list.
type ChatsPage struct {
	Chats      []models.ChatListItem `json:"chats"`
	NextCursor *int64                `json:"next_cursor"`
}

// CreatedChat is the response to a chat creation.
type CreatedChat struct {
	ID        int64   `json:"id"`
	Name      *string `json:"name"`
	CreatedAt string  `json:"created_at"`
}

// ListChats fetches a page of the user's conversations.
func (c *Client) ListChats(ctx context.Context, limit int, after *int64) (*ChatsPage, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if after != nil {
		query.Set("after", strconv.FormatInt(*after, 10))
	}
	var page ChatsPage
	if err := c.do(ctx, http.MethodGet, "/chats", query, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// CreateChat creates a conversation, optionally named.
func (c *Client) CreateChat(ctx context.Context, name *string) (*CreatedChat, error) {
	body := map[string]any{}
	if name != nil {
		body["name"] = *name
	}
	var created CreatedChat
	if err := c.do(ctx, http.MethodPost, "/chats", nil, body, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// GetChat fetches the detail view of one conversation.
func (c *Client) GetChat(ctx context.Context, id int64) (*models.Chat, error) {
	var chat models.Chat
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/chats/%d", id), nil, nil, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}
