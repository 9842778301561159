package api

import (
	"context"
	"fmt"
	"net/http"

	"Wetty/pkg/models"
)

// Members lists the memberships of a group chat.
func (c *Client) Members(ctx context.Context, chatID string) ([]models.Member, error) {
	var members []models.Member
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/group/%s/members", chatID), nil, nil, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// AddMember adds a user to a group chat, optionally with a role.
func (c *Client) AddMember(ctx context.Context, chatID string, uid int, role *string) error {
	body := map[string]any{"uid": uid}
	if role != nil {
		body["role"] = *role
	}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/group/%s/members", chatID), nil, body, nil)
}

// UpdateMemberRole changes a member's role.
func (c *Client) UpdateMemberRole(ctx context.Context, chatID string, uid int, role string) error {
	path := fmt.Sprintf("/group/%s/members/%d", chatID, uid)
	return c.do(ctx, http.MethodPut, path, nil, map[string]string{"role": role}, nil)
}

// RemoveMember removes a user from a group chat.
func (c *Client) RemoveMember(ctx context.Context, chatID string, uid int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/group/%s/members/%d", chatID, uid), nil, nil, nil)
}
