// Package thread drives a conversation view: opening a thread, paging older
// and newer history, jumping to an arbitrary message, and the optimistic
// send/confirm/rollback cycle. It is a thin client of the window store; all
// reconciliation rules live there and in pkg/ws.
package thread

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"Wetty/pkg/api"
	"Wetty/pkg/models"
	"Wetty/pkg/store"
)

// DefaultPageSize is how many messages one history fetch asks for.
const DefaultPageSize = 50

// flight tracks per-direction in-flight pagination for one conversation.
// The directions are independent: an older-page fetch does not block a
// newer-page fetch.
type flight struct {
	loadingOlder bool
	loadingNewer bool
}

// Controller issues REST calls for a user's conversations and applies the
// results to the window store, discarding responses that a reset or window
// push has superseded in the meantime.
type Controller struct {
	api      *api.Client
	store    *store.Store
	uid      int
	pageSize int
	log      zerolog.Logger

	mu      sync.Mutex
	flights map[string]*flight
}

// NewController builds a controller acting as user uid.
func NewController(client *api.Client, st *store.Store, uid int, logger zerolog.Logger) *Controller {
	return &Controller{
		api:      client,
		store:    st,
		uid:      uid,
		pageSize: DefaultPageSize,
		log:      logger.With().Str("component", "thread").Logger(),
		flights:  make(map[string]*flight),
	}
}

func (c *Controller) flightFor(chatID string) *flight {
	f, ok := c.flights[chatID]
	if !ok {
		f = &flight{}
		c.flights[chatID] = f
	}
	return f
}

// Open loads the newest page of a conversation and resets its windows.
func (c *Controller) Open(ctx context.Context, chatID string) error {
	page, err := c.api.ListMessages(ctx, chatID, api.MessageQuery{Max: c.pageSize})
	if err != nil {
		return err
	}
	c.store.ResetChat(chatID, page.Messages, page.NextCursor, page.PrevCursor)
	return nil
}

// LoadOlder pages older history into the active window's head. It is a no-op
// while an older-page fetch is already in flight or the window has reached
// the conversation's beginning. Responses that resolve after the chat's
// generation advanced are discarded.
func (c *Controller) LoadOlder(ctx context.Context, chatID string) error {
	c.mu.Lock()
	f := c.flightFor(chatID)
	if f.loadingOlder {
		c.mu.Unlock()
		return nil
	}
	cursor := c.store.NextCursorForChat(chatID)
	if cursor == nil {
		c.mu.Unlock()
		return nil
	}
	f.loadingOlder = true
	c.mu.Unlock()

	gen := c.store.Generation(chatID)
	page, err := c.api.ListMessages(ctx, chatID, api.MessageQuery{Before: cursor, Max: c.pageSize})

	c.mu.Lock()
	f.loadingOlder = false
	c.mu.Unlock()

	if err != nil {
		return err
	}
	if c.store.Generation(chatID) != gen {
		c.log.Debug().Str("chat", chatID).Msg("older page superseded, dropped")
		return nil
	}
	c.store.PrependMessages(chatID, page.Messages, page.NextCursor)
	return nil
}

// LoadNewer pages newer history into the active window's tail, merging with
// the chronologically next window when the gap closes. Guarded like
// LoadOlder, with an independent in-flight flag.
func (c *Controller) LoadNewer(ctx context.Context, chatID string) error {
	c.mu.Lock()
	f := c.flightFor(chatID)
	if f.loadingNewer {
		c.mu.Unlock()
		return nil
	}
	cursor := c.store.PrevCursorForChat(chatID)
	if cursor == nil {
		c.mu.Unlock()
		return nil
	}
	f.loadingNewer = true
	c.mu.Unlock()

	gen := c.store.Generation(chatID)
	page, err := c.api.ListMessages(ctx, chatID, api.MessageQuery{After: cursor, Max: c.pageSize})

	c.mu.Lock()
	f.loadingNewer = false
	c.mu.Unlock()

	if err != nil {
		return err
	}
	if c.store.Generation(chatID) != gen {
		c.log.Debug().Str("chat", chatID).Msg("newer page superseded, dropped")
		return nil
	}
	c.store.AppendMessages(chatID, page.Messages, page.PrevCursor)
	return nil
}

// JumpTo loads a window centered on the given message and pushes it as the
// active window, leaving previously loaded windows in place so the user can
// page back to them.
func (c *Controller) JumpTo(ctx context.Context, chatID, messageID string) error {
	page, err := c.api.ListMessages(ctx, chatID, api.MessageQuery{Around: &messageID, Max: c.pageSize})
	if err != nil {
		return err
	}
	c.store.PushWindow(chatID, page.Messages, page.NextCursor, page.PrevCursor)
	return nil
}

// SendOptions carries the optional reply references of a send.
type SendOptions struct {
	ReplyToID   *string
	ReplyRootID *string
	ReplyTo     *models.ReplyToMessage
}

// Send appends an optimistic pending entry, posts the message, and confirms
// the entry from the POST response. If the live delivery won the race the
// confirmation is a no-op; if the request fails the pending entry is rolled
// back and the error returned for the UI notice.
func (c *Controller) Send(ctx context.Context, chatID, text string, opts SendOptions) (*models.Message, error) {
	cgid := uuid.NewString()
	body := text
	pending := models.Message{
		ID:                models.PendingMessageID,
		ChatID:            chatID,
		SenderUID:         c.uid,
		Message:           &body,
		MessageType:       "text",
		ClientGeneratedID: cgid,
		ReplyToID:         opts.ReplyToID,
		ReplyRootID:       opts.ReplyRootID,
		ReplyToMessage:    opts.ReplyTo,
		CreatedAt:         time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
	}
	c.store.AddMessage(chatID, pending)

	msg, err := c.api.SendMessage(ctx, chatID, api.SendMessageRequest{
		Message:           text,
		MessageType:       "text",
		ClientGeneratedID: cgid,
		ReplyToID:         opts.ReplyToID,
		ReplyRootID:       opts.ReplyRootID,
	})
	if err != nil {
		c.store.RemovePendingMessage(chatID, cgid)
		return nil, err
	}

	c.store.ConfirmPendingMessage(chatID, cgid, *msg)
	return msg, nil
}

// Edit updates a message body on the server and applies the result in place.
func (c *Controller) Edit(ctx context.Context, chatID, messageID, text string) (*models.Message, error) {
	msg, err := c.api.UpdateMessage(ctx, chatID, messageID, text)
	if err != nil {
		return nil, err
	}
	c.store.UpdateMessage(chatID, *msg)
	return msg, nil
}

// Delete soft-deletes a message on the server and applies the tombstone.
func (c *Controller) Delete(ctx context.Context, chatID, messageID string) error {
	msg, err := c.api.DeleteMessage(ctx, chatID, messageID)
	if err != nil {
		return err
	}
	c.store.UpdateMessage(chatID, *msg)
	return nil
}
