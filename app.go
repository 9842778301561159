// Package main is the entry point for the Wetty chat client engine.
package main

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"Wetty/pkg/api"
	"Wetty/pkg/config"
	"Wetty/pkg/core"
	"Wetty/pkg/db"
	"Wetty/pkg/logging"
	"Wetty/pkg/models"
	"Wetty/pkg/store"
	"Wetty/pkg/thread"
	"Wetty/pkg/ws"
)

// App wires the client together: configuration, local database, the state
// container, the REST client, the push-channel connector and the thread
// controller. A frontend binding (or the demo CLI) talks only to App.
type App struct {
	cfg       *config.Config
	gdb       *gorm.DB
	store     *store.Store
	settings  *store.Settings
	api       *api.Client
	connector *ws.Connector
	threads   *thread.Controller
}

// NewApp creates a new App. Call Startup before use.
func NewApp() *App {
	return &App{}
}

// Startup loads configuration, opens the local database, and connects the
// push channel. The REST surface is usable even while the push channel is
// still reconnecting.
func (a *App) Startup() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	log := logging.GetLogger("app")

	gdb, err := db.Init(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	a.gdb = gdb

	settings, err := store.LoadSettings(gdb)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	a.settings = settings

	a.store = store.New()

	client, err := api.NewClient(cfg.ServerURL, cfg.UserID, logging.GetLogger("api"))
	if err != nil {
		return err
	}
	a.api = client
	a.threads = thread.NewController(client, a.store, cfg.UserID, logging.GetLogger("thread"))

	connector, err := ws.NewConnector(ws.Config{
		BaseURL: cfg.ServerURL,
		UID:     cfg.UserID,
		Store:   a.store,
		Logger:  logging.GetLogger("ws"),
	})
	if err != nil {
		return err
	}
	a.connector = connector
	if err := connector.Connect(); err != nil {
		// The connector has already armed its reconnect timer; the app
		// starts in offline mode.
		log.Warn().Err(err).Msg("push channel unavailable at startup")
	}

	log.Info().Str("server", cfg.ServerURL).Int("uid", cfg.UserID).Msg("client started")
	return nil
}

// Shutdown closes the push channel for good.
func (a *App) Shutdown() {
	if a.connector != nil {
		a.connector.Close()
	}
}

// Store exposes the state container for view bindings.
func (a *App) Store() *store.Store {
	return a.store
}

// Events exposes the connector's event stream.
func (a *App) Events() <-chan core.Event {
	return a.connector.Events()
}

// Connected reports push-channel connectivity.
func (a *App) Connected() bool {
	return a.store.Connected()
}

// Chats fetches the conversation list, refreshing the local cache. When the
// backend is unreachable the cached list is returned instead.
func (a *App) Chats(ctx context.Context) ([]models.ChatListItem, error) {
	page, err := a.api.ListChats(ctx, 0, nil)
	if err != nil {
		cached, cacheErr := db.LoadChatList(a.gdb)
		if cacheErr != nil || len(cached) == 0 {
			return nil, err
		}
		return cached, nil
	}
	if err := db.SaveChatList(a.gdb, page.Chats); err != nil {
		log := logging.GetLogger("app")
		log.Warn().Err(err).Msg("chat cache update failed")
	}
	return page.Chats, nil
}

// CreateChat creates a conversation.
func (a *App) CreateChat(ctx context.Context, name *string) (*api.CreatedChat, error) {
	return a.api.CreateChat(ctx, name)
}

// ChatDetail fetches one conversation's detail view.
func (a *App) ChatDetail(ctx context.Context, id int64) (*models.Chat, error) {
	return a.api.GetChat(ctx, id)
}

// OpenChat loads the newest page of a conversation into the store.
func (a *App) OpenChat(ctx context.Context, chatID string) error {
	return a.threads.Open(ctx, chatID)
}

// LoadOlder pages older history into the open conversation.
func (a *App) LoadOlder(ctx context.Context, chatID string) error {
	return a.threads.LoadOlder(ctx, chatID)
}

// LoadNewer pages newer history into the open conversation.
func (a *App) LoadNewer(ctx context.Context, chatID string) error {
	return a.threads.LoadNewer(ctx, chatID)
}

// JumpToMessage loads a window centered on the given message.
func (a *App) JumpToMessage(ctx context.Context, chatID, messageID string) error {
	return a.threads.JumpTo(ctx, chatID, messageID)
}

// SendMessage sends text to a conversation with optimistic local echo.
func (a *App) SendMessage(ctx context.Context, chatID, text string) (*models.Message, error) {
	return a.threads.Send(ctx, chatID, text, thread.SendOptions{})
}

// SendReply sends text replying to another message.
func (a *App) SendReply(ctx context.Context, chatID, text string, replyToID, replyRootID *string) (*models.Message, error) {
	return a.threads.Send(ctx, chatID, text, thread.SendOptions{
		ReplyToID:   replyToID,
		ReplyRootID: replyRootID,
	})
}

// EditMessage edits a message body.
func (a *App) EditMessage(ctx context.Context, chatID, messageID, text string) (*models.Message, error) {
	return a.threads.Edit(ctx, chatID, messageID, text)
}

// DeleteMessage soft-deletes a message.
func (a *App) DeleteMessage(ctx context.Context, chatID, messageID string) error {
	return a.threads.Delete(ctx, chatID, messageID)
}

// Messages returns the open conversation's visible timeline.
func (a *App) Messages(chatID string) []models.Message {
	return a.store.MessagesForChat(chatID)
}

// Members lists a group chat's members.
func (a *App) Members(ctx context.Context, chatID string) ([]models.Member, error) {
	return a.api.Members(ctx, chatID)
}

// AddMember adds a user to a group chat.
func (a *App) AddMember(ctx context.Context, chatID string, uid int) error {
	return a.api.AddMember(ctx, chatID, uid, nil)
}

// UpdateMemberRole changes a member's role.
func (a *App) UpdateMemberRole(ctx context.Context, chatID string, uid int, role string) error {
	return a.api.UpdateMemberRole(ctx, chatID, uid, role)
}

// RemoveMember removes a user from a group chat.
func (a *App) RemoveMember(ctx context.Context, chatID string, uid int) error {
	return a.api.RemoveMember(ctx, chatID, uid)
}

// Locale returns the persisted locale, nil for the system default.
func (a *App) Locale() *string {
	return a.settings.Locale()
}

// SetLocale persists the selected locale.
func (a *App) SetLocale(locale *string) error {
	return a.settings.SetLocale(locale)
}
