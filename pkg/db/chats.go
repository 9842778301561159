package db

import (
	"time"

	"gorm.io/gorm"

	"Wetty/pkg/models"
)

// SaveChatList upserts the fetched conversation list into the local cache so
// the chat screen can paint before the next fetch completes.
func SaveChatList(gdb *gorm.DB, chats []models.ChatListItem) error {
	now := time.Now()
	for _, chat := range chats {
		var entry models.ChatCacheEntry
		err := gdb.Where("chat_id = ?", chat.ID).First(&entry).Error
		if err != nil {
			entry = models.ChatCacheEntry{
				ChatID:        chat.ID,
				Name:          chat.Name,
				LastMessageAt: chat.LastMessageAt,
			}
			if err := gdb.Create(&entry).Error; err != nil {
				return err
			}
			continue
		}
		entry.Name = chat.Name
		entry.LastMessageAt = chat.LastMessageAt
		entry.UpdatedAt = now
		if err := gdb.Save(&entry).Error; err != nil {
			return err
		}
	}
	return nil
}

// LoadChatList returns the cached conversation list, most recent activity
// first.
func LoadChatList(gdb *gorm.DB) ([]models.ChatListItem, error) {
	var entries []models.ChatCacheEntry
	if err := gdb.Order("last_message_at DESC").Find(&entries).Error; err != nil {
		return nil, err
	}
	chats := make([]models.ChatListItem, 0, len(entries))
	for _, entry := range entries {
		chats = append(chats, models.ChatListItem{
			ID:            entry.ChatID,
			Name:          entry.Name,
			LastMessageAt: entry.LastMessageAt,
		})
	}
	return chats, nil
}
