package store

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"

	"Wetty/pkg/models"
)

// settingsKey is the row key of the persisted settings blob.
const settingsKey = "settings"

// settingsBlob is the JSON shape stored in the local database. Matches what
// the mobile client keeps in its settings storage.
type settingsBlob struct {
	Locale *string `json:"locale"`
}

// Settings holds the persisted client settings. The blob is read once at
// startup and written back on every change; a corrupt or missing row falls
// back to defaults.
type Settings struct {
	mu     sync.RWMutex
	db     *gorm.DB
	locale *string
}

// LoadSettings reads the settings blob from the database.
func LoadSettings(db *gorm.DB) (*Settings, error) {
	s := &Settings{db: db}

	var row models.Setting
	err := db.Where("key = ?", settingsKey).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}

	var blob settingsBlob
	if err := json.Unmarshal([]byte(row.Value), &blob); err != nil {
		// Corrupt blob: start from defaults rather than failing startup.
		return s, nil
	}
	s.locale = blob.Locale
	return s, nil
}

// Locale returns the selected locale, nil when the system default applies.
func (s *Settings) Locale() *string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locale
}

// SetLocale updates the locale and persists the settings blob.
func (s *Settings) SetLocale(locale *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locale = locale

	raw, err := json.Marshal(settingsBlob{Locale: locale})
	if err != nil {
		return err
	}
	return s.db.Save(&models.Setting{
		Key:       settingsKey,
		Value:     string(raw),
		UpdatedAt: time.Now(),
	}).Error
}
