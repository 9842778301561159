// Package logging provides the client's loggers. Each component gets a
// zerolog logger writing to both the console and a log file stored in the
// application's config directory.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

var (
	loggers   = make(map[string]zerolog.Logger)
	loggersMu sync.RWMutex
)

// GetLogger returns the logger for a component, creating its log file under
// <config dir>/Wetty/logs on first use. If the file cannot be created the
// logger falls back to console only.
func GetLogger(component string) zerolog.Logger {
	loggersMu.RLock()
	if logger, exists := loggers[component]; exists {
		loggersMu.RUnlock()
		return logger
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()
	if logger, exists := loggers[component]; exists {
		return logger
	}

	console := zerolog.ConsoleWriter{Out: os.Stdout}
	var writer io.Writer = console

	if file, err := openLogFile(component); err == nil {
		writer = zerolog.MultiLevelWriter(console, file)
	}

	logger := zerolog.New(writer).With().Timestamp().Str("component", component).Logger()
	loggers[component] = logger
	return logger
}

func openLogFile(component string) (*os.File, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	logDir := filepath.Join(configDir, "Wetty", "logs")
	if err := os.MkdirAll(logDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	logPath := filepath.Join(logDir, component+".log")
	return os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
}
