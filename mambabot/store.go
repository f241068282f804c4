package mambabot

import (
	"encoding/json"
	"errors"
	"fmt"
	"github.com/gofrs/flock"
	"github.com/lmittmann/tint"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrEventConfigLocked is returned by [EventConfigStore.Set] when another
// process holds the lock on the event config file
var ErrEventConfigLocked = errors.New("event config file is locked by another process")

// ServerEventConfig is a single server's event setup
type ServerEventConfig struct {
	// RoleID is the role mentioned when an event is submitted
	RoleID string `json:"role_id"`

	// QueueChannel is the channel ID submissions are posted to
	QueueChannel string `json:"queue_channel"`
}

func (c ServerEventConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("role_id", c.RoleID),
		slog.String("queue_channel", c.QueueChannel),
	)
}

// normalizeChannelID strips channel mention decoration, so `<#123>`
// becomes `123`
func normalizeChannelID(s string) string {
	return strings.Trim(s, "<#>")
}

// EventConfigStore holds each server's [ServerEventConfig], keyed by
// guild ID, and mirrors it to a JSON file.
//
// The file is read once by Load. Every Set rewrites the whole file
// before returning.
type EventConfigStore struct {
	path    string
	configs map[string]ServerEventConfig
	logger  *slog.Logger
	mu      sync.RWMutex
}

// NewEventConfigStore returns an empty store backed by the file at path.
// Call Load to read any existing configs.
func NewEventConfigStore(path string, logger *slog.Logger) *EventConfigStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventConfigStore{
		path:    path,
		configs: map[string]ServerEventConfig{},
		logger:  logger,
	}
}

func (s *EventConfigStore) Path() string {
	return s.path
}

// Load reads the event config file. A missing file leaves the store
// empty; any other error is returned.
func (s *EventConfigStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Info("event config file not found, starting empty", "path", s.path)
			s.configs = map[string]ServerEventConfig{}
			return nil
		}
		return fmt.Errorf("error reading event config: %w", err)
	}

	configs := map[string]ServerEventConfig{}
	if err = json.Unmarshal(data, &configs); err != nil {
		return fmt.Errorf("error parsing event config %s: %w", s.path, err)
	}
	s.configs = configs
	s.logger.Info("loaded event config", "path", s.path, "servers", len(configs))
	return nil
}

// Get returns the config for the given guild, and false if the guild
// hasn't been set up
func (s *EventConfigStore) Get(guildID string) (ServerEventConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[guildID]
	return cfg, ok
}

// All returns a copy of every stored config
func (s *EventConfigStore) All() map[string]ServerEventConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.configs)
}

// Set stores the config for the given guild and immediately rewrites
// the event config file. queueChannel may be a channel mention (`<#123>`)
// or a bare ID.
//
// The in-memory value is updated even if writing the file fails.
func (s *EventConfigStore) Set(
	guildID string,
	roleID string,
	queueChannel string,
) (ServerEventConfig, error) {
	cfg := ServerEventConfig{
		RoleID:       roleID,
		QueueChannel: normalizeChannelID(queueChannel),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.configs[guildID] = cfg
	if err := s.save(); err != nil {
		s.logger.Error(
			"error saving event config",
			tint.Err(err),
			"guild_id", guildID,
			"config", cfg,
		)
		return cfg, fmt.Errorf("error saving event config: %w", err)
	}
	s.logger.Info("saved event config", "guild_id", guildID, "config", cfg)
	return cfg, nil
}

// Save rewrites the event config file with the current configs
func (s *EventConfigStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

// save writes every config to a temp file next to the event config file,
// then renames it into place. Callers must hold s.mu.
func (s *EventConfigStore) save() error {
	lock := flock.New(s.path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock event config: %w", err)
	}
	if !locked {
		return ErrEventConfigLocked
	}
	defer func() {
		if unlockErr := lock.Unlock(); unlockErr != nil {
			s.logger.Warn("failed to unlock event config", tint.Err(unlockErr))
		}
	}()

	data, err := json.Marshal(s.configs)
	if err != nil {
		return err
	}

	dir, base := filepath.Split(s.path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, base+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if _, err = tmp.Write(data); err != nil {
		cleanup()
		return err
	}
	if err = tmp.Chmod(0o644); err != nil {
		cleanup()
		return err
	}
	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err = os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
