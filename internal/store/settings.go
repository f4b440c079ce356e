/**
 * Settings store
 *
 * User configuration lives in a Redis hash so the page and agent contexts see
 * one consistent view. Reads never fail: any store failure yields defaults.
 */

package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/extractext/extractext/internal/logging"
	"github.com/extractext/extractext/internal/ocr"
)

// Settings is the user-facing configuration.
type Settings struct {
	AutoEnhance       bool `json:"autoEnhance"`
	MultiLanguage     bool `json:"multiLanguage"`
	ShowNotifications bool `json:"showNotifications"`
}

// DefaultSettings returns the out-of-the-box configuration.
func DefaultSettings() Settings {
	return Settings{
		AutoEnhance:       true,
		MultiLanguage:     false,
		ShowNotifications: true,
	}
}

// OCR reduces settings to the pipeline's read-only input.
func (s Settings) OCR() ocr.Settings {
	return ocr.Settings{
		AutoEnhance:   s.AutoEnhance,
		MultiLanguage: s.MultiLanguage,
	}
}

const settingsKey = "extractext:settings"

// SettingsStore persists Settings in Redis.
type SettingsStore struct {
	client *redis.Client
	log    *logging.Logger
}

// NewSettingsStore connects to Redis and verifies the connection.
func NewSettingsStore(redisURL string) (*SettingsStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &SettingsStore{
		client: client,
		log:    logging.NewLogger("settings"),
	}, nil
}

// Get reads the current settings. Missing fields and store failures fall back
// to defaults; Get never returns an error.
func (s *SettingsStore) Get(ctx context.Context) Settings {
	settings := DefaultSettings()

	fields, err := s.client.HGetAll(ctx, settingsKey).Result()
	if err != nil {
		s.log.Warn("settings read failed, using defaults", "error", err)
		return settings
	}

	applyField(fields, "autoEnhance", &settings.AutoEnhance)
	applyField(fields, "multiLanguage", &settings.MultiLanguage)
	applyField(fields, "showNotifications", &settings.ShowNotifications)
	return settings
}

// Set applies a partial update; only the given fields change.
func (s *SettingsStore) Set(ctx context.Context, partial map[string]bool) error {
	if len(partial) == 0 {
		return nil
	}

	values := make([]interface{}, 0, len(partial)*2)
	for field, v := range partial {
		switch field {
		case "autoEnhance", "multiLanguage", "showNotifications":
			values = append(values, field, strconv.FormatBool(v))
		default:
			return fmt.Errorf("unknown settings field: %s", field)
		}
	}

	if err := s.client.HSet(ctx, settingsKey, values...).Err(); err != nil {
		return fmt.Errorf("failed to store settings: %w", err)
	}
	return nil
}

// Close releases the Redis client.
func (s *SettingsStore) Close() error {
	return s.client.Close()
}

func applyField(fields map[string]string, name string, dst *bool) {
	raw, ok := fields[name]
	if !ok {
		return
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return
	}
	*dst = v
}
