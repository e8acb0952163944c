package config

import "time"

// Default editor settings.
const (
	DefaultAPIBaseURL     = "http://localhost:5001/api"
	DefaultSaveDebounce   = 2 * time.Second
	DefaultNotifyDebounce = 250 * time.Millisecond
)

// Settings is the resolved editor configuration.
type Settings struct {
	// APIBaseURL is the flow service address.
	APIBaseURL string
	// MediaBaseURL is the media service address. Empty disables uploads.
	MediaBaseURL string
	// RedisAddr selects the Redis fallback cache. Empty selects the
	// in-process cache.
	RedisAddr string
	// SaveDebounce is the quiet period before an auto-save fires.
	SaveDebounce time.Duration
	// NotifyDebounce is the quiet period before change listeners fire.
	NotifyDebounce time.Duration
	// OfflineFallback controls whether a failed load falls back to the
	// cache instead of erroring.
	OfflineFallback bool
}

// DefaultSettings returns the settings used when no config file is
// given.
func DefaultSettings() Settings {
	return Settings{
		APIBaseURL:      DefaultAPIBaseURL,
		SaveDebounce:    DefaultSaveDebounce,
		NotifyDebounce:  DefaultNotifyDebounce,
		OfflineFallback: true,
	}
}

// SettingsFrom resolves editor settings from a loaded Config, filling
// gaps with defaults.
func SettingsFrom(c Config) Settings {
	def := DefaultSettings()
	return Settings{
		APIBaseURL:      c.String("api_base_url", def.APIBaseURL),
		MediaBaseURL:    c.String("media_base_url", def.MediaBaseURL),
		RedisAddr:       c.String("redis_addr", def.RedisAddr),
		SaveDebounce:    c.Duration("save_debounce", def.SaveDebounce),
		NotifyDebounce:  c.Duration("notify_debounce", def.NotifyDebounce),
		OfflineFallback: c.Bool("offline_fallback", def.OfflineFallback),
	}
}
