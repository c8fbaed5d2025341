package config

type Config struct {
	Telegram   TelegramConfig   `json:"telegram"`
	ContentAPI ContentAPIConfig `json:"content_api"`
	Poller     PollerConfig     `json:"poller"`
	Logging    LoggingConfig    `json:"logging"`
	Storage    *StorageConfig   `json:"storage,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// AdminUserIDs are the operators allowed to matter operationally
	// (log group membership, future control surface).
	AdminUserIDs []int64 `json:"admin_user_ids,omitempty"`
	// GeneralChannel is the primary channel every post is first sent to.
	GeneralChannel int64 `json:"general_channel"`
	// GroupLog is the operator chat the telegram log sink posts into.
	GroupLog string `json:"group_log,omitempty"`
	// Timeout is a Go duration string (e.g. "10s") bounding every Bot
	// API call.
	Timeout string `json:"timeout,omitempty"`
	// SendRate caps platform calls per second during delivery.
	SendRate int `json:"send_rate,omitempty"`
}

type ContentAPIConfig struct {
	BaseURL string `json:"base_url"`
	// Timeout is a Go duration string (e.g. "10s").
	Timeout string `json:"timeout,omitempty"`
}

type PollerConfig struct {
	Enabled  bool   `json:"enabled"`
	Timezone string `json:"timezone,omitempty"`
	// CycleTimeout is a Go duration string bounding one poll cycle.
	CycleTimeout string `json:"cycle_timeout,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// StorageConfig controls the optional delivery audit store.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./pubbot.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string
	Retention   string `json:"retention,omitempty"`    // Go duration string
}
