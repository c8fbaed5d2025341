package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

// envOverrides are the secrets and endpoints operators typically inject
// via the environment instead of the config file. A set variable wins
// over the file value.
type envOverrides struct {
	BotToken   string `env:"BOT_TOKEN"`
	APIBaseURL string `env:"API_BASE_URL"`
}

func applyEnv(ctx context.Context, cfg *Config) error {
	var o envOverrides
	if err := envconfig.Process(ctx, &o); err != nil {
		return fmt.Errorf("parsing env vars: %w", err)
	}
	if v := strings.TrimSpace(o.BotToken); v != "" {
		cfg.Telegram.Token = v
	}
	if v := strings.TrimSpace(o.APIBaseURL); v != "" {
		cfg.ContentAPI.BaseURL = v
	}
	return nil
}
