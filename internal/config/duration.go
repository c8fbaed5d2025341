package config

import (
	"fmt"
	"strings"
	"time"
)

// ParseDuration reads one of the config's Go duration fields (timeouts,
// retention). Empty or zero falls back to def; negatives are rejected.
// Components with a built-in default pass def 0 and apply their own.
func ParseDuration(path, raw string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: negative duration %q", path, raw)
	}
	if d == 0 {
		return def, nil
	}
	return d, nil
}
