package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	// DefaultPageLimit is the page size requested when none is configured.
	DefaultPageLimit = 50

	// TypingIdleWindow is how long after the last keystroke the local
	// typing signal stays armed before a stop is emitted.
	TypingIdleWindow = 2 * time.Second
)

// Config carries the runtime settings the entrypoints read from the
// environment.
type Config struct {
	APIBaseURL string
	SocketURL  string
	Token      string
	PageLimit  int
}

// Load reads configuration from the environment. BOARDCHAT_API_URL,
// BOARDCHAT_WS_URL and BOARDCHAT_TOKEN are required.
func Load() (Config, error) {
	cfg := Config{
		APIBaseURL: os.Getenv("BOARDCHAT_API_URL"),
		SocketURL:  os.Getenv("BOARDCHAT_WS_URL"),
		Token:      os.Getenv("BOARDCHAT_TOKEN"),
		PageLimit:  DefaultPageLimit,
	}
	if cfg.APIBaseURL == "" {
		return Config{}, fmt.Errorf("BOARDCHAT_API_URL is not set")
	}
	if cfg.SocketURL == "" {
		return Config{}, fmt.Errorf("BOARDCHAT_WS_URL is not set")
	}
	if cfg.Token == "" {
		return Config{}, fmt.Errorf("BOARDCHAT_TOKEN is not set")
	}
	if raw := os.Getenv("BOARDCHAT_PAGE_LIMIT"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return Config{}, fmt.Errorf("BOARDCHAT_PAGE_LIMIT must be a positive integer, got %q", raw)
		}
		cfg.PageLimit = limit
	}
	return cfg, nil
}
