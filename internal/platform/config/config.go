package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// Relay configures cmd/relay.
type Relay struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"3001"`
	WSPath    string `env:"WS_PATH" default:"/ws"`
	AppURL    string `env:"APP_URL"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	MaxWebSocketConnections int     `env:"MAX_WEBSOCKET_CONNECTIONS" default:"10000"`
	MaxConnectionsPerIP     int     `env:"MAX_CONNECTIONS_PER_IP" default:"100"`
	ConnectionRatePerIP     float64 `env:"CONNECTION_RATE_PER_IP" default:"10"`
	ConnectionRateBurst     int     `env:"CONNECTION_RATE_BURST" default:"20"`

	// SubmitRatePerIP of zero leaves the submission endpoint unthrottled.
	SubmitRatePerIP float64 `env:"SUBMIT_RATE_PER_IP" default:"0"`
	SubmitRateBurst int     `env:"SUBMIT_RATE_BURST" default:"50"`

	SubscriberBufferSize int           `env:"SUBSCRIBER_BUFFER_SIZE" default:"64"`
	WriteTimeout         time.Duration `env:"WRITE_TIMEOUT" default:"5s"`
}

// Client configures cmd/chat and cmd/relayctl.
type Client struct {
	ChatBackendURL string `env:"CHAT_BACKEND_URL" default:"http://localhost:5000"`
	RelayURL       string `env:"RELAY_URL" default:"http://localhost:3001"`
	SubscriberURL  string `env:"SUBSCRIBER_URL" default:"ws://localhost:3001/ws/{user_id}"`
	UserID         string `env:"USER_ID"`

	ReconnectDelay time.Duration `env:"RECONNECT_DELAY" default:"3s"`
	IdleTimeout    time.Duration `env:"IDLE_TIMEOUT" default:"100s"`
	SubmitTimeout  time.Duration `env:"SUBMIT_TIMEOUT" default:"30s"`

	WorkspaceRoot string `env:"WORKSPACE_ROOT"`
	// FolderUpdatesURL of "" turns off live folder refreshes.
	FolderUpdatesURL string `env:"FOLDER_UPDATES_URL" default:"ws://localhost:5000/ws-folder-updates"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
	LogFile   string `env:"LOG_FILE" default:"aiversity-chat.log"`
}

func loadDotEnv() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}
}

// LoadRelay reads the relay configuration from the environment.
func LoadRelay() (*Relay, error) {
	loadDotEnv()

	var cfg Relay
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validateRelay(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadClient reads the chat client configuration from the environment.
func LoadClient() (*Client, error) {
	loadDotEnv()

	var cfg Client
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validateClient(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validateRelay(cfg *Relay) error {
	if cfg.Port == "" {
		return errors.New("PORT is required")
	}
	if !strings.HasPrefix(cfg.WSPath, "/") {
		return fmt.Errorf("WS_PATH must start with '/', got %q", cfg.WSPath)
	}
	if cfg.MaxWebSocketConnections < 1 {
		return errors.New("MAX_WEBSOCKET_CONNECTIONS must be at least 1")
	}
	if cfg.MaxConnectionsPerIP < 1 {
		return errors.New("MAX_CONNECTIONS_PER_IP must be at least 1")
	}
	if cfg.ConnectionRatePerIP <= 0 {
		return errors.New("CONNECTION_RATE_PER_IP must be positive")
	}
	if cfg.ConnectionRateBurst < 1 {
		return errors.New("CONNECTION_RATE_BURST must be at least 1")
	}
	if cfg.SubmitRatePerIP < 0 {
		return errors.New("SUBMIT_RATE_PER_IP must not be negative")
	}
	if cfg.SubmitRatePerIP > 0 && cfg.SubmitRateBurst < 1 {
		return errors.New("SUBMIT_RATE_BURST must be at least 1 when SUBMIT_RATE_PER_IP is set")
	}
	if cfg.SubscriberBufferSize < 1 {
		return errors.New("SUBSCRIBER_BUFFER_SIZE must be at least 1")
	}
	if cfg.WriteTimeout <= 0 {
		return errors.New("WRITE_TIMEOUT must be positive")
	}
	if cfg.AppEnv == "production" && cfg.AppURL == "" {
		return errors.New("APP_URL is required in production")
	}
	return nil
}

func validateClient(cfg *Client) error {
	for name, raw := range map[string]string{
		"CHAT_BACKEND_URL": cfg.ChatBackendURL,
		"RELAY_URL":        cfg.RelayURL,
	} {
		if err := validateURL(name, raw, "http", "https"); err != nil {
			return err
		}
	}

	// Validate with the identity placeholder filled in.
	sample := strings.ReplaceAll(cfg.SubscriberURL, "{user_id}", "user")
	if err := validateURL("SUBSCRIBER_URL", sample, "ws", "wss"); err != nil {
		return err
	}

	if cfg.FolderUpdatesURL != "" {
		if err := validateURL("FOLDER_UPDATES_URL", cfg.FolderUpdatesURL, "ws", "wss"); err != nil {
			return err
		}
	}

	if cfg.ReconnectDelay <= 0 {
		return errors.New("RECONNECT_DELAY must be positive")
	}
	if cfg.IdleTimeout <= 0 {
		return errors.New("IDLE_TIMEOUT must be positive")
	}
	if cfg.SubmitTimeout <= 0 {
		return errors.New("SUBMIT_TIMEOUT must be positive")
	}
	return nil
}

func validateURL(name, raw string, schemes ...string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", name)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", name, err)
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%s must be an absolute %s URL, got %q", name, strings.Join(schemes, "/"), raw)
}
