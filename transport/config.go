package transport

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// FileConfig is the parsed form of a TOML transport configuration.
//
// Example:
//
//	transport = "websocket"
//	connect_timeout = "5s"
//
//	[websocket]
//	url = "wss://example.com/socket.io/"
type FileConfig struct {
	Transport string

	RecvBufferSize int
	ConnectTimeout time.Duration
	WriteTimeout   time.Duration

	WebSocket WebSocketFileConfig
	Polling   PollingFileConfig
	NATS      NATSFileConfig
}

// WebSocketFileConfig is the [websocket] section.
type WebSocketFileConfig struct {
	URL            string            `toml:"url"`
	Headers        map[string]string `toml:"headers"`
	MaxMessageSize int64             `toml:"max_message_size"`
}

// PollingFileConfig is the [polling] section.
type PollingFileConfig struct {
	URL     string            `toml:"url"`
	Headers map[string]string `toml:"headers"`
}

// NATSFileConfig is the [nats] section.
type NATSFileConfig struct {
	URL      string `toml:"url"`
	Subject  string `toml:"subject"`
	Name     string `toml:"name"`
	Token    string `toml:"token"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

// rawFileConfig mirrors FileConfig for decoding. Durations arrive as
// TOML strings and are parsed separately.
type rawFileConfig struct {
	Transport string `toml:"transport"`

	RecvBufferSize int    `toml:"recv_buffer_size"`
	ConnectTimeout string `toml:"connect_timeout"`
	WriteTimeout   string `toml:"write_timeout"`

	WebSocket WebSocketFileConfig `toml:"websocket"`
	Polling   PollingFileConfig   `toml:"polling"`
	NATS      NATSFileConfig      `toml:"nats"`
}

// LoadConfig loads a transport configuration from a TOML file.
func LoadConfig(path string) (*FileConfig, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(string(content))
}

// ParseConfig parses a transport configuration from TOML content.
func ParseConfig(content string) (*FileConfig, error) {
	var raw rawFileConfig
	if _, err := toml.Decode(content, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if raw.Transport == "" {
		return nil, fmt.Errorf("config missing transport selection")
	}

	fc := &FileConfig{
		Transport:      raw.Transport,
		RecvBufferSize: raw.RecvBufferSize,
		WebSocket:      raw.WebSocket,
		Polling:        raw.Polling,
		NATS:           raw.NATS,
	}

	var err error
	if fc.ConnectTimeout, err = parseTimeout("connect_timeout", raw.ConnectTimeout); err != nil {
		return nil, err
	}
	if fc.WriteTimeout, err = parseTimeout("write_timeout", raw.WriteTimeout); err != nil {
		return nil, err
	}
	return fc, nil
}

func parseTimeout(key, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

// base folds the file-level overrides onto the default base config.
func (fc *FileConfig) base() Config {
	cfg := DefaultConfig()
	if fc.RecvBufferSize > 0 {
		cfg.RecvBufferSize = fc.RecvBufferSize
	}
	if fc.ConnectTimeout > 0 {
		cfg.ConnectTimeout = fc.ConnectTimeout
	}
	if fc.WriteTimeout > 0 {
		cfg.WriteTimeout = fc.WriteTimeout
	}
	return cfg
}

// FromConfig builds the transport a file config selects.
func FromConfig(fc *FileConfig) (Transport, error) {
	switch fc.Transport {
	case "websocket":
		cfg := DefaultWebSocketConfig()
		cfg.Config = fc.base()
		cfg.URL = fc.WebSocket.URL
		cfg.Header = headerFromMap(fc.WebSocket.Headers)
		if fc.WebSocket.MaxMessageSize > 0 {
			cfg.MaxMessageSize = fc.WebSocket.MaxMessageSize
		}
		return NewWebSocketTransport(cfg)

	case "polling":
		cfg := DefaultPollingConfig()
		cfg.Config = fc.base()
		cfg.URL = fc.Polling.URL
		cfg.Header = headerFromMap(fc.Polling.Headers)
		return NewPollingTransport(cfg)

	case "nats":
		cfg := DefaultNATSConfig()
		cfg.Config = fc.base()
		if fc.NATS.URL != "" {
			cfg.URL = fc.NATS.URL
		}
		if fc.NATS.Subject != "" {
			cfg.Subject = fc.NATS.Subject
		}
		cfg.Name = fc.NATS.Name
		cfg.Token = fc.NATS.Token
		cfg.User = fc.NATS.User
		cfg.Password = fc.NATS.Password
		return NewNATSTransport(cfg)

	case "memory":
		return NewMemoryTransport(fc.base()), nil

	default:
		return nil, fmt.Errorf("unknown transport %q", fc.Transport)
	}
}

// headerFromMap converts a flat TOML header table to an http.Header.
func headerFromMap(m map[string]string) http.Header {
	if len(m) == 0 {
		return nil
	}
	h := make(http.Header, len(m))
	for k, v := range m {
		h.Set(k, v)
	}
	return h
}
