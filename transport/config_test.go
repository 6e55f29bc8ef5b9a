package transport

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// --- Parsing ---

func TestParseConfig_WebSocket(t *testing.T) {
	content := `
transport = "websocket"
recv_buffer_size = 25
connect_timeout = "5s"

[websocket]
url = "wss://example.com/socket.io/"
max_message_size = 2097152

[websocket.headers]
Authorization = "Bearer abc"
`
	fc, err := ParseConfig(content)
	if err != nil {
		t.Fatalf("ParseConfig error: %v", err)
	}

	if fc.Transport != "websocket" {
		t.Errorf("Transport = %q", fc.Transport)
	}
	if fc.RecvBufferSize != 25 {
		t.Errorf("RecvBufferSize = %d, want 25", fc.RecvBufferSize)
	}
	if fc.ConnectTimeout != 5*time.Second {
		t.Errorf("ConnectTimeout = %v, want 5s", fc.ConnectTimeout)
	}
	if fc.WebSocket.URL != "wss://example.com/socket.io/" {
		t.Errorf("WebSocket.URL = %q", fc.WebSocket.URL)
	}
	if fc.WebSocket.MaxMessageSize != 2097152 {
		t.Errorf("MaxMessageSize = %d", fc.WebSocket.MaxMessageSize)
	}
	if fc.WebSocket.Headers["Authorization"] != "Bearer abc" {
		t.Errorf("Headers = %v", fc.WebSocket.Headers)
	}
}

func TestParseConfig_MissingTransport(t *testing.T) {
	if _, err := ParseConfig(`recv_buffer_size = 10`); err == nil {
		t.Error("expected error for missing transport selection")
	}
}

func TestParseConfig_Malformed(t *testing.T) {
	if _, err := ParseConfig(`transport = [broken`); err == nil {
		t.Error("expected parse error")
	}
}

func TestParseConfig_BadDuration(t *testing.T) {
	content := `
transport = "memory"
connect_timeout = "soon"
`
	if _, err := ParseConfig(content); err == nil {
		t.Error("expected error for an unparseable duration")
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "transport.toml")
	content := `
transport = "nats"

[nats]
url = "nats://broker:4222"
subject = "chat"
token = "s3cret"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write error: %v", err)
	}

	fc, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if fc.Transport != "nats" {
		t.Errorf("Transport = %q", fc.Transport)
	}
	if fc.NATS.URL != "nats://broker:4222" {
		t.Errorf("NATS.URL = %q", fc.NATS.URL)
	}
	if fc.NATS.Subject != "chat" {
		t.Errorf("NATS.Subject = %q", fc.NATS.Subject)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("expected error for a missing file")
	}
}

// --- Construction ---

func TestFromConfig_WebSocket(t *testing.T) {
	fc, err := ParseConfig(`
transport = "websocket"
write_timeout = "3s"

[websocket]
url = "ws://localhost:3000"
`)
	if err != nil {
		t.Fatalf("ParseConfig error: %v", err)
	}

	tr, err := FromConfig(fc)
	if err != nil {
		t.Fatalf("FromConfig error: %v", err)
	}
	ws, ok := tr.(*WebSocketTransport)
	if !ok {
		t.Fatalf("transport type = %T, want *WebSocketTransport", tr)
	}
	if ws.config.WriteTimeout != 3*time.Second {
		t.Errorf("WriteTimeout = %v, want 3s", ws.config.WriteTimeout)
	}
}

func TestFromConfig_Polling(t *testing.T) {
	fc, err := ParseConfig(`
transport = "polling"

[polling]
url = "http://localhost:3000"
`)
	if err != nil {
		t.Fatalf("ParseConfig error: %v", err)
	}

	tr, err := FromConfig(fc)
	if err != nil {
		t.Fatalf("FromConfig error: %v", err)
	}
	if _, ok := tr.(*PollingTransport); !ok {
		t.Fatalf("transport type = %T, want *PollingTransport", tr)
	}
}

func TestFromConfig_NATS(t *testing.T) {
	fc, err := ParseConfig(`
transport = "nats"

[nats]
subject = "rooms"
`)
	if err != nil {
		t.Fatalf("ParseConfig error: %v", err)
	}

	tr, err := FromConfig(fc)
	if err != nil {
		t.Fatalf("FromConfig error: %v", err)
	}
	nt, ok := tr.(*NATSTransport)
	if !ok {
		t.Fatalf("transport type = %T, want *NATSTransport", tr)
	}
	if nt.config.Subject != "rooms" {
		t.Errorf("Subject = %q, want rooms", nt.config.Subject)
	}
}

func TestFromConfig_Memory(t *testing.T) {
	fc, err := ParseConfig(`transport = "memory"`)
	if err != nil {
		t.Fatalf("ParseConfig error: %v", err)
	}

	tr, err := FromConfig(fc)
	if err != nil {
		t.Fatalf("FromConfig error: %v", err)
	}
	if _, ok := tr.(*MemoryTransport); !ok {
		t.Fatalf("transport type = %T, want *MemoryTransport", tr)
	}
}

func TestFromConfig_Unknown(t *testing.T) {
	fc := &FileConfig{Transport: "carrier-pigeon"}
	if _, err := FromConfig(fc); err == nil {
		t.Error("expected error for unknown transport")
	}
}
