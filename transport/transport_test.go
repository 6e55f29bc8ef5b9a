package transport

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

// --- Frame encoding ---

func TestEncodeText(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
		want  string
	}{
		{"open", Frame{Kind: Open, Data: []byte(`{"sid":"s1"}`)}, `0{"sid":"s1"}`},
		{"close empty", Frame{Kind: Close}, "1"},
		{"ping probe", Frame{Kind: Ping, Data: []byte("probe")}, "2probe"},
		{"pong", Frame{Kind: Pong}, "3"},
		{"message", MessageFrame([]byte("hello")), "4hello"},
		{"upgrade", Frame{Kind: Upgrade}, "5"},
		{"noop", Frame{Kind: Noop}, "6"},
		{"binary", BinaryFrame([]byte{1, 2, 3, 4}), "bAQIDBA=="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeText(tt.frame)
			if string(got) != tt.want {
				t.Errorf("EncodeText = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantKind FrameKind
		wantData []byte
	}{
		{"open", `0{"sid":"s1"}`, Open, []byte(`{"sid":"s1"}`)},
		{"close", "1", Close, []byte{}},
		{"ping", "2probe", Ping, []byte("probe")},
		{"message", "4hello", Message, []byte("hello")},
		{"noop", "6", Noop, []byte{}},
		{"binary", "bAQIDBA==", MessageBinary, []byte{1, 2, 3, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := DecodeText([]byte(tt.input))
			if err != nil {
				t.Fatalf("DecodeText error: %v", err)
			}
			if f.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", f.Kind, tt.wantKind)
			}
			if !bytes.Equal(f.Data, tt.wantData) {
				t.Errorf("Data = %q, want %q", f.Data, tt.wantData)
			}
		})
	}
}

func TestDecodeText_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"kind out of range", "7"},
		{"not a digit", "xhello"},
		{"bad base64", "b%%%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeText([]byte(tt.input))
			if !errors.Is(err, ErrInvalidFrame) {
				t.Errorf("err = %v, want ErrInvalidFrame", err)
			}
		})
	}
}

func TestDecodeText_CopiesPayload(t *testing.T) {
	buf := []byte("4hello")
	f, err := DecodeText(buf)
	if err != nil {
		t.Fatalf("DecodeText error: %v", err)
	}

	buf[1] = 'X'
	if string(f.Data) != "hello" {
		t.Errorf("Data = %q, want %q after mutating the input", f.Data, "hello")
	}
}

func TestFrameKind_String(t *testing.T) {
	tests := []struct {
		kind FrameKind
		want string
	}{
		{Open, "OPEN"},
		{Close, "CLOSE"},
		{Ping, "PING"},
		{Pong, "PONG"},
		{Message, "MESSAGE"},
		{Upgrade, "UPGRADE"},
		{Noop, "NOOP"},
		{MessageBinary, "MESSAGE_BINARY"},
		{FrameKind(42), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("FrameKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

// --- Payload batches ---

func TestEncodePayload(t *testing.T) {
	frames := []Frame{
		{Kind: Ping, Data: []byte("probe")},
		MessageFrame([]byte("hi")),
	}

	got := EncodePayload(frames)
	want := "2probe\x1e4hi"
	if string(got) != want {
		t.Errorf("EncodePayload = %q, want %q", got, want)
	}
}

func TestDecodePayload(t *testing.T) {
	frames, err := DecodePayload([]byte("2probe\x1e4hi\x1ebAQI="))
	if err != nil {
		t.Fatalf("DecodePayload error: %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("got %d frames, want 3", len(frames))
	}
	if frames[0].Kind != Ping || string(frames[0].Data) != "probe" {
		t.Errorf("frame 0 = %v %q", frames[0].Kind, frames[0].Data)
	}
	if frames[1].Kind != Message || string(frames[1].Data) != "hi" {
		t.Errorf("frame 1 = %v %q", frames[1].Kind, frames[1].Data)
	}
	if frames[2].Kind != MessageBinary || !bytes.Equal(frames[2].Data, []byte{1, 2}) {
		t.Errorf("frame 2 = %v %v", frames[2].Kind, frames[2].Data)
	}
}

func TestDecodePayload_Empty(t *testing.T) {
	frames, err := DecodePayload(nil)
	if err != nil {
		t.Fatalf("DecodePayload error: %v", err)
	}
	if len(frames) != 0 {
		t.Errorf("got %d frames, want 0", len(frames))
	}
}

func TestDecodePayload_BadFrame(t *testing.T) {
	_, err := DecodePayload([]byte("4ok\x1e\x1e4also ok"))
	if !errors.Is(err, ErrInvalidFrame) {
		t.Errorf("err = %v, want ErrInvalidFrame", err)
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	frames := []Frame{
		{Kind: Open, Data: []byte(`{"sid":"abc"}`)},
		MessageFrame([]byte(`2["event",1]`)),
		BinaryFrame([]byte{0xde, 0xad, 0xbe, 0xef}),
	}

	decoded, err := DecodePayload(EncodePayload(frames))
	if err != nil {
		t.Fatalf("round trip error: %v", err)
	}
	if len(decoded) != len(frames) {
		t.Fatalf("got %d frames, want %d", len(decoded), len(frames))
	}
	for i := range frames {
		if decoded[i].Kind != frames[i].Kind || !bytes.Equal(decoded[i].Data, frames[i].Data) {
			t.Errorf("frame %d = %v %q, want %v %q", i, decoded[i].Kind, decoded[i].Data, frames[i].Kind, frames[i].Data)
		}
	}
}

// --- Handshake ---

func TestParseHandshake(t *testing.T) {
	f := Frame{Kind: Open, Data: []byte(`{"sid":"lv_VI97HAXpY6yYWAAAC","upgrades":["websocket"],"pingInterval":25000,"pingTimeout":20000,"maxPayload":1000000}`)}

	hs, err := ParseHandshake(&f)
	if err != nil {
		t.Fatalf("ParseHandshake error: %v", err)
	}
	if hs.Sid != "lv_VI97HAXpY6yYWAAAC" {
		t.Errorf("Sid = %q", hs.Sid)
	}
	if len(hs.Upgrades) != 1 || hs.Upgrades[0] != "websocket" {
		t.Errorf("Upgrades = %v", hs.Upgrades)
	}
	if hs.PingInterval != 25000 {
		t.Errorf("PingInterval = %d, want 25000", hs.PingInterval)
	}
}

func TestParseHandshake_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		frame *Frame
	}{
		{"nil frame", nil},
		{"wrong kind", &Frame{Kind: Message, Data: []byte(`{"sid":"x"}`)}},
		{"bad json", &Frame{Kind: Open, Data: []byte(`{broken`)}},
		{"missing sid", &Frame{Kind: Open, Data: []byte(`{"pingInterval":25000}`)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseHandshake(tt.frame)
			if !errors.Is(err, ErrHandshake) {
				t.Errorf("err = %v, want ErrHandshake", err)
			}
		})
	}
}

// --- Config ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.RecvBufferSize != 100 {
		t.Errorf("RecvBufferSize = %d, want 100", cfg.RecvBufferSize)
	}
	if cfg.ConnectTimeout != 10*time.Second {
		t.Errorf("ConnectTimeout = %v, want 10s", cfg.ConnectTimeout)
	}
}

// --- Performance Tests ---

func BenchmarkEncodeText(b *testing.B) {
	f := MessageFrame([]byte(`2["message",{"text":"benchmark payload"}]`))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		EncodeText(f)
	}
}

func BenchmarkDecodePayload(b *testing.B) {
	payload := EncodePayload([]Frame{
		{Kind: Ping, Data: []byte("probe")},
		MessageFrame([]byte(`2["message",{"text":"benchmark payload"}]`)),
		BinaryFrame(bytes.Repeat([]byte{0xab}, 64)),
	})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := DecodePayload(payload); err != nil {
			b.Fatal(err)
		}
	}
}
