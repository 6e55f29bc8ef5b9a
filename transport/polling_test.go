package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// --- Unit Tests ---

func TestBuildPollingURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"http kept", "http://example.com:3000", "http://example.com:3000/socket.io/?EIO=4&transport=polling"},
		{"ws rewritten", "ws://example.com", "http://example.com/socket.io/?EIO=4&transport=polling"},
		{"wss rewritten", "wss://example.com/custom", "https://example.com/custom?EIO=4&transport=polling"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildPollingURL(tt.input)
			if err != nil {
				t.Fatalf("buildPollingURL error: %v", err)
			}
			if got != tt.want {
				t.Errorf("buildPollingURL = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewPollingTransport_MissingURL(t *testing.T) {
	if _, err := NewPollingTransport(DefaultPollingConfig()); err == nil {
		t.Error("expected error for missing URL")
	}
}

// --- Integration Tests ---

// fakePollServer scripts GET poll responses and records POST bodies.
type fakePollServer struct {
	sid       string
	openExtra []byte
	batches   chan []byte
	posts     chan []byte
	server    *httptest.Server
}

func newFakePollServer(t *testing.T, sid string) *fakePollServer {
	t.Helper()

	s := &fakePollServer{
		sid:     sid,
		batches: make(chan []byte, 16),
		posts:   make(chan []byte, 16),
	}
	s.server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.server.Close)
	return s
}

func (s *fakePollServer) handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if r.URL.Query().Get("sid") == "" {
			open := []byte(`0{"sid":"` + s.sid + `","upgrades":[],"pingInterval":25000,"pingTimeout":20000}`)
			if len(s.openExtra) > 0 {
				open = append(open, payloadSeparator)
				open = append(open, s.openExtra...)
			}
			w.Write(open)
			return
		}
		select {
		case batch := <-s.batches:
			w.Write(batch)
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
			w.Write(EncodeText(Frame{Kind: Noop}))
		}
	case http.MethodPost:
		body, _ := io.ReadAll(r.Body)
		s.posts <- body
		w.Write([]byte("ok"))
	}
}

func (s *fakePollServer) nextPost(t *testing.T) string {
	t.Helper()

	select {
	case body := <-s.posts:
		return string(body)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for POST")
		return ""
	}
}

func newTestPolling(t *testing.T, serverURL string) *PollingTransport {
	t.Helper()

	cfg := DefaultPollingConfig()
	cfg.URL = serverURL
	tr, err := NewPollingTransport(cfg)
	if err != nil {
		t.Fatalf("NewPollingTransport error: %v", err)
	}
	return tr
}

func TestPollingTransport_Connect(t *testing.T) {
	srv := newFakePollServer(t, "poll-sid-1")
	tr := newTestPolling(t, srv.server.URL)

	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	defer tr.Disconnect()

	if !tr.IsConnected() {
		t.Error("IsConnected = false after Connect")
	}
	if hs := tr.Session(); hs == nil || hs.Sid != "poll-sid-1" {
		t.Errorf("Session = %+v, want sid poll-sid-1", hs)
	}
}

func TestPollingTransport_HandshakeExtraFrames(t *testing.T) {
	srv := newFakePollServer(t, "poll-sid-2")
	srv.openExtra = []byte("4early")
	tr := newTestPolling(t, srv.server.URL)

	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	defer tr.Disconnect()

	f, err := nextFrameTimeout(t, tr)
	if err != nil {
		t.Fatalf("NextFrame error: %v", err)
	}
	if f.Kind != Message || string(f.Data) != "early" {
		t.Errorf("frame = %v %q, want MESSAGE early", f.Kind, f.Data)
	}
}

func TestPollingTransport_HandshakeExtraFramesExceedBuffer(t *testing.T) {
	srv := newFakePollServer(t, "poll-sid-7")
	srv.openExtra = EncodePayload([]Frame{
		MessageFrame([]byte("one")),
		MessageFrame([]byte("two")),
		MessageFrame([]byte("three")),
	})

	cfg := DefaultPollingConfig()
	cfg.URL = srv.server.URL
	cfg.RecvBufferSize = 1
	tr, err := NewPollingTransport(cfg)
	if err != nil {
		t.Fatalf("NewPollingTransport error: %v", err)
	}

	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	defer tr.Disconnect()

	// Every frame of the handshake batch arrives, even past the buffer.
	for _, want := range []string{"one", "two", "three"} {
		f, err := nextFrameTimeout(t, tr)
		if err != nil {
			t.Fatalf("NextFrame error: %v", err)
		}
		if f.Kind != Message || string(f.Data) != want {
			t.Errorf("frame = %v %q, want MESSAGE %q", f.Kind, f.Data, want)
		}
	}
}

func TestPollingTransport_EmitAndReceive(t *testing.T) {
	srv := newFakePollServer(t, "poll-sid-3")
	tr := newTestPolling(t, srv.server.URL)

	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	defer tr.Disconnect()

	if err := tr.Emit(MessageFrame([]byte("hello"))); err != nil {
		t.Fatalf("Emit error: %v", err)
	}
	if got := srv.nextPost(t); got != "4hello" {
		t.Errorf("POST body = %q, want %q", got, "4hello")
	}

	srv.batches <- EncodePayload([]Frame{
		{Kind: Ping, Data: []byte("hb")},
		MessageFrame([]byte("data")),
	})

	f, err := nextFrameTimeout(t, tr)
	if err != nil {
		t.Fatalf("NextFrame error: %v", err)
	}
	if f.Kind != Ping || string(f.Data) != "hb" {
		t.Errorf("frame = %v %q, want PING hb", f.Kind, f.Data)
	}

	// The ping is answered on the wire.
	if got := srv.nextPost(t); got != "3hb" {
		t.Errorf("POST body = %q, want %q", got, "3hb")
	}

	f, err = nextFrameTimeout(t, tr)
	if err != nil {
		t.Fatalf("NextFrame error: %v", err)
	}
	if f.Kind != Message || string(f.Data) != "data" {
		t.Errorf("frame = %v %q, want MESSAGE data", f.Kind, f.Data)
	}
}

func TestPollingTransport_ServerClose(t *testing.T) {
	srv := newFakePollServer(t, "poll-sid-4")
	tr := newTestPolling(t, srv.server.URL)

	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	defer tr.Disconnect()

	srv.batches <- EncodeText(Frame{Kind: Close})

	f, err := nextFrameTimeout(t, tr)
	if err != nil {
		t.Fatalf("NextFrame error: %v", err)
	}
	if f.Kind != Close {
		t.Errorf("frame = %v, want CLOSE", f.Kind)
	}

	f, err = nextFrameTimeout(t, tr)
	if f != nil || err != nil {
		t.Errorf("NextFrame = %v, %v, want nil, nil", f, err)
	}
}

// --- Failure Tests ---

func TestPollingTransport_EmitBeforeConnect(t *testing.T) {
	srv := newFakePollServer(t, "poll-sid-5")
	tr := newTestPolling(t, srv.server.URL)

	if err := tr.Emit(MessageFrame([]byte("x"))); !errors.Is(err, ErrNotConnected) {
		t.Errorf("err = %v, want ErrNotConnected", err)
	}
}

func TestPollingTransport_DisconnectPostsClose(t *testing.T) {
	srv := newFakePollServer(t, "poll-sid-6")
	tr := newTestPolling(t, srv.server.URL)

	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect error: %v", err)
	}

	if err := tr.Disconnect(); err != nil {
		t.Errorf("Disconnect error: %v", err)
	}
	if got := srv.nextPost(t); got != "1" {
		t.Errorf("POST body = %q, want close frame", got)
	}
	if tr.IsConnected() {
		t.Error("IsConnected = true after Disconnect")
	}
	if err := tr.Emit(MessageFrame([]byte("x"))); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Emit err = %v, want ErrNotConnected", err)
	}
}

func TestPollingTransport_HandshakeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no session", http.StatusBadRequest)
	}))
	defer server.Close()

	tr := newTestPolling(t, server.URL)
	if err := tr.Connect(context.Background()); !errors.Is(err, ErrHandshake) {
		t.Errorf("err = %v, want ErrHandshake", err)
	}
	if tr.IsConnected() {
		t.Error("IsConnected = true after failed handshake")
	}
}
