package peerjs

import (
	"testing"

	"github.com/babelcall/babelcall/pkg/signal"
)

func TestParseMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		raw      string
		wantOK   bool
		wantType string
	}{
		{
			name:     "open frame",
			raw:      `{"type":"OPEN"}`,
			wantOK:   true,
			wantType: msgOpen,
		},
		{
			name:     "offer frame",
			raw:      `{"type":"OFFER","src":"vct-abc-en","payload":{"sdp":{"type":"offer","sdp":"v=0"},"type":"media","connectionId":"mc_1"}}`,
			wantOK:   true,
			wantType: msgOffer,
		},
		{
			name:   "missing type",
			raw:    `{"src":"vct-abc-en"}`,
			wantOK: false,
		},
		{
			name:   "malformed json",
			raw:    `{"type":`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, ok := parseMessage([]byte(tt.raw))
			if ok != tt.wantOK {
				t.Fatalf("parseMessage() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && m.Type != tt.wantType {
				t.Errorf("parseMessage() type = %q, want %q", m.Type, tt.wantType)
			}
		})
	}
}

func TestParseMessageOfferPayload(t *testing.T) {
	t.Parallel()

	raw := `{"type":"OFFER","src":"vct-room-es","payload":{"sdp":{"type":"offer","sdp":"v=0\r\n"},"type":"media","connectionId":"mc_42"}}`
	m, ok := parseMessage([]byte(raw))
	if !ok {
		t.Fatal("parseMessage() rejected a valid offer frame")
	}
	if m.Src != "vct-room-es" {
		t.Errorf("src = %q, want %q", m.Src, "vct-room-es")
	}
	if m.Payload.SDP == nil || m.Payload.SDP.SDP != "v=0\r\n" {
		t.Errorf("payload sdp = %+v, want v=0", m.Payload.SDP)
	}
	if m.Payload.ConnectionID != "mc_42" {
		t.Errorf("connectionId = %q, want %q", m.Payload.ConnectionID, "mc_42")
	}
	if m.Payload.Type != connectionMedia {
		t.Errorf("payload type = %q, want %q", m.Payload.Type, connectionMedia)
	}
}

func TestClassifyError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		msgType string
		text    string
		want    signal.ErrorType
	}{
		{
			name:    "peer unavailable",
			msgType: msgError,
			text:    "Could not connect to peer vct-room-en",
			want:    signal.ErrorPeerUnavailable,
		},
		{
			name:    "id taken",
			msgType: msgIDTaken,
			text:    "ID is taken",
			want:    signal.ErrorIDTaken,
		},
		{
			name:    "other server error",
			msgType: msgError,
			text:    "Server has reached its concurrent user limit",
			want:    signal.ErrorServer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			se := classifyError(tt.msgType, tt.text)
			if se.Type != tt.want {
				t.Errorf("classifyError() type = %q, want %q", se.Type, tt.want)
			}
			if se.Message != tt.text {
				t.Errorf("classifyError() message = %q, want %q", se.Message, tt.text)
			}
		})
	}
}

func TestHTTPBaseURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"wss://0.peerjs.com", "https://0.peerjs.com"},
		{"ws://localhost:9000", "http://localhost:9000"},
		{"https://already.http", "https://already.http"},
	}
	for _, tt := range tests {
		if got := httpBaseURL(tt.in); got != tt.want {
			t.Errorf("httpBaseURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
