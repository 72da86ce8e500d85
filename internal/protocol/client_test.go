package protocol

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// pairServer fakes the messaging service: it accepts connections whose
// handshake carries the expected token.
func pairServer(t *testing.T, wantToken string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer ws.Close()

		var req connectRequest
		if err := ws.ReadJSON(&req); err != nil {
			return
		}
		if req.Action != "pair_connect" {
			_ = ws.WriteJSON(connectResponse{Action: "pair_result", Status: "rejected", Error: "bad action"})
			return
		}
		if req.PairingToken != wantToken {
			_ = ws.WriteJSON(connectResponse{Action: "pair_result", Status: "rejected", Error: "invalid token"})
			return
		}
		_ = ws.WriteJSON(connectResponse{Action: "pair_result", Status: "accepted"})
		// Hold the connection until the client closes it.
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(s *httptest.Server) string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func TestConnect_Accepted(t *testing.T) {
	server := pairServer(t, "good-token")
	defer server.Close()

	c := NewWSClient(wsURL(server))
	h, err := c.Connect(context.Background(), "s1", "+15551234567", "good-token")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer h.Close()
	if h.SessionID() != "s1" {
		t.Errorf("SessionID = %q, want s1", h.SessionID())
	}
}

func TestConnect_Rejected(t *testing.T) {
	server := pairServer(t, "good-token")
	defer server.Close()

	c := NewWSClient(wsURL(server))
	if _, err := c.Connect(context.Background(), "s1", "+15551234567", "forged"); err == nil {
		t.Fatal("expected rejection for a bad token")
	} else if !strings.Contains(err.Error(), "invalid token") {
		t.Errorf("err = %v, want rejection reason", err)
	}
}

func TestConnect_NoURL(t *testing.T) {
	c := NewWSClient("")
	if _, err := c.Connect(context.Background(), "s1", "+15551234567", "tok"); err == nil {
		t.Fatal("expected error for missing URL")
	}
}
