// Package protocol connects a freshly paired device to the messaging service.
// The pairing token minted on verification is the credential presented at
// connect; reconnect and backoff policy belong to the messaging layer, not
// here.
package protocol

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// Handle is an established messaging connection for a paired session.
type Handle interface {
	SessionID() string
	Close() error
}

// Client opens messaging connections for verified sessions.
type Client interface {
	Connect(ctx context.Context, sessionID, phone, pairingToken string) (Handle, error)
}

const handshakeTimeout = 10 * time.Second

// WSClient dials the messaging service over websocket and performs the
// pairing handshake.
type WSClient struct {
	URL    string
	dialer *websocket.Dialer
}

// NewWSClient returns a websocket protocol client for the given ws:// or
// wss:// URL.
func NewWSClient(url string) *WSClient {
	return &WSClient{
		URL: url,
		dialer: &websocket.Dialer{
			HandshakeTimeout: handshakeTimeout,
		},
	}
}

type connectRequest struct {
	Action       string `json:"action"`
	SessionID    string `json:"session_id"`
	Phone        string `json:"phone"`
	PairingToken string `json:"pairing_token"`
}

type connectResponse struct {
	Action string `json:"action"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Connect dials the service, presents the pairing token, and waits for the
// acceptance message. The returned handle owns the underlying connection.
func (c *WSClient) Connect(ctx context.Context, sessionID, phone, pairingToken string) (Handle, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("protocol: websocket URL not configured")
	}
	conn, _, err := c.dialer.DialContext(ctx, c.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("protocol: dial: %w", err)
	}
	req := connectRequest{
		Action:       "pair_connect",
		SessionID:    sessionID,
		Phone:        phone,
		PairingToken: pairingToken,
	}
	if err := conn.WriteJSON(req); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("protocol: handshake write: %w", err)
	}
	var resp connectResponse
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	} else {
		_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	}
	if err := conn.ReadJSON(&resp); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("protocol: handshake read: %w", err)
	}
	_ = conn.SetReadDeadline(time.Time{})
	if resp.Status != "accepted" {
		_ = conn.Close()
		return nil, fmt.Errorf("protocol: connect rejected: %s", resp.Error)
	}
	return &wsHandle{sessionID: sessionID, conn: conn}, nil
}

type wsHandle struct {
	sessionID string
	conn      *websocket.Conn
}

func (h *wsHandle) SessionID() string { return h.sessionID }

func (h *wsHandle) Close() error {
	_ = h.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return h.conn.Close()
}
