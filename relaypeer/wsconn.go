package relaypeer

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/btcsuite/websocket"
)

// wsConn carries Envelopes over a btcsuite/websocket connection: one binary
// frame per envelope, a single kind byte followed by the payload.
type wsConn struct {
	ws *websocket.Conn
}

var upgrader = websocket.Upgrader{
	CheckOrigin:      func(r *http.Request) bool { return true },
	HandshakeTimeout: 10 * time.Second,
}

// Accept upgrades an inbound HTTP request to a relay-protocol connection.
// Used by the relay-protocol listener (C7) for every accepted sibling
// relay connection.
func Accept(w http.ResponseWriter, r *http.Request) (Conn, error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("relaypeer: upgrade: %w", err)
	}
	return &wsConn{ws: ws}, nil
}

// DialClient opens an outbound relay-protocol connection to addr:port,
// used by C6 to link to an operator-added sibling relay node.
func DialClient(addr string) (Conn, error) {
	u := url.URL{Scheme: "ws", Host: addr, Path: "/relay"}
	ws, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("relaypeer: dial %s: %w", addr, err)
	}
	return &wsConn{ws: ws}, nil
}

func (c *wsConn) ReadEnvelope() (Envelope, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return Envelope{}, err
	}
	if len(data) < 1 {
		return Envelope{}, fmt.Errorf("relaypeer: empty frame")
	}
	return Envelope{Kind: Kind(data[0]), Payload: data[1:]}, nil
}

func (c *wsConn) WriteEnvelope(e Envelope) error {
	frame := make([]byte, 1+len(e.Payload))
	frame[0] = byte(e.Kind)
	copy(frame[1:], e.Payload)
	return c.ws.WriteMessage(websocket.BinaryMessage, frame)
}

func (c *wsConn) Close() error {
	return c.ws.Close()
}

func (c *wsConn) RemoteAddr() string {
	return c.ws.RemoteAddr().String()
}

// statsCounter is a tiny helper other files use to format "accumulated
// stats" lines the way the real side channel's logStatsRecv callback would
// report them (bytes/messages since connect).
type statsCounter struct {
	bytesRecv uint64
	msgsRecv  uint64
}

func (s *statsCounter) add(n int) {
	s.bytesRecv += uint64(n)
	s.msgsRecv++
}

func (s *statsCounter) String() string {
	return fmt.Sprintf("msgs=%d bytes=%d", s.msgsRecv, s.bytesRecv)
}
