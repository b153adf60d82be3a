package mq

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// defaultClientID is substituted for an empty ConnectOptions.ClientID
// unless the Client was built with WithRandomClientID.
const defaultClientID = "simba_mqtt"

// Transport is the byte-oriented connection to the broker: a pair of
// opaque inbound/outbound byte streams plus a way to tear the connection
// down. Any io.ReadWriteCloser satisfies it; DialTCP, DialTLS, and
// DialWebSocket build one from a network address.
type Transport interface {
	io.Reader
	io.Writer
	Close() error
}

// DialTCP opens a plain TCP transport to addr ("host:port").
func DialTCP(ctx context.Context, addr string) (Transport, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("mq: dial tcp %s: %w", addr, err)
	}
	return conn, nil
}

// DialTLS opens a TLS-encrypted TCP transport to addr ("host:port"). A nil
// config uses the Go runtime's default TLS configuration.
func DialTLS(ctx context.Context, addr string, config *tls.Config) (Transport, error) {
	dialer := &tls.Dialer{Config: config}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("mq: dial tls %s: %w", addr, err)
	}
	return conn, nil
}

// DialWebSocket opens an MQTT-over-WebSocket transport to rawURL (ws:// or
// wss://), negotiating the "mqtt" subprotocol brokers expect. config is
// used for wss:// connections; it is ignored for ws://.
func DialWebSocket(ctx context.Context, rawURL string, config *tls.Config) (Transport, error) {
	dialer := &websocket.Dialer{
		Subprotocols:    []string{"mqtt"},
		TLSClientConfig: config,
	}
	conn, _, err := dialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("mq: dial websocket %s: %w", rawURL, err)
	}
	return &websocketTransport{conn: conn}, nil
}

// websocketTransport adapts a gorilla/websocket connection to the plain
// io.Reader/io.Writer pair Transport expects: each Write is framed as one
// binary message, and reads are buffered across message boundaries since
// the event loop consumes the stream one byte or one packet at a time.
type websocketTransport struct {
	conn *websocket.Conn
	rbuf []byte
}

func (t *websocketTransport) Read(p []byte) (int, error) {
	for len(t.rbuf) == 0 {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			return 0, err
		}
		t.rbuf = data
	}
	n := copy(p, t.rbuf)
	t.rbuf = t.rbuf[n:]
	return n, nil
}

func (t *websocketTransport) Write(p []byte) (int, error) {
	if err := t.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (t *websocketTransport) Close() error {
	return t.conn.Close()
}

// RandomClientID generates a client identifier from a random UUID, for
// callers that opt into WithRandomClientID instead of the fixed
// "simba_mqtt" default.
func RandomClientID() string {
	return "mq-" + uuid.NewString()
}
