package mq

import (
	"bytes"
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

// newTestClient wires a Client to one end of an in-memory net.Pipe and
// returns the other end for a test to play broker. errs receives every
// error OnErrorFunc is invoked with, buffered generously so a test that
// never drains it still doesn't block the worker.
func newTestClient(t *testing.T, onPublish OnPublishFunc) (*Client, net.Conn, chan error) {
	t.Helper()
	clientSide, brokerSide := net.Pipe()
	errs := make(chan error, 16)
	if onPublish == nil {
		onPublish = func(c *Client, topic string, payload io.Reader, size int) error {
			_, err := io.CopyN(io.Discard, payload, int64(size))
			return err
		}
	}
	c := New("test", clientSide, onPublish, WithOnError(func(c *Client, err error) {
		errs <- err
	}))
	t.Cleanup(func() {
		_ = c.Close()
	})
	return c, brokerSide, errs
}

// readExactly reads exactly n bytes from conn or fails the test.
func readExactly(t *testing.T, conn net.Conn, n int) []byte {
	t.Helper()
	buf := make([]byte, n)
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatalf("read %d bytes: %v", n, err)
	}
	return buf
}

func TestConnectAccepted(t *testing.T) {
	c, broker, _ := newTestClient(t, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		got := readExactly(t, broker, 26)
		want := []byte{0x10, 0x18, 0x00, 0x04, 'M', 'Q', 'T', 'T', 0x04, 0x02, 0x01, 0x2c, 0x00, 0x0c}
		if !bytes.Equal(got[:14], want) {
			t.Errorf("CONNECT header = % x, want % x", got[:14], want)
		}
		if !bytes.Equal(got[14:], []byte{0x00, 0x0a, 's', 'i', 'm', 'b', 'a', '_', 'm', 'q', 't', 't'}) {
			t.Errorf("CONNECT client id bytes = % x", got[14:])
		}
		if _, err := broker.Write([]byte{0x20, 0x02, 0x00, 0x00}); err != nil {
			t.Errorf("write CONNACK: %v", err)
		}
	}()

	if err := c.Connect(nil); err != nil {
		t.Fatalf("Connect() = %v, want nil", err)
	}
	<-done
	if c.state != stateConnected {
		t.Errorf("state = %v, want connected", c.state)
	}
	if c.outstandingOp != outstandingNone {
		t.Errorf("outstandingOp = %v, want none", c.outstandingOp)
	}
}

func TestConnectRejected(t *testing.T) {
	c, broker, _ := newTestClient(t, nil)

	go func() {
		readExactly(t, broker, 26)
		_, _ = broker.Write([]byte{0x20, 0x02, 0x00, 0x05})
	}()

	err := c.Connect(nil)
	if !errors.Is(err, ErrConnectRejected) {
		t.Fatalf("Connect() = %v, want ErrConnectRejected", err)
	}
	if c.state != stateDisconnected {
		t.Errorf("state = %v, want disconnected after rejection", c.state)
	}
}

// connectedClient drives a full accepted handshake and returns a client
// past that point, ready for a scenario to exercise.
func connectedClient(t *testing.T, onPublish OnPublishFunc) (*Client, net.Conn, chan error) {
	t.Helper()
	c, broker, errs := newTestClient(t, onPublish)
	go func() {
		readExactly(t, broker, 26)
		_, _ = broker.Write([]byte{0x20, 0x02, 0x00, 0x00})
	}()
	if err := c.Connect(nil); err != nil {
		t.Fatalf("Connect() = %v, want nil", err)
	}
	return c, broker, errs
}

func TestPublishQoS1(t *testing.T) {
	c, broker, _ := connectedClient(t, nil)

	go func() {
		got := readExactly(t, broker, 9)
		want := []byte{0x32, 0x07, 0x00, 0x01, 'a', 0x00, 0x01, 'h', 'i'}
		if !bytes.Equal(got, want) {
			t.Errorf("PUBLISH bytes = % x, want % x", got, want)
		}
		_, _ = broker.Write([]byte{0x40, 0x02, 0x00, 0x01})
	}()

	err := c.Publish(Message{Topic: "a", Payload: []byte("hi"), QoS: 1})
	if err != nil {
		t.Fatalf("Publish() = %v, want nil", err)
	}
	if c.outstandingOp != outstandingNone {
		t.Errorf("outstandingOp = %v, want none", c.outstandingOp)
	}
}

func TestSubscribeGranted(t *testing.T) {
	c, broker, _ := connectedClient(t, nil)

	go func() {
		got := readExactly(t, broker, 8)
		want := []byte{0x82, 0x06, 0x00, 0x01, 0x00, 0x01, 'x', 0x01}
		if !bytes.Equal(got, want) {
			t.Errorf("SUBSCRIBE bytes = % x, want % x", got, want)
		}
		_, _ = broker.Write([]byte{0x90, 0x03, 0x00, 0x01, 0x01})
	}()

	qos, err := c.Subscribe(Message{Topic: "x", QoS: 1})
	if err != nil {
		t.Fatalf("Subscribe() = %v, want nil", err)
	}
	if qos != 1 {
		t.Errorf("granted QoS = %d, want 1", qos)
	}
}

func TestSubscribeRejected(t *testing.T) {
	c, broker, _ := connectedClient(t, nil)

	go func() {
		readExactly(t, broker, 8)
		_, _ = broker.Write([]byte{0x90, 0x03, 0x00, 0x01, 0x80})
	}()

	_, err := c.Subscribe(Message{Topic: "x", QoS: 1})
	if !errors.Is(err, ErrSubscribeRejected) {
		t.Fatalf("Subscribe() = %v, want ErrSubscribeRejected", err)
	}
}

func TestInboundPublishQoS0(t *testing.T) {
	received := make(chan struct {
		topic   string
		payload []byte
	}, 1)
	onPublish := func(c *Client, topic string, payload io.Reader, size int) error {
		buf := make([]byte, size)
		if _, err := io.ReadFull(payload, buf); err != nil {
			return err
		}
		received <- struct {
			topic   string
			payload []byte
		}{topic, buf}
		return nil
	}

	_, broker, _ := connectedClient(t, onPublish)

	if _, err := broker.Write([]byte{0x30, 0x06, 0x00, 0x01, 't', 'v', 'v', 'v'}); err != nil {
		t.Fatalf("write PUBLISH: %v", err)
	}

	select {
	case got := <-received:
		if got.topic != "t" {
			t.Errorf("topic = %q, want %q", got.topic, "t")
		}
		if string(got.payload) != "vvv" {
			t.Errorf("payload = %q, want %q", got.payload, "vvv")
		}
	case <-time.After(time.Second):
		t.Fatal("onPublish was not invoked")
	}
}

func TestUnexpectedResponse(t *testing.T) {
	c, broker, errs := connectedClient(t, nil)

	if _, err := broker.Write([]byte{0x40, 0x02, 0x00, 0x01}); err != nil {
		t.Fatalf("write PUBACK: %v", err)
	}

	select {
	case err := <-errs:
		if !errors.Is(err, ErrUnexpectedResponse) {
			t.Fatalf("OnErrorFunc got %v, want ErrUnexpectedResponse", err)
		}
	case <-time.After(time.Second):
		t.Fatal("OnErrorFunc was not invoked")
	}

	// No command was waiting, so cmd_out must not have been written: a
	// second call must still work rather than receiving the stray result.
	go func() {
		readExactly(t, broker, 2)
		_, _ = broker.Write([]byte{0xd0, 0x00})
	}()
	if err := c.Ping(); err != nil {
		t.Fatalf("Ping() after unexpected response = %v, want nil", err)
	}
}

func TestPublishWhileDisconnected(t *testing.T) {
	c, _, _ := newTestClient(t, nil)

	err := c.Publish(Message{Topic: "a", Payload: []byte("hi"), QoS: 0})
	if !errors.Is(err, ErrWrongState) {
		t.Fatalf("Publish() before Connect = %v, want ErrWrongState", err)
	}
}

func TestPublishRejectsQoS2(t *testing.T) {
	c, _, _ := newTestClient(t, nil)

	err := c.Publish(Message{Topic: "a", Payload: []byte("hi"), QoS: 2})
	if !errors.Is(err, ErrUnsupportedQoS) {
		t.Fatalf("Publish() QoS 2 = %v, want ErrUnsupportedQoS", err)
	}
}

func TestCloseUnblocksPendingCall(t *testing.T) {
	c, broker, _ := connectedClient(t, nil)

	// The broker reads the PINGREQ but never answers, leaving the worker
	// parked waiting on the next inbound byte with ping outstanding.
	go func() {
		readExactly(t, broker, 2)
	}()

	done := make(chan error, 1)
	go func() {
		done <- c.Ping()
	}()

	// Give the worker a moment to write PINGREQ and return to its select
	// loop before Close races it.
	time.Sleep(10 * time.Millisecond)
	if err := c.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, ErrClientClosed) {
			t.Errorf("Ping() after Close = %v, want ErrClientClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("pending Ping call was not unblocked by Close")
	}
}
