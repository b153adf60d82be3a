package mq

import (
	"io"
	"log/slog"
	"sync"
)

// OnPublishFunc is invoked by the worker goroutine for every inbound
// PUBLISH. It must read exactly payloadSize bytes from payload before
// returning; leaving bytes unread desynchronises the transport stream for
// every packet that follows. A non-nil return is reported as a handler
// failure to the client's OnErrorFunc.
type OnPublishFunc func(c *Client, topic string, payload io.Reader, payloadSize int) error

// OnErrorFunc is invoked by the worker goroutine whenever a handler
// reports a non-nil error, independent of whether that error also
// completes a pending Client call.
type OnErrorFunc func(c *Client, err error)

type commandKind uint8

const (
	cmdConnect commandKind = iota
	cmdDisconnect
	cmdPing
	cmdPublish
	cmdSubscribe
	cmdUnsubscribe
)

// command is the single value exchanged over cmdIn: a tag plus whatever
// argument that kind of command needs. Because cmdIn and cmdOut are both
// unbuffered, the worker is guaranteed to have finished reading a command
// before call() returns, so the pointer never outlives its use.
type command struct {
	kind    commandKind
	connect *ConnectOptions
	message Message
}

// commandResult is the single value exchanged over cmdOut.
type commandResult struct {
	err error
	qos uint8 // granted QoS; only meaningful when kind was cmdSubscribe
}

// Client is the MQTT client handle. Once New starts the worker goroutine,
// all mutable protocol state (state, outstandingOp, clientID) belongs to
// that goroutine alone; application goroutines reach it only through the
// exported methods below, which rendezvous on cmdIn/cmdOut.
type Client struct {
	name      string
	logger    *slog.Logger
	transport Transport
	onPublish OnPublishFunc
	onError   OnErrorFunc
	randomID  bool
	maxTopic  int

	cmdIn  chan *command
	cmdOut chan commandResult
	callMu sync.Mutex

	closeOnce sync.Once
	closed    chan struct{}
	done      chan struct{}

	// Worker-owned; read or written only from inside run's goroutines.
	state         connState
	outstandingOp outstanding
	clientID      string
}

// New creates a Client bound to transport and immediately starts its
// worker goroutine. onPublish is invoked for every inbound PUBLISH and
// must not be nil.
func New(name string, transport Transport, onPublish OnPublishFunc, opts ...Option) *Client {
	cfg := defaultClientConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	c := &Client{
		name:      name,
		logger:    cfg.logger,
		transport: transport,
		onPublish: onPublish,
		onError:   cfg.onError,
		randomID:  cfg.randomClientID,
		maxTopic:  cfg.maxTopicLength,
		cmdIn:     make(chan *command),
		cmdOut:    make(chan commandResult),
		closed:    make(chan struct{}),
		done:      make(chan struct{}),
		state:     stateDisconnected,
	}

	go c.run()
	return c
}

// call sends cmd to the worker and blocks for the single matching result.
// callMu is the only thing standing between the shared, single-slot
// cmdIn/cmdOut pair and two concurrent callers interleaving their
// requests: holding it for the whole round trip reproduces the "commands
// served in cmdIn FIFO order, one outstanding request at a time" guarantee
// the channel pair is meant to provide.
func (c *Client) call(cmd *command) commandResult {
	c.callMu.Lock()
	defer c.callMu.Unlock()

	select {
	case c.cmdIn <- cmd:
	case <-c.closed:
		return commandResult{err: ErrClientClosed}
	}

	select {
	case res := <-c.cmdOut:
		return res
	case <-c.closed:
		return commandResult{err: ErrClientClosed}
	}
}

// Connect sends CONNECT and blocks for CONNACK. A nil opts uses the
// defaults: clean session, no will, and either RandomClientID() or the
// fixed "simba_mqtt" identifier depending on WithRandomClientID.
func (c *Client) Connect(opts *ConnectOptions) error {
	if opts == nil {
		opts = defaultConnectOptions()
	}
	resolved := *opts
	if resolved.ClientID == "" {
		if c.randomID {
			resolved.ClientID = RandomClientID()
		} else {
			resolved.ClientID = defaultClientID
		}
	}

	res := c.call(&command{kind: cmdConnect, connect: &resolved})
	return res.err
}

// Disconnect sends DISCONNECT. The result is posted as soon as the packet
// is written; there is no broker acknowledgment to wait for, and the
// connection transitions to Disconnected unconditionally.
func (c *Client) Disconnect() error {
	res := c.call(&command{kind: cmdDisconnect})
	return res.err
}

// Ping sends PINGREQ and blocks for PINGRESP.
func (c *Client) Ping() error {
	res := c.call(&command{kind: cmdPing})
	return res.err
}

// Publish sends a PUBLISH for msg. QoS 0 completes as soon as the packet
// is written to the transport; QoS 1 blocks for PUBACK. QoS 2 is rejected
// up front with ErrUnsupportedQoS.
func (c *Client) Publish(msg Message) error {
	if msg.QoS == ExactlyOnce {
		return ErrUnsupportedQoS
	}
	res := c.call(&command{kind: cmdPublish, message: msg})
	return res.err
}

// Subscribe sends a SUBSCRIBE for a single topic filter and blocks for
// SUBACK, returning the QoS the broker granted. Subscribing to more than
// one filter per call is not supported; call Subscribe once per filter.
func (c *Client) Subscribe(msg Message) (QoS, error) {
	res := c.call(&command{kind: cmdSubscribe, message: msg})
	return QoS(res.qos), res.err
}

// Unsubscribe sends an UNSUBSCRIBE for a single topic filter and blocks
// for UNSUBACK.
func (c *Client) Unsubscribe(msg Message) error {
	res := c.call(&command{kind: cmdUnsubscribe, message: msg})
	return res.err
}

// Close stops the worker goroutine and closes the transport. It does not
// send DISCONNECT; call Disconnect first for a graceful shutdown.
//
// The transport is closed before the worker is awaited, not after: the
// lead-byte pump is usually parked in a blocking transport read with
// nothing selecting on c.closed, so closing the transport out from under
// it is what actually unblocks it.
func (c *Client) Close() error {
	var closeErr error
	c.closeOnce.Do(func() {
		close(c.closed)
		closeErr = c.transport.Close()
	})
	<-c.done
	return closeErr
}

func (c *Client) logDebug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c *Client) reportError(err error) {
	c.logDebug("handler error", "error", err)
	if c.onError != nil {
		c.onError(c, err)
	}
}
