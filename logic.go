package mq

import (
	"errors"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/gonzalop/simbamqtt/internal/packets"
)

// responseFor maps an inbound response-family packet type to the
// outstanding request it completes.
var responseFor = map[uint8]outstanding{
	packets.CONNACK:  outstandingConnect,
	packets.PUBACK:   outstandingPublish,
	packets.SUBACK:   outstandingSubscribe,
	packets.UNSUBACK: outstandingUnsubscribe,
	packets.PINGRESP: outstandingPing,
}

// leadByteMsg is what the lead-byte pump hands to the worker: the first
// byte of the next inbound fixed header, or the error from trying to read
// it.
type leadByteMsg struct {
	b   byte
	err error
}

// run hosts the two goroutines that make up the event loop: a pump that
// performs the one unavoidably-blocking read (the next packet's lead
// byte) and a worker that selects between application commands and that
// lead byte arriving. Splitting the fixed header's first byte from the
// rest lets the worker's select statement treat "a new inbound packet has
// started" as its own event, without blocking the whole loop on a read
// that hasn't arrived yet.
func (c *Client) run() {
	defer close(c.done)

	lead := make(chan leadByteMsg)
	resume := make(chan struct{})

	var g errgroup.Group
	g.Go(func() error { return c.pumpLeadByte(lead, resume) })
	g.Go(func() error { return c.logicLoop(lead, resume) })

	if err := g.Wait(); err != nil {
		c.logDebug("event loop stopped", "error", err)
	}
}

func (c *Client) pumpLeadByte(lead chan<- leadByteMsg, resume <-chan struct{}) error {
	for {
		var b [1]byte
		_, err := io.ReadFull(c.transport, b[:])

		select {
		case lead <- leadByteMsg{b: b[0], err: err}:
		case <-c.closed:
			return nil
		}
		if err != nil {
			return err
		}

		select {
		case <-resume:
		case <-c.closed:
			return nil
		}
	}
}

func (c *Client) logicLoop(lead <-chan leadByteMsg, resume chan<- struct{}) error {
	for {
		select {
		case <-c.closed:
			return nil

		case cmd := <-c.cmdIn:
			c.dispatchCommand(cmd)

		case msg := <-lead:
			if msg.err != nil {
				werr := fmt.Errorf("%w: %v", ErrTransportIO, msg.err)
				c.outstandingOp = outstandingNone
				c.reportError(werr)
				return werr
			}
			if err := c.dispatchInbound(msg.b); err != nil {
				c.reportError(err)
			}
			select {
			case resume <- struct{}{}:
			case <-c.closed:
				return nil
			}
		}
	}
}

// dispatchCommand handles one value read from cmdIn, gating on connection
// state before doing anything else: a command invalid for the current
// state completes immediately with ErrWrongState rather than being
// dropped.
func (c *Client) dispatchCommand(cmd *command) {
	if !cmd.kind.allowed(c.state) {
		c.complete(commandResult{err: ErrWrongState})
		return
	}

	switch cmd.kind {
	case cmdConnect:
		c.handleConnect(cmd.connect)
	case cmdDisconnect:
		c.handleDisconnect()
	case cmdPing:
		c.sendAndAwait(outstandingPing, &packets.PingreqPacket{})
	case cmdPublish:
		c.handlePublishCommand(cmd.message)
	case cmdSubscribe:
		c.handleSubscribeCommand(cmd.message)
	case cmdUnsubscribe:
		c.handleUnsubscribeCommand(cmd.message)
	}
}

// complete posts result to cmdOut and, if it carries an error, also
// reports it to OnErrorFunc: every command-originated error surfaces both
// ways, never silently to just one.
func (c *Client) complete(result commandResult) {
	if result.err != nil {
		c.reportError(result.err)
	}
	c.cmdOut <- result
}

// sendAndAwait writes one outgoing packet and, on success, sets the
// outstanding-request slot so the matching response handler will complete
// the call. A write failure has no response coming, so it completes the
// call immediately instead.
func (c *Client) sendAndAwait(op outstanding, pkt io.WriterTo) {
	if _, err := pkt.WriteTo(c.transport); err != nil {
		c.complete(commandResult{err: fmt.Errorf("%w: %v", ErrTransportIO, err)})
		return
	}
	c.outstandingOp = op
}

func buildConnectPacket(opts *ConnectOptions) (*packets.ConnectPacket, error) {
	if err := packets.RequireNonEmptyString(opts.ClientID); err != nil {
		return nil, fmt.Errorf("%w: client id: %v", ErrInvalidArgument, err)
	}

	pkt := &packets.ConnectPacket{
		ProtocolName:  "MQTT",
		ProtocolLevel: 0x04,
		CleanSession:  true,
		KeepAlive:     300,
		ClientID:      opts.ClientID,
	}

	if opts.Will != nil {
		if (opts.Will.Topic == "") != (len(opts.Will.Payload) == 0) {
			return nil, ErrInvalidArgument
		}
		if opts.Will.Topic != "" {
			pkt.WillFlag = true
			pkt.WillTopic = opts.Will.Topic
			pkt.WillMessage = opts.Will.Payload
			pkt.WillQoS = opts.Will.QoS
			pkt.WillRetain = opts.Will.Retain
		}
	}

	if opts.UserName != "" {
		pkt.UsernameFlag = true
		pkt.Username = opts.UserName
		if opts.Password != "" {
			pkt.PasswordFlag = true
			pkt.Password = opts.Password
		}
	}

	return pkt, nil
}

func (c *Client) handleConnect(opts *ConnectOptions) {
	pkt, err := buildConnectPacket(opts)
	if err != nil {
		c.complete(commandResult{err: err})
		return
	}
	c.clientID = opts.ClientID
	c.sendAndAwait(outstandingConnect, pkt)
}

// handleDisconnect always transitions to Disconnected after writing, and
// posts its result immediately: DISCONNECT has no broker acknowledgment.
func (c *Client) handleDisconnect() {
	_, err := (&packets.DisconnectPacket{}).WriteTo(c.transport)
	c.state = stateDisconnected
	c.outstandingOp = outstandingNone
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrTransportIO, err)
	}
	c.complete(commandResult{err: err})
}

func (c *Client) handlePublishCommand(msg Message) {
	if err := packets.RequireNonEmptyString(msg.Topic); err != nil {
		c.complete(commandResult{err: fmt.Errorf("%w: topic: %v", ErrInvalidArgument, err)})
		return
	}

	pkt := &packets.PublishPacket{QoS: uint8(msg.QoS), Topic: msg.Topic, Payload: msg.Payload, PacketID: 1}

	if msg.QoS == AtMostOnce {
		_, err := pkt.WriteTo(c.transport)
		if err != nil {
			err = fmt.Errorf("%w: %v", ErrTransportIO, err)
		}
		c.complete(commandResult{err: err})
		return
	}

	c.sendAndAwait(outstandingPublish, pkt)
}

func (c *Client) handleSubscribeCommand(msg Message) {
	if err := packets.RequireNonEmptyString(msg.Topic); err != nil {
		c.complete(commandResult{err: fmt.Errorf("%w: topic: %v", ErrInvalidArgument, err)})
		return
	}
	pkt := &packets.SubscribePacket{PacketID: 1, Topics: []string{msg.Topic}, QoS: []uint8{uint8(msg.QoS)}}
	c.sendAndAwait(outstandingSubscribe, pkt)
}

func (c *Client) handleUnsubscribeCommand(msg Message) {
	if err := packets.RequireNonEmptyString(msg.Topic); err != nil {
		c.complete(commandResult{err: fmt.Errorf("%w: topic: %v", ErrInvalidArgument, err)})
		return
	}
	pkt := &packets.UnsubscribePacket{PacketID: 2, Topics: []string{msg.Topic}}
	c.sendAndAwait(outstandingUnsubscribe, pkt)
}

// dispatchInbound decodes the rest of the fixed header the lead byte
// started, then routes by packet type. PUBLISH is streamed straight to
// OnPublishFunc; PUBREC/PUBREL/PUBCOMP are accepted and discarded (outbound
// QoS 2 is never driven to completion); everything else is a response to
// whatever command is currently outstanding, or isn't, in which case it
// only ever reaches OnErrorFunc: there is no pending caller to report an
// unmatched response to.
func (c *Client) dispatchInbound(firstByte byte) error {
	header, err := packets.DecodeFixedHeaderFrom(firstByte, c.transport)
	if err != nil {
		if errors.Is(err, packets.ErrMalformedLength) {
			return ErrMalformedLength
		}
		return fmt.Errorf("%w: %v", ErrTransportIO, err)
	}

	c.logDebug("received packet", "type", packets.Name(header.PacketType))

	switch header.PacketType {
	case packets.PUBLISH:
		return c.handleInboundPublish(header)

	case packets.PUBREC, packets.PUBREL, packets.PUBCOMP:
		if _, err := packets.DecodeBody(c.transport, header); err != nil {
			return fmt.Errorf("%w: %v", ErrTransportIO, err)
		}
		return nil
	}

	expected, isResponse := responseFor[header.PacketType]
	if !isResponse {
		_, _ = packets.DecodeBody(c.transport, header)
		return fmt.Errorf("%w: unrecognised packet type %d", ErrProtocolOther, header.PacketType)
	}

	if c.outstandingOp != expected {
		_, _ = packets.DecodeBody(c.transport, header)
		return ErrUnexpectedResponse
	}

	result := c.completeResponse(header)
	c.outstandingOp = outstandingNone
	c.cmdOut <- result
	return result.err
}

func (c *Client) completeResponse(header packets.FixedHeader) commandResult {
	switch header.PacketType {
	case packets.CONNACK:
		return c.completeConnack(header)
	case packets.PUBACK:
		return c.completePuback(header)
	case packets.SUBACK:
		return c.completeSuback(header)
	case packets.UNSUBACK:
		return c.completeUnsuback(header)
	case packets.PINGRESP:
		return c.completePingresp(header)
	default:
		_, _ = packets.DecodeBody(c.transport, header)
		return commandResult{err: ErrProtocolOther}
	}
}

func (c *Client) completeConnack(header packets.FixedHeader) commandResult {
	if header.RemainingLength != 2 {
		_, _ = packets.DecodeBody(c.transport, header)
		return commandResult{err: ErrMalformedSize}
	}
	pkt, err := packets.DecodeBody(c.transport, header)
	if err != nil {
		return commandResult{err: fmt.Errorf("%w: %v", ErrTransportIO, err)}
	}
	connack := pkt.(*packets.ConnackPacket)
	if connack.ReturnCode != packets.ConnAccepted {
		return commandResult{err: ErrConnectRejected}
	}
	if connack.SessionPresent {
		return commandResult{err: ErrProtocolOther}
	}
	c.state = stateConnected
	return commandResult{}
}

func (c *Client) completePuback(header packets.FixedHeader) commandResult {
	if header.RemainingLength != 2 {
		_, _ = packets.DecodeBody(c.transport, header)
		return commandResult{err: ErrMalformedSize}
	}
	pkt, err := packets.DecodeBody(c.transport, header)
	if err != nil {
		return commandResult{err: fmt.Errorf("%w: %v", ErrTransportIO, err)}
	}
	puback := pkt.(*packets.PubackPacket)
	if puback.PacketID != 1 {
		return commandResult{err: ErrProtocolOther}
	}
	return commandResult{}
}

func (c *Client) completeSuback(header packets.FixedHeader) commandResult {
	if header.RemainingLength != 3 {
		_, _ = packets.DecodeBody(c.transport, header)
		return commandResult{err: ErrMalformedSize}
	}
	pkt, err := packets.DecodeBody(c.transport, header)
	if err != nil {
		return commandResult{err: fmt.Errorf("%w: %v", ErrTransportIO, err)}
	}
	suback := pkt.(*packets.SubackPacket)
	if suback.PacketID != 1 || len(suback.ReturnCodes) != 1 {
		return commandResult{err: ErrProtocolOther}
	}
	code := suback.ReturnCodes[0]
	if code > packets.QoS2 {
		return commandResult{err: ErrSubscribeRejected}
	}
	return commandResult{qos: code}
}

func (c *Client) completeUnsuback(header packets.FixedHeader) commandResult {
	if header.RemainingLength != 2 {
		_, _ = packets.DecodeBody(c.transport, header)
		return commandResult{err: ErrMalformedSize}
	}
	pkt, err := packets.DecodeBody(c.transport, header)
	if err != nil {
		return commandResult{err: fmt.Errorf("%w: %v", ErrTransportIO, err)}
	}
	unsuback := pkt.(*packets.UnsubackPacket)
	if unsuback.PacketID != 2 {
		return commandResult{err: ErrProtocolOther}
	}
	return commandResult{}
}

func (c *Client) completePingresp(header packets.FixedHeader) commandResult {
	if header.RemainingLength != 0 {
		_, _ = packets.DecodeBody(c.transport, header)
		return commandResult{err: ErrMalformedSize}
	}
	if _, err := packets.DecodeBody(c.transport, header); err != nil {
		return commandResult{err: fmt.Errorf("%w: %v", ErrTransportIO, err)}
	}
	return commandResult{}
}

// handleInboundPublish streams a PUBLISH straight off the transport: it
// decodes only the topic and (for QoS>0) the packet id, acknowledges the
// delivery if required, and then hands the caller's OnPublishFunc a reader
// bounded to exactly the payload length. The callback owns consuming that
// reader; failing to do so desynchronises every packet after it.
func (c *Client) handleInboundPublish(header packets.FixedHeader) error {
	head, err := packets.DecodePublishHead(c.transport, header)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransportIO, err)
	}

	if len(head.Topic) > c.maxTopic {
		if head.PayloadLen > 0 {
			_, _ = io.CopyN(io.Discard, c.transport, int64(head.PayloadLen))
		}
		return fmt.Errorf("%w: inbound topic length %d exceeds the %d-byte maximum", ErrMalformedSize, len(head.Topic), c.maxTopic)
	}

	switch head.QoS {
	case 1:
		if _, err := (&packets.PubackPacket{PacketID: head.PacketID}).WriteTo(c.transport); err != nil {
			return fmt.Errorf("%w: %v", ErrTransportIO, err)
		}
	case 2:
		if _, err := (&packets.PubrecPacket{PacketID: head.PacketID}).WriteTo(c.transport); err != nil {
			return fmt.Errorf("%w: %v", ErrTransportIO, err)
		}
	}

	payload := io.LimitReader(c.transport, int64(head.PayloadLen))
	return c.onPublish(c, head.Topic, payload, head.PayloadLen)
}
