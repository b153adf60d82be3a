// Package mq is a synchronous MQTT v3.1.1 client for cooperatively
// scheduled runtimes: a single worker goroutine owns the connection, and
// every application call that expects a broker response blocks until that
// response arrives, mirroring a single-task, single-outstanding-request
// embedded client.
//
// # Model
//
// Connect, Ping, Publish at QoS 1, Subscribe, and Unsubscribe each write
// one packet to the transport and wait for the one response that
// completes it; Disconnect and Publish at QoS 0 return as soon as their
// packet is written. At most one request is ever outstanding: a second call
// made while one is in flight serialises behind it rather than racing it.
// There is no background reconnection, no QoS-2 outbound handshake, no
// session persistence across Connect calls, and no per-topic subscription
// registry - a single OnPublishFunc callback receives every inbound
// PUBLISH, streamed directly off the transport rather than buffered.
//
// # Quick start
//
//	transport, err := mq.DialTCP(ctx, "localhost:1883")
//	if err != nil {
//		return err
//	}
//
//	onPublish := func(c *mq.Client, topic string, payload io.Reader, size int) error {
//		buf := make([]byte, size)
//		_, err := io.ReadFull(payload, buf)
//		return err
//	}
//
//	client := mq.New("sensor-01", transport, onPublish)
//	if err := client.Connect(nil); err != nil {
//		return err
//	}
//	if _, err := client.Subscribe(mq.Message{Topic: "sensors/+/temp", QoS: 1}); err != nil {
//		return err
//	}
//
// # What is out of scope
//
// Transport selection, logging destinations, and thread scheduling are
// supplied by the caller. QoS 1/2 message persistence across reconnects,
// retained-message storage, and driving an outbound QoS 2 exchange to
// completion are not implemented: Publish rejects QoS 2 outright with
// ErrUnsupportedQoS, while an inbound QoS 2 PUBLISH is acknowledged (with
// PUBREC) but its PUBREL/PUBCOMP continuation is accepted without further
// action.
package mq
