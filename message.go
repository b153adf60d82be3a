package mq

// Message is an application-level MQTT message: the argument to Publish,
// and the topic+QoS pair given to Subscribe and Unsubscribe.
//
// Inbound messages are not represented as a Message: OnPublishFunc receives
// the topic and payload directly off the transport so the caller can
// stream the payload instead of buffering it.
type Message struct {
	// Topic is the topic name (Publish) or topic filter (Subscribe,
	// Unsubscribe). Must be non-empty; size must fit an MQTT string
	// (at most 65535 bytes).
	Topic string

	// Payload is the application data. May be empty. Only meaningful for
	// Publish.
	Payload []byte

	// QoS is the requested Quality of Service level. Publish rejects
	// ExactlyOnce with ErrUnsupportedQoS. Subscribe treats QoS as the
	// requested level; the broker's granted level is returned separately
	// by Subscribe.
	QoS QoS
}
