package mq

import "log/slog"

// Will describes the message the broker publishes on this client's behalf
// if the connection drops uncleanly. Topic and Payload must agree: Topic
// is empty if and only if Payload is empty.
type Will struct {
	Topic   string
	Payload []byte
	QoS     uint8
	Retain  bool
}

// ConnectOptions configures a Connect call. A nil *ConnectOptions uses the
// defaults: clean session, no will, and a client id substituted per the
// Client's WithRandomClientID setting.
type ConnectOptions struct {
	// ClientID identifies this session to the broker. Empty is replaced
	// with either a random id (WithRandomClientID) or the fixed
	// "simba_mqtt" default.
	ClientID string

	// Will, if non-nil, is delivered by the broker on an unclean
	// disconnect.
	Will *Will

	// UserName and Password authenticate the connection. Password is only
	// sent if UserName is also set, matching the CONNECT flag dependency.
	UserName string
	Password string
}

func defaultConnectOptions() *ConnectOptions {
	return &ConnectOptions{}
}

// defaultMaxTopicLength is the inbound topic length bound inherited from
// the embedded runtime's fixed 128-byte stack buffer, carried forward here
// as a configurable parameter rather than a silent truncation.
const defaultMaxTopicLength = 127

// clientConfig holds the options New accepts via functional Option values.
type clientConfig struct {
	logger         *slog.Logger
	onError        OnErrorFunc
	randomClientID bool
	maxTopicLength int
}

func defaultClientConfig() *clientConfig {
	return &clientConfig{maxTopicLength: defaultMaxTopicLength}
}

// Option configures a Client at construction time.
type Option func(*clientConfig)

// WithLogger sets the logger the client uses for diagnostic events. The
// default discards all log output.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *clientConfig) {
		cfg.logger = logger
	}
}

// WithOnError registers a callback invoked whenever a worker-side handler
// reports a non-nil error, whether or not that error also completes a
// pending application call.
func WithOnError(fn OnErrorFunc) Option {
	return func(cfg *clientConfig) {
		cfg.onError = fn
	}
}

// WithRandomClientID makes Connect substitute a fresh RandomClientID() for
// an empty ConnectOptions.ClientID, instead of the fixed "simba_mqtt"
// default.
func WithRandomClientID() Option {
	return func(cfg *clientConfig) {
		cfg.randomClientID = true
	}
}

// WithMaxTopicLength bounds how long an inbound PUBLISH topic name may be
// before handleInboundPublish rejects it with ErrMalformedSize instead of
// handing it to OnPublishFunc. The default, 127, matches the embedded
// runtime's original fixed-size stack buffer; raise it for brokers known to
// use longer topic names.
func WithMaxTopicLength(n int) Option {
	return func(cfg *clientConfig) {
		cfg.maxTopicLength = n
	}
}
