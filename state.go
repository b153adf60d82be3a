package mq

// connState is the two-valued connection state the worker goroutine owns:
// Disconnected (the initial state) or Connected.
type connState uint8

const (
	stateDisconnected connState = iota
	stateConnected
)

func (s connState) String() string {
	if s == stateConnected {
		return "connected"
	}
	return "disconnected"
}

// outstanding names which request type, if any, the worker is currently
// waiting on a matching response for. It is none whenever the worker is
// blocked waiting for the next command or inbound byte, becomes non-none
// the instant the worker writes a request packet to the transport, and
// returns to none once the matching response is validated or a fatal
// transport error tears the connection down. disconnect has no entry here:
// its result is posted to cmdOut as soon as the DISCONNECT packet is
// written, since there is no broker acknowledgment to wait for.
type outstanding uint8

const (
	outstandingNone outstanding = iota
	outstandingConnect
	outstandingPing
	outstandingPublish
	outstandingSubscribe
	outstandingUnsubscribe
)

func (o outstanding) String() string {
	switch o {
	case outstandingNone:
		return "none"
	case outstandingConnect:
		return "connect"
	case outstandingPing:
		return "ping"
	case outstandingPublish:
		return "publish"
	case outstandingSubscribe:
		return "subscribe"
	case outstandingUnsubscribe:
		return "unsubscribe"
	default:
		return "outstanding(unknown)"
	}
}

// allowed reports whether a command of this kind may be dispatched while
// the connection is in state s. Disconnected honours only connect;
// Connected honours every other command, disconnect included.
func (k commandKind) allowed(s connState) bool {
	if k == cmdConnect {
		return s == stateDisconnected
	}
	return s == stateConnected
}
