// Package connection owns the single live websocket connection of a chat
// session and maps its lifecycle to an explicit state machine.
//
// # State Machine
//
//	Disconnected --Open(token)--> Connecting --handshake--> Connected
//	Connecting --no token--> Errored("missing credential")   (no dial)
//	Connected --close 1008--> Closed(1008, reason)            AuthenticationRejected
//	Connected --close 1000--> Closed(1000)                    ends the stream
//	Connected --other close / transport error--> Closed/Errored  TransientConnectivity
//	any --Close()--> Disconnected
//	Connecting/Connected --Open ctx done--> Disconnected      no event
//
// Transient failures are retried with exponential backoff and jitter when
// the ReconnectPolicy is enabled; the state returns to Connecting with a
// non-zero Attempt. Authentication failures are never retried.
//
// # Events
//
// Open returns one channel carrying every event in transport order:
//
//	events, err := mgr.Open(ctx)
//	for ev := range events {
//	    switch ev.Kind {
//	    case connection.EventOpened:
//	    case connection.EventMessage:      // ev.Message may be nil: see ev.Raw
//	    case connection.EventClosed:       // ev.Code, ev.Reason, ev.Err
//	    case connection.EventError:
//	    case connection.EventReconnecting: // ev.Attempt, ev.Delay
//	    }
//	}
//
// Frames that do not decode as chat messages are delivered anyway with a
// MalformedPayload error, and counted.
//
// # Sending
//
// Send writes only in StateConnected. Any other state yields a SendRejected
// error that is logged and counted in metrics.Collectors.SendRejected.
package connection
