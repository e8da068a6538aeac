// Package session runs one signed-in chat session.
//
// A Session owns exactly one live connection and, at any time, at most one
// open conversation. Connection events are applied in delivery order by a
// single goroutine; history loads and inbox refreshes take the same lock, so
// the open conversation's messages have one writer at a time.
//
//	sess := session.New(session.Options{Backend: api, Connection: mgr})
//	defer sess.Close()
//
//	signals := sess.Subscribe(ctx)
//	if err := sess.Start(ctx); err != nil {
//		return err // CredentialMissing or AuthenticationRejected
//	}
//	if err := sess.OpenConversation(ctx, id); err != nil {
//		return err
//	}
//	for sig := range signals {
//		...
//	}
//
// # Ending
//
// A missing or rejected credential from the connection or from any backend
// call ends the session: SignalEnded is published, Done is closed, and Err
// returns the cause. Transient connectivity failures only produce
// SignalStatus.
//
// # Discovery
//
// A live message for a conversation that is neither open nor in the last
// inbox snapshot raises SignalConversationDiscovered, at most once per
// conversation within the discovery TTL.
package session
