// Package client is the HTTP client for the chat backend's request/response
// API.
//
// # Operations
//
//   - Me: GET /users/me
//   - Users: GET /users
//   - Conversations: GET /conversations
//   - Messages: GET /conversations/{id}/messages
//   - CreateConversation: POST /conversations {"user2_id": id}
//   - Login: POST /auth/login
//   - Register: POST /auth/register
//
// Every operation except Login and Register sends the token from the
// configured auth.TokenSource as "Authorization: Bearer <token>". Without a
// token the call fails with a syncerr CredentialMissing error and no request
// is made.
//
// # Errors
//
// A 401 from any operation is a syncerr AuthenticationRejected error carrying
// the backend's detail. Other failed responses are *StatusError. Transport
// failures are TransientConnectivity, except that a cancelled context is
// returned as the context error so callers can tell a superseded request from
// a failed one.
package client
