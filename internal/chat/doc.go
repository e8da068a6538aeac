// Package chat defines the domain types shared by the synchronization engine:
// messages, users, conversation summaries, and the current user's identity.
//
// # Timestamps
//
// The backend emits naive timestamps (no zone designator). They are always
// interpreted as UTC:
//
//	"2025-03-01T09:15:00"         -> 2025-03-01 09:15:00 +0000 UTC
//	"2025-03-01T09:15:00.123456"  -> fractional seconds kept
//	"2025-03-01T09:15:00Z"        -> RFC 3339 is accepted as well
//
// # Ownership
//
// Message.IsOwn is never decoded from a payload. It is derived locally with
// Message.WithOwner / OwnedBy from an authoritative Identity.
package chat
