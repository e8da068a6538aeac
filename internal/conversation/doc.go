// Package conversation reconciles a conversation's message history with the
// messages arriving live on the connection.
//
// # View
//
// A View holds the merged sequence for the one conversation currently open:
//
//	v := conversation.NewView(conversationID)
//	v.Merge(live)          // before history arrives: kept
//	err := v.Load(history) // base sequence, source order
//	v.Merge(live)          // appended unless duplicate or foreign
//
// Rules:
//
//   - Messages are keyed by id; a second copy of an id is dropped.
//   - Messages for another conversation id are dropped from this view.
//   - Arrival order is preserved. Nothing is resequenced by timestamp.
//   - IsOwn is derived from the current identity and recomputed for every
//     stored message by SetIdentity. Until identity is known it is false.
//
// Switching conversations discards the View and starts a new one.
package conversation
