// Package auth supplies bearer tokens to the synchronization engine.
//
// # Token Sources
//
// The engine never stores credentials itself. It asks a TokenSource for the
// current token each time it connects (including reconnects), so a token
// refreshed on disk is picked up without restarting the session:
//
//	src := auth.EnvFileSource{EnvVar: "CHATSYNC_TOKEN", Path: auth.DefaultTokenPath()}
//	token := src.Token() // "" when absent
//
// Lookup order for EnvFileSource:
//
//  1. The environment variable, when set and non-empty
//  2. The token file, trimmed
//
// # Local Inspection
//
// Tokens issued by the backend are usually HS256 JWTs. The client cannot
// verify the signature, but it can read the claims to avoid a doomed
// connection attempt:
//
//	if err := auth.CheckExpiry(token, time.Now()); errors.Is(err, auth.ErrExpiredToken) {
//	    // treat as an authentication rejection
//	}
//
// Opaque tokens are passed through untouched.
package auth
