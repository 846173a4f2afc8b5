// Package services implements the client for the music backend behind the [Backend] interface.
//
// # API Gateway
//
// [APIService] wraps every outbound HTTP call:
//   - GET /songs with search, limit, skip, genre, mood, listen and language parameters ([SongQuery])
//   - POST /auth/login and /auth/register
//   - POST /user/sync (bearer auth)
//   - GET /proxy/lyrics and /proxy/wiki
//
// Streaming URLs are built locally by [APIService.StreamURL] and consumed by the player directly.
//
// # Authentication
//
// The bearer token is borrowed per request from a [TokenSource] (the store's session).
// Requests to /auth/ routes never carry a token, so a stale session can't break login.
//
// Any 401 response runs the handler registered with [APIService.OnUnauthorized] once per token,
// so concurrent failures under one expired session tear it down a single time.
// [ParseSessionClaims] reads the token's exp without verification to drop sessions that have already expired locally.
//
// # Lookups
//
// [SongLyrics] and [SongInfo] clean up titles ("Song (Remix) - Live" → "Song") and artist lists before querying the proxy,
// and substitute placeholder text when nothing is found.
//
// # Error Handling
//
// Typed errors from the shared package are wrapped with request context:
//   - [shared.ErrAPIRequest] : transport failure or non-2xx status
//   - [shared.ErrUnauthorized] : 401, after the session teardown handler has run
//   - [shared.ErrAuthFailed] / [shared.ErrRegisterFailed] : credential exchange failed
package services
