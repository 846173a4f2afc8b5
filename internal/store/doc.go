// Package store holds the client's application state and the actions that change it.
//
// # Catalogue
//
// [Store.FetchSongs] pages through the backend catalogue under the current filters:
//   - at most one catalogue request is in flight; a second call while loading is a no-op
//   - merged pages are passed through [Dedupe], which drops a song when either its id or its title|artist signature was seen earlier
//   - Cursor.HasMore is true only when the last raw page was full
//   - a load-more page that adds nothing new triggers another load-more, at most five times in a row
//
// Changing any filter bumps a generation counter and cancels the request in flight, so a late
// response for an old query never lands in the new list.
//
// # Playback intent
//
// The store records what should be playing (current song, playing flag, position, volume, mute);
// the player package turns that into audio and reports the position back.
//
// # Session and sync
//
// The store is the API client's token source and its 401 handler. A rejected token logs the
// user out and emits [SessionExpired]. Preference changes are pushed to /user/sync in the
// background; call [Store.Flush] or [Store.Close] before exiting.
//
// # Persistence
//
// Every change to a persisted field writes a [models.PersistedState] through the [Persister].
// [Store.Restore] reads it back, migrating older schema versions.
package store
