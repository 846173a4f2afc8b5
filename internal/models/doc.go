// Package models defines the client-side domain entities for the vibe music client.
//
// Catalogue types:
//   - [Song] : An immutable catalogue entry decoded from the backend's /songs envelope
//   - [ID] : Canonical song identifier; the backend emits both strings and numbers
//
// Client state types:
//   - [Session] : Username and bearer token issued by /auth/login
//   - [Filters] : Catalogue filter selection (search, genre, mood, duration, language)
//   - [Cursor] : Pagination cursor over the catalogue
//   - [Playback] : Transport intent and position for the current song
//   - [PersistedState] : The narrow projection of client state written to local storage
//   - [CloudState] : Preference snapshot exchanged with /auth/login and /user/sync
//
// Songs are compared by canonical [ID] everywhere, and deduplicated by [Song.Signature]
// in addition to ID when pages are merged.
package models
