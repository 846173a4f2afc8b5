// Package repositories implements SQLite persistence for the client's saved state.
//
// Key Implementations:
//   - [StateRepository] : the store's persisted projection; implements [store.Persister]
//   - [LikedSongRepository] : the ordered liked set, unique by canonical song id
//
// The preferences table holds a single row (id = 1). Saves replace the row and the liked set
// in one transaction, so a crash never leaves a half-written projection behind.
// Row ids for liked songs are UUIDs; ordering comes from the position column.
package repositories
