// package services defines the [Backend] interface for the music backend and its HTTP implementation [APIService].
package services

import (
	"context"

	"github.com/desertthunder/vibe/internal/models"
)

// Backend defines the operations the client needs from the music backend.
type Backend interface {
	// FetchSongs retrieves one page of the catalogue.
	FetchSongs(ctx context.Context, q SongQuery) ([]models.Song, error)

	// Login exchanges credentials for a session token and preference snapshot.
	Login(ctx context.Context, username, password string) (*models.LoginResult, error)

	// Register creates an account. It does not log in.
	Register(ctx context.Context, username, password string) error

	// Sync pushes preferences under the current session.
	Sync(ctx context.Context, state models.CloudState) error

	// Lyrics fetches newline-delimited lyrics text.
	Lyrics(ctx context.Context, artist, title string) (string, error)

	// Wiki fetches descriptive text about a song, or its fallback subject.
	Wiki(ctx context.Context, query, fallback string) (string, error)

	// StreamURL builds the media URL for a stream reference.
	StreamURL(ref models.ID) string

	// SetTokenSource sets where bearer tokens are read from.
	SetTokenSource(ts TokenSource)

	// OnUnauthorized registers the handler run when a request is rejected with 401.
	OnUnauthorized(fn func())
}
