package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrUnauthorized     = fmt.Errorf("unauthorized")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrRegisterFailed   = fmt.Errorf("registration failed")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrSongNotFound       = fmt.Errorf("song not found")
	ErrNotPlayable        = fmt.Errorf("song is not playable")

	// Playback errors
	ErrAudioUnavailable = fmt.Errorf("audio output unavailable")
	ErrNoSource         = fmt.Errorf("no audio source loaded")

	// Persistence errors
	ErrStateNotFound      = fmt.Errorf("persisted state not found")
	ErrUnsupportedVersion = fmt.Errorf("unsupported persisted state version")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrInvalidUsername = fmt.Errorf("username: use 3-20 letters, numbers, or underscores")
	ErrInvalidPassword = fmt.Errorf("password: use at least 8 characters, including 1 letter and 1 number")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
