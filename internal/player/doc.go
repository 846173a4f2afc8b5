// Package player turns the store's playback intent into audio.
//
// A [Transport] owns one [Handle]. When the current song's stream URL changes it loads the new
// source (seeking to the saved position on the first load after start-up), then mirrors the
// playing flag, volume, and mute onto the handle. Every tick it reports the handle position back
// to the store, and at the end of a track it asks the store for the next song.
//
// [NewHandle] returns a beep speaker handle where native audio is available and a
// [SilentHandle] otherwise; see [AudioAvailable].
package player
