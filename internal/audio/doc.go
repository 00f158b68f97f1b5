// Package audio plays narration audio on the local sound device.
//
// Audio is fetched from the narration backend, kept in an on-disk cache,
// decoded from MP3 with go-mp3 and played through a single shared oto
// context. Builds tagged nocgo have no device and every load fails with
// ErrAudioUnavailable.
package audio
