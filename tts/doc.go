// Package tts speaks text aloud. Every backend returns a WAV clip.
//
// Espeak runs espeak-ng as a subprocess. Script runs a synthesis script in
// the shared embedded interpreter, next to the script translator.
package tts
