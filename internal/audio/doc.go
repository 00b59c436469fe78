// Package audio plays a sound when a toast is raised.
// It uses the beep library to play WAV, OGG, and MP3 files with volume
// control and one configurable sound per toast variant.
package audio
