// Package daemon hosts the toast queue for toastd.
// It owns the event loop the queue lives on, exposes a goroutine-safe
// Service to the transports, raises the daemon's own toasts and reloads
// configuration when the config file changes.
package daemon
