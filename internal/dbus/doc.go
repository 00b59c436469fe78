// Package dbus exposes the toast queue on the session bus.
//
// The daemon owns io.github.jmylchreest.Toastq, which raises, dismisses,
// updates and lists toasts and broadcasts every state change as a
// StateChanged signal. Optionally it also claims
// org.freedesktop.Notifications so ordinary desktop notifications become
// toasts. Client is the toastctl side of the same interface.
package dbus
