//go:build linux || darwin

package dispatch

// Supported reports whether interception is available on this platform.
const Supported = true
