// Package clock provides the cheap microsecond timestamps used to time
// intercepted calls.
//
// A timestamp is the wall clock's seconds modulo 100 combined with its
// microsecond-of-second component. It is neither monotonic nor unique; it
// wraps every Window microseconds, and Elapsed corrects for at most one
// wraparound per measured interval.
package clock

// Window is the wraparound period of a timestamp, in microseconds.
const Window uint64 = 100 * 1000000

// Clock returns the current timestamp.
type Clock func() uint64

// Now returns the current timestamp.
func Now() uint64 {
	return platformNow()
}

// Elapsed returns the microseconds between start and end, assuming the
// interval spans at most one wraparound.
func Elapsed(start, end uint64) uint64 {
	if end < start {
		end += Window
	}
	return end - start
}

func stamp(sec, usec int64) uint64 {
	return uint64(sec%100)*1000000 + uint64(usec)
}
