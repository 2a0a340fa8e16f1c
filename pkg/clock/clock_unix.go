//go:build linux || darwin

package clock

import "golang.org/x/sys/unix"

func platformNow() uint64 {
	var tv unix.Timeval
	if err := unix.Gettimeofday(&tv); err != nil {
		return 0
	}
	return stamp(int64(tv.Sec), int64(tv.Usec))
}
