//go:build !linux && !darwin

package clock

import "time"

func platformNow() uint64 {
	now := time.Now()
	return stamp(now.Unix(), int64(now.Nanosecond()/1000))
}
