package clock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestElapsed(t *testing.T) {
	tests := []struct {
		name       string
		start, end uint64
		want       uint64
	}{
		{"same", 500, 500, 0},
		{"forward", 1000, 1600, 600},
		{"wraparound", 99999900, 100, 200},
		{"wrap to zero", Window - 1, 0, 1},
		{"full window minus one", 1, 0, Window - 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Elapsed(tt.start, tt.end))
		})
	}
}

func TestStamp(t *testing.T) {
	assert.Equal(t, uint64(0), stamp(0, 0))
	assert.Equal(t, uint64(42000123), stamp(1742, 123))
	assert.Equal(t, uint64(99999999), stamp(199, 999999))
}

func TestNowWithinWindow(t *testing.T) {
	for i := 0; i < 100; i++ {
		assert.Less(t, Now(), Window)
	}
}
