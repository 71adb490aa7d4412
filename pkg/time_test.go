package pkg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSmartDurationFormat(t *testing.T) {
	cases := map[time.Duration]string{
		0:                                "0",
		-time.Second:                     "0",
		450 * time.Nanosecond:            "450ns",
		830 * time.Microsecond:           "830μs",
		12*time.Millisecond + 400:        "12ms",
		time.Second:                      "1s",
		time.Minute + 5*time.Second:      "1m5s",
		time.Hour + 30*time.Second:       "1h",
		2*24*time.Hour + 3*time.Hour + 7: "2d3h",
		90*time.Minute + 59*time.Second:  "1h30m",
	}
	for d, want := range cases {
		assert.Equal(t, want, SmartDurationFormat(d), "duration %d", int64(d))
	}
}
