// Package pkg holds small helpers shared by the server packages.
package pkg

import (
	"strconv"
	"strings"
	"time"
)

var units = []struct {
	suffix string
	size   time.Duration
}{
	{"d", 24 * time.Hour},
	{"h", time.Hour},
	{"m", time.Minute},
	{"s", time.Second},
}

// SmartDurationFormat renders d compactly for headers and logs. Below one
// second it uses the largest whole sub-second unit ("12ms", "830μs"); from
// one second up it keeps the largest unit and the next one down, dropping
// the second when it is zero ("1m5s", "2d3h", "1h").
func SmartDurationFormat(d time.Duration) string {
	switch {
	case d <= 0:
		return "0"
	case d < time.Microsecond:
		return strconv.FormatInt(d.Nanoseconds(), 10) + "ns"
	case d < time.Millisecond:
		return strconv.FormatInt(d.Microseconds(), 10) + "μs"
	case d < time.Second:
		return strconv.FormatInt(d.Milliseconds(), 10) + "ms"
	}
	var b strings.Builder
	parts := 0
	for _, u := range units {
		if d < u.size {
			if parts > 0 {
				break
			}
			continue
		}
		b.WriteString(strconv.FormatInt(int64(d/u.size), 10))
		b.WriteString(u.suffix)
		d %= u.size
		if parts++; parts == 2 || d == 0 {
			break
		}
	}
	return b.String()
}
