package model

import (
	"strconv"
	"time"
)

// Interval is a candle width in minutes.
type Interval int

const (
	Interval1m  Interval = 1
	Interval5m  Interval = 5
	Interval15m Interval = 15
	Interval30m Interval = 30
	Interval1h  Interval = 60
	Interval4h  Interval = 240
	Interval1d  Interval = 1440
	Interval1w  Interval = 10080
	Interval15d Interval = 21600
)

// Intervals returns the fixed set of widths accepted by the feed, ascending.
func Intervals() []Interval {
	return []Interval{
		Interval1m, Interval5m, Interval15m, Interval30m,
		Interval1h, Interval4h, Interval1d, Interval1w, Interval15d,
	}
}

func (i Interval) IsAvailable() bool {
	for _, v := range Intervals() {
		if v == i {
			return true
		}
	}
	return false
}

func (i Interval) Duration() time.Duration {
	return time.Duration(i) * time.Minute
}

// Milliseconds is the width in the internal millisecond time base.
func (i Interval) Milliseconds() int64 {
	return int64(i) * int64(time.Minute/time.Millisecond)
}

// Label returns the short chart label, e.g. "15m", "4h", "1d".
func (i Interval) Label() string {
	switch {
	case i <= 0:
		return "0m"
	case i%10080 == 0:
		return strconv.Itoa(int(i/10080)) + "w"
	case i%1440 == 0:
		return strconv.Itoa(int(i/1440)) + "d"
	case i%60 == 0:
		return strconv.Itoa(int(i/60)) + "h"
	default:
		return strconv.Itoa(int(i)) + "m"
	}
}
