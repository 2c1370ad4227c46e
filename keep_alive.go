package mqttq

import (
	"sync/atomic"
	"time"
)

// keepAliveClock records when the client last wrote to the broker and
// reports when a PINGREQ is due. Every successful write resets it, so a
// busy connection never pings.
type keepAliveClock struct {
	interval time.Duration
	last     atomic.Int64
	now      func() time.Time
}

func newKeepAliveClock(seconds uint16) *keepAliveClock {
	k := &keepAliveClock{
		interval: time.Duration(seconds) * time.Second,
		now:      time.Now,
	}
	k.touch()
	return k
}

// touch marks the current time as the last activity.
func (k *keepAliveClock) touch() {
	k.last.Store(k.now().UnixNano())
}

// idle returns the time elapsed since the last activity.
func (k *keepAliveClock) idle() time.Duration {
	return k.now().Sub(time.Unix(0, k.last.Load()))
}

// due reports whether a ping should be sent. A zero interval never pings.
func (k *keepAliveClock) due() bool {
	if k.interval <= 0 {
		return false
	}
	return k.idle() >= k.interval
}
