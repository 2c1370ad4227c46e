package mqttq

import "sync/atomic"

// messageIDs hands out packet identifiers. MQTT identifiers are 16 bit and
// never zero, so the sequence runs 1..65535 and then starts over at 1.
type messageIDs struct {
	last atomic.Uint32
}

func (m *messageIDs) next() uint16 {
	for {
		old := m.last.Load()
		id := old%65535 + 1
		if m.last.CompareAndSwap(old, id) {
			return uint16(id)
		}
	}
}
