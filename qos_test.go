package mqttq

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageIDs(t *testing.T) {
	var ids messageIDs

	assert.Equal(t, uint16(1), ids.next())
	assert.Equal(t, uint16(2), ids.next())

	ids.last.Store(65534)
	assert.Equal(t, uint16(65535), ids.next())
	assert.Equal(t, uint16(1), ids.next(), "ids wrap to 1 and skip 0")
}

func TestMessageIDsConcurrent(t *testing.T) {
	var (
		ids  messageIDs
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[uint16]bool)
	)

	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 500 {
				id := ids.next()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 4000)
	assert.False(t, seen[0])
}
