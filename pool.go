package mqttq

import (
	"bytes"
	"sync"
)

// maxPooledBuffer caps the capacity of buffers returned to the pool so a
// single large publish does not pin memory.
const maxPooledBuffer = 64 * 1024

var bufferPool = sync.Pool{
	New: func() any {
		return new(bytes.Buffer)
	},
}

func getBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func putBuffer(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > maxPooledBuffer {
		return
	}
	bufferPool.Put(buf)
}
