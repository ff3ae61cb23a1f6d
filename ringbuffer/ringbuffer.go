// Package ringbuffer implements the bounded single-producer,
// single-consumer PCM sample queue that decouples the USB isochronous
// producer clock from the audio callback consumer clock. Overrun policy
// is drop-oldest: a write that would exceed free space advances the
// read position so the newest samples win.
//
// Read/write positions and the fill count are plain ints, not atomics,
// and Buffer holds no lock, so Write and Read must not run concurrently.
// In this module both run on the audio sink's callback thread (the pump
// reaps completed transfers, which Write, and then Reads); callers that
// split producer and consumer across goroutines must guard Write/Read
// with their own synchronization.
package ringbuffer

// Buffer is a fixed-capacity circular queue of 16-bit PCM samples.
type Buffer struct {
	data     []int16
	capacity int
	writePos int
	readPos  int

	// count tracks the number of queued samples directly rather than
	// deriving it from (writePos-readPos)%capacity: that derivation is 0
	// both when the buffer is empty and when writePos has wrapped exactly
	// back onto readPos after a write that filled it to capacity, so it
	// can't tell "empty" from "full" apart.
	count int
}

// Size computes a buffer capacity (in samples) sized to hold the full
// isochronous transfer pool's worth of audio:
//
//	max(2, ceil(framesPerBurst*subFrame*channels/maxPacketSize)) * maxPacketSize *
//	max(2, ceil(bufferCapacityInFrames/framesPerBurst)) / subFrame
func Size(framesPerBurst, subFrameSize, channels, maxPacketSize, bufferCapacityInFrames int) int {
	numPackets := ceilDiv(framesPerBurst*subFrameSize*channels, maxPacketSize)
	if numPackets < 2 {
		numPackets = 2
	}
	numTransfers := ceilDiv(bufferCapacityInFrames, framesPerBurst)
	if numTransfers < 2 {
		numTransfers = 2
	}
	return numPackets * maxPacketSize * numTransfers / subFrameSize
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// New allocates a Buffer with the given sample capacity.
func New(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{
		data:     make([]int16, capacity),
		capacity: capacity,
	}
}

// Capacity returns the buffer's fixed sample capacity.
func (b *Buffer) Capacity() int {
	return b.capacity
}

// Size returns the number of samples currently queued, always in
// [0, capacity].
func (b *Buffer) Size() int {
	return b.count
}

// Write enqueues up to len(data) samples, returning len(data) regardless
// of truncation or drop-oldest eviction: callers use the return value to
// detect a short write against their own source buffer, not to measure
// how much of the ring actually got touched. If len(data) exceeds
// capacity, only the trailing capacity samples are kept. If the pending
// write would exceed free space, the read position is advanced to drop
// the oldest queued samples so the new data always fits.
func (b *Buffer) Write(data []int16) int {
	requested := len(data)
	if requested == 0 {
		return 0
	}
	if len(data) > b.capacity {
		data = data[len(data)-b.capacity:]
	}
	n := len(data)

	free := b.capacity - b.count
	if n > free {
		overflow := n - free
		b.readPos = (b.readPos + overflow) % b.capacity
		b.count -= overflow
	}

	for _, sample := range data {
		b.data[b.writePos] = sample
		b.writePos = (b.writePos + 1) % b.capacity
	}
	b.count += n
	return requested
}

// Read dequeues up to len(dst) samples into dst, returning the number
// read. Never blocks; returns 0 if the buffer is empty.
func (b *Buffer) Read(dst []int16) int {
	n := len(dst)
	if n > b.count {
		n = b.count
	}
	for i := 0; i < n; i++ {
		dst[i] = b.data[b.readPos]
		b.readPos = (b.readPos + 1) % b.capacity
	}
	b.count -= n
	return n
}
