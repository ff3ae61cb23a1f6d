package audiostream

import (
	"github.com/usbmedia/uvccapture/usbfs"
)

// transferBackend is the subset of *usbfs.IsoTransfer the pool drives.
// Abstracting it lets tests substitute a fake that never touches real
// ioctls or hardware.
type transferBackend interface {
	Submit() error
	Discard() error
	Result() (status int32, actualLength int32, packets []usbfs.IsoPacketDescriptor)
	PacketData(packetIndex int, packets []usbfs.IsoPacketDescriptor) ([]byte, error)
	Ptr() uintptr
}

// transfer tracks one isochronous transfer's submission state alongside
// its backend.
type transfer struct {
	backend     transferBackend
	isSubmitted bool
}

// pool owns the fixed set of isochronous transfer records sized to
// cover the configured buffer capacity.
type pool struct {
	transfers []*transfer
}

// poolSizing computes numPackets, bufferSize and numTransfers from the
// audio format and the desired ring buffer capacity.
func poolSizing(framesPerBurst, subFrameSize, channels int, maxPacketSize int, bufferCapacityFrames int) (numPackets, bufferSize, numTransfers int) {
	numPackets = ceilDiv(framesPerBurst*subFrameSize*channels, maxPacketSize)
	if numPackets < 2 {
		numPackets = 2
	}
	bufferSize = maxPacketSize * numPackets
	numTransfers = ceilDiv(bufferCapacityFrames, framesPerBurst)
	if numTransfers < 2 {
		numTransfers = 2
	}
	return
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// newPool allocates numTransfers transfer records via factory, one per
// isochronous transfer slot.
func newPool(numTransfers int, factory func() transferBackend) *pool {
	p := &pool{transfers: make([]*transfer, numTransfers)}
	for i := range p.transfers {
		p.transfers[i] = &transfer{backend: factory()}
	}
	return p
}

// submitAll submits every transfer, recording isSubmitted from each
// attempt's outcome. Returns the count that submitted successfully.
func (p *pool) submitAll() int {
	submitted := 0
	for _, t := range p.transfers {
		err := t.backend.Submit()
		t.isSubmitted = err == nil
		if t.isSubmitted {
			submitted++
		}
	}
	return submitted
}

// activeCount returns how many transfers are still submitted.
func (p *pool) activeCount() int {
	n := 0
	for _, t := range p.transfers {
		if t.isSubmitted {
			n++
		}
	}
	return n
}

// discardAll cancels every still-submitted transfer.
func (p *pool) discardAll() {
	for _, t := range p.transfers {
		if t.isSubmitted {
			t.backend.Discard()
		}
	}
}

// find returns the transfer whose backend's URB pointer matches ptr.
func (p *pool) find(ptr uintptr) *transfer {
	for _, t := range p.transfers {
		if t.backend.Ptr() == ptr {
			return t
		}
	}
	return nil
}
