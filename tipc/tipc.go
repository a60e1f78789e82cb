/*
Package tipc is part of PixelHive, a distributed Ising-model image denoiser.

This file contains the implementation of the test inter-worker
messaging layer. This implements point-to-point communications between
a fixed set of ranks inside a single process.

*** This is implemented to support unit testing of the denoiser engine
*** without sockets. Sends deliver straight into the destination
*** mailbox and complete immediately, like a buffered transport.
*/
package tipc

import (
	"github.com/dashaylan/PixelHive/ipc"
)

// Fabric connects a fixed set of ranks with in-process message
// passing. Rank i talks through the Conn returned by Endpoint(i).
type Fabric struct {
	boxes []*ipc.Mailbox
}

// NewFabric creates a fabric for ranks 0..nrPeer-1.
func NewFabric(nrPeer int) *Fabric {
	f := &Fabric{boxes: make([]*ipc.Mailbox, nrPeer)}
	for i := range f.boxes {
		f.boxes[i] = ipc.NewMailbox()
	}
	return f
}

// Endpoint returns the transport endpoint of the given rank.
func (f *Fabric) Endpoint(rank int) *Conn {
	return &Conn{rank: rank, fabric: f}
}

// Conn is one rank's view of the fabric.
type Conn struct {
	rank   int
	fabric *Fabric
}

// Rank returns the rank this endpoint belongs to.
func (c *Conn) Rank() int {
	return c.rank
}

// PostSend delivers payload into the destination mailbox and returns a
// completed handle.
func (c *Conn) PostSend(dest, tag int, payload []byte) *ipc.Handle {
	buf := append([]byte(nil), payload...)
	c.fabric.boxes[dest].Deliver(c.rank, tag, buf)
	return ipc.Done()
}

// PostRecv posts a receive on this rank's mailbox.
func (c *Conn) PostRecv(src, tag int, slot *[]byte) *ipc.Handle {
	return c.fabric.boxes[c.rank].PostRecv(src, tag, slot)
}
