/*
Package ipc is part of PixelHive, a distributed Ising-model image denoiser.

This file contains the implementation of the inter-worker messaging
layer. This implements a fast, reliable point-to-point communications
between this node and all other nodes in the cluster. Sends and
receives are posted without blocking and return a Handle that can be
polled; delivery is tag-matched and in order per (peer, tag) pair.
*/
package ipc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

// Handle is returned by PostSend and PostRecv and completes
// asynchronously once the operation behind it has finished.
type Handle struct {
	once sync.Once
	c    chan struct{}
}

// NewHandle creates a handle in the not-yet-completed state.
func NewHandle() *Handle {
	return &Handle{c: make(chan struct{})}
}

// Done returns a handle that has already completed.
func Done() *Handle {
	h := NewHandle()
	h.complete()
	return h
}

func (h *Handle) complete() {
	h.once.Do(func() { close(h.c) })
}

// Test reports whether the operation has completed. It never blocks.
func (h *Handle) Test() bool {
	select {
	case <-h.c:
		return true
	default:
		return false
	}
}

// Wait blocks until the operation completes.
func (h *Handle) Wait() {
	<-h.c
}

// TestAll reports whether every handle has completed. It never blocks.
func TestAll(hs []*Handle) bool {
	for _, h := range hs {
		if h != nil && !h.Test() {
			return false
		}
	}
	return true
}

// WaitAll blocks until every handle completes.
func WaitAll(hs ...*Handle) {
	for _, h := range hs {
		if h != nil {
			h.Wait()
		}
	}
}

type match struct {
	src int
	tag int
}

type recvOp struct {
	slot *[]byte
	h    *Handle
}

// Mailbox pairs posted receives with incoming messages. Matching is by
// (source, tag). Messages that arrive before a receive has been posted
// are buffered in arrival order, so a (peer, tag) stream is consumed in
// the order it was sent.
type Mailbox struct {
	mu      sync.Mutex
	pending map[match][]*recvOp
	arrived map[match][][]byte
}

// NewMailbox creates an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{
		pending: make(map[match][]*recvOp),
		arrived: make(map[match][][]byte),
	}
}

// PostRecv registers a receive for the next message from src with the
// given tag. The payload is stored in slot when the handle completes.
func (m *Mailbox) PostRecv(src, tag int, slot *[]byte) *Handle {
	h := NewHandle()
	k := match{src, tag}
	m.mu.Lock()
	if q := m.arrived[k]; len(q) > 0 {
		*slot = q[0]
		m.arrived[k] = q[1:]
		m.mu.Unlock()
		h.complete()
		return h
	}
	m.pending[k] = append(m.pending[k], &recvOp{slot, h})
	m.mu.Unlock()
	return h
}

// Deliver hands an incoming message to the oldest matching posted
// receive, or buffers it until one is posted.
func (m *Mailbox) Deliver(src, tag int, payload []byte) {
	k := match{src, tag}
	m.mu.Lock()
	if q := m.pending[k]; len(q) > 0 {
		op := q[0]
		m.pending[k] = q[1:]
		*op.slot = payload
		m.mu.Unlock()
		op.h.complete()
		return
	}
	m.arrived[k] = append(m.arrived[k], payload)
	m.mu.Unlock()
}

// tagHello is the rank exchange frame sent once on every dialed
// connection. It never reaches the mailbox.
const tagHello = -1

//how many outgoing frames to buffer
const txBufSize = 64

type outFrame struct {
	dest int
	buf  []byte
	h    *Handle
}

type peer struct {
	rank int
	conn *net.TCPConn
}

// Endpoint is the TCP transport of one rank. Dialed connections carry
// this rank's sends; accepted connections feed the mailbox.
type Endpoint struct {
	rank     int
	port     int
	listener *net.TCPListener
	mu       sync.RWMutex
	peers    map[int]*peer
	tx       chan outFrame
	box      *Mailbox
}

// NewEndpoint creates the endpoint for the given rank, listening on
// port+rank, and starts its listen and send tasks.
func NewEndpoint(port, rank, nrPeer int) (*Endpoint, error) {
	ep := &Endpoint{
		rank:  rank,
		port:  port,
		peers: make(map[int]*peer, nrPeer),
		tx:    make(chan outFrame, txBufSize),
		box:   NewMailbox(),
	}
	listener, err := net.Listen("tcp", fmt.Sprint(":", port+rank))
	if err != nil {
		return nil, err
	}
	ep.listener = listener.(*net.TCPListener)
	go ep.listenTask()
	go ep.sendTask()
	return ep, nil
}

// Rank returns the rank this endpoint was created for.
func (ep *Endpoint) Rank() int {
	return ep.rank
}

// Connect dials the rank at the given address. The resulting connection
// carries this endpoint's sends to that rank.
func (ep *Endpoint) Connect(ip string, rank int) error {
	if rank == ep.rank {
		return errors.New("cannot connect to myself")
	}
	conn, err := net.DialTimeout("tcp", fmt.Sprint(ip, ":", ep.port+rank), time.Second*5)
	for err != nil {
		conn, err = net.DialTimeout("tcp", fmt.Sprint(ip, ":", ep.port+rank), time.Second*5)
	}
	c := conn.(*net.TCPConn)
	writeFrame(c, encodeFrame(ep.rank, tagHello, nil))
	ep.mu.Lock()
	ep.peers[rank] = &peer{rank, c}
	ep.mu.Unlock()
	return nil
}

// Close shuts the listener and the send task down. Posted operations
// that have not completed never will.
func (ep *Endpoint) Close() {
	close(ep.tx)
	ep.listener.Close()
}

// PostSend posts a non-blocking send of payload to dest. The handle
// completes once the frame has been handed to the network.
func (ep *Endpoint) PostSend(dest, tag int, payload []byte) *Handle {
	buf := append([]byte(nil), payload...)
	if dest == ep.rank {
		ep.box.Deliver(ep.rank, tag, buf)
		return Done()
	}
	h := NewHandle()
	ep.tx <- outFrame{dest, encodeFrame(ep.rank, tag, buf), h}
	return h
}

// PostRecv posts a non-blocking receive for the next message from src
// with the given tag.
func (ep *Endpoint) PostRecv(src, tag int, slot *[]byte) *Handle {
	return ep.box.PostRecv(src, tag, slot)
}

// Route outgoing frames to the dialed connection of their destination.
func (ep *Endpoint) sendTask() {
	for f := range ep.tx {
		ep.mu.RLock()
		p, exist := ep.peers[f.dest]
		ep.mu.RUnlock()
		if !exist {
			panic(fmt.Sprint("send to unknown rank ", f.dest))
		}
		writeFrame(p.conn, f.buf)
		f.h.complete()
	}
}

// Listen for incoming connections, read the hello frame to learn the
// peer rank and start a receive task for the connection.
func (ep *Endpoint) listenTask() {
	for {
		ep.listener.SetDeadline(time.Now().Add(time.Millisecond * 500))
		conn, err := ep.listener.AcceptTCP()
		if err == nil {
			src, tag, _, rerr := readFrame(conn)
			if rerr != nil || tag != tagHello {
				conn.Close()
				continue
			}
			go ep.receiveTask(src, conn)
		} else if !strings.HasSuffix(err.Error(), "i/o timeout") {
			return
		}
	}
}

// Read frames from an accepted connection and feed them to the mailbox.
func (ep *Endpoint) receiveTask(src int, conn *net.TCPConn) {
	for {
		from, tag, payload, err := readFrame(conn)
		if err != nil {
			return
		}
		if from != src {
			panic(fmt.Sprint("rank ", from, " frame on connection of rank ", src))
		}
		ep.box.Deliver(src, tag, payload)
	}
}

// Frame layout: 4 byte payload length, 1 byte source rank, 4 byte tag,
// payload. All integers big endian.
const frameHeader = 9

func encodeFrame(src, tag int, payload []byte) []byte {
	buf := make([]byte, frameHeader+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(payload)))
	buf[4] = byte(src)
	binary.BigEndian.PutUint32(buf[5:9], uint32(int32(tag)))
	copy(buf[frameHeader:], payload)
	return buf
}

func writeFrame(conn net.Conn, buf []byte) {
	for len(buf) > 0 {
		n, err := conn.Write(buf)
		if err != nil {
			panic(err.Error())
		}
		buf = buf[n:]
	}
}

func readFrame(conn net.Conn) (src, tag int, payload []byte, err error) {
	head := make([]byte, frameHeader)
	if _, err = io.ReadFull(conn, head); err != nil {
		return 0, 0, nil, err
	}
	length := binary.BigEndian.Uint32(head[0:4])
	src = int(head[4])
	tag = int(int32(binary.BigEndian.Uint32(head[5:9])))
	if length > 0 {
		payload = make([]byte, length)
		if _, err = io.ReadFull(conn, payload); err != nil {
			return 0, 0, nil, err
		}
	}
	return src, tag, payload, nil
}
