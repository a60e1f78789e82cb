/*
Package pixelhive implements a distributed Ising-model image denoiser.

This file contains the message tags, the transport interface and the
pieces shared by the master and the workers: leveled logging and the
optional GoVector message trace.
*/
package pixelhive

import (
	"fmt"
	"strconv"

	"github.com/DistributedClocks/GoVector/govec"
	"github.com/dashaylan/PixelHive/ipc"
)

// MasterRank is the rank of the coordinator process.
const MasterRank = 0

// Directions is the number of compass neighbours of a sub-image.
const Directions = 8

// TotalIterations is the default sampling budget, divided evenly
// across the workers.
const TotalIterations = 5000000

// Direction indexes the compass neighbours of a sub-image. The values
// are array indices into the per-direction request state; they are
// never used as transport tags.
type Direction int

const (
	Top Direction = iota
	Right
	Bottom
	Left
	TopRight
	BottomRight
	BottomLeft
	TopLeft
)

var dirName = [Directions]string{
	Top: "TOP", Right: "RIGHT", Bottom: "BOTTOM", Left: "LEFT",
	TopRight: "TOP_RIGHT", BottomRight: "BOTTOM_RIGHT",
	BottomLeft: "BOTTOM_LEFT", TopLeft: "TOP_LEFT",
}

func (d Direction) String() string {
	return dirName[d]
}

// Absent marks a direction with no neighbour, i.e. the edge of the
// global image.
const Absent = -1

// List of message tags sent between the ranks. The ranges never
// overlap: neighbour assignment uses TagNeighbour+d rather than the
// direction value itself, image rows use TagImage+i on the way out and
// TagFinalImage+i on the way back.
const (
	TagRows       = 20    /* Master -> Worker   sub-image row count    */
	TagColumns    = 21    /* Master -> Worker   sub-image column count */
	TagNeighbour  = 100   /* Master -> Worker   neighbour rank, +d     */
	TagQuestion   = 500   /* Worker -> Worker   boundary position      */
	TagAnswer     = 600   /* Worker -> Worker   partial neighbour sum  */
	TagFinished   = 700   /* Worker -> Worker   iteration budget spent */
	TagImage      = 1000  /* Master -> Worker   initial row, +i        */
	TagFinalImage = 60000 /* Worker -> Master   denoised row, +i       */
)

func tagString(tag int) string {
	switch {
	case tag == TagRows:
		return "ROWS"
	case tag == TagColumns:
		return "COLUMNS"
	case tag == TagQuestion:
		return "QUESTION"
	case tag == TagAnswer:
		return "ANSWER"
	case tag == TagFinished:
		return "FINISHED"
	case tag >= TagNeighbour && tag < TagNeighbour+Directions:
		return "NEIGHBOUR_" + dirName[tag-TagNeighbour]
	case tag >= TagFinalImage:
		return fmt.Sprint("FINAL_IMAGE_ROW_", tag-TagFinalImage)
	case tag >= TagImage:
		return fmt.Sprint("IMAGE_ROW_", tag-TagImage)
	}
	return strconv.Itoa(tag)
}

// Transport is the asynchronous point-to-point messaging substrate the
// ranks run on. ipc.Endpoint provides it over TCP; tipc.Conn provides
// it in-process for tests.
type Transport interface {
	Rank() int
	PostSend(dest, tag int, payload []byte) *ipc.Handle
	PostRecv(src, tag int, slot *[]byte) *ipc.Handle
}

var LogChan chan string = make(chan string, 100)

// comm carries the transport, the debug logger and the optional
// GoVector trace shared by the master and the workers.
type comm struct {
	tr         Transport
	debugLevel int
	vecLog     *govec.GoLog
}

func newComm(tr Transport, gvec string) comm {
	c := comm{tr: tr}
	if gvec != "" {
		process := gvec + strconv.Itoa(tr.Rank())
		c.vecLog = govec.InitGoVector(process, process, govec.GetDefaultConfig())
	}
	return c
}

// send posts a non-blocking send, wrapping the payload with the vector
// clock when tracing is on.
func (c *comm) send(dest, tag int, payload []byte) *ipc.Handle {
	buf := payload
	if c.vecLog != nil {
		buf = c.vecLog.PrepareSend("Tx "+tagString(tag), payload, govec.GetDefaultLogOptions())
	}
	c.LogMsg("Send[%d]:%s", dest, tagString(tag))
	return c.tr.PostSend(dest, tag, buf)
}

// recv posts a non-blocking receive. The slot holds the wire form; the
// consumer passes it through unpack before decoding.
func (c *comm) recv(src, tag int, slot *[]byte) *ipc.Handle {
	return c.tr.PostRecv(src, tag, slot)
}

// recvWait blocks until the message arrives and returns the unpacked
// payload. Used by the worker on the setup path and by the master for
// scatter and gather, where the caller has no questions to serve.
func (c *comm) recvWait(src, tag int) []byte {
	var raw []byte
	c.tr.PostRecv(src, tag, &raw).Wait()
	c.LogMsg("Recv[%d]:%s", src, tagString(tag))
	return c.unpack("Rx "+tagString(tag), raw)
}

// unpack strips the vector clock off a received payload when tracing
// is on.
func (c *comm) unpack(event string, raw []byte) []byte {
	if c.vecLog == nil {
		return raw
	}
	var buf []byte
	c.vecLog.UnpackReceive(event, raw, &buf, govec.GetDefaultLogOptions())
	return buf
}

// SetDebug sets the debug message level. Lower levels are included in
// higher levels
// 0 - disable all output
// 1 - Enable Error messages
// 2 - Enable Info messages
// 3 - Enables message trace
// 4 - Enable Debug messages
func (c *comm) SetDebug(level int) {
	c.debugLevel = level
}

// LogError used to log any error messages
func (c *comm) LogError(f string, a ...interface{}) {
	if c.debugLevel > 0 {
		c.Log(f, a...)
	}
}

// LogInfo used to log any info messages
func (c *comm) LogInfo(f string, a ...interface{}) {
	if c.debugLevel > 1 {
		c.Log(f, a...)
	}
}

// LogMsg used to log messages sent to and received from the transport
func (c *comm) LogMsg(f string, a ...interface{}) {
	if c.debugLevel > 2 {
		c.Log(f, a...)
	}
}

//LogDebug used to log verbose debug info useful for debugging the system
func (c *comm) LogDebug(f string, a ...interface{}) {
	if c.debugLevel > 3 {
		c.Log(f, a...)
	}
}

// Log is called by all of the log functions and formats the messages
// and puts them on the global Log channel
func (c *comm) Log(f string, a ...interface{}) {
	s := fmt.Sprintf("[%d]-", c.tr.Rank()) + fmt.Sprintf(f, a...) + "\n"
	LogChan <- s
}

// DumpLog drains the global log channel to stdout.
func DumpLog() {
	for s := range LogChan {
		fmt.Print(s)
	}
}
