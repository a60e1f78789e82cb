/*
Package pixelhive implements a distributed Ising-model image denoiser.

This file contains the worker state and the sampler loop. A worker is
a single-threaded cooperative scheduler over the transport: the only
places it waits are the ask loop and the termination loop, and both
keep pumping the answer engine between polls so that neighbours asking
back are never starved.
*/
package pixelhive

import (
	"math"
	"math/rand"
	"os"

	"github.com/dashaylan/PixelHive/ipc"
)

// Worker owns one sub-image and runs the Metropolis sampler over it.
type Worker struct {
	comm
	rank       int
	iterations int
	beta       float64
	gamma      float64
	rng        *rand.Rand
	hostname   string

	rows       int
	columns    int
	sub        *SubImage
	neighbours [Directions]int

	// Query engine state. A single step poses one question per external
	// direction it touches: at most three when the sub-image is at least
	// 2x2, but all eight for a 1x1 sub-image, so the slots are sized for
	// the full compass.
	askRequests  [Directions]*ipc.Handle
	askResponses [Directions]*ipc.Handle
	askValues    [Directions][]byte
	askCount     int

	// Answer engine state. One standing QUESTION receive per live
	// direction; the previous ANSWER send on a direction must drain
	// before the next reply is posted.
	positions       [Directions][]byte
	answerRequests  [Directions]*ipc.Handle
	answerResponses [Directions]*ipc.Handle

	finishedRequests  [Directions]*ipc.Handle
	finishedResponses [Directions]*ipc.Handle
	finishedSlots     [Directions][]byte
	finishedCount     int

	asked  [Directions]int
	served [Directions]int
}

// NewWorker creates a worker on the given transport. The random source
// is passed in explicitly; gamma is the derived data-fidelity weight
// (1/2)ln((1-pi)/pi).
func NewWorker(tr Transport, beta, gamma float64, iterations int, rng *rand.Rand, gvec string) *Worker {
	w := &Worker{
		comm:       newComm(tr, gvec),
		rank:       tr.Rank(),
		iterations: iterations,
		beta:       beta,
		gamma:      gamma,
		rng:        rng,
	}
	w.hostname, _ = os.Hostname()
	return w
}

// Run receives the assignment from the master, samples until the
// iteration budget is spent, completes the termination handshake and
// ships the denoised sub-image back. It returns after the master has
// everything it needs from this rank.
func (w *Worker) Run() error {
	w.receiveAssignment()
	w.initializeAnswers()
	w.LogInfo("worker %d (on node %s) started, %d iterations over %dx%d",
		w.rank, w.hostname, w.iterations, w.rows, w.columns)

	for left := w.iterations; left > 0; left-- {
		if left%1000000 == 0 {
			w.LogInfo("worker %d (on node %s) started a new millionth iteration - left: %d",
				w.rank, w.hostname, left)
		}
		w.step()
	}

	// dont finish yet, instead wait until all neighbours also finish
	w.sendFinishedAll()
	for !w.testFinishedAll() {
		w.answerAll()
	}
	for i := 0; i < w.finishedCount; i++ {
		w.unpack("Rx FINISHED", w.finishedSlots[i])
	}

	w.sendFinalImage()
	w.LogInfo("worker %d finished its work and exited successfully (on node %s)", w.rank, w.hostname)
	return nil
}

// receiveAssignment consumes the startup protocol: dimensions, the
// neighbour table and the initial sub-image rows, in that order.
func (w *Worker) receiveAssignment() {
	w.rows = decodeInt(w.recvWait(MasterRank, TagRows))
	w.columns = decodeInt(w.recvWait(MasterRank, TagColumns))
	for d := Direction(0); d < Directions; d++ {
		w.neighbours[d] = decodeInt(w.recvWait(MasterRank, TagNeighbour+int(d)))
	}
	w.sub = NewSubImage(w.rows, w.columns)
	for i := 0; i < w.rows; i++ {
		w.sub.SetRow(i, w.recvWait(MasterRank, TagImage+i))
	}
}

// step performs one proposal: pick a pixel, gather its neighbourhood
// sum across sub-image edges if needed, and accept or reject the flip.
func (w *Worker) step() {
	r := w.rng.Intn(w.rows)
	c := w.rng.Intn(w.columns)

	sum := w.sub.Summer(r, c)
	if r == 0 {
		w.askAsync(Top, c)
		if c == 0 {
			w.askAsync(TopLeft, 0)
		}
		if c == w.columns-1 {
			w.askAsync(TopRight, 0)
		}
	}
	if r == w.rows-1 {
		w.askAsync(Bottom, c)
		if c == 0 {
			w.askAsync(BottomLeft, 0)
		}
		if c == w.columns-1 {
			w.askAsync(BottomRight, 0)
		}
	}
	if c == 0 {
		w.askAsync(Left, r)
	}
	if c == w.columns-1 {
		w.askAsync(Right, r)
	}
	for !w.testAskAll() {
		/* answer neighbours' questions before waiting for answers to
		   our own -- two workers asking each other at once would
		   otherwise deadlock */
		w.answerAll()
	}
	sum += w.askResult()

	if math.Log(w.uniform()) <= w.deltaE(r, c, sum) {
		w.sub.Flip(r, c)
	}
}

// deltaE is the energy change of flipping pixel (r, c) given the sum
// of its neighbours.
func (w *Worker) deltaE(r, c, sum int) float64 {
	cur := float64(w.sub.At(r, c))
	return -2*w.gamma*float64(w.sub.Initial(r, c))*cur - 2*w.beta*cur*float64(sum)
}

// uniform draws from (0, 1], so its log is always finite.
// Comparing log(u) <= deltaE instead of u <= exp(deltaE) cannot
// overflow for large positive deltaE; the missing clamp to 1 is fine
// because deltaE >= 0 then accepts unconditionally either way.
func (w *Worker) uniform() float64 {
	return 1 - w.rng.Float64()
}

// sendFinalImage ships the denoised rows back to the master.
func (w *Worker) sendFinalImage() {
	handles := make([]*ipc.Handle, w.rows)
	for i := 0; i < w.rows; i++ {
		handles[i] = w.send(MasterRank, TagFinalImage+i, w.sub.Row(i))
	}
	ipc.WaitAll(handles...)
}
