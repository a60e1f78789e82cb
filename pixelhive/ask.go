/*
Package pixelhive implements a distributed Ising-model image denoiser.

This file contains the query engine: posting boundary questions to
neighbours and collecting their partial sums. Asks are paired send and
receive handles; the sampler polls them with testAskAll while pumping
the answer engine, then folds the replies in with askResult.
*/
package pixelhive

import (
	"github.com/dashaylan/PixelHive/ipc"
)

// askAsync poses a boundary question to the neighbour in direction d,
// if present. position carries the column index for TOP/BOTTOM
// questions, the row index for LEFT/RIGHT, and 0 for the corners: the
// responder knows which corner is meant from which peer the question
// came in from.
func (w *Worker) askAsync(d Direction, position int) {
	neighbour := w.neighbours[d]
	if neighbour == Absent {
		// no neighbour in this direction
		return
	}
	n := w.askCount
	w.askRequests[n] = w.send(neighbour, TagQuestion, encodeInt(position))
	w.askResponses[n] = w.recv(neighbour, TagAnswer, &w.askValues[n])
	w.askCount = n + 1
	w.asked[d]++
}

// testAskAll reports whether every outstanding ask has completed,
// question sends and answer receives alike.
func (w *Worker) testAskAll() bool {
	if w.askCount == 0 {
		return true
	}
	return ipc.TestAll(w.askRequests[:w.askCount]) &&
		ipc.TestAll(w.askResponses[:w.askCount])
}

// askResult sums the collected replies and retires the outstanding
// asks. Only called after testAskAll has reported completion.
func (w *Worker) askResult() int {
	result := 0
	for w.askCount > 0 {
		w.askCount--
		result += decodeInt(w.unpack("Rx ANSWER", w.askValues[w.askCount]))
	}
	return result
}
