/*
Package pixelhive implements a distributed Ising-model image denoiser.

This file contains the termination protocol. A worker whose iteration
budget is spent floods FINISHED to every neighbour and keeps serving
their questions until every neighbour has flooded back: a neighbour
still sampling may yet need this worker's boundary sums, and walking
away early would deadlock it.
*/
package pixelhive

import (
	"github.com/dashaylan/PixelHive/ipc"
)

// sendFinishedAll announces the end of this worker's iterations to
// every neighbour and posts the matching receives. Called exactly once
// per worker lifetime.
func (w *Worker) sendFinishedAll() {
	for d := Direction(0); d < Directions; d++ {
		if w.neighbours[d] == Absent {
			continue
		}
		n := w.finishedCount
		w.finishedRequests[n] = w.send(w.neighbours[d], TagFinished, nil)
		w.finishedResponses[n] = w.recv(w.neighbours[d], TagFinished, &w.finishedSlots[n])
		w.finishedCount = n + 1
	}
}

// testFinishedAll reports whether every FINISHED send has drained and
// every neighbour's FINISHED has arrived.
func (w *Worker) testFinishedAll() bool {
	if w.finishedCount == 0 {
		return true
	}
	return ipc.TestAll(w.finishedRequests[:w.finishedCount]) &&
		ipc.TestAll(w.finishedResponses[:w.finishedCount])
}
