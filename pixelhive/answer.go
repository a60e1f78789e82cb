/*
Package pixelhive implements a distributed Ising-model image denoiser.

This file contains the answer engine: the standing receives that field
neighbours' boundary questions and the reply computation. One receive
per live direction is armed at startup and re-armed immediately after
each question is served, so a direction never has more than one
incoming question or one outgoing reply in flight.
*/
package pixelhive

// initializeAnswers arms the standing QUESTION receive for every live
// direction.
func (w *Worker) initializeAnswers() {
	for d := Direction(0); d < Directions; d++ {
		if w.neighbours[d] == Absent {
			// no neighbour in this direction
			continue
		}
		w.initializeAnswer(d)
	}
}

func (w *Worker) initializeAnswer(d Direction) {
	w.answerRequests[d] = w.recv(w.neighbours[d], TagQuestion, &w.positions[d])
}

// answerAll serves every question that has arrived: copy the position
// out, re-arm the receive, drain the previous reply send on that
// direction, then compute and post the partial sum.
func (w *Worker) answerAll() {
	for d := Direction(0); d < Directions; d++ {
		if w.neighbours[d] == Absent || !w.answerRequests[d].Test() {
			continue
		}
		position := decodeInt(w.unpack("Rx QUESTION", w.positions[d]))
		w.initializeAnswer(d)
		if w.answerResponses[d] != nil {
			w.answerResponses[d].Wait()
			w.answerResponses[d] = nil
		}
		rowCenter, columnCenter := w.answerCentre(d, position)
		sum := w.sub.Summer(rowCenter, columnCenter)
		w.answerResponses[d] = w.send(w.neighbours[d], TagAnswer, encodeInt(sum))
		w.served[d]++
	}
}

// answerCentre maps a question to the centre of its 3x3 window in
// local coordinates. The asking pixel belongs to the neighbour, so the
// centre lands one past an edge of this sub-image: row -1 for a
// question from above, row rows for one from below, and likewise for
// the columns. Summer then clips the window to the local pixels.
func (w *Worker) answerCentre(d Direction, position int) (rowCenter, columnCenter int) {
	switch d {
	case Top, TopLeft, TopRight:
		rowCenter = -1
	case Bottom, BottomLeft, BottomRight:
		rowCenter = w.rows
	case Left, Right:
		rowCenter = position
	}
	switch d {
	case Left, TopLeft, BottomLeft:
		columnCenter = -1
	case Right, TopRight, BottomRight:
		columnCenter = w.columns
	case Top, Bottom:
		columnCenter = position
	}
	return rowCenter, columnCenter
}
