/*
Package pixelhive implements a distributed Ising-model image denoiser.

This file contains the master. It reads the image, arranges the
workers into a grid, ships every worker its dimensions, neighbour
table and initial sub-image, then gathers the denoised rows and writes
the output file. The master takes no part in the worker-to-worker
protocol.
*/
package pixelhive

import (
	"time"

	"github.com/dashaylan/PixelHive/ipc"
)

// Master partitions the image across the workers and collects the
// result.
type Master struct {
	comm
	workers int
}

// NewMaster creates the master for a cluster of the given worker
// count, ranks 1..workers.
func NewMaster(tr Transport, workers int, gvec string) *Master {
	return &Master{comm: newComm(tr, gvec), workers: workers}
}

// Run drives the whole job: scatter, wait for the gather, write the
// output. Errors on the file and topology paths abort before or after
// the transport phase; the transport phase itself has no recoverable
// errors.
func (m *Master) Run(input, output string) error {
	img, err := ReadImage(input)
	if err != nil {
		return err
	}
	rowCount, columnCount := len(img), len(img[0])

	grid, err := SplitGrid(m.workers, rowCount, columnCount)
	if err != nil {
		return err
	}
	rowsPer := rowCount / grid.Rows
	colsPer := columnCount / grid.Columns
	m.LogInfo("splitting %dx%d image over a %dx%d worker grid, %dx%d each",
		rowCount, columnCount, grid.Rows, grid.Columns, rowsPer, colsPer)

	start := time.Now()
	var handles []*ipc.Handle
	for rank := 1; rank <= m.workers; rank++ {
		handles = append(handles,
			m.send(rank, TagRows, encodeInt(rowsPer)),
			m.send(rank, TagColumns, encodeInt(colsPer)))
		nb := grid.Neighbours(rank)
		for d := Direction(0); d < Directions; d++ {
			handles = append(handles, m.send(rank, TagNeighbour+int(d), encodeInt(nb[d])))
		}
	}
	for r := 0; r < rowCount; r++ {
		gridRow, localRow := r/rowsPer, r%rowsPer
		for gridCol := 0; gridCol < grid.Columns; gridCol++ {
			rank := grid.RankAt(gridRow, gridCol)
			seg := pixelsToBytes(img[r][gridCol*colsPer : (gridCol+1)*colsPer])
			handles = append(handles, m.send(rank, TagImage+localRow, seg))
		}
	}
	ipc.WaitAll(handles...)
	m.LogInfo("all workers received their input from master, and started working")

	final := make([][]int8, rowCount)
	for r := 0; r < rowCount; r++ {
		final[r] = make([]int8, columnCount)
		gridRow, localRow := r/rowsPer, r%rowsPer
		for gridCol := 0; gridCol < grid.Columns; gridCol++ {
			rank := grid.RankAt(gridRow, gridCol)
			seg := m.recvWait(rank, TagFinalImage+localRow)
			copy(final[r][gridCol*colsPer:], bytesToPixels(seg))
		}
	}
	m.LogInfo("finished calculations and communications after %s, started writing to output", time.Since(start))

	return WriteImage(output, final)
}
