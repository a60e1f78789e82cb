/*
Package pixelhive implements a distributed Ising-model image denoiser.

This file contains the worker grid and the neighbour-table
computation. The master arranges the workers into a rectangular grid,
derives each worker's eight compass neighbours and ships the table at
startup. A missing neighbour, i.e. a sub-image on the global edge, is
the sentinel Absent.
*/
package pixelhive

import (
	"fmt"
	"math"
)

// dirOffset is the grid coordinate offset of each direction.
var dirOffset = [Directions]struct{ dr, dc int }{
	Top:         {-1, 0},
	Right:       {0, 1},
	Bottom:      {1, 0},
	Left:        {0, -1},
	TopRight:    {-1, 1},
	BottomRight: {1, 1},
	BottomLeft:  {1, -1},
	TopLeft:     {-1, -1},
}

// Grid is the rectangular arrangement of the workers. Worker ranks
// 1..Rows*Columns fill the grid in row-major order.
type Grid struct {
	Rows    int
	Columns int
}

// SplitGrid derives the worker grid from the worker count and the
// image shape. It prefers the squarest grid: the smallest divisor d of
// workers with d >= ceil(sqrt(workers)) such that the image divides
// evenly into workers/d rows of d sub-images; failing that, the
// remaining divisors in descending order. No usable divisor is a
// topology error.
func SplitGrid(workers, imageRows, imageColumns int) (Grid, error) {
	if workers < 1 {
		return Grid{}, fmt.Errorf("no workers to split %dx%d image over", imageRows, imageColumns)
	}
	fits := func(d int) bool {
		return imageColumns%d == 0 && imageRows%(workers/d) == 0
	}
	low := int(math.Ceil(math.Sqrt(float64(workers))))
	for d := low; d <= workers; d++ {
		if workers%d == 0 && fits(d) {
			return Grid{Rows: workers / d, Columns: d}, nil
		}
	}
	for d := low - 1; d >= 1; d-- {
		if workers%d == 0 && fits(d) {
			return Grid{Rows: workers / d, Columns: d}, nil
		}
	}
	return Grid{}, fmt.Errorf("cannot split %dx%d image over %d workers",
		imageRows, imageColumns, workers)
}

// Coord returns the grid coordinates of a worker rank.
func (g Grid) Coord(rank int) (row, col int) {
	return (rank - 1) / g.Columns, (rank - 1) % g.Columns
}

// RankAt returns the worker rank at the given grid coordinates.
func (g Grid) RankAt(row, col int) int {
	return row*g.Columns + col + 1
}

// Neighbours computes the eight compass neighbour ranks of a worker.
// A coordinate outside the grid yields Absent; a diagonal is therefore
// absent whenever either of its axial directions is.
func (g Grid) Neighbours(rank int) [Directions]int {
	var nb [Directions]int
	row, col := g.Coord(rank)
	for d := Direction(0); d < Directions; d++ {
		r, c := row+dirOffset[d].dr, col+dirOffset[d].dc
		if r < 0 || r >= g.Rows || c < 0 || c >= g.Columns {
			nb[d] = Absent
		} else {
			nb[d] = g.RankAt(r, c)
		}
	}
	return nb
}
