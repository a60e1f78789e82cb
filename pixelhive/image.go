/*
Package pixelhive implements a distributed Ising-model image denoiser.

This file contains the image file reader and writer used by the
master. The format is whitespace separated integers, one image row per
line, each value -1 or +1.
*/
package pixelhive

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ReadImage reads an image file and returns its pixels. The dimensions
// are counted from the file itself in a single pass.
func ReadImage(path string) ([][]int8, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var img [][]int8
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		row := make([]int8, len(fields))
		for j, field := range fields {
			v, err := strconv.Atoi(field)
			if err != nil {
				return nil, fmt.Errorf("bad pixel %q in %s: %v", field, path, err)
			}
			if v < -128 || v > 127 {
				return nil, fmt.Errorf("pixel %d in %s does not fit a byte", v, path)
			}
			row[j] = int8(v)
		}
		if len(img) > 0 && len(row) != len(img[0]) {
			return nil, fmt.Errorf("row %d of %s has %d columns, want %d",
				len(img), path, len(row), len(img[0]))
		}
		img = append(img, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(img) == 0 {
		return nil, fmt.Errorf("image %s is empty", path)
	}
	return img, nil
}

// WriteImage writes an image in the same format ReadImage accepts.
func WriteImage(path string, img [][]int8) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, row := range img {
		for _, v := range row {
			fmt.Fprintf(w, "%d ", v)
		}
		fmt.Fprintln(w)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func pixelsToBytes(px []int8) []byte {
	out := make([]byte, len(px))
	for i, v := range px {
		out[i] = byte(v)
	}
	return out
}

func bytesToPixels(b []byte) []int8 {
	out := make([]int8, len(b))
	for i, v := range b {
		out[i] = int8(v)
	}
	return out
}
