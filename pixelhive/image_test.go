/*
Package pixelhive implements a distributed Ising-model image denoiser.

This file contains the unit tests for the image file reader and
writer.
*/
package pixelhive

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageFileRoundTrip(t *testing.T) {
	img := [][]int8{
		{1, -1, 1, -1},
		{-1, 1, -1, 1},
	}
	path := filepath.Join(t.TempDir(), "img.txt")
	require.NoError(t, WriteImage(path, img))

	got, err := ReadImage(path)
	require.NoError(t, err)
	assert.Equal(t, img, got)
}

func TestReadImageCountsDimensions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.txt")
	require.NoError(t, ioutil.WriteFile(path, []byte("1 1 -1\n-1 -1 1\n\n"), 0644))

	img, err := ReadImage(path)
	require.NoError(t, err)
	assert.Len(t, img, 2)
	assert.Len(t, img[0], 3)
}

func TestReadImageRagged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.txt")
	require.NoError(t, ioutil.WriteFile(path, []byte("1 1\n1 1 1\n"), 0644))
	_, err := ReadImage(path)
	assert.Error(t, err)
}

func TestReadImageBadPixel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.txt")
	require.NoError(t, ioutil.WriteFile(path, []byte("1 x\n"), 0644))
	_, err := ReadImage(path)
	assert.Error(t, err)
}

func TestReadImageEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.txt")
	require.NoError(t, ioutil.WriteFile(path, []byte("\n"), 0644))
	_, err := ReadImage(path)
	assert.Error(t, err)
}

func TestReadImageMissing(t *testing.T) {
	_, err := ReadImage(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}
