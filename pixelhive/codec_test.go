/*
Package pixelhive implements a distributed Ising-model image denoiser.

This file contains the unit tests for the control-payload codec.
*/
package pixelhive

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntCodec(t *testing.T) {
	for _, v := range []int{0, 1, 7, -1, Absent, 123456, -99} {
		assert.Equal(t, v, decodeInt(encodeInt(v)))
	}
}

func TestIntCodecWireSize(t *testing.T) {
	// XDR renders an int in four bytes; the answer engine relies on a
	// question always being a single fixed-size message
	assert.Len(t, encodeInt(42), 4)
	assert.Len(t, encodeInt(-1), 4)
}
