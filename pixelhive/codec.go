/*
Package pixelhive implements a distributed Ising-model image denoiser.

This file contains the XDR codec for the integer control payloads.
Image rows travel as raw bytes, one byte per pixel.
*/
package pixelhive

import (
	"bytes"

	xdr "github.com/davecgh/go-xdr/xdr2"
)

// encodeInt renders a control integer in its wire form.
func encodeInt(v int) []byte {
	var w bytes.Buffer
	if _, err := xdr.Marshal(&w, int32(v)); err != nil {
		panic(err)
	}
	return w.Bytes()
}

// decodeInt parses the wire form produced by encodeInt.
func decodeInt(buf []byte) int {
	var v int32
	if _, err := xdr.Unmarshal(bytes.NewReader(buf), &v); err != nil {
		panic(err)
	}
	return int(v)
}
