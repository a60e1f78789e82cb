/*
Package tipc is part of PixelHive, a distributed Ising-model image denoiser.

This file contains the unit tests for the in-process test fabric.
*/
package tipc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFabricExchange(t *testing.T) {
	f := NewFabric(2)
	a, b := f.Endpoint(0), f.Endpoint(1)
	assert.Equal(t, 0, a.Rank())
	assert.Equal(t, 1, b.Rank())

	var slot []byte
	h := b.PostRecv(0, 500, &slot)
	assert.False(t, h.Test())

	sh := a.PostSend(1, 500, []byte{42})
	assert.True(t, sh.Test(), "fabric sends complete immediately")
	assert.True(t, h.Test())
	assert.Equal(t, []byte{42}, slot)
}

func TestFabricBuffersAndOrders(t *testing.T) {
	f := NewFabric(2)
	a, b := f.Endpoint(0), f.Endpoint(1)

	a.PostSend(1, 9, []byte{1})
	a.PostSend(1, 9, []byte{2})

	var first, second []byte
	b.PostRecv(0, 9, &first).Wait()
	b.PostRecv(0, 9, &second).Wait()
	assert.Equal(t, []byte{1}, first)
	assert.Equal(t, []byte{2}, second)
}

func TestFabricPayloadCopied(t *testing.T) {
	f := NewFabric(2)
	a, b := f.Endpoint(0), f.Endpoint(1)

	payload := []byte{1, 2, 3}
	a.PostSend(1, 7, payload)
	payload[0] = 99

	var slot []byte
	b.PostRecv(0, 7, &slot).Wait()
	assert.Equal(t, []byte{1, 2, 3}, slot)
}

func TestFabricSelfSend(t *testing.T) {
	f := NewFabric(1)
	a := f.Endpoint(0)

	var slot []byte
	h := a.PostRecv(0, 3, &slot)
	a.PostSend(0, 3, []byte{5})
	assert.True(t, h.Test())
	assert.Equal(t, []byte{5}, slot)
}
