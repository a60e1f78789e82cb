/*
Package ipc is part of PixelHive, a distributed Ising-model image denoiser.

This file contains the unit tests for the inter-worker messaging
layer: the mailbox matching rules and the TCP endpoint.
*/
package ipc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleTestAndWait(t *testing.T) {
	h := NewHandle()
	assert.False(t, h.Test())
	h.complete()
	assert.True(t, h.Test())
	h.Wait()

	assert.True(t, Done().Test())
	assert.True(t, TestAll([]*Handle{nil, Done(), Done()}))
	assert.False(t, TestAll([]*Handle{Done(), NewHandle()}))
}

func TestMailboxRecvBeforeDeliver(t *testing.T) {
	m := NewMailbox()
	var slot []byte
	h := m.PostRecv(3, 7, &slot)
	assert.False(t, h.Test())

	m.Deliver(3, 7, []byte{1, 2})
	assert.True(t, h.Test())
	assert.Equal(t, []byte{1, 2}, slot)
}

func TestMailboxBuffersEarlyArrival(t *testing.T) {
	m := NewMailbox()
	m.Deliver(1, 5, []byte{9})

	var slot []byte
	h := m.PostRecv(1, 5, &slot)
	assert.True(t, h.Test())
	assert.Equal(t, []byte{9}, slot)
}

func TestMailboxOrderPerPeerTag(t *testing.T) {
	m := NewMailbox()
	m.Deliver(1, 5, []byte{1})
	m.Deliver(1, 5, []byte{2})
	m.Deliver(1, 6, []byte{3})

	var a, b, c []byte
	m.PostRecv(1, 5, &a).Wait()
	m.PostRecv(1, 6, &c).Wait()
	m.PostRecv(1, 5, &b).Wait()
	assert.Equal(t, []byte{1}, a)
	assert.Equal(t, []byte{2}, b)
	assert.Equal(t, []byte{3}, c)
}

func TestMailboxKeepsPeersApart(t *testing.T) {
	m := NewMailbox()
	var fromTwo []byte
	h := m.PostRecv(2, 5, &fromTwo)
	m.Deliver(1, 5, []byte{1})
	assert.False(t, h.Test())
	m.Deliver(2, 5, []byte{2})
	assert.True(t, h.Test())
	assert.Equal(t, []byte{2}, fromTwo)
}

func TestEndpointExchange(t *testing.T) {
	const base = 26640
	a, err := NewEndpoint(base, 0, 2)
	require.NoError(t, err)
	b, err := NewEndpoint(base, 1, 2)
	require.NoError(t, err)
	defer a.Close()
	defer b.Close()
	require.NoError(t, a.Connect("127.0.0.1", 1))
	require.NoError(t, b.Connect("127.0.0.1", 0))

	var got []byte
	rh := b.PostRecv(0, 42, &got)
	sh := a.PostSend(1, 42, []byte{1, 2, 3})
	WaitAll(sh, rh)
	assert.Equal(t, []byte{1, 2, 3}, got)

	// the other way round
	var back []byte
	rh = a.PostRecv(1, 43, &back)
	b.PostSend(0, 43, []byte{4}).Wait()
	rh.Wait()
	assert.Equal(t, []byte{4}, back)
}

func TestEndpointOrderAndBuffering(t *testing.T) {
	const base = 26660
	a, err := NewEndpoint(base, 0, 2)
	require.NoError(t, err)
	b, err := NewEndpoint(base, 1, 2)
	require.NoError(t, err)
	defer a.Close()
	defer b.Close()
	require.NoError(t, a.Connect("127.0.0.1", 1))
	require.NoError(t, b.Connect("127.0.0.1", 0))

	// sends posted before any receive, same tag, must be consumed in
	// posting order
	WaitAll(
		a.PostSend(1, 9, []byte{1}),
		a.PostSend(1, 9, []byte{2}),
		a.PostSend(1, 9, []byte{3}))

	deadline := time.Now().Add(5 * time.Second)
	for i := byte(1); i <= 3; i++ {
		var slot []byte
		h := b.PostRecv(0, 9, &slot)
		for !h.Test() {
			if time.Now().After(deadline) {
				t.Fatal("message never arrived")
			}
			time.Sleep(time.Millisecond)
		}
		assert.Equal(t, []byte{i}, slot)
	}
}

func TestEndpointLoopback(t *testing.T) {
	const base = 26680
	a, err := NewEndpoint(base, 0, 1)
	require.NoError(t, err)
	defer a.Close()

	var slot []byte
	h := a.PostRecv(0, 5, &slot)
	assert.True(t, a.PostSend(0, 5, []byte{7}).Test())
	h.Wait()
	assert.Equal(t, []byte{7}, slot)

	assert.Error(t, a.Connect("127.0.0.1", 0))
}

func TestEndpointEmptyPayload(t *testing.T) {
	const base = 26700
	a, err := NewEndpoint(base, 0, 2)
	require.NoError(t, err)
	b, err := NewEndpoint(base, 1, 2)
	require.NoError(t, err)
	defer a.Close()
	defer b.Close()
	require.NoError(t, a.Connect("127.0.0.1", 1))
	require.NoError(t, b.Connect("127.0.0.1", 0))

	var slot []byte
	rh := b.PostRecv(0, 700, &slot)
	a.PostSend(1, 700, nil).Wait()
	rh.Wait()
	assert.Empty(t, slot)
}
