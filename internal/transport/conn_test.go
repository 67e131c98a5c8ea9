package transport

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConn_SendReceive(t *testing.T) {
	a, b := net.Pipe()
	left, right := New(a, 16), New(b, 16)
	defer left.Close()
	defer right.Close()

	go func() {
		_ = left.Send([]byte("hello"))
	}()

	data, err := right.Receive(time.Second)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
}

func TestConn_ReceiveTimeout(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	c := New(b, 16)
	defer c.Close()

	data, err := c.Receive(10 * time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestConn_ReceivePeerClosed(t *testing.T) {
	a, b := net.Pipe()
	c := New(b, 16)
	defer c.Close()

	require.NoError(t, a.Close())

	_, err := c.Receive(time.Second)
	assert.ErrorIs(t, err, io.EOF)
}

func TestConn_ReceiveChunkSize(t *testing.T) {
	a, b := net.Pipe()
	left, right := New(a, 4), New(b, 4)
	defer left.Close()
	defer right.Close()

	go func() {
		_ = left.Send([]byte("abcdef"))
	}()

	first, err := right.Receive(time.Second)
	require.NoError(t, err)
	assert.Equal(t, []byte("abcd"), first)

	second, err := right.Receive(time.Second)
	require.NoError(t, err)
	assert.Equal(t, []byte("ef"), second)
}

func TestDial(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	c, err := Dial(context.Background(), ln.Addr().String(), time.Second, 0)
	require.NoError(t, err)
	defer c.Close()

	peer := <-accepted
	defer peer.Close()

	assert.Equal(t, ln.Addr().String(), c.RemoteAddr())
}

func TestDial_Refused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = Dial(context.Background(), addr, time.Second, 0)
	assert.Error(t, err)
}
