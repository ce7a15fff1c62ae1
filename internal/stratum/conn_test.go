package stratum

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestServeUnblocksPendingCallOnConnectionFailure exercises the property
// that every outstanding Call must return, rather than hang forever, once
// the reader loop exits for any reason.
func TestServeUnblocksPendingCallOnConnectionFailure(t *testing.T) {
	client, pool := net.Pipe()

	state := NewState()
	conn := NewConn(client, "fake:1", state)

	serveDone := make(chan error, 1)
	go func() {
		serveDone <- conn.Serve(func() bool { return false })
	}()

	callDone := make(chan error, 1)
	go func() {
		id := uint64(1)
		_, err := conn.Call(OutMessage{ID: &id, Method: MethodSubscribe})
		callDone <- err
	}()

	// Give Call a moment to register its waiter before the pipe breaks.
	time.Sleep(50 * time.Millisecond)
	pool.Close()

	select {
	case err := <-callDone:
		assert.Error(t, err, "a Call pending when the connection dies must return an error, not hang")
	case <-time.After(2 * time.Second):
		t.Fatal("Call did not unblock after the connection failed")
	}

	select {
	case <-serveDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after the connection failed")
	}
}

// TestCallAfterServeAlreadyStoppedFailsImmediately covers the case where a
// new Call is issued after the reader loop has already exited: it must
// not register a waiter that nothing will ever signal.
func TestCallAfterServeAlreadyStoppedFailsImmediately(t *testing.T) {
	client, pool := net.Pipe()
	defer pool.Close()

	state := NewState()
	conn := NewConn(client, "fake:1", state)

	err := conn.Serve(func() bool { return true })
	require.NoError(t, err)

	id := uint64(7)
	done := make(chan error, 1)
	go func() {
		_, err := conn.Call(OutMessage{ID: &id, Method: MethodSubmit})
		done <- err
	}()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Call issued after Serve stopped must fail immediately, not hang")
	}
}

func TestCallRequiresNonNilID(t *testing.T) {
	client, _ := net.Pipe()
	defer client.Close()

	conn := NewConn(client, "fake:1", NewState())
	_, err := conn.Call(OutMessage{Method: MethodSubscribe})
	assert.Error(t, err)
}
