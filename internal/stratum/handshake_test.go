package stratum

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3fpro-lab/vireon-testnet4-proofbench-miner/internal/stratumerr"
)

// fakePool reads one `\n`-terminated line at a time from its side of a
// net.Pipe and hands it to onLine, which may write replies/notifications
// back. It stops when the pipe closes.
func fakePool(t *testing.T, conn net.Conn, onLine func(line []byte, write func(string))) {
	t.Helper()
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 4096), 1<<20)
	write := func(s string) {
		_, _ = conn.Write([]byte(s + "\n"))
	}
	for scanner.Scan() {
		onLine(scanner.Bytes(), write)
	}
}

// newServedConn wraps client on a Conn with its Serve loop already
// running in the background, as Handshake/Submit require.
func newServedConn(t *testing.T, client net.Conn, state *State) (*Conn, func()) {
	t.Helper()
	conn := NewConn(client, "fake:1", state)
	stopCh := make(chan struct{})
	serveDone := make(chan struct{})
	go func() {
		defer close(serveDone)
		_ = conn.Serve(func() bool {
			select {
			case <-stopCh:
				return true
			default:
				return false
			}
		})
	}()
	return conn, func() {
		close(stopCh)
		client.Close()
		<-serveDone
	}
}

func TestHandshakeHappyPath(t *testing.T) {
	client, pool := net.Pipe()
	defer pool.Close()

	state := NewState()
	conn, cleanup := newServedConn(t, client, state)
	defer cleanup()

	done := make(chan struct{})
	go func() {
		defer close(done)
		fakePool(t, pool, func(line []byte, write func(string)) {
			var req InMessage
			require.NoError(t, json.Unmarshal(line, &req))
			switch req.Method {
			case MethodSubscribe:
				write(`{"id":1,"result":[[["mining.set_difficulty","x"]],"08000002",4],"error":null}`)
			case MethodAuthorize:
				write(`{"id":2,"result":true,"error":null}`)
			}
		})
	}()

	err := Handshake(conn, Credentials{Username: "worker1", Password: "x"})
	require.NoError(t, err)

	info, ok := state.SubscribeInfo()
	require.True(t, ok)
	assert.Equal(t, "08000002", info.ExtraNonce1Hex)
	assert.Equal(t, uint8(4), info.ExtraNonce2Size)

	pool.Close()
	<-done
}

const zeroHash64 = "0000000000000000000000000000000000000000000000000000000000000000"

func TestHandshakeAppliesInterleavedNotifyBeforeAuthorizeReply(t *testing.T) {
	client, pool := net.Pipe()
	defer pool.Close()

	state := NewState()
	conn, cleanup := newServedConn(t, client, state)
	defer cleanup()

	done := make(chan struct{})
	go func() {
		defer close(done)
		fakePool(t, pool, func(line []byte, write func(string)) {
			var req InMessage
			require.NoError(t, json.Unmarshal(line, &req))
			switch req.Method {
			case MethodSubscribe:
				// A notify arrives before the subscribe reply; the
				// handshake must still find its id=1 reply afterward.
				write(`{"id":null,"method":"mining.notify","params":["j1","` +
					zeroHash64 + `","00","00",[],"20000000","1d00ffff","5f5e1000",true]}`)
				write(`{"id":1,"result":[[],"08000002",4],"error":null}`)
			case MethodAuthorize:
				write(`{"id":2,"result":true,"error":null}`)
			}
		})
	}()

	err := Handshake(conn, Credentials{Username: "worker1", Password: "x"})
	require.NoError(t, err)

	job, ok := state.Job()
	require.True(t, ok, "notify received ahead of the subscribe reply should still be applied")
	assert.Equal(t, "j1", job.JobID)

	pool.Close()
	<-done
}

func TestHandshakeSubscribeRejectedReturnsSemanticsError(t *testing.T) {
	client, pool := net.Pipe()
	defer pool.Close()

	state := NewState()
	conn, cleanup := newServedConn(t, client, state)
	defer cleanup()

	done := make(chan struct{})
	go func() {
		defer close(done)
		fakePool(t, pool, func(line []byte, write func(string)) {
			var req InMessage
			_ = json.Unmarshal(line, &req)
			if req.Method == MethodSubscribe {
				write(`{"id":1,"result":null,"error":[20,"not supported",null]}`)
			}
		})
	}()

	err := Handshake(conn, Credentials{Username: "w", Password: "p"})
	require.Error(t, err)
	var serr *stratumerr.Error
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, stratumerr.ProtocolSemantics, serr.Kind)

	pool.Close()
	<-done
}

func TestSubmitRoundTripAcceptedAndRejected(t *testing.T) {
	client, pool := net.Pipe()
	defer pool.Close()

	state := NewState()
	conn, cleanup := newServedConn(t, client, state)
	defer cleanup()

	replies := []string{
		`{"id":3,"result":true,"error":null}`,
		`{"id":4,"result":false,"error":null}`,
	}
	i := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		fakePool(t, pool, func(line []byte, write func(string)) {
			var req InMessage
			_ = json.Unmarshal(line, &req)
			if req.Method == MethodSubmit && i < len(replies) {
				write(replies[i])
				i++
			}
		})
	}()

	id1 := state.NextSubmitID(ShareCandidate{JobID: "j1", Nonce: 1})
	accepted, err := Submit(conn, id1, "worker1", ShareCandidate{JobID: "j1", Nonce: 1}, "00000001", "5f5e1000", "00000001")
	require.NoError(t, err)
	assert.True(t, accepted)

	id2 := state.NextSubmitID(ShareCandidate{JobID: "j1", Nonce: 2})
	accepted, err = Submit(conn, id2, "worker1", ShareCandidate{JobID: "j1", Nonce: 2}, "00000001", "5f5e1000", "00000002")
	require.NoError(t, err)
	assert.False(t, accepted)

	pool.Close()
	<-done
}

func TestSuggestDifficultyIsFireAndForget(t *testing.T) {
	client, pool := net.Pipe()
	defer pool.Close()

	state := NewState()
	conn, cleanup := newServedConn(t, client, state)
	defer cleanup()

	received := make(chan InMessage, 1)
	go func() {
		lr := NewLineReader(pool, "pool")
		msg, err := lr.ReadMessage()
		if err == nil {
			received <- msg
		}
	}()

	require.NoError(t, SuggestDifficulty(conn, 128))

	select {
	case msg := <-received:
		assert.Equal(t, MethodSuggestDifficulty, msg.Method)
		assert.Nil(t, msg.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for suggest_difficulty")
	}
}
