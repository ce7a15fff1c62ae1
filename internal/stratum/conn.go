package stratum

import (
	"encoding/json"
	"errors"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/a3fpro-lab/vireon-testnet4-proofbench-miner/internal/stratumerr"
)

// Conn is a Stratum connection: a single duplex socket with one writer
// (serialized by sendMu) and exactly one reader, run by Serve. Everything
// that needs a reply — the handshake, suggest_difficulty, submit —
// registers a waiter and blocks on it rather than reading the socket
// itself, so only Serve's goroutine ever touches the LineReader. This
// follows the familiar single-reader-loop-plus-pending-call-table shape:
// one goroutine reads lines and dispatches them, a map of in-flight
// request ids correlates replies back to whichever Call is waiting.
// Mining orchestration itself lives in internal/client, not here.
type Conn struct {
	conn     net.Conn
	reader   *LineReader
	endpoint string

	sendMu sync.Mutex

	state *State

	waitersMu sync.Mutex
	waiters   map[uint64]chan callResult
	readErr   error // set once Serve exits, guarded by waitersMu
}

type callResult struct {
	msg InMessage
	err error
}

// NewConn wraps an established net.Conn. endpoint is used only for
// diagnostics: error kind plus endpoint, rendered on one line.
func NewConn(conn net.Conn, endpoint string, state *State) *Conn {
	return &Conn{
		conn:     conn,
		reader:   NewLineReader(conn, endpoint),
		endpoint: endpoint,
		state:    state,
		waiters:  make(map[uint64]chan callResult),
	}
}

// Dial opens a plaintext TCP connection to host:port with the given
// dial timeout. TLS pools are out of scope.
func Dial(host string, port int, timeout time.Duration) (net.Conn, error) {
	endpoint := net.JoinHostPort(host, strconv.Itoa(port))
	c, err := net.DialTimeout("tcp", endpoint, timeout)
	if err != nil {
		return nil, stratumerr.Transientf(endpoint, err)
	}
	return c, nil
}

func (c *Conn) Endpoint() string { return c.endpoint }

func (c *Conn) State() *State { return c.state }

func (c *Conn) Close() error {
	return c.conn.Close()
}

// Send serializes msg and writes it as a single `\n`-terminated line under
// the connection's send lock.
func (c *Conn) Send(msg OutMessage) error {
	b, err := msg.Encode()
	if err != nil {
		return stratumerr.Semanticsf(c.endpoint, "encode outbound message: %w", err)
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	written := 0
	for written < len(b) {
		n, err := c.conn.Write(b[written:])
		if err != nil {
			return stratumerr.Transientf(c.endpoint, err)
		}
		written += n
	}
	return nil
}

// Call sends msg (which must carry a non-nil ID) and blocks until Serve's
// reader loop delivers the matching reply, or the connection fails.
// Multiple Calls may be outstanding at once and are correlated by id,
// though in practice the handshake and submit flow only ever keep one in
// flight.
func (c *Conn) Call(msg OutMessage) (InMessage, error) {
	if msg.ID == nil {
		return InMessage{}, stratumerr.Programmerf("stratum: Call requires a non-nil id")
	}
	id := *msg.ID

	ch := make(chan callResult, 1)

	c.waitersMu.Lock()
	if c.readErr != nil {
		err := c.readErr
		c.waitersMu.Unlock()
		return InMessage{}, err
	}
	c.waiters[id] = ch
	c.waitersMu.Unlock()

	if err := c.Send(msg); err != nil {
		c.waitersMu.Lock()
		delete(c.waiters, id)
		c.waitersMu.Unlock()
		return InMessage{}, err
	}

	res := <-ch
	return res.msg, res.err
}

// Serve is the connection's single reader loop: every inbound line is
// either delivered to a waiting Call (by id) or dispatched as a
// notification that updates State. It returns when stop reports true or
// the socket fails; on exit it unblocks every still-pending Call with the
// terminal error so no caller hangs forever, and it marks the connection
// so any Call issued afterward fails immediately instead of registering a
// waiter nobody will ever signal.
//
// loopErr is returned to the caller as-is (nil on a clean stop), but the
// internal readErr recorded for Call is never nil: a clean stop still
// means "nothing will read a reply again".
func (c *Conn) Serve(stop func() bool) error {
	loopErr := c.serveLoop(stop)

	readErr := loopErr
	if readErr == nil {
		readErr = stratumerr.Transientf(c.endpoint, errConnClosed)
	}

	c.waitersMu.Lock()
	c.readErr = readErr
	pending := c.waiters
	c.waiters = make(map[uint64]chan callResult)
	c.waitersMu.Unlock()

	for _, ch := range pending {
		ch <- callResult{err: readErr}
	}
	return loopErr
}

var errConnClosed = errors.New("stratum: connection no longer served")

func (c *Conn) serveLoop(stop func() bool) error {
	for {
		if stop() {
			return nil
		}
		msg, err := c.reader.ReadMessage()
		if err != nil {
			if isTimeout(err) {
				continue
			}
			return err
		}
		c.dispatch(msg)
	}
}

// dispatch routes one inbound message either to a waiting Call or to the
// notification handler.
func (c *Conn) dispatch(msg InMessage) {
	if !msg.IsNotificationOrRequest() && msg.ID != nil {
		c.waitersMu.Lock()
		ch, ok := c.waiters[*msg.ID]
		if ok {
			delete(c.waiters, *msg.ID)
		}
		c.waitersMu.Unlock()
		if ok {
			ch <- callResult{msg: msg}
			return
		}
		// A reply with no registered waiter (e.g. the pool re-sent an id,
		// or a prior Call's send failed and its waiter was removed) is
		// dropped; it isn't a
		// notification and there is nothing left to deliver it to.
		return
	}
	c.handleMessage(msg)
}

func isTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	if te, ok := err.(timeouter); ok {
		return te.Timeout()
	}
	var serr *stratumerr.Error
	if errors.As(err, &serr) {
		if te, ok := serr.Err.(timeouter); ok {
			return te.Timeout()
		}
	}
	return false
}

// handleMessage classifies and applies one inbound notification to State.
func (c *Conn) handleMessage(msg InMessage) {
	switch msg.Method {
	case MethodSetDifficulty:
		var params []float64
		if err := json.Unmarshal(msg.Params, &params); err != nil || len(params) < 1 {
			return
		}
		d, err := NewDifficulty(params[0])
		if err != nil {
			return
		}
		c.state.SetDifficulty(d)

	case MethodNotify:
		var raw []json.RawMessage
		if err := json.Unmarshal(msg.Params, &raw); err != nil || len(raw) < 9 {
			return
		}
		np, ok := decodeNotifyParams(raw)
		if !ok {
			return
		}
		job, err := np.ToJob(time.Now())
		if err != nil {
			return
		}
		c.state.SetJob(job)

	case MethodSetExtranonce:
		// Reserved; accepted and ignored. Mid-session extranonce1 rotation
		// is not implemented.

	default:
		// Unknown notification: ignored.
	}
}

func decodeNotifyParams(raw []json.RawMessage) (NotifyParams, bool) {
	var p NotifyParams
	if err := json.Unmarshal(raw[0], &p.JobID); err != nil {
		return p, false
	}
	if err := json.Unmarshal(raw[1], &p.PrevHashHex); err != nil {
		return p, false
	}
	if err := json.Unmarshal(raw[2], &p.Coinb1Hex); err != nil {
		return p, false
	}
	if err := json.Unmarshal(raw[3], &p.Coinb2Hex); err != nil {
		return p, false
	}
	if err := json.Unmarshal(raw[4], &p.MerkleBranch); err != nil {
		return p, false
	}
	if err := json.Unmarshal(raw[5], &p.VersionHex); err != nil {
		return p, false
	}
	if err := json.Unmarshal(raw[6], &p.NBitsHex); err != nil {
		return p, false
	}
	if err := json.Unmarshal(raw[7], &p.NTimeHex); err != nil {
		return p, false
	}
	if err := json.Unmarshal(raw[8], &p.CleanJobs); err != nil {
		return p, false
	}
	return p, true
}
