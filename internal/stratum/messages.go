// Package stratum implements the line-delimited JSON-RPC Stratum-v1
// dialect: message framing, the subscribe/authorize handshake state
// machine, job and difficulty state tracking, and submit id correlation.
// It is built around a request/response type pair and a notification
// dispatch switch, with job/difficulty state owned independently of any
// particular mining implementation: this package keeps only the protocol
// side, and internal/header plus internal/scanner own the mining math.
package stratum

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/a3fpro-lab/vireon-testnet4-proofbench-miner/internal/stratumerr"
)

// maxLineBytes bounds a single JSON-RPC line; anything longer is a
// ProtocolFraming error rather than an unbounded buffer growth.
const maxLineBytes = 1 << 20

const (
	MethodSubscribe         = "mining.subscribe"
	MethodAuthorize         = "mining.authorize"
	MethodNotify            = "mining.notify"
	MethodSetDifficulty     = "mining.set_difficulty"
	MethodSetExtranonce     = "mining.set_extranonce"
	MethodSubmit            = "mining.submit"
	MethodSuggestDifficulty = "mining.suggest_difficulty"
)

// OutMessage is an outbound request/notification. Fields are ordered
// id/method/params in the struct so json.Marshal emits them in that order
// when deterministic output matters for tests.
type OutMessage struct {
	ID     *uint64       `json:"id"`
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
}

// InMessage is a decoded inbound line. It may be a request/notification
// (Method set) or a reply (ID set, Result/Error set); both shapes are
// decoded into the same struct and classified by the caller.
type InMessage struct {
	ID     *uint64         `json:"id"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  json.RawMessage `json:"error,omitempty"`
}

// IsNotificationOrRequest reports whether this line carries a method, as
// opposed to being a bare reply.
func (m InMessage) IsNotificationOrRequest() bool {
	return m.Method != ""
}

// HasError reports a non-null "error" field.
func (m InMessage) HasError() bool {
	return len(m.Error) > 0 && string(m.Error) != "null"
}

// Encode renders an outbound message as a single `\n`-terminated JSON
// line.
func (m OutMessage) Encode() ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// LineReader frames `\n`-terminated JSON lines off a byte stream,
// buffering partial reads across calls. Empty
// lines are skipped; EOF mid-line is reported as a ProtocolFraming error.
type LineReader struct {
	r        *bufio.Reader
	endpoint string
}

func NewLineReader(r io.Reader, endpoint string) *LineReader {
	return &LineReader{r: bufio.NewReaderSize(r, 4096), endpoint: endpoint}
}

// ReadMessage reads the next non-empty line and decodes it into an
// InMessage.
func (lr *LineReader) ReadMessage() (InMessage, error) {
	for {
		line, err := lr.readLine()
		if err != nil {
			return InMessage{}, err
		}
		if len(line) == 0 {
			continue
		}
		var msg InMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			return InMessage{}, stratumerr.Framingf(lr.endpoint,
				"malformed JSON line: %w", err)
		}
		return msg, nil
	}
}

func (lr *LineReader) readLine() ([]byte, error) {
	var line []byte
	for {
		chunk, err := lr.r.ReadSlice('\n')
		line = append(line, chunk...)
		if len(line) > maxLineBytes+2 {
			return nil, stratumerr.Framingf(lr.endpoint,
				"line exceeds %d bytes", maxLineBytes)
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if err != nil {
			if err == io.EOF && len(line) > 0 {
				return nil, stratumerr.Framingf(lr.endpoint, "EOF mid-line")
			}
			if err == io.EOF {
				return nil, stratumerr.Transientf(lr.endpoint, io.EOF)
			}
			return nil, stratumerr.Transientf(lr.endpoint, err)
		}
		line = line[:len(line)-1]
		if n := len(line); n > 0 && line[n-1] == '\r' {
			line = line[:n-1]
		}
		if len(line) > maxLineBytes {
			return nil, stratumerr.Framingf(lr.endpoint,
				"line exceeds %d bytes", maxLineBytes)
		}
		return line, nil
	}
}

// DecodeSubscribeResult parses the `result` array of a mining.subscribe
// reply: [subscriptions, extranonce1_hex, extranonce2_size].
func DecodeSubscribeResult(result json.RawMessage) (SubscribeInfo, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(result, &raw); err != nil || len(raw) < 3 {
		return SubscribeInfo{}, stratumerr.Semanticsf("", "bad subscribe result shape: %s", result)
	}

	var subs [][2]string
	var subsRaw []json.RawMessage
	if err := json.Unmarshal(raw[0], &subsRaw); err == nil {
		for _, item := range subsRaw {
			var pair []string
			if err := json.Unmarshal(item, &pair); err == nil && len(pair) >= 2 {
				subs = append(subs, [2]string{pair[0], pair[1]})
			}
		}
	}

	var en1 string
	if err := json.Unmarshal(raw[1], &en1); err != nil {
		return SubscribeInfo{}, stratumerr.Semanticsf("", "bad extranonce1: %w", err)
	}

	var en2size int
	if err := json.Unmarshal(raw[2], &en2size); err != nil {
		return SubscribeInfo{}, stratumerr.Semanticsf("", "bad extranonce2_size: %w", err)
	}
	if en2size < 1 || en2size > 8 {
		return SubscribeInfo{}, stratumerr.Programmerf("extranonce2_size %d outside [1,8]", en2size)
	}

	return SubscribeInfo{
		Subscriptions:   subs,
		ExtraNonce1Hex:  en1,
		ExtraNonce2Size: uint8(en2size),
	}, nil
}

// SubscribeInfo is the parsed result of mining.subscribe.
type SubscribeInfo struct {
	Subscriptions   [][2]string
	ExtraNonce1Hex  string
	ExtraNonce2Size uint8
}

// ErrorText extracts the pool's verbatim error text from a non-null
// "error" field, for single-line diagnostics.
func ErrorText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	return string(raw)
}
