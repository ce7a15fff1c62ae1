// Package client composes the protocol codec, header assembler, and nonce
// scanner into the live mining session: connect, handshake, run a reader
// task and a scanner task concurrently, submit shares, and report metrics
// until a stop condition or a fatal error ends the session. It is
// grounded on a single-reader-loop connection type plus the original
// Python reference's run_network_loop/run_mining_loop/run_live split
// (internal/stratum's package doc explains the same consolidation from
// the Go side).
package client

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/a3fpro-lab/vireon-testnet4-proofbench-miner/internal/header"
	"github.com/a3fpro-lab/vireon-testnet4-proofbench-miner/internal/metrics"
	"github.com/a3fpro-lab/vireon-testnet4-proofbench-miner/internal/scanner"
	"github.com/a3fpro-lab/vireon-testnet4-proofbench-miner/internal/stratum"
	"github.com/a3fpro-lab/vireon-testnet4-proofbench-miner/internal/stratumerr"
)

// Client runs one mining session against one pool connection.
type Client struct {
	cfg    Config
	log    *logrus.Entry
	sink   metrics.Sink
	counts metrics.Counters

	extraNonce2Counter uint64
	startTime          time.Time

	stopRequested int32
}

// New builds a Client. sink may be nil, in which case metrics are counted
// but never reported.
func New(cfg Config, log *logrus.Entry, sink metrics.Sink) *Client {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Client{cfg: cfg, log: log, sink: sink}
}

// Stop requests the current or next Run to return as soon as it safely
// can, without waiting for a share or stale timeout.
func (c *Client) Stop() { atomic.StoreInt32(&c.stopRequested, 1) }

func (c *Client) stopping() bool { return atomic.LoadInt32(&c.stopRequested) != 0 }

// Handshake connects, subscribes and authorizes, then closes the
// connection without entering the mining loop. It exists for the CLI's
// --handshake diagnostic mode.
func (c *Client) Handshake() error {
	endpoint := net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port))

	conn, err := stratum.Dial(c.cfg.Host, c.cfg.Port, c.cfg.Timeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	state := stratum.NewState()
	sconn := stratum.NewConn(conn, endpoint, state)

	stopServe := make(chan struct{})
	readerDone := make(chan error, 1)
	go func() {
		readerDone <- sconn.Serve(func() bool {
			select {
			case <-stopServe:
				return true
			default:
				return false
			}
		})
	}()

	err = stratum.Handshake(sconn, stratum.Credentials{
		Username: c.cfg.Username,
		Password: c.cfg.Password,
	})

	close(stopServe)
	conn.Close()
	<-readerDone

	if err != nil {
		return err
	}

	info, _ := state.SubscribeInfo()
	c.log.WithFields(logrus.Fields{
		"extranonce1":      info.ExtraNonce1Hex,
		"extranonce2_size": info.ExtraNonce2Size,
	}).Info("handshake complete")
	return nil
}

// Run executes exactly one connect-handshake-mine session; it returns
// when the connection fails, a stop condition (duration or max shares) is
// reached, ctx is cancelled, or Stop is called. Reconnection is the
// caller's responsibility (see RunWithReconnect).
func (c *Client) Run(ctx context.Context) error {
	endpoint := net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port))

	conn, err := stratum.Dial(c.cfg.Host, c.cfg.Port, c.cfg.Timeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	state := stratum.NewState()
	sconn := stratum.NewConn(conn, endpoint, state)

	c.log.WithField("endpoint", endpoint).Info("connected")

	// Serve is the connection's single reader; it must already be running
	// before Handshake/Submit block on Call replies.
	readerDone := make(chan error, 1)
	stopServe := make(chan struct{})
	go func() {
		readerDone <- sconn.Serve(func() bool {
			select {
			case <-stopServe:
				return true
			default:
				return false
			}
		})
	}()

	err = stratum.Handshake(sconn, stratum.Credentials{
		Username: c.cfg.Username,
		Password: c.cfg.Password,
	})
	if err != nil {
		close(stopServe)
		conn.Close()
		<-readerDone
		return err
	}

	info, _ := state.SubscribeInfo()
	c.log.WithFields(logrus.Fields{
		"extranonce1":      info.ExtraNonce1Hex,
		"extranonce2_size": info.ExtraNonce2Size,
	}).Info("authorized")

	if c.cfg.SuggestDifficulty != nil {
		if err := stratum.SuggestDifficulty(sconn, *c.cfg.SuggestDifficulty); err != nil {
			c.log.WithError(err).Warn("suggest_difficulty send failed, continuing")
		}
	}

	stopReason, err := c.runMiningLoop(ctx, sconn, state, endpoint)
	c.reportFinalSnapshot(endpoint, state, stopReason)

	close(stopServe)
	conn.Close()
	<-readerDone

	return err
}

// runMiningLoop returns the reason the loop stopped (for the unconditional
// shutdown snapshot) alongside any error that caused it.
func (c *Client) runMiningLoop(ctx context.Context, sconn *stratum.Conn, state *stratum.State, endpoint string) (string, error) {
	c.startTime = time.Now()
	lastLog := c.startTime
	deadline := time.Time{}
	if c.cfg.RunDuration > 0 {
		deadline = c.startTime.Add(c.cfg.RunDuration)
	}

	var sharesFound int

	for {
		if c.stopping() {
			return "stopped", nil
		}
		select {
		case <-ctx.Done():
			return "context_canceled", nil
		default:
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return "duration_elapsed", nil
		}
		if c.cfg.MaxShares > 0 && sharesFound >= c.cfg.MaxShares {
			return "max_shares_reached", nil
		}

		job, ok := state.Job()
		if !ok {
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if state.IsStale(time.Now(), c.cfg.StaleSeconds) {
			state.IncrStaleJobs()
			time.Sleep(50 * time.Millisecond)
			continue
		}
		diff, ok := state.Difficulty()
		if !ok {
			diff, _ = stratum.NewDifficulty(1)
		}
		info, _ := state.SubscribeInfo()
		extraNonce1, err := hex.DecodeString(info.ExtraNonce1Hex)
		if err != nil {
			return "error", stratumerr.Semanticsf(endpoint, "bad extranonce1: %w", err)
		}

		extraNonce2 := c.nextExtraNonce2(info.ExtraNonce2Size)

		asm := header.Assembler{ExtraNonce1: extraNonce1}
		prefix76 := asm.Header76(job.HeaderJob(), extraNonce2)

		startNonce := scanner.StartNonce(c.cfg.NonceMode, job.JobID, c.cfg.NonceStart)

		result, err := scanner.FindShare(prefix76, diff.Target, startNonce, c.cfg.BatchNonces)
		if err != nil {
			return "error", err
		}
		c.counts.AddHashes(uint64(c.cfg.BatchNonces))

		if result != nil {
			sharesFound++
			c.submitShare(sconn, state, job, extraNonce2, result.Nonce, info.ExtraNonce1Hex)
		}

		if now := time.Now(); c.cfg.LogEvery > 0 && now.Sub(lastLog) >= c.cfg.LogEvery {
			c.reportSnapshot(endpoint, diff.Value, state, now, "")
			lastLog = now
		}
	}
}

func (c *Client) submitShare(sconn *stratum.Conn, state *stratum.State, job stratum.Job, extraNonce2 []byte, nonce uint32, extraNonce1Hex string) {
	candidate := stratum.ShareCandidate{
		JobID:       job.JobID,
		ExtraNonce2: extraNonce2,
		NTime:       job.NTime,
		Nonce:       nonce,
	}
	id := state.NextSubmitID(candidate)
	c.counts.IncrSubmitted()

	nonceHex := hex.EncodeToString(leUint32(nonce))
	ntimeHex := fmt.Sprintf("%08x", job.NTime)

	accepted, err := stratum.Submit(sconn, id, c.cfg.Username, candidate,
		hex.EncodeToString(extraNonce2), ntimeHex, nonceHex)
	state.TakePending(id)
	if err != nil {
		var serr *stratumerr.Error
		if errors.As(err, &serr) && serr.Kind == stratumerr.ProtocolSemantics {
			c.counts.IncrRejected()
		}
		c.log.WithError(err).Warn("submit failed")
		return
	}
	if accepted {
		c.counts.IncrAccepted()
	} else {
		c.counts.IncrRejected()
	}
}

func (c *Client) nextExtraNonce2(size uint8) []byte {
	n := atomic.AddUint64(&c.extraNonce2Counter, 1)
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, n)
	out := make([]byte, size)
	copy(out, buf[8-int(size):])
	return out
}

func (c *Client) reportSnapshot(endpoint string, difficulty float64, state *stratum.State, now time.Time, stopReason string) {
	if c.sink == nil {
		return
	}
	hashes, submitted, accepted, rejected := c.counts.Snapshot()
	uptime := now.Sub(c.startTime).Seconds()
	var mhps float64
	if uptime > 0 {
		mhps = (float64(hashes) / uptime) / 1e6
	}
	var acceptRate, rejectRate, yieldRate float64
	if submitted > 0 {
		acceptRate = float64(accepted) / float64(submitted)
		rejectRate = float64(rejected) / float64(submitted)
	}
	if hashes > 0 {
		yieldRate = float64(submitted) / float64(hashes)
	}
	c.sink.Report(metrics.Snapshot{
		Endpoint:   endpoint,
		Username:   c.cfg.Username,
		Backend:    string(scanner.BackendMidstate),
		StartedAt:  c.startTime,
		Uptime:     uptime,
		Hashes:     hashes,
		Submitted:  submitted,
		Accepted:   accepted,
		Rejected:   rejected,
		AcceptRate: acceptRate,
		RejectRate: rejectRate,
		YieldRate:  yieldRate,
		JobsSeen:   state.JobsSeen(),
		StaleJobs:  state.StaleJobs(),
		Difficulty: difficulty,
		MHashPerS:  mhps,
		StopReason: stopReason,
	})
}

// reportFinalSnapshot reports one unconditional snapshot when a mining
// session ends, regardless of which condition ended it, carrying why in
// StopReason.
func (c *Client) reportFinalSnapshot(endpoint string, state *stratum.State, stopReason string) {
	diff, ok := state.Difficulty()
	if !ok {
		diff, _ = stratum.NewDifficulty(1)
	}
	c.reportSnapshot(endpoint, diff.Value, state, time.Now(), stopReason)
}

func leUint32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}
