package stratum

import (
	"encoding/binary"
	"encoding/hex"
	"time"

	"github.com/a3fpro-lab/vireon-testnet4-proofbench-miner/internal/header"
	"github.com/a3fpro-lab/vireon-testnet4-proofbench-miner/internal/stratumerr"
)

// Job is the connection's current mining.notify job, decoded and timestamped
// ReceivedAt is a monotonic clock reading, not wall time, so
// staleness checks are immune to clock adjustments.
type Job struct {
	JobID        string
	PrevHash     [32]byte
	Coinb1       []byte
	Coinb2       []byte
	MerkleBranch [][]byte
	Version      uint32
	NBits        uint32
	NTime        uint32
	CleanJobs    bool
	ReceivedAt   time.Time
}

// HeaderJob projects a Job into the shape internal/header needs to build
// a header prefix.
func (j Job) HeaderJob() header.Job {
	return header.Job{
		Coinb1:       j.Coinb1,
		Coinb2:       j.Coinb2,
		MerkleBranch: j.MerkleBranch,
		Version:      j.Version,
		PrevHash:     j.PrevHash,
		NTime:        j.NTime,
		NBits:        j.NBits,
	}
}

// Age reports how long ago the job was received, relative to now.
func (j Job) Age(now time.Time) time.Duration {
	return now.Sub(j.ReceivedAt)
}

func decodeHex32(s string) ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	if len(b) != 32 {
		return out, stratumerr.Semanticsf("", "expected 32 bytes, got %d", len(b))
	}
	copy(out[:], b)
	return out, nil
}

func decodeHexU32BE(s string) (uint32, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return 0, err
	}
	if len(b) != 4 {
		return 0, stratumerr.Semanticsf("", "expected 4-byte hex, got %d bytes", len(b))
	}
	return binary.BigEndian.Uint32(b), nil
}

// NotifyParams is the raw, still-hex mining.notify payload, positionally
// decoded.
type NotifyParams struct {
	JobID        string
	PrevHashHex  string
	Coinb1Hex    string
	Coinb2Hex    string
	MerkleBranch []string
	VersionHex   string
	NBitsHex     string
	NTimeHex     string
	CleanJobs    bool
}

// ToJob decodes a NotifyParams into a Job, stamping ReceivedAt with now.
func (p NotifyParams) ToJob(now time.Time) (Job, error) {
	prevHash, err := decodeHex32(p.PrevHashHex)
	if err != nil {
		return Job{}, stratumerr.Semanticsf("", "bad prevhash: %w", err)
	}

	coinb1, err := hex.DecodeString(p.Coinb1Hex)
	if err != nil {
		return Job{}, stratumerr.Semanticsf("", "bad coinb1: %w", err)
	}
	coinb2, err := hex.DecodeString(p.Coinb2Hex)
	if err != nil {
		return Job{}, stratumerr.Semanticsf("", "bad coinb2: %w", err)
	}

	branches := make([][]byte, 0, len(p.MerkleBranch))
	for _, mbHex := range p.MerkleBranch {
		mb, err := hex.DecodeString(mbHex)
		if err != nil {
			return Job{}, stratumerr.Semanticsf("", "bad merkle branch entry: %w", err)
		}
		branches = append(branches, mb)
	}

	version, err := decodeHexU32BE(p.VersionHex)
	if err != nil {
		return Job{}, stratumerr.Semanticsf("", "bad version: %w", err)
	}
	nbits, err := decodeHexU32BE(p.NBitsHex)
	if err != nil {
		return Job{}, stratumerr.Semanticsf("", "bad nbits: %w", err)
	}
	ntime, err := decodeHexU32BE(p.NTimeHex)
	if err != nil {
		return Job{}, stratumerr.Semanticsf("", "bad ntime: %w", err)
	}

	return Job{
		JobID:        p.JobID,
		PrevHash:     prevHash,
		Coinb1:       coinb1,
		Coinb2:       coinb2,
		MerkleBranch: branches,
		Version:      version,
		NBits:        nbits,
		NTime:        ntime,
		CleanJobs:    p.CleanJobs,
		ReceivedAt:   now,
	}, nil
}
