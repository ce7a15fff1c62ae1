package stratum

import (
	"sync"
	"time"
)

// ShareCandidate is a nonce the scanner asserts meets the current target,
// for a specific job snapshot.
type ShareCandidate struct {
	JobID       string
	ExtraNonce2 []byte
	NTime       uint32
	Nonce       uint32
}

// PendingSubmit tracks an in-flight mining.submit awaiting its reply.
type PendingSubmit struct {
	SubmitID  uint64
	Candidate ShareCandidate
}

// State is the connection's shared mutable state: subscribe info, current
// difficulty/target, current job, and the pending-request table. The
// reader task publishes; the scanner task subscribes; both are safe for
// concurrent use.
//
// State only owns protocol state; internal/client owns the scan/submit
// orchestration, keeping the protocol codec and the live session split
// cleanly apart.
type State struct {
	mu sync.RWMutex

	subscribeInfo *SubscribeInfo
	difficulty    *Difficulty
	job           *Job

	jobsSeen   uint64
	staleJobs  uint64

	nextSubmitID uint64
	pending      map[uint64]PendingSubmit
}

// NewState returns a State with submit ids starting above 2 (1 and 2 are
// reserved for the handshake's subscribe/authorize requests, so a submit
// id never collides with one of those).
func NewState() *State {
	return &State{
		nextSubmitID: 3,
		pending:      make(map[uint64]PendingSubmit),
	}
}

func (s *State) SetSubscribeInfo(info SubscribeInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribeInfo = &info
}

func (s *State) SubscribeInfo() (SubscribeInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.subscribeInfo == nil {
		return SubscribeInfo{}, false
	}
	return *s.subscribeInfo, true
}

func (s *State) SetDifficulty(d Difficulty) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.difficulty = &d
}

func (s *State) Difficulty() (Difficulty, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.difficulty == nil {
		return Difficulty{}, false
	}
	return *s.difficulty, true
}

// SetJob replaces the current job atomically and increments jobsSeen: the
// job is replaced wholesale by every mining.notify, never merged.
func (s *State) SetJob(j Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.job = &j
	s.jobsSeen++
}

func (s *State) Job() (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.job == nil {
		return Job{}, false
	}
	return *s.job, true
}

// JobsSeen returns the count of mining.notify messages applied.
func (s *State) JobsSeen() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobsSeen
}

// IncrStaleJobs increments the counter of scan batches skipped because the
// current job was older than stale_seconds.
func (s *State) IncrStaleJobs() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staleJobs++
}

func (s *State) StaleJobs() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.staleJobs
}

// NextSubmitID allocates the next unique submit id and records the
// candidate as pending; callers must send the submit request under the
// same send-lock discipline required before another message
// can interleave.
func (s *State) NextSubmitID(candidate ShareCandidate) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSubmitID
	s.nextSubmitID++
	s.pending[id] = PendingSubmit{SubmitID: id, Candidate: candidate}
	return id
}

// TakePending removes and returns the pending submit for id, if any.
func (s *State) TakePending(id uint64) (PendingSubmit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[id]
	if ok {
		delete(s.pending, id)
	}
	return p, ok
}

// IsStale reports whether the current job is older than maxAge as of now.
// Returns true (stale) if there is no job at all.
func (s *State) IsStale(now time.Time, maxAge time.Duration) bool {
	j, ok := s.Job()
	if !ok {
		return true
	}
	return j.Age(now) > maxAge
}
