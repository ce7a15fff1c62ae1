package stratum

import (
	"encoding/json"

	"github.com/a3fpro-lab/vireon-testnet4-proofbench-miner/internal/stratumerr"
)

// Credentials identifies the worker to the pool.
type Credentials struct {
	Username string
	Password string
}

// Handshake drives mining.subscribe then mining.authorize to completion,
// storing the resulting SubscribeInfo in conn's State. conn.Serve must
// already be running in its own goroutine before Handshake is called, so
// its Call replies are delivered; any mining.notify or
// mining.set_difficulty that arrives ahead of them is
// applied to State by Serve's own dispatch, not dropped.
//
// This generalizes a single reader loop that interleaves
// dial, subscribe, authorize and an infinite sleep in one function; here
// it is two request/reply round trips the caller composes with the read
// loop explicitly.
func Handshake(conn *Conn, creds Credentials) error {
	subID := uint64(1)
	subReply, err := conn.Call(OutMessage{
		ID:     &subID,
		Method: MethodSubscribe,
		Params: []interface{}{"stratumcore"},
	})
	if err != nil {
		return err
	}
	if subReply.HasError() {
		return stratumerr.Semanticsf(conn.Endpoint(), "mining.subscribe rejected: %s",
			ErrorText(subReply.Error))
	}
	info, err := DecodeSubscribeResult(subReply.Result)
	if err != nil {
		return err
	}
	conn.State().SetSubscribeInfo(info)

	authID := uint64(2)
	authReply, err := conn.Call(OutMessage{
		ID:     &authID,
		Method: MethodAuthorize,
		Params: []interface{}{creds.Username, creds.Password},
	})
	if err != nil {
		return err
	}
	if authReply.HasError() {
		return stratumerr.Semanticsf(conn.Endpoint(), "mining.authorize rejected: %s",
			ErrorText(authReply.Error))
	}
	var ok bool
	if err := json.Unmarshal(authReply.Result, &ok); err != nil || !ok {
		return stratumerr.Semanticsf(conn.Endpoint(), "mining.authorize result not true: %s",
			authReply.Result)
	}

	return nil
}

// SuggestDifficulty sends mining.suggest_difficulty, a fire-and-forget
// notification the pool may ignore. It does not wait for
// a reply: the pool's own mining.set_difficulty, if any, arrives and is
// applied through Serve's normal dispatch path.
func SuggestDifficulty(conn *Conn, value float64) error {
	return conn.Send(OutMessage{
		Method: MethodSuggestDifficulty,
		Params: []interface{}{value},
	})
}

// Submit sends mining.submit for candidate and blocks for the matching
// reply, returning whether the pool accepted the share. id must come from
// State.NextSubmitID so the reply can be correlated.
func Submit(conn *Conn, id uint64, username string, candidate ShareCandidate, extraNonce2Hex, nTimeHex, nonceHex string) (bool, error) {
	reply, err := conn.Call(OutMessage{
		ID:     &id,
		Method: MethodSubmit,
		Params: []interface{}{
			username,
			candidate.JobID,
			extraNonce2Hex,
			nTimeHex,
			nonceHex,
		},
	})
	if err != nil {
		return false, err
	}
	if reply.HasError() {
		return false, nil
	}
	var accepted bool
	if err := json.Unmarshal(reply.Result, &accepted); err != nil {
		return false, stratumerr.Semanticsf(conn.Endpoint(), "submit result not boolean: %s", reply.Result)
	}
	return accepted, nil
}
