package client

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/a3fpro-lab/vireon-testnet4-proofbench-miner/internal/stratumerr"
)

// RunWithReconnect runs Run in a loop, reconnecting with exponential
// backoff (1s initial, doubling, capped at 30s) after any failed session
// whose error is not a ProgrammerError. It returns when ctx is
// cancelled, Stop is called, a session ends without error (for example
// on a duration or max-shares stop), or a ProgrammerError is
// encountered (those never clear on retry).
func (c *Client) RunWithReconnect(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.RandomizationFactor = 0
	bo.Multiplier = 2
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0 // retry forever until ctx is cancelled or Stop is called
	bo.Reset()            // restart from InitialInterval as set above

	for {
		if c.stopping() {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		err := c.Run(ctx)
		if err == nil {
			return nil
		}

		var serr *stratumerr.Error
		if errors.As(err, &serr) && serr.Kind == stratumerr.ProgrammerError {
			return err
		}

		wait := bo.NextBackOff()
		if wait == backoff.Stop {
			return err
		}
		c.log.WithError(err).WithField("retry_in", wait).Warn("session ended, reconnecting")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}
